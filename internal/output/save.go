// Package output persists the rule catalog and generated test suite to
// durable JSON, with timestamped backups of previous artifacts and a
// flattened CSV projection of the suite for reporting.
//
// Failure policy: the JSON artifact is primary — a JSON write failure is
// returned to the caller. Backups and the CSV companion are best-effort:
// their failures are logged and never block the primary artifact.
package output

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

// backupStamp has second resolution, matching the artifact retention
// granularity we actually need.
const backupStamp = "20060102_150405"

// now is a seam for deterministic backup names in tests.
var now = time.Now

// backupExisting renames path to "<path>.<timestamp>.bak" when it exists.
// A rename failure is logged, not returned: the save proceeds and
// overwrites in place.
func backupExisting(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	bak := fmt.Sprintf("%s.%s.bak", path, now().Format(backupStamp))
	if err := os.Rename(path, bak); err != nil {
		log.Printf("output: backup of %s failed, overwriting in place: %v", path, err)
		return
	}
	log.Printf("output: created backup %s", bak)
}

// writeJSON writes v as indented UTF-8 JSON. Non-ASCII stays literal
// (no HTML escaping). The file handle is closed on all paths; a close
// error counts as a write failure.
func writeJSON(v any, path string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	backupExisting(path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SaveRules persists the rule catalog as JSON.
func SaveRules(cat *schema.Catalog, path string) error {
	if err := writeJSON(cat, path); err != nil {
		return err
	}
	log.Printf("output: saved rule catalog (%d entities, %d fields) to %s", cat.Len(), cat.TotalFields(), path)
	return nil
}

// SaveSuite persists the test suite as JSON, then derives the CSV companion
// at the same path with the extension replaced by ".csv".
//
// The JSON write is fatal on error. CSV generation failures are logged
// only; an empty suite skips CSV generation entirely with a warning.
func SaveSuite(s *testgen.Suite, path string) error {
	if err := writeJSON(s, path); err != nil {
		return err
	}
	log.Printf("output: saved %d test cases for %d fields to %s", s.TotalCases(), s.Len(), path)

	if s.Len() == 0 {
		log.Printf("output: suite is empty, skipping CSV generation for %s", path)
		return nil
	}

	csvPath := replaceExt(path, ".csv")
	backupExisting(csvPath)
	if err := writeCSV(s, csvPath); err != nil {
		log.Printf("output: CSV report %s failed (JSON artifact is intact): %v", csvPath, err)
		return nil
	}
	log.Printf("output: saved CSV report to %s", csvPath)
	return nil
}

// LoadRules reads a rule catalog back, preserving entity and field order.
func LoadRules(path string) (*schema.Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cat := schema.NewCatalog()
	if err := json.Unmarshal(b, cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cat, nil
}

// LoadSuite reads a test suite back, preserving key order.
func LoadSuite(path string) (*testgen.Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s := testgen.NewSuite()
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func replaceExt(path, ext string) string {
	old := filepath.Ext(path)
	return strings.TrimSuffix(path, old) + ext
}
