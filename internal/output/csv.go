package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"rulegen/internal/testgen"
)

// csvHeader is the report contract consumed by humans and downstream
// reporting. Column names are part of that contract; do not rename.
var csvHeader = []string{"SchemaName", "FieldName", "Test Case", "Description", "Expected Result", "Input"}

// nullLiteral renders an intentionally absent input in the CSV.
const nullLiteral = "NULL"

// writeCSV writes the flattened projection of s: one row per test case.
func writeCSV(s *testgen.Suite, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, key := range s.Keys() {
		schemaName, fieldName := splitFieldKey(key)
		for _, tc := range s.Cases(key) {
			rec := []string{
				schemaName,
				fieldName,
				tc.TestCase,
				tc.Description,
				tc.ExpectedResult,
				renderInput(tc.Input),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

// splitFieldKey splits a fully-qualified field key on the first dot only:
// "A.B.C" -> ("A", "B.C"). A key with no dot keeps everything in SchemaName.
func splitFieldKey(key string) (schemaName, fieldName string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return key, ""
}

// renderInput stringifies a test-case input for the report. nil becomes
// the literal NULL so absent values stay distinguishable from empty text.
func renderInput(v any) string {
	if v == nil {
		return nullLiteral
	}
	return fmt.Sprintf("%v", v)
}
