package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

func sampleSuite() *testgen.Suite {
	s := testgen.NewSuite()
	s.Add("Patient.id",
		testgen.TestCase{TestCase: "Patient.id:valid_value", Description: "valid", ExpectedResult: testgen.ResultPass, Input: int64(7), IsInput: true},
		testgen.TestCase{TestCase: "Patient.id:missing_mandatory", Description: "missing", ExpectedResult: testgen.ResultFail, Input: nil, IsInput: true},
	)
	s.Add("Claim.Line.amount",
		testgen.TestCase{TestCase: "Claim.Line.amount:valid_value", Description: "valid", ExpectedResult: testgen.ResultPass, Input: 12.5, IsInput: true},
	)
	return s
}

func TestSaveSuite_WritesJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tests.json")

	if err := SaveSuite(sampleSuite(), path); err != nil {
		t.Fatalf("SaveSuite: %v", err)
	}

	back, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	keys := back.Keys()
	if len(keys) != 2 || keys[0] != "Patient.id" || keys[1] != "Claim.Line.amount" {
		t.Fatalf("key order lost: %v", keys)
	}

	f, err := os.Open(filepath.Join(dir, "tests.csv"))
	if err != nil {
		t.Fatalf("csv companion missing: %v", err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(recs))
	}
	if strings.Join(recs[0], "|") != "SchemaName|FieldName|Test Case|Description|Expected Result|Input" {
		t.Fatalf("unexpected header: %v", recs[0])
	}
	// nil input renders as the NULL literal.
	if recs[2][5] != "NULL" {
		t.Fatalf("expected NULL input, got %q", recs[2][5])
	}
	// The key splits on the first dot only.
	if recs[3][0] != "Claim" || recs[3][1] != "Line.amount" {
		t.Fatalf("key split wrong: schema=%q field=%q", recs[3][0], recs[3][1])
	}
}

func TestSaveSuite_EmptySuiteSkipsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tests.json")

	if err := SaveSuite(testgen.NewSuite(), path); err != nil {
		t.Fatalf("SaveSuite: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("JSON artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tests.csv")); !os.IsNotExist(err) {
		t.Fatalf("CSV written for empty suite: %v", err)
	}
}

func TestSaveRules_BacksUpPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")

	stamp := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	orig := now
	now = func() time.Time { return stamp }
	defer func() { now = orig }()

	first := schema.NewCatalog()
	first.Ensure("A").PutField("x", &schema.FieldRule{DataType: schema.TypeString})
	if err := SaveRules(first, path); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := schema.NewCatalog()
	second.Ensure("B").PutField("y", &schema.FieldRule{DataType: schema.TypeLong})
	if err := SaveRules(second, path); err != nil {
		t.Fatalf("second save: %v", err)
	}

	bak := path + ".20260301_103000.bak"
	if _, err := os.Stat(bak); err != nil {
		t.Fatalf("backup missing: %v", err)
	}

	// The live artifact holds the second catalog, the backup the first.
	live, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules live: %v", err)
	}
	if live.Entity("B") == nil || live.Entity("A") != nil {
		t.Fatalf("live artifact is not the second save: %v", live.Names())
	}
	old, err := LoadRules(bak)
	if err != nil {
		t.Fatalf("LoadRules backup: %v", err)
	}
	if old.Entity("A") == nil {
		t.Fatalf("backup is not the first save: %v", old.Names())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	baks := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bak") {
			baks++
		}
	}
	if baks != 1 {
		t.Fatalf("expected exactly one backup, got %d", baks)
	}
}

func TestSaveRules_CreatesMissingOutputDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "rules.json")

	cat := schema.NewCatalog()
	cat.Ensure("A").PutField("x", &schema.FieldRule{})
	if err := SaveRules(cat, path); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestWriteJSON_NonASCIIStaysLiteral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")

	cat := schema.NewCatalog()
	e := cat.Ensure("Paciente")
	e.Description = "descripción año"
	e.PutField("nombre", &schema.FieldRule{DataType: schema.TypeString})
	if err := SaveRules(cat, path); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "descripción año") {
		t.Fatalf("non-ASCII escaped: %s", b)
	}
}

func TestSplitFieldKey(t *testing.T) {
	cases := []struct {
		in, schemaName, fieldName string
	}{
		{"A.B", "A", "B"},
		{"A.B.C", "A", "B.C"},
		{"NoDot", "NoDot", ""},
	}
	for _, c := range cases {
		s, f := splitFieldKey(c.in)
		if s != c.schemaName || f != c.fieldName {
			t.Fatalf("splitFieldKey(%q) = (%q, %q)", c.in, s, f)
		}
	}
}

func TestSummary_Totals(t *testing.T) {
	text := Summary(sampleSuite(), "tests.json")

	for _, want := range []string{
		"Total fields processed: 2",
		"Total test cases generated: 3",
		"Pass test cases: 2",
		"Fail test cases: 1",
		"Average test cases per field: 1.50",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}
