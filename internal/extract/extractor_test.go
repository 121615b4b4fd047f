package extract

import (
	"testing"

	"rulegen/internal/rows"
	"rulegen/internal/schema"
)

var testHeaders = []string{
	"Schema Name", "Field Name", "Data Type", "Description",
	"Business Rules", "Required from Source", "Primary Key",
}

func resolve(t *testing.T, headers []string) schema.Columns {
	t.Helper()
	cols, err := schema.ResolveColumns(headers)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	return cols
}

func row(line int, cells map[string]string) rows.Row {
	return rows.Row{Line: line, Cells: cells}
}

func TestRun_ForwardFillsEntityNames(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{"Schema Name": "Patient", "Field Name": "id", "Data Type": "Long"}),
		row(3, map[string]string{"Field Name": "name", "Data Type": "String"}),
		row(4, map[string]string{"Schema Name": "Claim", "Field Name": "amount", "Data Type": "Numeric"}),
		row(5, map[string]string{"Field Name": "status", "Data Type": "String"}),
	}

	cat, out := Run(rws, cols, Config{})
	if len(out.Skips) != 0 {
		t.Fatalf("unexpected skips: %v", out.Skips)
	}

	names := cat.Names()
	if len(names) != 2 || names[0] != "Patient" || names[1] != "Claim" {
		t.Fatalf("unexpected entities: %v", names)
	}
	if cat.Entity("Patient").Field("name") == nil {
		t.Fatal("blank-entity row not attributed to Patient")
	}
	if cat.Entity("Claim").Field("status") == nil {
		t.Fatal("blank-entity row not attributed to Claim")
	}
}

func TestRun_SkipsRowsBeforeFirstEntity(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{"Field Name": "orphan", "Data Type": "String"}),
		row(3, map[string]string{"Schema Name": "Patient", "Field Name": "id", "Data Type": "Long"}),
	}

	cat, out := Run(rws, cols, Config{})
	if len(out.Skips) != 1 || out.Skips[0].Line != 2 {
		t.Fatalf("expected line 2 skipped, got %v", out.Skips)
	}
	if cat.TotalFields() != 1 {
		t.Fatalf("expected 1 field, got %d", cat.TotalFields())
	}
}

func TestRun_SkipsRowsWithoutFieldName(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{"Schema Name": "Patient", "Field Name": "id", "Data Type": "Long"}),
		row(3, map[string]string{"Description": "dangling note"}),
	}

	cat, out := Run(rws, cols, Config{})
	if len(out.Skips) != 1 || out.Skips[0].Entity != "Patient" {
		t.Fatalf("expected skip under Patient, got %v", out.Skips)
	}
	if cat.Entity("Patient").Len() != 1 {
		t.Fatalf("expected 1 field, got %d", cat.Entity("Patient").Len())
	}
}

func TestRun_ObjectRowsSeedEntityDescription(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{"Schema Name": "Patient", "Data Type": "Object", "Description": "the patient record"}),
		row(3, map[string]string{"Field Name": "id", "Data Type": "Long"}),
	}

	cat, out := Run(rws, cols, Config{})
	if out.ObjectRows != 1 {
		t.Fatalf("expected 1 object row, got %d", out.ObjectRows)
	}

	e := cat.Entity("Patient")
	if e == nil {
		t.Fatal("entity missing")
	}
	if e.Description != "the patient record" {
		t.Fatalf("description not seeded: %q", e.Description)
	}
	if e.Field("Object") != nil || e.Len() != 1 {
		t.Fatalf("object row leaked into fields: %v", e.FieldNames())
	}
}

func TestRun_LaterObjectRowOverwritesDescription(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{"Schema Name": "Patient", "Data Type": "object", "Description": "first"}),
		row(3, map[string]string{"Field Name": "id", "Data Type": "Long"}),
		row(4, map[string]string{"Data Type": "OBJECT", "Description": "second"}),
	}

	cat, _ := Run(rws, cols, Config{})
	if got := cat.Entity("Patient").Description; got != "second" {
		t.Fatalf("expected last object row to win, got %q", got)
	}
}

func TestRun_DuplicateFieldMergesDescriptions(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{
			"Schema Name": "Patient", "Field Name": "dob", "Data Type": "Date",
			"Description": "date of birth", "Business Rules": "must be past",
		}),
		row(3, map[string]string{
			"Field Name": "dob", "Data Type": "String",
			"Description": "continued note", "Business Rules": "not future dated",
			"Primary Key": "Yes",
		}),
	}

	cat, out := Run(rws, cols, Config{})
	if out.Merged != 1 {
		t.Fatalf("expected 1 merge, got %d", out.Merged)
	}

	r := cat.Entity("Patient").Field("dob")
	if r.Description != "date of birth\ncontinued note" {
		t.Fatalf("descriptions not appended: %q", r.Description)
	}
	if r.BusinessRules != "must be past\nnot future dated" {
		t.Fatalf("business rules not appended: %q", r.BusinessRules)
	}
	// First-seen attributes win: the duplicate must not flip type or keys.
	if r.DataType != schema.TypeDate {
		t.Fatalf("duplicate changed data type: %s", r.DataType)
	}
	if r.PrimaryKey {
		t.Fatal("duplicate changed primary key flag")
	}
}

func TestRun_ExplicitMandatoryColumnWinsOverHeuristic(t *testing.T) {
	headers := append(append([]string(nil), testHeaders...), "Mandatory Field")
	cols := resolve(t, headers)
	rws := []rows.Row{
		row(2, map[string]string{
			"Schema Name": "Patient", "Field Name": "id", "Data Type": "Long",
			"Description": "mandatory identifier", "Mandatory Field": "No",
		}),
		row(3, map[string]string{
			"Field Name": "ssn", "Data Type": "String",
			"Description": "optional", "Mandatory Field": "yes",
		}),
	}

	cat, _ := Run(rws, cols, Config{})
	if cat.Entity("Patient").Field("id").Mandatory {
		t.Fatal("explicit No overridden by description heuristic")
	}
	if !cat.Entity("Patient").Field("ssn").Mandatory {
		t.Fatal("explicit yes not honored")
	}
}

func TestRun_MandatoryHeuristicWithoutColumn(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{
			"Schema Name": "Patient", "Field Name": "id", "Data Type": "Long",
			"Description": "Mandatory identifier for the record",
		}),
		row(3, map[string]string{
			"Field Name": "nickname", "Data Type": "String",
			"Description": "free text",
		}),
	}

	cat, _ := Run(rws, cols, Config{})
	if !cat.Entity("Patient").Field("id").Mandatory {
		t.Fatal("heuristic missed 'Mandatory' in description")
	}
	if cat.Entity("Patient").Field("nickname").Mandatory {
		t.Fatal("heuristic flagged plain description")
	}
}

func TestDefaultClassifier_KnownFalsePositive(t *testing.T) {
	// Substring matching flags "not mandatory" as required. Documented
	// behavior; this test pins it so a vocabulary change is deliberate.
	if !DefaultClassifier("this field is not mandatory") {
		t.Fatal("substring classifier behavior changed")
	}
}

func TestRun_FlagColumnsAndTypeDefaults(t *testing.T) {
	cols := resolve(t, testHeaders)
	rws := []rows.Row{
		row(2, map[string]string{
			"Schema Name": "Claim", "Field Name": "claim_id",
			"Required from Source": "Y", "Primary Key": "1",
		}),
	}

	cat, _ := Run(rws, cols, Config{DefaultType: schema.TypeLong})
	r := cat.Entity("Claim").Field("claim_id")
	if r.DataType != schema.TypeLong {
		t.Fatalf("blank type cell did not take configured default: %s", r.DataType)
	}
	if !r.FromSource || !r.PrimaryKey {
		t.Fatalf("yes-flags not parsed: %+v", r)
	}
}
