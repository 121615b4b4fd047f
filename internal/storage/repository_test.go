package storage

import (
	"context"
	"testing"

	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

type fakeRepo struct{}

func (fakeRepo) Close()                             {}
func (fakeRepo) EnsureTables(context.Context) error { return nil }

func (fakeRepo) InsertFieldRules(context.Context, []FieldRuleRow) (int64, error) {
	return 0, nil
}

func (fakeRepo) InsertTestCases(context.Context, []TestCaseRow) (int64, error) {
	return 0, nil
}

func TestFlattenCatalog_OrderAndValues(t *testing.T) {
	cat := schema.NewCatalog()
	p := cat.Ensure("Patient")
	p.PutField("id", &schema.FieldRule{DataType: schema.TypeLong, Mandatory: true, PrimaryKey: true, Description: "identifier"})
	p.PutField("dob", &schema.FieldRule{DataType: schema.TypeDate, FromSource: true})
	cat.Ensure("Claim").PutField("amount", &schema.FieldRule{DataType: schema.TypeNumeric, BusinessRules: "non-negative"})

	rows := FlattenCatalog(cat)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Entity != "Patient" || rows[0].Field != "id" {
		t.Fatalf("order lost: %+v", rows[0])
	}
	if rows[0].DataType != "Long" || !rows[0].Mandatory || !rows[0].PrimaryKey {
		t.Fatalf("attributes lost: %+v", rows[0])
	}
	if rows[2].Entity != "Claim" || rows[2].BusinessRules != "non-negative" {
		t.Fatalf("unexpected last row: %+v", rows[2])
	}
}

func TestFlattenSuite_NilInputStaysNil(t *testing.T) {
	s := testgen.NewSuite()
	s.Add("Patient.id",
		testgen.TestCase{TestCase: "Patient.id:valid_value", ExpectedResult: testgen.ResultPass, Input: int64(5), IsInput: true},
		testgen.TestCase{TestCase: "Patient.id:missing_mandatory", ExpectedResult: testgen.ResultFail, Input: nil, IsInput: true},
	)

	rows := FlattenSuite(s, "run-1")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].RunID != "run-1" || rows[0].FieldKey != "Patient.id" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[0].Input == nil || *rows[0].Input != "5" {
		t.Fatalf("input not rendered: %v", rows[0].Input)
	}
	if rows[1].Input != nil {
		t.Fatalf("nil input materialized: %v", *rows[1].Input)
	}
}

func TestRegistry_NewDispatchesByKind(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := repo.(fakeRepo); !ok {
		t.Fatalf("wrong repository type: %T", repo)
	}

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRegistry_DuplicateKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("dup", func(ctx context.Context, cfg Config) (Repository, error) { return fakeRepo{}, nil })
	Register("dup", func(ctx context.Context, cfg Config) (Repository, error) { return fakeRepo{}, nil })
}
