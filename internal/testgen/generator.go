// Package testgen derives labeled test cases and synthetic sample values
// from a rule catalog. Generation is declarative policy over the field
// attributes: no randomness beyond the seeded synthesizer, no external
// calls, and a stable identifier per scenario so repeated runs over
// unchanged rules produce identical artifacts.
package testgen

import (
	"fmt"

	"rulegen/internal/schema"
)

// Scenario tags. A test case identifier is "<Entity>.<Field>:<tag>".
const (
	tagMissingMandatory = "missing_mandatory"
	tagValidValue       = "valid_value"
	tagExpectedValue    = "expected_value"
	tagOptionalNull     = "optional_null"
	tagWrongType        = "wrong_type"
	tagDuplicateKey     = "duplicate_key"
	tagMalformedDate    = "malformed_date"
	tagBoundary         = "boundary"
	tagInvalidBoolean   = "invalid_boolean"
)

// Generator derives test cases from field rules.
type Generator struct {
	synth *Synthesizer
}

// NewGenerator returns a generator whose synthesized values are driven by
// the seeded synthesizer.
func NewGenerator(seed int64) *Generator {
	return &Generator{synth: NewSynthesizer(seed)}
}

// Generate walks the catalog in insertion order and emits the scenario set
// for every field. It never fails for a structurally valid FieldRule:
// unknown data types fall back to the String scenario set via the catalog's
// type normalization.
func (g *Generator) Generate(cat *schema.Catalog) *Suite {
	suite := NewSuite()
	for _, entityName := range cat.Names() {
		e := cat.Entity(entityName)
		for _, fieldName := range e.FieldNames() {
			key := entityName + "." + fieldName
			suite.Add(key, g.fieldCases(key, e.Field(fieldName))...)
		}
	}
	return suite
}

// fieldCases applies the policy table for one field.
func (g *Generator) fieldCases(key string, r *schema.FieldRule) []TestCase {
	var cases []TestCase

	caseID := func(tag string) string { return key + ":" + tag }

	valid := g.synth.Positive(r.DataType)

	// Present valid value. Fields not populated from source are derived
	// downstream, so the valid input carries a paired expected-output row.
	cases = append(cases, TestCase{
		TestCase:       caseID(tagValidValue),
		Description:    fmt.Sprintf("valid %s value accepted", r.DataType),
		ExpectedResult: ResultPass,
		Input:          valid,
		IsInput:        true,
	})
	if !r.FromSource {
		cases = append(cases, TestCase{
			TestCase:       caseID(tagExpectedValue),
			Description:    "expected downstream value for the derived field",
			ExpectedResult: ResultPass,
			Input:          valid,
			IsInput:        false,
		})
	}

	if r.Mandatory {
		cases = append(cases, TestCase{
			TestCase:       caseID(tagMissingMandatory),
			Description:    "missing mandatory value rejected",
			ExpectedResult: ResultFail,
			Input:          nil,
			IsInput:        true,
		})
	} else {
		cases = append(cases, TestCase{
			TestCase:       caseID(tagOptionalNull),
			Description:    "absent optional value accepted",
			ExpectedResult: ResultPass,
			Input:          nil,
			IsInput:        true,
		})
	}

	cases = append(cases, TestCase{
		TestCase:       caseID(tagWrongType),
		Description:    fmt.Sprintf("value of a different type than %s rejected", r.DataType),
		ExpectedResult: ResultFail,
		Input:          g.synth.WrongType(r.DataType),
		IsInput:        true,
	})

	if r.PrimaryKey {
		// The valid value is reused on purpose: the second submission with
		// the same key must conflict.
		cases = append(cases, TestCase{
			TestCase:       caseID(tagDuplicateKey),
			Description:    "duplicate primary key value rejected",
			ExpectedResult: ResultFail,
			Input:          valid,
			IsInput:        true,
		})
	}

	switch r.DataType {
	case schema.TypeDate, schema.TypeDateTime:
		cases = append(cases, TestCase{
			TestCase:       caseID(tagMalformedDate),
			Description:    "malformed date format rejected",
			ExpectedResult: ResultFail,
			Input:          g.synth.MalformedDate(),
			IsInput:        true,
		})
	case schema.TypeBoolean:
		cases = append(cases, TestCase{
			TestCase:       caseID(tagInvalidBoolean),
			Description:    "non-boolean token rejected",
			ExpectedResult: ResultFail,
			Input:          "maybe",
			IsInput:        true,
		})
	}

	if b, ok := g.synth.Boundary(r.DataType); ok {
		cases = append(cases, TestCase{
			TestCase:       caseID(tagBoundary),
			Description:    "boundary value accepted",
			ExpectedResult: ResultPass,
			Input:          b,
			IsInput:        true,
		})
	}

	return cases
}
