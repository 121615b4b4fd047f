package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

type fakeModel struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeModel) Generate(ctx context.Context, in []*einoschema.Message, opts ...model.Option) (*einoschema.Message, error) {
	i := f.calls
	f.calls++
	if len(in) > 0 {
		f.prompts = append(f.prompts, in[0].Content)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	resp := "[]"
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return &einoschema.Message{Content: resp}, nil
}

func (f *fakeModel) Stream(ctx context.Context, in []*einoschema.Message, opts ...model.Option) (*einoschema.StreamReader[*einoschema.Message], error) {
	return nil, errors.New("not implemented")
}

func singleFieldCatalog() *schema.Catalog {
	cat := schema.NewCatalog()
	cat.Ensure("Patient").PutField("id", &schema.FieldRule{
		DataType:      schema.TypeLong,
		Mandatory:     true,
		PrimaryKey:    true,
		BusinessRules: "must be positive",
	})
	return cat
}

func TestAugment_AppendsValidProposals(t *testing.T) {
	m := &fakeModel{responses: []string{"```json\n" + `[
  {"test_case": "negative id", "description": "negative value rejected", "expected_result": "Fail", "input": -1},
  {"test_case": "zero id", "description": "zero accepted", "expected_result": "Pass", "input": 0}
]` + "\n```"}}

	suite := testgen.NewSuite()
	if err := Augment(context.Background(), m, singleFieldCatalog(), suite, 5); err != nil {
		t.Fatalf("Augment: %v", err)
	}

	cases := suite.Cases("Patient.id")
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].TestCase != "Patient.id:assist_1" || cases[1].TestCase != "Patient.id:assist_2" {
		t.Fatalf("identifiers not namespaced: %v, %v", cases[0].TestCase, cases[1].TestCase)
	}
	if cases[0].ExpectedResult != testgen.ResultFail || !cases[0].IsInput {
		t.Fatalf("proposal fields lost: %+v", cases[0])
	}
}

func TestAugment_DropsInvalidProposals(t *testing.T) {
	m := &fakeModel{responses: []string{`[
  {"test_case": "", "description": "no name", "expected_result": "Fail", "input": 1},
  {"test_case": "x", "description": "", "expected_result": "Fail", "input": 1},
  {"test_case": "y", "description": "bad verdict", "expected_result": "Maybe", "input": 1},
  {"test_case": "ok", "description": "kept", "expected_result": "Pass", "input": 1}
]`}}

	suite := testgen.NewSuite()
	if err := Augment(context.Background(), m, singleFieldCatalog(), suite, 5); err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if got := len(suite.Cases("Patient.id")); got != 1 {
		t.Fatalf("expected 1 accepted case, got %d", got)
	}
}

func TestAugment_CapsPerField(t *testing.T) {
	m := &fakeModel{responses: []string{`[
  {"test_case": "a", "description": "a", "expected_result": "Pass", "input": 1},
  {"test_case": "b", "description": "b", "expected_result": "Pass", "input": 2},
  {"test_case": "c", "description": "c", "expected_result": "Pass", "input": 3}
]`}}

	suite := testgen.NewSuite()
	if err := Augment(context.Background(), m, singleFieldCatalog(), suite, 2); err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if got := len(suite.Cases("Patient.id")); got != 2 {
		t.Fatalf("expected cap of 2, got %d", got)
	}
}

func TestAugment_ModelErrorSkipsField(t *testing.T) {
	cat := singleFieldCatalog()
	cat.Ensure("Claim").PutField("amount", &schema.FieldRule{DataType: schema.TypeNumeric})

	m := &fakeModel{
		errs: []error{errors.New("rate limited"), nil},
		responses: []string{"",
			`[{"test_case": "ok", "description": "kept", "expected_result": "Pass", "input": 1}]`},
	}

	suite := testgen.NewSuite()
	if err := Augment(context.Background(), m, cat, suite, 5); err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if len(suite.Cases("Patient.id")) != 0 {
		t.Fatal("failed field produced cases")
	}
	if len(suite.Cases("Claim.amount")) != 1 {
		t.Fatal("later field not processed after earlier failure")
	}
}

func TestAugment_PromptCarriesRuleContext(t *testing.T) {
	m := &fakeModel{}
	suite := testgen.NewSuite()
	if err := Augment(context.Background(), m, singleFieldCatalog(), suite, 5); err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if len(m.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(m.prompts))
	}
	p := m.prompts[0]
	for _, want := range []string{"Patient.id", "Long", "must be positive"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestAugment_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &fakeModel{}
	if err := Augment(ctx, m, singleFieldCatalog(), testgen.NewSuite(), 5); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseProposals_UnfencedAndFenced(t *testing.T) {
	raw := `[{"test_case": "a", "description": "d", "expected_result": "Pass", "input": null}]`

	for _, in := range []string{raw, "```json\n" + raw + "\n```", "```\n" + raw + "\n```"} {
		got, err := parseProposals(in)
		if err != nil {
			t.Fatalf("parseProposals(%q): %v", in, err)
		}
		if len(got) != 1 || got[0].TestCase != "a" {
			t.Fatalf("unexpected proposals: %+v", got)
		}
	}

	if _, err := parseProposals("sorry, I cannot help"); err == nil {
		t.Fatal("expected error for prose response")
	}
}
