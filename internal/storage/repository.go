// Package storage defines the optional relational sink for extracted rule
// catalogs and generated test suites, plus the backend registry. Backends
// register themselves from init() in their own packages; callers select one
// by kind via New.
package storage

import (
	"context"
	"fmt"
	"sync"

	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

// Config is the minimal configuration needed to create a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// FieldRuleRow is one flattened field rule ready for relational insert.
type FieldRuleRow struct {
	Entity                string
	Field                 string
	DataType              string
	Mandatory             bool
	FromSource            bool
	PrimaryKey            bool
	RequiredForDeployment bool
	DeploymentValidation  bool
	BusinessRules         string
	Description           string
}

// TestCaseRow is one flattened test case ready for relational insert.
// Input is nil for intentionally absent inputs.
type TestCaseRow struct {
	RunID          string
	FieldKey       string
	TestCase       string
	Description    string
	ExpectedResult string
	Input          *string
	IsInput        bool
}

// Repository is the backend-agnostic sink interface. It is intentionally
// minimal: ensure the two tables, append rows. Each backend implements the
// semantics in its own idiomatic way (Postgres ON CONFLICT, SQLite OR
// IGNORE, MSSQL IF OBJECT_ID).
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTables creates the rule_fields and test_cases tables when
	// absent. Idempotent.
	EnsureTables(ctx context.Context) error

	// InsertFieldRules appends flattened field rules. Returns rows written.
	InsertFieldRules(ctx context.Context, rules []FieldRuleRow) (int64, error)

	// InsertTestCases appends flattened test cases. Returns rows written.
	InsertTestCases(ctx context.Context, cases []TestCaseRow) (int64, error)
}

// FlattenCatalog projects a catalog into insertable rows, preserving
// catalog order.
func FlattenCatalog(cat *schema.Catalog) []FieldRuleRow {
	var out []FieldRuleRow
	for _, entityName := range cat.Names() {
		e := cat.Entity(entityName)
		for _, fieldName := range e.FieldNames() {
			r := e.Field(fieldName)
			out = append(out, FieldRuleRow{
				Entity:                entityName,
				Field:                 fieldName,
				DataType:              string(r.DataType),
				Mandatory:             r.Mandatory,
				FromSource:            r.FromSource,
				PrimaryKey:            r.PrimaryKey,
				RequiredForDeployment: r.RequiredForDeployment,
				DeploymentValidation:  r.DeploymentValidation,
				BusinessRules:         r.BusinessRules,
				Description:           r.Description,
			})
		}
	}
	return out
}

// FlattenSuite projects a suite into insertable rows tagged with runID,
// preserving suite order.
func FlattenSuite(s *testgen.Suite, runID string) []TestCaseRow {
	var out []TestCaseRow
	for _, key := range s.Keys() {
		for _, tc := range s.Cases(key) {
			var input *string
			if tc.Input != nil {
				v := fmt.Sprintf("%v", tc.Input)
				input = &v
			}
			out = append(out, TestCaseRow{
				RunID:          runID,
				FieldKey:       key,
				TestCase:       tc.TestCase,
				Description:    tc.Description,
				ExpectedResult: tc.ExpectedResult,
				Input:          input,
				IsInput:        tc.IsInput,
			})
		}
	}
	return out
}

// ---- backend registry (mirrors the factory seam used by the pipeline) ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package. Registering
// the same kind twice panics; this fails fast instead of allowing
// ambiguous backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
