// Package sqlite implements storage.Repository on an embedded SQLite file,
// the zero-infrastructure sink for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"rulegen/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

const createFieldsSQL = `
CREATE TABLE IF NOT EXISTS rule_fields (
  entity TEXT NOT NULL,
  field TEXT NOT NULL,
  data_type TEXT NOT NULL,
  mandatory_field INTEGER NOT NULL,
  from_source INTEGER NOT NULL,
  primary_key INTEGER NOT NULL,
  required_for_deployment INTEGER NOT NULL,
  deployment_validation INTEGER NOT NULL,
  business_rules TEXT NOT NULL,
  description TEXT NOT NULL,
  PRIMARY KEY (entity, field)
)`

const createCasesSQL = `
CREATE TABLE IF NOT EXISTS test_cases (
  id INTEGER PRIMARY KEY,
  run_id TEXT NOT NULL,
  field_key TEXT NOT NULL,
  test_case TEXT NOT NULL,
  description TEXT NOT NULL,
  expected_result TEXT NOT NULL,
  input TEXT,
  is_input INTEGER NOT NULL
)`

func (r *Repo) EnsureTables(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFieldsSQL); err != nil {
		return fmt.Errorf("create rule_fields: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createCasesSQL); err != nil {
		return fmt.Errorf("create test_cases: %w", err)
	}
	return nil
}

// InsertFieldRules upserts by (entity, field): OR REPLACE keeps re-runs of
// the same sheet idempotent.
func (r *Repo) InsertFieldRules(ctx context.Context, rules []storage.FieldRuleRow) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO rule_fields
		(entity, field, data_type, mandatory_field, from_source, primary_key,
		 required_for_deployment, deployment_validation, business_rules, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, f := range rules {
		if _, err := stmt.ExecContext(ctx,
			f.Entity, f.Field, f.DataType, f.Mandatory, f.FromSource, f.PrimaryKey,
			f.RequiredForDeployment, f.DeploymentValidation, f.BusinessRules, f.Description,
		); err != nil {
			return n, fmt.Errorf("insert rule_fields %s.%s: %w", f.Entity, f.Field, err)
		}
		n++
	}
	return n, tx.Commit()
}

func (r *Repo) InsertTestCases(ctx context.Context, cases []storage.TestCaseRow) (int64, error) {
	if len(cases) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_cases
		(run_id, field_key, test_case, description, expected_result, input, is_input)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, c := range cases {
		var input sql.NullString
		if c.Input != nil {
			input = sql.NullString{String: *c.Input, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			c.RunID, c.FieldKey, c.TestCase, c.Description, c.ExpectedResult, input, c.IsInput,
		); err != nil {
			return n, fmt.Errorf("insert test_cases %s: %w", c.TestCase, err)
		}
		n++
	}
	return n, tx.Commit()
}

var _ storage.Repository = (*Repo)(nil)
