// Package mssql implements storage.Repository on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"rulegen/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

// SQL Server has no CREATE TABLE IF NOT EXISTS; the OBJECT_ID guard is the
// conventional equivalent.
const createFieldsSQL = `
IF OBJECT_ID('rule_fields', 'U') IS NULL
CREATE TABLE rule_fields (
  entity NVARCHAR(400) NOT NULL,
  field NVARCHAR(400) NOT NULL,
  data_type NVARCHAR(50) NOT NULL,
  mandatory_field BIT NOT NULL,
  from_source BIT NOT NULL,
  primary_key BIT NOT NULL,
  required_for_deployment BIT NOT NULL,
  deployment_validation BIT NOT NULL,
  business_rules NVARCHAR(MAX) NOT NULL,
  description NVARCHAR(MAX) NOT NULL,
  CONSTRAINT pk_rule_fields PRIMARY KEY (entity, field)
)`

const createCasesSQL = `
IF OBJECT_ID('test_cases', 'U') IS NULL
CREATE TABLE test_cases (
  id BIGINT IDENTITY(1,1) PRIMARY KEY,
  run_id NVARCHAR(100) NOT NULL,
  field_key NVARCHAR(800) NOT NULL,
  test_case NVARCHAR(800) NOT NULL,
  description NVARCHAR(MAX) NOT NULL,
  expected_result NVARCHAR(10) NOT NULL,
  input NVARCHAR(MAX) NULL,
  is_input BIT NOT NULL
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

// InsertFieldRules deletes-then-inserts per key inside one transaction.
// MERGE would also work but is notoriously easy to get wrong; this keeps
// re-runs idempotent with two obvious statements.
func (r *Repo) InsertFieldRules(ctx context.Context, rules []storage.FieldRuleRow) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	for _, f := range rules {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM rule_fields WHERE entity = @p1 AND field = @p2`,
			f.Entity, f.Field,
		); err != nil {
			return n, fmt.Errorf("delete rule_fields %s.%s: %w", f.Entity, f.Field, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rule_fields
			 (entity, field, data_type, mandatory_field, from_source, primary_key,
			  required_for_deployment, deployment_validation, business_rules, description)
			 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`,
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

	var n int64
	for _, c := range cases {
		var input sql.NullString
		if c.Input != nil {
			input = sql.NullString{String: *c.Input, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_cases
			 (run_id, field_key, test_case, description, expected_result, input, is_input)
			 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7)`,
			c.RunID, c.FieldKey, c.TestCase, c.Description, c.ExpectedResult, input, c.IsInput,
		); err != nil {
			return n, fmt.Errorf("insert test_cases %s: %w", c.TestCase, err)
		}
		n++
	}
	return n, tx.Commit()
}

var _ storage.Repository = (*Repo)(nil)
