// Package postgres implements storage.Repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rulegen/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

const createFieldsSQL = `
CREATE TABLE IF NOT EXISTS rule_fields (
  entity TEXT NOT NULL,
  field TEXT NOT NULL,
  data_type TEXT NOT NULL,
  mandatory_field BOOLEAN NOT NULL,
  from_source BOOLEAN NOT NULL,
  primary_key BOOLEAN NOT NULL,
  required_for_deployment BOOLEAN NOT NULL,
  deployment_validation BOOLEAN NOT NULL,
  business_rules TEXT NOT NULL,
  description TEXT NOT NULL,
  PRIMARY KEY (entity, field)
)`

const createCasesSQL = `
CREATE TABLE IF NOT EXISTS test_cases (
  id BIGSERIAL PRIMARY KEY,
  run_id TEXT NOT NULL,
  field_key TEXT NOT NULL,
  test_case TEXT NOT NULL,
  description TEXT NOT NULL,
  expected_result TEXT NOT NULL,
  input TEXT,
  is_input BOOLEAN NOT NULL
)`

func (r *Repo) EnsureTables(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createFieldsSQL); err != nil {
		return fmt.Errorf("create rule_fields: %w", err)
	}
	if _, err := r.pool.Exec(ctx, createCasesSQL); err != nil {
		return fmt.Errorf("create test_cases: %w", err)
	}
	return nil
}

// InsertFieldRules upserts by (entity, field) via ON CONFLICT DO UPDATE so
// re-running extraction over the same sheet stays idempotent.
func (r *Repo) InsertFieldRules(ctx context.Context, rules []storage.FieldRuleRow) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, f := range rules {
		b.Queue(`INSERT INTO rule_fields
			(entity, field, data_type, mandatory_field, from_source, primary_key,
			 required_for_deployment, deployment_validation, business_rules, description)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (entity, field) DO UPDATE SET
			  data_type = EXCLUDED.data_type,
			  mandatory_field = EXCLUDED.mandatory_field,
			  from_source = EXCLUDED.from_source,
			  primary_key = EXCLUDED.primary_key,
			  required_for_deployment = EXCLUDED.required_for_deployment,
			  deployment_validation = EXCLUDED.deployment_validation,
			  business_rules = EXCLUDED.business_rules,
			  description = EXCLUDED.description`,
			f.Entity, f.Field, f.DataType, f.Mandatory, f.FromSource, f.PrimaryKey,
			f.RequiredForDeployment, f.DeploymentValidation, f.BusinessRules, f.Description)
	}

	br := r.pool.SendBatch(ctx, b)
	defer br.Close()

	var n int64
	for i := range rules {
		if _, err := br.Exec(); err != nil {
			return n, fmt.Errorf("insert rule_fields %s.%s: %w", rules[i].Entity, rules[i].Field, err)
		}
		n++
	}
	return n, nil
}

func (r *Repo) InsertTestCases(ctx context.Context, cases []storage.TestCaseRow) (int64, error) {
	if len(cases) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, c := range cases {
		b.Queue(`INSERT INTO test_cases
			(run_id, field_key, test_case, description, expected_result, input, is_input)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.RunID, c.FieldKey, c.TestCase, c.Description, c.ExpectedResult, c.Input, c.IsInput)
	}

	br := r.pool.SendBatch(ctx, b)
	defer br.Close()

	var n int64
	for i := range cases {
		if _, err := br.Exec(); err != nil {
			return n, fmt.Errorf("insert test_cases %s: %w", cases[i].TestCase, err)
		}
		n++
	}
	return n, nil
}

var _ storage.Repository = (*Repo)(nil)
