// Package pipeline executes a full rule-extraction run: parse the sheet,
// resolve column roles, extract the rule catalog, generate test cases,
// optionally augment them, persist the artifacts and mirror them into the
// configured storage sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"rulegen/internal/assist"
	"rulegen/internal/config"
	"rulegen/internal/extract"
	"rulegen/internal/metrics"
	"rulegen/internal/output"
	csvparser "rulegen/internal/parser/csv"
	"rulegen/internal/parser/htmltable"
	"rulegen/internal/rows"
	"rulegen/internal/schema"
	"rulegen/internal/storage"
	"rulegen/internal/testgen"
)

// Runner carries the seams a run depends on. Production uses
// NewDefaultRunner; tests swap in fakes.
type Runner struct {
	// NewRepository builds the storage sink. Nil disables the sink even
	// when the config names one.
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

	// Augment runs the optional LLM step over the generated suite. Nil
	// skips augmentation regardless of config.
	Augment func(ctx context.Context, a *config.Assist, cat *schema.Catalog, suite *testgen.Suite) error
}

// NewDefaultRunner wires the production seams.
func NewDefaultRunner() *Runner {
	return &Runner{
		NewRepository: storage.New,
		Augment: func(ctx context.Context, a *config.Assist, cat *schema.Catalog, suite *testgen.Suite) error {
			m, err := assist.NewOpenAIModel(ctx, a)
			if err != nil {
				return err
			}
			return assist.Augment(ctx, m, cat, suite, a.MaxPerField)
		},
	}
}

// Run executes one pipeline over cfg.
//
// Failure policy mirrors the artifact hierarchy: parse and column
// resolution failures abort the run, as does a failed write of a JSON
// artifact. Augmentation and the storage sink are best-effort; their
// failures are logged and the run still succeeds.
func (r *Runner) Run(ctx context.Context, cfg config.Pipeline) error {
	runID := uuid.NewString()
	log.Printf("pipeline: run %s job=%q source=%s", runID, cfg.Job, cfg.Source.File.Path)

	parseStart := time.Now()
	headers, rws, err := r.parse(ctx, cfg)
	if err != nil {
		return fmt.Errorf("parse %s: %w", cfg.Source.File.Path, err)
	}
	observeStage("parse", parseStart)

	cols, err := schema.ResolveColumns(headers)
	if err != nil {
		var de *schema.DetectionError
		if errors.As(err, &de) {
			return fmt.Errorf("resolve columns in %s: %w", cfg.Source.File.Path, de)
		}
		return fmt.Errorf("resolve columns: %w", err)
	}

	extractStart := time.Now()
	catalog, outcome := extract.Run(rws, cols, extract.Config{
		DefaultType:  schema.NormalizeType(cfg.Extract.DefaultType),
		ObjectMarker: cfg.Extract.ObjectMarker,
	})
	observeStage("extract", extractStart)

	metrics.IncCounter("rulegen_rows_total", float64(outcome.RowsRead), metrics.Labels{"kind": "read"})
	metrics.IncCounter("rulegen_rows_total", float64(len(outcome.Skips)), metrics.Labels{"kind": "skipped"})
	metrics.IncCounter("rulegen_rows_total", float64(outcome.ObjectRows), metrics.Labels{"kind": "object"})
	metrics.IncCounter("rulegen_fields_total", float64(outcome.Fields), nil)

	log.Printf("pipeline: extracted %d entities, %d fields (%d rows read, %d skipped, %d merged)",
		catalog.Len(), catalog.TotalFields(), outcome.RowsRead, len(outcome.Skips), outcome.Merged)

	genStart := time.Now()
	suite := testgen.NewGenerator(cfg.Generate.Seed).Generate(catalog)
	observeStage("generate", genStart)
	countCases(suite)

	if a := cfg.Generate.Assist; a != nil && r.Augment != nil {
		assistStart := time.Now()
		if err := r.Augment(ctx, a, catalog, suite); err != nil {
			log.Printf("pipeline: assist failed, continuing with generated suite: %v", err)
		}
		observeStage("assist", assistStart)
	}

	saveStart := time.Now()
	if cfg.Output.RulesPath != "" {
		if err := output.SaveRules(catalog, cfg.Output.RulesPath); err != nil {
			return err
		}
	}
	if err := output.SaveSuite(suite, cfg.Output.TestsPath); err != nil {
		return err
	}
	output.WriteSummary(suite, cfg.Output.TestsPath)
	observeStage("save", saveStart)

	r.sink(ctx, cfg, runID, catalog, suite)

	return nil
}

// parse dispatches on parser kind and returns the header row plus all data
// rows.
func (r *Runner) parse(ctx context.Context, cfg config.Pipeline) ([]string, []rows.Row, error) {
	path := cfg.Source.File.Path

	switch cfg.Parser.Kind {
	case "csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		// Collect closes f via StreamRows.
		return csvparser.Collect(ctx, f, cfg.Parser.Options, func(line int, err error) {
			log.Printf("pipeline: %s line %d: %v", path, line, err)
		})

	case "htmltable":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		selector := cfg.Parser.Options.String("selector", htmltable.DefaultSelector)
		return htmltable.ParseTable(string(b), selector)

	default:
		return nil, nil, fmt.Errorf("unsupported parser.kind=%q", cfg.Parser.Kind)
	}
}

// sink mirrors the artifacts into the configured repository. Best-effort:
// every failure is logged and the run continues.
func (r *Runner) sink(ctx context.Context, cfg config.Pipeline, runID string, cat *schema.Catalog, suite *testgen.Suite) {
	if cfg.Storage.Kind == "" || r.NewRepository == nil {
		return
	}

	start := time.Now()
	repo, err := r.NewRepository(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		log.Printf("pipeline: storage %s unavailable, artifacts are on disk: %v", cfg.Storage.Kind, err)
		return
	}
	defer repo.Close()

	if err := repo.EnsureTables(ctx); err != nil {
		log.Printf("pipeline: storage %s: %v", cfg.Storage.Kind, err)
		return
	}

	if n, err := repo.InsertFieldRules(ctx, storage.FlattenCatalog(cat)); err != nil {
		log.Printf("pipeline: storage %s: field rules after %d rows: %v", cfg.Storage.Kind, n, err)
	} else {
		log.Printf("pipeline: storage %s: wrote %d field rules", cfg.Storage.Kind, n)
	}

	if n, err := repo.InsertTestCases(ctx, storage.FlattenSuite(suite, runID)); err != nil {
		log.Printf("pipeline: storage %s: test cases after %d rows: %v", cfg.Storage.Kind, n, err)
	} else {
		log.Printf("pipeline: storage %s: wrote %d test cases", cfg.Storage.Kind, n)
	}

	observeStage("sink", start)
}

func observeStage(stage string, start time.Time) {
	metrics.ObserveHistogram("rulegen_stage_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"stage": stage})
}

func countCases(s *testgen.Suite) {
	var pass, fail float64
	for _, key := range s.Keys() {
		for _, tc := range s.Cases(key) {
			if tc.ExpectedResult == testgen.ResultPass {
				pass++
			} else {
				fail++
			}
		}
	}
	metrics.IncCounter("rulegen_cases_total", pass, metrics.Labels{"result": "pass"})
	metrics.IncCounter("rulegen_cases_total", fail, metrics.Labels{"result": "fail"})
}
