package config

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path points into the config document
// (dotted), Message explains the problem.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func errIssue(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)}
}

func warnIssue(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)}
}

// ValidatePipeline checks a pipeline config for structural problems.
// Errors make the config unusable; warnings are advisory.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if p.Source.Kind != "file" || p.Source.File == nil || p.Source.File.Path == "" {
		issues = append(issues, errIssue("source", "source.kind=file and source.file.path are required"))
	}

	switch p.Parser.Kind {
	case "csv", "htmltable":
	case "":
		issues = append(issues, errIssue("parser.kind", "parser.kind must be set (csv or htmltable)"))
	default:
		issues = append(issues, errIssue("parser.kind", "unsupported parser.kind=%q", p.Parser.Kind))
	}

	if p.Output.TestsPath == "" {
		issues = append(issues, errIssue("output.tests_path", "output.tests_path is required"))
	}
	if p.Output.RulesPath == "" {
		issues = append(issues, warnIssue("output.rules_path", "rules artifact disabled (no path set)"))
	}

	switch p.Storage.Kind {
	case "", "sqlite", "postgres", "mssql":
	default:
		issues = append(issues, errIssue("storage.kind", "unsupported storage.kind=%q", p.Storage.Kind))
	}
	if p.Storage.Kind != "" && p.Storage.DSN == "" {
		issues = append(issues, errIssue("storage.dsn", "storage.dsn is required when storage.kind is set"))
	}

	if a := p.Generate.Assist; a != nil {
		if a.Model == "" {
			issues = append(issues, errIssue("generate.assist.model", "assist.model is required"))
		}
		if a.APIKeyEnv == "" {
			issues = append(issues, warnIssue("generate.assist.api_key_env", "no api_key_env set; assist will run unauthenticated"))
		}
	}

	return issues
}
