// Package config defines the pipeline configuration decoded from the JSON
// file passed to the rulegen binary, plus validation over it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline is the top-level run configuration.
type Pipeline struct {
	Job      string   `json:"job"`
	Source   Source   `json:"source"`
	Parser   Parser   `json:"parser"`
	Extract  Extract  `json:"extract"`
	Generate Generate `json:"generate"`
	Output   Output   `json:"output"`
	Storage  Storage  `json:"storage"`
}

// Source describes where the tabular sheet export comes from.
type Source struct {
	Kind string      `json:"kind"` // "file"
	File *FileSource `json:"file,omitempty"`
}

type FileSource struct {
	Path string `json:"path"`
}

// Parser selects the row source and its options.
type Parser struct {
	// Kind: "csv" | "htmltable"
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Extract carries the extractor defaults. Defaults are explicit config, not
// ambient state, so tests can vary them.
type Extract struct {
	// DefaultType is the data type assumed for blank/unparseable type
	// cells. Empty means "String".
	DefaultType string `json:"default_type"`

	// ObjectMarker is the data-type cell value that marks an entity-level
	// annotation row. Empty means "object".
	ObjectMarker string `json:"object_marker"`
}

// Generate controls test-case generation.
type Generate struct {
	// Seed fixes the synthesizer PRNG so repeated runs over unchanged
	// rules produce identical artifacts.
	Seed int64 `json:"seed"`

	Assist *Assist `json:"assist,omitempty"`
}

// Assist configures the optional LLM augmentation step. The deterministic
// baseline never depends on it.
type Assist struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`

	// APIKeyEnv names the environment variable holding the key; the key
	// itself never lives in the config file.
	APIKeyEnv string `json:"api_key_env"`

	// MaxPerField caps accepted augmented cases per field. <=0 means 5.
	MaxPerField int `json:"max_per_field"`
}

// Output names the durable artifacts.
type Output struct {
	RulesPath string `json:"rules_path"`
	TestsPath string `json:"tests_path"`
}

// Storage configures the optional relational sink. Empty Kind disables it.
type Storage struct {
	// Kind: "sqlite" | "postgres" | "mssql"
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Load reads and decodes a pipeline config file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}
