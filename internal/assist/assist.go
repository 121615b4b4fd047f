// Package assist augments a generated test suite with extra cases proposed
// by an LLM. The deterministic baseline never depends on this step: every
// proposal is validated before acceptance and any failure leaves the suite
// as generated.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"rulegen/internal/config"
	"rulegen/internal/schema"
	"rulegen/internal/testgen"
)

const defaultMaxPerField = 5

// proposal mirrors the JSON shape the model is asked to return.
type proposal struct {
	TestCase       string `json:"test_case"`
	Description    string `json:"description"`
	ExpectedResult string `json:"expected_result"`
	Input          any    `json:"input"`
}

// NewOpenAIModel builds a chat model from assist config. The API key is read
// from the environment variable named by APIKeyEnv; the config file never
// holds the key itself.
func NewOpenAIModel(ctx context.Context, cfg *config.Assist) (model.BaseChatModel, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("assist: env %s is empty", cfg.APIKeyEnv)
		}
	}
	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("assist: create chat model: %w", err)
	}
	return m, nil
}

// Augment asks the model for extra edge-case scenarios per field and appends
// the valid ones to the suite.
//
// Edge cases:
//   - A failed generation or unparseable response skips that field with a
//     log line; remaining fields still run.
//   - Proposals missing test_case/description or with an expected_result
//     other than Pass/Fail are dropped.
//   - Proposed identifiers are namespaced "<key>:assist_<n>" so they can
//     never collide with generated scenario identifiers.
//   - At most maxPerField proposals are accepted per field (<=0 means 5).
//
// Errors:
//   - Returns ctx.Err() if the context is cancelled between fields;
//     per-field model errors are logged, not returned.
func Augment(ctx context.Context, m model.BaseChatModel, cat *schema.Catalog, suite *testgen.Suite, maxPerField int) error {
	if maxPerField <= 0 {
		maxPerField = defaultMaxPerField
	}

	accepted := 0
	for _, entityName := range cat.Names() {
		e := cat.Entity(entityName)
		for _, fieldName := range e.FieldNames() {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := entityName + "." + fieldName
			r := e.Field(fieldName)

			resp, err := m.Generate(ctx, []*einoschema.Message{
				einoschema.UserMessage(fieldPrompt(key, r, maxPerField)),
			})
			if err != nil {
				log.Printf("assist: %s: generate failed: %v", key, err)
				continue
			}

			proposals, err := parseProposals(resp.Content)
			if err != nil {
				log.Printf("assist: %s: %v", key, err)
				continue
			}

			n := 0
			for _, p := range proposals {
				if n >= maxPerField {
					break
				}
				if p.TestCase == "" || p.Description == "" {
					continue
				}
				if p.ExpectedResult != testgen.ResultPass && p.ExpectedResult != testgen.ResultFail {
					continue
				}
				suite.Add(key, testgen.TestCase{
					TestCase:       fmt.Sprintf("%s:assist_%d", key, n+1),
					Description:    p.Description,
					ExpectedResult: p.ExpectedResult,
					Input:          p.Input,
					IsInput:        true,
				})
				n++
			}
			accepted += n
		}
	}

	log.Printf("assist: accepted %d augmented cases", accepted)
	return nil
}

func fieldPrompt(key string, r *schema.FieldRule, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are generating validation test cases for a data field.\n")
	fmt.Fprintf(&b, "Field: %s\nData type: %s\nMandatory: %t\nPrimary key: %t\n", key, r.DataType, r.Mandatory, r.PrimaryKey)
	if r.BusinessRules != "" {
		fmt.Fprintf(&b, "Business rules: %s\n", r.BusinessRules)
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(&b, "\nPropose up to %d additional edge-case test cases beyond the obvious valid/missing/wrong-type ones.\n", max)
	b.WriteString(`Respond with ONLY a JSON array, no prose, where each element is:
{"test_case": "<short name>", "description": "<what is being tested>", "expected_result": "Pass" or "Fail", "input": <the input value or null>}`)
	return b.String()
}

// parseProposals tolerates code-fenced responses, which chat models emit
// even when told not to.
func parseProposals(content string) ([]proposal, error) {
	jsonStr := strings.TrimSpace(content)
	jsonStr = strings.TrimPrefix(jsonStr, "```json")
	jsonStr = strings.TrimPrefix(jsonStr, "```")
	jsonStr = strings.TrimSuffix(jsonStr, "```")
	jsonStr = strings.TrimSpace(jsonStr)

	var out []proposal
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("parse proposals: %v", err)
	}
	return out, nil
}
