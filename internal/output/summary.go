package output

import (
	"fmt"
	"log"
	"os"
	"strings"

	"rulegen/internal/testgen"
)

// Summary renders the post-run generation summary: totals, pass/fail
// split, average cases per field.
func Summary(s *testgen.Suite, jsonPath string) string {
	total := s.TotalCases()
	passes := 0
	for _, key := range s.Keys() {
		for _, tc := range s.Cases(key) {
			if tc.ExpectedResult == testgen.ResultPass {
				passes++
			}
		}
	}

	var b strings.Builder
	rule := strings.Repeat("=", 30)
	fmt.Fprintf(&b, "Test Case Generation Summary\n%s\n", rule)
	fmt.Fprintf(&b, "Total fields processed: %d\n", s.Len())
	fmt.Fprintf(&b, "Total test cases generated: %d\n", total)
	if total > 0 {
		fails := total - passes
		fmt.Fprintf(&b, "  - Pass test cases: %d (%.1f%%)\n", passes, float64(passes)/float64(total)*100)
		fmt.Fprintf(&b, "  - Fail test cases: %d (%.1f%%)\n", fails, float64(fails)/float64(total)*100)
	}
	if s.Len() > 0 {
		fmt.Fprintf(&b, "Average test cases per field: %.2f\n", float64(total)/float64(s.Len()))
	}
	fmt.Fprintf(&b, "Output file: %s\n%s", jsonPath, rule)
	return b.String()
}

// WriteSummary logs the summary and writes it next to the JSON artifact as
// "<base>_summary.txt". The file write is best-effort.
func WriteSummary(s *testgen.Suite, jsonPath string) {
	text := Summary(s, jsonPath)
	log.Printf("output:\n%s", text)

	path := replaceExt(jsonPath, "") + "_summary.txt"
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		log.Printf("output: summary file %s failed: %v", path, err)
		return
	}
	log.Printf("output: summary written to %s", path)
}
