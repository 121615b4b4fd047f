// Package rows defines the tabular row model shared by the parsers and the
// rule extractor. A Row is one already-parsed spreadsheet line: a mapping
// from (trimmed) column header to cell text, tagged with its source line
// number for diagnostics.
package rows

import "strings"

// Row is one tabular input row. Cells maps column header to cell value;
// a missing key and an empty value are equivalent.
type Row struct {
	// Line is the 1-based line/row number in the source sheet, used only
	// for log context.
	Line int

	Cells map[string]string
}

// Cell returns the trimmed cell value for header, or "" when absent.
func (r Row) Cell(header string) string {
	v, ok := r.Cells[header]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Blank reports whether the cell for header is absent or whitespace-only.
func (r Row) Blank(header string) bool {
	return r.Cell(header) == ""
}
