// Package htmltable extracts header + rows from an HTML table, covering the
// "save as web page" export path of spreadsheet tools. The first matching
// table (or a configured selector) becomes the row source; everything else
// on the page is ignored.
package htmltable

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rulegen/internal/rows"
)

// DefaultSelector matches the first table on the page.
const DefaultSelector = "table"

// ParseTable parses html and returns the header row plus one rows.Row per
// <tr> under the selected table.
//
// Semantics:
//   - The header row is the first <tr> containing <th> cells, or the first
//     <tr> when no <th> exists.
//   - Header text is trimmed; empty headers keep their column but produce
//     no cells.
//   - A malformed row (fewer cells than headers) is not an error; missing
//     cells are simply absent, matching blank spreadsheet cells.
//
// Line numbers are 1-based table row indices, counting the header as row 1,
// so they line up with what a person sees in the exported sheet.
func ParseTable(html, selector string) ([]string, []rows.Row, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelector
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("no table matches selector %q", selector)
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, nil, fmt.Errorf("table has no rows")
	}

	headerIdx := 0
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.Find("th").Length() > 0 {
			headerIdx = i
			return false
		}
		return true
	})

	var headers []string
	trs.Eq(headerIdx).Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	if len(headers) == 0 {
		return nil, nil, fmt.Errorf("table header row is empty")
	}

	var out []rows.Row
	trs.Each(func(i int, tr *goquery.Selection) {
		if i <= headerIdx {
			return
		}
		cells := make(map[string]string, len(headers))
		tr.Find("td,th").Each(func(j int, cell *goquery.Selection) {
			if j >= len(headers) || headers[j] == "" {
				return
			}
			v := strings.TrimSpace(cell.Text())
			if v == "" {
				return
			}
			cells[headers[j]] = v
		})
		out = append(out, rows.Row{Line: i + 1, Cells: cells})
	})

	return headers, out, nil
}
