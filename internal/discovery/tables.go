package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// priceColumnKeywords suggest a column belongs to a price table.
var priceColumnKeywords = []string{
	"price", "rate", "modal", "min", "max",
	"commodity", "crop", "variety",
	"mandi", "market", "apmc",
	"state", "district",
	"arrival", "quantity",
	"date", "unit",
}

// TableCandidate is a scored HTML table found during discovery.
type TableCandidate struct {
	Selector   string     `json:"selector"`
	Headers    []string   `json:"headers"`
	RowCount   int        `json:"row_count"`
	Score      float64    `json:"score"`
	SampleRows [][]string `json:"sample_rows"`
	PageURL    string     `json:"page_url,omitempty"`
}

// DetectTables finds and scores the tables in a page's HTML, sorted by
// score descending. Tiny tables (fewer than 2 rows or 3 columns) are
// treated as layout and skipped.
func DetectTables(html string) []TableCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var candidates []TableCandidate

	doc.Find("table").Each(func(idx int, table *goquery.Selection) {
		headers := tableHeaders(table)
		rows := table.Find("tr")
		rowCount := rows.Length()

		if rowCount < 2 || len(headers) < 3 {
			return
		}

		var sampleRows [][]string
		rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
			if i >= 5 {
				return false
			}
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				text := strings.TrimSpace(cell.Text())
				if len(text) > 100 {
					text = text[:100]
				}
				cells = append(cells, text)
			})
			sampleRows = append(sampleRows, cells)
			return true
		})
		if len(sampleRows) > 3 {
			sampleRows = sampleRows[:3]
		}

		candidates = append(candidates, TableCandidate{
			Selector:   tableSelector(table, idx),
			Headers:    headers,
			RowCount:   rowCount,
			Score:      scoreTable(headers, rowCount),
			SampleRows: sampleRows,
		})
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// tableHeaders pulls header texts from thead cells, falling back to the
// first row.
func tableHeaders(table *goquery.Selection) []string {
	cells := table.Find("thead th, thead td")
	if cells.Length() == 0 {
		cells = table.Find("tr").First().Find("th, td")
	}
	var headers []string
	cells.Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	return headers
}

// tableSelector builds a CSS selector reaching this table: id, then first
// class, then positional fallback.
func tableSelector(table *goquery.Selection, idx int) string {
	if id, ok := table.Attr("id"); ok && id != "" {
		return "table#" + id
	}
	if class, ok := table.Attr("class"); ok && class != "" {
		first := strings.Fields(class)
		if len(first) > 0 {
			return "table." + first[0]
		}
	}
	return fmt.Sprintf("table:nth-of-type(%d)", idx+1)
}

// scoreTable rates how price-shaped a table looks: header keyword matches
// dominate, with bonuses for row volume, a plausible column count, and
// having both a price column and a commodity/market column.
func scoreTable(headers []string, rowCount int) float64 {
	score := 0.0

	matched := 0
	for _, header := range headers {
		h := strings.ToLower(header)
		for _, kw := range priceColumnKeywords {
			if strings.Contains(h, kw) {
				matched++
				break
			}
		}
	}
	if len(headers) > 0 {
		score += float64(matched) / float64(len(headers)) * 0.6
	}

	switch {
	case rowCount >= 10:
		score += 0.2
	case rowCount >= 5:
		score += 0.1
	}

	cols := len(headers)
	switch {
	case cols >= 5 && cols <= 15:
		score += 0.1
	case cols > 15:
		score += 0.05
	}

	headerText := strings.ToLower(strings.Join(headers, " "))
	hasPrice := strings.Contains(headerText, "price") ||
		strings.Contains(headerText, "rate") ||
		strings.Contains(headerText, "modal")
	hasEntity := strings.Contains(headerText, "commodity") ||
		strings.Contains(headerText, "crop") ||
		strings.Contains(headerText, "mandi") ||
		strings.Contains(headerText, "market")
	if hasPrice && hasEntity {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
