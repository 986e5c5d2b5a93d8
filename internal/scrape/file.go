package scrape

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
	"github.com/ledongthuc/pdf"
	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/run"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const fileTimeout = 60 * time.Second

// TableExtractor pulls tabular rows out of a PDF document, grouped per
// page so each page keeps its own header row. The default uses
// text-position grouping; sources with image-only PDFs need an OCR-backed
// implementation.
type TableExtractor interface {
	ExtractRows(content []byte) ([][][]string, error)
}

// DefaultTableExtractor is used by ScrapeFile for PDF content.
var DefaultTableExtractor TableExtractor = positionExtractor{}

// ScrapeFile downloads a PDF, Excel, or CSV file and extracts its rows as
// header-keyed dicts. The file type is taken from the source config or
// detected from the URL.
func ScrapeFile(rc *run.Context, source *model.Source) []model.PriceRecord {
	fileURL := source.FileURL
	if fileURL == "" {
		rc.AddError(source.EntryURL, fmt.Errorf("no file URL configured"), false)
		return nil
	}

	fileType := source.FileType
	if fileType == "" {
		fileType = detectFileType(fileURL)
	}
	if fileType == "" {
		rc.AddError(fileURL, fmt.Errorf("cannot determine file type"), false)
		return nil
	}

	content, err := downloadFile(fileURL)
	if err != nil {
		rc.AddError(fileURL, fmt.Errorf("download error: %w", err), false)
		return nil
	}

	var records []model.PriceRecord
	switch fileType {
	case "pdf":
		records, err = extractPDF(content)
	case "excel":
		records, err = extractExcel(content)
	case "csv":
		records, err = extractCSV(content)
	default:
		err = fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		rc.AddError(fileURL, err, false)
		return nil
	}

	logger.Info("file scrape complete", "url", fileURL, "type", fileType, "records", len(records))
	return records
}

func detectFileType(fileURL string) string {
	u := strings.ToLower(fileURL)
	switch {
	case strings.HasSuffix(u, ".pdf"):
		return "pdf"
	case strings.HasSuffix(u, ".xlsx"), strings.HasSuffix(u, ".xls"):
		return "excel"
	case strings.HasSuffix(u, ".csv"):
		return "csv"
	}
	return ""
}

func downloadFile(fileURL string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(browser.DefaultUserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(fileTimeout)

	var content []byte
	c.OnResponse(func(r *colly.Response) {
		content = r.Body
	})

	if err := c.Visit(fileURL); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return content, nil
}

// rowsToRecords turns a header row plus data rows into dicts. Empty header
// cells get positional col_i names; rows with no non-empty cell are dropped.
func rowsToRecords(rows [][]string) []model.PriceRecord {
	if len(rows) < 2 {
		return nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("col_%d", i)
		}
		headers[i] = h
	}

	var records []model.PriceRecord
	for _, row := range rows[1:] {
		record := model.PriceRecord{}
		blank := true
		for i, cell := range row {
			if i >= len(headers) {
				break
			}
			value := strings.TrimSpace(cell)
			record[headers[i]] = value
			if value != "" {
				blank = false
			}
		}
		if !blank {
			records = append(records, record)
		}
	}
	return records
}

func extractExcel(content []byte) ([]model.PriceRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rowsToRecords(rows), nil
}

func extractCSV(content []byte) ([]model.PriceRecord, error) {
	decoded, err := decodeText(content)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return rowsToRecords(rows), nil
}

// decodeText tries UTF-8 first, then the single-byte encodings government
// portals commonly serve.
func decodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		if decoded, err := cm.NewDecoder().Bytes(content); err == nil {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("cannot decode with known encodings")
}

// extractPDF builds records page by page. Mandi PDFs repeat the header on
// every page, so each page's first row is its header, never a data record.
func extractPDF(content []byte) ([]model.PriceRecord, error) {
	pages, err := DefaultTableExtractor.ExtractRows(content)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction error: %w", err)
	}

	var records []model.PriceRecord
	for _, rows := range pages {
		records = append(records, rowsToRecords(rows)...)
	}
	return records, nil
}

// positionExtractor recovers table rows from PDF text by grouping glyphs
// with the same vertical position into one row, left to right.
type positionExtractor struct{}

func (positionExtractor) ExtractRows(content []byte) ([][][]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var pages [][][]string
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		if rows := pageRows(page.Content().Text); len(rows) > 0 {
			pages = append(pages, rows)
		}
	}
	return pages, nil
}

// pageRows groups positioned text fragments into rows by Y coordinate and
// splits each row into cells on gaps wider than one character.
func pageRows(texts []pdf.Text) [][]string {
	if len(texts) == 0 {
		return nil
	}

	byLine := map[int][]pdf.Text{}
	var ys []int
	for _, t := range texts {
		y := int(t.Y + 0.5)
		if _, seen := byLine[y]; !seen {
			ys = append(ys, y)
		}
		byLine[y] = append(byLine[y], t)
	}
	// PDF Y grows upward; top lines first.
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var rows [][]string
	for _, y := range ys {
		line := byLine[y]
		sort.Slice(line, func(i, j int) bool { return line[i].X < line[j].X })

		var cells []string
		var cell strings.Builder
		prevEnd := -1.0
		for _, t := range line {
			if prevEnd >= 0 && t.X-prevEnd > t.FontSize {
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			}
			cell.WriteString(t.S)
			prevEnd = t.X + t.W
		}
		if cell.Len() > 0 {
			cells = append(cells, strings.TrimSpace(cell.String()))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}
