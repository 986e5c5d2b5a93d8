package scrape

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/xuri/excelize/v2"
)

// --- File Scraper Tests ---

func TestRowsToRecords(t *testing.T) {
	rows := [][]string{
		{"Commodity", "", "Modal Price"},
		{"Wheat", "Vashi", "2250"},
		{"", "", ""},
		{"Onion", "Lasalgaon", "1500"},
	}

	records := rowsToRecords(rows)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (all-empty row dropped)", len(records))
	}
	if records[0]["Commodity"] != "Wheat" {
		t.Errorf("first record = %v", records[0])
	}
	if records[0]["col_1"] != "Vashi" {
		t.Errorf("empty header should fall back to col_1, got %v", records[0])
	}
}

func TestRowsToRecordsNeedsHeaderAndData(t *testing.T) {
	if got := rowsToRecords([][]string{{"only", "header"}}); got != nil {
		t.Errorf("rowsToRecords = %v, want nil for header-only input", got)
	}
	if got := rowsToRecords(nil); got != nil {
		t.Errorf("rowsToRecords(nil) = %v, want nil", got)
	}
}

func TestExtractCSVUTF8(t *testing.T) {
	csvData := []byte("commodity,modal\nWheat,2250\nOnion,1500\n")

	records, err := extractCSV(csvData)
	if err != nil {
		t.Fatalf("extractCSV: %v", err)
	}
	if len(records) != 2 || records[0]["commodity"] != "Wheat" {
		t.Errorf("records = %v", records)
	}
}

func TestExtractCSVLatin1(t *testing.T) {
	// "Bajra" with a Latin-1 é byte (0xE9), invalid as UTF-8.
	csvData := []byte("commodity,modal\nBajr\xe9,2000\n")

	records, err := extractCSV(csvData)
	if err != nil {
		t.Fatalf("extractCSV: %v", err)
	}
	if len(records) != 1 || records[0]["commodity"] != "Bajré" {
		t.Errorf("records = %v, want Latin-1 decoded name", records)
	}
}

func TestExtractExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"commodity", "modal"})
	f.SetSheetRow(sheet, "A2", &[]any{"Wheat", "2250"})
	f.SetSheetRow(sheet, "A3", &[]any{"Onion", "1500"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("building workbook: %v", err)
	}

	records, err := extractExcel(buf.Bytes())
	if err != nil {
		t.Fatalf("extractExcel: %v", err)
	}
	if len(records) != 2 || records[1]["commodity"] != "Onion" {
		t.Errorf("records = %v", records)
	}
}

func TestDetectFileType(t *testing.T) {
	cases := map[string]string{
		"https://a.in/report.pdf":    "pdf",
		"https://a.in/daily.XLSX":    "excel",
		"https://a.in/prices.xls":    "excel",
		"https://a.in/data.csv":      "csv",
		"https://a.in/page.html":     "",
		"https://a.in/download?id=1": "",
	}
	for url, want := range cases {
		if got := detectFileType(url); got != want {
			t.Errorf("detectFileType(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestScrapeFileDownloadsCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("commodity,modal\nWheat,2250\n"))
	}))
	defer srv.Close()

	src := &model.Source{
		EntryURL: srv.URL,
		FileURL:  srv.URL + "/daily.csv",
		FileType: "csv",
	}

	records := ScrapeFile(testRunContext(), src)
	if len(records) != 1 || records[0]["modal"] != "2250" {
		t.Errorf("records = %v", records)
	}
}

// fixedPagesExtractor serves canned per-page rows in place of PDF parsing.
type fixedPagesExtractor struct {
	pages [][][]string
}

func (f fixedPagesExtractor) ExtractRows(_ []byte) ([][][]string, error) {
	return f.pages, nil
}

func TestScrapeFilePDFKeepsPerPageHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 stub"))
	}))
	defer srv.Close()

	old := DefaultTableExtractor
	DefaultTableExtractor = fixedPagesExtractor{pages: [][][]string{
		{
			{"Commodity", "Market", "Modal Price"},
			{"Wheat", "Vashi", "2250"},
			{"Onion", "Lasalgaon", "1400"},
		},
		{
			{"Commodity", "Market", "Modal Price"},
			{"Bajra", "Pune", "1900"},
		},
	}}
	defer func() { DefaultTableExtractor = old }()

	src := &model.Source{
		EntryURL: srv.URL,
		FileURL:  srv.URL + "/daily.pdf",
		FileType: "pdf",
	}

	records := ScrapeFile(testRunContext(), src)

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (headers on both pages dropped)", len(records))
	}
	for _, rec := range records {
		if rec["Commodity"] == "Commodity" {
			t.Errorf("repeated page header ingested as data: %v", rec)
		}
	}
	if records[2]["Commodity"] != "Bajra" || records[2]["Modal Price"] != "1900" {
		t.Errorf("second-page record = %v, want keyed by its own header", records[2])
	}
}

func TestScrapeFileUnknownType(t *testing.T) {
	rc := testRunContext()
	src := &model.Source{
		EntryURL: "https://a.in",
		FileURL:  "https://a.in/download?id=1",
	}

	records := ScrapeFile(rc, src)
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	if len(rc.Errors) != 1 {
		t.Errorf("errors = %v, want the undetectable-type error", rc.Errors)
	}
}
