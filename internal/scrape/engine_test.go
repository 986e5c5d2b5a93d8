package scrape

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mandipulse/mandipulse/internal/model"
)

// --- Scrape Engine Tests ---

func TestRunRequiresExtractionConfig(t *testing.T) {
	rc := testRunContext()
	src := &model.Source{EntryURL: "https://a.in"}

	_, err := Run(rc, src)
	if !errors.Is(err, ErrNoExtractionConfig) {
		t.Errorf("err = %v, want ErrNoExtractionConfig", err)
	}
	if rc.Success() {
		t.Error("missing config should be a fatal run error")
	}
}

func TestRunRejectsUnknownType(t *testing.T) {
	rc := testRunContext()
	src := &model.Source{EntryURL: "https://a.in", ExtractionType: "rss"}

	if _, err := Run(rc, src); err == nil {
		t.Error("expected error for unknown extraction type")
	}
	if rc.Success() {
		t.Error("unknown type should be a fatal run error")
	}
}

func TestRunScrapesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(priceTableHTML))
	}))
	defer srv.Close()

	src := &model.Source{
		EntryURL:       srv.URL,
		Name:           "test portal",
		ExtractionType: model.ExtractionHTMLTable,
		HTMLPageURL:    srv.URL,
		HTMLSelector:   "table#prices",
		SchemaMapping: map[string]string{
			"Commodity":   "cropName",
			"Market":      "mandiName",
			"Modal Price": "modalPrice",
		},
	}

	rc := testRunContext()
	records, err := Run(rc, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rc.RecordsExtracted != 2 {
		t.Errorf("RecordsExtracted = %d, want 2", rc.RecordsExtracted)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0]["cropName"] != "Wheat" || records[0]["modalPrice"] != 2250.0 {
		t.Errorf("first record = %v", records[0])
	}
	if records[0]["source"] != "test portal" {
		t.Errorf("source = %v", records[0]["source"])
	}
}

func TestRunZeroRecordsIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := &model.Source{
		EntryURL:       srv.URL,
		ExtractionType: model.ExtractionAPI,
		Endpoint:       srv.URL,
	}

	rc := testRunContext()
	records, err := Run(rc, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	if !rc.Success() {
		t.Error("zero records should not be fatal")
	}
}
