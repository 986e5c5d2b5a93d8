package scrape

import (
	"errors"
	"fmt"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/run"
)

// ErrNoExtractionConfig means the source has never been through discovery.
var ErrNoExtractionConfig = errors.New("no extraction type configured")

// Run executes a scrape for one source: dispatch on the stored extraction
// type, then normalize through the stored schema mapping. Returns normalized
// records ready for storage.
func Run(rc *run.Context, source *model.Source) ([]model.PriceRecord, error) {
	sourceID := ""
	if !source.ID.IsZero() {
		sourceID = source.ID.Hex()
	}
	rc.SourceID = sourceID
	rc.SourceURL = source.EntryURL

	if source.ExtractionType == "" {
		rc.AddError(source.EntryURL, ErrNoExtractionConfig, true)
		return nil, ErrNoExtractionConfig
	}

	logger.Info("scraping source", "url", source.EntryURL, "type", source.ExtractionType)

	var raw []model.PriceRecord
	switch source.ExtractionType {
	case model.ExtractionAPI:
		raw = ScrapeAPI(rc, source)
	case model.ExtractionHTMLTable:
		raw = ScrapeHTMLTable(rc, source)
	case model.ExtractionPDFExcel:
		raw = ScrapeFile(rc, source)
	default:
		err := fmt.Errorf("unknown extraction type: %s", source.ExtractionType)
		rc.AddError(source.EntryURL, err, true)
		return nil, err
	}

	rc.RecordsExtracted = len(raw)
	if len(raw) == 0 {
		rc.AddError(source.EntryURL, errors.New("scraper returned 0 records"), false)
		return nil, nil
	}

	normalized := Normalize(raw, source.SchemaMapping, source.Conversions,
		sourceID, source.SourceName())

	flagged := 0
	for _, rec := range normalized {
		if problems := model.ValidatePriceRecord(rec); len(problems) > 0 {
			if flagged == 0 {
				logger.Warn("record failed validation", "url", source.EntryURL, "problems", problems)
			}
			flagged++
		}
	}
	if flagged > 0 {
		logger.Warn("records with validation problems", "url", source.EntryURL, "count", flagged)
	}

	logger.Info("scrape complete",
		"url", source.EntryURL,
		"raw", len(raw),
		"normalized", len(normalized))

	return normalized, nil
}
