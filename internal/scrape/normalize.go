package scrape

import (
	"strconv"
	"strings"

	"github.com/mandipulse/mandipulse/internal/dateutil"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
)

// priceFields are coerced to float64 during normalization.
var priceFieldNames = []string{"minPrice", "maxPrice", "modalPrice"}

// Normalize applies a source's schema mapping and conversions to raw records
// and returns rows in the unified price schema. Raw fields without a mapping
// are dropped; records missing cropName or modalPrice are discarded. With no
// mapping at all the raw records pass through unchanged.
func Normalize(rawRecords []model.PriceRecord, schemaMapping map[string]string, conversions map[string]model.Conversion, sourceID, sourceName string) []model.PriceRecord {
	if len(schemaMapping) == 0 {
		logger.Warn("no schema mapping, returning raw records")
		return rawRecords
	}

	normalized := make([]model.PriceRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		record := model.PriceRecord{}

		for rawField, unifiedField := range schemaMapping {
			if value, ok := raw[rawField]; ok {
				record[unifiedField] = value
			}
		}

		applyConversions(record, conversions)
		normalizeDate(record)
		normalizePrices(record)
		normalizeArrival(record)

		if _, ok := record["unit"]; !ok {
			record["unit"] = model.DefaultUnit
		}
		if _, ok := record["source"]; !ok {
			if sourceName == "" {
				sourceName = "other"
			}
			record["source"] = sourceName
		}
		if sourceID != "" {
			record["sourceId"] = sourceID
		}

		deriveID(record, "cropId", "cropName")
		deriveID(record, "mandiId", "mandiName")
		deriveID(record, "stateId", "stateName")

		if hasValue(record, "cropName") && hasValue(record, "modalPrice") {
			normalized = append(normalized, record)
		}
	}

	logger.Info("normalization complete", "raw", len(rawRecords), "normalized", len(normalized))
	return normalized
}

func applyConversions(record model.PriceRecord, conversions map[string]model.Conversion) {
	for field, conv := range conversions {
		value, ok := record[field]
		if !ok {
			continue
		}

		if conv.Multiply != nil && value != nil {
			if f, ok := toFloat(value); ok {
				record[field] = f * *conv.Multiply
			}
		}

		if conv.DateFormat != "" && field == "date" {
			layout := dateutil.FromStrftime(conv.DateFormat)
			if t, ok := dateutil.ParseLayout(asString(record[field]), layout); ok {
				record[field] = dateutil.ToISO(t)
			}
		}
	}
}

// normalizeDate re-parses whatever is left in the date field so every
// surviving record carries an ISO date string.
func normalizeDate(record model.PriceRecord) {
	value, ok := record["date"]
	if !ok {
		return
	}
	if t, ok := dateutil.Parse(asString(value)); ok {
		record["date"] = dateutil.ToISO(t)
	}
}

// normalizePrices coerces price fields to float64, stripping thousands
// commas. Unparseable or empty values become 0.0.
func normalizePrices(record model.PriceRecord) {
	for _, field := range priceFieldNames {
		value, ok := record[field]
		if !ok {
			continue
		}
		if f, ok := toFloat(value); ok {
			record[field] = f
		} else {
			record[field] = 0.0
		}
	}
}

// normalizeArrival coerces arrival to float64 or nil; unlike prices there is
// no meaningful zero default.
func normalizeArrival(record model.PriceRecord) {
	value, ok := record["arrival"]
	if !ok {
		return
	}
	if f, ok := toFloat(value); ok {
		record["arrival"] = f
	} else {
		record["arrival"] = nil
	}
}

func deriveID(record model.PriceRecord, idField, nameField string) {
	if _, ok := record[idField]; ok {
		return
	}
	if name := asString(record[nameField]); name != "" {
		record[idField] = model.NameToID(name)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// hasValue reports a non-empty, non-zero field. modalPrice of 0.0 is treated
// as missing, matching the record filter semantics.
func hasValue(record model.PriceRecord, field string) bool {
	value, ok := record[field]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case float64:
		return v != 0
	}
	return true
}
