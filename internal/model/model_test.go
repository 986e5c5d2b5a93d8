package model

import "testing"

// --- NameToID Tests ---

func TestNameToID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Wheat", "wheat"},
		{"Green Chilli", "green-chilli"},
		{"New Delhi, Azadpur", "new-delhi-azadpur"},
		{"  Madhya Pradesh  ", "madhya-pradesh"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NameToID(tt.name); got != tt.want {
			t.Errorf("NameToID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSourceNameFallback(t *testing.T) {
	s := &Source{Name: "Agmarknet"}
	if got := s.SourceName(); got != "Agmarknet" {
		t.Errorf("SourceName() = %q", got)
	}
	s.Name = ""
	if got := s.SourceName(); got != "other" {
		t.Errorf("unnamed source should report %q, got %q", "other", got)
	}
}

// --- Validator Tests ---

func TestValidatePriceRecordClean(t *testing.T) {
	rec := PriceRecord{
		"cropName":   "Wheat",
		"mandiName":  "Vashi",
		"stateName":  "Maharashtra",
		"date":       "2024-02-01",
		"minPrice":   2000.0,
		"maxPrice":   2400.0,
		"modalPrice": 2250.0,
	}
	if problems := ValidatePriceRecord(rec); len(problems) != 0 {
		t.Errorf("clean record reported problems: %v", problems)
	}
}

func TestValidatePriceRecordMissingRequired(t *testing.T) {
	rec := PriceRecord{
		"cropName":   "Wheat",
		"modalPrice": 2250.0,
	}
	problems := ValidatePriceRecord(rec)
	if len(problems) != 3 {
		t.Fatalf("problems = %v, want one per missing required field", problems)
	}
}

func TestValidatePriceRecordPriceOrdering(t *testing.T) {
	rec := PriceRecord{
		"cropName":   "Wheat",
		"mandiName":  "Vashi",
		"stateName":  "Maharashtra",
		"date":       "2024-02-01",
		"minPrice":   2500.0,
		"maxPrice":   2000.0,
		"modalPrice": 2250.0,
	}
	problems := ValidatePriceRecord(rec)
	found := false
	for _, p := range problems {
		if p == "minPrice (2500) > maxPrice (2000)" {
			found = true
		}
	}
	if !found {
		t.Errorf("inverted min/max not reported, got %v", problems)
	}
}

func TestValidatePriceRecordNonNumericPrice(t *testing.T) {
	rec := PriceRecord{
		"cropName":   "Wheat",
		"mandiName":  "Vashi",
		"stateName":  "Maharashtra",
		"date":       "2024-02-01",
		"modalPrice": "N/A",
	}
	problems := ValidatePriceRecord(rec)
	if len(problems) == 0 {
		t.Error("non-numeric modalPrice should be reported")
	}
}

func TestValidateSchemaMapping(t *testing.T) {
	mapping := map[string]string{
		"Commodity":   "cropName",
		"Market":      "mandiName",
		"State":       "stateName",
		"Price Date":  "date",
		"Modal Price": "modalPrice",
	}
	if problems := ValidateSchemaMapping(mapping); len(problems) != 0 {
		t.Errorf("complete mapping reported problems: %v", problems)
	}
}

func TestValidateSchemaMappingBadTarget(t *testing.T) {
	mapping := map[string]string{
		"Commodity":   "cropName",
		"Market":      "mandiName",
		"State":       "stateName",
		"Price Date":  "date",
		"Modal Price": "modalPrice",
		"Sr No":       "serial",
	}
	problems := ValidateSchemaMapping(mapping)
	if len(problems) != 1 {
		t.Fatalf("problems = %v, want the unknown target only", problems)
	}
}

func TestValidateSchemaMappingMissingRequired(t *testing.T) {
	mapping := map[string]string{"Commodity": "cropName"}
	problems := ValidateSchemaMapping(mapping)
	if len(problems) != 4 {
		t.Errorf("problems = %v, want one per unmapped required field", problems)
	}
}
