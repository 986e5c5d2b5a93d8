package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSource checks a source configuration before it enters the
// pipeline. Returns human-readable problems; an empty slice means valid.
func ValidateSource(s *Source) []string {
	var problems []string

	if err := validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				problems = append(problems, fmt.Sprintf("field %s failed %q validation", fe.Field(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if s.ExtractionType == ExtractionHTMLTable && s.HTMLPageURL == "" && s.EntryURL == "" {
		problems = append(problems, "html_table extraction needs a page URL")
	}

	return problems
}

// ValidatePriceRecord checks a normalized record against the unified schema
// invariants. Violations are reported, not fatal.
func ValidatePriceRecord(rec PriceRecord) []string {
	var problems []string

	for _, field := range RequiredFields {
		val, ok := rec[field]
		if !ok || val == nil {
			problems = append(problems, "missing required field: "+field)
			continue
		}
		if s, isStr := val.(string); isStr && strings.TrimSpace(s) == "" {
			problems = append(problems, "missing required field: "+field)
		}
	}

	prices := map[string]float64{}
	for _, field := range []string{"minPrice", "maxPrice", "modalPrice"} {
		val, ok := rec[field]
		if !ok || val == nil {
			continue
		}
		num, err := toFloat(val)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be numeric: %v", field, val))
			continue
		}
		if num < 0 {
			problems = append(problems, fmt.Sprintf("%s cannot be negative: %v", field, val))
		}
		prices[field] = num
	}

	minP, maxP, modalP := prices["minPrice"], prices["maxPrice"], prices["modalPrice"]
	if minP != 0 && maxP != 0 && minP > maxP {
		problems = append(problems, fmt.Sprintf("minPrice (%v) > maxPrice (%v)", minP, maxP))
	}
	if modalP != 0 && maxP != 0 && modalP > maxP {
		problems = append(problems, fmt.Sprintf("modalPrice (%v) > maxPrice (%v)", modalP, maxP))
	}

	return problems
}

// ValidateSchemaMapping checks that every mapping target is a unified schema
// field and reports required fields left without a source mapping.
func ValidateSchemaMapping(mapping map[string]string) []string {
	var problems []string

	valid := make(map[string]bool, len(UnifiedFields)+1)
	for _, f := range UnifiedFields {
		valid[f] = true
	}
	valid["cropGroup"] = true

	mapped := make(map[string]bool, len(mapping))
	for rawField, target := range mapping {
		if !valid[target] {
			problems = append(problems, fmt.Sprintf("mapping target %q (from %q) is not a unified schema field", target, rawField))
		}
		mapped[target] = true
	}

	for _, required := range RequiredFields {
		if !mapped[required] {
			problems = append(problems, fmt.Sprintf("required field %q has no source mapping", required))
		}
	}

	return problems
}

func toFloat(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("not numeric: %T", val)
	}
}
