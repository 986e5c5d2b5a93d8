package queue

import (
	"net/url"
	"strings"
)

// Keyword tiers for URL priority scoring. Matched against the lowercased
// path and query string.
var (
	// Level0Keywords mark critical URLs. The sniffer and file detector
	// reuse them for relevance scoring.
	Level0Keywords = []string{
		"api", "mandi", "price", "rate", "report",
		"commodity", "market", "apmc", "agmarknet", "arrivals",
	}
	level1Keywords = []string{
		"market-watch", "daily", "bulletin", "rates-today", "today",
		"current", "latest", "live", "wholesale", "retail",
	}
	level3Keywords = []string{
		"archive", "download", "old", "history",
		"previous", "past", "annual", "yearly",
	}
)

// Score assigns a priority level to a URL:
//
//	0 = critical (price/market pages, API paths)
//	1 = high probability (daily rates, bulletins)
//	2 = normal internal link (default)
//	3 = deep crawl (archives, downloads)
func Score(rawURL string) int {
	text := searchText(rawURL)

	for _, kw := range Level0Keywords {
		if strings.Contains(text, kw) {
			return 0
		}
	}
	for _, kw := range level1Keywords {
		if strings.Contains(text, kw) {
			return 1
		}
	}
	for _, kw := range level3Keywords {
		if strings.Contains(text, kw) {
			return 3
		}
	}
	return 2
}

// ScoreDetail reports the level a URL scored and the keywords that matched,
// for logging and oracle context.
type ScoreDetail struct {
	URL             string   `json:"url"`
	Level           int      `json:"level"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// ScoreDetails scores a URL and records every keyword that contributed.
func ScoreDetails(rawURL string) ScoreDetail {
	text := searchText(rawURL)
	detail := ScoreDetail{URL: rawURL, Level: 2}

	for _, kw := range Level0Keywords {
		if strings.Contains(text, kw) {
			detail.MatchedKeywords = append(detail.MatchedKeywords, kw)
			detail.Level = 0
		}
	}
	if detail.Level > 0 {
		for _, kw := range level1Keywords {
			if strings.Contains(text, kw) {
				detail.MatchedKeywords = append(detail.MatchedKeywords, kw)
				detail.Level = 1
			}
		}
	}
	if detail.Level > 1 {
		for _, kw := range level3Keywords {
			if strings.Contains(text, kw) {
				detail.MatchedKeywords = append(detail.MatchedKeywords, kw)
				detail.Level = 3
			}
		}
	}
	return detail
}

func searchText(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Path + " " + u.RawQuery)
}
