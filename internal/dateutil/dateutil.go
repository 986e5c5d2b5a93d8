// Package dateutil parses the date formats Indian price portals publish
// and converts them to ISO 8601 for the unified schema.
package dateutil

import (
	"strings"
	"time"
)

// indianLayouts are tried in order when parsing portal dates.
var indianLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"2006-01-02",
	"02.01.2006",
	"02-01-06",
	"02/01/06",
}

// Parse parses a date string against the known portal layouts, then falls
// back to ISO 8601 with a time component. Returns the zero time and false
// when nothing matches.
func Parse(value string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range indianLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// ParseLayout parses value against a single layout. The layout may be a Go
// reference layout or an strftime pattern (the mapping oracle emits
// strftime, e.g. "%d-%m-%Y").
func ParseLayout(value, layout string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if text == "" || layout == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(FromStrftime(layout), text)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FromStrftime translates an strftime pattern to a Go time layout. Patterns
// without '%' are assumed to already be Go layouts and pass through.
func FromStrftime(pattern string) string {
	if !strings.Contains(pattern, "%") {
		return pattern
	}
	r := strings.NewReplacer(
		"%d", "02",
		"%m", "01",
		"%Y", "2006",
		"%y", "06",
		"%b", "Jan",
		"%B", "January",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%%", "%",
	)
	return r.Replace(pattern)
}

// ToISO formats a time as YYYY-MM-DD. Zero times yield an empty string.
func ToISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Today returns today's date in UTC as YYYY-MM-DD.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// IsRecent reports whether t falls within the last h hours.
func IsRecent(t time.Time, h int) bool {
	return time.Since(t) < time.Duration(h)*time.Hour
}
