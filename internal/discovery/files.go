package discovery

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mandipulse/mandipulse/internal/queue"
	"github.com/mandipulse/mandipulse/internal/urlutil"
)

// FileCandidate is a downloadable tabular file link found during discovery.
type FileCandidate struct {
	URL       string  `json:"url"`
	Text      string  `json:"text"`
	Extension string  `json:"extension"`
	Score     float64 `json:"score"`
	PageURL   string  `json:"page_url,omitempty"`
}

var (
	datePattern    = regexp.MustCompile(`\d{2}[-/.]\d{2}[-/.]\d{4}`)
	recencyPattern = regexp.MustCompile(`daily|today|current|latest`)
)

// extensionScores prefers Excel over CSV over PDF: structured beats layout.
var extensionScores = map[string]float64{
	".xlsx": 0.15,
	".xls":  0.15,
	".csv":  0.1,
	".pdf":  0.05,
}

// DetectFiles finds downloadable file links in a page's HTML, deduped and
// sorted by score descending.
func DetectFiles(html, baseURL string) []FileCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var candidates []FileCandidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		absolute := urlutil.Resolve(href, baseURL)
		hrefLower := strings.ToLower(absolute)

		var extension string
		for _, ext := range urlutil.DownloadableExtensions {
			if strings.HasSuffix(hrefLower, ext) || strings.Contains(hrefLower, ext) {
				extension = ext
				break
			}
		}
		if extension == "" {
			return
		}

		if seen[absolute] {
			return
		}
		seen[absolute] = true

		text := strings.TrimSpace(s.Text())
		if len(text) > 200 {
			text = text[:200]
		}

		candidates = append(candidates, FileCandidate{
			URL:       absolute,
			Text:      text,
			Extension: extension,
			Score:     scoreFile(absolute, text, extension),
		})
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// scoreFile rates a file link on keywords, date-stamped names, and format.
func scoreFile(url, text, extension string) float64 {
	score := 0.0
	combined := strings.ToLower(url + " " + text)

	for _, kw := range queue.Level0Keywords {
		if strings.Contains(combined, kw) {
			score += 0.15
		}
	}

	if datePattern.MatchString(combined) {
		score += 0.1
	}
	if recencyPattern.MatchString(combined) {
		score += 0.1
	}

	score += extensionScores[extension]

	if score > 1.0 {
		score = 1.0
	}
	return score
}
