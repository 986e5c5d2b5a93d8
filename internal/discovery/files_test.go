package discovery

import "testing"

// --- File Detector Tests ---

const fileLinksHTML = `
<body>
  <a href="/reports/mandi-prices-01-02-2024.xlsx">Daily Mandi Price Report</a>
  <a href="/reports/mandi-prices-01-02-2024.xlsx">Duplicate link</a>
  <a href="/docs/annual-report.pdf">Annual Report</a>
  <a href="/about">About us</a>
  <a href="/exports/rates.csv?day=today">Today's rates CSV</a>
</body>`

func TestDetectFilesFindsDownloadables(t *testing.T) {
	candidates := DetectFiles(fileLinksHTML, "https://example.gov.in")
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3 (deduped): %+v", len(candidates), candidates)
	}
	for _, c := range candidates {
		if c.Extension == "" {
			t.Errorf("candidate without extension: %+v", c)
		}
	}
}

func TestDetectFilesSortedByScore(t *testing.T) {
	candidates := DetectFiles(fileLinksHTML, "https://example.gov.in")
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Fatalf("not sorted by score: %+v", candidates)
		}
	}
	// The date-stamped Excel price report should win.
	if candidates[0].Extension != ".xlsx" {
		t.Errorf("best candidate = %+v", candidates[0])
	}
}

func TestDetectFilesResolvesRelative(t *testing.T) {
	candidates := DetectFiles(`<a href="daily.pdf">Daily</a>`, "https://example.gov.in/reports/")
	if len(candidates) != 1 {
		t.Fatal("relative file link missed")
	}
	if candidates[0].URL != "https://example.gov.in/reports/daily.pdf" {
		t.Errorf("URL = %q", candidates[0].URL)
	}
}

// --- File Scoring Tests ---

func TestScoreFilePrefersExcel(t *testing.T) {
	xlsx := scoreFile("https://a.in/report.xlsx", "report", ".xlsx")
	pdf := scoreFile("https://a.in/report.pdf", "report", ".pdf")
	if xlsx <= pdf {
		t.Errorf("xlsx %.2f should outscore pdf %.2f", xlsx, pdf)
	}
}

func TestScoreFileDateAndRecencyBonus(t *testing.T) {
	plain := scoreFile("https://a.in/list.csv", "list", ".csv")
	dated := scoreFile("https://a.in/list-01-02-2024.csv", "today's list", ".csv")
	if dated <= plain {
		t.Errorf("date/recency bonus missing: %.2f vs %.2f", dated, plain)
	}
}

func TestScoreFileCapsAtOne(t *testing.T) {
	s := scoreFile(
		"https://a.in/api/mandi-market-price-rate-report-01-02-2024.xlsx",
		"daily commodity apmc arrivals",
		".xlsx")
	if s > 1.0 {
		t.Errorf("score %.2f exceeds 1.0", s)
	}
}
