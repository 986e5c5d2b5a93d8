package queue

import "testing"

// --- Scoring Tests ---

func TestScoreLevel0Keywords(t *testing.T) {
	for _, u := range []string{
		"https://example.gov.in/api/v1/data",
		"https://example.gov.in/mandi-rates",
		"https://example.gov.in/commodity?state=mh",
		"https://example.gov.in/PriceReport.aspx",
	} {
		if got := Score(u); got != 0 {
			t.Errorf("Score(%q) = %d, want 0", u, got)
		}
	}
}

func TestScoreLevel1Keywords(t *testing.T) {
	for _, u := range []string{
		"https://example.gov.in/daily-bulletin",
		"https://example.gov.in/wholesale",
		"https://example.gov.in/news?view=today",
	} {
		if got := Score(u); got != 1 {
			t.Errorf("Score(%q) = %d, want 1", u, got)
		}
	}
}

func TestScoreLevel3Keywords(t *testing.T) {
	for _, u := range []string{
		"https://example.gov.in/archive/2020",
		"https://example.gov.in/downloads",
		"https://example.gov.in/yearly-summary",
	} {
		if got := Score(u); got != 3 {
			t.Errorf("Score(%q) = %d, want 3", u, got)
		}
	}
}

func TestScoreDefaultsToLevel2(t *testing.T) {
	if got := Score("https://example.gov.in/about-us"); got != 2 {
		t.Errorf("Score() = %d, want 2", got)
	}
}

func TestScoreTierPrecedence(t *testing.T) {
	// A URL matching both tiers takes the stronger one.
	if got := Score("https://example.gov.in/daily-price-archive"); got != 0 {
		t.Errorf("Score() = %d, want 0 (level 0 beats 1 and 3)", got)
	}
}

func TestScoreIgnoresHost(t *testing.T) {
	// Keywords in the hostname alone do not score.
	if got := Score("https://market.example.gov.in/contact"); got != 2 {
		t.Errorf("Score() = %d, want 2", got)
	}
}

// --- ScoreDetails Tests ---

func TestScoreDetailsReportsMatches(t *testing.T) {
	d := ScoreDetails("https://example.gov.in/mandi-price")
	if d.Level != 0 {
		t.Fatalf("Level = %d, want 0", d.Level)
	}
	if len(d.MatchedKeywords) == 0 {
		t.Error("no matched keywords reported")
	}
}

func TestScoreDetailsDefault(t *testing.T) {
	d := ScoreDetails("https://example.gov.in/about")
	if d.Level != 2 || len(d.MatchedKeywords) != 0 {
		t.Errorf("ScoreDetails = %+v, want level 2 and no matches", d)
	}
}
