package urlutil

import "testing"

// --- Normalize Tests ---

func TestNormalizeStripsFragmentAndTrailingSlash(t *testing.T) {
	got := Normalize("https://Example.COM/prices/#section")
	want := "https://example.com/prices"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeDropsDefaultPorts(t *testing.T) {
	if got := Normalize("https://example.com:443/a"); got != "https://example.com/a" {
		t.Errorf("default https port kept: %q", got)
	}
	if got := Normalize("http://example.com:80/a"); got != "http://example.com/a" {
		t.Errorf("default http port kept: %q", got)
	}
	if got := Normalize("http://example.com:8080/a"); got != "http://example.com:8080/a" {
		t.Errorf("non-default port dropped: %q", got)
	}
}

func TestNormalizeKeepsQuery(t *testing.T) {
	got := Normalize("https://example.com/prices/?commodity=wheat")
	want := "https://example.com/prices?commodity=wheat"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeBarePathBecomesRoot(t *testing.T) {
	if got := Normalize("https://example.com"); got != "https://example.com/" {
		t.Errorf("Normalize() = %q, want root path", got)
	}
}

// --- Domain Tests ---

func TestBaseURL(t *testing.T) {
	got := BaseURL("https://agmarknet.gov.in/foo/bar?x=1")
	if got != "https://agmarknet.gov.in" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestRootDomainMatchesAcrossSubdomains(t *testing.T) {
	a := RootDomain("https://data.enam.gov.in/api")
	b := RootDomain("https://enam.gov.in")
	if a != b {
		t.Errorf("root domains differ: %q vs %q", a, b)
	}
}

func TestIsInternal(t *testing.T) {
	base := "https://agmarknet.gov.in"
	if !IsInternal("/SearchCmmMkt.aspx", base) {
		t.Error("relative link should be internal")
	}
	if !IsInternal("https://reports.agmarknet.gov.in/daily", base) {
		t.Error("subdomain link should be internal")
	}
	if IsInternal("https://example.com/prices", base) {
		t.Error("external link should not be internal")
	}
	if IsInternal("", base) {
		t.Error("empty link should not be internal")
	}
}

// --- Resolve Tests ---

func TestResolveRelative(t *testing.T) {
	got := Resolve("/prices", "https://example.com/page")
	if got != "https://example.com/prices" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolveAbsolutePassthrough(t *testing.T) {
	got := Resolve("https://other.com/x", "https://example.com/page")
	if got != "https://other.com/x" {
		t.Errorf("Resolve() = %q", got)
	}
}

// --- Downloadable Tests ---

func TestIsDownloadable(t *testing.T) {
	for _, u := range []string{
		"https://example.com/reports/daily.pdf",
		"https://example.com/data.XLSX",
		"https://example.com/rates.xls?d=today",
		"https://example.com/export.csv",
	} {
		if !IsDownloadable(u) {
			t.Errorf("IsDownloadable(%q) = false", u)
		}
	}
	if IsDownloadable("https://example.com/prices.html") {
		t.Error("html flagged as downloadable")
	}
}

func TestStripQuery(t *testing.T) {
	got := StripQuery("https://example.com/p?x=1#frag")
	if got != "https://example.com/p" {
		t.Errorf("StripQuery() = %q", got)
	}
}
