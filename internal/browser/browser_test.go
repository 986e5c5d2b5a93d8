package browser

import "testing"

// --- Link Extraction Tests ---

const fixtureHTML = `
<body>
  <a href="/prices">Daily Prices</a>
  <a href="/prices">Prices again</a>
  <a href="https://example.gov.in/reports/">Reports</a>
  <a href="https://other.com/external">External</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">JS</a>
  <a href="mailto:info@example.gov.in">Mail</a>
  <a href="tel:+911234567890">Call</a>
</body>`

func TestExtractLinksKeepsInternalOnly(t *testing.T) {
	links := ExtractLinks(fixtureHTML, "https://example.gov.in")

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2: %+v", len(links), links)
	}
	for _, l := range links {
		if l.URL == "https://other.com/external" {
			t.Error("external link kept")
		}
	}
}

func TestExtractLinksDedupesNormalized(t *testing.T) {
	links := ExtractLinks(fixtureHTML, "https://example.gov.in")
	seen := map[string]bool{}
	for _, l := range links {
		if seen[l.URL] {
			t.Errorf("duplicate link %q", l.URL)
		}
		seen[l.URL] = true
	}
}

func TestExtractLinksResolvesRelative(t *testing.T) {
	links := ExtractLinks(`<body><a href="/rates">Rates</a></body>`, "https://example.gov.in/home")
	if len(links) != 1 || links[0].URL != "https://example.gov.in/rates" {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Href != "/rates" {
		t.Errorf("original href lost: %q", links[0].Href)
	}
	if links[0].Text != "Rates" {
		t.Errorf("anchor text = %q", links[0].Text)
	}
}

func TestExtractLinksSkipsNonNavigable(t *testing.T) {
	html := `<body>
	  <a href="#section">Anchor</a>
	  <a href="javascript:run()">Script</a>
	  <a href="mailto:a@b.in">Mail</a>
	</body>`
	if links := ExtractLinks(html, "https://example.gov.in"); len(links) != 0 {
		t.Errorf("non-navigable links kept: %+v", links)
	}
}

func TestExtractLinksAcceptsSubdomains(t *testing.T) {
	html := `<body><a href="https://data.example.gov.in/api">API</a></body>`
	links := ExtractLinks(html, "https://example.gov.in")
	if len(links) != 1 {
		t.Fatalf("subdomain link dropped: %+v", links)
	}
}
