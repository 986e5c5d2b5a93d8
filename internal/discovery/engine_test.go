package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/config"
	"github.com/mandipulse/mandipulse/internal/run"
)

const crawlTableHTML = `<html><body><table>
<tr><th>Commodity</th><th>Market</th><th>Modal Price</th></tr>
<tr><td>Wheat</td><td>Vashi</td><td>2250</td></tr>
<tr><td>Onion</td><td>Lasalgaon</td><td>1400</td></tr>
</table></body></html>`

// fakeDriver serves canned pages so the crawl loop runs without Chrome.
type fakeDriver struct {
	pages    map[string]browser.PageData
	visited  []string
	timeouts []time.Duration
	perVisit time.Duration
}

func (d *fakeDriver) Context() context.Context { return context.Background() }

func (d *fakeDriver) Listen(fn func(ev any)) {}

func (d *fakeDriver) Navigate(url, baseURL string, timeout time.Duration) browser.PageData {
	d.visited = append(d.visited, url)
	d.timeouts = append(d.timeouts, timeout)
	if d.perVisit > 0 {
		time.Sleep(d.perVisit)
	}
	data, ok := d.pages[url]
	if !ok {
		return browser.PageData{URL: url, Err: "net::ERR_NAME_NOT_RESOLVED"}
	}
	data.URL = url
	return data
}

func crawlContext(maxPages, timeoutSec, delayMS int) *run.Context {
	return run.NewContext(&config.Config{
		MaxPagesPerSource:       maxPages,
		DiscoveryTimeoutSeconds: timeoutSec,
		RequestDelayMS:          delayMS,
	})
}

// --- Crawl Tests ---

func TestCrawlFollowsLinksAndCollectsCandidates(t *testing.T) {
	entry := "https://mandi.example.in"
	prices := "https://mandi.example.in/market-prices"

	driver := &fakeDriver{pages: map[string]browser.PageData{
		entry: {
			Title: "Mandi Board",
			HTML:  "<html><body><p>welcome</p></body></html>",
			Links: []browser.Link{{URL: prices, Text: "Market Prices"}},
		},
		prices: {Title: "Daily Prices", HTML: crawlTableHTML},
	}}

	rc := crawlContext(10, 30, 0)
	result := &Result{SourceURL: entry, BaseURL: entry}

	crawl(context.Background(), rc, driver, result, entry)

	if len(result.PagesVisited) != 2 {
		t.Fatalf("pages visited = %d, want 2", len(result.PagesVisited))
	}
	if driver.visited[0] != entry || driver.visited[1] != prices {
		t.Errorf("visit order = %v", driver.visited)
	}
	if len(result.TableCandidates) == 0 {
		t.Error("expected a table candidate from the prices page")
	}
	if !result.PagesVisited[1].HasTables {
		t.Error("prices page summary should report tables")
	}
}

func TestCrawlTimeoutBoundsNavigationNotWholeCrawl(t *testing.T) {
	entry := "https://mandi.example.in"
	a := "https://mandi.example.in/prices-a"
	b := "https://mandi.example.in/prices-b"

	driver := &fakeDriver{
		perVisit: 500 * time.Millisecond,
		pages: map[string]browser.PageData{
			entry: {HTML: "<p>x</p>", Links: []browser.Link{{URL: a}, {URL: b}}},
			a:     {HTML: "<p>a</p>"},
			b:     {HTML: "<p>b</p>"},
		},
	}

	// Three visits of 500ms each exceed the 1s discovery timeout; the crawl
	// must still finish all of them.
	rc := crawlContext(10, 1, 0)
	result := &Result{SourceURL: entry, BaseURL: entry}

	crawl(context.Background(), rc, driver, result, entry)

	if len(result.PagesVisited) != 3 {
		t.Fatalf("pages visited = %d, want 3", len(result.PagesVisited))
	}
	if len(rc.Errors) != 0 {
		t.Errorf("errors = %v, want none", rc.Errors)
	}
	for _, got := range driver.timeouts {
		if got != time.Second {
			t.Errorf("navigation timeout = %v, want 1s per page", got)
		}
	}
}

func TestCrawlRecordsNavigationErrorAndMovesOn(t *testing.T) {
	entry := "https://mandi.example.in"
	dead := "https://mandi.example.in/prices-archive"
	live := "https://mandi.example.in/market-rates"

	driver := &fakeDriver{pages: map[string]browser.PageData{
		entry: {HTML: "<p>x</p>", Links: []browser.Link{{URL: dead}, {URL: live}}},
		live:  {HTML: crawlTableHTML},
	}}

	rc := crawlContext(10, 30, 0)
	result := &Result{SourceURL: entry, BaseURL: entry}

	crawl(context.Background(), rc, driver, result, entry)

	if len(result.PagesVisited) != 2 {
		t.Errorf("pages visited = %d, want 2 (entry and the live page)", len(result.PagesVisited))
	}
	if len(result.Errors) != 1 || result.Errors[0].URL != dead {
		t.Fatalf("result errors = %v, want one for the dead page", result.Errors)
	}
	if len(rc.Errors) != 1 || rc.Errors[0].Fatal {
		t.Errorf("rc errors = %v, want one non-fatal entry", rc.Errors)
	}
}

func TestCrawlStopsOnCancelledRun(t *testing.T) {
	entry := "https://mandi.example.in"
	driver := &fakeDriver{pages: map[string]browser.PageData{
		entry: {HTML: "<p>x</p>"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := crawlContext(10, 30, 0)
	result := &Result{SourceURL: entry, BaseURL: entry}

	crawl(ctx, rc, driver, result, entry)

	if len(driver.visited) != 0 {
		t.Errorf("visited = %v, want no navigation after cancellation", driver.visited)
	}
	if len(rc.Errors) != 1 || !rc.Errors[0].Fatal {
		t.Errorf("rc errors = %v, want one fatal cancellation entry", rc.Errors)
	}
}
