// Package browser drives a headless Chrome instance for page navigation,
// link extraction, and network sniffing during discovery.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/urlutil"
)

// DefaultUserAgent mimics a current desktop Chrome.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// snippetLimit caps the body HTML excerpt passed to the oracle.
const snippetLimit = 5000

// Link is an internal anchor found on a page.
type Link struct {
	URL  string `json:"url"`  // normalized absolute URL
	Text string `json:"text"` // anchor text, trimmed
	Href string `json:"href"` // original href attribute
}

// PageData is the result of navigating to one URL.
type PageData struct {
	URL         string `json:"url"` // final URL after redirects
	Title       string `json:"title"`
	Status      int    `json:"status"`
	Links       []Link `json:"links"`
	HTMLSnippet string `json:"html_snippet"`
	HTML        string `json:"-"` // full body HTML for the detectors
	Err         string `json:"error,omitempty"`
}

// Browser owns the Chrome allocator. One Browser serves a whole run; pages
// are created per discovery.
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// New configures the Chrome allocator. The browser process itself launches
// lazily with the first page.
func New(headless bool) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(1280, 720),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{allocCtx: allocCtx, cancelAlloc: cancelAlloc}
}

// Close shuts the allocator (and any running browser) down.
func (b *Browser) Close() {
	b.cancelAlloc()
}

// Page is a single browser tab that survives across navigations, so network
// listeners attached before the first navigation keep observing.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status int // last document response status
}

// NewPage launches a tab and enables network events. Failure here means
// Chrome could not start and the run cannot proceed.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	pageCtx, cancelPage := chromedp.NewContext(b.allocCtx)

	if err := chromedp.Run(pageCtx, network.Enable()); err != nil {
		cancelPage()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	p := &Page{ctx: pageCtx, cancel: cancelPage}

	// Track the main document response so PageData can carry a status code.
	chromedp.ListenTarget(pageCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				p.mu.Lock()
				p.status = int(resp.Response.Status)
				p.mu.Unlock()
			}
		}
	})

	return p, nil
}

// Close closes the tab.
func (p *Page) Close() {
	p.cancel()
}

// Context exposes the page's chromedp context for CDP executors
// (the sniffer needs it to fetch response bodies).
func (p *Page) Context() context.Context {
	return p.ctx
}

// Listen registers a CDP event handler on the page. Attach before
// navigating.
func (p *Page) Listen(fn func(ev any)) {
	chromedp.ListenTarget(p.ctx, fn)
}

// Navigate loads a URL with a per-navigation timeout, waits for the body
// plus a short JS settle, and returns the page data. Navigation failures
// are reported in PageData.Err, not as an error, so the discovery loop can
// record them and move on.
func (p *Page) Navigate(url, baseURL string, timeout time.Duration) PageData {
	result := PageData{URL: url}

	p.mu.Lock()
	p.status = 0
	p.mu.Unlock()

	var finalURL, title, bodyHTML string

	// Timeout applies to this navigation only; the tab stays alive.
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("body", &bodyHTML, chromedp.ByQuery),
	)
	if err != nil {
		result.Err = err.Error()
		logger.Debug("navigation failed", "url", url, "error", err)
		return result
	}

	if finalURL != "" {
		result.URL = finalURL
	}
	result.Title = title
	result.HTML = bodyHTML
	if len(bodyHTML) > snippetLimit {
		result.HTMLSnippet = bodyHTML[:snippetLimit]
	} else {
		result.HTMLSnippet = bodyHTML
	}

	p.mu.Lock()
	result.Status = p.status
	p.mu.Unlock()

	result.Links = ExtractLinks(bodyHTML, baseURL)
	return result
}

// ExtractLinks parses anchors out of HTML, resolves them against baseURL,
// and keeps deduped internal links only.
func ExtractLinks(html, baseURL string) []Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []Link
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			return
		}

		absolute := urlutil.Resolve(href, baseURL)
		normalized := urlutil.Normalize(absolute)

		if seen[normalized] {
			return
		}
		if !urlutil.IsInternal(normalized, baseURL) {
			return
		}
		seen[normalized] = true

		text := strings.TrimSpace(s.Text())
		if len(text) > 200 {
			text = text[:200]
		}
		links = append(links, Link{URL: normalized, Text: text, Href: href})
	})

	return links
}
