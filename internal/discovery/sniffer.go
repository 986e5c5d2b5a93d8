package discovery

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/queue"
)

// minAPIRecords is the record-count floor below which a JSON response is
// ignored unless its relevance score rescues it.
const minAPIRecords = 3

// arrayKeys are the wrapper keys portals commonly nest record arrays under.
var arrayKeys = []string{"data", "records", "items", "results", "rows", "list"}

// priceFields suggest a response carries price data.
var priceFields = []string{
	"price", "rate", "modal", "min", "max",
	"commodity", "mandi", "market", "arrival",
}

// APICandidate is a captured XHR/fetch JSON response that looks like a data
// endpoint.
type APICandidate struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Status         int               `json:"status"`
	ContentType    string            `json:"content_type"`
	RecordCount    int               `json:"record_count"`
	RelevanceScore float64           `json:"relevance_score"`
	SampleData     any               `json:"sample_data"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	PostData       string            `json:"post_data,omitempty"`
	PageURL        string            `json:"page_url,omitempty"`
}

// requestMeta is what EventRequestWillBeSent tells us before the response
// lands.
type requestMeta struct {
	url         string
	method      string
	headers     map[string]string
	hasPostData bool
}

// responseMeta marks a JSON XHR/fetch response awaiting its body.
type responseMeta struct {
	status      int
	contentType string
}

// Sniffer captures XHR/fetch JSON responses on a browser page. Attach to a
// page before navigating; bodies are fetched asynchronously when loading
// finishes, so call Candidates only after navigation settles.
type Sniffer struct {
	pageCtx context.Context

	mu        sync.Mutex
	requests  map[network.RequestID]requestMeta
	responses map[network.RequestID]responseMeta
	captured  []APICandidate
	wg        sync.WaitGroup
}

// NewSniffer creates a sniffer bound to a page's chromedp context.
func NewSniffer(pageCtx context.Context) *Sniffer {
	return &Sniffer{
		pageCtx:   pageCtx,
		requests:  make(map[network.RequestID]requestMeta),
		responses: make(map[network.RequestID]responseMeta),
	}
}

// Handle is the CDP event callback; register it with the page's Listen.
func (s *Sniffer) Handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		headers := make(map[string]string, len(e.Request.Headers))
		for k, v := range e.Request.Headers {
			if str, ok := v.(string); ok {
				headers[k] = str
			}
		}
		s.mu.Lock()
		s.requests[e.RequestID] = requestMeta{
			url:         e.Request.URL,
			method:      e.Request.Method,
			headers:     headers,
			hasPostData: e.Request.HasPostData,
		}
		s.mu.Unlock()

	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeXHR && e.Type != network.ResourceTypeFetch {
			return
		}
		contentType := strings.ToLower(e.Response.MimeType)
		if !strings.Contains(contentType, "application/json") && !strings.Contains(contentType, "text/json") {
			return
		}
		s.mu.Lock()
		s.responses[e.RequestID] = responseMeta{
			status:      int(e.Response.Status),
			contentType: contentType,
		}
		s.mu.Unlock()

	case *network.EventLoadingFinished:
		s.mu.Lock()
		resp, ok := s.responses[e.RequestID]
		req := s.requests[e.RequestID]
		if ok {
			delete(s.responses, e.RequestID)
			s.wg.Add(1)
		}
		s.mu.Unlock()
		if !ok {
			return
		}
		go s.capture(e.RequestID, req, resp)
	}
}

// capture fetches the response body and records the candidate when it
// clears the data-endpoint thresholds. Body fetch failures (evicted cache,
// redirects) are skipped silently.
func (s *Sniffer) capture(id network.RequestID, req requestMeta, resp responseMeta) {
	defer s.wg.Done()

	c := chromedp.FromContext(s.pageCtx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(s.pageCtx, c.Target)

	body, err := network.GetResponseBody(id).Do(execCtx)
	if err != nil {
		return
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return
	}

	recordCount := countRecords(data)
	relevance := scoreRelevance(req.url, body)
	if recordCount < minAPIRecords && relevance < 0.3 {
		return
	}

	var postData string
	if req.hasPostData {
		if pd, err := network.GetRequestPostData(id).Do(execCtx); err == nil {
			postData = pd
		}
	}

	candidate := APICandidate{
		URL:            req.url,
		Method:         req.method,
		Status:         resp.status,
		ContentType:    resp.contentType,
		RecordCount:    recordCount,
		RelevanceScore: relevance,
		SampleData:     extractSample(data),
		RequestHeaders: req.headers,
		PostData:       postData,
	}

	s.mu.Lock()
	s.captured = append(s.captured, candidate)
	s.mu.Unlock()

	logger.Debug("captured api candidate",
		"url", req.url, "records", recordCount, "score", relevance)
}

// Candidates waits for in-flight body fetches and returns everything
// captured so far.
func (s *Sniffer) Candidates() []APICandidate {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]APICandidate, len(s.captured))
	copy(out, s.captured)
	return out
}

// countRecords estimates how many data records a JSON payload holds.
func countRecords(data any) int {
	switch v := data.(type) {
	case []any:
		return len(v)
	case map[string]any:
		for _, key := range arrayKeys {
			if arr, ok := v[key].([]any); ok {
				return len(arr)
			}
		}
	}
	return 0
}

// scoreRelevance rates how price-shaped a response looks, 0.0 to 1.0.
func scoreRelevance(url string, body []byte) float64 {
	score := 0.0
	urlLower := strings.ToLower(url)

	for _, kw := range queue.Level0Keywords {
		if strings.Contains(urlLower, kw) {
			score += 0.2
		}
	}

	probe := body
	if len(probe) > 2000 {
		probe = probe[:2000]
	}
	text := strings.ToLower(string(probe))
	for _, field := range priceFields {
		if strings.Contains(text, field) {
			score += 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// extractSample trims a payload down to a few records for oracle context.
func extractSample(data any) any {
	const maxItems = 3

	switch v := data.(type) {
	case []any:
		if len(v) > maxItems {
			return v[:maxItems]
		}
		return v
	case map[string]any:
		for _, key := range arrayKeys {
			if arr, ok := v[key].([]any); ok {
				if len(arr) > maxItems {
					arr = arr[:maxItems]
				}
				return map[string]any{key: arr}
			}
		}
		if len(v) > 10 {
			trimmed := make(map[string]any, 10)
			for k, val := range v {
				trimmed[k] = val
				if len(trimmed) == 10 {
					break
				}
			}
			return trimmed
		}
		return v
	}
	return data
}
