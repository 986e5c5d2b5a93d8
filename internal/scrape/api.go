// Package scrape executes the extraction strategy stored on a source:
// replaying API endpoints, parsing HTML tables, or downloading files, then
// normalizing the raw rows into the unified price schema.
package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/run"
)

const (
	apiTimeout       = 30 * time.Second
	defaultPageKey   = "page"
	defaultOffsetKey = "offset"
	defaultLimitKey  = "limit"
	defaultPageSize  = 100
	maxAPIPages      = 10
)

// backoffDelay is the wait before retrying a rate-limited page. Variable so
// tests can shorten it.
var backoffDelay = 5 * time.Second

var defaultAPIHeaders = map[string]string{
	"User-Agent":      browser.DefaultUserAgent,
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
}

// responseArrayKeys are the wrapper keys checked, in order, when a JSON
// response is an object instead of a bare array.
var responseArrayKeys = []string{"data", "records", "items", "results", "rows", "list"}

// ScrapeAPI replays a discovered API endpoint and returns the raw records.
// Pagination walks page numbers (or offsets) until a short page, an empty
// page, or the page cap. 403 and 429 responses back off and retry the same
// page once per occurrence; other failures stop pagination with whatever was
// collected so far.
func ScrapeAPI(rc *run.Context, source *model.Source) []model.PriceRecord {
	endpoint := source.Endpoint
	if endpoint == "" {
		rc.AddError(source.EntryURL, fmt.Errorf("no API endpoint configured"), false)
		return nil
	}

	client := &http.Client{Timeout: apiTimeout}
	headers := mergeHeaders(defaultAPIHeaders, source.EndpointHeaders)
	method := strings.ToUpper(source.EndpointMethod)
	if method == "" {
		method = http.MethodGet
	}
	mode := source.Paginate
	paginate := mode != "none"
	delay := time.Duration(rc.Config.RequestDelayMS) * time.Millisecond

	var all []model.PriceRecord
	retried := false

	for page := 1; page <= maxAPIPages; page++ {
		req, err := buildRequest(source, method, endpoint, headers, pageParams(mode, page))
		if err != nil {
			rc.AddError(endpoint, fmt.Errorf("building request for page %d: %w", page, err), false)
			break
		}

		resp, err := client.Do(req)
		if err != nil {
			rc.AddError(endpoint, fmt.Errorf("request error on page %d: %w", page, err), false)
			break
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
		resp.Body.Close()
		if err != nil {
			rc.AddError(endpoint, fmt.Errorf("reading page %d: %w", page, err), false)
			break
		}

		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			rc.AddError(endpoint, fmt.Errorf("HTTP %d on page %d", resp.StatusCode, page), false)
			if retried {
				break
			}
			logger.Warn("rate limited, backing off", "endpoint", endpoint, "status", resp.StatusCode, "wait", backoffDelay)
			time.Sleep(backoffDelay)
			retried = true
			page-- // retry the same page once after backoff
			continue
		}
		retried = false
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			rc.AddError(endpoint, fmt.Errorf("HTTP %d on page %d", resp.StatusCode, page), false)
			break
		}

		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			rc.AddError(endpoint, fmt.Errorf("invalid JSON on page %d", page), false)
			break
		}

		records := extractRecords(data)
		if len(records) == 0 {
			logger.Debug("no records, stopping pagination", "page", page)
			break
		}

		all = append(all, records...)
		logger.Debug("API page fetched", "page", page, "records", len(records), "total", len(all))

		if !paginate || len(records) < defaultPageSize {
			break
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	logger.Info("API scrape complete", "endpoint", endpoint, "records", len(all))
	return all
}

// pageParams returns the pagination parameters for one request. Page mode
// carries the 1-based page number, offset mode the zero-based row offset;
// "none" disables pagination parameters entirely.
func pageParams(mode string, page int) map[string]int {
	switch mode {
	case "none":
		return nil
	case "offset":
		return map[string]int{
			defaultOffsetKey: (page - 1) * defaultPageSize,
			defaultLimitKey:  defaultPageSize,
		}
	default:
		return map[string]int{
			defaultPageKey:  page,
			defaultLimitKey: defaultPageSize,
		}
	}
}

// buildRequest assembles the page request: GET carries params (plus the
// pagination keys) in the query string, POST carries them in a JSON or form
// body.
func buildRequest(source *model.Source, method, endpoint string, headers map[string]string, pagination map[string]int) (*http.Request, error) {
	if method == http.MethodPost {
		body := map[string]any{}
		for k, v := range source.EndpointPostData {
			body[k] = v
		}
		for k, v := range pagination {
			body[k] = v
		}

		var reqBody []byte
		contentType := "application/json"
		if source.PostContentType == "form" {
			form := url.Values{}
			for k, v := range body {
				form.Set(k, fmt.Sprint(v))
			}
			reqBody = []byte(form.Encode())
			contentType = "application/x-www-form-urlencoded"
		} else {
			var err error
			reqBody, err = json.Marshal(body)
			if err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		applyHeaders(req, headers)
		return req, nil
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	for k, v := range source.EndpointParams {
		q.Set(k, fmt.Sprint(v))
	}
	for k, v := range pagination {
		q.Set(k, strconv.Itoa(v))
	}
	req.URL.RawQuery = q.Encode()
	applyHeaders(req, headers)
	return req, nil
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func mergeHeaders(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// extractRecords pulls the record list out of a JSON response, handling bare
// arrays and the common wrapper-object shapes.
func extractRecords(data any) []model.PriceRecord {
	switch v := data.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		for _, key := range responseArrayKeys {
			if arr, ok := v[key].([]any); ok {
				return toRecords(arr)
			}
		}
	}
	return nil
}

func toRecords(arr []any) []model.PriceRecord {
	records := make([]model.PriceRecord, 0, len(arr))
	for _, item := range arr {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}
