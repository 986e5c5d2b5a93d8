package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/queue"
	"github.com/mandipulse/mandipulse/internal/run"
	"github.com/mandipulse/mandipulse/internal/urlutil"
)

// pageDriver is the subset of browser.Page the crawl loop drives, split out
// so the loop can be tested without Chrome.
type pageDriver interface {
	Context() context.Context
	Listen(fn func(ev any))
	Navigate(url, baseURL string, timeout time.Duration) browser.PageData
}

// Run crawls a source from its entry URL: pops URLs off the priority queue,
// navigates each with the sniffer attached, runs the table and file
// detectors on the rendered HTML, and feeds internal links back into the
// queue. Per-page failures accumulate; only a browser launch failure aborts.
func Run(ctx context.Context, rc *run.Context, b *browser.Browser, entryURL string) (*Result, error) {
	result := &Result{SourceURL: entryURL, BaseURL: urlutil.BaseURL(entryURL)}

	page, err := b.NewPage(ctx)
	if err != nil {
		rc.AddError(entryURL, err, true)
		return result, fmt.Errorf("starting discovery browser: %w", err)
	}
	defer page.Close()

	crawl(ctx, rc, page, result, entryURL)

	sort.SliceStable(result.APICandidates, func(i, j int) bool {
		return result.APICandidates[i].RelevanceScore > result.APICandidates[j].RelevanceScore
	})
	sort.SliceStable(result.TableCandidates, func(i, j int) bool {
		return result.TableCandidates[i].Score > result.TableCandidates[j].Score
	})
	sort.SliceStable(result.FileCandidates, func(i, j int) bool {
		return result.FileCandidates[i].Score > result.FileCandidates[j].Score
	})

	logger.Info("discovery complete",
		"pages", len(result.PagesVisited),
		"apis", len(result.APICandidates),
		"tables", len(result.TableCandidates),
		"files", len(result.FileCandidates))

	return result, nil
}

// crawl runs the page loop. The configured discovery timeout bounds each
// navigation, never the crawl as a whole; ctx only stops the loop when the
// run itself is cancelled.
func crawl(ctx context.Context, rc *run.Context, page pageDriver, result *Result, entryURL string) {
	maxPages := rc.Config.MaxPagesPerSource
	navTimeout := time.Duration(rc.Config.DiscoveryTimeoutSeconds) * time.Second
	delay := time.Duration(rc.Config.RequestDelayMS) * time.Millisecond
	baseURL := result.BaseURL

	q := queue.New(queue.DefaultMaxDepth)
	q.Push(entryURL, queue.Score(entryURL), 0, "")

	sniffer := NewSniffer(page.Context())
	page.Listen(sniffer.Handle)

	processed := 0
	for !q.IsEmpty() && processed < maxPages {
		if err := ctx.Err(); err != nil {
			rc.AddError(entryURL, err, true)
			break
		}

		item := q.Pop()
		if item == nil {
			break
		}

		logger.Info("discovery visit",
			"n", processed+1, "max", maxPages,
			"level", item.Level, "depth", item.Depth, "url", item.URL)
		rc.MarkVisited(item.URL)

		data := page.Navigate(item.URL, baseURL, navTimeout)
		if data.Err != "" {
			result.Errors = append(result.Errors, model.RunError{
				URL: item.URL, Error: data.Err, Timestamp: time.Now().UTC(),
			})
			rc.AddError(item.URL, errors.New(data.Err), false)
			continue
		}

		tables := DetectTables(data.HTML)
		for i := range tables {
			tables[i].PageURL = item.URL
		}
		result.TableCandidates = append(result.TableCandidates, tables...)

		files := DetectFiles(data.HTML, baseURL)
		for i := range files {
			files[i].PageURL = item.URL
		}
		result.FileCandidates = append(result.FileCandidates, files...)

		result.PagesVisited = append(result.PagesVisited, PageSummary{
			URL:        data.URL,
			Title:      data.Title,
			LinksCount: len(data.Links),
			HasTables:  len(tables) > 0,
			HasFiles:   len(files) > 0,
		})
		processed++

		for _, link := range data.Links {
			q.Push(link.URL, queue.Score(link.URL), item.Depth+1, item.URL)
		}

		time.Sleep(delay)
	}

	result.APICandidates = sniffer.Candidates()
	result.QueueStats = q.Stats()
}
