package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/run"
)

const htmlTimeout = 30 * time.Second

// ScrapeHTMLTable fetches a page and extracts the configured table as
// header-keyed row dicts. Falls back to entryUrl when no page URL was
// stored and to the Nth table on the page when the selector misses.
func ScrapeHTMLTable(rc *run.Context, source *model.Source) []model.PriceRecord {
	pageURL := source.HTMLPageURL
	if pageURL == "" {
		pageURL = source.EntryURL
	}

	html, err := fetchPage(pageURL)
	if err != nil {
		rc.AddError(pageURL, fmt.Errorf("fetching table page: %w", err), false)
		return nil
	}

	records, err := ExtractTable(html, source.HTMLSelector, 0)
	if err != nil {
		rc.AddError(pageURL, err, false)
		return nil
	}

	logger.Info("HTML table scrape complete", "page", pageURL, "records", len(records))
	return records
}

func fetchPage(pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(browser.DefaultUserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(htmlTimeout)

	var html string
	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	return html, nil
}

// ExtractTable parses HTML and returns the rows of one table as dicts keyed
// by the header cells. An empty selector targets the page's tables directly;
// tableIndex picks among multiple matches.
func ExtractTable(html, selector string, tableIndex int) ([]model.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var matches *goquery.Selection
	if selector != "" {
		matches = doc.Find(selector)
		if matches.Length() == 0 {
			return nil, fmt.Errorf("selector %q not found", selector)
		}
	} else {
		matches = doc.Find("table")
		if matches.Length() == 0 {
			return nil, fmt.Errorf("no tables found")
		}
	}
	if tableIndex >= matches.Length() {
		tableIndex = matches.Length() - 1
	}
	table := matches.Eq(tableIndex)

	headers, fromBody := tableHeaders(table)
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	var records []model.PriceRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if fromBody && i == 0 {
			return // first row served as the header
		}
		if row.ParentsFiltered("thead").Length() > 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header or empty row
		}

		record := model.PriceRecord{}
		blank := true
		cells.Each(func(j int, cell *goquery.Selection) {
			if j >= len(headers) {
				return
			}
			value := strings.TrimSpace(cell.Text())
			record[headers[j]] = value
			if value != "" {
				blank = false
			}
		})
		if !blank {
			records = append(records, record)
		}
	})

	return records, nil
}

// tableHeaders reads the header cells from thead, falling back to the first
// row. Empty header cells get positional col_i names. fromBody reports
// whether the fallback was used, so the caller can skip that row.
func tableHeaders(table *goquery.Selection) (headers []string, fromBody bool) {
	collect := func(i int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		if text == "" {
			text = fmt.Sprintf("col_%d", i)
		}
		headers = append(headers, text)
	}

	table.Find("thead tr").First().Find("th, td").Each(collect)
	if len(headers) == 0 {
		table.Find("tr").First().Find("th, td").Each(collect)
		fromBody = len(headers) > 0
	}
	return headers, fromBody
}
