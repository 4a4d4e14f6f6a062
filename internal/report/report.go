// Package report summarizes the hosted HTML report page that the service
// links from every scan (html_result). It gives CLI users a quick terminal
// view without opening a browser.
package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// Summary is the extract of a hosted report page.
type Summary struct {
	// Title is the report page title.
	Title string

	// Target is the scanned target as shown on the page.
	Target string

	// Status is the scan status shown on the page.
	Status model.ScanStatus

	// Counts holds the per-risk-level finding counters.
	Counts map[model.RiskLevel]int

	// FindingTitles lists the finding headings in page order.
	FindingTitles []string
}

// Total returns the number of findings across all levels.
func (s *Summary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Summarizer fetches and parses hosted report pages.
type Summarizer struct {
	client *http.Client
}

// New creates a Summarizer. If httpClient is nil a default with a 30s timeout
// is used.
func New(httpClient *http.Client) *Summarizer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Summarizer{client: httpClient}
}

// Summarize fetches the report page at url and extracts its summary.
func (s *Summarizer) Summarize(ctx context.Context, url string) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch report: status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse extracts a Summary from report page HTML.
func Parse(r io.Reader) (*Summary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse report html: %w", err)
	}

	summary := &Summary{Counts: make(map[model.RiskLevel]int)}
	summary.Title = strings.TrimSpace(doc.Find("h1.report-title").First().Text())
	summary.Target = strings.TrimSpace(doc.Find(".report-target").First().Text())

	statusText := strings.TrimSpace(doc.Find(".report-status").First().Text())
	if statusText != "" {
		status, err := model.ParseScanStatus(statusText)
		if err != nil {
			return nil, fmt.Errorf("report page: %w", err)
		}
		summary.Status = status
	}

	doc.Find(".risk-summary [data-level]").Each(func(_ int, sel *goquery.Selection) {
		levelRaw, _ := sel.Attr("data-level")
		level, err := model.ParseRiskLevel(levelRaw)
		if err != nil {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(sel.Text()))
		if err != nil {
			return
		}
		summary.Counts[level] = n
	})

	doc.Find(".finding .finding-title").Each(func(_ int, sel *goquery.Selection) {
		if title := strings.TrimSpace(sel.Text()); title != "" {
			summary.FindingTitles = append(summary.FindingTitles, title)
		}
	})

	if summary.Title == "" && summary.Target == "" {
		return nil, fmt.Errorf("page does not look like a scan report")
	}
	return summary, nil
}
