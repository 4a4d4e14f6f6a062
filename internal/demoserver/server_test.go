package demoserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vulnissimo/vulnissimo-go/internal/client"
	"github.com/vulnissimo/vulnissimo-go/internal/demoserver"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
	"github.com/vulnissimo/vulnissimo-go/internal/poller"
	"github.com/vulnissimo/vulnissimo-go/internal/progress"
	"github.com/vulnissimo/vulnissimo-go/internal/report"
)

func newDemo(t *testing.T, steps int) (*httptest.Server, *client.Client) {
	t.Helper()
	srv := httptest.NewServer(demoserver.NewServer(demoserver.Config{
		StepsToComplete: steps,
		Logger:          logging.NewTestLogger(false),
	}).Handler())
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("client.New returned error: %v", err)
	}
	return srv, c
}

// TestScanLifecycle drives a full run: submit, poll to completion, check
// findings.
func TestScanLifecycle(t *testing.T) {
	t.Parallel()
	_, c := newDemo(t, 3)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}
	if scan.ID == uuid.Nil {
		t.Fatal("scan id is nil")
	}
	if !strings.Contains(scan.HTMLResult, scan.ID.String()) {
		t.Errorf("HTMLResult = %q, want link containing the scan id", scan.HTMLResult)
	}

	p, err := poller.New(c)
	if err != nil {
		t.Fatalf("poller.New returned error: %v", err)
	}
	outcome, err := p.Poll(ctx, scan.ID, poller.Config{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 10,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if outcome.Kind != poller.OutcomeSuccess {
		t.Fatalf("Kind = %v, want success (last status %q)", outcome.Kind, outcome.LastStatus)
	}
	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3 with three lifecycle steps", outcome.Attempts)
	}
	if len(outcome.Findings) == 0 {
		t.Fatal("no findings on the standard demo target")
	}
	var critical bool
	for _, f := range outcome.Findings {
		if f.RiskLevel == model.RiskCritical {
			critical = true
		}
	}
	if !critical {
		t.Error("demo findings missing a critical entry")
	}
}

// TestScanLifecycle_CleanTarget verifies a clean target completes with zero
// findings (success, not failure).
func TestScanLifecycle_CleanTarget(t *testing.T) {
	t.Parallel()
	_, c := newDemo(t, 1)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{Target: "https://clean.example.com"})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}

	// One lifecycle step: the first poll is already terminal.
	result, err := c.GetScanResult(ctx, scan.ID)
	if err != nil {
		t.Fatalf("GetScanResult returned error: %v", err)
	}
	if result.ScanInfo.Status != model.StatusCompleted {
		t.Fatalf("status = %q, want completed with one lifecycle step", result.ScanInfo.Status)
	}
	if len(result.Findings) != 0 {
		t.Errorf("findings = %d, want 0 for clean target", len(result.Findings))
	}
}

// TestScanLifecycle_Failure verifies the failure script surfaces the service
// error.
func TestScanLifecycle_Failure(t *testing.T) {
	t.Parallel()
	_, c := newDemo(t, 3)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{
		Target:  "https://example.com",
		Options: map[string]string{"outcome": "failed"},
	})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}

	p, err := poller.New(c)
	if err != nil {
		t.Fatalf("poller.New returned error: %v", err)
	}
	outcome, err := p.Poll(ctx, scan.ID, poller.Config{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 10,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if outcome.Kind != poller.OutcomeFailed {
		t.Fatalf("Kind = %v, want failed", outcome.Kind)
	}
	if outcome.ErrorInfo == "" {
		t.Error("ErrorInfo is empty on a failed scan")
	}
}

// TestGetScanResult_Unknown verifies 404 handling end to end.
func TestGetScanResult_Unknown(t *testing.T) {
	t.Parallel()
	_, c := newDemo(t, 3)
	if _, err := c.GetScanResult(context.Background(), uuid.New()); err == nil {
		t.Fatal("GetScanResult returned nil error for an unknown scan")
	}
}

// TestCancelScan verifies cancellation removes the scan and answers with a
// bodyless 204.
func TestCancelScan(t *testing.T) {
	t.Parallel()
	srv, c := newDemo(t, 3)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		srv.URL+"/scans/"+scan.ID.String(), nil)
	if err != nil {
		t.Fatalf("building delete request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		t.Errorf("Content-Type = %q, want none on a bodyless 204", ct)
	}
	if body, _ := io.ReadAll(resp.Body); len(body) != 0 {
		t.Errorf("body = %q, want empty", body)
	}

	if _, err := c.GetScanResult(ctx, scan.ID); err == nil {
		t.Fatal("scan still queryable after cancellation")
	}
}

// TestReportPage verifies the hosted report page parses with the report
// summarizer.
func TestReportPage(t *testing.T) {
	t.Parallel()
	_, c := newDemo(t, 1)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}
	// Drive the scan to completion so the page shows findings.
	if _, err := c.GetScanResult(ctx, scan.ID); err != nil {
		t.Fatalf("GetScanResult returned error: %v", err)
	}

	summary, err := report.New(nil).Summarize(ctx, scan.HTMLResult)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.Status != model.StatusCompleted {
		t.Errorf("report status = %q, want completed", summary.Status)
	}
	if summary.Counts[model.RiskCritical] != 1 {
		t.Errorf("critical count = %d, want 1", summary.Counts[model.RiskCritical])
	}
	if summary.Total() != 4 {
		t.Errorf("total findings = %d, want 4", summary.Total())
	}
}

// TestProgressStream verifies the websocket stream drives a scan to a
// terminal update.
func TestProgressStream(t *testing.T) {
	t.Parallel()
	srv, c := newDemo(t, 3)
	ctx := context.Background()

	scan, err := c.RunScan(ctx, model.ScanCreate{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("RunScan returned error: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans/" + scan.ID.String()
	var events []progress.Event
	watcher := progress.NewWatcher(nil, logging.NewTestLogger(false))
	err = watcher.Watch(ctx, wsURL, func(event progress.Event) {
		events = append(events, event)
	})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3 lifecycle steps", len(events))
	}
	last := events[len(events)-1]
	if last.ScanInfo.Status != model.StatusCompleted || last.Findings != 4 {
		t.Errorf("final event = %+v", last)
	}
}
