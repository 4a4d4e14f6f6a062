package report_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vulnissimo/vulnissimo-go/internal/model"
	"github.com/vulnissimo/vulnissimo-go/internal/report"
)

const reportPage = `<!DOCTYPE html>
<html>
<head><title>Vulnissimo Report</title></head>
<body>
  <h1 class="report-title">Scan report for example.com</h1>
  <p class="report-target">https://example.com</p>
  <span class="report-status">completed</span>
  <ul class="risk-summary">
    <li data-level="critical">1</li>
    <li data-level="high">2</li>
    <li data-level="low">3</li>
  </ul>
  <div class="finding" data-level="critical">
    <h2 class="finding-title">SQL injection in login form</h2>
  </div>
  <div class="finding" data-level="high">
    <h2 class="finding-title">Stored XSS in comments</h2>
  </div>
</body>
</html>`

// TestParse verifies extraction of title, status, counters and findings.
func TestParse(t *testing.T) {
	t.Parallel()
	summary, err := report.Parse(strings.NewReader(reportPage))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if summary.Title != "Scan report for example.com" {
		t.Errorf("title = %q", summary.Title)
	}
	if summary.Target != "https://example.com" {
		t.Errorf("target = %q", summary.Target)
	}
	if summary.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", summary.Status)
	}
	if summary.Counts[model.RiskCritical] != 1 || summary.Counts[model.RiskHigh] != 2 || summary.Counts[model.RiskLow] != 3 {
		t.Errorf("counts = %v", summary.Counts)
	}
	if summary.Total() != 6 {
		t.Errorf("total = %d, want 6", summary.Total())
	}
	if len(summary.FindingTitles) != 2 || summary.FindingTitles[0] != "SQL injection in login form" {
		t.Errorf("finding titles = %v", summary.FindingTitles)
	}
}

// TestParse_NotAReport verifies unrelated pages are rejected.
func TestParse_NotAReport(t *testing.T) {
	t.Parallel()
	if _, err := report.Parse(strings.NewReader("<html><body><p>hello</p></body></html>")); err == nil {
		t.Fatal("Parse accepted a page with no report markup")
	}
}

// TestSummarize verifies the fetch path end to end.
func TestSummarize(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(reportPage))
	}))
	defer srv.Close()

	summary, err := report.New(nil).Summarize(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.Total() != 6 {
		t.Errorf("total = %d, want 6", summary.Total())
	}
}

// TestSummarize_HTTPError verifies non-200 responses fail.
func TestSummarize_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := report.New(nil).Summarize(context.Background(), srv.URL); err == nil {
		t.Fatal("Summarize succeeded on a 404")
	}
}
