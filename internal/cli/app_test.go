package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vulnissimo/vulnissimo-go/internal/cli"
	"github.com/vulnissimo/vulnissimo-go/internal/client"
	"github.com/vulnissimo/vulnissimo-go/internal/demoserver"
	"github.com/vulnissimo/vulnissimo-go/internal/history"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
	"github.com/vulnissimo/vulnissimo-go/internal/report"
)

// newApp wires an App against a fresh demo server with a temp history store.
func newApp(t *testing.T) (*cli.App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(demoserver.NewServer(demoserver.Config{
		StepsToComplete: 3,
		Logger:          logging.NewTestLogger(false),
	}).Handler())
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("client.New returned error: %v", err)
	}

	store, err := history.Open(t.TempDir(), logging.NewTestLogger(false))
	if err != nil {
		t.Fatalf("history.Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	var stdout, stderr bytes.Buffer
	app := &cli.App{
		Client:     c,
		History:    store,
		Summarizer: report.New(nil),
		Logger:     logging.NewTestLogger(false),
		Stdout:     &stdout,
		Stderr:     &stderr,
	}
	return app, &stdout, &stderr
}

func runArgs(extra ...string) *cli.Args {
	base := []string{"run", "-target", "https://example.com",
		"-interval", "5ms", "-max-attempts", "10", "-poll-timeout", "5s"}
	args, err := cli.ParseArgs(append(base, extra...))
	if err != nil {
		panic(err)
	}
	return args
}

// TestApp_Run drives a full scan through the CLI path and checks the JSON
// output and the history record.
func TestApp_Run(t *testing.T) {
	t.Parallel()
	app, stdout, stderr := newApp(t)
	ctx := context.Background()

	if err := app.Run(ctx, runArgs()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var result model.ScanResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("stdout is not a JSON scan result: %v", err)
	}
	if result.ScanInfo.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", result.ScanInfo.Status)
	}
	if len(result.Findings) == 0 {
		t.Error("result has no findings")
	}

	if !strings.Contains(stderr.String(), "Scan started on https://example.com") {
		t.Errorf("stderr missing start message:\n%s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "See live updates at") {
		t.Errorf("stderr missing live-updates link:\n%s", stderr.String())
	}

	entries, err := app.History.List(ctx, 10)
	if err != nil {
		t.Fatalf("history List returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Status != model.StatusCompleted || entries[0].Findings != len(result.Findings) {
		t.Errorf("history entry = %+v", entries[0])
	}
}

// TestApp_Run_FailedScan verifies failed scans surface as ErrScanFailed and
// land in history as failed.
func TestApp_Run_FailedScan(t *testing.T) {
	t.Parallel()
	app, _, _ := newApp(t)
	ctx := context.Background()

	args, err := cli.ParseArgs([]string{"run", "-target", "https://fail.example.com",
		"-interval", "5ms", "-max-attempts", "10", "-poll-timeout", "5s"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	err = app.Run(ctx, args)
	if !errors.Is(err, cli.ErrScanFailed) {
		t.Fatalf("Run = %v, want ErrScanFailed", err)
	}

	entries, err := app.History.List(ctx, 10)
	if err != nil {
		t.Fatalf("history List returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != model.StatusFailed {
		t.Fatalf("history entries = %+v, want one failed scan", entries)
	}
	if entries[0].Error == "" {
		t.Error("history entry missing failure detail")
	}
}

// TestApp_Run_Timeout verifies budget exhaustion surfaces as ErrPollTimedOut.
func TestApp_Run_Timeout(t *testing.T) {
	t.Parallel()
	app, _, _ := newApp(t)

	err := app.Run(context.Background(), runArgs("-max-attempts", "1"))
	if !errors.Is(err, cli.ErrPollTimedOut) {
		t.Fatalf("Run = %v, want ErrPollTimedOut", err)
	}
}

// TestApp_Get verifies fetching an existing scan by id.
func TestApp_Get(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newApp(t)
	ctx := context.Background()

	if err := app.Run(ctx, runArgs()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var result model.ScanResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding run output: %v", err)
	}
	stdout.Reset()

	getCmd, err := cli.ParseArgs([]string{"get", "-scan", result.ID.String(), "-format", "pretty"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if err := app.Run(ctx, getCmd); err != nil {
		t.Fatalf("Run(get) returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Status: completed") {
		t.Errorf("pretty output missing status:\n%s", stdout.String())
	}
}

// TestApp_Report verifies the report command summarizes the hosted page.
func TestApp_Report(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newApp(t)
	ctx := context.Background()

	if err := app.Run(ctx, runArgs()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var result model.ScanResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding run output: %v", err)
	}
	stdout.Reset()

	reportCmd, err := cli.ParseArgs([]string{"report", "-scan", result.ID.String()})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if err := app.Run(ctx, reportCmd); err != nil {
		t.Fatalf("Run(report) returned error: %v", err)
	}
	text := stdout.String()
	if !strings.Contains(text, "Findings: 4") || !strings.Contains(text, "critical: 1") {
		t.Errorf("report summary unexpected:\n%s", text)
	}
}

// TestApp_Diff verifies comparing two scans of the same target.
func TestApp_Diff(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newApp(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		if err := app.Run(ctx, runArgs()); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		var result model.ScanResult
		if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
			t.Fatalf("decoding run output: %v", err)
		}
		ids = append(ids, result.ID.String())
		stdout.Reset()
	}

	diffCmd, err := cli.ParseArgs([]string{"diff", "-base", ids[0], "-head", ids[1], "-format", "pretty"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if err := app.Run(ctx, diffCmd); err != nil {
		t.Fatalf("Run(diff) returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "unchanged: 4") {
		t.Errorf("diff output unexpected:\n%s", stdout.String())
	}
}

// TestApp_History verifies the history listing.
func TestApp_History(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newApp(t)
	ctx := context.Background()

	if err := app.Run(ctx, runArgs()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	stdout.Reset()

	histCmd, err := cli.ParseArgs([]string{"history", "-limit", "5"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if err := app.Run(ctx, histCmd); err != nil {
		t.Fatalf("Run(history) returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "https://example.com") {
		t.Errorf("history output missing target:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "completed") {
		t.Errorf("history output missing status:\n%s", stdout.String())
	}
}

// TestApp_Run_Cancel verifies context cancellation aborts the run command.
func TestApp_Run_Cancel(t *testing.T) {
	t.Parallel()
	app, _, _ := newApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	args := runArgs("-interval", "1h")

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := app.Run(ctx, args)
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("Run = %v, want cancellation error", err)
	}
}
