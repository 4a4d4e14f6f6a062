package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vulnissimo/vulnissimo-go/internal/client"
	"github.com/vulnissimo/vulnissimo-go/internal/history"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
	"github.com/vulnissimo/vulnissimo-go/internal/output"
	"github.com/vulnissimo/vulnissimo-go/internal/poller"
	"github.com/vulnissimo/vulnissimo-go/internal/report"
	"github.com/vulnissimo/vulnissimo-go/internal/scandiff"
	"github.com/vulnissimo/vulnissimo-go/internal/target"
)

// ErrScanFailed is returned by the run command when the scan itself failed on
// the service side.
var ErrScanFailed = errors.New("scan failed")

// ErrPollTimedOut is returned by the run command when the poll budget ran out
// before the scan finished.
var ErrPollTimedOut = errors.New("poll budget exhausted before the scan finished")

// App executes parsed commands. All collaborators are injected so tests can
// point it at a demo server and in-memory writers.
type App struct {
	// Client talks to the API. Required.
	Client *client.Client

	// History records scans started by run. Optional.
	History *history.Store

	// Summarizer fetches hosted report pages. Required for report.
	Summarizer *report.Summarizer

	// Logger receives diagnostics. Defaults to no logging.
	Logger logging.Logger

	// Stdout and Stderr receive command output and user-facing messages.
	Stdout io.Writer
	Stderr io.Writer
}

// Run dispatches one parsed invocation.
func (a *App) Run(ctx context.Context, args *Args) error {
	if a.Logger == nil {
		a.Logger = logging.Nop{}
	}

	switch args.Command {
	case CommandRun:
		return a.runScan(ctx, args)
	case CommandGet:
		return a.getScan(ctx, args)
	case CommandReport:
		return a.reportScan(ctx, args)
	case CommandDiff:
		return a.diffScans(ctx, args)
	case CommandHistory:
		return a.listHistory(ctx, args)
	}
	return fmt.Errorf("unknown command %q", args.Command)
}

// runScan starts a scan and polls it to a terminal outcome.
func (a *App) runScan(ctx context.Context, args *Args) error {
	canonical, err := target.Canonicalize(args.Target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", args.Target, err)
	}

	scan, err := a.Client.RunScan(ctx, model.ScanCreate{Target: canonical})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stderr, "Scan started on %s.\n", scan.Target)
	if scan.HTMLResult != "" {
		fmt.Fprintf(a.Stderr, "See live updates at %s.\n", scan.HTMLResult)
	}

	if a.History != nil {
		if err := a.History.Record(ctx, scan); err != nil {
			// History is a convenience; a failed write must not kill the scan.
			a.Logger.Warn("recording scan in history",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	var lastResult *model.ScanResult
	p, err := poller.New(a.Client,
		poller.WithLogger(a.Logger),
		poller.WithAttemptFunc(func(attempt int, result *model.ScanResult) {
			if result == nil {
				return
			}
			lastResult = result
			fmt.Fprintf(a.Stderr, "Scanning... %d%% (%s)\n",
				result.ScanInfo.Progress, result.ScanInfo.Status)
		}))
	if err != nil {
		return err
	}

	outcome, err := p.Poll(ctx, scan.ID, poller.Config{
		Interval:    args.Interval,
		MaxAttempts: args.MaxAttempts,
		Timeout:     args.PollTimeout,
	})
	if err != nil {
		return err
	}

	// Cancelled and rejected polls say nothing about the scan's real state,
	// so the history row keeps its submitted status.
	if a.History != nil && outcome.Kind != poller.OutcomeCancelled && outcome.Kind != poller.OutcomeRejected {
		status := model.StatusCompleted
		errorInfo := ""
		switch outcome.Kind {
		case poller.OutcomeFailed:
			status = model.StatusFailed
			errorInfo = outcome.ErrorInfo
		case poller.OutcomeTimedOut:
			status = outcome.LastStatus
			if status == "" {
				status = model.StatusPending
			}
		}
		if err := a.History.Complete(ctx, scan.ID, status, outcome.Findings, errorInfo, outcome.Attempts); err != nil {
			a.Logger.Warn("completing scan in history",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	switch outcome.Kind {
	case poller.OutcomeSuccess:
		if lastResult == nil {
			return errors.New("success outcome without a result")
		}
		return output.New(a.Stdout, args.OutputFile, args.Format, args.Indent).Output(lastResult)
	case poller.OutcomeFailed:
		return fmt.Errorf("%w: %s", ErrScanFailed, outcome.ErrorInfo)
	case poller.OutcomeTimedOut:
		if outcome.Err != nil {
			return fmt.Errorf("%w (last status %q, %d attempts): %v",
				ErrPollTimedOut, outcome.LastStatus, outcome.Attempts, outcome.Err)
		}
		return fmt.Errorf("%w (last status %q, %d attempts)",
			ErrPollTimedOut, outcome.LastStatus, outcome.Attempts)
	case poller.OutcomeRejected:
		return fmt.Errorf("checking scan status: %w", outcome.Err)
	default:
		return fmt.Errorf("scan polling cancelled: %w", outcome.Err)
	}
}

// getScan fetches and renders the current result of an existing scan.
func (a *App) getScan(ctx context.Context, args *Args) error {
	result, err := a.Client.GetScanResult(ctx, args.ScanID)
	if err != nil {
		return err
	}
	return output.New(a.Stdout, args.OutputFile, args.Format, args.Indent).Output(result)
}

// reportScan summarizes the hosted HTML report of a scan.
func (a *App) reportScan(ctx context.Context, args *Args) error {
	result, err := a.Client.GetScanResult(ctx, args.ScanID)
	if err != nil {
		return err
	}
	if result.HTMLResult == "" {
		return fmt.Errorf("scan %s has no hosted report", args.ScanID)
	}

	summary, err := a.Summarizer.Summarize(ctx, result.HTMLResult)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Stdout, "%s\n", summary.Title)
	fmt.Fprintf(a.Stdout, "Target: %s\n", summary.Target)
	fmt.Fprintf(a.Stdout, "Status: %s\n", summary.Status)
	fmt.Fprintf(a.Stdout, "Findings: %d\n", summary.Total())
	for level := model.RiskCritical; level >= model.RiskInfo; level-- {
		if n := summary.Counts[level]; n > 0 {
			fmt.Fprintf(a.Stdout, "  %s: %d\n", level, n)
		}
	}
	return nil
}

// diffScans compares the findings of two scans.
func (a *App) diffScans(ctx context.Context, args *Args) error {
	base, err := a.Client.GetScanResult(ctx, args.BaseID)
	if err != nil {
		return fmt.Errorf("fetching base scan: %w", err)
	}
	head, err := a.Client.GetScanResult(ctx, args.HeadID)
	if err != nil {
		return fmt.Errorf("fetching head scan: %w", err)
	}

	diff := scandiff.Compare(base, head)
	if args.Format == output.FormatPretty {
		fmt.Fprintf(a.Stdout, "Added: %d, resolved: %d, changed: %d, unchanged: %d\n",
			len(diff.Added), len(diff.Resolved), len(diff.Changed), diff.Unchanged)
		for _, f := range diff.Added {
			fmt.Fprintf(a.Stdout, "+ [%s] %s\n", strings.ToUpper(f.RiskLevel.String()), f.Title)
		}
		for _, f := range diff.Resolved {
			fmt.Fprintf(a.Stdout, "- [%s] %s\n", strings.ToUpper(f.RiskLevel.String()), f.Title)
		}
		for _, c := range diff.Changed {
			fmt.Fprintf(a.Stdout, "~ %s: %s -> %s\n", c.Finding.Title, c.From, c.To)
		}
		return nil
	}

	enc := json.NewEncoder(a.Stdout)
	enc.SetIndent("", strings.Repeat(" ", args.Indent))
	return enc.Encode(diff)
}

// listHistory prints locally recorded scans, newest first.
func (a *App) listHistory(ctx context.Context, args *Args) error {
	if a.History == nil {
		return errors.New("history store not configured")
	}
	entries, err := a.History.List(ctx, args.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.Stdout, "No scans recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.Stdout, "%s  %s  %-9s  %d findings  %s\n",
			e.SubmittedAt.Format(time.RFC3339), e.ID, e.Status, e.Findings, e.Target)
	}
	return nil
}
