// Package poller turns a started scan into a terminal result by repeatedly
// querying the service until the scan completes, fails, or the poll budget
// runs out.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vulnissimo/vulnissimo-go/internal/client"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// StatusFetcher is the poller's only collaborator: a point-in-time read of a
// scan job. Implemented by client.Client. Transient delivery failures must be
// wrapped in client.ErrTransport; any other error is treated as a permanent
// rejection and ends the poll.
type StatusFetcher interface {
	GetScanResult(ctx context.Context, scanID uuid.UUID) (*model.ScanResult, error)
}

// Config bounds a single Poll call. Interval, MaxAttempts and Timeout are
// independent: whichever is hit first stops polling.
type Config struct {
	// Interval is the sleep between consecutive status checks.
	Interval time.Duration

	// MaxAttempts is the maximum number of status checks, counting the
	// first. Must be at least 1.
	MaxAttempts int

	// Timeout is the wall-clock budget for the whole poll, measured from
	// the first status check.
	Timeout time.Duration
}

// DefaultConfig matches the service's recommended polling cadence: a check
// every 2 seconds for up to 30 minutes.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		MaxAttempts: 900,
		Timeout:     30 * time.Minute,
	}
}

func (c Config) validate() error {
	if c.Interval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.Timeout <= 0 {
		return errors.New("poll timeout must be positive")
	}
	return nil
}

// OutcomeKind says how a poll ended.
type OutcomeKind int

const (
	// OutcomeSuccess means the scan completed; Outcome.Findings holds the
	// result, possibly empty: a clean target is still a success.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailed means the service reported the scan itself failed.
	// Terminal; never retried.
	OutcomeFailed

	// OutcomeTimedOut means the poll budget was exhausted while the scan
	// was still pending or running (or unreachable).
	OutcomeTimedOut

	// OutcomeCancelled means the caller aborted the poll via its context.
	OutcomeCancelled

	// OutcomeRejected means the service rejected a status check with a
	// permanent error (e.g. an unknown scan id or bad credentials). Unlike a
	// transport failure there is no point retrying, so the poll ends on the
	// first such error.
	OutcomeRejected
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	}
	return "unknown"
}

// Outcome is the terminal, immutable record of one poll. Exactly one variant
// is populated, indicated by Kind.
type Outcome struct {
	Kind OutcomeKind

	// Findings is set only on OutcomeSuccess. Never nil on success.
	Findings []model.Finding

	// ErrorInfo is the service's failure detail, set only on OutcomeFailed.
	ErrorInfo string

	// LastStatus is the most recent status observed before the poll ended.
	// Useful for diagnosing timeouts. Empty if no check ever succeeded.
	LastStatus model.ScanStatus

	// Attempts is the number of status checks performed.
	Attempts int

	// Err carries context for non-success outcomes: the last transport
	// error on a timeout, the rejecting error on a rejection, or the
	// context error on cancellation.
	Err error
}

// AttemptFunc observes each completed status check. The result is nil when
// the check failed at the transport level.
type AttemptFunc func(attempt int, result *model.ScanResult)

// Poller polls scans for completion. It holds no mutable state between calls;
// one Poller can serve concurrent Poll invocations over different scans.
type Poller struct {
	fetcher   StatusFetcher
	logger    logging.Logger
	onAttempt AttemptFunc
}

// Option customizes a Poller.
type Option func(*Poller)

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(p *Poller) {
		p.logger = logger.With(logging.Field{Key: "component", Value: "poller"})
	}
}

// WithAttemptFunc registers a callback invoked after every status check,
// letting callers render progress while the poll runs.
func WithAttemptFunc(fn AttemptFunc) Option {
	return func(p *Poller) { p.onAttempt = fn }
}

// New creates a Poller over fetcher.
func New(fetcher StatusFetcher, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("nil status fetcher")
	}
	p := &Poller{fetcher: fetcher, logger: logging.Nop{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Poll queries the scan's status until it reaches a terminal state or the
// budget in cfg is exhausted. Transport failures are transient: they consume
// an attempt but do not end the poll, and the last one is attached to a
// timeout outcome rather than discarded. Any other fetcher error is a
// permanent rejection by the service and ends the poll immediately with
// OutcomeRejected. The returned error is non-nil only for invalid
// configuration; every runtime condition is expressed as an Outcome.
func (p *Poller) Poll(ctx context.Context, scanID uuid.UUID, cfg Config) (*Outcome, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid poll config: %w", err)
	}

	start := time.Now()
	attempts := 0
	var lastStatus model.ScanStatus
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return p.cancelled(scanID, attempts, lastStatus, err), nil
		}

		result, err := p.fetcher.GetScanResult(ctx, scanID)
		attempts++

		if err != nil {
			// A context abort surfaces through the fetcher as an error;
			// report it as cancellation, not as a flaky transport.
			if ctx.Err() != nil {
				return p.cancelled(scanID, attempts, lastStatus, ctx.Err()), nil
			}
			if !client.IsTransport(err) {
				p.logger.Warn("status check rejected",
					logging.Field{Key: "scan_id", Value: scanID.String()},
					logging.Field{Key: "attempt", Value: attempts},
					logging.Field{Key: "error", Value: err.Error()})
				if p.onAttempt != nil {
					p.onAttempt(attempts, nil)
				}
				return &Outcome{
					Kind:       OutcomeRejected,
					LastStatus: lastStatus,
					Attempts:   attempts,
					Err:        err,
				}, nil
			}
			lastErr = err
			p.logger.Warn("status check failed",
				logging.Field{Key: "scan_id", Value: scanID.String()},
				logging.Field{Key: "attempt", Value: attempts},
				logging.Field{Key: "error", Value: err.Error()})
			if p.onAttempt != nil {
				p.onAttempt(attempts, nil)
			}
		} else {
			lastStatus = result.ScanInfo.Status
			p.logger.Debug("status check",
				logging.Field{Key: "scan_id", Value: scanID.String()},
				logging.Field{Key: "attempt", Value: attempts},
				logging.Field{Key: "status", Value: string(lastStatus)},
				logging.Field{Key: "progress", Value: result.ScanInfo.Progress})
			if p.onAttempt != nil {
				p.onAttempt(attempts, result)
			}

			switch lastStatus {
			case model.StatusCompleted:
				findings := result.Findings
				if findings == nil {
					findings = []model.Finding{}
				}
				return &Outcome{
					Kind:       OutcomeSuccess,
					Findings:   findings,
					LastStatus: lastStatus,
					Attempts:   attempts,
				}, nil
			case model.StatusFailed:
				return &Outcome{
					Kind:       OutcomeFailed,
					ErrorInfo:  result.Error,
					LastStatus: lastStatus,
					Attempts:   attempts,
				}, nil
			}
		}

		if attempts >= cfg.MaxAttempts || time.Since(start) >= cfg.Timeout {
			p.logger.Warn("poll budget exhausted",
				logging.Field{Key: "scan_id", Value: scanID.String()},
				logging.Field{Key: "attempts", Value: attempts},
				logging.Field{Key: "last_status", Value: string(lastStatus)})
			return &Outcome{
				Kind:       OutcomeTimedOut,
				LastStatus: lastStatus,
				Attempts:   attempts,
				Err:        lastErr,
			}, nil
		}

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return p.cancelled(scanID, attempts, lastStatus, ctx.Err()), nil
		case <-timer.C:
		}
	}
}

func (p *Poller) cancelled(scanID uuid.UUID, attempts int, lastStatus model.ScanStatus, err error) *Outcome {
	p.logger.Info("poll cancelled",
		logging.Field{Key: "scan_id", Value: scanID.String()},
		logging.Field{Key: "attempts", Value: attempts})
	return &Outcome{
		Kind:       OutcomeCancelled,
		LastStatus: lastStatus,
		Attempts:   attempts,
		Err:        err,
	}
}
