// Package cli parses command-line arguments and executes the vulnissimo
// commands. Parsing is deterministic and reads nothing from the process
// environment, so tests can pass arbitrary slices.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vulnissimo/vulnissimo-go/internal/output"
)

// Command is one of the CLI's subcommands.
type Command string

const (
	CommandRun     Command = "run"
	CommandGet     Command = "get"
	CommandReport  Command = "report"
	CommandDiff    Command = "diff"
	CommandHistory Command = "history"
)

// Args are the parsed command-line arguments for a single invocation.
type Args struct {
	// Command selects what to do.
	Command Command

	// Target is the URL (or host) to scan. Used by run.
	Target string

	// ScanID identifies an existing scan. Used by get and report.
	ScanID uuid.UUID

	// BaseID and HeadID identify the two scans to compare. Used by diff.
	BaseID uuid.UUID
	HeadID uuid.UUID

	// OutputFile receives the result instead of the console when set.
	OutputFile string

	// Indent is the JSON indentation width.
	Indent int

	// Format selects json or pretty rendering.
	Format output.Format

	// Interval, MaxAttempts and PollTimeout bound the completion poll.
	Interval    time.Duration
	MaxAttempts int
	PollTimeout time.Duration

	// BaseURL and Token override the API endpoint and credential.
	BaseURL string
	Token   string

	// Limit caps how many history entries to list.
	Limit int

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// Usage is the top-level help text.
const Usage = `usage: vulnissimo <command> [flags]

commands:
  run      start a scan and wait for its result
  get      fetch the result of an existing scan
  report   summarize the hosted HTML report of a scan
  diff     compare the findings of two scans
  history  list locally recorded scans
`

// ParseArgs parses a slice of args (without the program name) and returns
// Args. The first element selects the command; the rest are flags.
func ParseArgs(args []string) (*Args, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command\n%s", Usage)
	}

	parsed := &Args{
		Command: Command(args[0]),
		RawArgs: args,
	}

	fs := flag.NewFlagSet("vulnissimo-"+args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		outputFile  = fs.String("output", "", "File to write the result to (default: console)")
		indent      = fs.Int("indent", 2, "Indentation of the JSON output")
		format      = fs.String("format", "json", "Output format: json|pretty")
		baseURL     = fs.String("base-url", "", "API base URL (default: production)")
		token       = fs.String("token", "", "API token")
		target      string
		scanID      string
		baseID      string
		headID      string
		interval    time.Duration
		maxAttempts int
		pollTimeout time.Duration
		limit       int
	)

	switch parsed.Command {
	case CommandRun:
		fs.StringVar(&target, "target", "", "URL to scan (required)")
		fs.DurationVar(&interval, "interval", 2*time.Second, "Delay between status checks")
		fs.IntVar(&maxAttempts, "max-attempts", 900, "Maximum number of status checks")
		fs.DurationVar(&pollTimeout, "poll-timeout", 30*time.Minute, "Wall-clock budget for polling")
	case CommandGet, CommandReport:
		fs.StringVar(&scanID, "scan", "", "Scan ID (required)")
	case CommandDiff:
		fs.StringVar(&baseID, "base", "", "Base scan ID (required)")
		fs.StringVar(&headID, "head", "", "Head scan ID (required)")
	case CommandHistory:
		fs.IntVar(&limit, "limit", 20, "Number of entries to list")
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", args[0], Usage)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	parsed.OutputFile = *outputFile
	parsed.Indent = *indent
	parsed.BaseURL = *baseURL
	parsed.Token = *token
	parsed.Interval = interval
	parsed.MaxAttempts = maxAttempts
	parsed.PollTimeout = pollTimeout
	parsed.Limit = limit

	parsedFormat, err := output.ParseFormat(*format)
	if err != nil {
		return nil, err
	}
	parsed.Format = parsedFormat

	switch parsed.Command {
	case CommandRun:
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("missing required -target argument")
		}
		parsed.Target = target
	case CommandGet, CommandReport:
		id, err := parseScanID(scanID, "-scan")
		if err != nil {
			return nil, err
		}
		parsed.ScanID = id
	case CommandDiff:
		base, err := parseScanID(baseID, "-base")
		if err != nil {
			return nil, err
		}
		head, err := parseScanID(headID, "-head")
		if err != nil {
			return nil, err
		}
		parsed.BaseID = base
		parsed.HeadID = head
	}

	return parsed, nil
}

func parseScanID(raw, flagName string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, fmt.Errorf("missing required %s argument", flagName)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid scan id %q: %w", raw, err)
	}
	return id, nil
}
