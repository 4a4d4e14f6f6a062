package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a scan job as reported by the service.
type ScanStatus string

const (
	StatusPending   ScanStatus = "pending"
	StatusRunning   ScanStatus = "running"
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
)

// Terminal reports whether no further status changes can occur for this scan.
func (s ScanStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseScanStatus converts a wire value into a ScanStatus.
func ParseScanStatus(raw string) (ScanStatus, error) {
	switch ScanStatus(raw) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return ScanStatus(raw), nil
	}
	return "", fmt.Errorf("unknown scan status %q", raw)
}

// ScanCreate is the request body for submitting a new scan.
type ScanCreate struct {
	// Target is the URL or hostname to scan.
	Target string `json:"target"`

	// Options contains optional scan parameters (e.g., depth, timeout).
	Options map[string]string `json:"options,omitempty"`
}

// Scan is the service's acknowledgement of an accepted scan request.
type Scan struct {
	// ID is the unique identifier for this scan job. It is the handle
	// used for all subsequent status queries.
	ID uuid.UUID `json:"id"`

	// Target is the canonicalized target the service will scan.
	Target string `json:"target"`

	// HTMLResult is the URL of the hosted live report page for this scan.
	HTMLResult string `json:"html_result,omitempty"`

	// SubmittedAt is when the scan was accepted.
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScanInfo is the point-in-time progress portion of a scan result.
type ScanInfo struct {
	// Status indicates the current state of the scan.
	Status ScanStatus `json:"status"`

	// Progress is a completion estimate in [0 .. 100].
	Progress int `json:"progress"`

	// SubmittedAt is when the scan was submitted.
	SubmittedAt time.Time `json:"submitted_at"`

	// EndedAt is when the scan reached a terminal status (if it has).
	EndedAt *time.Time `json:"ended_at,omitempty"`
}

// ScanResult is a point-in-time read of a scan job: status plus whatever
// output exists so far. Findings are authoritative only once Status is
// completed; Error is populated only when Status is failed.
type ScanResult struct {
	// ID is the unique identifier for this scan job.
	ID uuid.UUID `json:"id"`

	// Target is the target URL that was scanned.
	Target string `json:"target"`

	// ScanInfo carries status and progress.
	ScanInfo ScanInfo `json:"scan_info"`

	// Findings contains detected issues. An empty slice on a completed
	// scan is a valid result (the target was clean).
	Findings []Finding `json:"findings,omitempty"`

	// Error contains the service's failure detail when the scan failed.
	Error string `json:"error,omitempty"`

	// HTMLResult is the URL of the hosted live report page.
	HTMLResult string `json:"html_result,omitempty"`

	// Meta contains any additional metadata about the scan.
	Meta map[string]any `json:"meta,omitempty"`
}
