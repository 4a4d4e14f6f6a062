package model

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the severity bucket assigned to a finding. Levels are ordered:
// Info < Low < Medium < High < Critical.
type RiskLevel int

const (
	RiskInfo RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"info", "low", "medium", "high", "critical"}

func (r RiskLevel) String() string {
	if r < RiskInfo || r > RiskCritical {
		return "unknown"
	}
	return riskNames[r]
}

// ParseRiskLevel converts a wire value into a RiskLevel.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	for i, name := range riskNames {
		if name == raw {
			return RiskLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", raw)
}

// AtLeast reports whether r is as severe as other or more so.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r >= other
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Finding is one detected issue reported by the scanner. Immutable once
// produced by the service.
type Finding struct {
	// ID is a stable identifier for this finding within its scan.
	ID string `json:"id,omitempty"`

	// Title is a short human-readable name for the issue
	// (e.g. "Reflected XSS in search parameter").
	Title string `json:"title"`

	// RiskLevel is the severity bucket for this finding.
	RiskLevel RiskLevel `json:"risk_level"`

	// Description explains the issue and its impact.
	Description string `json:"description,omitempty"`

	// CWE is the Common Weakness Enumeration id, when the service maps one
	// (e.g. "CWE-79").
	CWE string `json:"cwe,omitempty"`

	// Location identifies where the issue was observed (URL, endpoint,
	// parameter).
	Location string `json:"location,omitempty"`

	// Evidence contains the raw value that triggered the finding
	// (request/response excerpt, matched payload...).
	Evidence string `json:"evidence,omitempty"`

	// Metadata contains free-form service-specific detail.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Key returns a stable identity for diffing findings across scans of the same
// target. The service's ID is per-scan, so identity is derived from content.
func (f Finding) Key() string {
	return f.Title + "|" + f.Location
}

// CountByRisk tallies findings per risk level.
func CountByRisk(findings []Finding) map[RiskLevel]int {
	counts := make(map[RiskLevel]int)
	for _, f := range findings {
		counts[f.RiskLevel]++
	}
	return counts
}
