// Package scandiff compares two results for the same target, answering "what
// changed since the last scan": new findings, resolved findings, and findings
// whose severity or description moved.
package scandiff

import (
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// Chunk is one fragment of a text diff between two finding descriptions.
type Chunk struct {
	// Type is "added", "removed" or "equal".
	Type string `json:"type"`

	// Text is the fragment content.
	Text string `json:"text"`
}

// RiskChange is a finding present in both scans whose detail moved.
type RiskChange struct {
	// Finding is the head-side version.
	Finding model.Finding `json:"finding"`

	// From and To are the base and head risk levels.
	From model.RiskLevel `json:"from"`
	To   model.RiskLevel `json:"to"`

	// DescriptionDiff is non-empty when the description text changed.
	DescriptionDiff []Chunk `json:"description_diff,omitempty"`
}

// Result is the comparison of two scans of the same target.
type Result struct {
	// Added are findings present only in the head scan.
	Added []model.Finding `json:"added"`

	// Resolved are findings present only in the base scan.
	Resolved []model.Finding `json:"resolved"`

	// Changed are findings in both scans with a different risk level or
	// description.
	Changed []RiskChange `json:"changed"`

	// Unchanged counts findings identical in both scans.
	Unchanged int `json:"unchanged"`
}

// Worse reports whether the head scan is worse than the base: anything added,
// or any severity increase.
func (r *Result) Worse() bool {
	if len(r.Added) > 0 {
		return true
	}
	for _, c := range r.Changed {
		if c.To > c.From {
			return true
		}
	}
	return false
}

// Compare diffs head against base. Findings are matched by their content key
// (title + location) since the service assigns fresh ids per scan.
func Compare(base, head *model.ScanResult) *Result {
	baseByKey := make(map[string]model.Finding, len(base.Findings))
	for _, f := range base.Findings {
		baseByKey[f.Key()] = f
	}

	result := &Result{
		Added:    []model.Finding{},
		Resolved: []model.Finding{},
		Changed:  []RiskChange{},
	}

	seen := make(map[string]bool, len(head.Findings))
	for _, f := range head.Findings {
		key := f.Key()
		seen[key] = true
		old, ok := baseByKey[key]
		if !ok {
			result.Added = append(result.Added, f)
			continue
		}
		if old.RiskLevel == f.RiskLevel && old.Description == f.Description {
			result.Unchanged++
			continue
		}
		change := RiskChange{Finding: f, From: old.RiskLevel, To: f.RiskLevel}
		if old.Description != f.Description {
			change.DescriptionDiff = textDiff(old.Description, f.Description)
		}
		result.Changed = append(result.Changed, change)
	}

	for key, f := range baseByKey {
		if !seen[key] {
			result.Resolved = append(result.Resolved, f)
		}
	}

	// Deterministic ordering for output and tests.
	sortFindings(result.Added)
	sortFindings(result.Resolved)
	sort.Slice(result.Changed, func(i, j int) bool {
		return result.Changed[i].Finding.Key() < result.Changed[j].Finding.Key()
	})
	return result
}

func sortFindings(findings []model.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].RiskLevel != findings[j].RiskLevel {
			return findings[i].RiskLevel > findings[j].RiskLevel
		}
		return findings[i].Key() < findings[j].Key()
	})
}

// textDiff computes a character-level diff between two description texts,
// cleaned up semantically for readability. Equal runs are kept so the caller
// can render context.
func textDiff(base, head string) []Chunk {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(base, head, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := make([]Chunk, 0, len(diffs))
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		case diffmatchpatch.DiffEqual:
			chunkType = "equal"
		}
		chunks = append(chunks, Chunk{Type: chunkType, Text: d.Text})
	}
	return chunks
}
