// Package output renders a scan result to the console or a file, as JSON or a
// human-readable summary.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// Format selects the rendering of a scan result.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// ParseFormat converts a CLI flag value into a Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatJSON, FormatPretty:
		return Format(raw), nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or pretty)", raw)
}

// Outputter renders the result of a scan.
type Outputter interface {
	Output(result *model.ScanResult) error
}

// JSONOutputter writes the scan result as indented JSON to w.
type JSONOutputter struct {
	w      io.Writer
	indent int
}

// NewJSONOutputter creates a JSONOutputter. indent is the number of spaces per
// nesting level.
func NewJSONOutputter(w io.Writer, indent int) *JSONOutputter {
	return &JSONOutputter{w: w, indent: indent}
}

func (o *JSONOutputter) Output(result *model.ScanResult) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", strings.Repeat(" ", o.indent))
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	return nil
}

// PrettyOutputter writes a human-readable summary to w: scan header, finding
// counts per risk level, then findings ordered worst-first.
type PrettyOutputter struct {
	w io.Writer
}

// NewPrettyOutputter creates a PrettyOutputter.
func NewPrettyOutputter(w io.Writer) *PrettyOutputter {
	return &PrettyOutputter{w: w}
}

func (o *PrettyOutputter) Output(result *model.ScanResult) error {
	fmt.Fprintf(o.w, "Scan %s\n", result.ID)
	fmt.Fprintf(o.w, "Target: %s\n", result.Target)
	fmt.Fprintf(o.w, "Status: %s (%d%%)\n", result.ScanInfo.Status, result.ScanInfo.Progress)
	if result.Error != "" {
		fmt.Fprintf(o.w, "Error: %s\n", result.Error)
	}
	if result.HTMLResult != "" {
		fmt.Fprintf(o.w, "Report: %s\n", result.HTMLResult)
	}

	if len(result.Findings) == 0 {
		fmt.Fprintln(o.w, "No findings.")
		return nil
	}

	counts := model.CountByRisk(result.Findings)
	var parts []string
	for level := model.RiskCritical; level >= model.RiskInfo; level-- {
		if n := counts[level]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, level))
		}
	}
	fmt.Fprintf(o.w, "Findings: %d (%s)\n\n", len(result.Findings), strings.Join(parts, ", "))

	findings := make([]model.Finding, len(result.Findings))
	copy(findings, result.Findings)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RiskLevel > findings[j].RiskLevel
	})

	for _, f := range findings {
		fmt.Fprintf(o.w, "[%s] %s\n", strings.ToUpper(f.RiskLevel.String()), f.Title)
		if f.Location != "" {
			fmt.Fprintf(o.w, "  at %s\n", f.Location)
		}
		if f.CWE != "" {
			fmt.Fprintf(o.w, "  %s\n", f.CWE)
		}
		if f.Description != "" {
			fmt.Fprintf(o.w, "  %s\n", f.Description)
		}
	}
	return nil
}

// FileOutputter writes the rendered result to a file, creating or truncating
// it. The rendering is delegated to the wrapped format.
type FileOutputter struct {
	path   string
	format Format
	indent int
}

// NewFileOutputter creates a FileOutputter for path.
func NewFileOutputter(path string, format Format, indent int) *FileOutputter {
	return &FileOutputter{path: path, format: format, indent: indent}
}

func (o *FileOutputter) Output(result *model.ScanResult) error {
	f, err := os.Create(o.path)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}

	var inner Outputter
	switch o.format {
	case FormatPretty:
		inner = NewPrettyOutputter(f)
	default:
		inner = NewJSONOutputter(f, o.indent)
	}
	if err := inner.Output(result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// New picks an Outputter: file-backed when path is non-empty, console (w)
// otherwise.
func New(w io.Writer, path string, format Format, indent int) Outputter {
	if path != "" {
		return NewFileOutputter(path, format, indent)
	}
	if format == FormatPretty {
		return NewPrettyOutputter(w)
	}
	return NewJSONOutputter(w, indent)
}
