package demoserver

import (
	"html/template"
	"sort"

	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// The markup mirrors the hosted report page closely enough for
// internal/report to parse it, which is what the report CLI command and its
// tests exercise.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>Vulnissimo Report</title></head>
<body>
  <h1 class="report-title">Scan report for {{.Target}}</h1>
  <p class="report-target">{{.Target}}</p>
  <span class="report-status">{{.Status}}</span>
  <ul class="risk-summary">
{{- range .Counts}}
    <li data-level="{{.Level}}">{{.Count}}</li>
{{- end}}
  </ul>
{{- range .Findings}}
  <div class="finding" data-level="{{.RiskLevel}}">
    <h2 class="finding-title">{{.Title}}</h2>
    <p class="finding-description">{{.Description}}</p>
  </div>
{{- end}}
</body>
</html>
`))

type reportCount struct {
	Level string
	Count int
}

type reportPageData struct {
	Target   string
	Status   model.ScanStatus
	Counts   []reportCount
	Findings []model.Finding
}

func reportData(result *model.ScanResult) reportPageData {
	counts := model.CountByRisk(result.Findings)
	data := reportPageData{
		Target:   result.Target,
		Status:   result.ScanInfo.Status,
		Findings: result.Findings,
	}
	for level, n := range counts {
		data.Counts = append(data.Counts, reportCount{Level: level.String(), Count: n})
	}
	sort.Slice(data.Counts, func(i, j int) bool { return data.Counts[i].Level < data.Counts[j].Level })
	return data
}
