// Package report renders the pass/fail summary of a rescue run.
// Rendering is a pure function of the attempt history; the only side
// effect lives in Write.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// FileName is the report artifact written into the project root
const FileName = "bugrescue_report.html"

// maxDetection caps the error text shown in the audit table
const maxDetection = 120

const reportCSS = `body{font-family:'Segoe UI',sans-serif;background:#1e1e1e;color:#d4d4d4;padding:20px;max-width:1000px;margin:0 auto} h1{color:#4ec9b0;border-bottom:1px solid #3c3c3c} .card{background:#252526;border:1px solid #3c3c3c;padding:15px;margin-bottom:20px;border-radius:6px} table{width:100%;border-collapse:collapse} th,td{padding:10px;border-bottom:1px solid #3c3c3c;text-align:left} .success{color:#6a9955} .fail{color:#f44747} .warn{color:#cca700}`

var reportTemplate = template.Must(template.New("report").Parse(`<html><head><title>BugRescue Report</title><style>{{.CSS}}</style></head>
<body>
    <h1>&#128030; BugRescue Audit Report</h1>
    <div class="card" style="display:flex;gap:20px;text-align:center">
        <div style="flex:1"><h2 class="success">{{.Passed}}</h2>Fixed</div>
        <div style="flex:1"><h2 class="fail">{{.Failed}}</h2>Failed</div>
        <div style="flex:1"><h2>{{.Total}}</h2>Total</div>
    </div>
    <div class="card">
        <h3>Audit Log ({{.Timestamp}}){{if .DryRun}} &mdash; dry run, no files modified{{end}}</h3>
        <table><tr><th>File</th><th>Status</th><th>Attempts</th><th>Backups</th><th>Detection</th></tr>
{{- range .Rows}}
        <tr><td>{{.File}}</td><td class="{{.Class}}"><strong>{{.Status}}</strong></td><td>{{.Attempts}}</td><td>{{.Backups}}</td><td>{{.Detection}}</td></tr>
{{- end}}
        </table>
    </div>
{{- if .Errors}}
    <div class="card">
        <h3>Classified Errors</h3>
        <table><tr><th>File</th><th>Attempt</th><th>Kind</th><th>Detail</th></tr>
{{- range .Errors}}
        <tr><td>{{.File}}</td><td>{{.Attempt}}</td><td class="warn">{{.Kind}}</td><td>{{.Detail}}</td></tr>
{{- end}}
        </table>
    </div>
{{- end}}
</body></html>
`))

type row struct {
	File      string
	Status    domain.TargetStatus
	Class     string
	Attempts  int
	Backups   int
	Detection string
}

type errorRow struct {
	File    string
	Attempt int
	Kind    domain.ErrorKind
	Detail  string
}

type page struct {
	CSS       template.CSS
	Passed    int
	Failed    int
	Total     int
	Timestamp string
	DryRun    bool
	Rows      []row
	Errors    []errorRow
}

// Render produces the HTML report for a run summary
func Render(summary *domain.RunSummary) ([]byte, error) {
	p := page{
		CSS:       template.CSS(reportCSS),
		Passed:    summary.Passed(),
		Failed:    summary.Failed(),
		Total:     len(summary.Targets),
		Timestamp: summary.FinishedAt.Format("2006-01-02 15:04:05"),
		DryRun:    summary.DryRun,
	}

	for _, t := range summary.Targets {
		detection := t.Detection
		if len(detection) > maxDetection {
			detection = detection[:maxDetection]
		}
		p.Rows = append(p.Rows, row{
			File:      filepath.Base(t.Path),
			Status:    t.Status,
			Class:     statusClass(t.Status),
			Attempts:  len(t.Attempts),
			Backups:   t.Backups,
			Detection: detection,
		})

		// Every classified error appears in the report
		for _, a := range t.Attempts {
			if a.ErrorKind == domain.ErrNone {
				continue
			}
			detail := a.ErrorText
			if len(detail) > maxDetection {
				detail = detail[:maxDetection]
			}
			p.Errors = append(p.Errors, errorRow{
				File:    filepath.Base(t.Path),
				Attempt: a.Number,
				Kind:    a.ErrorKind,
				Detail:  detail,
			})
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the report and writes it into the project root,
// returning the absolute path of the artifact
func Write(summary *domain.RunSummary, root string) (string, error) {
	data, err := Render(summary)
	if err != nil {
		return "", err
	}

	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func statusClass(s domain.TargetStatus) string {
	switch s {
	case domain.StatusClean, domain.StatusFixed:
		return "success"
	case domain.StatusFailed:
		return "fail"
	default:
		return "warn"
	}
}
