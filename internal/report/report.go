package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/spec"
)

// Entry is one (label, artifact-or-absent) line in the aggregate report.
type Entry struct {
	Label   string
	Link    string
	Present bool
}

// Aggregate is the rendered summary document for one run. It is written once
// after the last stage and never retried.
type Aggregate struct {
	Title        string
	RunID        string
	Status       engine.RunStatus
	DashboardURL string
	Entries      []Entry
	GeneratedOn  time.Time
	TimeLayout   string
	Path         string
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
</head>
<body>
<h1>{{ .Title }}</h1>
<p>Run {{ .RunID }} finished with status <strong>{{ .Status }}</strong>.</p>
<h2>Artifacts</h2>
<ul>
{{- range .Entries }}
{{- if .Present }}
<li><a href="{{ .Link }}">{{ .Label }}</a></li>
{{- else }}
<li>{{ .Label }}: absent</li>
{{- end }}
{{- end }}
</ul>
{{- if .DashboardURL }}
<p><a href="{{ .DashboardURL }}">Security dashboard</a></p>
{{- end }}
<p>Generated {{ .GeneratedOn | date .TimeLayout }}</p>
</body>
</html>
`

// Generate collects every artifact the run declared, records absent ones, and
// renders the aggregate report into outPath. Missing artifacts never fail the
// generation.
func Generate(run *engine.PipelineRun, p *spec.Pipeline, outPath string) (*Aggregate, error) {
	agg := &Aggregate{
		Title:        fmt.Sprintf("%s security scan report", p.Name),
		RunID:        run.RunID,
		Status:       run.Status,
		DashboardURL: p.DashboardURL,
		GeneratedOn:  time.Now().UTC(),
		TimeLayout:   internal.ReportTimeLayout,
		Path:         outPath,
	}
	for _, ref := range run.Artifacts() {
		agg.Entries = append(agg.Entries, Entry{
			Label:   ref.Label,
			Link:    filepath.ToSlash(ref.ArchivePath),
			Present: ref.Present,
		})
	}

	tmpl, err := template.New("report").Funcs(sprig.HtmlFuncMap()).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating aggregate report: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, agg); err != nil {
		return nil, fmt.Errorf("rendering aggregate report: %w", err)
	}
	return agg, nil
}
