// Package report assembles findings into deliverable reports, rendered as
// an HTML page or an action-tracking workbook.
package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"pciassist/internal/analysis"
	"pciassist/internal/logging"
)

// Report is the deliverable for one analyzed workbook.
type Report struct {
	ID         uuid.UUID
	SourceFile string
	Generated  time.Time
	Findings   []analysis.Finding
}

// Build wraps findings into a Report. An empty finding list yields a single
// placeholder so the report is never blank.
func Build(findings []analysis.Finding, sourceFile string) Report {
	if len(findings) == 0 {
		findings = []analysis.Finding{{
			Title:          "No Findings",
			Category:       "N/A",
			Observation:    "N/A",
			Recommendation: "No analyzable observations were found in the uploaded file.",
			Actions:        "N/A",
		}}
	}
	r := Report{
		ID:         uuid.New(),
		SourceFile: sourceFile,
		Generated:  time.Now(),
		Findings:   findings,
	}
	logging.Get(logging.CategoryReport).Infow("report built",
		"report_id", r.ID, "source", sourceFile, "findings", len(findings))
	return r
}

// ============================================================================
// HTML RENDERING
// ============================================================================

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"actionLines": actionLines,
	"add":         func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Gap Analysis Report</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; color: #1a1a1a; }
.finding { border: 1px solid #ccc; border-radius: 6px; padding: 1em 1.5em; margin-bottom: 1.5em; }
.finding h2 { margin-top: 0; }
.category { color: #555; font-style: italic; }
.label { font-weight: bold; }
</style>
</head>
<body>
<h1>Gap Analysis Report</h1>
<p>Source: {{.SourceFile}} &mdash; Report {{.ID}} &mdash; {{.Generated.Format "2006-01-02 15:04"}}</p>
{{range $i, $f := .Findings}}<div class="finding">
<h2>Finding #{{add $i}}: {{$f.Title}}</h2>
<p class="category">{{$f.Category}}</p>
<p><span class="label">Observation:</span> {{$f.Observation}}</p>
<p><span class="label">Recommendation:</span> {{$f.Recommendation}}</p>
<p class="label">Required Actions:</p>
<ol>
{{range actionLines $f.Actions}}<li>{{.}}</li>
{{end}}</ol>
</div>
{{end}}</body>
</html>
`))

// RenderHTML writes the report as a standalone HTML page. All finding text
// is template-escaped.
func RenderHTML(w io.Writer, r Report) error {
	if err := htmlTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// actionLines splits the actions text into list items, dropping leading
// "N." numbering since the list renders its own.
func actionLines(actions string) []string {
	var lines []string
	for _, line := range strings.Split(actions, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, stripNumbering(line))
	}
	if len(lines) == 0 {
		lines = []string{"N/A"}
	}
	return lines
}

func stripNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	// Strip only "N. " numbering; dotted identifiers like "3.4.1" stay.
	if i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' ' {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// ============================================================================
// EXCEL RENDERING
// ============================================================================

const actionSheet = "Action Report"

// RenderExcel writes the report as an action-tracking workbook with one row
// per finding. The Description column concatenates observation,
// recommendation, and required actions into a single tracking narrative.
func RenderExcel(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", actionSheet); err != nil {
		return fmt.Errorf("render excel report: %w", err)
	}
	if err := f.SetSheetRow(actionSheet, "A1", &[]string{"Title", "Description", "Category"}); err != nil {
		return fmt.Errorf("render excel report: %w", err)
	}

	for i, finding := range r.Findings {
		row := []string{finding.Title, trackingDescription(finding), finding.Category}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("render excel report: %w", err)
		}
		if err := f.SetSheetRow(actionSheet, cell, &row); err != nil {
			return fmt.Errorf("render excel report: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("render excel report: %w", err)
	}
	return nil
}

func trackingDescription(f analysis.Finding) string {
	return "Observation:\n" + f.Observation +
		"\n\nRecommendation:\n" + f.Recommendation +
		"\n\nAction Required:\n" + f.Actions
}
