package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"citypulse/internal/models"
)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"score": func(v float64) string { return fmt.Sprintf("%+.3f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "Unknown"
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
	"day":   func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"cell":  cell,
	"bands": func() []models.Band { return models.Bands },
}

var markdownTmpl = template.Must(template.New("run").Funcs(funcs).Parse(`# City Sentiment Analysis Report

**Run:** {{.Run.ID}}  
**Status:** {{.Run.Status}}{{if .Run.Cancelled}} (cancelled){{end}}  
**Started:** {{date .Run.StartedAt}}  
{{if .Run.FinishedAt}}**Finished:** {{date .Run.FinishedAt}}  
{{end}}**Analysis Period:** {{day .Run.Window.Start}} to {{day .Run.Window.End}} ({{.Run.Request.TimeWindowMonths}} months)  

## Scope of Analysis

**Cities Analyzed:** {{join .Run.Request.Cities ", "}}  
**Evaluation Pillars:** {{join .Run.Request.Pillars ", "}}  
{{- if .Run.Error}}

**Error:** {{.Run.Error}}
{{- end}}

## Summary

| Metric | Value |
|--------|-------|
| Total Items | {{.Summary.TotalItems}} |
| Scored Items | {{.Summary.ScoredItems}} |
| Mean Sentiment | {{score .Summary.MeanSentiment}} |
| Positive Share | {{pct .Summary.PositivePercent}} |
| Cities With Data | {{.Summary.CitiesWithData}} |
| Pillars With Data | {{.Summary.PillarsWithData}} |

| Band | Items |
|------|-------|
{{- range bands}}
| {{.}} | {{index $.Summary.BandCounts .}} |
{{- end}}

## Sentiment by City

| City | Mean Sentiment | Items |
|------|----------------|-------|
{{- range .Run.Aggregates.ByCity}}
| {{cell .City}} | {{score .MeanSentiment}} | {{.Count}} |
{{- end}}

## Sentiment by Pillar

| Pillar | Mean Sentiment | Items |
|--------|----------------|-------|
{{- range .Run.Aggregates.ByPillar}}
| {{cell .Pillar}} | {{score .MeanSentiment}} | {{.Count}} |
{{- end}}

## Sentiment by City and Pillar

| City | Pillar | Mean Sentiment | Items |
|------|--------|----------------|-------|
{{- range .Run.Aggregates.ByCityPillar}}
| {{cell .City}} | {{cell .Pillar}} | {{score .MeanSentiment}} | {{.Count}} |
{{- end}}

## Sentiment by Source and City

| Source | City | Mean Sentiment | Items |
|--------|------|----------------|-------|
{{- range .Run.Aggregates.BySourceCity}}
| {{cell .Source}} | {{cell .City}} | {{score .MeanSentiment}} | {{.Count}} |
{{- end}}
{{- if .Run.Warnings}}

## Warnings
{{range .Run.Warnings}}
- {{if .City}}[{{.City}}{{if .Source}}/{{.Source}}{{end}}] {{end}}{{if .Query}}query "{{.Query}}": {{end}}{{.Message}}
{{- end}}
{{- end}}
{{- with .Research}}

---

## Detailed Analysis

**Generated:** {{date .GeneratedAt}}  
**Model:** {{.Model}}  
**Research Period:** {{.Period}}  

{{.Content}}

| Attribute | Value |
|-----------|-------|
| Cities Count | {{len .Cities}} |
| Pillars Count | {{len .Pillars}} |
| Prompt Length | {{.PromptLength}} characters |
| Response Length | {{.ResponseLength}} characters |
| Status | {{.Status}} |
{{- end}}
`))

type markdownData struct {
	Run      *models.Run
	Summary  models.Summary
	Research *models.Research
}

// Markdown renders a stored run, and research when it is not nil.
func Markdown(run *models.Run, research *models.Research) (string, error) {
	if run == nil {
		return "", fmt.Errorf("render markdown: nil run")
	}
	summary := run.Aggregates.Summary
	if summary.BandCounts == nil {
		summary.BandCounts = map[models.Band]int{}
	}
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, markdownData{Run: run, Summary: summary, Research: research}); err != nil {
		return "", fmt.Errorf("render markdown for run %s: %w", run.ID, err)
	}
	return buf.String(), nil
}

// cell keeps free text from breaking a markdown table row.
func cell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
