package summarizer

import (
	"bytes"
	"strings"
	"text/template"
)

const systemPrompt = "You are an operations analyst for a private security company. " +
	"Reply with a single JSON object and nothing else."

var funcs = template.FuncMap{
	"join":    strings.Join,
	"orUnset": orUnset,
}

var incidentPrompt = template.Must(template.New("incident").Funcs(funcs).Parse(
	`Assess the following security incident.

Type: {{.Type}}
Severity reported by the officer: {{orUnset .Severity}}
Location: {{orUnset .Location}}
Description:
{{.Description}}

Respond with JSON of exactly this shape:
{"riskAssessment": "<two or three sentences>", "recommendedActions": ["<action>", ...], "priority": "low|medium|high|critical"}`))

var patrolPrompt = template.Must(template.New("patrol").Funcs(funcs).Parse(
	`Review the following patrol.

Location: {{orUnset .Location}}
Duration: {{.DurationMinutes}} minutes
Checkpoints visited ({{len .Checkpoints}}): {{if .Checkpoints}}{{join .Checkpoints ", "}}{{else}}none{{end}}

Respond with JSON of exactly this shape:
{"summary": "<two or three sentences>", "insights": ["<observation>", ...], "recommendations": ["<recommendation>", ...]}`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
