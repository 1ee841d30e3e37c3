package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	texttemplate "text/template"
)

type messageTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html><body style="font-family: sans-serif; color: #1f2933;">
{{block "content" .}}{{end}}
<p style="color: #7b8794; font-size: 12px;">Sent by Guardpost operations.</p>
</body></html>`

var templates = map[EventType]messageTemplate{
	EventIncidentCreated: mustTemplate(
		`[{{upper .severity}}] New incident: {{.title}}`,
		`<h2>New incident reported</h2>
<table>
<tr><td>Title</td><td>{{.title}}</td></tr>
<tr><td>Type</td><td>{{.type}}</td></tr>
<tr><td>Severity</td><td>{{.severity}}</td></tr>
<tr><td>Location</td><td>{{.location}}</td></tr>
<tr><td>Occurred</td><td>{{.occurred_at}}</td></tr>
</table>
<p>{{.description}}</p>`,
	),
	EventUserRegistered: mustTemplate(
		`Welcome to Guardpost, {{.first_name}}`,
		`<h2>Welcome, {{.first_name}} {{.last_name}}</h2>
<p>An account with the username <strong>{{.username}}</strong> and the role {{.role}} has been created for you.</p>
<p>Ask your administrator for your initial password.</p>`,
	),
	EventPatrolCompleted: mustTemplate(
		`Patrol completed{{with .property}}: {{.}}{{end}}`,
		`<h2>Patrol completed</h2>
<table>
<tr><td>Officer</td><td>{{.officer}}</td></tr>
<tr><td>Started</td><td>{{.started_at}}</td></tr>
<tr><td>Ended</td><td>{{.ended_at}}</td></tr>
<tr><td>Checkpoints</td><td>{{.checkpoint_count}}</td></tr>
</table>
{{with .notes}}<p>{{.}}</p>{{end}}`,
	),
	EventAppointmentScheduled: mustTemplate(
		`Appointment scheduled: {{.title}}`,
		`<h2>{{.title}}</h2>
<p>Scheduled for {{.scheduled_at}} ({{.duration_minutes}} minutes).</p>
{{with .notes}}<p>{{.}}</p>{{end}}`,
	),
}

var genericTemplate = mustTemplate(
	`Guardpost notification: {{.Event}}`,
	`<h2>{{.Event}}</h2>
<table>
{{range .Fields}}<tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
{{end}}</table>`,
)

func mustTemplate(subject, body string) messageTemplate {
	funcs := texttemplate.FuncMap{"upper": upper}
	base := template.Must(template.New("layout").Parse(layout))
	return messageTemplate{
		subject: texttemplate.Must(texttemplate.New("subject").Funcs(funcs).Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.Must(base.Clone()).New("content").Parse(body)),
	}
}

func upper(v any) string {
	return strings.ToUpper(fmt.Sprint(v))
}

type field struct {
	Key   string
	Value any
}

type genericData struct {
	Event  EventType
	Fields []field
}

// Render produces the subject and HTML body for event. Unknown events use a
// generic table of the payload, keys in sorted order.
func Render(event EventType, payload Payload) (string, string, error) {
	tmpl, ok := templates[event]
	var data any = map[string]any(payload)
	if !ok {
		tmpl = genericTemplate
		data = genericData{Event: event, Fields: sortedFields(payload)}
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject.String(), body.String(), nil
}

func sortedFields(payload Payload) []field {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]field, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, field{Key: key, Value: payload[key]})
	}
	return fields
}
