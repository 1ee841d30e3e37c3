package summarizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var incidentActions = map[string][]string{
	"low": {
		"Record the incident in the daily activity log",
		"Review at the next shift briefing",
	},
	"medium": {
		"Document the incident with photos and witness statements",
		"Notify the property contact",
		"Increase patrol frequency at the location for the next 48 hours",
	},
	"high": {
		"Notify the shift supervisor immediately",
		"Document the incident with photos and witness statements",
		"Notify the property contact",
		"Secure the affected area until it has been reviewed",
	},
	"critical": {
		"Contact emergency services if anyone is at risk",
		"Notify the shift supervisor and operations manager immediately",
		"Secure the scene and preserve evidence",
		"Notify the property contact",
	},
}

// FallbackIncident builds a deterministic summary from the input alone.
func FallbackIncident(in IncidentInput) IncidentSummary {
	priority := strings.ToLower(strings.TrimSpace(in.Severity))
	if _, ok := incidentActions[priority]; !ok {
		priority = "medium"
	}

	kind := strings.TrimSpace(in.Type)
	if kind == "" {
		kind = "Security"
	}
	assessment := fmt.Sprintf("%s incident reported at %s with %s severity. Automated analysis was unavailable; a supervisor should review the report.",
		capitalize(kind), orUnset(in.Location), priority)

	return IncidentSummary{
		RiskAssessment:     assessment,
		RecommendedActions: append([]string(nil), incidentActions[priority]...),
		Priority:           priority,
		Source:             SourceFallback,
	}
}

// FallbackPatrol builds a deterministic summary from the input alone.
func FallbackPatrol(in PatrolInput) PatrolSummary {
	count := len(in.Checkpoints)
	summary := fmt.Sprintf("Patrol at %s covered %d checkpoint%s in %d minutes.",
		orUnset(in.Location), count, plural(count), in.DurationMinutes)

	var insights []string
	if count > 0 {
		insights = append(insights, "Checkpoints visited: "+strings.Join(in.Checkpoints, ", "))
		if in.DurationMinutes > 0 {
			insights = append(insights, fmt.Sprintf("Average of %.1f minutes per checkpoint", float64(in.DurationMinutes)/float64(count)))
		}
	} else {
		insights = append(insights, "No checkpoints were recorded for this patrol")
	}

	var recommendations []string
	if count == 0 {
		recommendations = append(recommendations, "Verify the checkpoint scanning equipment and route assignment")
	}
	if in.DurationMinutes > 0 && in.DurationMinutes < 15 {
		recommendations = append(recommendations, "Confirm the full patrol route was covered")
	}
	recommendations = append(recommendations, "Review the patrol log for anomalies at the next shift briefing")

	return PatrolSummary{
		Summary:         summary,
		Insights:        insights,
		Recommendations: recommendations,
		Source:          SourceFallback,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
