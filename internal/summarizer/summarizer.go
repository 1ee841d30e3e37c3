// Package summarizer produces incident and patrol summaries with a text
// generation model. Responses are decoded against a strict schema, and any
// failure degrades to a deterministic summary of the same shape.
package summarizer

import (
	"context"
	"time"

	"github.com/guardpost/apiserver/internal/metrics"
	"go.uber.org/zap"
)

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Generator returns the model completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type IncidentInput struct {
	Type        string `json:"type" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=10000"`
	Location    string `json:"location" validate:"max=500"`
	Severity    string `json:"severity" validate:"omitempty,oneof=low medium high critical"`
}

type IncidentSummary struct {
	RiskAssessment     string   `json:"riskAssessment"`
	RecommendedActions []string `json:"recommendedActions"`
	Priority           string   `json:"priority"`
	Source             string   `json:"source"`
}

type PatrolInput struct {
	Location        string   `json:"location" validate:"max=500"`
	Checkpoints     []string `json:"checkpoints" validate:"max=500,dive,max=200"`
	DurationMinutes int      `json:"duration" validate:"gte=0,lte=1440"`
}

type PatrolSummary struct {
	Summary         string   `json:"summary"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Source          string   `json:"source"`
}

// Summarizer never returns an error: generation, timeout or schema failures
// produce the fallback summary instead.
type Summarizer struct {
	generator Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// New returns a Summarizer. A nil generator always uses the fallback.
func New(generator Generator, timeout time.Duration, logger *zap.Logger) *Summarizer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{generator: generator, timeout: timeout, logger: logger}
}

func (s *Summarizer) SummarizeIncident(ctx context.Context, in IncidentInput) IncidentSummary {
	if s.generator != nil {
		summary, err := s.incidentFromModel(ctx, in)
		if err == nil {
			metrics.Summaries.WithLabelValues("incident", SourceAI).Inc()
			return summary
		}
		s.logger.Warn("incident summary fell back", zap.Error(err))
	}
	metrics.Summaries.WithLabelValues("incident", SourceFallback).Inc()
	return FallbackIncident(in)
}

func (s *Summarizer) SummarizePatrol(ctx context.Context, in PatrolInput) PatrolSummary {
	if s.generator != nil {
		summary, err := s.patrolFromModel(ctx, in)
		if err == nil {
			metrics.Summaries.WithLabelValues("patrol", SourceAI).Inc()
			return summary
		}
		s.logger.Warn("patrol summary fell back", zap.Error(err))
	}
	metrics.Summaries.WithLabelValues("patrol", SourceFallback).Inc()
	return FallbackPatrol(in)
}

func (s *Summarizer) incidentFromModel(ctx context.Context, in IncidentInput) (IncidentSummary, error) {
	prompt, err := render(incidentPrompt, in)
	if err != nil {
		return IncidentSummary{}, err
	}
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return IncidentSummary{}, err
	}
	var resp incidentResponse
	if err := decodeStrict(raw, &resp); err != nil {
		return IncidentSummary{}, err
	}
	return IncidentSummary{
		RiskAssessment:     resp.RiskAssessment,
		RecommendedActions: resp.RecommendedActions,
		Priority:           resp.Priority,
		Source:             SourceAI,
	}, nil
}

func (s *Summarizer) patrolFromModel(ctx context.Context, in PatrolInput) (PatrolSummary, error) {
	prompt, err := render(patrolPrompt, in)
	if err != nil {
		return PatrolSummary{}, err
	}
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return PatrolSummary{}, err
	}
	var resp patrolResponse
	if err := decodeStrict(raw, &resp); err != nil {
		return PatrolSummary{}, err
	}
	return PatrolSummary{
		Summary:         resp.Summary,
		Insights:        resp.Insights,
		Recommendations: resp.Recommendations,
		Source:          SourceAI,
	}, nil
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.generator.Generate(ctx, systemPrompt, prompt)
}
