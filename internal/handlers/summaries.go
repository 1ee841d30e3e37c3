package handlers

import (
	"context"
	"net/http"

	"github.com/guardpost/apiserver/internal/summarizer"
	"github.com/guardpost/apiserver/internal/validation"
)

// Summarizer produces incident and patrol summaries. It never fails.
type Summarizer interface {
	SummarizeIncident(ctx context.Context, in summarizer.IncidentInput) summarizer.IncidentSummary
	SummarizePatrol(ctx context.Context, in summarizer.PatrolInput) summarizer.PatrolSummary
}

type SummaryHandler struct {
	summarizer Summarizer
}

func NewSummaryHandler(s Summarizer) *SummaryHandler {
	return &SummaryHandler{summarizer: s}
}

func (h *SummaryHandler) Incident(w http.ResponseWriter, r *http.Request) {
	var in summarizer.IncidentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.Struct(in); err != nil {
		writeServiceError(w, r, err, "summary")
		return
	}
	writeJSON(w, http.StatusOK, h.summarizer.SummarizeIncident(r.Context(), in))
}

func (h *SummaryHandler) Patrol(w http.ResponseWriter, r *http.Request) {
	var in summarizer.PatrolInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.Struct(in); err != nil {
		writeServiceError(w, r, err, "summary")
		return
	}
	writeJSON(w, http.StatusOK, h.summarizer.SummarizePatrol(r.Context(), in))
}
