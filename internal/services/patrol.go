package services

import (
	"context"
	"time"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/types"
)

// PatrolService records patrol reports.
type PatrolService struct {
	*Resource[types.PatrolReport, types.PatrolFilter]
	notifier Notifier
}

func NewPatrolService(repo Repository[types.PatrolReport, types.PatrolFilter], activity *ActivityService, notifier Notifier) *PatrolService {
	return &PatrolService{
		Resource: NewResource(repo, "patrol_report", func(p *types.PatrolReport) *string { return &p.ID }, checkPatrol, activity),
		notifier: orNoop(notifier),
	}
}

func checkPatrol(p types.PatrolReport) error {
	if p.EndedAt != nil && p.EndedAt.Before(p.StartedAt) {
		return types.NewValidationError("ended_at", "must not be before started_at")
	}
	if p.Status != types.PatrolStatusInProgress && p.EndedAt == nil {
		return types.NewValidationError("ended_at", "is required once the patrol is finished")
	}
	return nil
}

// Create stores a report, defaulting the officer to the caller.
func (s *PatrolService) Create(ctx context.Context, report types.PatrolReport) (types.PatrolReport, error) {
	if report.OfficerID == nil {
		if identity, ok := auth.IdentityFromContext(ctx); ok {
			report.OfficerID = &identity.ID
		}
	}
	if report.Status == "" {
		report.Status = types.PatrolStatusInProgress
	}

	created, err := s.Resource.Create(ctx, report)
	if err != nil {
		return created, err
	}
	if created.Status == types.PatrolStatusCompleted {
		s.notifyCompleted(ctx, created)
	}
	return created, nil
}

// Update notifies when the report moves into the completed state.
func (s *PatrolService) Update(ctx context.Context, id string, report types.PatrolReport) (types.PatrolReport, error) {
	previous, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.PatrolReport{}, err
	}

	updated, err := s.Resource.Update(ctx, id, report)
	if err != nil {
		return updated, err
	}
	if previous.Status != types.PatrolStatusCompleted && updated.Status == types.PatrolStatusCompleted {
		s.notifyCompleted(ctx, updated)
	}
	return updated, nil
}

func (s *PatrolService) notifyCompleted(ctx context.Context, report types.PatrolReport) {
	payload := notify.Payload{
		"patrol_id":        report.ID,
		"started_at":       report.StartedAt.UTC().Format(time.RFC3339),
		"checkpoint_count": len(report.Checkpoints),
		"duration_minutes": report.DurationMinutes(),
		"notes":            report.Notes,
	}
	if report.EndedAt != nil {
		payload["ended_at"] = report.EndedAt.UTC().Format(time.RFC3339)
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		payload["officer"] = identity.FirstName + " " + identity.LastName
	}
	s.notifier.NotifyAsync(notify.EventPatrolCompleted, payload)
}
