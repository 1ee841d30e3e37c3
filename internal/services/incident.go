package services

import (
	"context"
	"time"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/types"
)

// IncidentService files and tracks incidents.
type IncidentService struct {
	*Resource[types.Incident, types.IncidentFilter]
	notifier Notifier
	now      func() time.Time
}

func NewIncidentService(repo Repository[types.Incident, types.IncidentFilter], activity *ActivityService, notifier Notifier) *IncidentService {
	return &IncidentService{
		Resource: NewResource(repo, "incident", func(i *types.Incident) *string { return &i.ID }, nil, activity),
		notifier: orNoop(notifier),
		now:      time.Now,
	}
}

// Create files an incident. The reporter defaults to the caller and a new
// incident starts open. Subscribers are notified once it is stored.
func (s *IncidentService) Create(ctx context.Context, incident types.Incident) (types.Incident, error) {
	if incident.ReportedBy == nil {
		if identity, ok := auth.IdentityFromContext(ctx); ok {
			incident.ReportedBy = &identity.ID
		}
	}
	if incident.Status == "" {
		incident.Status = types.IncidentStatusOpen
	}
	s.stampResolution(&incident)

	created, err := s.Resource.Create(ctx, incident)
	if err != nil {
		return created, err
	}

	s.notifier.NotifyAsync(notify.EventIncidentCreated, notify.Payload{
		"incident_id": created.ID,
		"title":       created.Title,
		"type":        created.Type,
		"severity":    string(created.Severity),
		"location":    created.Location,
		"description": created.Description,
		"occurred_at": created.OccurredAt.UTC().Format(time.RFC3339),
	})
	return created, nil
}

// Update keeps resolved_at in step with the status.
func (s *IncidentService) Update(ctx context.Context, id string, incident types.Incident) (types.Incident, error) {
	s.stampResolution(&incident)
	return s.Resource.Update(ctx, id, incident)
}

func (s *IncidentService) stampResolution(incident *types.Incident) {
	if !incident.Status.Settled() {
		incident.ResolvedAt = nil
		return
	}
	if incident.ResolvedAt == nil {
		now := s.now().UTC()
		incident.ResolvedAt = &now
	}
}
