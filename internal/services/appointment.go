package services

import (
	"context"
	"time"

	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/types"
)

type AppointmentService struct {
	*Resource[types.Appointment, types.AppointmentFilter]
	notifier Notifier
}

func NewAppointmentService(repo Repository[types.Appointment, types.AppointmentFilter], activity *ActivityService, notifier Notifier) *AppointmentService {
	return &AppointmentService{
		Resource: NewResource(repo, "appointment", func(a *types.Appointment) *string { return &a.ID }, nil, activity),
		notifier: orNoop(notifier),
	}
}

func (s *AppointmentService) Create(ctx context.Context, appt types.Appointment) (types.Appointment, error) {
	if appt.Status == "" {
		appt.Status = types.AppointmentStatusScheduled
	}

	created, err := s.Resource.Create(ctx, appt)
	if err != nil {
		return created, err
	}
	if created.Status == types.AppointmentStatusScheduled {
		s.notifier.NotifyAsync(notify.EventAppointmentScheduled, notify.Payload{
			"appointment_id":   created.ID,
			"title":            created.Title,
			"scheduled_at":     created.ScheduledAt.UTC().Format(time.RFC3339),
			"duration_minutes": created.DurationMinutes,
			"notes":            created.Notes,
		})
	}
	return created, nil
}
