package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// GoogleSyncer mirrors appointments into Google Calendar. Each tenant's
// events land on its own calendar; the default is the service account's
// primary calendar.
type GoogleSyncer struct {
	service    *calendar.Service
	calendarID string
	logger     *logging.Logger
	timeout    time.Duration
}

// NewGoogleSyncer builds a syncer from service-account credentials JSON.
func NewGoogleSyncer(ctx context.Context, credentialsJSON []byte, calendarID string, timeout time.Duration, logger *logging.Logger) (*GoogleSyncer, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("calendar: credentials required")
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	svc, err := calendar.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(calendar.CalendarEventsScope))
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return &GoogleSyncer{
		service:    svc,
		calendarID: calendarID,
		logger:     logger,
		timeout:    timeout,
	}, nil
}

func (g *GoogleSyncer) Upsert(ctx context.Context, tn *tenant.Tenant, appt *appointment.Appointment, customerName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	summary := appt.ServiceCode
	if svc, ok := tn.ServiceByCode(appt.ServiceCode); ok {
		summary = svc.LocalizedName(tn.Language)
	}
	if customerName != "" {
		summary = fmt.Sprintf("%s - %s", summary, customerName)
	}

	event := &calendar.Event{
		Summary: summary,
		Start: &calendar.EventDateTime{
			DateTime: appt.Start.In(tn.Location()).Format(time.RFC3339),
			TimeZone: tn.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: appt.End().In(tn.Location()).Format(time.RFC3339),
			TimeZone: tn.Timezone,
		},
		Description: fmt.Sprintf("Prenotazione WhatsApp (%s)", appt.ID),
	}

	if appt.CalendarEventID != "" {
		updated, err := g.service.Events.Update(g.calendarID, appt.CalendarEventID, event).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("calendar: update event: %w", err)
		}
		return updated.Id, nil
	}

	created, err := g.service.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleSyncer) Delete(ctx context.Context, _ *tenant.Tenant, eventID string) error {
	if eventID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.service.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event: %w", err)
	}
	return nil
}
