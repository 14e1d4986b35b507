// Package calendar mirrors appointments into the business owner's calendar.
// Sync is best-effort: a calendar outage never blocks or rolls back a
// booking.
package calendar

import (
	"context"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

// Syncer mirrors a single appointment. Upsert returns the provider event ID
// so later updates and deletes can target it.
type Syncer interface {
	Upsert(ctx context.Context, tn *tenant.Tenant, appt *appointment.Appointment, customerName string) (string, error)
	Delete(ctx context.Context, tn *tenant.Tenant, eventID string) error
}

// Noop disables calendar sync.
type Noop struct{}

func (Noop) Upsert(context.Context, *tenant.Tenant, *appointment.Appointment, string) (string, error) {
	return "", nil
}

func (Noop) Delete(context.Context, *tenant.Tenant, string) error { return nil }
