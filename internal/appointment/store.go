package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for appointments. Implementations must
// make the conflict check and write of CreateConfirmed and Reschedule atomic
// per tenant: two concurrent bookings on overlapping windows must not both
// succeed.
type Store interface {
	// CreateConfirmed inserts the appointment iff no non-cancelled
	// appointment of the same tenant overlaps its window. Returns
	// errSlotTaken on conflict.
	CreateConfirmed(ctx context.Context, appt *Appointment) error
	// Reschedule moves an appointment to a new start iff the new window is
	// free, ignoring the appointment itself in the overlap check. The row
	// is untouched on conflict.
	Reschedule(ctx context.Context, tenantID, apptID uuid.UUID, newStart time.Time) error
	// UpdateStatus writes a new status for a tenant-scoped appointment.
	UpdateStatus(ctx context.Context, tenantID, apptID uuid.UUID, status Status) error
	// SetCalendarEventID records the external calendar reference.
	SetCalendarEventID(ctx context.Context, tenantID, apptID uuid.UUID, eventID string) error
	// GetByID returns a tenant-scoped appointment or ErrNotFound.
	GetByID(ctx context.Context, tenantID, apptID uuid.UUID) (*Appointment, error)
	// ListByCustomer returns a customer's appointments, soonest first.
	ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, filter ListFilter) ([]*Appointment, error)
	// ListBetween returns the tenant's non-cancelled appointments whose
	// windows intersect [from, to). Used by the availability search.
	ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*Appointment, error)
}
