package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	// StatusPending is reserved for flows requiring external confirmation;
	// direct bookings are created confirmed.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal move. Nothing
// re-enters pending after creation.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled || to == StatusNoShow
	}
	return false
}

// Errors surfaced by the booking engine.
var (
	// ErrNotFound: the customer referenced an appointment that does not
	// exist (for them) or is already terminal.
	ErrNotFound = errors.New("appointment: not found")
	// ErrUnknownService: the requested service code is not in the tenant's
	// catalog.
	ErrUnknownService = errors.New("appointment: unknown service")
	// ErrBadDateTime: the date/time could not be parsed.
	ErrBadDateTime = errors.New("appointment: invalid date or time")
	// ErrInvalidTransition guards the status graph.
	ErrInvalidTransition = errors.New("appointment: invalid status transition")
	// errSlotTaken is the store-level conflict; the engine wraps it into a
	// SlotUnavailableError with alternatives before it reaches callers.
	errSlotTaken = errors.New("appointment: slot taken")
)

// Slot-unavailable reasons.
const (
	ReasonClosed       = "closed"
	ReasonOutsideHours = "outside_hours"
	ReasonBreak        = "break"
	ReasonTaken        = "taken"
	ReasonNotice       = "notice"
	ReasonPast         = "past"
)

// SlotUnavailableError reports an unbookable slot together with ranked
// alternative free slots, nearest to the requested time first. Offering
// alternatives is a user-facing guarantee, not a nicety.
type SlotUnavailableError struct {
	Reason       string
	Requested    time.Time
	Alternatives []time.Time
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("appointment: slot %s unavailable (%s), %d alternatives",
		e.Requested.Format("2006-01-02 15:04"), e.Reason, len(e.Alternatives))
}

// Appointment is one tenant-and-customer-scoped booking. Start is kept in
// the tenant's timezone; rows are never physically deleted.
type Appointment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CustomerID      uuid.UUID
	ServiceCode     string
	Start           time.Time
	Duration        time.Duration
	PriceCents      int
	Status          Status
	CalendarEventID string
}

// End is the exclusive end of the occupied window.
func (a *Appointment) End() time.Time {
	return a.Start.Add(a.Duration)
}

// Overlaps reports whether the appointment's window intersects [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.Start.Before(end) && a.End().After(start)
}

// ListFilter narrows List results.
type ListFilter struct {
	Upcoming bool   // start >= now
	Past     bool   // start < now
	Status   Status // empty means any non-cancelled for Upcoming, any otherwise
}
