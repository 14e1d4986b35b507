package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

const (
	defaultSearchDays    = 3
	defaultSlotStep      = 30 * time.Minute
	defaultSameDayBuffer = 30 * time.Minute
	maxAlternatives      = 5
)

// Engine applies booking semantics on top of a Store: business hours,
// advance notice, conflict detection and alternative-slot suggestions.
// All temporal decisions happen in the tenant's timezone.
type Engine struct {
	store  Store
	logger *logging.Logger

	searchDays    int
	slotStep      time.Duration
	sameDayBuffer time.Duration
	now           func() time.Time // test seam
}

// EngineOption customizes engine behavior.
type EngineOption func(*Engine)

// WithSearchDays bounds the alternative search window (requested day plus
// the following days).
func WithSearchDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.searchDays = days
		}
	}
}

// WithSlotStep sets the granularity of the alternative slot grid.
func WithSlotStep(step time.Duration) EngineOption {
	return func(e *Engine) {
		if step > 0 {
			e.slotStep = step
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a booking engine over the given store.
func NewEngine(store Store, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("appointment: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:         store,
		logger:        logger,
		searchDays:    defaultSearchDays,
		slotStep:      defaultSlotStep,
		sameDayBuffer: defaultSameDayBuffer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Book validates and creates a confirmed appointment for the given slot.
// Date is "YYYY-MM-DD" and tm "HH:MM", both in the tenant's timezone. On an
// unbookable slot a *SlotUnavailableError with ranked alternatives is
// returned.
func (e *Engine) Book(ctx context.Context, tn *tenant.Tenant, customerID uuid.UUID, serviceCode, date, tm string) (*Appointment, error) {
	svc, ok := tn.ServiceByCode(serviceCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, serviceCode)
	}

	start, err := parseSlot(date, tm, tn.Location())
	if err != nil {
		return nil, err
	}
	duration := time.Duration(svc.DurationMinutes) * time.Minute

	if unavail := e.validateSlot(ctx, tn, svc, start, duration, uuid.Nil); unavail != nil {
		return nil, unavail
	}

	appt := &Appointment{
		ID:          uuid.New(),
		TenantID:    tn.ID,
		CustomerID:  customerID,
		ServiceCode: svc.Code,
		Start:       start,
		Duration:    duration,
		PriceCents:  svc.PriceCents,
		Status:      StatusConfirmed,
	}
	if err := e.store.CreateConfirmed(ctx, appt); err != nil {
		if errors.Is(err, errSlotTaken) {
			// Lost the race between validation and insert.
			return nil, e.slotUnavailable(ctx, tn, svc, start, duration, ReasonTaken, uuid.Nil)
		}
		return nil, err
	}
	e.logger.Info("appointment booked",
		"tenant_id", tn.ID, "appointment_id", appt.ID,
		"service", svc.Code, "start", start.Format("2006-01-02 15:04"))
	return appt, nil
}

// Cancel transitions an appointment to cancelled. Cancelling an
// already-cancelled appointment succeeds (safe retry). Appointments that do
// not exist for the customer, or are completed/no-show, report ErrNotFound.
func (e *Engine) Cancel(ctx context.Context, tn *tenant.Tenant, customerID, apptID uuid.UUID) (*Appointment, error) {
	appt, err := e.store.GetByID(ctx, tn.ID, apptID)
	if err != nil {
		return nil, err
	}
	if appt.CustomerID != customerID {
		return nil, ErrNotFound
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status.Terminal() {
		return nil, ErrNotFound
	}
	if err := e.store.UpdateStatus(ctx, tn.ID, apptID, StatusCancelled); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled
	e.logger.Info("appointment cancelled", "tenant_id", tn.ID, "appointment_id", apptID)
	return appt, nil
}

// Modify moves a pending/confirmed appointment to a new slot, validating
// exactly as Book does but excluding the appointment itself from the overlap
// check. On failure the original appointment is untouched.
func (e *Engine) Modify(ctx context.Context, tn *tenant.Tenant, customerID, apptID uuid.UUID, newDate, newTime string) (*Appointment, error) {
	appt, err := e.store.GetByID(ctx, tn.ID, apptID)
	if err != nil {
		return nil, err
	}
	if appt.CustomerID != customerID || appt.Status.Terminal() {
		return nil, ErrNotFound
	}

	svc, ok := tn.ServiceByCode(appt.ServiceCode)
	if !ok {
		// Catalog changed under a live appointment; keep its stored duration.
		svc = tenant.Service{Code: appt.ServiceCode, DurationMinutes: int(appt.Duration.Minutes())}
	}

	start, err := parseSlot(newDate, newTime, tn.Location())
	if err != nil {
		return nil, err
	}

	if unavail := e.validateSlot(ctx, tn, svc, start, appt.Duration, appt.ID); unavail != nil {
		return nil, unavail
	}

	if err := e.store.Reschedule(ctx, tn.ID, appt.ID, start); err != nil {
		if errors.Is(err, errSlotTaken) {
			return nil, e.slotUnavailable(ctx, tn, svc, start, appt.Duration, ReasonTaken, appt.ID)
		}
		return nil, err
	}
	appt.Start = start
	e.logger.Info("appointment rescheduled",
		"tenant_id", tn.ID, "appointment_id", appt.ID, "start", start.Format("2006-01-02 15:04"))
	return appt, nil
}

// List returns the customer's appointments, soonest first. Read-only.
func (e *Engine) List(ctx context.Context, tn *tenant.Tenant, customerID uuid.UUID, filter ListFilter) ([]*Appointment, error) {
	return e.store.ListByCustomer(ctx, tn.ID, customerID, filter)
}

// RecordCalendarEvent stores the mirrored calendar event ID.
func (e *Engine) RecordCalendarEvent(ctx context.Context, tn *tenant.Tenant, apptID uuid.UUID, eventID string) error {
	return e.store.SetCalendarEventID(ctx, tn.ID, apptID, eventID)
}

// MarkCompleted transitions a confirmed appointment after the visit.
func (e *Engine) MarkCompleted(ctx context.Context, tn *tenant.Tenant, apptID uuid.UUID) error {
	return e.transition(ctx, tn, apptID, StatusCompleted)
}

// MarkNoShow transitions a confirmed appointment the customer missed.
func (e *Engine) MarkNoShow(ctx context.Context, tn *tenant.Tenant, apptID uuid.UUID) error {
	return e.transition(ctx, tn, apptID, StatusNoShow)
}

func (e *Engine) transition(ctx context.Context, tn *tenant.Tenant, apptID uuid.UUID, to Status) error {
	appt, err := e.store.GetByID(ctx, tn.ID, apptID)
	if err != nil {
		return err
	}
	if !CanTransition(appt.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}
	return e.store.UpdateStatus(ctx, tn.ID, apptID, to)
}

// validateSlot runs every pre-write check; nil means bookable as far as
// validation can tell (the store re-checks conflicts atomically).
func (e *Engine) validateSlot(ctx context.Context, tn *tenant.Tenant, svc tenant.Service, start time.Time, duration time.Duration, excludeID uuid.UUID) error {
	now := e.now().In(tn.Location())

	if start.Before(now) {
		return e.slotUnavailable(ctx, tn, svc, start, duration, ReasonPast, excludeID)
	}
	if svc.AdvanceNotice > 0 && start.Before(now.Add(svc.AdvanceNotice)) {
		return e.slotUnavailable(ctx, tn, svc, start, duration, ReasonNotice, excludeID)
	}
	if ok, reason := tn.WithinHours(start, duration); !ok {
		return e.slotUnavailable(ctx, tn, svc, start, duration, reason, excludeID)
	}

	booked, err := e.store.ListBetween(ctx, tn.ID, start, start.Add(duration))
	if err != nil {
		return err
	}
	for _, b := range booked {
		if b.ID != excludeID && b.Overlaps(start, start.Add(duration)) {
			return e.slotUnavailable(ctx, tn, svc, start, duration, ReasonTaken, excludeID)
		}
	}
	return nil
}

func (e *Engine) slotUnavailable(ctx context.Context, tn *tenant.Tenant, svc tenant.Service, start time.Time, duration time.Duration, reason string, excludeID uuid.UUID) *SlotUnavailableError {
	alts, err := e.Alternatives(ctx, tn, svc, start, excludeID)
	if err != nil {
		e.logger.Warn("alternative search failed", "tenant_id", tn.ID, "error", err)
	}
	return &SlotUnavailableError{Reason: reason, Requested: start, Alternatives: alts}
}

// Alternatives enumerates free slots near the requested time: the requested
// day first, then the following days within the search window, on a fixed
// grid, ranked by temporal distance from the request.
func (e *Engine) Alternatives(ctx context.Context, tn *tenant.Tenant, svc tenant.Service, want time.Time, excludeID uuid.UUID) ([]time.Time, error) {
	loc := tn.Location()
	now := e.now().In(loc)
	duration := time.Duration(svc.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = e.slotStep
	}

	var candidates []time.Time
	for offset := 0; offset < e.searchDays; offset++ {
		day := time.Date(want.Year(), want.Month(), want.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, offset)
		windows := tn.OpenWindowsOn(day)
		if len(windows) == 0 {
			continue
		}

		dayStart := day
		dayEnd := day.AddDate(0, 0, 1)
		booked, err := e.store.ListBetween(ctx, tn.ID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}

		step := int(e.slotStep.Minutes())
		for _, w := range windows {
			for minute := w[0]; minute+int(duration.Minutes()) <= w[1]; minute += step {
				slot := day.Add(time.Duration(minute) * time.Minute)
				if slot.Before(now.Add(e.sameDayBuffer)) {
					continue
				}
				if slotTaken(booked, excludeID, slot, slot.Add(duration)) {
					continue
				}
				candidates = append(candidates, slot)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return absDuration(candidates[i].Sub(want)) < absDuration(candidates[j].Sub(want))
	})
	if len(candidates) > maxAlternatives {
		candidates = candidates[:maxAlternatives]
	}
	return candidates, nil
}

func slotTaken(booked []*Appointment, excludeID uuid.UUID, start, end time.Time) bool {
	for _, b := range booked {
		if b.ID != excludeID && b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func parseSlot(date, tm string, loc *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %s", ErrBadDateTime, date, tm)
	}
	return start, nil
}
