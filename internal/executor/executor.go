// Package executor runs extracted command batches against the booking
// engine. Every command in a batch is attempted regardless of earlier
// failures, and each produces exactly one result for the reply composer.
package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/customer"
	"github.com/lyosaas/booking-engine/internal/intent"
	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// Outcome classifies what happened to one command.
type Outcome string

const (
	OutcomeBooked      Outcome = "booked"
	OutcomeRescheduled Outcome = "rescheduled"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeListed      Outcome = "listed"
	OutcomeSaved       Outcome = "saved"
	// OutcomeIncomplete: a booking is missing fields; the draft is kept in
	// the session and the composer asks for what is missing.
	OutcomeIncomplete Outcome = "incomplete"
	// OutcomeUnavailable: the slot cannot be booked; alternatives are
	// attached.
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeFailed      Outcome = "failed"
)

// Result is the outcome of one command, in batch order.
type Result struct {
	Command      intent.Command
	Outcome      Outcome
	Appointment  *appointment.Appointment
	Appointments []*appointment.Appointment
	Missing      []string
	Unavailable  *appointment.SlotUnavailableError
	Err          error
}

// Executor applies command batches. It mutates the session draft (partial
// bookings) and the customer profile (saved attributes) as side effects the
// caller persists afterwards.
type Executor struct {
	engine    *appointment.Engine
	customers customer.Repository
	logger    *logging.Logger
	tracer    trace.Tracer
}

// New creates an executor.
func New(engine *appointment.Engine, customers customer.Repository, logger *logging.Logger) *Executor {
	if engine == nil {
		panic("executor: engine required")
	}
	if customers == nil {
		panic("executor: customer repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		engine:    engine,
		customers: customers,
		logger:    logger,
		tracer:    otel.Tracer("lyo.internal.executor"),
	}
}

// Execute runs every command in the batch sequentially. A failed command
// never stops the ones after it. Within a batch, "last" target references
// resolve to the appointment most recently created or moved by an earlier
// command.
func (e *Executor) Execute(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, sess *session.Session, batch intent.Batch) []Result {
	ctx, span := e.tracer.Start(ctx, "executor.Execute")
	defer span.End()

	results := make([]Result, 0, len(batch.Commands))
	var last *appointment.Appointment

	for _, cmd := range batch.Commands {
		var res Result
		switch cmd.Kind {
		case intent.KindBook:
			res = e.book(ctx, tn, cust, sess, cmd)
		case intent.KindModify:
			res = e.modify(ctx, tn, cust, cmd, last)
		case intent.KindCancel:
			res = e.cancel(ctx, tn, cust, cmd, last)
		case intent.KindList:
			res = e.list(ctx, tn, cust, cmd)
		case intent.KindSaveAttribute:
			res = e.saveAttribute(ctx, tn, cust, cmd)
		default:
			res = Result{Command: cmd, Outcome: OutcomeFailed, Err: errors.New("executor: unknown command kind")}
		}
		if res.Appointment != nil && (res.Outcome == OutcomeBooked || res.Outcome == OutcomeRescheduled) {
			last = res.Appointment
		}
		if res.Err != nil {
			e.logger.Warn("command failed",
				"tenant_id", tn.ID, "customer_id", cust.ID,
				"kind", cmd.Kind, "outcome", res.Outcome, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// book merges the command with the pending draft, asks for missing fields,
// or books. A successful booking clears the draft; a refused slot stores the
// alternatives in the session for the follow-up turn.
func (e *Executor) book(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, sess *session.Session, cmd intent.Command) Result {
	draft := &sess.Pending
	if cmd.Option > 0 {
		if cmd.Option > len(sess.Alternatives) {
			return Result{Command: cmd, Outcome: OutcomeIncomplete, Missing: []string{"date", "time"}}
		}
		slot := sess.Alternatives[cmd.Option-1].In(tn.Location())
		draft.Date = slot.Format("2006-01-02")
		draft.Time = slot.Format("15:04")
	}
	if cmd.ServiceCode != "" {
		draft.ServiceCode = cmd.ServiceCode
	}
	if cmd.Date != "" {
		draft.Date = cmd.Date
	}
	if cmd.Time != "" {
		draft.Time = cmd.Time
	}
	// Single-service shops need no service named.
	if draft.ServiceCode == "" && len(tn.Services) == 1 {
		for code := range tn.Services {
			draft.ServiceCode = code
		}
	}

	var missing []string
	if draft.ServiceCode == "" {
		missing = append(missing, "service")
	}
	if draft.Date == "" {
		missing = append(missing, "date")
	}
	if draft.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return Result{Command: cmd, Outcome: OutcomeIncomplete, Missing: missing}
	}

	appt, err := e.engine.Book(ctx, tn, cust.ID, draft.ServiceCode, draft.Date, draft.Time)
	if err != nil {
		var unavail *appointment.SlotUnavailableError
		switch {
		case errors.As(err, &unavail):
			sess.Alternatives = unavail.Alternatives
			return Result{Command: cmd, Outcome: OutcomeUnavailable, Unavailable: unavail}
		case errors.Is(err, appointment.ErrUnknownService):
			draft.ServiceCode = ""
			return Result{Command: cmd, Outcome: OutcomeIncomplete, Missing: []string{"service"}, Err: err}
		case errors.Is(err, appointment.ErrBadDateTime):
			draft.Date, draft.Time = "", ""
			return Result{Command: cmd, Outcome: OutcomeIncomplete, Missing: []string{"date", "time"}, Err: err}
		default:
			return Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
		}
	}

	*draft = session.Draft{}
	sess.Alternatives = nil
	return Result{Command: cmd, Outcome: OutcomeBooked, Appointment: appt}
}

func (e *Executor) modify(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, cmd intent.Command, last *appointment.Appointment) Result {
	target, res := e.resolveTarget(ctx, tn, cust, cmd, last)
	if target == nil {
		return res
	}

	if cmd.Date == "" && cmd.Time == "" {
		return Result{Command: cmd, Outcome: OutcomeIncomplete, Missing: []string{"date", "time"}}
	}
	newDate := cmd.Date
	if newDate == "" {
		newDate = target.Start.In(tn.Location()).Format("2006-01-02")
	}
	newTime := cmd.Time
	if newTime == "" {
		newTime = target.Start.In(tn.Location()).Format("15:04")
	}

	appt, err := e.engine.Modify(ctx, tn, cust.ID, target.ID, newDate, newTime)
	if err != nil {
		var unavail *appointment.SlotUnavailableError
		switch {
		case errors.As(err, &unavail):
			return Result{Command: cmd, Outcome: OutcomeUnavailable, Unavailable: unavail, Appointment: target}
		case errors.Is(err, appointment.ErrNotFound):
			return Result{Command: cmd, Outcome: OutcomeNotFound}
		default:
			return Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
		}
	}
	return Result{Command: cmd, Outcome: OutcomeRescheduled, Appointment: appt}
}

func (e *Executor) cancel(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, cmd intent.Command, last *appointment.Appointment) Result {
	target, res := e.resolveTarget(ctx, tn, cust, cmd, last)
	if target == nil {
		return res
	}

	appt, err := e.engine.Cancel(ctx, tn, cust.ID, target.ID)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			return Result{Command: cmd, Outcome: OutcomeNotFound}
		}
		return Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
	}
	return Result{Command: cmd, Outcome: OutcomeCancelled, Appointment: appt}
}

func (e *Executor) list(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, cmd intent.Command) Result {
	appts, err := e.engine.List(ctx, tn, cust.ID, appointment.ListFilter{Upcoming: true})
	if err != nil {
		return Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
	}
	return Result{Command: cmd, Outcome: OutcomeListed, Appointments: appts}
}

// saveAttribute persists before the reply is composed, so a customer who
// introduces themselves is greeted by name in the same turn.
func (e *Executor) saveAttribute(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, cmd intent.Command) Result {
	var err error
	switch cmd.Attribute {
	case "name":
		name := strings.TrimSpace(cmd.Value)
		if name == "" {
			return Result{Command: cmd, Outcome: OutcomeFailed, Err: errors.New("executor: empty name")}
		}
		if err = e.customers.SaveName(ctx, tn.ID, cust.ID, name); err == nil {
			cust.Name = name
		}
	case "language":
		lang := strings.ToLower(strings.TrimSpace(cmd.Value))
		if lang != "it" && lang != "en" {
			return Result{Command: cmd, Outcome: OutcomeFailed, Err: errors.New("executor: unsupported language")}
		}
		if err = e.customers.SaveLanguage(ctx, tn.ID, cust.ID, lang); err == nil {
			cust.Language = lang
		}
	default:
		return Result{Command: cmd, Outcome: OutcomeFailed, Err: errors.New("executor: unknown attribute")}
	}
	if err != nil {
		return Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
	}
	return Result{Command: cmd, Outcome: OutcomeSaved}
}

// RecordCalendarEvent stores the calendar event ID after a successful mirror.
func (e *Executor) RecordCalendarEvent(ctx context.Context, tn *tenant.Tenant, apptID uuid.UUID, eventID string) error {
	return e.engine.RecordCalendarEvent(ctx, tn, apptID, eventID)
}

// resolveTarget finds the appointment a cancel/modify refers to. On failure
// the returned Result carries the outcome to report.
func (e *Executor) resolveTarget(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, cmd intent.Command, last *appointment.Appointment) (*appointment.Appointment, Result) {
	ref := strings.TrimSpace(cmd.TargetRef)

	if ref == "last" {
		if last == nil {
			return nil, Result{Command: cmd, Outcome: OutcomeNotFound}
		}
		return last, Result{}
	}

	upcoming, err := e.engine.List(ctx, tn, cust.ID, appointment.ListFilter{Upcoming: true})
	if err != nil {
		return nil, Result{Command: cmd, Outcome: OutcomeFailed, Err: err}
	}
	if len(upcoming) == 0 {
		return nil, Result{Command: cmd, Outcome: OutcomeNotFound}
	}
	if ref == "" || ref == "next" {
		return upcoming[0], Result{}
	}

	wantDate, wantTime := splitRef(ref, tn)
	for _, appt := range upcoming {
		local := appt.Start.In(tn.Location())
		if wantDate != "" && local.Format("2006-01-02") != wantDate {
			continue
		}
		if wantTime != "" && local.Format("15:04") != wantTime {
			continue
		}
		return appt, Result{}
	}
	return nil, Result{Command: cmd, Outcome: OutcomeNotFound}
}

// splitRef interprets a target reference as a date, a time, or both.
func splitRef(ref string, tn *tenant.Tenant) (date, tm string) {
	parts := strings.Fields(ref)
	now := tn.Now()
	for _, part := range parts {
		if d, ok := intent.ResolveDate(part, now); ok {
			date = d
			continue
		}
		if t, ok := intent.ResolveTime(part); ok {
			tm = t
		}
	}
	if date == "" && tm == "" {
		// The whole reference may be a phrase like "day after tomorrow".
		if d, ok := intent.ResolveDate(ref, now); ok {
			date = d
		}
	}
	return date, tm
}
