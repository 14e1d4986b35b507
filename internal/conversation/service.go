package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lyosaas/booking-engine/internal/calendar"
	"github.com/lyosaas/booking-engine/internal/customer"
	"github.com/lyosaas/booking-engine/internal/executor"
	"github.com/lyosaas/booking-engine/internal/intent"
	"github.com/lyosaas/booking-engine/internal/messaging"
	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/internal/reply"
	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// sessionStore is the slice of session.Store the service needs.
type sessionStore interface {
	Lock(tenantID, customerID uuid.UUID) func()
	Load(ctx context.Context, tenantID, customerID uuid.UUID) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
}

// Service processes one inbound message end to end: load state, extract
// intents, execute commands, compose and send the reply, persist state.
// Turns for the same (tenant, customer) are serialized by the session lock;
// different customers proceed in parallel.
type Service struct {
	directory  tenant.Directory
	customers  customer.Repository
	sessions   sessionStore
	extractor  intent.Extractor
	executor   *executor.Executor
	composer   *reply.Composer
	sender     messaging.Sender
	syncer     calendar.Syncer
	logger     *logging.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	turnWindow int
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithTurnWindow sets how many conversation turns the session retains.
func WithTurnWindow(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.turnWindow = n
		}
	}
}

// WithCalendarSyncer enables the calendar mirror.
func WithCalendarSyncer(syncer calendar.Syncer) ServiceOption {
	return func(s *Service) {
		if syncer != nil {
			s.syncer = syncer
		}
	}
}

// WithMetrics wires pipeline metrics.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the pipeline.
func NewService(
	directory tenant.Directory,
	customers customer.Repository,
	sessions sessionStore,
	extractor intent.Extractor,
	exec *executor.Executor,
	composer *reply.Composer,
	sender messaging.Sender,
	logger *logging.Logger,
	opts ...ServiceOption,
) *Service {
	if directory == nil || customers == nil || sessions == nil || extractor == nil || exec == nil || composer == nil || sender == nil {
		panic("conversation: all pipeline dependencies are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		directory:  directory,
		customers:  customers,
		sessions:   sessions,
		extractor:  extractor,
		executor:   exec,
		composer:   composer,
		sender:     sender,
		syncer:     calendar.Noop{},
		logger:     logger,
		tracer:     otel.Tracer("lyo.internal.conversation"),
		turnWindow: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process handles one dequeued message. Errors are returned only when the
// turn should be retried; anything user-visible already produced a reply.
func (s *Service) Process(ctx context.Context, msg messaging.Inbound) error {
	ctx, span := s.tracer.Start(ctx, "conversation.Process")
	defer span.End()
	started := time.Now()

	tn, err := s.directory.GetByID(ctx, msg.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			s.logger.Warn("tenant vanished between webhook and worker", "tenant_id", msg.TenantID)
			s.metrics.ObserveDropped("tenant_vanished")
			return nil
		}
		return err
	}

	cust, err := s.customers.GetOrCreate(ctx, tn.ID, msg.WaID)
	if err != nil {
		return err
	}

	unlock := s.sessions.Lock(tn.ID, cust.ID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, tn.ID, cust.ID)
	if err != nil {
		return err
	}

	// Blue ticks while we think; failure here is invisible to the customer.
	if err := s.sender.MarkRead(ctx, tn, msg.MessageID); err != nil {
		s.logger.Debug("mark read failed", "tenant_id", tn.ID, "error", err)
	}

	text := s.runTurn(ctx, tn, cust, sess, msg)

	sess.Append(session.RoleUser, msg.Text, s.turnWindow)
	sess.Append(session.RoleAssistant, text, s.turnWindow)
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Error("session save failed", "tenant_id", tn.ID, "customer_id", cust.ID, "error", err)
	}
	if err := s.customers.TouchSeen(ctx, tn.ID, cust.ID); err != nil {
		s.logger.Warn("touch seen failed", "tenant_id", tn.ID, "customer_id", cust.ID, "error", err)
	}

	// Commands already ran; a failed send must not replay them on redelivery,
	// so the error is logged here rather than returned.
	if _, err := s.sender.SendText(ctx, tn, cust.WaID, text); err != nil {
		s.logger.Error("reply delivery failed",
			"tenant_id", tn.ID, "customer_id", cust.ID, "message_id", msg.MessageID, "error", err)
	}

	s.metrics.ObserveTurnLatency(tn.ID.String(), time.Since(started).Seconds())
	return nil
}

// runTurn produces the reply text. Every failure path degrades to a
// localized clarification so the customer always hears back.
func (s *Service) runTurn(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, sess *session.Session, msg messaging.Inbound) string {
	if cust.Name == "" && msg.ProfileName != "" {
		// The WhatsApp profile name seeds the record until they introduce
		// themselves.
		if err := s.customers.SaveName(ctx, tn.ID, cust.ID, msg.ProfileName); err == nil {
			cust.Name = msg.ProfileName
		}
	}

	batch, err := s.extractor.Extract(ctx, tn, sess.Recent(s.turnWindow), msg.Text)
	if err != nil {
		s.metrics.ObserveExtraction("failed")
		s.logger.Warn("intent extraction failed", "tenant_id", tn.ID, "error", err)
		return s.composer.Clarification(tn, cust, cust.Language)
	}
	s.metrics.ObserveExtraction("ok")

	results := s.executor.Execute(ctx, tn, cust, sess, batch)
	for _, res := range results {
		s.metrics.ObserveCommand(string(res.Command.Kind), string(res.Outcome))
	}
	s.syncResults(ctx, tn, cust, results)

	return s.composer.Compose(tn, cust, batch.Language, results)
}

// syncResults mirrors booking changes to the tenant's calendar. Best-effort.
func (s *Service) syncResults(ctx context.Context, tn *tenant.Tenant, cust *customer.Customer, results []executor.Result) {
	for _, res := range results {
		appt := res.Appointment
		if appt == nil {
			continue
		}
		switch res.Outcome {
		case executor.OutcomeBooked, executor.OutcomeRescheduled:
			eventID, err := s.syncer.Upsert(ctx, tn, appt, cust.Name)
			if err != nil {
				s.logger.Warn("calendar sync failed", "tenant_id", tn.ID, "appointment_id", appt.ID, "error", err)
				continue
			}
			if eventID != "" && eventID != appt.CalendarEventID {
				if err := s.executor.RecordCalendarEvent(ctx, tn, appt.ID, eventID); err != nil {
					s.logger.Warn("calendar event id not recorded", "appointment_id", appt.ID, "error", err)
				}
			}
		case executor.OutcomeCancelled:
			if appt.CalendarEventID == "" {
				continue
			}
			if err := s.syncer.Delete(ctx, tn, appt.CalendarEventID); err != nil {
				s.logger.Warn("calendar event delete failed", "tenant_id", tn.ID, "appointment_id", appt.ID, "error", err)
			}
		}
	}
}
