package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool the store uses, so tests can
// substitute pgxmock.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres. Writes that must be
// conflict-free take a per-tenant advisory lock inside the transaction so
// the overlap check and the insert are atomic.
type PostgresStore struct {
	pool   PgxPool
	tracer trace.Tracer
}

// NewPostgresStore creates a Postgres-backed appointment store.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &PostgresStore{
		pool:   pool,
		tracer: otel.Tracer("lyo.internal.appointment"),
	}
}

const apptColumns = `id, tenant_id, customer_id, service_code, start_at, duration_minutes, price_cents, status, calendar_event_id`

const overlapQuery = `
	SELECT COUNT(*) FROM appointments
	WHERE tenant_id = $1
	  AND id != $2
	  AND status != 'cancelled'
	  AND start_at < $4
	  AND start_at + (duration_minutes || ' minutes')::interval > $3`

func (s *PostgresStore) CreateConfirmed(ctx context.Context, appt *Appointment) error {
	ctx, span := s.tracer.Start(ctx, "appointment.CreateConfirmed")
	defer span.End()

	err := s.withTenantLock(ctx, appt.TenantID, func(tx pgx.Tx) error {
		taken, err := s.overlapExists(ctx, tx, appt.TenantID, uuid.Nil, appt.Start, appt.End())
		if err != nil {
			return err
		}
		if taken {
			return errSlotTaken
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (id, tenant_id, customer_id, service_code, start_at, duration_minutes, price_cents, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			appt.ID, appt.TenantID, appt.CustomerID, appt.ServiceCode,
			appt.Start, int(appt.Duration.Minutes()), appt.PriceCents, string(appt.Status))
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *PostgresStore) Reschedule(ctx context.Context, tenantID, id uuid.UUID, newStart time.Time) error {
	ctx, span := s.tracer.Start(ctx, "appointment.Reschedule")
	defer span.End()

	err := s.withTenantLock(ctx, tenantID, func(tx pgx.Tx) error {
		var durationMinutes int
		err := tx.QueryRow(ctx,
			`SELECT duration_minutes FROM appointments WHERE tenant_id = $1 AND id = $2`,
			tenantID, id).Scan(&durationMinutes)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		end := newStart.Add(time.Duration(durationMinutes) * time.Minute)
		taken, err := s.overlapExists(ctx, tx, tenantID, id, newStart, end)
		if err != nil {
			return err
		}
		if taken {
			return errSlotTaken
		}
		_, err = tx.Exec(ctx,
			`UPDATE appointments SET start_at = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
			tenantID, id, newStart)
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, string(status))
	if err != nil {
		return fmt.Errorf("appointment: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetCalendarEventID(ctx context.Context, tenantID, id uuid.UUID, eventID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET calendar_event_id = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, eventID)
	if err != nil {
		return fmt.Errorf("appointment: set calendar event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+apptColumns+` FROM appointments WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanAppointment(row)
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, filter ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE tenant_id = $1 AND customer_id = $2`
	args := []any{tenantID, customerID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Upcoming {
		query += ` AND start_at >= NOW() AND status IN ('pending', 'confirmed')`
	}
	if filter.Past {
		query += ` AND start_at < NOW()`
	}
	query += ` ORDER BY start_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointment: list by customer: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *PostgresStore) ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE tenant_id = $1
		  AND status != 'cancelled'
		  AND start_at < $3
		  AND start_at + (duration_minutes || ' minutes')::interval > $2
		ORDER BY start_at ASC`,
		tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointment: list between: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// withTenantLock runs fn in a transaction holding a per-tenant advisory lock,
// serializing conflict-checked writes for the tenant without blocking others.
func (s *PostgresStore) withTenantLock(ctx context.Context, tenantID uuid.UUID, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointment: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, tenantID); err != nil {
		return fmt.Errorf("appointment: advisory lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointment: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) overlapExists(ctx context.Context, tx pgx.Tx, tenantID, excludeID uuid.UUID, start, end time.Time) (bool, error) {
	var count int
	if err := tx.QueryRow(ctx, overlapQuery, tenantID, excludeID, start, end).Scan(&count); err != nil {
		return false, fmt.Errorf("appointment: overlap check: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var (
		appt            Appointment
		durationMinutes int
		status          string
		calendarEventID *string
	)
	err := row.Scan(&appt.ID, &appt.TenantID, &appt.CustomerID, &appt.ServiceCode,
		&appt.Start, &durationMinutes, &appt.PriceCents, &status, &calendarEventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: scan: %w", err)
	}
	appt.Duration = time.Duration(durationMinutes) * time.Minute
	appt.Status = Status(status)
	if calendarEventID != nil {
		appt.CalendarEventID = *calendarEventID
	}
	return &appt, nil
}

func scanAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointment: rows: %w", err)
	}
	return out, nil
}
