package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreCreateConfirmed(t *testing.T) {
	ctx := context.Background()
	appt := &Appointment{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		CustomerID:  uuid.New(),
		ServiceCode: "taglio_donna",
		Start:       time.Date(2026, 9, 4, 15, 0, 0, 0, time.UTC),
		Duration:    60 * time.Minute,
		PriceCents:  4500,
		Status:      StatusConfirmed,
	}

	t.Run("inserts when the slot is free", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		store := NewPostgresStore(mock)

		mock.ExpectBegin()
		mock.ExpectExec("pg_advisory_xact_lock").
			WithArgs(appt.TenantID).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("INSERT INTO appointments").
			WithArgs(appt.ID, appt.TenantID, appt.CustomerID, appt.ServiceCode,
				appt.Start, 60, appt.PriceCents, "confirmed").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		require.NoError(t, store.CreateConfirmed(ctx, appt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict without inserting", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		store := NewPostgresStore(mock)

		mock.ExpectBegin()
		mock.ExpectExec("pg_advisory_xact_lock").
			WithArgs(appt.TenantID).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err = store.CreateConfirmed(ctx, appt)
		assert.True(t, errors.Is(err, errSlotTaken))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	tenantID, id := uuid.New(), uuid.New()

	t.Run("updates the row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		store := NewPostgresStore(mock)

		mock.ExpectExec("UPDATE appointments SET status").
			WithArgs(tenantID, id, "cancelled").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.UpdateStatus(ctx, tenantID, id, StatusCancelled))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		store := NewPostgresStore(mock)

		mock.ExpectExec("UPDATE appointments SET status").
			WithArgs(tenantID, id, "cancelled").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, store.UpdateStatus(ctx, tenantID, id, StatusCancelled), ErrNotFound)
	})
}

func TestPostgresStoreGetByID(t *testing.T) {
	ctx := context.Background()
	tenantID, customerID, id := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2026, 9, 4, 15, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresStore(mock)

	eventID := "gcal-evt-1"
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE tenant_id").
		WithArgs(tenantID, id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "customer_id", "service_code", "start_at",
			"duration_minutes", "price_cents", "status", "calendar_event_id",
		}).AddRow(id, tenantID, customerID, "piega", start, 30, 2500, "confirmed", &eventID))

	appt, err := store.GetByID(ctx, tenantID, id)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, appt.Duration)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, "gcal-evt-1", appt.CalendarEventID)
}
