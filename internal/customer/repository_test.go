package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestMemoryGetOrCreateScopesByTenant(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	a, err := repo.GetOrCreate(ctx, tenantA, "+393312671591")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	again, err := repo.GetOrCreate(ctx, tenantA, "393312671591")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if again.ID != a.ID {
		t.Error("same tenant and phone must resolve to the same customer despite formatting")
	}

	b, err := repo.GetOrCreate(ctx, tenantB, "+393312671591")
	if err != nil {
		t.Fatalf("get or create other tenant: %v", err)
	}
	if b.ID == a.ID {
		t.Error("same phone under two tenants must be two distinct customers")
	}
}

func TestMemorySaveNameAndTouch(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	tenantID := uuid.New()

	c, _ := repo.GetOrCreate(ctx, tenantID, "3933000001")
	if err := repo.SaveName(ctx, tenantID, c.ID, "Marco"); err != nil {
		t.Fatalf("save name: %v", err)
	}
	if err := repo.TouchSeen(ctx, tenantID, c.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, _ := repo.GetOrCreate(ctx, tenantID, "3933000001")
	if got.Name != "Marco" {
		t.Errorf("name = %q, want Marco", got.Name)
	}
	if got.Messages != 1 {
		t.Errorf("messages = %d, want 1", got.Messages)
	}

	if err := repo.SaveName(ctx, uuid.New(), c.ID, "Marco"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant write must fail with ErrNotFound, got %v", err)
	}
}

func TestMemoryAnonymizeKeepsRow(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	tenantID := uuid.New()

	c, _ := repo.GetOrCreate(ctx, tenantID, "3933000001")
	_ = repo.SaveName(ctx, tenantID, c.ID, "Marco")
	if err := repo.Anonymize(ctx, tenantID, c.ID); err != nil {
		t.Fatalf("anonymize: %v", err)
	}

	// the old wa_id must now create a fresh profile
	fresh, _ := repo.GetOrCreate(ctx, tenantID, "3933000001")
	if fresh.ID == c.ID {
		t.Error("anonymized wa_id should no longer resolve to the old profile")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID := uuid.New()
	rowID := uuid.New()
	mock.ExpectQuery("INSERT INTO customers").
		WithArgs(pgxmock.AnyArg(), tenantID, "393312671591").
		WillReturnRows(mock.NewRows([]string{"id", "tenant_id", "wa_id", "name", "language", "message_count", "visit_count", "last_seen_at"}).
			AddRow(rowID, tenantID, "393312671591", "", "", 0, 0, time.Now()))

	store := NewStore(mock)
	c, err := store.GetOrCreate(context.Background(), tenantID, "+39 331 267 1591")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if c.ID != rowID {
		t.Errorf("id = %s, want %s", c.ID, rowID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreSaveNameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	tenantID, customerID := uuid.New(), uuid.New()
	mock.ExpectExec("UPDATE customers SET name").
		WithArgs("Marco", tenantID, customerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	if err := store.SaveName(context.Background(), tenantID, customerID, "Marco"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
