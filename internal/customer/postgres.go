package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres-backed customer repository.
type Store struct {
	pool PgxPool
}

// NewStore creates a customer store over a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("customer: pgx pool required")
	}
	return &Store{pool: pool}
}

// GetOrCreate returns the profile for (tenant, waID), inserting an empty one
// on first contact. The (tenant_id, wa_id) unique constraint makes the insert
// race-safe; on conflict we re-read the winner.
func (s *Store) GetOrCreate(ctx context.Context, tenantID uuid.UUID, waID string) (*Customer, error) {
	waID = normalizeWaID(waID)
	if waID == "" {
		return nil, errors.New("customer: wa id required")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, tenant_id, wa_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, wa_id) DO UPDATE SET wa_id = EXCLUDED.wa_id
		RETURNING id, tenant_id, wa_id, COALESCE(name, ''), COALESCE(language, ''), message_count, visit_count, last_seen_at
	`, uuid.New(), tenantID, waID)

	var c Customer
	if err := row.Scan(&c.ID, &c.TenantID, &c.WaID, &c.Name, &c.Language, &c.Messages, &c.Visits, &c.LastSeen); err != nil {
		return nil, fmt.Errorf("customer: get or create: %w", err)
	}
	return &c, nil
}

// SaveName records the display name captured from conversation.
func (s *Store) SaveName(ctx context.Context, tenantID, customerID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("customer: name required")
	}
	return s.update(ctx, `UPDATE customers SET name = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		name, tenantID, customerID)
}

// SaveLanguage records a reply-language preference override.
func (s *Store) SaveLanguage(ctx context.Context, tenantID, customerID uuid.UUID, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return errors.New("customer: language required")
	}
	return s.update(ctx, `UPDATE customers SET language = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		lang, tenantID, customerID)
}

// TouchSeen bumps the message counter and last-seen timestamp.
func (s *Store) TouchSeen(ctx context.Context, tenantID, customerID uuid.UUID) error {
	return s.update(ctx, `
		UPDATE customers SET message_count = message_count + 1, last_seen_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, customerID)
}

// Anonymize blanks PII while keeping the row so terminal appointments stay
// attributable for audit. The wa_id is replaced with the row id to preserve
// the uniqueness constraint.
func (s *Store) Anonymize(ctx context.Context, tenantID, customerID uuid.UUID) error {
	return s.update(ctx, `
		UPDATE customers SET name = NULL, language = NULL, wa_id = 'anon:' || id::text, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, customerID)
}

func (s *Store) update(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("customer: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeWaID strips non-digits and leading zeros, matching how WhatsApp
// reports sender ids across formats (+3933..., 3933..., 03933...).
func normalizeWaID(waID string) string {
	var digits strings.Builder
	for _, r := range waID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := strings.TrimLeft(digits.String(), "0")
	if d == "" {
		return digits.String()
	}
	return d
}
