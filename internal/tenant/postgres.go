package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

// Store is the Postgres-backed tenant directory.
type Store struct {
	pool PgxPool
}

// NewStore creates a tenant store over a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("tenant: pgx pool required")
	}
	return &Store{pool: pool}
}

const tenantColumns = `id, phone_number_id, name, business_type, timezone, language, status, access_token, schedule, overrides, services`

// Resolve looks up the tenant bound to a WhatsApp phone-number-id.
func (s *Store) Resolve(ctx context.Context, phoneNumberID string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE phone_number_id = $1`,
		phoneNumberID,
	)
	return scanTenant(row)
}

// GetByID looks up a tenant by primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`,
		id,
	)
	return scanTenant(row)
}

// Upsert writes a tenant's full configuration. Used by onboarding and admin
// updates; changes are visible to the next Resolve immediately.
func (s *Store) Upsert(ctx context.Context, t *Tenant) error {
	schedule, err := json.Marshal(t.Schedule)
	if err != nil {
		return fmt.Errorf("tenant: encode schedule: %w", err)
	}
	overrides, err := json.Marshal(t.Overrides)
	if err != nil {
		return fmt.Errorf("tenant: encode overrides: %w", err)
	}
	services, err := json.Marshal(t.Services)
	if err != nil {
		return fmt.Errorf("tenant: encode services: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (id, phone_number_id, name, business_type, timezone, language, status, access_token, schedule, overrides, services)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET phone_number_id = EXCLUDED.phone_number_id,
			name = EXCLUDED.name,
			business_type = EXCLUDED.business_type,
			timezone = EXCLUDED.timezone,
			language = EXCLUDED.language,
			status = EXCLUDED.status,
			access_token = EXCLUDED.access_token,
			schedule = EXCLUDED.schedule,
			overrides = EXCLUDED.overrides,
			services = EXCLUDED.services,
			updated_at = now()
	`, t.ID, t.PhoneNumberID, t.Name, t.BusinessType, t.Timezone, t.Language, string(t.Status), t.AccessToken, schedule, overrides, services)
	if err != nil {
		return fmt.Errorf("tenant: upsert: %w", err)
	}
	return nil
}

// SetStatus moves a tenant along its soft lifecycle (active/suspended/...).
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("tenant: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var (
		t         Tenant
		status    string
		schedule  []byte
		overrides []byte
		services  []byte
	)
	err := row.Scan(&t.ID, &t.PhoneNumberID, &t.Name, &t.BusinessType, &t.Timezone,
		&t.Language, &status, &t.AccessToken, &schedule, &overrides, &services)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: scan: %w", err)
	}
	t.Status = Status(status)

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &t.Schedule); err != nil {
			return nil, fmt.Errorf("tenant: decode schedule: %w", err)
		}
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &t.Overrides); err != nil {
			return nil, fmt.Errorf("tenant: decode overrides: %w", err)
		}
	}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &t.Services); err != nil {
			return nil, fmt.Errorf("tenant: decode services: %w", err)
		}
	}
	return &t, nil
}
