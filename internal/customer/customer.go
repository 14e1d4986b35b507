package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a customer lookup misses.
var ErrNotFound = errors.New("customer: not found")

// Customer is one person writing to one tenant. The same phone number
// writing to two tenants is two distinct customers.
type Customer struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	WaID     string // WhatsApp user id (phone digits), unique per tenant
	Name     string // empty until captured from conversation
	Language string // reply-language override; empty means tenant default
	Messages int
	Visits   int
	LastSeen time.Time
}

// Repository persists customer profiles. Every operation is tenant-scoped;
// there is no way to address a customer without naming the tenant.
type Repository interface {
	// GetOrCreate returns the profile for (tenant, waID), creating an empty
	// one on the first inbound message.
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, waID string) (*Customer, error)
	// SaveName records the display name captured from conversation.
	SaveName(ctx context.Context, tenantID, customerID uuid.UUID, name string) error
	// SaveLanguage records a reply-language preference.
	SaveLanguage(ctx context.Context, tenantID, customerID uuid.UUID, lang string) error
	// TouchSeen bumps the message counter and last-seen timestamp.
	TouchSeen(ctx context.Context, tenantID, customerID uuid.UUID) error
	// Anonymize blanks PII while keeping the row for appointment audit history.
	Anonymize(ctx context.Context, tenantID, customerID uuid.UUID) error
}
