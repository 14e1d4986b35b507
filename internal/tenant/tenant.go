package tenant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no tenant owns the inbound channel.
// Callers must treat it as fatal for the event: without a tenant there is
// no configuration to reply under.
var ErrNotFound = errors.New("tenant: not found")

// Status is the soft lifecycle state of a tenant. Tenants are never hard-deleted.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// Service is one entry of a tenant's service catalog.
type Service struct {
	Code            string            `json:"code"`
	Names           map[string]string `json:"names"`
	PriceCents      int               `json:"price_cents"`
	DurationMinutes int               `json:"duration_minutes"`
	// AdvanceNotice is the minimum lead time a booking must respect,
	// measured against "now" in the tenant's timezone.
	AdvanceNotice time.Duration `json:"advance_notice"`
}

// LocalizedName returns the service name for lang, falling back to any
// available localization.
func (s Service) LocalizedName(lang string) string {
	if name, ok := s.Names[lang]; ok && name != "" {
		return name
	}
	for _, name := range s.Names {
		if name != "" {
			return name
		}
	}
	return s.Code
}

// Tenant is one business bound to one inbound WhatsApp number.
type Tenant struct {
	ID            uuid.UUID
	PhoneNumberID string // WhatsApp Cloud API phone-number-id, unique across tenants
	Name          string
	BusinessType  string
	Timezone      string // IANA name, e.g. "Europe/Rome"
	Language      string // default reply language, e.g. "it"
	Status        Status
	AccessToken   string // WhatsApp send credential for this tenant

	Schedule  WeeklySchedule
	Overrides []ScheduleOverride
	Services  map[string]Service
}

// Location resolves the tenant's IANA timezone, defaulting to UTC when unset
// or invalid.
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now returns the current time in the tenant's timezone.
func (t *Tenant) Now() time.Time {
	return time.Now().In(t.Location())
}

// ServiceByCode looks up a catalog entry.
func (t *Tenant) ServiceByCode(code string) (Service, bool) {
	svc, ok := t.Services[code]
	return svc, ok
}

// Active reports whether the tenant should be served at all.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive || t.Status == StatusTrial
}
