package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
// A single mutex makes the conflict check and insert atomic, mirroring the
// per-tenant serialization the Postgres store gets from advisory locks.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*Appointment
	clock func() time.Time
}

// NewMemoryStore creates an empty in-memory appointment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[uuid.UUID]*Appointment),
		clock: time.Now,
	}
}

// SetClock overrides the time source used by list filters, for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	if now != nil {
		m.clock = now
	}
}

func (m *MemoryStore) CreateConfirmed(_ context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasOverlap(appt.TenantID, uuid.Nil, appt.Start, appt.End()) {
		return errSlotTaken
	}
	cp := *appt
	m.byID[appt.ID] = &cp
	return nil
}

func (m *MemoryStore) Reschedule(_ context.Context, tenantID, id uuid.UUID, newStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.byID[id]
	if !ok || appt.TenantID != tenantID {
		return ErrNotFound
	}
	if m.hasOverlap(tenantID, id, newStart, newStart.Add(appt.Duration)) {
		return errSlotTaken
	}
	appt.Start = newStart
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, tenantID, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.byID[id]
	if !ok || appt.TenantID != tenantID {
		return ErrNotFound
	}
	appt.Status = status
	return nil
}

func (m *MemoryStore) SetCalendarEventID(_ context.Context, tenantID, id uuid.UUID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.byID[id]
	if !ok || appt.TenantID != tenantID {
		return ErrNotFound
	}
	appt.CalendarEventID = eventID
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.byID[id]
	if !ok || appt.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (m *MemoryStore) ListByCustomer(_ context.Context, tenantID, customerID uuid.UUID, filter ListFilter) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	var out []*Appointment
	for _, appt := range m.byID {
		if appt.TenantID != tenantID || appt.CustomerID != customerID {
			continue
		}
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.Upcoming && (appt.Start.Before(now) || appt.Status.Terminal()) {
			continue
		}
		if filter.Past && !appt.Start.Before(now) {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryStore) ListBetween(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Appointment
	for _, appt := range m.byID {
		if appt.TenantID != tenantID || appt.Status == StatusCancelled {
			continue
		}
		if appt.Start.Before(to) && appt.End().After(from) {
			cp := *appt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// hasOverlap checks non-cancelled appointments for the tenant. Callers hold mu.
func (m *MemoryStore) hasOverlap(tenantID, excludeID uuid.UUID, start, end time.Time) bool {
	for _, appt := range m.byID {
		if appt.TenantID != tenantID || appt.ID == excludeID || appt.Status == StatusCancelled {
			continue
		}
		if appt.Overlaps(start, end) {
			return true
		}
	}
	return false
}
