package tenant

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Directory resolves an inbound channel identifier to the tenant owning it.
// Resolve is a pure lookup; configuration changes are visible to all
// subsequent resolutions.
type Directory interface {
	Resolve(ctx context.Context, phoneNumberID string) (*Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// MemoryDirectory is an in-memory Directory for tests and single-tenant
// development mode.
type MemoryDirectory struct {
	mu       sync.RWMutex
	byChan   map[string]*Tenant
	byTenant map[uuid.UUID]*Tenant
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byChan:   make(map[string]*Tenant),
		byTenant: make(map[uuid.UUID]*Tenant),
	}
}

// Upsert registers or replaces a tenant. The channel binding must be unique;
// re-binding a channel to a different tenant replaces the previous binding.
func (d *MemoryDirectory) Upsert(t *Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.byTenant[t.ID]; ok && prev.PhoneNumberID != t.PhoneNumberID {
		delete(d.byChan, prev.PhoneNumberID)
	}
	d.byChan[t.PhoneNumberID] = t
	d.byTenant[t.ID] = t
}

// Resolve looks up the tenant bound to a WhatsApp phone-number-id.
func (d *MemoryDirectory) Resolve(_ context.Context, phoneNumberID string) (*Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.byChan[phoneNumberID]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// GetByID looks up a tenant by its id.
func (d *MemoryDirectory) GetByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.byTenant[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}
