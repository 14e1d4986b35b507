package customer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Customer
	key  map[string]uuid.UUID // tenantID + ":" + waID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[uuid.UUID]*Customer),
		key:  make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) GetOrCreate(_ context.Context, tenantID uuid.UUID, waID string) (*Customer, error) {
	waID = normalizeWaID(waID)
	if waID == "" {
		return nil, errors.New("customer: wa id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := tenantID.String() + ":" + waID
	if id, ok := r.key[k]; ok {
		c := *r.byID[id]
		return &c, nil
	}

	c := &Customer{
		ID:       uuid.New(),
		TenantID: tenantID,
		WaID:     waID,
		LastSeen: time.Now(),
	}
	r.byID[c.ID] = c
	r.key[k] = c.ID
	out := *c
	return &out, nil
}

func (r *MemoryRepository) SaveName(_ context.Context, tenantID, customerID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("customer: name required")
	}
	return r.mutate(tenantID, customerID, func(c *Customer) { c.Name = name })
}

func (r *MemoryRepository) SaveLanguage(_ context.Context, tenantID, customerID uuid.UUID, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return errors.New("customer: language required")
	}
	return r.mutate(tenantID, customerID, func(c *Customer) { c.Language = lang })
}

func (r *MemoryRepository) TouchSeen(_ context.Context, tenantID, customerID uuid.UUID) error {
	return r.mutate(tenantID, customerID, func(c *Customer) {
		c.Messages++
		c.LastSeen = time.Now()
	})
}

func (r *MemoryRepository) Anonymize(_ context.Context, tenantID, customerID uuid.UUID) error {
	return r.mutate(tenantID, customerID, func(c *Customer) {
		delete(r.key, tenantID.String()+":"+c.WaID)
		c.Name = ""
		c.Language = ""
		c.WaID = "anon:" + c.ID.String()
	})
}

func (r *MemoryRepository) mutate(tenantID, customerID uuid.UUID, fn func(*Customer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[customerID]
	if !ok || c.TenantID != tenantID {
		return ErrNotFound
	}
	fn(c)
	return nil
}
