package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTTL = 24 * time.Hour

// Store keeps sessions in Redis with a sliding TTL. Load never reports a
// missing session; first contact simply yields an empty one.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a session store. ttl <= 0 falls back to 24h.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("lyo.internal.session"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock serializes load/append/save cycles for one session. Two events for
// the same (tenant, customer) must not interleave their read-then-write.
func (s *Store) Lock(tenantID, customerID uuid.UUID) func() {
	key := sessionKey(tenantID, customerID)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Load returns the session for (tenant, customer), creating an empty one if
// none is stored. Access extends the TTL.
func (s *Store) Load(ctx context.Context, tenantID, customerID uuid.UUID) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	key := sessionKey(tenantID, customerID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return &Session{TenantID: tenantID, CustomerID: customerID}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		// A corrupt session is recoverable: start fresh rather than wedging
		// the conversation.
		return &Session{TenantID: tenantID, CustomerID: customerID}, nil
	}
	_ = s.redis.Expire(ctx, key, s.ttl).Err()
	return &sess, nil
}

// Save persists the session and resets its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: encode: %w", err)
	}
	key := sessionKey(sess.TenantID, sess.CustomerID)
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Clear drops a session, e.g. after an explicit conversation end.
func (s *Store) Clear(ctx context.Context, tenantID, customerID uuid.UUID) error {
	if err := s.redis.Del(ctx, sessionKey(tenantID, customerID)).Err(); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func sessionKey(tenantID, customerID uuid.UUID) string {
	return fmt.Sprintf("session:%s:%s", tenantID, customerID)
}
