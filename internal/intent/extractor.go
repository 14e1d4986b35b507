package intent

import (
	"context"
	"errors"
	"time"

	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

// ErrExtractionUnavailable signals that no commands could be produced and the
// caller should fall back to a clarification reply. It covers provider
// outages, timeouts and unusable model output alike.
var ErrExtractionUnavailable = errors.New("intent: extraction unavailable")

// Extractor produces a command batch from one inbound message. The tenant
// supplies the service catalog and timezone; recent turns give the model
// context for elliptical follow-ups ("e alle 16?" after a slot was refused).
type Extractor interface {
	Extract(ctx context.Context, tn *tenant.Tenant, recent []session.Turn, text string) (Batch, error)
}

// TimeoutExtractor bounds each extraction with a deadline so a slow provider
// cannot stall the conversation pipeline.
type TimeoutExtractor struct {
	inner   Extractor
	timeout time.Duration
}

// WithTimeout wraps an extractor with a per-call deadline.
func WithTimeout(inner Extractor, timeout time.Duration) *TimeoutExtractor {
	if inner == nil {
		panic("intent: extractor required")
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &TimeoutExtractor{inner: inner, timeout: timeout}
}

func (t *TimeoutExtractor) Extract(ctx context.Context, tn *tenant.Tenant, recent []session.Turn, text string) (Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	batch, err := t.inner.Extract(ctx, tn, recent, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Batch{}, ErrExtractionUnavailable
		}
		return Batch{}, err
	}
	return batch, nil
}

// Fallback tries extractors in order, returning the first non-empty batch.
// A rule-based extractor behind the model keeps the bot responsive when the
// provider is down.
type Fallback struct {
	chain []Extractor
}

// NewFallback builds a chain; nil entries are skipped.
func NewFallback(extractors ...Extractor) *Fallback {
	var chain []Extractor
	for _, e := range extractors {
		if e != nil {
			chain = append(chain, e)
		}
	}
	if len(chain) == 0 {
		panic("intent: at least one extractor required")
	}
	return &Fallback{chain: chain}
}

func (f *Fallback) Extract(ctx context.Context, tn *tenant.Tenant, recent []session.Turn, text string) (Batch, error) {
	var lastErr error
	for _, e := range f.chain {
		batch, err := e.Extract(ctx, tn, recent, text)
		if err != nil {
			lastErr = err
			continue
		}
		if !batch.Empty() {
			return batch, nil
		}
	}
	if lastErr != nil {
		return Batch{}, lastErr
	}
	return Batch{}, ErrExtractionUnavailable
}
