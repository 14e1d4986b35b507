package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// RetrySender wraps a Sender with bounded exponential backoff. After the
// final attempt fails the error is returned; the caller logs the permanent
// failure and moves on rather than blocking the conversation worker.
type RetrySender struct {
	inner       Sender
	logger      *logging.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error // test seam
}

// NewRetrySender wraps inner with retries.
func NewRetrySender(inner Sender, logger *logging.Logger, m *metrics.Metrics) *RetrySender {
	if inner == nil {
		panic("messaging: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetrySender{
		inner:       inner,
		logger:      logger,
		metrics:     m,
		maxAttempts: 3,
		baseDelay:   2 * time.Second,
		sleep:       sleepCtx,
	}
}

func (r *RetrySender) WithMaxAttempts(n int) *RetrySender {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *RetrySender) WithBaseDelay(d time.Duration) *RetrySender {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

func (r *RetrySender) SendText(ctx context.Context, tn *tenant.Tenant, toWaID, text string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * (1 << (attempt - 1))
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		id, err := r.inner.SendText(ctx, tn, toWaID, text)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("send succeeded after retry", "tenant_id", tn.ID, "attempt", attempt+1)
			}
			r.metrics.ObserveOutbound("sent")
			return id, nil
		}
		lastErr = err
		r.logger.Warn("send attempt failed",
			"tenant_id", tn.ID, "attempt", attempt+1, "max_attempts", r.maxAttempts, "error", err)
	}
	r.metrics.ObserveOutbound("failed")
	r.logger.Error("send permanently failed", "tenant_id", tn.ID, "attempts", r.maxAttempts, "error", lastErr)
	return "", fmt.Errorf("messaging: send failed after %d attempts: %w", r.maxAttempts, lastErr)
}

// MarkRead is best-effort and never retried.
func (r *RetrySender) MarkRead(ctx context.Context, tn *tenant.Tenant, messageID string) error {
	return r.inner.MarkRead(ctx, tn, messageID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
