package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// Publisher hands accepted messages to the conversation queue.
type Publisher interface {
	Publish(ctx context.Context, msg Inbound) error
}

// WebhookHandler terminates the Meta webhook. GET is the subscription
// handshake; POST receives messages, which are acknowledged with 200 before
// any processing happens. Meta retries non-200 responses, so the handler
// returns 200 even for payloads it drops.
type WebhookHandler struct {
	verifyToken string
	directory   tenant.Directory
	publisher   Publisher
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(verifyToken string, directory tenant.Directory, publisher Publisher, logger *logging.Logger, m *metrics.Metrics) *WebhookHandler {
	if directory == nil {
		panic("messaging: tenant directory required")
	}
	if publisher == nil {
		panic("messaging: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		directory:   directory,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
	}
}

// Verify handles the GET handshake: echo hub.challenge when the token
// matches, 403 otherwise.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	h.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "forbidden", http.StatusForbidden)
}

// Receive handles POSTed events.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("webhook payload unparseable", "error", err)
		// Meta retries non-200 responses; a broken payload stays broken.
		w.WriteHeader(http.StatusOK)
		return
	}

	accepted := 0
	for _, msg := range payload.Texts() {
		tn, err := h.directory.Resolve(r.Context(), msg.PhoneNumberID)
		if err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				h.logger.Warn("message for unknown phone number dropped", "phone_number_id", msg.PhoneNumberID)
				h.metrics.ObserveDropped("unknown_tenant")
				continue
			}
			h.logger.Error("tenant resolution failed", "phone_number_id", msg.PhoneNumberID, "error", err)
			continue
		}
		if !tn.Active() {
			h.logger.Warn("message for inactive tenant dropped", "tenant_id", tn.ID, "status", tn.Status)
			h.metrics.ObserveDropped("inactive_tenant")
			continue
		}

		msg.TenantID = tn.ID
		if err := h.publisher.Publish(r.Context(), msg); err != nil {
			h.logger.Error("enqueue failed", "tenant_id", tn.ID, "message_id", msg.MessageID, "error", err)
			continue
		}
		accepted++
		h.metrics.ObserveInbound(tn.ID.String())
	}

	h.logger.Debug("webhook batch processed", "accepted", accepted)
	w.WriteHeader(http.StatusOK)
}
