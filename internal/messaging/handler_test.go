package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

type capturePublisher struct {
	published []Inbound
	err       error
}

func (c *capturePublisher) Publish(_ context.Context, msg Inbound) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	return nil
}

func newHandlerFixture(t *testing.T) (*WebhookHandler, *capturePublisher, *tenant.Tenant) {
	t.Helper()
	tn := &tenant.Tenant{
		ID:            uuid.New(),
		PhoneNumberID: "10987654321",
		Name:          "Aura Hair Studio",
		Timezone:      "Europe/Rome",
		Language:      "it",
		Status:        tenant.StatusActive,
	}
	dir := tenant.NewMemoryDirectory()
	dir.Upsert(tn)
	pub := &capturePublisher{}
	h := NewWebhookHandler("segretissimo", dir, pub, logging.New("error"), nil)
	return h, pub, tn
}

func TestVerifyHandshake(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	t.Run("matching token echoes the challenge", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=segretissimo&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()

		h.Verify(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1158201444", rec.Body.String())
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=sbagliato&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()

		h.Verify(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotContains(t, rec.Body.String(), "1158201444")
	})

	t.Run("missing mode is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/webhook?hub.verify_token=segretissimo&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()

		h.Verify(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func metaPayload(phoneNumberID, from, text string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"metadata": {"display_phone_number": "390612345678", "phone_number_id": %q},
					"contacts": [{"wa_id": %q, "profile": {"name": "Giulia"}}],
					"messages": [{
						"id": "wamid.abc123",
						"from": %q,
						"timestamp": "1756710000",
						"type": "text",
						"text": {"body": %q}
					}]
				}
			}]
		}]
	}`, phoneNumberID, from, from, text)
}

func TestReceive(t *testing.T) {
	t.Run("accepts and enqueues a text", func(t *testing.T) {
		h, pub, tn := newHandlerFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			strings.NewReader(metaPayload(tn.PhoneNumberID, "393331234567", "vorrei prenotare")))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, pub.published, 1)
		msg := pub.published[0]
		assert.Equal(t, tn.ID, msg.TenantID)
		assert.Equal(t, "393331234567", msg.WaID)
		assert.Equal(t, "Giulia", msg.ProfileName)
		assert.Equal(t, "vorrei prenotare", msg.Text)
		assert.Equal(t, "wamid.abc123", msg.MessageID)
		assert.Equal(t, time.Unix(1756710000, 0).UTC(), msg.ReceivedAt)
	})

	t.Run("unknown phone number is dropped with 200", func(t *testing.T) {
		h, pub, _ := newHandlerFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			strings.NewReader(metaPayload("0000000000", "393331234567", "ciao")))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, pub.published)
	})

	t.Run("suspended tenant is dropped with 200", func(t *testing.T) {
		h, pub, tn := newHandlerFixture(t)
		tn.Status = tenant.StatusSuspended
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			strings.NewReader(metaPayload(tn.PhoneNumberID, "393331234567", "ciao")))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, pub.published)
	})

	t.Run("garbage body still gets 200", func(t *testing.T) {
		h, pub, _ := newHandlerFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, pub.published)
	})

	t.Run("status updates are acknowledged without publishing", func(t *testing.T) {
		h, pub, tn := newHandlerFixture(t)
		payload := fmt.Sprintf(`{
			"object": "whatsapp_business_account",
			"entry": [{"id": "e", "changes": [{"field": "messages", "value": {
				"metadata": {"phone_number_id": %q},
				"statuses": [{"id": "wamid.x", "status": "delivered", "recipient_id": "393331234567"}]
			}}]}]
		}`, tn.PhoneNumberID)
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, pub.published)
	})
}

func TestWebhookPayloadSkipsNonText(t *testing.T) {
	payload := WebhookPayload{
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: Value{
					Metadata: Metadata{PhoneNumberID: "123"},
					Messages: []InboundMessage{
						{ID: "wamid.1", From: "39333", Type: "image"},
						{ID: "wamid.2", From: "39333", Type: "text"},
					},
				},
			}},
		}},
	}
	payload.Entry[0].Changes[0].Value.Messages[1].Text.Body = "ciao"

	texts := payload.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "wamid.2", texts[0].MessageID)
}
