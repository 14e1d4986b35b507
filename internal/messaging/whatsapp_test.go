package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

func TestGraphSenderSendText(t *testing.T) {
	tn := &tenant.Tenant{
		ID:            uuid.New(),
		PhoneNumberID: "10987654321",
		AccessToken:   "EAAG-token",
	}

	t.Run("sends with tenant credentials", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out1"}]}`))
		}))
		defer srv.Close()

		s := NewGraphSender(srv.URL, time.Second, logging.New("error"))
		id, err := s.SendText(context.Background(), tn, "393331234567", "Prenotazione confermata!")
		require.NoError(t, err)

		assert.Equal(t, "wamid.out1", id)
		assert.Equal(t, "/10987654321/messages", gotPath)
		assert.Equal(t, "Bearer EAAG-token", gotAuth)
		assert.Equal(t, "whatsapp", gotBody["messaging_product"])
		assert.Equal(t, "393331234567", gotBody["to"])
		text := gotBody["text"].(map[string]any)
		assert.Equal(t, "Prenotazione confermata!", text["body"])
	})

	t.Run("surfaces graph api errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
		}))
		defer srv.Close()

		s := NewGraphSender(srv.URL, time.Second, logging.New("error"))
		_, err := s.SendText(context.Background(), tn, "393331234567", "ciao")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OAuthException")
	})

	t.Run("marks messages as read", func(t *testing.T) {
		var gotBody map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_, _ = w.Write([]byte(`{"success":true}`))
		}))
		defer srv.Close()

		s := NewGraphSender(srv.URL, time.Second, logging.New("error"))
		require.NoError(t, s.MarkRead(context.Background(), tn, "wamid.in1"))
		assert.Equal(t, "read", gotBody["status"])
		assert.Equal(t, "wamid.in1", gotBody["message_id"])
	})
}
