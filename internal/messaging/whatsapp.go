package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// Sender delivers one text to a customer on behalf of a tenant. The returned
// ID is the provider message ID.
type Sender interface {
	SendText(ctx context.Context, tn *tenant.Tenant, toWaID, text string) (string, error)
	MarkRead(ctx context.Context, tn *tenant.Tenant, messageID string) error
}

// GraphSender sends through the WhatsApp Cloud (Graph) API. Each tenant
// authenticates with its own access token and phone number ID.
type GraphSender struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// NewGraphSender creates a Graph API sender. baseURL is the versioned API
// root, e.g. "https://graph.facebook.com/v19.0".
func NewGraphSender(baseURL string, timeout time.Duration, logger *logging.Logger) *GraphSender {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type sendTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *graphError) Error() string {
	return fmt.Sprintf("messaging: graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

func (g *GraphSender) SendText(ctx context.Context, tn *tenant.Tenant, toWaID, text string) (string, error) {
	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               toWaID,
		Type:             "text",
	}
	payload.Text.Body = text

	var resp sendResponse
	if err := g.post(ctx, tn, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("messaging: graph api returned no message id")
	}
	return resp.Messages[0].ID, nil
}

// MarkRead shows the blue ticks while the reply is being prepared.
func (g *GraphSender) MarkRead(ctx context.Context, tn *tenant.Tenant, messageID string) error {
	payload := map[string]string{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return g.post(ctx, tn, payload, &sendResponse{})
}

func (g *GraphSender) post(ctx context.Context, tn *tenant.Tenant, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("messaging: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", g.baseURL, tn.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messaging: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tn.AccessToken)

	httpResp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: graph api request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("messaging: read response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		if httpResp.StatusCode >= 400 {
			return fmt.Errorf("messaging: graph api status %d", httpResp.StatusCode)
		}
		return fmt.Errorf("messaging: decode response: %w", err)
	}
	if resp, ok := out.(*sendResponse); ok && resp.Error != nil {
		return resp.Error
	}
	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("messaging: graph api status %d", httpResp.StatusCode)
	}
	return nil
}
