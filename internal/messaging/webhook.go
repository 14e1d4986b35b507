// Package messaging speaks the WhatsApp Cloud API: webhook payloads in,
// Graph API sends out.
package messaging

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// WebhookPayload is the outer envelope Meta posts to the webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []DeliveryStatus `json:"statuses"`
}

// Metadata identifies which business number received the message; its
// PhoneNumberID is the tenant routing key.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// DeliveryStatus reports sent/delivered/read transitions for outbound
// messages. The webhook acknowledges them without processing.
type DeliveryStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// Inbound is one customer text, flattened for the conversation queue.
type Inbound struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	PhoneNumberID string    `json:"phone_number_id"`
	WaID          string    `json:"wa_id"`
	ProfileName   string    `json:"profile_name,omitempty"`
	MessageID     string    `json:"message_id"`
	Text          string    `json:"text"`
	ReceivedAt    time.Time `json:"received_at"`
}

// Texts flattens the payload into the text messages it carries, pairing each
// message with its contact profile. Non-text messages and status updates are
// skipped.
func (p *WebhookPayload) Texts() []Inbound {
	var out []Inbound
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				out = append(out, Inbound{
					PhoneNumberID: change.Value.Metadata.PhoneNumberID,
					WaID:          msg.From,
					ProfileName:   names[msg.From],
					MessageID:     msg.ID,
					Text:          msg.Text.Body,
					ReceivedAt:    parseEpoch(msg.Timestamp),
				})
			}
		}
	}
	return out
}

func parseEpoch(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
