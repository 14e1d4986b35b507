// Package conversation is the asynchronous half of the pipeline: the webhook
// publishes inbound messages to a queue, workers dequeue them, run the
// extract-execute-compose turn and send the reply.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyosaas/booking-engine/internal/messaging"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Publisher enqueues inbound messages for the workers. It is the
// messaging.Publisher the webhook handler uses.
type Publisher struct {
	queue queueClient
}

// NewPublisher wraps a queue as a publisher.
func NewPublisher(queue queueClient) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	return &Publisher{queue: queue}
}

// Publish encodes the message and enqueues it.
func (p *Publisher) Publish(ctx context.Context, msg messaging.Inbound) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: encode inbound message: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("conversation: enqueue inbound message: %w", err)
	}
	return nil
}
