package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/channels/messenger"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// Publisher enqueues inbound events for the workers.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
	now    func() time.Time
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("worker: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger, now: time.Now}
}

// Enqueue publishes one inbound message.
func (p *Publisher) Enqueue(ctx context.Context, in chat.Inbound) error {
	return p.enqueue(ctx, payload{Inbound: in})
}

// EnqueueMessenger publishes a parsed webhook message. It matches the
// webhook handler's callback signature.
func (p *Publisher) EnqueueMessenger(ctx context.Context, msg messenger.ParsedInboundMessage) error {
	return p.enqueue(ctx, payload{
		Inbound:   chat.Inbound{UserID: msg.SenderID, Text: msg.Text},
		MessageID: msg.MessageID,
	})
}

func (p *Publisher) enqueue(ctx context.Context, pl payload) error {
	pl.EnqueuedAt = p.now().UTC()
	pl, body, err := encodePayload(pl)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("worker: failed to enqueue message: %w", err)
	}
	p.logger.Debug("inbound message enqueued", "job_id", pl.ID, "user_id", pl.Inbound.UserID)
	return nil
}
