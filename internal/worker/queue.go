// Package worker moves inbound Messenger events through a queue so the
// webhook can acknowledge Meta immediately.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
)

// Queue is the transport between the webhook and the workers.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// payload is the JSON body of a queued event.
type payload struct {
	ID         string       `json:"id"`
	Inbound    chat.Inbound `json:"inbound"`
	MessageID  string       `json:"messageId,omitempty"`
	EnqueuedAt time.Time    `json:"enqueuedAt"`
}

func encodePayload(p payload) (payload, string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return payload{}, "", fmt.Errorf("worker: failed to encode payload: %w", err)
	}
	return p, string(body), nil
}

func decodePayload(body string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return payload{}, fmt.Errorf("worker: failed to decode payload: %w", err)
	}
	if strings.TrimSpace(p.Inbound.UserID) == "" {
		return payload{}, fmt.Errorf("worker: payload %q has no user id", p.ID)
	}
	return p, nil
}
