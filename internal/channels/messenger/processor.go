package messenger

import (
	"context"
	"fmt"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// Replier is the part of the Graph API client used to answer a customer.
type Replier interface {
	SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error)
	SendSenderAction(ctx context.Context, recipientID string, action SenderAction) error
}

// Responder produces the reply for one inbound message.
type Responder interface {
	Handle(ctx context.Context, in chat.Inbound) chat.Reply
}

// Processor answers one inbound message end to end: typing indicator on,
// reply, send, typing indicator off.
type Processor struct {
	replier   Replier
	responder Responder
	logger    *logging.Logger
}

func NewProcessor(replier Replier, responder Responder, logger *logging.Logger) *Processor {
	if replier == nil {
		panic("messenger: replier cannot be nil")
	}
	if responder == nil {
		panic("messenger: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{replier: replier, responder: responder, logger: logger}
}

// Process handles in and delivers the reply. Typing indicator failures are
// logged only; the error is returned when the reply could not be sent.
func (p *Processor) Process(ctx context.Context, in chat.Inbound) error {
	logger := p.logger.With("user_id", in.UserID)
	if err := p.replier.SendSenderAction(ctx, in.UserID, ActionTypingOn); err != nil {
		logger.Warn("messenger: typing_on failed", "error", err)
	}

	reply := p.responder.Handle(ctx, in)

	if _, err := p.replier.SendTextMessage(ctx, in.UserID, reply.Text); err != nil {
		logger.Error("messenger: failed to send reply", "stage", reply.Stage, "error", err)
		return fmt.Errorf("messenger: deliver reply: %w", err)
	}

	if err := p.replier.SendSenderAction(ctx, in.UserID, ActionTypingOff); err != nil {
		logger.Warn("messenger: typing_off failed", "error", err)
	}
	return nil
}
