package messenger

import "time"

// WebhookEvent is the top-level structure Meta posts to the page webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one batch of events for a page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging event.
type Messaging struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
}

// Participant identifies a page-scoped user or the page itself.
type Participant struct {
	ID string `json:"id"`
}

// Message is the content of an inbound message. Attachment-only messages
// arrive with an empty Text.
type Message struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// SenderAction is a typing indicator or read receipt.
type SenderAction string

const (
	ActionTypingOn  SenderAction = "typing_on"
	ActionTypingOff SenderAction = "typing_off"
	ActionMarkSeen  SenderAction = "mark_seen"
)

// SendRequest is the body of POST /me/messages. Exactly one of Message and
// SenderAction is set.
type SendRequest struct {
	Recipient     Participant  `json:"recipient"`
	MessagingType string       `json:"messaging_type,omitempty"`
	Message       *SendMessage `json:"message,omitempty"`
	SenderAction  SenderAction `json:"sender_action,omitempty"`
}

// SendMessage is the content of an outbound message.
type SendMessage struct {
	Text string `json:"text"`
}

// SendResponse is the Graph API reply to a send.
type SendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *SendError `json:"error,omitempty"`
}

// SendError is an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// ParsedInboundMessage is the normalized result of parsing a webhook event.
type ParsedInboundMessage struct {
	SenderID    string
	RecipientID string
	Text        string
	Timestamp   time.Time
	MessageID   string
}
