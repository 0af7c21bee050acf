package messenger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const (
	pageObject      = "page"
	maxWebhookBytes = 1 << 20
)

// WebhookHandler handles Messenger webhook verification and inbound events.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onMessage   func(ctx context.Context, msg ParsedInboundMessage) error
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates a webhook handler. onMessage is called once per
// text message after Meta has been acknowledged; it should only enqueue.
// An empty appSecret disables signature checks.
func NewWebhookHandler(verifyToken, appSecret string, onMessage func(context.Context, ParsedInboundMessage) error, m *metrics.ChatMetrics, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onMessage:   onMessage,
		metrics:     m,
		logger:      logger,
	}
}

// HandleVerification answers Meta's GET subscription challenge.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && hmac.Equal([]byte(token), []byte(h.verifyToken)) {
		h.metrics.ObserveWebhook("verify", "ok")
		h.logger.Info("messenger: webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	h.metrics.ObserveWebhook("verify", "forbidden")
	h.logger.Warn("messenger: webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		if !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
			h.metrics.ObserveWebhook("event", "bad_signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.ObserveWebhook("event", "malformed")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Meta retries anything that is not acknowledged quickly.
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")

	if event.Object != pageObject {
		h.metrics.ObserveWebhook("event", "ignored")
		h.logger.Info("messenger: ignoring non-page webhook", "object", event.Object)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	for _, msg := range ParseWebhookEvent(event) {
		if h.onMessage == nil {
			continue
		}
		if err := h.onMessage(ctx, msg); err != nil {
			h.metrics.ObserveWebhook("message", "error")
			h.logger.Error("messenger: failed to enqueue message", "sender_id", msg.SenderID, "error", err)
			continue
		}
		h.metrics.ObserveWebhook("message", "ok")
	}
}

// ParseWebhookEvent extracts the text messages from a webhook event. Echoes
// of the page's own messages and events without text are skipped.
func ParseWebhookEvent(event WebhookEvent) []ParsedInboundMessage {
	var messages []ParsedInboundMessage

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil || m.Message.IsEcho {
				continue
			}
			if m.Sender.ID == "" || strings.TrimSpace(m.Message.Text) == "" {
				continue
			}
			messages = append(messages, ParsedInboundMessage{
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				Text:        m.Message.Text,
				Timestamp:   time.UnixMilli(m.Timestamp),
				MessageID:   m.Message.MID,
			})
		}
	}

	return messages
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	const prefix = "sha256="
	if len(signature) <= len(prefix) || !strings.HasPrefix(signature, prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
