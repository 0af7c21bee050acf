package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// RelayRequest is the body of POST /sendMessage.
type RelayRequest struct {
	SenderID string `json:"senderId"`
	Query    string `json:"query"`
}

// MessageProcessor answers one inbound message.
type MessageProcessor interface {
	Process(ctx context.Context, in chat.Inbound) error
}

// RelayHandler serves POST /sendMessage, which answers a message
// synchronously without going through the queue.
type RelayHandler struct {
	processor MessageProcessor
	logger    *logging.Logger
}

func NewRelayHandler(processor MessageProcessor, logger *logging.Logger) *RelayHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RelayHandler{processor: processor, logger: logger}
}

func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing senderId or query"})
		return
	}

	if err := h.processor.Process(r.Context(), chat.Inbound{UserID: req.SenderID, Text: req.Query}); err != nil {
		h.logger.Error("messenger: relay failed", "user_id", req.SenderID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": "failed to deliver reply",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
