package conversation

import (
	"context"
	"errors"
	"strings"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when a model answers with only whitespace.
var ErrEmptyCompletion = errors.New("conversation: empty completion")

// ChatMessage is one turn of a conversation, including system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is a provider-neutral completion request. System holds extra
// instructions sent ahead of Messages; an empty Model uses the client's default.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse carries the generated text along with the model that served it.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
	Model      string
}

// Answer is the reply text with surrounding whitespace removed.
func (r LLMResponse) Answer() string {
	return strings.TrimSpace(r.Text)
}

// LLMClient generates one assistant turn for a request.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// IsValidRole reports whether role is one of the chat roles.
func IsValidRole(role string) bool {
	switch role {
	case ChatRoleSystem, ChatRoleUser, ChatRoleAssistant:
		return true
	default:
		return false
	}
}
