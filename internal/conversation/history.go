// Package conversation keeps each user's rolling chat history and talks to
// the completion providers.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultHistoryLimit is the number of turns kept per user.
const DefaultHistoryLimit = 10

// Window trims turns to the most recent limit entries. A leading system turn
// is always kept and counts toward the limit.
func Window(turns []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	if turns[0].Role == ChatRoleSystem {
		if limit == 1 {
			return turns[:1]
		}
		tail := turns[len(turns)-(limit-1):]
		out := make([]ChatMessage, 0, limit)
		out = append(out, turns[0])
		return append(out, tail...)
	}
	return append([]ChatMessage(nil), turns[len(turns)-limit:]...)
}

// Manager owns per-user history: appending, trimming, and clearing.
type Manager struct {
	store        HistoryStore
	limit        int
	systemPrompt string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHistoryLimit sets how many turns are kept.
func WithHistoryLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

// WithSystemPrompt seeds new conversations with a leading system turn.
func WithSystemPrompt(prompt string) ManagerOption {
	return func(m *Manager) {
		m.systemPrompt = strings.TrimSpace(prompt)
	}
}

func NewManager(store HistoryStore, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("conversation: history store cannot be nil")
	}
	m := &Manager{store: store, limit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append adds a turn for userID and trims the history.
func (m *Manager) Append(ctx context.Context, userID, role, text string) error {
	if !IsValidRole(role) {
		return fmt.Errorf("conversation: invalid role %q", role)
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("conversation: user id is required")
	}
	history, err := m.store.Load(ctx, userID)
	if err != nil {
		return err
	}
	if len(history) == 0 && m.systemPrompt != "" && role != ChatRoleSystem {
		history = append(history, ChatMessage{Role: ChatRoleSystem, Content: m.systemPrompt})
	}
	history = append(history, ChatMessage{Role: role, Content: text})
	return m.store.Save(ctx, userID, Window(history, m.limit))
}

// Context returns a copy of userID's history, ready to send to a provider.
func (m *Manager) Context(ctx context.Context, userID string) ([]ChatMessage, error) {
	history, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 && m.systemPrompt != "" {
		return []ChatMessage{{Role: ChatRoleSystem, Content: m.systemPrompt}}, nil
	}
	return append([]ChatMessage(nil), history...), nil
}

// Clear discards userID's history.
func (m *Manager) Clear(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, userID)
}
