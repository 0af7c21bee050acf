package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const conversationTTL = 24 * time.Hour

// HistoryStore persists history keyed by user id. Load returns an empty
// slice, not an error, for unknown users.
type HistoryStore interface {
	Load(ctx context.Context, userID string) ([]ChatMessage, error)
	Save(ctx context.Context, userID string, history []ChatMessage) error
	Delete(ctx context.Context, userID string) error
}

// MemoryHistoryStore keeps history in process memory.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	history map[string][]ChatMessage
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{history: make(map[string][]ChatMessage)}
}

func (s *MemoryHistoryStore) Load(_ context.Context, userID string) ([]ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.history[userID]...), nil
}

func (s *MemoryHistoryStore) Save(_ context.Context, userID string, history []ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append([]ChatMessage(nil), history...)
	return nil
}

func (s *MemoryHistoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
	return nil
}

// RedisHistoryStore keeps history in Redis as JSON.
type RedisHistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisHistoryStore(client *redis.Client, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = conversationTTL
	}
	return &RedisHistoryStore{
		redis:  client,
		tracer: otel.Tracer("dealerbot.internal.conversation.history"),
		ttl:    ttl,
	}
}

func (s *RedisHistoryStore) Save(ctx context.Context, userID string, history []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Load(ctx context.Context, userID string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisHistoryStore) Delete(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete_history")
	defer span.End()

	if err := s.redis.Del(ctx, conversationKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete history: %w", err)
	}
	return nil
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}
