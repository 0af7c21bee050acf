package appointment

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

// DefaultStateTTL is how long an abandoned capture lingers in Redis.
const DefaultStateTTL = 24 * time.Hour

// StateStore persists in-progress captures keyed by user id.
type StateStore interface {
	Load(ctx context.Context, userID string) (SlotState, bool, error)
	Save(ctx context.Context, userID string, state SlotState) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStateStore keeps captures in process memory. Contents are lost on restart.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]SlotState
}

// NewMemoryStateStore returns an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]SlotState)}
}

func (s *MemoryStateStore) Load(_ context.Context, userID string) (SlotState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	return state, ok, nil
}

func (s *MemoryStateStore) Save(_ context.Context, userID string, state SlotState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// Len returns the number of captures in progress.
func (s *MemoryStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// RedisStateStore keeps captures in Redis as JSON with a sliding TTL.
type RedisStateStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisStateStore wraps client. A zero ttl uses DefaultStateTTL.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("appointment: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{
		redis:  client,
		tracer: otel.Tracer("dealerbot.internal.appointment.store"),
		ttl:    ttl,
	}
}

func (s *RedisStateStore) Load(ctx context.Context, userID string) (SlotState, bool, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SlotState{}, false, nil
		}
		span.RecordError(err)
		return SlotState{}, false, fmt.Errorf("appointment: failed to load state: %w", err)
	}

	var state SlotState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return SlotState{}, false, fmt.Errorf("appointment: failed to decode state: %w", err)
	}
	return state, true, nil
}

func (s *RedisStateStore) Save(ctx context.Context, userID string, state SlotState) error {
	ctx, span := s.tracer.Start(ctx, "appointment.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointment: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointment: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "appointment.delete_state")
	defer span.End()

	if err := s.redis.Del(ctx, stateKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointment: failed to delete state: %w", err)
	}
	return nil
}

func stateKey(userID string) string {
	return fmt.Sprintf("appointment:%s", userID)
}
