package leads

import (
	"context"
	"sync"
)

// Repository defines the interface for lead storage
type Repository interface {
	Append(ctx context.Context, lead Lead) error
	List(ctx context.Context) ([]Lead, error)
	// Replace swaps the whole sheet, as an upload does.
	Replace(ctx context.Context, leads []Lead) error
}

// InMemoryRepository keeps leads in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads []Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Append(_ context.Context, lead Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.leads = append(r.leads, lead)
	r.mu.Unlock()
	return nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Lead, len(r.leads))
	copy(out, r.leads)
	return out, nil
}

func (r *InMemoryRepository) Replace(_ context.Context, leads []Lead) error {
	r.mu.Lock()
	r.leads = append([]Lead(nil), leads...)
	r.mu.Unlock()
	return nil
}
