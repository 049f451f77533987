package session

import (
	"context"
	"sync"
	"time"

	"storefront/internal/model"
)

type memoryDraft struct {
	details model.CheckoutDetails
	expires time.Time
}

// memoryStore is the single-process DraftStore used when Redis is disabled.
type memoryStore struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	now    func() time.Time
}

// NewMemoryStore creates an in-process draft store.
func NewMemoryStore() DraftStore {
	return &memoryStore{
		drafts: make(map[string]memoryDraft),
		now:    time.Now,
	}
}

func (s *memoryStore) Save(_ context.Context, key string, details model.CheckoutDetails, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.drafts[key] = memoryDraft{details: details, expires: s.now().Add(ttl)}
	return nil
}

func (s *memoryStore) Load(_ context.Context, key string) (*model.CheckoutDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(d.expires) {
		delete(s.drafts, key)
		return nil, nil
	}
	details := d.details
	return &details, nil
}

func (s *memoryStore) Discard(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, key)
	return nil
}

// sweep drops expired drafts. Callers hold mu.
func (s *memoryStore) sweep() {
	now := s.now()
	for k, d := range s.drafts {
		if !now.Before(d.expires) {
			delete(s.drafts, k)
		}
	}
}
