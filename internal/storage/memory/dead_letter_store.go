package memory

import (
	"context"
	"sort"
	"sync"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// DeadLetterStore is an in-memory implementation of storage.DeadLetterStore.
type DeadLetterStore struct {
	mu   sync.RWMutex
	data []*domain.DeadLetter
}

// NewDeadLetterStore creates a new in-memory dead letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{}
}

// Compile-time interface check.
var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)

// Insert records a unit of work that exhausted its retries.
func (s *DeadLetterStore) Insert(_ context.Context, d *domain.DeadLetter) error {
	if d == nil || d.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *d
	cp.Payload = append([]byte(nil), d.Payload...)
	s.data = append(s.data, &cp)

	return nil
}

// List retrieves dead letters in the window, ordered by time ASC.
func (s *DeadLetterStore) List(_ context.Context, since int64) ([]*domain.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeadLetter
	for _, d := range s.data {
		if d.Time >= since {
			cp := *d
			cp.Payload = append([]byte(nil), d.Payload...)
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}
