package memory

import (
	"context"
	"sort"
	"sync"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// tokenEventKey is the composite uniqueness key for token event rows.
type tokenEventKey struct {
	Mint string
	Time int64
}

// TokenEventStore is an in-memory implementation of storage.TokenEventStore.
type TokenEventStore struct {
	mu   sync.RWMutex
	data []*domain.ScoredEvent
	keys map[tokenEventKey]bool
}

// NewTokenEventStore creates a new in-memory token event store.
func NewTokenEventStore() *TokenEventStore {
	return &TokenEventStore{
		data: make([]*domain.ScoredEvent, 0),
		keys: make(map[tokenEventKey]bool),
	}
}

// Compile-time interface check.
var _ storage.TokenEventStore = (*TokenEventStore)(nil)

// Insert adds a scored event. Returns ErrDuplicateKey if (mint, time) exists.
func (s *TokenEventStore) Insert(_ context.Context, e *domain.ScoredEvent) error {
	if e == nil || e.Event.Mint == "" {
		return storage.ErrInvalidInput
	}

	key := tokenEventKey{Mint: e.Event.Mint, Time: e.Event.SourceTimestamp}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	cp := copyScoredEvent(e)
	s.data = append(s.data, cp)
	s.keys[key] = true

	return nil
}

// InsertBatch adds multiple scored events, reporting per-event failures.
func (s *TokenEventStore) InsertBatch(ctx context.Context, events []*domain.ScoredEvent) (map[int]error, error) {
	failed := make(map[int]error)
	for i, e := range events {
		if err := s.Insert(ctx, e); err != nil {
			failed[i] = err
		}
	}
	if len(failed) == 0 {
		return nil, nil
	}
	return failed, nil
}

// GetByMint retrieves all stored events for a mint, ordered by time ASC.
func (s *TokenEventStore) GetByMint(_ context.Context, mint string) ([]*domain.ScoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoredEvent
	for _, e := range s.data {
		if e.Event.Mint == mint {
			result = append(result, copyScoredEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Event.SourceTimestamp < result[j].Event.SourceTimestamp
	})

	return result, nil
}

// TopByScoreSince retrieves the highest-scoring events in the trailing window.
func (s *TokenEventStore) TopByScoreSince(_ context.Context, since int64, limit int) ([]*domain.ScoredEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoredEvent
	for _, e := range s.data {
		if e.Event.SourceTimestamp >= since {
			result = append(result, copyScoredEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Event.SourceTimestamp < result[j].Event.SourceTimestamp
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// copyScoredEvent deep-copies a scored event so callers cannot mutate stored rows.
func copyScoredEvent(e *domain.ScoredEvent) *domain.ScoredEvent {
	cp := *e
	if e.SocialScore != nil {
		v := *e.SocialScore
		cp.SocialScore = &v
	}
	cp.RiskFlags = append([]domain.RiskFlag(nil), e.RiskFlags...)
	cp.Factors = append([]domain.ScoreFactor(nil), e.Factors...)
	cp.Event.Raw = append([]byte(nil), e.Event.Raw...)
	return &cp
}
