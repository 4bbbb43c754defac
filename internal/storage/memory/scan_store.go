package memory

import (
	"context"
	"sort"
	"sync"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// ScanStore is an in-memory implementation of storage.ScanStore.
type ScanStore struct {
	mu   sync.RWMutex
	data []*domain.ScanRecord
}

// NewScanStore creates a new in-memory scan store.
func NewScanStore() *ScanStore {
	return &ScanStore{}
}

// Compile-time interface check.
var _ storage.ScanStore = (*ScanStore)(nil)

// Insert adds a scan record.
func (s *ScanStore) Insert(_ context.Context, r *domain.ScanRecord) error {
	if r == nil || r.ScanType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	cp.Keywords = append([]string(nil), r.Keywords...)
	cp.Raw = append([]byte(nil), r.Raw...)
	s.data = append(s.data, &cp)

	return nil
}

// GetRecent retrieves scan records in the window, ordered by time DESC.
func (s *ScanStore) GetRecent(_ context.Context, since int64) ([]*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScanRecord
	for _, r := range s.data {
		if r.Time >= since {
			cp := *r
			cp.Keywords = append([]string(nil), r.Keywords...)
			cp.Raw = append([]byte(nil), r.Raw...)
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time > result[j].Time
	})

	return result, nil
}
