package memory

import (
	"context"
	"sort"
	"sync"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Alert
	sorted []*domain.Alert // insertion order; re-sorted on read
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		byID: make(map[string]*domain.Alert),
	}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a pending alert row. Returns ErrDuplicateKey if the ID exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.Alert) error {
	if a == nil || a.ID == "" || a.Mint == "" || !a.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := copyAlert(a)
	s.byID[a.ID] = cp
	s.sorted = append(s.sorted, cp)

	return nil
}

// GetByID retrieves an alert row. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(_ context.Context, id string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAlert(a), nil
}

// GetActive retrieves non-dismissed rows for (mint, alert_type) in the window.
func (s *AlertStore) GetActive(_ context.Context, mint string, alertType domain.AlertType, since int64) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.sorted {
		if a.Mint == mint && a.Type == alertType && !a.Dismissed && a.Time >= since {
			result = append(result, copyAlert(a))
		}
	}

	sortAlertsByTime(result)
	return result, nil
}

// MarkDelivered records a successful channel delivery.
func (s *AlertStore) MarkDelivered(_ context.Context, id, messageID string, deliveredAt int64) error {
	if messageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	a.MessageID = &messageID
	a.DeliveredAt = &deliveredAt
	return nil
}

// Approve records a manual approval by an external actor.
func (s *AlertStore) Approve(_ context.Context, id, approver string) error {
	if approver == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	a.ApprovedBy = &approver
	return nil
}

// Dismiss marks a row dismissed.
func (s *AlertStore) Dismiss(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	a.Dismissed = true
	return nil
}

// PendingSince retrieves undelivered, non-dismissed rows in the window.
func (s *AlertStore) PendingSince(_ context.Context, since int64) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.sorted {
		if a.Pending() && a.Time >= since {
			result = append(result, copyAlert(a))
		}
	}

	sortAlertsByTime(result)
	return result, nil
}

func sortAlertsByTime(alerts []*domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Time != alerts[j].Time {
			return alerts[i].Time < alerts[j].Time
		}
		return alerts[i].ID < alerts[j].ID
	})
}

// copyAlert deep-copies an alert row.
func copyAlert(a *domain.Alert) *domain.Alert {
	cp := *a
	if a.MessageID != nil {
		v := *a.MessageID
		cp.MessageID = &v
	}
	if a.DeliveredAt != nil {
		v := *a.DeliveredAt
		cp.DeliveredAt = &v
	}
	if a.ApprovedBy != nil {
		v := *a.ApprovedBy
		cp.ApprovedBy = &v
	}
	return &cp
}
