package postgres

import (
	"context"
	"fmt"
	"time"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// DeadLetterStore implements storage.DeadLetterStore using TimescaleDB.
type DeadLetterStore struct {
	pool *Pool
}

// NewDeadLetterStore creates a new DeadLetterStore.
func NewDeadLetterStore(pool *Pool) *DeadLetterStore {
	return &DeadLetterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)

// Insert records a unit of work that exhausted its retries.
func (s *DeadLetterStore) Insert(ctx context.Context, d *domain.DeadLetter) error {
	if d == nil || d.EventID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dead_letters (time, event_id, mint, attempts, last_error, payload)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	`

	var payload any
	if len(d.Payload) > 0 {
		payload = string(d.Payload)
	}

	_, err := s.pool.exec(ctx, "dead_letters_insert", query,
		time.UnixMilli(d.Time).UTC(),
		d.EventID,
		d.Mint,
		d.Attempts,
		d.LastError,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// List retrieves dead letters in the window, ordered by time ASC.
func (s *DeadLetterStore) List(ctx context.Context, since int64) ([]*domain.DeadLetter, error) {
	query := `
		SELECT time, event_id, mint, attempts, last_error, payload
		FROM dead_letters
		WHERE time >= $1
		ORDER BY time ASC
	`

	rows, err := s.pool.query(ctx, "dead_letters_list", query, time.UnixMilli(since).UTC())
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*domain.DeadLetter
	for rows.Next() {
		var (
			d       domain.DeadLetter
			ts      time.Time
			payload []byte
		)

		if err := rows.Scan(&ts, &d.EventID, &d.Mint, &d.Attempts, &d.LastError, &payload); err != nil {
			return nil, fmt.Errorf("scan dead letter row: %w", err)
		}

		d.Time = ts.UnixMilli()
		d.Payload = payload
		letters = append(letters, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letter rows: %w", err)
	}

	return letters, nil
}
