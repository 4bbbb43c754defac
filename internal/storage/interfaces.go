package storage

import (
	"context"

	"tokenwatch/internal/domain"
)

// TokenEventStore provides access to token_events storage.
// Rows are append-only: the pipeline never updates or deletes them.
type TokenEventStore interface {
	// Insert adds a scored event. Returns ErrDuplicateKey if a row with the
	// same (mint, time) already exists, which makes retried writes safe no-ops.
	Insert(ctx context.Context, e *domain.ScoredEvent) error

	// InsertBatch adds multiple scored events. A partially-failed batch reports
	// which individual events failed (indexed into the input slice) so the
	// caller can retry only those; the returned error covers batch-level
	// failures only. Duplicates are reported as ErrDuplicateKey per event.
	InsertBatch(ctx context.Context, events []*domain.ScoredEvent) (map[int]error, error)

	// GetByMint retrieves all stored events for a mint, ordered by time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.ScoredEvent, error)

	// TopByScoreSince retrieves the highest-scoring events observed at or
	// after the given timestamp (ms), ordered by score DESC, at most limit rows.
	TopByScoreSince(ctx context.Context, since int64, limit int) ([]*domain.ScoredEvent, error)
}

// AlertStore provides access to alerts storage. Unlike token events, alert
// rows carry mutable delivery state (delivered_at, approved_by, dismissed).
type AlertStore interface {
	// Insert adds a pending alert row. Returns ErrDuplicateKey if the
	// deterministic alert ID already exists.
	Insert(ctx context.Context, a *domain.Alert) error

	// GetByID retrieves an alert row. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)

	// GetActive retrieves non-dismissed rows for (mint, alert_type) created at
	// or after the given timestamp (ms). Used for the dedup-window check.
	GetActive(ctx context.Context, mint string, alertType domain.AlertType, since int64) ([]*domain.Alert, error)

	// MarkDelivered records a successful channel delivery. A delivered row
	// always gains both a message identifier and a delivery timestamp.
	MarkDelivered(ctx context.Context, id, messageID string, deliveredAt int64) error

	// Approve records a manual approval by an external actor.
	Approve(ctx context.Context, id, approver string) error

	// Dismiss marks a row dismissed. Terminal; set only by an external actor.
	Dismiss(ctx context.Context, id string) error

	// PendingSince retrieves undelivered, non-dismissed rows created at or
	// after the given timestamp (ms), ordered by time ASC. This is the
	// reconciliation read view.
	PendingSince(ctx context.Context, since int64) ([]*domain.Alert, error)
}

// ScanStore provides access to nova_scans storage. The external social
// refresher is the sole writer; the pipeline only reads.
type ScanStore interface {
	// Insert adds a scan record. Called by the refresher collaborator.
	Insert(ctx context.Context, s *domain.ScanRecord) error

	// GetRecent retrieves scan records at or after the given timestamp (ms),
	// ordered by time DESC.
	GetRecent(ctx context.Context, since int64) ([]*domain.ScanRecord, error)
}

// DeadLetterStore provides access to dead_letters storage.
type DeadLetterStore interface {
	// Insert records a unit of work that exhausted its retries.
	Insert(ctx context.Context, d *domain.DeadLetter) error

	// List retrieves dead letters at or after the given timestamp (ms),
	// ordered by time ASC.
	List(ctx context.Context, since int64) ([]*domain.DeadLetter, error)
}
