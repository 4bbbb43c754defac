package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// AlertStore implements storage.AlertStore using TimescaleDB.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a pending alert row. Returns ErrDuplicateKey if the ID exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.ID == "" || a.Mint == "" || !a.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO alerts (
			id, time, mint, symbol, alert_type, score,
			channel, channel_id, message_id, delivered_at, approved_by, dismissed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.exec(ctx, "alerts_insert", query,
		a.ID,
		time.UnixMilli(a.Time).UTC(),
		a.Mint,
		a.Symbol,
		a.Type.String(),
		a.Score,
		a.Channel,
		a.ChannelID,
		a.MessageID,
		msToTime(a.DeliveredAt),
		a.ApprovedBy,
		a.Dismissed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert row. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	query := selectAlertSQL + ` WHERE id = $1`

	rows, err := s.pool.query(ctx, "alerts_get_by_id", query, id)
	if err != nil {
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, storage.ErrNotFound
	}
	return alerts[0], nil
}

// GetActive retrieves non-dismissed rows for (mint, alert_type) in the window.
func (s *AlertStore) GetActive(ctx context.Context, mint string, alertType domain.AlertType, since int64) ([]*domain.Alert, error) {
	query := selectAlertSQL + `
		WHERE mint = $1 AND alert_type = $2 AND NOT dismissed AND time >= $3
		ORDER BY time ASC, id ASC
	`

	rows, err := s.pool.query(ctx, "alerts_get_active", query, mint, alertType.String(), time.UnixMilli(since).UTC())
	if err != nil {
		return nil, fmt.Errorf("get active alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// MarkDelivered records a successful channel delivery.
func (s *AlertStore) MarkDelivered(ctx context.Context, id, messageID string, deliveredAt int64) error {
	if messageID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE alerts
		SET message_id = $2, delivered_at = $3
		WHERE id = $1
	`

	tag, err := s.pool.exec(ctx, "alerts_mark_delivered", query, id, messageID, time.UnixMilli(deliveredAt).UTC())
	if err != nil {
		return fmt.Errorf("mark alert delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Approve records a manual approval by an external actor.
func (s *AlertStore) Approve(ctx context.Context, id, approver string) error {
	if approver == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.exec(ctx, "alerts_approve", `UPDATE alerts SET approved_by = $2 WHERE id = $1`, id, approver)
	if err != nil {
		return fmt.Errorf("approve alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Dismiss marks a row dismissed.
func (s *AlertStore) Dismiss(ctx context.Context, id string) error {
	tag, err := s.pool.exec(ctx, "alerts_dismiss", `UPDATE alerts SET dismissed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PendingSince retrieves undelivered, non-dismissed rows in the window.
func (s *AlertStore) PendingSince(ctx context.Context, since int64) ([]*domain.Alert, error) {
	query := selectAlertSQL + `
		WHERE delivered_at IS NULL AND NOT dismissed AND time >= $1
		ORDER BY time ASC, id ASC
	`

	rows, err := s.pool.query(ctx, "alerts_pending_since", query, time.UnixMilli(since).UTC())
	if err != nil {
		return nil, fmt.Errorf("get pending alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

const selectAlertSQL = `
	SELECT id, time, mint, symbol, alert_type, score,
	       channel, channel_id, message_id, delivered_at, approved_by, dismissed
	FROM alerts
`

// scanAlerts scans multiple rows into a slice of Alert.
func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var alerts []*domain.Alert

	for rows.Next() {
		var (
			a         domain.Alert
			ts        time.Time
			alertType string
			delivered *time.Time
		)

		err := rows.Scan(
			&a.ID,
			&ts,
			&a.Mint,
			&a.Symbol,
			&alertType,
			&a.Score,
			&a.Channel,
			&a.ChannelID,
			&a.MessageID,
			&delivered,
			&a.ApprovedBy,
			&a.Dismissed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}

		a.Time = ts.UnixMilli()
		a.Type = domain.AlertType(alertType)
		if delivered != nil {
			ms := delivered.UnixMilli()
			a.DeliveredAt = &ms
		}

		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}

	return alerts, nil
}

// msToTime converts an optional millisecond timestamp to *time.Time.
func msToTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
