package postgres

import (
	"context"
	"fmt"
	"time"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// ScanStore implements storage.ScanStore using TimescaleDB.
// The external social refresher is the sole writer of this table.
type ScanStore struct {
	pool *Pool
}

// NewScanStore creates a new ScanStore.
func NewScanStore(pool *Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScanStore = (*ScanStore)(nil)

// Insert adds a scan record.
func (s *ScanStore) Insert(ctx context.Context, r *domain.ScanRecord) error {
	if r == nil || r.ScanType == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nova_scans (
			time, platform, scan_type, keywords, results_count, scan_duration_s, raw_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
	`

	var raw any
	if len(r.Raw) > 0 {
		raw = string(r.Raw)
	}

	_, err := s.pool.exec(ctx, "social_scans_insert", query,
		time.UnixMilli(r.Time).UTC(),
		r.Platform,
		r.ScanType,
		r.Keywords,
		r.ResultsCount,
		r.ScanDurationS,
		raw,
	)
	if err != nil {
		return fmt.Errorf("insert nova scan: %w", err)
	}
	return nil
}

// GetRecent retrieves scan records in the window, ordered by time DESC.
func (s *ScanStore) GetRecent(ctx context.Context, since int64) ([]*domain.ScanRecord, error) {
	query := `
		SELECT time, platform, scan_type, keywords, results_count, scan_duration_s, raw_data
		FROM nova_scans
		WHERE time >= $1
		ORDER BY time DESC
	`

	rows, err := s.pool.query(ctx, "social_scans_get_recent", query, time.UnixMilli(since).UTC())
	if err != nil {
		return nil, fmt.Errorf("get recent nova scans: %w", err)
	}
	defer rows.Close()

	var records []*domain.ScanRecord
	for rows.Next() {
		var (
			r   domain.ScanRecord
			ts  time.Time
			raw []byte
		)

		err := rows.Scan(&ts, &r.Platform, &r.ScanType, &r.Keywords, &r.ResultsCount, &r.ScanDurationS, &raw)
		if err != nil {
			return nil, fmt.Errorf("scan nova scan row: %w", err)
		}

		r.Time = ts.UnixMilli()
		r.Raw = raw
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nova scan rows: %w", err)
	}

	return records, nil
}
