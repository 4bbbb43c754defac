package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

// TokenEventStore implements storage.TokenEventStore using TimescaleDB.
type TokenEventStore struct {
	pool *Pool
}

// NewTokenEventStore creates a new TokenEventStore.
func NewTokenEventStore(pool *Pool) *TokenEventStore {
	return &TokenEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenEventStore = (*TokenEventStore)(nil)

const insertTokenEventSQL = `
	INSERT INTO token_events (
		time, mint, name, symbol, score,
		volume_sol, holders, market_cap_usd, liquidity_usd,
		social_score, risk_flags, source, raw_data
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
`

// Insert adds a scored event. Returns ErrDuplicateKey if (mint, time) exists.
func (s *TokenEventStore) Insert(ctx context.Context, e *domain.ScoredEvent) error {
	if e == nil || e.Event.Mint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.exec(ctx, "token_events_insert", insertTokenEventSQL, tokenEventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token event: %w", err)
	}
	return nil
}

// InsertBatch adds multiple scored events, one statement per event so a single
// failure never poisons the rest of the batch. Failed indexes are reported so
// the caller retries only those.
func (s *TokenEventStore) InsertBatch(ctx context.Context, events []*domain.ScoredEvent) (map[int]error, error) {
	if len(events) == 0 {
		return nil, nil
	}

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
func (s *TokenEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.ScoredEvent, error) {
	query := selectTokenEventSQL + `
		WHERE mint = $1
		ORDER BY time ASC
	`

	rows, err := s.pool.query(ctx, "token_events_get_by_mint", query, mint)
	if err != nil {
		return nil, fmt.Errorf("get token events by mint: %w", err)
	}
	defer rows.Close()

	return scanTokenEvents(rows)
}

// TopByScoreSince retrieves the highest-scoring events in the trailing window.
func (s *TokenEventStore) TopByScoreSince(ctx context.Context, since int64, limit int) ([]*domain.ScoredEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := selectTokenEventSQL + `
		WHERE time >= $1
		ORDER BY score DESC, time ASC
		LIMIT $2
	`

	rows, err := s.pool.query(ctx, "token_events_top_by_score", query, time.UnixMilli(since).UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("get top token events: %w", err)
	}
	defer rows.Close()

	return scanTokenEvents(rows)
}

const selectTokenEventSQL = `
	SELECT time, mint, name, symbol, score,
	       volume_sol, holders, market_cap_usd, liquidity_usd,
	       social_score, risk_flags, source, raw_data
	FROM token_events
`

// tokenEventArgs builds the insert argument list for a scored event.
func tokenEventArgs(e *domain.ScoredEvent) []any {
	flags := make([]string, len(e.RiskFlags))
	for i, f := range e.RiskFlags {
		flags[i] = string(f)
	}

	var raw any
	if len(e.Event.Raw) > 0 {
		raw = string(e.Event.Raw)
	}

	return []any{
		time.UnixMilli(e.Event.SourceTimestamp).UTC(),
		e.Event.Mint,
		e.Event.Name,
		e.Event.Symbol,
		e.Score,
		e.Event.VolumeSOL,
		e.Event.Holders,
		e.Event.MarketCapUSD,
		e.Event.LiquidityUSD,
		e.SocialScore,
		flags,
		e.Event.Source.String(),
		raw,
	}
}

// scanTokenEvents scans multiple rows into a slice of ScoredEvent.
// Fields that live only inside raw_data are not reconstructed.
func scanTokenEvents(rows pgx.Rows) ([]*domain.ScoredEvent, error) {
	var events []*domain.ScoredEvent

	for rows.Next() {
		var (
			e      domain.ScoredEvent
			ts     time.Time
			flags  []string
			source string
			raw    []byte
		)

		err := rows.Scan(
			&ts,
			&e.Event.Mint,
			&e.Event.Name,
			&e.Event.Symbol,
			&e.Score,
			&e.Event.VolumeSOL,
			&e.Event.Holders,
			&e.Event.MarketCapUSD,
			&e.Event.LiquidityUSD,
			&e.SocialScore,
			&flags,
			&source,
			&raw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token event row: %w", err)
		}

		e.Event.SourceTimestamp = ts.UnixMilli()
		e.Event.Source = domain.Source(source)
		e.Event.Raw = raw
		e.ScoredAt = ts.UnixMilli()
		for _, f := range flags {
			e.RiskFlags = append(e.RiskFlags, domain.RiskFlag(f))
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token event rows: %w", err)
	}

	return events, nil
}
