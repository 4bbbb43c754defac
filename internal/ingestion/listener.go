// Package ingestion normalizes raw stream messages into pipeline events.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"tokenwatch/internal/dedup"
	"tokenwatch/internal/domain"
	"tokenwatch/internal/observability"
)

// Stream is the live message source the listener consumes.
type Stream interface {
	Messages() <-chan json.RawMessage
	LastMessageAt() int64
}

// Submitter accepts normalized events for processing. Submit blocks while the
// downstream queue is full, which is how backpressure reaches the stream.
type Submitter interface {
	Submit(ctx context.Context, e *domain.RawEvent) error
}

// Config configures ingest-side filtering.
type Config struct {
	// MinMarketCapUSD drops events below the market-cap floor; 0 disables.
	MinMarketCapUSD float64
	// MinVolumeSOL drops events below the volume floor; 0 disables.
	MinVolumeSOL float64
	// SOLUSDEstimate converts SOL figures into USD estimates.
	SOLUSDEstimate float64
}

// DefaultConfig returns the default ingest configuration.
func DefaultConfig() Config {
	return Config{SOLUSDEstimate: 150}
}

// wireEvent is the PumpPortal token-create payload shape.
type wireEvent struct {
	Mint                string  `json:"mint"`
	TxType              string  `json:"txType"`
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	MarketCapSol        float64 `json:"marketCapSol"`
	VSolInBondingCurve  float64 `json:"vSolInBondingCurve"`
	Holders             int64   `json:"holders"`
	DevHoldPercent      float64 `json:"devHoldPercent"`
	Top10HoldPercent    float64 `json:"top10HoldPercent"`
	MintAuthorityActive bool    `json:"mintAuthorityActive"`
	MetadataFrozen      bool    `json:"metadataFrozen"`
	PriceChangePercent  float64 `json:"priceChangePercent"`
	Twitter             string  `json:"twitter"`
	Telegram            string  `json:"telegram"`
	Website             string  `json:"website"`
	Timestamp           int64   `json:"timestamp"`
}

// Listener validates, dedupes, filters, and normalizes stream messages, then
// hands each surviving event to the dispatcher. Single goroutine so ingestion
// order is preserved.
type Listener struct {
	stream  Stream
	submit  Submitter
	deduper dedup.Deduper
	cfg     Config
	logger  *log.Logger
	metrics *observability.Metrics

	// lastIngestAt is the Unix millisecond timestamp of the last event
	// accepted downstream, for the health surface.
	lastIngestAt atomic.Int64
}

// NewListener creates a Listener.
func NewListener(stream Stream, submit Submitter, deduper dedup.Deduper, cfg Config, logger *log.Logger, metrics *observability.Metrics) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		stream:  stream,
		submit:  submit,
		deduper: deduper,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// LastIngestAt returns the Unix millisecond timestamp of the last event
// submitted downstream, 0 if none yet.
func (l *Listener) LastIngestAt() int64 {
	return l.lastIngestAt.Load()
}

// Run consumes the stream until the context is cancelled or the stream
// closes. Malformed messages are counted and dropped; the loop never stops
// for bad input.
func (l *Listener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-l.stream.Messages():
			if !ok {
				return nil
			}
			l.metrics.RecordEventReceived()
			if err := l.handle(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.logger.Printf("ingest: %v", err)
			}
		}
	}
}

func (l *Listener) handle(ctx context.Context, msg json.RawMessage) error {
	var w wireEvent
	if err := json.Unmarshal(msg, &w); err != nil {
		l.metrics.RecordEventMalformed()
		return nil
	}

	if !validEvent(&w) {
		l.metrics.RecordEventMalformed()
		return nil
	}

	// Stream-level dedup keeps repeat broadcasts of the same mint from
	// re-entering the queue. Dedup failures fail open: a broken Redis must
	// not stall ingestion.
	if l.deduper != nil {
		seen, err := l.deduper.Seen(ctx, w.Mint)
		if err != nil {
			l.logger.Printf("ingest: dedup check failed for %s: %v", w.Mint, err)
		} else if seen {
			l.metrics.RecordEventDeduped()
			return nil
		}
	}

	marketCapUSD := w.MarketCapSol * l.cfg.SOLUSDEstimate
	if l.cfg.MinMarketCapUSD > 0 && marketCapUSD < l.cfg.MinMarketCapUSD {
		l.metrics.RecordEventFiltered("market_cap")
		return nil
	}
	if l.cfg.MinVolumeSOL > 0 && w.VSolInBondingCurve < l.cfg.MinVolumeSOL {
		l.metrics.RecordEventFiltered("volume")
		return nil
	}

	e := l.normalize(&w, msg)

	if err := l.submit.Submit(ctx, e); err != nil {
		return fmt.Errorf("submit %s: %w", e.Mint, err)
	}

	now := time.Now().UnixMilli()
	l.lastIngestAt.Store(now)
	l.metrics.RecordEventSubmitted(float64(now) / 1000)
	return nil
}

// normalize builds the immutable pipeline event from the wire payload.
func (l *Listener) normalize(w *wireEvent, raw json.RawMessage) *domain.RawEvent {
	ts := w.Timestamp
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}

	return &domain.RawEvent{
		Mint:            w.Mint,
		Name:            sanitize(w.Name, 64),
		Symbol:          sanitize(w.Symbol, 10),
		VolumeSOL:       w.VSolInBondingCurve,
		Holders:         w.Holders,
		MarketCapUSD:    w.MarketCapSol * l.cfg.SOLUSDEstimate,
		LiquiditySOL:    w.VSolInBondingCurve,
		LiquidityUSD:    w.VSolInBondingCurve * l.cfg.SOLUSDEstimate,
		PriceChangePct:  w.PriceChangePercent,
		AgeSeconds:      0, // brand new on create events
		DevHoldPct:      w.DevHoldPercent,
		Top10HoldPct:    w.Top10HoldPercent,
		MintAuthority:   w.MintAuthorityActive,
		MetadataFrozen:  w.MetadataFrozen,
		Twitter:         w.Twitter,
		Telegram:        w.Telegram,
		Website:         w.Website,
		Source:          domain.SourcePumpPortal,
		SourceTimestamp: ts,
		Raw:             raw,
	}
}

// validEvent accepts only token-create events with a plausible mint address.
func validEvent(w *wireEvent) bool {
	if w.TxType != "create" {
		return false
	}
	if len(w.Mint) < 30 || len(w.Mint) > 50 {
		return false
	}
	if _, err := base58.Decode(w.Mint); err != nil {
		return false
	}
	return true
}

// sanitize strips markdown control characters that would break alert
// rendering and truncates to at most maxLen bytes on a rune boundary, so
// the result is always valid UTF-8.
func sanitize(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	r := strings.NewReplacer("*", "", "`", "", "[", "", "]", "")
	s = r.Replace(s)
	if len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return strings.TrimSpace(s)
}
