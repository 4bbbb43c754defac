package reporting

import (
	"context"
	"sort"
	"time"

	"tokenwatch/internal/storage"
)

// Generator produces digests from stored data.
type Generator struct {
	eventStore      storage.TokenEventStore
	alertStore      storage.AlertStore
	deadLetterStore storage.DeadLetterStore
	scanStore       storage.ScanStore

	// gateThreshold marks pending alerts that wait on manual approval.
	gateThreshold float64

	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a digest generator. scanStore may be nil when no
// social refresher writes into this database.
func NewGenerator(
	eventStore storage.TokenEventStore,
	alertStore storage.AlertStore,
	deadLetterStore storage.DeadLetterStore,
	scanStore storage.ScanStore,
	gateThreshold float64,
) *Generator {
	return &Generator{
		eventStore:      eventStore,
		alertStore:      alertStore,
		deadLetterStore: deadLetterStore,
		scanStore:       scanStore,
		gateThreshold:   gateThreshold,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete digest covering the window ending now.
func (g *Generator) Generate(ctx context.Context, window time.Duration, topN int) (*Report, error) {
	end := g.now()
	since := end.Add(-window).UnixMilli()

	topTokens, err := g.topTokens(ctx, since, topN)
	if err != nil {
		return nil, err
	}

	pendingAlerts, gated, err := g.pendingAlerts(ctx, since)
	if err != nil {
		return nil, err
	}

	deadLetters, err := g.deadLetters(ctx, since)
	if err != nil {
		return nil, err
	}

	scans, err := g.scanActivity(ctx, since)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:   end,
		WindowStart:   since,
		WindowEnd:     end.UnixMilli(),
		TopTokens:     topTokens,
		PendingAlerts: pendingAlerts,
		DeadLetters:   deadLetters,
		ScanActivity:  scans,
		Summary: Summary{
			TopTokenCount:     len(topTokens),
			PendingAlertCount: len(pendingAlerts),
			GatedAlertCount:   gated,
			DeadLetterCount:   len(deadLetters),
			ScanCount:         scans.ScanCount,
		},
	}, nil
}

func (g *Generator) topTokens(ctx context.Context, since int64, topN int) ([]TokenRow, error) {
	if topN <= 0 {
		return nil, nil
	}
	events, err := g.eventStore.TopByScoreSince(ctx, since, topN)
	if err != nil {
		return nil, err
	}

	rows := make([]TokenRow, 0, len(events))
	for _, e := range events {
		flags := make([]string, 0, len(e.RiskFlags))
		for _, f := range e.RiskFlags {
			flags = append(flags, string(f))
		}
		rows = append(rows, TokenRow{
			Mint:         e.Event.Mint,
			Symbol:       e.Event.Symbol,
			Score:        e.Score,
			SocialScore:  e.SocialOrZero(),
			LiquiditySOL: e.Event.LiquiditySOL,
			VolumeSOL:    e.Event.VolumeSOL,
			Holders:      e.Event.Holders,
			RiskFlags:    flags,
			ScoredAt:     e.ScoredAt,
		})
	}
	return rows, nil
}

func (g *Generator) pendingAlerts(ctx context.Context, since int64) ([]PendingAlertRow, int, error) {
	alerts, err := g.alertStore.PendingSince(ctx, since)
	if err != nil {
		return nil, 0, err
	}

	gated := 0
	rows := make([]PendingAlertRow, 0, len(alerts))
	for _, a := range alerts {
		row := PendingAlertRow{
			ID:       a.ID,
			Mint:     a.Mint,
			Symbol:   a.Symbol,
			Type:     a.Type.String(),
			Score:    a.Score,
			Channel:  a.Channel,
			Time:     a.Time,
			Gated:    a.Score >= g.gateThreshold && a.ApprovedBy == nil,
			Approved: a.ApprovedBy != nil,
		}
		if row.Gated {
			gated++
		}
		rows = append(rows, row)
	}
	return rows, gated, nil
}

func (g *Generator) deadLetters(ctx context.Context, since int64) ([]DeadLetterRow, error) {
	letters, err := g.deadLetterStore.List(ctx, since)
	if err != nil {
		return nil, err
	}

	rows := make([]DeadLetterRow, 0, len(letters))
	for _, d := range letters {
		rows = append(rows, DeadLetterRow{
			EventID:   d.EventID,
			Mint:      d.Mint,
			Attempts:  d.Attempts,
			LastError: d.LastError,
			Time:      d.Time,
		})
	}
	return rows, nil
}

func (g *Generator) scanActivity(ctx context.Context, since int64) (ScanActivity, error) {
	if g.scanStore == nil {
		return ScanActivity{}, nil
	}
	scans, err := g.scanStore.GetRecent(ctx, since)
	if err != nil {
		return ScanActivity{}, err
	}

	activity := ScanActivity{ScanCount: len(scans)}
	platformSet := make(map[string]struct{})
	for _, s := range scans {
		activity.TotalResults += s.ResultsCount
		platformSet[s.Platform] = struct{}{}
		if s.Time > activity.LastScanAt {
			activity.LastScanAt = s.Time
		}
	}
	for p := range platformSet {
		activity.Platforms = append(activity.Platforms, p)
	}
	sort.Strings(activity.Platforms)
	return activity, nil
}
