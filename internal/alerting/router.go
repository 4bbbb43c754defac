package alerting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/idhash"
	"tokenwatch/internal/observability"
	"tokenwatch/internal/risk"
	"tokenwatch/internal/storage"
)

// Config holds the alert qualification thresholds and the dedup window.
type Config struct {
	HighScoreThreshold   float64
	EscalationThreshold  float64
	UrgentThreshold      float64
	SocialSpikeThreshold float64
	DedupWindow          time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		HighScoreThreshold:   70,
		EscalationThreshold:  85,
		UrgentThreshold:      95,
		SocialSpikeThreshold: 80,
		DedupWindow:          5 * time.Minute,
	}
}

// Router turns scored events into per-channel alert rows and delivers them.
//
// Delivery model: a logical alert fans out into one pending row per channel
// with a deterministic ID, so retried routing never duplicates rows. Each
// channel is delivered in isolation; one failing channel never blocks the
// others, and undelivered rows are picked up by RetryPending. Alerts at or
// above the escalation threshold are created but withheld until an operator
// approves them.
type Router struct {
	cfg        Config
	store      storage.AlertStore
	primary    []Channel
	escalation []Channel
	urgent     []Channel
	logger     *log.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewRouter creates an alert router. primary channels receive every
// qualifying alert; escalation channels are added at or above the escalation
// threshold; urgent channels at or above the urgent threshold.
func NewRouter(
	cfg Config,
	store storage.AlertStore,
	primary, escalation, urgent []Channel,
	logger *log.Logger,
	metrics *observability.Metrics,
) *Router {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultConfig().DedupWindow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		cfg:        cfg,
		store:      store,
		primary:    primary,
		escalation: escalation,
		urgent:     urgent,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Route qualifies the scored event against each alert type independently and
// creates and delivers the resulting alerts. Store-level failures are
// returned so the dispatch layer retries the unit; channel delivery failures
// are absorbed and reconciled later.
func (r *Router) Route(ctx context.Context, e *domain.ScoredEvent) error {
	var errs []error
	for _, t := range r.qualify(e) {
		if err := r.routeType(ctx, e, t); err != nil {
			errs = append(errs, fmt.Errorf("route %s for %s: %w", t, e.Event.Mint, err))
		}
	}
	return errors.Join(errs...)
}

// qualify returns the alert types this event triggers, in a fixed order.
// Each type is judged independently; one event can raise several.
func (r *Router) qualify(e *domain.ScoredEvent) []domain.AlertType {
	var types []domain.AlertType
	if e.Score >= r.cfg.HighScoreThreshold {
		types = append(types, domain.AlertHighScore)
	}
	if risk.HasCritical(e.RiskFlags) {
		types = append(types, domain.AlertRugRisk)
	}
	if e.SocialScore != nil && *e.SocialScore >= r.cfg.SocialSpikeThreshold {
		types = append(types, domain.AlertSocialSpike)
	}
	return types
}

// channelsFor selects the delivery ladder for one alert. Escalation and
// urgent channels join only for high-score alerts that cross their
// thresholds; risk and social alerts stay on the primary channels.
func (r *Router) channelsFor(t domain.AlertType, score float64) []Channel {
	channels := append([]Channel(nil), r.primary...)
	if t != domain.AlertHighScore {
		return channels
	}
	if score >= r.cfg.EscalationThreshold {
		channels = append(channels, r.escalation...)
	}
	if score >= r.cfg.UrgentThreshold {
		channels = append(channels, r.urgent...)
	}
	return channels
}

func (r *Router) routeType(ctx context.Context, e *domain.ScoredEvent, t domain.AlertType) error {
	now := r.now()
	since := now.Add(-r.cfg.DedupWindow).UnixMilli()

	active, err := r.store.GetActive(ctx, e.Event.Mint, t, since)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if len(active) > 0 {
		r.metrics.RecordAlertSuppressed(t.String())
		return nil
	}

	bucket := now.UnixMilli() / r.cfg.DedupWindow.Milliseconds()
	gated := e.Score >= r.cfg.EscalationThreshold

	var errs []error
	created := 0
	for _, ch := range r.channelsFor(t, e.Score) {
		a := &domain.Alert{
			ID:        idhash.ComputeAlertID(e.Event.Mint, t, bucket, ch.Name()),
			Time:      now.UnixMilli(),
			Mint:      e.Event.Mint,
			Symbol:    e.Event.Symbol,
			Type:      t,
			Score:     e.Score,
			Channel:   ch.Name(),
			ChannelID: ch.Target(),
		}
		switch err := r.store.Insert(ctx, a); {
		case err == nil:
			created++
		case errors.Is(err, storage.ErrDuplicateKey):
			// Row exists from an earlier attempt at this unit; keep going
			// so a still-pending row is delivered below.
			existing, err := r.store.GetByID(ctx, a.ID)
			if err != nil {
				errs = append(errs, fmt.Errorf("load existing alert %s: %w", a.ID, err))
				continue
			}
			if !existing.Pending() {
				continue
			}
		default:
			errs = append(errs, fmt.Errorf("insert alert %s: %w", a.ID, err))
			continue
		}

		if gated {
			continue
		}
		r.deliver(ctx, ch, a, e)
	}

	if created > 0 {
		r.metrics.RecordAlertCreated(t.String())
		if gated {
			r.metrics.RecordAlertGated()
			r.logger.Printf("alert gated awaiting approval: mint=%s type=%s score=%.1f", e.Event.Mint, t, e.Score)
		}
	}
	return errors.Join(errs...)
}

// deliver attempts one channel send and records the outcome. Failures are
// logged and counted, never propagated: the row stays pending and the
// reconciliation pass re-attempts it.
func (r *Router) deliver(ctx context.Context, ch Channel, a *domain.Alert, e *domain.ScoredEvent) {
	msgID, err := ch.Send(ctx, a, e)
	if err != nil {
		r.metrics.RecordAlertFailed(ch.Name())
		r.logger.Printf("alert delivery failed: channel=%s alert=%s: %v", ch.Name(), a.ID, err)
		return
	}
	if err := r.store.MarkDelivered(ctx, a.ID, msgID, r.now().UnixMilli()); err != nil {
		// Delivered but not recorded; the reconciliation pass may resend.
		r.logger.Printf("mark delivered failed: alert=%s: %v", a.ID, err)
		return
	}
	r.metrics.RecordAlertDelivered(ch.Name())
}

// RetryPending re-attempts delivery of pending alert rows created at or
// after since, skipping rows still gated on approval. It returns the number
// of rows delivered.
func (r *Router) RetryPending(ctx context.Context, since time.Time) (int, error) {
	rows, err := r.store.PendingSince(ctx, since.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("load pending alerts: %w", err)
	}

	delivered := 0
	for _, a := range rows {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if r.awaitingApproval(a) {
			continue
		}
		ch := r.channelByName(a.Channel)
		if ch == nil {
			r.logger.Printf("pending alert %s references unknown channel %q", a.ID, a.Channel)
			continue
		}
		msgID, err := ch.Send(ctx, a, nil)
		if err != nil {
			r.metrics.RecordAlertFailed(ch.Name())
			r.logger.Printf("alert redelivery failed: channel=%s alert=%s: %v", ch.Name(), a.ID, err)
			continue
		}
		if err := r.store.MarkDelivered(ctx, a.ID, msgID, r.now().UnixMilli()); err != nil {
			r.logger.Printf("mark delivered failed: alert=%s: %v", a.ID, err)
			continue
		}
		r.metrics.RecordAlertDelivered(ch.Name())
		delivered++
	}
	return delivered, nil
}

// Approve records the operator approval and immediately attempts delivery of
// the released row.
func (r *Router) Approve(ctx context.Context, alertID, approver string) error {
	if err := r.store.Approve(ctx, alertID, approver); err != nil {
		return fmt.Errorf("approve alert %s: %w", alertID, err)
	}
	a, err := r.store.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("load approved alert %s: %w", alertID, err)
	}
	if !a.Pending() {
		return nil
	}
	ch := r.channelByName(a.Channel)
	if ch == nil {
		return fmt.Errorf("alert %s references unknown channel %q", alertID, a.Channel)
	}
	r.deliver(ctx, ch, a, nil)
	return nil
}

// awaitingApproval reports whether the row is withheld by the approval gate.
func (r *Router) awaitingApproval(a *domain.Alert) bool {
	return a.Score >= r.cfg.EscalationThreshold && a.ApprovedBy == nil
}

func (r *Router) channelByName(name string) Channel {
	for _, set := range [][]Channel{r.primary, r.escalation, r.urgent} {
		for _, ch := range set {
			if ch.Name() == name {
				return ch
			}
		}
	}
	return nil
}
