// Package dispatch decouples ingestion from scoring with a bounded work
// queue and a worker pool.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/idhash"
	"tokenwatch/internal/observability"
	"tokenwatch/internal/retry"
	"tokenwatch/internal/risk"
	"tokenwatch/internal/scoring"
	"tokenwatch/internal/social"
	"tokenwatch/internal/storage"
)

// Router evaluates a scored event for alerting. Implementations must be
// idempotent: re-routing the same event must not create duplicate alerts.
type Router interface {
	Route(ctx context.Context, e *domain.ScoredEvent) error
}

// Config configures the dispatcher.
type Config struct {
	// QueueSize bounds the queue between the listener and the workers.
	// Submit blocks when full, which backpressures the stream.
	QueueSize int
	// Workers is the size of the worker pool.
	Workers int
	// MaxAttempts bounds retries per unit; exhaustion dead-letters the unit.
	MaxAttempts int
	// RetryBase and RetryMax shape the backoff between attempts.
	RetryBase time.Duration
	RetryMax  time.Duration
	// StepTimeout bounds each store/routing call inside a unit.
	StepTimeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:   1024,
		Workers:     8,
		MaxAttempts: 3,
		RetryBase:   500 * time.Millisecond,
		RetryMax:    10 * time.Second,
		StepTimeout: 15 * time.Second,
	}
}

// unit is one dequeued event moving through the pipeline steps. The persisted
// flag makes the write and the alert evaluation independently retryable:
// after the write lands, later attempts only re-run routing.
type unit struct {
	event     *domain.RawEvent
	eventID   string
	scored    *domain.ScoredEvent
	persisted bool
	attempts  int
}

// Dispatcher runs units through RiskFilter, SocialCache lookup, Scorer,
// Persister, and AlertRouter, with bounded retry and a dead-letter sink.
type Dispatcher struct {
	cfg Config

	filter *risk.Filter
	scorer *scoring.Scorer
	cache  social.Cache
	events storage.TokenEventStore
	router Router
	deadl  storage.DeadLetterStore

	logger  *log.Logger
	metrics *observability.Metrics

	queue chan *domain.RawEvent
}

// NewDispatcher creates a Dispatcher. cache and deadl may be nil (no social
// enrichment / dead letters dropped with a log line); the rest are required.
func NewDispatcher(
	cfg Config,
	filter *risk.Filter,
	scorer *scoring.Scorer,
	cache social.Cache,
	events storage.TokenEventStore,
	router Router,
	deadl storage.DeadLetterStore,
	logger *log.Logger,
	metrics *observability.Metrics,
) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultConfig().StepTimeout
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		cfg:     cfg,
		filter:  filter,
		scorer:  scorer,
		cache:   cache,
		events:  events,
		router:  router,
		deadl:   deadl,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan *domain.RawEvent, cfg.QueueSize),
	}
}

// Submit enqueues an event, blocking while the queue is full so the caller
// pauses consumption instead of dropping.
func (d *Dispatcher) Submit(ctx context.Context, e *domain.RawEvent) error {
	if e == nil {
		return fmt.Errorf("dispatch: nil event")
	}

	select {
	case d.queue <- e:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
	}

	// Queue full: surface the backpressure and block.
	d.metrics.RecordBackpressure()
	select {
	case d.queue <- e:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth returns the current number of queued units.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Run executes the worker pool until the context is cancelled. Workers stop
// at unit boundaries; an in-flight store write always completes because
// writes run on a timeout context detached from the shutdown signal.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-d.queue:
					d.metrics.SetQueueDepth(len(d.queue))
					d.process(ctx, e)
				}
			}
		})
	}

	return g.Wait()
}

// process runs one unit to a terminal state: done, dead-lettered, or
// abandoned by shutdown.
func (d *Dispatcher) process(ctx context.Context, e *domain.RawEvent) {
	start := time.Now()
	u := &unit{
		event:   e,
		eventID: idhash.ComputeEventID(e.Mint, e.Source, e.SourceTimestamp),
	}

	policy := retry.Policy{
		MaxAttempts: d.cfg.MaxAttempts,
		BaseDelay:   d.cfg.RetryBase,
		MaxDelay:    d.cfg.RetryMax,
		Jitter:      d.cfg.RetryBase / 2,
		Classify:    classify,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			d.metrics.RecordUnitRetry()
			d.logger.Printf("dispatch: retrying %s (attempt %d, wait %s): %v", e.Mint, attempt, wait, err)
		},
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		u.attempts++
		return d.attempt(ctx, u)
	})

	elapsed := time.Since(start).Seconds()
	switch {
	case err == nil:
		d.metrics.RecordUnitOutcome("ok", elapsed)
	case ctx.Err() != nil:
		// Shutdown, not failure. At-least-once delivery means the unit can
		// reappear on restart.
		d.metrics.RecordUnitOutcome("cancelled", elapsed)
	default:
		d.metrics.RecordUnitOutcome("dead_letter", elapsed)
		d.deadLetter(u, err)
	}
}

// attempt runs the unit's steps in order. Cancellation is honored only at
// step boundaries; individual writes run on a detached timeout context so
// they finish even during shutdown.
func (d *Dispatcher) attempt(ctx context.Context, u *unit) error {
	if u.scored == nil {
		flags := d.filter.Evaluate(u.event)

		// Social lookup fails open: scoring treats an unreachable cache the
		// same as a mint with no social data.
		var socialScore *float64
		if d.cache != nil {
			lookupCtx, cancel := context.WithTimeout(ctx, d.cfg.StepTimeout)
			score, _, ok, err := d.cache.Get(lookupCtx, u.event.Mint)
			cancel()
			if err != nil {
				d.logger.Printf("dispatch: social lookup failed for %s: %v", u.event.Mint, err)
			} else if ok {
				socialScore = &score
			}
		}

		score, factors := d.scorer.Score(u.event, socialScore, flags)
		u.scored = &domain.ScoredEvent{
			Event:       *u.event,
			Score:       score,
			SocialScore: socialScore,
			RiskFlags:   flags,
			Factors:     factors,
			ScoredAt:    time.Now().UnixMilli(),
		}
	}

	if !u.persisted {
		err := d.stepWrite(ctx, func(ctx context.Context) error {
			return d.events.Insert(ctx, u.scored)
		})
		// A duplicate key means an earlier attempt (or another worker
		// processing a redelivery) already wrote this row.
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist %s: %w", u.event.Mint, err)
		}
		u.persisted = true
	}

	// Safe boundary between persist and routing.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.stepWrite(ctx, func(ctx context.Context) error {
		return d.router.Route(ctx, u.scored)
	}); err != nil {
		return fmt.Errorf("route %s: %w", u.event.Mint, err)
	}

	return nil
}

// stepWrite runs fn with a timeout context detached from shutdown
// cancellation, so in-flight writes complete instead of tearing mid-way.
func (d *Dispatcher) stepWrite(ctx context.Context, fn func(context.Context) error) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.StepTimeout)
	defer cancel()
	return fn(writeCtx)
}

// deadLetter records a unit that exhausted its retries. Never silently
// dropped: if the store itself fails, the payload lands in the log.
func (d *Dispatcher) deadLetter(u *unit, cause error) {
	d.metrics.RecordDeadLetter()

	payload, err := json.Marshal(u.event)
	if err != nil {
		payload = u.event.Raw
	}

	dl := &domain.DeadLetter{
		Time:      time.Now().UnixMilli(),
		EventID:   u.eventID,
		Mint:      u.event.Mint,
		Attempts:  u.attempts,
		LastError: cause.Error(),
		Payload:   payload,
	}

	if d.deadl == nil {
		d.logger.Printf("dispatch: dead letter (no store) %s after %d attempts: %v", u.event.Mint, u.attempts, cause)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.StepTimeout)
	defer cancel()
	if err := d.deadl.Insert(ctx, dl); err != nil {
		d.logger.Printf("dispatch: dead letter insert failed for %s: %v (cause: %v, payload: %s)",
			u.event.Mint, err, cause, payload)
	}
}

// classify treats bad input as fatal and everything else as transient.
func classify(err error) retry.Class {
	if errors.Is(err, storage.ErrInvalidInput) {
		return retry.Fatal
	}
	if errors.Is(err, context.Canceled) {
		return retry.Fatal
	}
	return retry.Retryable
}
