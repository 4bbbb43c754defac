package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"tokenwatch/internal/alerting"
	"tokenwatch/internal/config"
	"tokenwatch/internal/dedup"
	"tokenwatch/internal/dispatch"
	"tokenwatch/internal/ingestion"
	"tokenwatch/internal/observability"
	"tokenwatch/internal/pumpws"
	"tokenwatch/internal/risk"
	"tokenwatch/internal/scoring"
	"tokenwatch/internal/social"
	pgstore "tokenwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	logger := log.New(os.Stdout, "[sentry] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(cfg.App.ShutdownTimeout):
			logger.Printf("Graceful shutdown timed out after %s, forcing exit", cfg.App.ShutdownTimeout)
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	metrics := observability.NewMetrics("tokenwatch")

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	pool.Instrument(metrics)

	eventStore := pgstore.NewTokenEventStore(pool)
	alertStore := pgstore.NewAlertStore(pool)
	deadLetterStore := pgstore.NewDeadLetterStore(pool)

	// Redis backs stream dedup and the social cache. Without it both fall
	// back to in-process state, which is fine for a single instance but
	// loses dedup across restarts.
	var cache social.Cache
	var deduper dedup.Deduper
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		cache = social.NewRedisCache(rdb, cfg.Social.KeyPrefix, cfg.Social.StaleTTL, cfg.Social.TTL)
		deduper = dedup.NewRedisDeduper(rdb, "", cfg.Ingest.DedupTTL)
	} else {
		logger.Println("No redis address configured, using in-memory dedup and social cache")
		cache = social.NewMemoryCache(cfg.Social.StaleTTL, cfg.Social.TTL)
		deduper = dedup.NewMemoryDeduper(cfg.Ingest.DedupTTL)
	}

	router := alerting.NewRouter(
		alerting.Config{
			HighScoreThreshold:   cfg.Alerting.HighScoreThreshold,
			EscalationThreshold:  cfg.Alerting.EscalationThreshold,
			UrgentThreshold:      cfg.Alerting.UrgentThreshold,
			SocialSpikeThreshold: cfg.Alerting.SocialSpikeThreshold,
			DedupWindow:          cfg.Alerting.DedupWindow,
		},
		alertStore,
		primaryChannels(cfg, logger),
		escalationChannels(cfg),
		urgentChannels(cfg),
		logger,
		metrics,
	)

	thresholds := risk.DefaultThresholds()
	thresholds.MinLiquiditySOL = cfg.Risk.MinLiquiditySOL
	thresholds.MinHolders = cfg.Risk.MinHolders
	thresholds.MaxDevHoldPct = cfg.Risk.MaxDevHoldPct
	thresholds.MaxTop10HoldPct = cfg.Risk.MaxTop10HoldPct
	if len(cfg.Risk.CopycatPatterns) > 0 {
		thresholds.CopycatPatterns = cfg.Risk.CopycatPatterns
	}

	scoringCfg := scoring.DefaultConfig()
	if cfg.Scoring.FlagPenalty > 0 {
		scoringCfg.FlagPenalty = cfg.Scoring.FlagPenalty
	}
	if cfg.Scoring.CriticalCeiling > 0 {
		scoringCfg.CriticalCeiling = cfg.Scoring.CriticalCeiling
	}

	dispatcher := dispatch.NewDispatcher(
		dispatch.Config{
			QueueSize:   cfg.Dispatch.QueueSize,
			Workers:     cfg.Dispatch.Workers,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			RetryBase:   cfg.Dispatch.RetryBase,
			RetryMax:    cfg.Dispatch.RetryMax,
			StepTimeout: cfg.Dispatch.StepTimeout,
		},
		risk.NewFilter(thresholds),
		scoring.NewScorer(scoringCfg),
		cache,
		eventStore,
		router,
		deadLetterStore,
		logger,
		metrics,
	)

	wsCfg := pumpws.DefaultConfig()
	wsCfg.ReconnectDelay = cfg.Ingest.ReconnectBase
	wsCfg.MaxReconnectDelay = cfg.Ingest.ReconnectMax
	wsCfg.PingInterval = cfg.Ingest.PingInterval
	wsCfg.ReadTimeout = cfg.Ingest.ReadTimeout
	wsCfg.OnReconnect = metrics.RecordStreamReconnect

	stream, err := pumpws.New(ctx, cfg.Ingest.WSURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect to stream: %w", err)
	}
	defer stream.Close()

	listenerCfg := ingestion.DefaultConfig()
	listenerCfg.MinMarketCapUSD = cfg.Ingest.MinMarketCapUSD
	listenerCfg.MinVolumeSOL = cfg.Ingest.MinVolumeSOL

	listener := ingestion.NewListener(stream, dispatcher, deduper, listenerCfg, logger, metrics)

	if cfg.Metrics.Addr != "" {
		startMetricsServer(ctx, cfg.Metrics.Addr, listener, dispatcher, logger)
	}

	logger.Printf("Starting pipeline: stream=%s workers=%d queue=%d",
		cfg.Ingest.WSURL, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				metrics.SetQueueDepth(dispatcher.QueueDepth())
			}
		}
	})
	return g.Wait()
}

func primaryChannels(cfg *config.Config, logger *log.Logger) []alerting.Channel {
	var channels []alerting.Channel
	if cfg.Alerting.Slack.Enabled {
		channels = append(channels, alerting.NewSlackChannel(cfg.Alerting.Slack.Token, cfg.Alerting.Slack.ChannelID, ""))
	}
	if len(channels) == 0 {
		logger.Println("No chat channel configured, alerts go to the process log")
		channels = append(channels, alerting.NewLogChannel(logger))
	}
	return channels
}

func escalationChannels(cfg *config.Config) []alerting.Channel {
	var channels []alerting.Channel
	if cfg.Alerting.Discord.Enabled {
		channels = append(channels, alerting.NewDiscordChannel(cfg.Alerting.Discord.WebhookURL))
	}
	return channels
}

func urgentChannels(cfg *config.Config) []alerting.Channel {
	var channels []alerting.Channel
	if cfg.Alerting.Telegram.Enabled {
		channels = append(channels, alerting.NewTelegramChannel(cfg.Alerting.Telegram.Token, cfg.Alerting.Telegram.ChannelID, ""))
	}
	return channels
}

// startMetricsServer exposes Prometheus metrics and a JSON health surface.
func startMetricsServer(ctx context.Context, addr string, listener *ingestion.Listener, dispatcher *dispatch.Dispatcher, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		lastIngest := listener.LastIngestAt()
		status := "ok"
		if lastIngest == 0 {
			status = "starting"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":         status,
			"last_ingest_at": lastIngest,
			"queue_depth":    dispatcher.QueueDepth(),
		})
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Printf("Starting metrics server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
