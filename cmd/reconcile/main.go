package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tokenwatch/internal/alerting"
	"tokenwatch/internal/config"
	"tokenwatch/internal/reporting"
	pgstore "tokenwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	since := flag.Duration("since", 24*time.Hour, "Reconciliation window")
	top := flag.Int("top", 10, "Number of top-scored tokens to print (0 to skip)")
	approveID := flag.String("approve", "", "Alert ID to approve and deliver")
	approver := flag.String("approver", "", "Approver identity for --approve")
	reportPath := flag.String("report", "", "Write a Markdown digest to this path")
	csvPath := flag.String("csv", "", "Write the top-token table as CSV to this path")
	flag.Parse()

	logger := log.New(os.Stdout, "[reconcile] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	opts := options{
		since:      *since,
		top:        *top,
		approveID:  *approveID,
		approver:   *approver,
		reportPath: *reportPath,
		csvPath:    *csvPath,
	}
	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

type options struct {
	since      time.Duration
	top        int
	approveID  string
	approver   string
	reportPath string
	csvPath    string
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, opts options) error {
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	router := alerting.NewRouter(
		alerting.Config{
			HighScoreThreshold:   cfg.Alerting.HighScoreThreshold,
			EscalationThreshold:  cfg.Alerting.EscalationThreshold,
			UrgentThreshold:      cfg.Alerting.UrgentThreshold,
			SocialSpikeThreshold: cfg.Alerting.SocialSpikeThreshold,
			DedupWindow:          cfg.Alerting.DedupWindow,
		},
		pgstore.NewAlertStore(pool),
		primaryChannels(cfg, logger),
		escalationChannels(cfg),
		urgentChannels(cfg),
		logger,
		nil,
	)

	if opts.approveID != "" {
		if opts.approver == "" {
			return fmt.Errorf("--approver is required with --approve")
		}
		if err := router.Approve(ctx, opts.approveID, opts.approver); err != nil {
			return err
		}
		logger.Printf("Approved and delivered alert %s", opts.approveID)
		return nil
	}

	delivered, err := router.RetryPending(ctx, time.Now().Add(-opts.since))
	if err != nil {
		return fmt.Errorf("retry pending alerts: %w", err)
	}
	logger.Printf("Redelivered %d pending alerts", delivered)

	if opts.top <= 0 {
		return nil
	}

	generator := reporting.NewGenerator(
		pgstore.NewTokenEventStore(pool),
		pgstore.NewAlertStore(pool),
		pgstore.NewDeadLetterStore(pool),
		pgstore.NewScanStore(pool),
		cfg.Alerting.EscalationThreshold,
	)
	report, err := generator.Generate(ctx, opts.since, opts.top)
	if err != nil {
		return fmt.Errorf("generate digest: %w", err)
	}

	logger.Printf("Top %d tokens in the last %s:", len(report.TopTokens), opts.since)
	for i, t := range report.TopTokens {
		flags := "-"
		if len(t.RiskFlags) > 0 {
			flags = strings.Join(t.RiskFlags, ",")
		}
		logger.Printf("%2d. %-12s score=%5.1f social=%5.1f liq=%.1f flags=%s mint=%s",
			i+1, t.Symbol, t.Score, t.SocialScore, t.LiquiditySOL, flags, t.Mint)
	}
	logger.Printf("Pending alerts: %d (%d gated) | Dead letters: %d",
		report.Summary.PendingAlertCount, report.Summary.GatedAlertCount, report.Summary.DeadLetterCount)

	if opts.reportPath != "" {
		if err := os.WriteFile(opts.reportPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
			return fmt.Errorf("write digest: %w", err)
		}
		logger.Printf("Wrote digest to %s", opts.reportPath)
	}
	if opts.csvPath != "" {
		if err := os.WriteFile(opts.csvPath, []byte(reporting.RenderCSV(report.TopTokens)), 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		logger.Printf("Wrote top-token CSV to %s", opts.csvPath)
	}
	return nil
}

func primaryChannels(cfg *config.Config, logger *log.Logger) []alerting.Channel {
	var channels []alerting.Channel
	if cfg.Alerting.Slack.Enabled {
		channels = append(channels, alerting.NewSlackChannel(cfg.Alerting.Slack.Token, cfg.Alerting.Slack.ChannelID, ""))
	}
	if len(channels) == 0 {
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
