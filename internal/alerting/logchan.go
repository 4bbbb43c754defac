package alerting

import (
	"context"
	"log"

	"tokenwatch/internal/domain"
)

// LogChannel writes alerts to the process log. Used as a fallback when no
// chat channel is configured and in local development.
type LogChannel struct {
	logger *log.Logger
}

func NewLogChannel(logger *log.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Name() string   { return "log" }
func (l *LogChannel) Target() string { return "stdout" }

func (l *LogChannel) Send(_ context.Context, a *domain.Alert, _ *domain.ScoredEvent) (string, error) {
	l.logger.Printf("ALERT type=%s mint=%s symbol=%s score=%.1f", a.Type, a.Mint, a.Symbol, a.Score)
	return "log:" + a.ID, nil
}
