// Package alerting routes qualifying scored events to delivery channels with
// deduplication, channel isolation, and manual-approval gating.
package alerting

import (
	"context"
	"fmt"

	"tokenwatch/internal/domain"
)

// Channel delivers one alert to one destination. Send returns the
// channel-specific message identifier on success. event carries the full
// scored context when the alert is delivered inline; it is nil on
// redelivery, where only the persisted alert row is available.
type Channel interface {
	Name() string
	// Target identifies the channel-specific destination (Slack channel ID,
	// Telegram chat ID) persisted on each alert row.
	Target() string
	Send(ctx context.Context, a *domain.Alert, event *domain.ScoredEvent) (messageID string, err error)
}

// scoreEmoji mirrors the severity markers used in the chat channels.
func scoreEmoji(score float64) string {
	switch {
	case score >= 90:
		return "🔴"
	case score >= 80:
		return "🟠"
	case score >= 70:
		return "🟡"
	default:
		return "⚪"
	}
}

// alertHeadline is the single-line summary shared by the chat channels.
func alertHeadline(a *domain.Alert) string {
	symbol := a.Symbol
	if symbol == "" {
		symbol = "???"
	}
	return fmt.Sprintf("%s %s: $%s scored %.0f/100", scoreEmoji(a.Score), a.Type.String(), symbol, a.Score)
}

// dexscreenerURL links the token's chart.
func dexscreenerURL(mint string) string {
	return "https://dexscreener.com/solana/" + mint
}
