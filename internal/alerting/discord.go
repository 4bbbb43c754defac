package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tokenwatch/internal/domain"
)

// DiscordChannel posts alerts to a Discord webhook as embeds. The webhook
// is called with wait=true so Discord returns the created message, whose
// id becomes the delivery message identifier.
type DiscordChannel struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordChannel(webhookURL string) *DiscordChannel {
	return &DiscordChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordChannel) Name() string { return "discord" }

// Target deliberately omits the webhook URL, which embeds a secret token.
func (d *DiscordChannel) Target() string { return "webhook" }

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (d *DiscordChannel) Send(ctx context.Context, a *domain.Alert, event *domain.ScoredEvent) (string, error) {
	payload := map[string]any{
		"embeds": []discordEmbed{buildDiscordEmbed(a, event)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal discord payload: %w", err)
	}

	url := d.webhookURL
	if strings.Contains(url, "?") {
		url += "&wait=true"
	} else {
		url += "?wait=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read discord response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return "", fmt.Errorf("discord returned status %d", resp.StatusCode)
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("decode discord response: %w", err)
		}
	}
	if parsed.ID == "" {
		// Webhook executed without wait semantics; fall back to the alert ID
		// so the row still records a delivery marker.
		return "webhook:" + a.ID, nil
	}
	return parsed.ID, nil
}

func buildDiscordEmbed(a *domain.Alert, event *domain.ScoredEvent) discordEmbed {
	embed := discordEmbed{
		Title:       alertHeadline(a),
		Description: fmt.Sprintf("[Chart](%s) | [pump.fun](https://pump.fun/%s)\n`%s`", dexscreenerURL(a.Mint), a.Mint, a.Mint),
		Color:       discordColor(a.Score),
		Timestamp:   time.UnixMilli(a.Time).UTC().Format(time.RFC3339),
	}
	if event == nil {
		return embed
	}
	e := &event.Event
	embed.Fields = []discordEmbedField{
		{Name: "Liquidity", Value: fmt.Sprintf("%.1f SOL", e.LiquiditySOL), Inline: true},
		{Name: "Volume", Value: fmt.Sprintf("%.1f SOL", e.VolumeSOL), Inline: true},
		{Name: "Holders", Value: fmt.Sprintf("%d", e.Holders), Inline: true},
		{Name: "Social", Value: fmt.Sprintf("%.0f", event.SocialOrZero()), Inline: true},
	}
	if len(event.RiskFlags) > 0 {
		flags := make([]string, 0, len(event.RiskFlags))
		for _, f := range event.RiskFlags {
			flags = append(flags, string(f))
		}
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:  "Flags",
			Value: strings.Join(flags, ", "),
		})
	}
	return embed
}

func discordColor(score float64) int {
	switch {
	case score >= 90:
		return 0xED4245 // red
	case score >= 80:
		return 0xE67E22 // orange
	default:
		return 0xFEE75C // yellow
	}
}
