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

const defaultSlackBaseURL = "https://slack.com"

// SlackChannel posts alerts to a Slack channel through chat.postMessage
// using a bot token.
type SlackChannel struct {
	token     string
	channelID string
	baseURL   string
	client    *http.Client
}

// NewSlackChannel creates a Slack delivery channel. baseURL overrides the
// Slack API endpoint; pass "" for production.
func NewSlackChannel(token, channelID, baseURL string) *SlackChannel {
	if baseURL == "" {
		baseURL = defaultSlackBaseURL
	}
	return &SlackChannel{
		token:     token,
		channelID: channelID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackChannel) Name() string   { return "slack" }
func (s *SlackChannel) Target() string { return s.channelID }

// Send posts the alert message and returns the Slack message timestamp,
// which Slack uses as the per-channel message identifier.
func (s *SlackChannel) Send(ctx context.Context, a *domain.Alert, event *domain.ScoredEvent) (string, error) {
	payload := map[string]any{
		"channel": s.channelID,
		"text":    slackText(a, event),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read slack response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var parsed struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode slack response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("slack API error: %s", parsed.Error)
	}
	if parsed.TS == "" {
		return "", fmt.Errorf("slack response missing message ts")
	}
	return parsed.TS, nil
}

func slackText(a *domain.Alert, event *domain.ScoredEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", alertHeadline(a))
	if event != nil {
		e := &event.Event
		if e.Name != "" {
			fmt.Fprintf(&b, "Name: %s\n", e.Name)
		}
		fmt.Fprintf(&b, "Liquidity: %.1f SOL | Volume: %.1f SOL | Holders: %d\n",
			e.LiquiditySOL, e.VolumeSOL, e.Holders)
		fmt.Fprintf(&b, "Social: %.0f\n", event.SocialOrZero())
		if len(event.RiskFlags) > 0 {
			flags := make([]string, 0, len(event.RiskFlags))
			for _, f := range event.RiskFlags {
				flags = append(flags, string(f))
			}
			fmt.Fprintf(&b, "Flags: %s\n", strings.Join(flags, ", "))
		}
	}
	fmt.Fprintf(&b, "<%s|Chart> | <https://pump.fun/%s|pump.fun>\n", dexscreenerURL(a.Mint), a.Mint)
	fmt.Fprintf(&b, "`%s`", a.Mint)
	return b.String()
}
