package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tokenwatch/internal/domain"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramChannel posts alerts to a Telegram chat through the bot API.
type TelegramChannel struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramChannel creates a Telegram delivery channel. baseURL overrides
// the bot API endpoint; pass "" for production.
func NewTelegramChannel(token, chatID, baseURL string) *TelegramChannel {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &TelegramChannel{
		token:   token,
		chatID:  chatID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramChannel) Name() string   { return "telegram" }
func (t *TelegramChannel) Target() string { return t.chatID }

func (t *TelegramChannel) Send(ctx context.Context, a *domain.Alert, event *domain.ScoredEvent) (string, error) {
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     telegramText(a, event),
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read telegram response: %w", err)
	}

	var parsed struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode telegram response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("telegram API error: %s", parsed.Description)
	}
	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}

func telegramText(a *domain.Alert, event *domain.ScoredEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", alertHeadline(a))
	if event != nil {
		e := &event.Event
		fmt.Fprintf(&b, "Liquidity: %.1f SOL | Volume: %.1f SOL | Holders: %d\n",
			e.LiquiditySOL, e.VolumeSOL, e.Holders)
		if len(event.RiskFlags) > 0 {
			flags := make([]string, 0, len(event.RiskFlags))
			for _, f := range event.RiskFlags {
				flags = append(flags, string(f))
			}
			fmt.Fprintf(&b, "Flags: %s\n", strings.Join(flags, ", "))
		}
	}
	fmt.Fprintf(&b, "%s\n%s", dexscreenerURL(a.Mint), a.Mint)
	return b.String()
}
