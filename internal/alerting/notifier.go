package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries the context of one close recommendation.
type Notification struct {
	OrderID        string
	Decision       string
	Direction      string
	TrendLabel     string
	Persistence    string
	Hurst          decimal.Decimal
	Time1Value     decimal.Decimal
	ConsensusValue decimal.Decimal
	HoldScore      decimal.Decimal
	CloseScore     decimal.Decimal
	Neighbors      []string
	EvaluatedAt    time.Time
	Channels       []string
	AdditionalMsg  string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("order_id", note.OrderID).
		Str("decision", note.Decision).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Exit Alert]\n")
	builder.WriteString(fmt.Sprintf("Order: %s (%s)\n", note.OrderID, note.Direction))
	builder.WriteString(fmt.Sprintf("Decision: %s\n", strings.ToUpper(note.Decision)))
	if !note.EvaluatedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Evaluated: %s UTC\n", note.EvaluatedAt.UTC().Format(time.RFC3339)))
	}
	builder.WriteString(fmt.Sprintf("Checkpoint: %s vs consensus %s\n", note.Time1Value.StringFixed(3), note.ConsensusValue.StringFixed(3)))
	builder.WriteString(fmt.Sprintf("Trend: %s\n", note.TrendLabel))
	if note.Persistence != "" {
		builder.WriteString(fmt.Sprintf("Persistence: %s (hurst %s)\n", note.Persistence, note.Hurst.StringFixed(2)))
	}
	builder.WriteString(fmt.Sprintf("Scores: hold %s / close %s\n", note.HoldScore.StringFixed(2), note.CloseScore.StringFixed(2)))
	if len(note.Neighbors) > 0 {
		builder.WriteString(fmt.Sprintf("Neighbors: %s\n", strings.Join(note.Neighbors, ",")))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
