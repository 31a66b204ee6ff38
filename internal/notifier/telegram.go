package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
// With an empty token or chat id every send is a no-op.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	// Backoff is the first retry delay of SendWithRetry; it doubles per attempt.
	Backoff time.Duration

	client *resty.Client
	logger *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Backoff:  time.Second,
		client:   client,
		logger:   logger,
	}
}

// SetBaseURL points the notifier at another Bot API host.
func (t *TelegramNotifier) SetBaseURL(u string) *TelegramNotifier {
	t.client.SetBaseURL(u)
	return t
}

// Enabled reports whether both token and chat id are configured.
func (t *TelegramNotifier) Enabled() bool {
	return t != nil && t.BotToken != "" && t.ChatID != ""
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}
	return t.sendTo(ctx, t.ChatID, text)
}

func (t *TelegramNotifier) sendTo(ctx context.Context, chatID, text string) error {
	var out apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.BotToken).
		SetBody(map[string]string{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	if !t.Enabled() {
		return nil
	}
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff * time.Duration(1<<uint(i))
		t.logger.Warn("telegram send failed",
			zap.Int("attempt", i+1),
			zap.Int("attempts", maxRetries+1),
			zap.Duration("retry_in", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
