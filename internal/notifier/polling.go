package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CommandHandler answers a chat command such as "/predict AAPL".
// An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// PollTimeout is the long-poll window requested from getUpdates. It stays
// below the client timeout so an idle poll returns normally.
const PollTimeout = 25 * time.Second

// StartPolling long-polls for chat commands and replies to the chat that sent
// them. Only the configured chat is served. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	if !t.Enabled() {
		return
	}
	offset := 0
	for {
		if ctx.Err() != nil {
			t.logger.Info("telegram polling stopped")
			return
		}
		next, err := t.pollOnce(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				t.logger.Info("telegram polling stopped")
				return
			}
			t.logger.Warn("polling request failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		offset = next
	}
}

// pollOnce fetches one batch of updates starting at offset, dispatches them
// and returns the next offset.
func (t *TelegramNotifier) pollOnce(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.BotToken).
		SetQueryParams(map[string]string{
			"offset":  strconv.Itoa(offset),
			"timeout": strconv.Itoa(int(PollTimeout.Seconds())),
		}).
		SetResult(&result).
		Get("/bot{token}/getUpdates")
	if err != nil {
		return offset, err
	}
	if resp.IsError() || !result.OK {
		return offset, fmt.Errorf("getUpdates: status %d", resp.StatusCode())
	}

	for _, update := range result.Result {
		offset = update.UpdateID + 1
		if update.Message == nil || update.Message.Text == "" {
			continue
		}
		chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
		if chatID != t.ChatID {
			t.logger.Warn("ignoring command from unknown chat", zap.String("chat_id", chatID))
			continue
		}
		text := strings.TrimSpace(update.Message.Text)
		t.logger.Info("received command", zap.String("command", text))
		if reply := handler(ctx, text); reply != "" {
			if err := t.sendTo(ctx, chatID, reply); err != nil {
				t.logger.Error("send reply", zap.Error(err))
			}
		}
	}
	return offset, nil
}
