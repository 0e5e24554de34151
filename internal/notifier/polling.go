package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// pollTimeout is the long-polling wait, in seconds, requested from the Bot API.
const pollTimeout = 30

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := int64(0)
	for {
		select {
		case <-ctx.Done():
			t.Logger.Info().Msg("telegram polling stopped")
			return
		default:
		}

		next, err := t.poll(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.Logger.Warn().Err(err).Msg("polling request failed")
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		offset = next
	}
}

// poll fetches one batch of updates, dispatches the commands in it and returns the
// offset of the next update to request.
func (t *TelegramNotifier) poll(ctx context.Context, offset int64, handler CommandHandler) (int64, error) {
	resp, err := t.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":  strconv.FormatInt(offset, 10),
			"timeout": strconv.Itoa(pollTimeout),
		}).
		Get("/bot{token}/getUpdates")
	if err != nil {
		return offset, err
	}

	for _, update := range gjson.GetBytes(resp.Body(), "result").Array() {
		offset = update.Get("update_id").Int() + 1
		text := strings.TrimSpace(update.Get("message.text").String())
		if text == "" {
			continue
		}
		t.Logger.Info().Str("command", text).Msg("received command")
		if reply := handler(ctx, text); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				t.Logger.Error().Err(err).Msg("send reply")
			}
		}
	}
	return offset, nil
}
