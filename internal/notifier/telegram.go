package notifier

import (
	"context"
	"fmt"
	"time"

	"MarketScreener/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	telegramAPI = "https://api.telegram.org"

	// pollTimeout is how long getUpdates holds a request open. The polling
	// client waits longer so an idle poll ends on the server side.
	pollTimeout       = 30 * time.Second
	pollClientTimeout = pollTimeout + 5*time.Second
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Limit    int // records listed per report
	Retries  int
	client   *resty.Client
	poller   *resty.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	client := resty.New().
		SetBaseURL(telegramAPI).
		SetTimeout(30 * time.Second)
	poller := resty.New().
		SetBaseURL(telegramAPI).
		SetTimeout(pollClientTimeout)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
		poller.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Limit:    25,
		Retries:  3,
		client:   client,
		poller:   poller,
	}
}

// SetBaseURL points the notifier at another Bot API host.
func (t *TelegramNotifier) SetBaseURL(url string) {
	t.client.SetBaseURL(url)
	t.poller.SetBaseURL(url)
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.BotToken).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries+1).Dur("backoff", backoff).
				Msg("telegram send failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Deliver sends the formatted scan result to the chat.
func (t *TelegramNotifier) Deliver(ctx context.Context, res model.ScanResult) error {
	return t.SendWithRetry(ctx, FormatScanResult(res, t.Limit), t.Retries)
}
