// Package telegram forwards notifications to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Source is a blocking message source, such as the event sink
type Source interface {
	Pop(ctx context.Context) (string, error)
}

// Client sends messages to one chat
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a client against the public Bot API
func NewClient(botToken string, chatID int64) (*Client, error) {
	return NewClientWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithEndpoint creates a client against a custom Bot API endpoint
// (format "https://host/bot%s/%s")
func NewClientWithEndpoint(botToken string, chatID int64, endpoint string, httpClient *http.Client) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}, nil
}

// Send sends one notification as MarkdownV2 with linear-backoff retry.
// Waiting between attempts ends early when ctx is done.
func (c *Client) Send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, escapeMarkdownV2(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == c.maxRetries-1 {
			break
		}

		timer := time.NewTimer(c.retryDelayBase * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("send interrupted after %d attempts: %w", i+1, errors.Join(lastErr, ctx.Err()))
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// Forward sends every message from src until ctx ends or src is closed.
// A failed send is logged and the message dropped.
func (c *Client) Forward(ctx context.Context, src Source) error {
	for {
		msg, err := src.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("Failed to forward notification to Telegram", "error", err)
		}
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
