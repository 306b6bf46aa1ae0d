package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// ErrEmptyAddress is returned when a message has no recipient.
var ErrEmptyAddress = errors.New("messaging: empty address")

// Messenger delivers a text message to a channel address.
type Messenger interface {
	Send(ctx context.Context, address, text string) (bool, error)
	Enabled() bool
}

// TelegramConfig configures the Telegram messenger.
type TelegramConfig struct {
	Token     string
	ServerURL string
}

// TelegramMessenger sends chat messages through the Telegram Bot API.
type TelegramMessenger struct {
	client *bot.Bot
	logger *zap.Logger
}

// NewTelegramMessenger builds a messenger without contacting the API.
func NewTelegramMessenger(cfg TelegramConfig, logger *zap.Logger) (*TelegramMessenger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("messaging: telegram token is required")
	}
	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(cfg.ServerURL, "/")))
	}
	client, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramMessenger{client: client, logger: logger}, nil
}

// Enabled reports that messages are actually delivered.
func (m *TelegramMessenger) Enabled() bool { return true }

// Send posts text to the chat identified by address.
func (m *TelegramMessenger) Send(ctx context.Context, address, text string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, ErrEmptyAddress
	}
	if _, err := m.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID(address),
		Text:   text,
	}); err != nil {
		return false, fmt.Errorf("telegram send: %w", err)
	}
	m.logger.Debug("telegram message sent", zap.String("chat_id", address))
	return true, nil
}

// chatID passes numeric ids as integers and channel usernames as strings.
func chatID(address string) any {
	if id, err := strconv.ParseInt(address, 10, 64); err == nil {
		return id
	}
	return address
}

// NoopMessenger drops every message. It is used when no channel is configured.
type NoopMessenger struct{}

// Enabled reports false so callers can skip composing messages.
func (NoopMessenger) Enabled() bool { return false }

// Send reports the message as not delivered.
func (NoopMessenger) Send(ctx context.Context, address, text string) (bool, error) {
	return false, nil
}
