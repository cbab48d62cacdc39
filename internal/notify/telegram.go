// Package notify pushes accepted decisions to chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sniperbot-go/internal/signal"
)

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram sends one message per decision to a fixed chat.
type Telegram struct {
	bot    sender
	chatID int64
	dryRun bool
	log    zerolog.Logger
}

// NewTelegram connects to the Bot API; it fails fast on a bad token.
func NewTelegram(token string, chatID int64, dryRun bool, log zerolog.Logger) (*Telegram, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("telegram token required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id required")
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info().Str("bot", b.Self.UserName).Int64("chat_id", chatID).Msg("telegram notifications enabled")
	return &Telegram{bot: b, chatID: chatID, dryRun: dryRun, log: log}, nil
}

// Handle implements the decision sink contract.
func (t *Telegram) Handle(_ context.Context, d signal.Decision) error {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, FormatDecision(d, t.dryRun))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatDecision renders d as a short plain-text message.
func FormatDecision(d signal.Decision, dryRun bool) string {
	var b strings.Builder
	if dryRun {
		b.WriteString("[DRY RUN] ")
	}
	fmt.Fprintf(&b, "%s %s\n", d.Asset, d.Direction)
	fmt.Fprintf(&b, "Open: $%s -> Now: $%s (%+.3f%%)\n", d.ReferencePrice.StringFixed(2), d.CurrentPrice.StringFixed(2), d.ChangePercent())
	fmt.Fprintf(&b, "Time left: %.0fs", d.SecondsRemaining)
	return b.String()
}
