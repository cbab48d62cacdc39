package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

type fakeSender struct {
	sent []tgbot.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbot.Chattable) (tgbot.Message, error) {
	if msg, ok := c.(tgbot.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbot.Message{}, f.err
}

func decision() signal.Decision {
	return signal.Decision{
		Asset:            "SOL",
		Direction:        signal.Down,
		ReferencePrice:   decimal.RequireFromString("200"),
		CurrentPrice:     decimal.RequireFromString("199.5"),
		ChangeFraction:   decimal.RequireFromString("-0.0025"),
		SecondsRemaining: 42,
	}
}

func TestFormatDecision(t *testing.T) {
	msg := FormatDecision(decision(), true)
	for _, want := range []string{"[DRY RUN]", "SOL DOWN", "$200.00", "$199.50", "-0.250%", "42s"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
	if strings.Contains(FormatDecision(decision(), false), "DRY RUN") {
		t.Fatalf("live message must not carry the dry run tag")
	}
}

func TestTelegramHandleSendsToChat(t *testing.T) {
	fake := &fakeSender{}
	tg := &Telegram{bot: fake, chatID: 42, log: zerolog.Nop()}
	if err := tg.Handle(context.Background(), decision()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0].ChatID != 42 {
		t.Fatalf("unexpected sends %+v", fake.sent)
	}
}

func TestTelegramHandleWrapsErrors(t *testing.T) {
	tg := &Telegram{bot: &fakeSender{err: errors.New("429")}, chatID: 1, log: zerolog.Nop()}
	if err := tg.Handle(context.Background(), decision()); err == nil || !strings.Contains(err.Error(), "telegram send") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewTelegramValidates(t *testing.T) {
	if _, err := NewTelegram("", 1, false, zerolog.Nop()); err == nil {
		t.Fatalf("expected token error")
	}
	if _, err := NewTelegram("token", 0, false, zerolog.Nop()); err == nil {
		t.Fatalf("expected chat id error")
	}
}
