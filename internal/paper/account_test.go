package paper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

func num(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestAccount(t *testing.T, cash string) *Account {
	t.Helper()
	account, err := NewAccount(num(cash), num("5"), num("0.5"))
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return account
}

func TestAccountSettlesWinsAndLosses(t *testing.T) {
	account := newTestAccount(t, "100")
	now := time.Unix(1765792700, 0)

	up := signal.Decision{ID: "up", Asset: "BTC", Bucket: 10, Direction: signal.Up, ReferencePrice: num("100"), DecidedAt: now}
	down := signal.Decision{ID: "down", Asset: "BTC", Bucket: 10, Direction: signal.Down, ReferencePrice: num("100"), DecidedAt: now.Add(time.Second)}
	later := signal.Decision{ID: "later", Asset: "BTC", Bucket: 11, Direction: signal.Up, ReferencePrice: num("101"), DecidedAt: now.Add(time.Minute)}

	bet, err := account.Place(up, num("0.8"))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !bet.Shares.Equal(num("6.25")) {
		t.Fatalf("expected 6.25 shares, got %s", bet.Shares)
	}
	if _, err := account.Place(down, decimal.Zero); err != nil {
		t.Fatalf("Place with default entry: %v", err)
	}
	if _, err := account.Place(later, num("0.5")); err != nil {
		t.Fatalf("Place: %v", err)
	}

	settled := account.Settle("BTC", 10, num("101"), now.Add(2*time.Minute))
	if len(settled) != 2 {
		t.Fatalf("expected two settlements, got %d", len(settled))
	}
	if !settled[0].Won || !settled[0].PnL.Equal(num("1.25")) {
		t.Fatalf("expected UP bet to win 1.25, got %+v", settled[0])
	}
	if settled[1].Won || !settled[1].PnL.Equal(num("-5")) {
		t.Fatalf("expected DOWN bet to lose the stake, got %+v", settled[1])
	}

	snap := account.Snapshot()
	if snap.Wins != 1 || snap.Losses != 1 || snap.OpenBets != 1 {
		t.Fatalf("unexpected counters %+v", snap)
	}
	if !snap.RealizedPnL.Equal(num("-3.75")) {
		t.Fatalf("unexpected realized pnl %s", snap.RealizedPnL)
	}
	// 100 - 15 staked + 6.25 paid out
	if !snap.Cash.Equal(num("91.25")) {
		t.Fatalf("unexpected cash %s", snap.Cash)
	}
	if snap.WinRate() != 0.5 {
		t.Fatalf("unexpected win rate %v", snap.WinRate())
	}
}

func TestAccountUpWinsOnUnchangedClose(t *testing.T) {
	account := newTestAccount(t, "10")
	d := signal.Decision{ID: "x", Asset: "ETH", Bucket: 1, Direction: signal.Up, ReferencePrice: num("50")}
	if _, err := account.Place(d, decimal.Zero); err != nil {
		t.Fatalf("Place: %v", err)
	}
	settled := account.Settle("ETH", 1, num("50"), time.Now())
	if len(settled) != 1 || !settled[0].Won {
		t.Fatalf("UP must win when the close equals the reference, got %+v", settled)
	}
}

func TestAccountInsufficientCash(t *testing.T) {
	account := newTestAccount(t, "4")
	if _, err := account.Place(signal.Decision{Asset: "BTC", Direction: signal.Up}, decimal.Zero); err == nil {
		t.Fatalf("expected cash error")
	}
}

func TestNewAccountValidates(t *testing.T) {
	if _, err := NewAccount(num("10"), decimal.Zero, num("0.5")); err == nil {
		t.Fatalf("expected stake error")
	}
	if _, err := NewAccount(num("10"), num("1"), num("1")); err == nil {
		t.Fatalf("expected entry error")
	}
}
