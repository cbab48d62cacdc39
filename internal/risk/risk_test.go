package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAllow(t *testing.T) {
	limits := Limits{MaxNotionalPerTrade: dec("50")}
	if !limits.Allow(dec("49.9")) {
		t.Fatalf("expected notional under limit to pass")
	}
	if limits.Allow(dec("50.1")) {
		t.Fatalf("expected notional above limit to fail")
	}
	if !(Limits{}).Allow(dec("1000")) {
		t.Fatalf("zero limit disables the check")
	}
}

func TestOddsBounds(t *testing.T) {
	bounds := DefaultOddsBounds()
	q := signal.Quote{YesPrice: dec("0.9"), NoPrice: dec("0.1")}
	if bounds.Allow(q, signal.Up) {
		t.Fatalf("expected UP at 0.90 to be rejected")
	}
	if bounds.Allow(q, signal.Down) {
		t.Fatalf("expected DOWN at 0.10 to be rejected")
	}
	q = signal.Quote{YesPrice: dec("0.85"), NoPrice: dec("0.15")}
	if !bounds.Allow(q, signal.Up) || !bounds.Allow(q, signal.Down) {
		t.Fatalf("bounds are inclusive")
	}
}

func TestDailyCapRollsOverAtUTCMidnight(t *testing.T) {
	dc := NewDailyCap(2)
	day := time.Date(2025, 12, 15, 23, 50, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if !dc.Allow(day) {
			t.Fatalf("expected decision %d to be allowed", i)
		}
		dc.Record(day)
	}
	if dc.Allow(day) {
		t.Fatalf("expected dc to block the third decision")
	}
	next := day.Add(15 * time.Minute)
	if !dc.Allow(next) {
		t.Fatalf("expected dc to reset on the next UTC day")
	}
	if dc.Count(next) != 0 {
		t.Fatalf("expected zero count after rollover, got %d", dc.Count(next))
	}
}

func TestDailyCapUnlimited(t *testing.T) {
	dc := NewDailyCap(0)
	now := time.Now()
	for i := 0; i < 100; i++ {
		dc.Record(now)
	}
	if !dc.Allow(now) {
		t.Fatalf("zero max means unlimited")
	}
}
