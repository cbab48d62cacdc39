// Package risk holds the post-evaluation gates applied before a decision is acted on.
package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

// Limits caps the notional of a single order intent.
type Limits struct {
	MaxNotionalPerTrade decimal.Decimal
}

// Allow reports whether notional fits under the cap. A zero cap disables the check.
func (l Limits) Allow(notional decimal.Decimal) bool {
	if !l.MaxNotionalPerTrade.IsPositive() {
		return true
	}
	return notional.LessThanOrEqual(l.MaxNotionalPerTrade)
}

// OddsBounds rejects decisions whose side is already priced too close to 0 or 1.
type OddsBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultOddsBounds returns 0.15..0.85.
func DefaultOddsBounds() OddsBounds {
	return OddsBounds{Min: decimal.RequireFromString("0.15"), Max: decimal.RequireFromString("0.85")}
}

// Allow checks the price of the side dir would buy; both bounds are inclusive.
func (b OddsBounds) Allow(q signal.Quote, dir signal.Direction) bool {
	px := q.PriceFor(dir)
	if px.LessThan(b.Min) {
		return false
	}
	if b.Max.IsPositive() && px.GreaterThan(b.Max) {
		return false
	}
	return true
}

// DailyCap limits accepted decisions per UTC day. Max <= 0 means unlimited.
type DailyCap struct {
	Max int

	mu    sync.Mutex
	day   string
	count int
}

// NewDailyCap builds a cap allowing max decisions per day.
func NewDailyCap(max int) *DailyCap { return &DailyCap{Max: max} }

// Allow reports whether another decision fits into the day containing now.
func (c *DailyCap) Allow(now time.Time) bool {
	if c == nil || c.Max <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(now)
	return c.count < c.Max
}

// Record counts one accepted decision.
func (c *DailyCap) Record(now time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(now)
	c.count++
}

// Count returns decisions recorded for the day containing now.
func (c *DailyCap) Count(now time.Time) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(now)
	return c.count
}

func (c *DailyCap) rollLocked(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != c.day {
		c.day = day
		c.count = 0
	}
}
