package paper

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

var one = decimal.NewFromInt(1)

// Bet is a simulated purchase of outcome shares for one decision.
type Bet struct {
	DecisionID string           `json:"decision_id"`
	Asset      string           `json:"asset"`
	Bucket     int64            `json:"bucket"`
	Direction  signal.Direction `json:"direction"`
	Reference  decimal.Decimal  `json:"reference_price"`
	Stake      decimal.Decimal  `json:"stake"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	Shares     decimal.Decimal  `json:"shares"`
	PlacedAt   time.Time        `json:"placed_at"`
}

// Settlement is a bet resolved against the window's closing price.
type Settlement struct {
	Bet
	ClosePrice decimal.Decimal `json:"close_price"`
	Won        bool            `json:"won"`
	PnL        decimal.Decimal `json:"pnl"`
	SettledAt  time.Time       `json:"settled_at"`
}

// Account tracks a virtual bankroll of up/down bets. Each bet pays one unit per share
// when the window closes on its side and nothing otherwise.
type Account struct {
	mu           sync.Mutex
	startingCash decimal.Decimal
	cash         decimal.Decimal
	realizedPnL  decimal.Decimal
	stake        decimal.Decimal
	defaultEntry decimal.Decimal
	open         map[string][]Bet
	wins         int
	losses       int
}

// Snapshot represents a thread-safe view of the account state.
type Snapshot struct {
	StartingCash decimal.Decimal
	Cash         decimal.Decimal
	RealizedPnL  decimal.Decimal
	OpenStake    decimal.Decimal
	OpenBets     int
	Wins         int
	Losses       int
}

// WinRate is wins over settled bets, zero when nothing settled yet.
func (s Snapshot) WinRate() float64 {
	total := s.Wins + s.Losses
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total)
}

// NewAccount builds an account that stakes stake per decision, buying at
// defaultEntry when no market price is known.
func NewAccount(startingCash, stake, defaultEntry decimal.Decimal) (*Account, error) {
	if !stake.IsPositive() {
		return nil, fmt.Errorf("stake must be positive, got %s", stake)
	}
	if !defaultEntry.IsPositive() || defaultEntry.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("entry price must be inside (0, 1), got %s", defaultEntry)
	}
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		stake:        stake,
		defaultEntry: defaultEntry,
		open:         make(map[string][]Bet),
	}, nil
}

// Place opens a bet for d at entry; a zero entry uses the default.
func (a *Account) Place(d signal.Decision, entry decimal.Decimal) (Bet, error) {
	if entry.IsZero() {
		entry = a.defaultEntry
	}
	if !entry.IsPositive() || entry.GreaterThanOrEqual(one) {
		return Bet{}, fmt.Errorf("entry price must be inside (0, 1), got %s", entry)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stake.GreaterThan(a.cash) {
		return Bet{}, errors.New("insufficient cash for bet")
	}
	bet := Bet{
		DecisionID: d.ID,
		Asset:      d.Asset,
		Bucket:     d.Bucket,
		Direction:  d.Direction,
		Reference:  d.ReferencePrice,
		Stake:      a.stake,
		EntryPrice: entry,
		Shares:     a.stake.Div(entry),
		PlacedAt:   d.DecidedAt,
	}
	a.cash = a.cash.Sub(a.stake)
	a.open[d.Asset] = append(a.open[d.Asset], bet)
	return bet, nil
}

// Settle resolves every open bet on asset whose bucket is at or before bucket.
// UP wins when close >= reference, DOWN wins when close < reference.
func (a *Account) Settle(asset string, bucket int64, closePrice decimal.Decimal, at time.Time) []Settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	var (
		out  []Settlement
		keep []Bet
	)
	for _, bet := range a.open[asset] {
		if bet.Bucket > bucket {
			keep = append(keep, bet)
			continue
		}
		won := closePrice.GreaterThanOrEqual(bet.Reference)
		if bet.Direction == signal.Down {
			won = closePrice.LessThan(bet.Reference)
		}
		pnl := bet.Stake.Neg()
		if won {
			pnl = bet.Shares.Sub(bet.Stake)
			a.cash = a.cash.Add(bet.Shares)
			a.wins++
		} else {
			a.losses++
		}
		a.realizedPnL = a.realizedPnL.Add(pnl)
		out = append(out, Settlement{Bet: bet, ClosePrice: closePrice, Won: won, PnL: pnl, SettledAt: at})
	}
	if len(keep) == 0 {
		delete(a.open, asset)
	} else {
		a.open[asset] = keep
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// Snapshot returns a copy of balances and counters.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := Snapshot{
		StartingCash: a.startingCash,
		Cash:         a.cash,
		RealizedPnL:  a.realizedPnL,
		Wins:         a.wins,
		Losses:       a.losses,
	}
	for _, bets := range a.open {
		for _, b := range bets {
			snap.OpenBets++
			snap.OpenStake = snap.OpenStake.Add(b.Stake)
		}
	}
	return snap
}
