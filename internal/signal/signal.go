// Package signal standardizes payloads shared between price sources, the window evaluator and decision sinks.
package signal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of an up/down market a decision bets on.
type Direction string

const (
	// Up bets that the window closes above its reference price.
	Up Direction = "UP"
	// Down bets that the window closes below its reference price.
	Down Direction = "DOWN"
)

// Sample is one price reading for an asset taken at a wall-clock instant.
type Sample struct {
	Asset    string
	Price    decimal.Decimal
	Provider string
	Ts       time.Time
}

// ReferenceObservation is the first price seen for an asset inside a window.
type ReferenceObservation struct {
	Bucket     int64           `json:"bucket"`
	Asset      string          `json:"asset"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Decision is an accepted trade signal. It is never mutated after construction.
type Decision struct {
	ID               string          `json:"id"`
	Asset            string          `json:"asset"`
	Bucket           int64           `json:"bucket"`
	WindowStart      time.Time       `json:"window_start"`
	Direction        Direction       `json:"direction"`
	ReferencePrice   decimal.Decimal `json:"reference_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	ChangeFraction   decimal.Decimal `json:"change_fraction"`
	SecondsRemaining float64         `json:"seconds_remaining"`
	DecidedAt        time.Time       `json:"decided_at"`
}

// ChangePercent renders the change fraction as a percentage for logs.
func (d Decision) ChangePercent() float64 {
	return d.ChangeFraction.Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Quote is the pair of outcome prices of a binary market.
type Quote struct {
	Slug        string
	ConditionID string
	YesPrice    decimal.Decimal
	NoPrice     decimal.Decimal
	YesToken    string
	NoToken     string
	FetchedAt   time.Time
}

// PriceFor returns the outcome price of the side matching dir.
func (q Quote) PriceFor(dir Direction) decimal.Decimal {
	if dir == Down {
		return q.NoPrice
	}
	return q.YesPrice
}

// TokenFor returns the outcome token id of the side matching dir.
func (q Quote) TokenFor(dir Direction) string {
	if dir == Down {
		return q.NoToken
	}
	return q.YesToken
}
