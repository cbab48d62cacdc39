// Package execution turns accepted decisions into order intents and fans them out to sinks.
// Nothing here signs or posts orders: live mode resolves the outcome token and logs
// what would be sent.
package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/metrics"
	"sniperbot-go/internal/polymarket"
	"sniperbot-go/internal/risk"
	"sniperbot-go/internal/signal"
)

// Side enumerates order directions used by the executor.
type Side string

// Buy is the only side placed: every decision buys the outcome token it favors.
const Buy Side = "BUY"

// Mode selects between journaling only and resolving live order intents.
type Mode string

const (
	ModeDryRun Mode = "dry_run"
	ModeLive   Mode = "live"
)

// ErrRejected marks an intent blocked by risk limits.
var ErrRejected = errors.New("order intent rejected")

// Intent is the order the bot would place for a decision.
type Intent struct {
	DecisionID string           `json:"decision_id"`
	Asset      string           `json:"asset"`
	Direction  signal.Direction `json:"direction"`
	Slug       string           `json:"slug"`
	TokenID    string           `json:"token_id,omitempty"`
	Side       Side             `json:"side"`
	Size       decimal.Decimal  `json:"size"`
	LimitPrice decimal.Decimal  `json:"limit_price"`
	Mode       Mode             `json:"mode"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Notional is size times limit price, the most the intent can spend.
func (i Intent) Notional() decimal.Decimal { return i.Size.Mul(i.LimitPrice) }

// QuoteSource resolves a market slug to its outcome tokens.
type QuoteSource interface {
	Quote(ctx context.Context, slug string) (signal.Quote, error)
}

// Options configures an Executor.
type Options struct {
	Mode         Mode
	OrderSize    decimal.Decimal
	LimitPrice   decimal.Decimal
	Limits       risk.Limits
	SlugPrefixes map[string]string
}

// Executor logs an order intent for every decision it handles.
type Executor struct {
	opts   Options
	quotes QuoteSource
	log    zerolog.Logger
	now    func() time.Time
}

// NewExecutor builds an executor. quotes may be nil in dry-run mode.
func NewExecutor(opts Options, quotes QuoteSource, log zerolog.Logger) (*Executor, error) {
	if opts.Mode == "" {
		opts.Mode = ModeDryRun
	}
	if opts.Mode != ModeDryRun && opts.Mode != ModeLive {
		return nil, fmt.Errorf("unknown execution mode %q", opts.Mode)
	}
	if opts.Mode == ModeLive && quotes == nil {
		return nil, fmt.Errorf("live mode requires a quote source")
	}
	if !opts.OrderSize.IsPositive() {
		return nil, fmt.Errorf("order size must be positive, got %s", opts.OrderSize)
	}
	if !opts.LimitPrice.IsPositive() || opts.LimitPrice.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("limit price must be inside (0, 1), got %s", opts.LimitPrice)
	}
	if opts.SlugPrefixes == nil {
		opts.SlugPrefixes = polymarket.DefaultSlugPrefixes()
	}
	return &Executor{opts: opts, quotes: quotes, log: log, now: time.Now}, nil
}

// Prepare builds the intent for d, resolving the outcome token in live mode.
func (e *Executor) Prepare(ctx context.Context, d signal.Decision) (Intent, error) {
	intent := Intent{
		DecisionID: d.ID,
		Asset:      d.Asset,
		Direction:  d.Direction,
		Slug:       polymarket.SlugFor(e.opts.SlugPrefixes, d.Asset, d.WindowStart),
		Side:       Buy,
		Size:       e.opts.OrderSize,
		LimitPrice: e.opts.LimitPrice,
		Mode:       e.opts.Mode,
		CreatedAt:  e.now(),
	}
	if !e.opts.Limits.Allow(intent.Notional()) {
		return intent, fmt.Errorf("%w: notional %s exceeds %s", ErrRejected, intent.Notional(), e.opts.Limits.MaxNotionalPerTrade)
	}
	if e.opts.Mode != ModeLive {
		return intent, nil
	}
	quote, err := e.quotes.Quote(ctx, intent.Slug)
	if err != nil {
		return intent, fmt.Errorf("resolve market %s: %w", intent.Slug, err)
	}
	intent.TokenID = quote.TokenFor(d.Direction)
	if intent.TokenID == "" {
		return intent, fmt.Errorf("market %s has no token for %s", intent.Slug, d.Direction)
	}
	return intent, nil
}

// Handle implements DecisionSink.
func (e *Executor) Handle(ctx context.Context, d signal.Decision) error {
	intent, err := e.Prepare(ctx, d)
	if err != nil {
		return err
	}
	return e.Submit(intent)
}

// Submit logs the intent; it never signs or posts an order.
func (e *Executor) Submit(intent Intent) error {
	metrics.OrderIntentsTotal.WithLabelValues(intent.Asset, string(intent.Mode)).Inc()
	ev := e.log.Info().
		Str("decision_id", intent.DecisionID).
		Str("asset", intent.Asset).
		Str("direction", string(intent.Direction)).
		Str("slug", intent.Slug).
		Str("side", string(intent.Side)).
		Str("size", intent.Size.String()).
		Str("limit_price", intent.LimitPrice.String())
	if intent.Mode == ModeDryRun {
		ev.Msg("[DRY RUN] order not placed")
		return nil
	}
	ev.Str("token_id", shortToken(intent.TokenID)).Msg("order intent (signing disabled)")
	return nil
}

func shortToken(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 20 {
		return id
	}
	return id[:20] + "..."
}
