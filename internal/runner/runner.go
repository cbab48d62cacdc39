// Package runner drives the polling loop: capture window references, evaluate near the
// close, gate candidates, and hand accepted decisions to the sinks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/exchange"
	"sniperbot-go/internal/execution"
	"sniperbot-go/internal/metrics"
	"sniperbot-go/internal/paper"
	"sniperbot-go/internal/polymarket"
	"sniperbot-go/internal/risk"
	"sniperbot-go/internal/signal"
	"sniperbot-go/internal/strategy"
)

// Priority orders competing candidates inside one tick.
type Priority string

const (
	// PriorityFirst keeps the configured asset order.
	PriorityFirst Priority = "first"
	// PriorityLargestMove prefers the largest absolute change.
	PriorityLargestMove Priority = "largest_move"
)

// Rejection reasons reported on decisions_rejected_total.
const (
	RejectMomentum         = "momentum"
	RejectOdds             = "odds"
	RejectQuoteUnavailable = "quote_unavailable"
	RejectDailyCap         = "daily_cap"
)

// QuoteSource returns the market quote for a slug.
type QuoteSource interface {
	Quote(ctx context.Context, slug string) (signal.Quote, error)
}

// Recorder persists arbitrary records, one per call.
type Recorder interface {
	Record(v any) error
}

// Options tunes the loop.
type Options struct {
	Assets         []string
	CheckInterval  time.Duration
	CaptureWindow  time.Duration
	FetchTimeout   time.Duration
	Priority       Priority
	MinMomentum    decimal.Decimal
	MomentumWindow time.Duration
	OddsGate       bool
	Odds           risk.OddsBounds
	SlugPrefixes   map[string]string
}

// Deps are the collaborators the loop drives. Quotes, Cap, Account and Settlements are optional.
type Deps struct {
	Evaluator   *strategy.Evaluator
	Prices      exchange.PriceSource
	Quotes      QuoteSource
	Sink        execution.DecisionSink
	Cap         *risk.DailyCap
	Account     *paper.Account
	Settlements Recorder
	Clock       func() time.Time
	Log         zerolog.Logger
}

// Runner owns the tick loop. Only one goroutine calls Tick.
type Runner struct {
	opts     Options
	deps     Deps
	log      zerolog.Logger
	momentum *strategy.MomentumTracker

	lastBucket strategy.Bucket
	inSnipe    bool
}

type candidate struct {
	decision signal.Decision
	quote    *signal.Quote
}

// New validates options and fills defaults.
func New(opts Options, deps Deps) (*Runner, error) {
	if deps.Evaluator == nil {
		return nil, errors.New("runner requires an evaluator")
	}
	if deps.Prices == nil {
		return nil, errors.New("runner requires a price source")
	}
	if deps.Sink == nil {
		return nil, errors.New("runner requires a decision sink")
	}
	if len(opts.Assets) == 0 {
		return nil, errors.New("runner requires at least one asset")
	}
	if opts.OddsGate && deps.Quotes == nil {
		return nil, errors.New("odds gate requires a quote source")
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 5 * time.Second
	}
	if opts.CaptureWindow <= 0 {
		opts.CaptureWindow = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	switch opts.Priority {
	case "":
		opts.Priority = PriorityFirst
	case PriorityFirst, PriorityLargestMove:
	default:
		return nil, fmt.Errorf("unknown priority %q", opts.Priority)
	}
	if opts.SlugPrefixes == nil {
		opts.SlugPrefixes = polymarket.DefaultSlugPrefixes()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Runner{
		opts:       opts,
		deps:       deps,
		log:        deps.Log,
		momentum:   strategy.NewMomentumTracker(opts.MomentumWindow),
		lastBucket: -1 << 62,
	}, nil
}

// Run ticks immediately and then every CheckInterval until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if bg, ok := r.deps.Prices.(exchange.Runner); ok {
		go func() {
			if err := bg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error().Err(err).Str("provider", r.deps.Prices.Name()).Msg("price stream stopped")
			}
		}()
	}
	cfg := r.deps.Evaluator.Config()
	r.log.Info().
		Strs("assets", r.opts.Assets).
		Str("provider", r.deps.Prices.Name()).
		Dur("check_interval", r.opts.CheckInterval).
		Dur("snipe_start", cfg.SnipeWindowStart).
		Dur("snipe_end", cfg.SnipeWindowEnd).
		Str("min_move", cfg.MinMoveFraction.String()).
		Dur("cooldown", cfg.Cooldown).
		Msg("runner started")

	ticker := time.NewTicker(r.opts.CheckInterval)
	defer ticker.Stop()
	for {
		r.safeTick(ctx)
		select {
		case <-ctx.Done():
			r.log.Info().Msg("runner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) safeTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("tick panicked; continuing")
		}
	}()
	start := time.Now()
	r.Tick(ctx)
	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Tick runs one iteration and returns the decisions accepted during it.
func (r *Runner) Tick(ctx context.Context) []signal.Decision {
	now := r.deps.Clock()
	ev := r.deps.Evaluator
	w := ev.CurrentBucket(now)

	if w.Bucket != r.lastBucket {
		r.lastBucket = w.Bucket
		r.inSnipe = false
		if n := ev.Prune(now); n > 0 {
			r.log.Debug().Int("pruned", n).Msg("pruned old windows")
		}
		r.log.Info().Int64("bucket", int64(w.Bucket)).Time("start", w.Start).Time("end", w.End).Msg("window opened")
	}
	r.log.Debug().Dur("remaining", w.Remaining.Truncate(time.Second)).Msg("window closes in")

	capturing := w.Elapsed < r.opts.CaptureWindow
	sniping := ev.InSnipeWindow(now)
	if !capturing && !sniping && r.opts.MinMomentum.IsZero() {
		return nil
	}

	prices := r.fetchPrices(ctx, now)

	if capturing {
		r.captureReferences(w, prices, now)
	}
	if !sniping {
		return nil
	}
	if !r.inSnipe {
		r.inSnipe = true
		r.log.Info().Dur("remaining", w.Remaining.Truncate(time.Second)).Msg("in snipe window")
	}
	if left := ev.CooldownRemaining(r.opts.Assets[0], now); left > 0 && ev.Config().CooldownScope == strategy.CooldownGlobal {
		r.log.Info().Dur("left", left.Truncate(time.Second)).Msg("cooldown active")
		return nil
	}

	cands := r.collectCandidates(ctx, prices, now)
	return r.acceptCandidates(ctx, cands)
}

func (r *Runner) fetchPrices(ctx context.Context, now time.Time) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.opts.Assets))
	provider := r.deps.Prices.Name()
	for _, asset := range r.opts.Assets {
		fetchCtx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
		px, err := r.deps.Prices.Price(fetchCtx, asset)
		cancel()
		if err != nil {
			r.log.Warn().Err(err).Str("asset", asset).Msg("price unavailable this tick")
			continue
		}
		metrics.SamplesTotal.WithLabelValues(asset, provider).Inc()
		r.momentum.Observe(signal.Sample{Asset: asset, Price: px, Provider: provider, Ts: now})
		out[asset] = px
	}
	return out
}

func (r *Runner) captureReferences(w strategy.Window, prices map[string]decimal.Decimal, now time.Time) {
	for _, asset := range r.opts.Assets {
		px, ok := prices[asset]
		if !ok {
			continue
		}
		recorded, err := r.deps.Evaluator.ObserveReference(asset, px, now)
		if err != nil {
			r.log.Error().Err(err).Str("asset", asset).Msg("reference rejected")
			continue
		}
		if !recorded {
			continue
		}
		metrics.ReferencesRecorded.WithLabelValues(asset).Inc()
		r.log.Info().Str("asset", asset).Str("price", px.String()).Int64("bucket", int64(w.Bucket)).Msg("recorded opening price")
		r.settle(asset, int64(w.Bucket)-1, px, now)
	}
}

// settle resolves paper bets of earlier windows using this window's opening price as their close.
func (r *Runner) settle(asset string, bucket int64, closePrice decimal.Decimal, now time.Time) {
	if r.deps.Account == nil {
		return
	}
	for _, s := range r.deps.Account.Settle(asset, bucket, closePrice, now) {
		outcome := "loss"
		if s.Won {
			outcome = "win"
		}
		metrics.BetsSettled.WithLabelValues(asset, outcome).Inc()
		r.log.Info().
			Str("decision_id", s.DecisionID).
			Str("asset", asset).
			Str("direction", string(s.Direction)).
			Str("reference", s.Reference.String()).
			Str("close", s.ClosePrice.String()).
			Str("pnl", s.PnL.StringFixed(2)).
			Msg("paper bet " + outcome)
		if r.deps.Settlements != nil {
			if err := r.deps.Settlements.Record(s); err != nil {
				r.log.Warn().Err(err).Msg("record settlement failed")
			}
		}
	}
}

func (r *Runner) collectCandidates(ctx context.Context, prices map[string]decimal.Decimal, now time.Time) []candidate {
	var out []candidate
	for _, asset := range r.opts.Assets {
		px, ok := prices[asset]
		if !ok {
			continue
		}
		d, err := r.deps.Evaluator.Candidate(asset, px, now)
		if err != nil {
			r.log.Error().Err(err).Str("asset", asset).Msg("evaluation failed")
			continue
		}
		if d == nil {
			continue
		}
		logCandidate(r.log.Info(), *d).Msg("candidate")

		if !r.momentum.Confirms(asset, d.Direction, r.opts.MinMomentum) {
			r.reject(*d, RejectMomentum)
			continue
		}
		c := candidate{decision: *d}
		if r.opts.OddsGate {
			q, err := r.quote(ctx, *d)
			if err != nil {
				r.log.Warn().Err(err).Str("asset", asset).Msg("quote unavailable")
				r.reject(*d, RejectQuoteUnavailable)
				continue
			}
			if !r.opts.Odds.Allow(q, d.Direction) {
				r.log.Info().Str("asset", asset).Str("price", q.PriceFor(d.Direction).String()).Msg("odds outside bounds")
				r.reject(*d, RejectOdds)
				continue
			}
			c.quote = &q
		}
		out = append(out, c)
	}
	if r.opts.Priority == PriorityLargestMove {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].decision.ChangeFraction.Abs().GreaterThan(out[j].decision.ChangeFraction.Abs())
		})
	}
	return out
}

func (r *Runner) quote(ctx context.Context, d signal.Decision) (signal.Quote, error) {
	qctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()
	return r.deps.Quotes.Quote(qctx, polymarket.SlugFor(r.opts.SlugPrefixes, d.Asset, d.WindowStart))
}

func (r *Runner) acceptCandidates(ctx context.Context, cands []candidate) []signal.Decision {
	var accepted []signal.Decision
	for _, c := range cands {
		d := c.decision
		if !r.deps.Cap.Allow(d.DecidedAt) {
			r.reject(d, RejectDailyCap)
			continue
		}
		if !r.deps.Evaluator.Accept(d) {
			continue
		}
		r.deps.Cap.Record(d.DecidedAt)
		metrics.DecisionsTotal.WithLabelValues(d.Asset, string(d.Direction)).Inc()
		logCandidate(r.log.Info(), d).Str("decision_id", d.ID).Msg("decision accepted")

		if r.deps.Account != nil {
			entry := decimal.Zero
			if c.quote != nil {
				entry = c.quote.PriceFor(d.Direction)
			}
			if _, err := r.deps.Account.Place(d, entry); err != nil {
				r.log.Warn().Err(err).Str("decision_id", d.ID).Msg("paper bet not placed")
			}
		}
		if err := r.deps.Sink.Handle(ctx, d); err != nil {
			r.log.Warn().Err(err).Str("decision_id", d.ID).Msg("decision sinks reported errors")
		}
		accepted = append(accepted, d)
	}
	return accepted
}

func (r *Runner) reject(d signal.Decision, reason string) {
	metrics.DecisionsRejected.WithLabelValues(reason).Inc()
	r.log.Info().Str("asset", d.Asset).Str("direction", string(d.Direction)).Str("reason", reason).Msg("candidate rejected")
}

func logCandidate(ev *zerolog.Event, d signal.Decision) *zerolog.Event {
	return ev.
		Str("asset", d.Asset).
		Str("direction", string(d.Direction)).
		Str("open", d.ReferencePrice.String()).
		Str("current", d.CurrentPrice.String()).
		Float64("change_pct", d.ChangePercent()).
		Float64("secs_left", d.SecondsRemaining)
}
