package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/exchange"
	"sniperbot-go/internal/execution"
	"sniperbot-go/internal/paper"
	"sniperbot-go/internal/risk"
	"sniperbot-go/internal/signal"
	"sniperbot-go/internal/strategy"
)

// windowStart is aligned to a 900s boundary.
var windowStart = time.Unix(1765791900, 0).UTC()

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) set(secs int)   { c.now = windowStart.Add(time.Duration(secs) * time.Second) }

type captureSink struct {
	mu        sync.Mutex
	decisions []signal.Decision
}

func (s *captureSink) Handle(_ context.Context, dec signal.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, dec)
	return nil
}

type fakeQuotes struct {
	quote signal.Quote
	err   error
	slugs []string
}

func (q *fakeQuotes) Quote(_ context.Context, slug string) (signal.Quote, error) {
	q.slugs = append(q.slugs, slug)
	if q.err != nil {
		return signal.Quote{}, q.err
	}
	out := q.quote
	out.Slug = slug
	return out, nil
}

type captureRecorder struct{ records []any }

func (r *captureRecorder) Record(v any) error {
	r.records = append(r.records, v)
	return nil
}

type panicSource struct{}

func (panicSource) Name() string { return "panic" }
func (panicSource) Price(context.Context, string) (decimal.Decimal, error) {
	panic("boom")
}

type harness struct {
	runner  *Runner
	clock   *fakeClock
	stub    *exchange.Stub
	sink    *captureSink
	account *paper.Account
}

func newHarness(t *testing.T, opts Options, mutate func(*strategy.Config, *Deps)) *harness {
	t.Helper()
	cfg := strategy.DefaultConfig()
	clock := &fakeClock{now: windowStart}
	stub := exchange.NewStub(map[string]decimal.Decimal{"BTC": d("100"), "ETH": d("50")}).WithDrift(decimal.Zero)
	sink := &captureSink{}
	account, err := paper.NewAccount(d("100"), d("1"), d("0.5"))
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	deps := Deps{
		Prices:  stub,
		Sink:    sink,
		Account: account,
		Clock:   clock.Now,
		Log:     zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	ev, err := strategy.NewEvaluator(cfg)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	deps.Evaluator = ev
	if len(opts.Assets) == 0 {
		opts.Assets = []string{"BTC", "ETH"}
	}
	r, err := New(opts, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{runner: r, clock: clock, stub: stub, sink: sink, account: account}
}

// capture records references at the start of the window containing offset secs.
func (h *harness) capture(t *testing.T, secs int) {
	t.Helper()
	h.clock.set(secs)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("capture tick must not decide, got %d", len(got))
	}
}

func TestTickCapturesThenDecides(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	h.capture(t, 5)

	ev := h.runner.deps.Evaluator
	ref, ok := ev.Reference("BTC", h.clock.Now())
	if !ok || !ref.Price.Equal(d("100")) {
		t.Fatalf("expected BTC reference 100, got %v (%v)", ref.Price, ok)
	}

	// Mid-window price moves do not decide.
	h.stub.Set("BTC", d("100.2"))
	h.clock.set(400)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("expected no decision outside snipe window, got %d", len(got))
	}

	h.clock.set(820)
	got := h.runner.Tick(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected one decision, got %d", len(got))
	}
	dec := got[0]
	if dec.Asset != "BTC" || dec.Direction != signal.Up {
		t.Fatalf("expected BTC UP, got %s %s", dec.Asset, dec.Direction)
	}
	if !dec.ChangeFraction.Equal(d("0.002")) || dec.SecondsRemaining != 80 {
		t.Fatalf("unexpected decision fields: %+v", dec)
	}
	if len(h.sink.decisions) != 1 || h.sink.decisions[0].ID != dec.ID {
		t.Fatalf("sink did not receive decision")
	}
	if snap := h.account.Snapshot(); snap.OpenBets != 1 {
		t.Fatalf("expected one open paper bet, got %d", snap.OpenBets)
	}

	h.clock.set(830)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("cooldown should block the next tick, got %d", len(got))
	}
}

func TestTickLateStartSkipsWindow(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	h.clock.set(300)
	h.runner.Tick(context.Background())
	if _, ok := h.runner.deps.Evaluator.Reference("BTC", h.clock.Now()); ok {
		t.Fatalf("reference must not be captured after the capture window")
	}
	h.stub.Set("BTC", d("110"))
	h.clock.set(820)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("window without reference must not decide, got %d", len(got))
	}
}

func TestTickLargestMovePriority(t *testing.T) {
	h := newHarness(t, Options{Priority: PriorityLargestMove}, nil)
	h.capture(t, 0)
	h.stub.Set("BTC", d("100.2"))
	h.stub.Set("ETH", d("49.75"))
	h.clock.set(850)
	got := h.runner.Tick(context.Background())
	if len(got) != 1 {
		t.Fatalf("global cooldown allows one decision per tick, got %d", len(got))
	}
	if got[0].Asset != "ETH" || got[0].Direction != signal.Down {
		t.Fatalf("expected ETH DOWN, got %s %s", got[0].Asset, got[0].Direction)
	}
}

func TestTickFirstPriorityKeepsAssetOrder(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	h.capture(t, 0)
	h.stub.Set("BTC", d("100.2"))
	h.stub.Set("ETH", d("49.75"))
	h.clock.set(850)
	got := h.runner.Tick(context.Background())
	if len(got) != 1 || got[0].Asset != "BTC" {
		t.Fatalf("expected BTC first, got %+v", got)
	}
}

func TestTickPerAssetCooldownAllowsEachAsset(t *testing.T) {
	h := newHarness(t, Options{}, func(cfg *strategy.Config, _ *Deps) {
		cfg.CooldownScope = strategy.CooldownPerAsset
	})
	h.capture(t, 0)
	h.stub.Set("BTC", d("100.2"))
	h.stub.Set("ETH", d("49.75"))
	h.clock.set(850)
	if got := h.runner.Tick(context.Background()); len(got) != 2 {
		t.Fatalf("expected a decision per asset, got %d", len(got))
	}
	h.clock.set(860)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("both assets should be cooling down, got %d", len(got))
	}
}

func TestTickOddsGate(t *testing.T) {
	quotes := &fakeQuotes{quote: signal.Quote{YesPrice: d("0.9"), NoPrice: d("0.1")}}
	h := newHarness(t, Options{Assets: []string{"BTC"}, OddsGate: true, Odds: risk.DefaultOddsBounds()}, func(_ *strategy.Config, deps *Deps) {
		deps.Quotes = quotes
	})
	h.capture(t, 0)
	h.stub.Set("BTC", d("100.2"))
	h.clock.set(820)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("expensive side must be rejected, got %d", len(got))
	}
	if len(quotes.slugs) != 1 || quotes.slugs[0] != "btc-updown-15m-1765791900" {
		t.Fatalf("unexpected slug lookups: %v", quotes.slugs)
	}

	quotes.err = errors.New("gamma down")
	h.clock.set(825)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("missing quote must reject, got %d", len(got))
	}

	quotes.err = nil
	quotes.quote = signal.Quote{YesPrice: d("0.6"), NoPrice: d("0.4")}
	h.clock.set(830)
	got := h.runner.Tick(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected decision once odds are in range, got %d", len(got))
	}
	h.clock.set(900 + 5)
	h.runner.Tick(context.Background())
	snap := h.account.Snapshot()
	if snap.Wins != 1 {
		t.Fatalf("expected settled win, got %+v", snap)
	}
	// 1 stake at 0.6 buys 1.666.. shares.
	if !snap.RealizedPnL.Round(4).Equal(d("0.6667")) {
		t.Fatalf("expected pnl from quoted entry, got %s", snap.RealizedPnL)
	}
}

func TestTickMomentumGate(t *testing.T) {
	h := newHarness(t, Options{Assets: []string{"BTC"}, MinMomentum: d("0.01"), MomentumWindow: time.Minute}, nil)
	h.capture(t, 0)
	h.clock.set(800)
	h.runner.Tick(context.Background())
	h.stub.Set("BTC", d("100.2"))
	h.clock.set(820)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("weak momentum must reject, got %d", len(got))
	}

	h.stub.Set("BTC", d("102"))
	h.clock.set(830)
	if got := h.runner.Tick(context.Background()); len(got) != 1 {
		t.Fatalf("strong momentum should pass, got %d", len(got))
	}
}

func TestTickDailyCapAndSettlement(t *testing.T) {
	settlements := &captureRecorder{}
	h := newHarness(t, Options{Assets: []string{"BTC"}}, func(_ *strategy.Config, deps *Deps) {
		deps.Cap = risk.NewDailyCap(1)
		deps.Settlements = settlements
	})
	h.capture(t, 0)
	h.stub.Set("BTC", d("100.2"))
	h.clock.set(820)
	if got := h.runner.Tick(context.Background()); len(got) != 1 {
		t.Fatalf("expected first decision, got %d", len(got))
	}

	// Next window opens below the previous reference: the UP bet loses.
	h.stub.Set("BTC", d("99"))
	h.capture(t, 900+3)
	if len(settlements.records) != 1 {
		t.Fatalf("expected one settlement record, got %d", len(settlements.records))
	}
	s, ok := settlements.records[0].(paper.Settlement)
	if !ok || s.Won || !s.PnL.Equal(d("-1")) {
		t.Fatalf("unexpected settlement: %+v", settlements.records[0])
	}

	h.stub.Set("BTC", d("98"))
	h.clock.set(900 + 820)
	if got := h.runner.Tick(context.Background()); len(got) != 0 {
		t.Fatalf("daily cap should block the second decision, got %d", len(got))
	}
	snap := h.account.Snapshot()
	if snap.Losses != 1 || snap.OpenBets != 0 || !snap.Cash.Equal(d("99")) {
		t.Fatalf("unexpected account state: %+v", snap)
	}
}

func TestTickFansOutToExecutor(t *testing.T) {
	exec, err := execution.NewExecutor(execution.Options{
		Mode:       execution.ModeDryRun,
		OrderSize:  d("5"),
		LimitPrice: d("0.95"),
	}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	journal := paper.NewJournal(4)
	h := newHarness(t, Options{Assets: []string{"BTC"}}, func(_ *strategy.Config, deps *Deps) {
		deps.Sink = execution.NewFanout(zerolog.Nop(), exec, journal)
	})
	h.capture(t, 0)
	h.stub.Set("BTC", d("99.8"))
	h.clock.set(880)
	if got := h.runner.Tick(context.Background()); len(got) != 1 {
		t.Fatalf("expected one decision, got %d", len(got))
	}
	stats := journal.Stats()
	if stats.Total != 1 || stats.ByDirection[signal.Down] != 1 {
		t.Fatalf("journal did not record decision: %+v", stats)
	}
}

func TestSafeTickRecoversPanic(t *testing.T) {
	ev, err := strategy.NewEvaluator(strategy.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	clock := &fakeClock{now: windowStart}
	r, err := New(Options{Assets: []string{"BTC"}}, Deps{
		Evaluator: ev,
		Prices:    panicSource{},
		Sink:      &captureSink{},
		Clock:     clock.Now,
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.safeTick(context.Background())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, Options{CheckInterval: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.runner.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestNewValidates(t *testing.T) {
	ev, _ := strategy.NewEvaluator(strategy.DefaultConfig())
	base := Deps{Evaluator: ev, Prices: exchange.NewStub(nil), Sink: &captureSink{}, Log: zerolog.Nop()}
	if _, err := New(Options{}, base); err == nil {
		t.Fatalf("expected error without assets")
	}
	if _, err := New(Options{Assets: []string{"BTC"}, Priority: "random"}, base); err == nil {
		t.Fatalf("expected error for unknown priority")
	}
	if _, err := New(Options{Assets: []string{"BTC"}, OddsGate: true}, base); err == nil {
		t.Fatalf("expected error for odds gate without quotes")
	}
	noSink := base
	noSink.Sink = nil
	if _, err := New(Options{Assets: []string{"BTC"}}, noSink); err == nil {
		t.Fatalf("expected error without sink")
	}
}
