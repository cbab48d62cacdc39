// Package exchange hosts spot price sources for the assets the sniper watches.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/httpx"
)

const (
	// ProviderStub returns deterministic synthetic prices (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance polls the Binance REST ticker.
	ProviderBinance = "binance"
	// ProviderBinanceStream keeps a last-trade cache fed by the Binance websocket.
	ProviderBinanceStream = "binance_ws"
	// ProviderCoinGecko polls the CoinGecko simple price endpoint.
	ProviderCoinGecko = "coingecko"
)

// ErrUnavailable marks a price that could not be obtained this time around.
// Callers treat it as "skip the asset for this tick".
var ErrUnavailable = errors.New("price unavailable")

// PriceSource returns the latest spot price of an asset in USD.
type PriceSource interface {
	Name() string
	Price(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Runner is implemented by sources that need a background loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Options configures source construction.
type Options struct {
	Symbols    map[string]Symbols
	BaseURL    string
	CacheTTL   time.Duration
	StaleAfter time.Duration
	HTTP       httpx.Options
	Now        func() time.Time
}

const (
	defaultCacheTTL   = 2 * time.Second
	defaultStaleAfter = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if len(o.Symbols) == 0 {
		o.Symbols = DefaultSymbols()
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = defaultStaleAfter
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	return o
}

// NewSource builds the source backed by provider.
func NewSource(provider string, opts Options, log zerolog.Logger) (PriceSource, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderStub:
		return NewStub(nil), nil
	case ProviderBinance:
		return NewBinanceREST(opts, log), nil
	case ProviderBinanceStream:
		return NewBinanceStream(opts, log), nil
	case ProviderCoinGecko:
		return NewCoinGecko(opts, log), nil
	default:
		return nil, fmt.Errorf("unknown price provider %q", provider)
	}
}

type cachedPrice struct {
	price decimal.Decimal
	at    time.Time
}

// priceCache holds the last price per asset with its fetch time.
type priceCache struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedPrice
}

func newPriceCache(now func() time.Time) *priceCache {
	return &priceCache{now: now, entries: make(map[string]cachedPrice)}
}

func (c *priceCache) get(asset string, maxAge time.Duration) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[asset]
	if !ok || c.now().Sub(e.at) > maxAge {
		return decimal.Zero, false
	}
	return e.price, true
}

func (c *priceCache) put(asset string, price decimal.Decimal, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[asset]; ok && prev.at.After(at) {
		return
	}
	c.entries[asset] = cachedPrice{price: price, at: at}
}

// Stub serves fixed prices that drift by a constant fraction on every read.
type Stub struct {
	drift decimal.Decimal

	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

// NewStub seeds the stub; nil seeds BTC/ETH/SOL with round numbers.
func NewStub(seed map[string]decimal.Decimal) *Stub {
	if seed == nil {
		seed = map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(100000),
			"ETH": decimal.NewFromInt(3500),
			"SOL": decimal.NewFromInt(200),
		}
	}
	prices := make(map[string]decimal.Decimal, len(seed))
	for k, v := range seed {
		prices[strings.ToUpper(k)] = v
	}
	return &Stub{prices: prices, drift: decimal.RequireFromString("0.0003")}
}

// WithDrift overrides the per-read drift fraction; zero freezes prices.
func (s *Stub) WithDrift(drift decimal.Decimal) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drift = drift
	return s
}

// Set pins the next price returned for asset.
func (s *Stub) Set(asset string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(asset)] = price
}

func (s *Stub) Name() string { return ProviderStub }

func (s *Stub) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	asset = strings.ToUpper(asset)
	px, ok := s.prices[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: stub has no price for %s", ErrUnavailable, asset)
	}
	s.prices[asset] = px.Add(px.Mul(s.drift))
	return px, nil
}
