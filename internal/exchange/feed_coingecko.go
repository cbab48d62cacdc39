package exchange

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/httpx"
	"sniperbot-go/internal/metrics"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com"

// simple/price answers {"bitcoin":{"usd":97000.12}}.
type coinGeckoSimplePrice map[string]map[string]decimal.Decimal

// CoinGecko reads the simple price endpoint. It shares the cache policy of BinanceREST
// because the free tier rate limits aggressively.
type CoinGecko struct {
	opts   Options
	client *httpx.Client
	cache  *priceCache
	log    zerolog.Logger
}

// NewCoinGecko builds a polling CoinGecko source.
func NewCoinGecko(opts Options, log zerolog.Logger) *CoinGecko {
	opts = opts.withDefaults()
	if opts.BaseURL == "" {
		opts.BaseURL = defaultCoinGeckoBaseURL
	}
	return &CoinGecko{
		opts:   opts,
		client: httpx.New(ProviderCoinGecko, opts.HTTP, log),
		cache:  newPriceCache(opts.Now),
		log:    log.With().Str("provider", ProviderCoinGecko).Logger(),
	}
}

func (c *CoinGecko) Name() string { return ProviderCoinGecko }

func (c *CoinGecko) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	asset = NormalizeAsset(asset)
	if px, ok := c.cache.get(asset, c.opts.CacheTTL); ok {
		return px, nil
	}
	id := coinGeckoID(c.opts.Symbols, asset)
	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.opts.BaseURL, url.QueryEscape(id))
	var payload coinGeckoSimplePrice
	if err := c.client.GetJSON(ctx, endpoint, &payload); err != nil {
		metrics.PriceFetchFailures.WithLabelValues(ProviderCoinGecko).Inc()
		return decimal.Zero, fmt.Errorf("%w: coingecko %s: %v", ErrUnavailable, id, err)
	}
	px, ok := payload[id]["usd"]
	if !ok || !px.IsPositive() {
		metrics.PriceFetchFailures.WithLabelValues(ProviderCoinGecko).Inc()
		return decimal.Zero, fmt.Errorf("%w: coingecko has no usd price for %s", ErrUnavailable, id)
	}
	c.cache.put(asset, px, c.opts.Now())
	return px, nil
}
