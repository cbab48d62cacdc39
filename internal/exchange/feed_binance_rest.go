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

const defaultBinanceRESTBaseURL = "https://api.binance.com"

type binanceTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// BinanceREST reads /api/v3/ticker/price and caches each asset for CacheTTL.
type BinanceREST struct {
	opts   Options
	client *httpx.Client
	cache  *priceCache
	log    zerolog.Logger
}

// NewBinanceREST builds a polling Binance source.
func NewBinanceREST(opts Options, log zerolog.Logger) *BinanceREST {
	opts = opts.withDefaults()
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBinanceRESTBaseURL
	}
	return &BinanceREST{
		opts:   opts,
		client: httpx.New(ProviderBinance, opts.HTTP, log),
		cache:  newPriceCache(opts.Now),
		log:    log.With().Str("provider", ProviderBinance).Logger(),
	}
}

func (b *BinanceREST) Name() string { return ProviderBinance }

func (b *BinanceREST) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	asset = NormalizeAsset(asset)
	if px, ok := b.cache.get(asset, b.opts.CacheTTL); ok {
		return px, nil
	}
	symbol := binanceSymbol(b.opts.Symbols, asset)
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.opts.BaseURL, url.QueryEscape(symbol))
	var ticker binanceTicker
	if err := b.client.GetJSON(ctx, endpoint, &ticker); err != nil {
		metrics.PriceFetchFailures.WithLabelValues(ProviderBinance).Inc()
		return decimal.Zero, fmt.Errorf("%w: binance %s: %v", ErrUnavailable, symbol, err)
	}
	if !ticker.Price.IsPositive() {
		metrics.PriceFetchFailures.WithLabelValues(ProviderBinance).Inc()
		return decimal.Zero, fmt.Errorf("%w: binance %s returned price %s", ErrUnavailable, symbol, ticker.Price)
	}
	b.cache.put(asset, ticker.Price, b.opts.Now())
	return ticker.Price, nil
}
