package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/exchange"
	"sniperbot-go/internal/execution"
	"sniperbot-go/internal/httpx"
	"sniperbot-go/internal/risk"
	"sniperbot-go/internal/strategy"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// StrategyConfig converts the window section into evaluator settings and validates them.
func (c *Config) StrategyConfig() (strategy.Config, error) {
	scope, err := strategy.ParseCooldownScope(c.Window.CooldownScope)
	if err != nil {
		return strategy.Config{}, err
	}
	cfg := strategy.Config{
		WindowLength:     secs(c.Window.LengthSecs),
		SnipeWindowStart: secs(c.Window.SnipeStartSecs),
		SnipeWindowEnd:   secs(c.Window.SnipeEndSecs),
		MinMoveFraction:  decimal.NewFromFloat(c.Window.MinMoveFraction),
		Cooldown:         secs(c.Window.CooldownSecs),
		CooldownScope:    scope,
		RetainBuckets:    c.Window.RetainBuckets,
	}
	return cfg, cfg.Validate()
}

// AssetSymbols lists the configured tickers, upper-cased, in file order.
func (c *Config) AssetSymbols() []string {
	out := make([]string, 0, len(c.Exchange.Assets))
	for _, a := range c.Exchange.Assets {
		if sym := exchange.NormalizeAsset(a.Symbol); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// HTTPOptions shares the rate limit settings across HTTP clients.
func (c *Config) HTTPOptions() httpx.Options {
	return httpx.Options{
		Timeout: secs(c.Runner.FetchTimeoutSecs),
		RPS:     c.Exchange.RequestsPerSecond,
		Burst:   c.Exchange.Burst,
	}
}

// ExchangeOptions builds price source options.
func (c *Config) ExchangeOptions() exchange.Options {
	symbols := make(map[string]exchange.Symbols, len(c.Exchange.Assets))
	for _, a := range c.Exchange.Assets {
		symbols[exchange.NormalizeAsset(a.Symbol)] = exchange.Symbols{Binance: a.Binance, CoinGecko: a.CoinGecko}
	}
	return exchange.Options{
		Symbols:    symbols,
		BaseURL:    c.Exchange.BaseURL,
		CacheTTL:   time.Duration(c.Exchange.CacheTTLMs) * time.Millisecond,
		StaleAfter: secs(c.Exchange.StaleAfterSecs),
		HTTP:       c.HTTPOptions(),
	}
}

// SlugPrefixes maps assets to Polymarket series prefixes; blanks fall back to <asset>-updown-15m.
func (c *Config) SlugPrefixes() map[string]string {
	out := make(map[string]string, len(c.Exchange.Assets))
	for _, a := range c.Exchange.Assets {
		sym := exchange.NormalizeAsset(a.Symbol)
		prefix := strings.TrimSpace(a.SlugPrefix)
		if prefix == "" {
			prefix = strings.ToLower(sym) + "-updown-15m"
		}
		out[sym] = prefix
	}
	return out
}

// OddsBounds converts the quotes section.
func (c *Config) OddsBounds() risk.OddsBounds {
	return risk.OddsBounds{Min: decimal.NewFromFloat(c.Quotes.MinOdds), Max: decimal.NewFromFloat(c.Quotes.MaxOdds)}
}

// ExecutionOptions converts the execution and risk sections.
func (c *Config) ExecutionOptions() execution.Options {
	mode := execution.ModeDryRun
	if !c.Execution.DryRun {
		mode = execution.ModeLive
	}
	return execution.Options{
		Mode:         mode,
		OrderSize:    decimal.NewFromFloat(c.Execution.OrderSize),
		LimitPrice:   decimal.NewFromFloat(c.Execution.LimitPrice),
		Limits:       risk.Limits{MaxNotionalPerTrade: decimal.NewFromFloat(c.Risk.MaxNotionalPerTrade)},
		SlugPrefixes: c.SlugPrefixes(),
	}
}
