package exchange

import (
	"strings"
)

// Symbols names an asset on each upstream.
type Symbols struct {
	Binance   string `yaml:"binance"`
	CoinGecko string `yaml:"coingecko"`
}

// DefaultSymbols covers the assets Polymarket lists 15-minute up/down markets for.
func DefaultSymbols() map[string]Symbols {
	return map[string]Symbols{
		"BTC": {Binance: "BTCUSDT", CoinGecko: "bitcoin"},
		"ETH": {Binance: "ETHUSDT", CoinGecko: "ethereum"},
		"SOL": {Binance: "SOLUSDT", CoinGecko: "solana"},
		"XRP": {Binance: "XRPUSDT", CoinGecko: "ripple"},
	}
}

// NormalizeAsset upper-cases an asset ticker and strips anything but letters and digits.
func NormalizeAsset(asset string) string {
	asset = strings.TrimSpace(asset)
	var b strings.Builder
	b.Grow(len(asset))
	for _, r := range asset {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if r >= 'a' && r <= 'z' {
				r -= 32
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// binanceSymbol falls back to <ASSET>USDT when no mapping is configured.
func binanceSymbol(symbols map[string]Symbols, asset string) string {
	if s, ok := symbols[asset]; ok && s.Binance != "" {
		return strings.ToUpper(s.Binance)
	}
	return asset + "USDT"
}

func coinGeckoID(symbols map[string]Symbols, asset string) string {
	if s, ok := symbols[asset]; ok && s.CoinGecko != "" {
		return strings.ToLower(s.CoinGecko)
	}
	return strings.ToLower(asset)
}
