package polymarket

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSlugPrefixes maps assets to their 15-minute up/down series.
func DefaultSlugPrefixes() map[string]string {
	return map[string]string{
		"BTC": "btc-updown-15m",
		"ETH": "eth-updown-15m",
		"SOL": "sol-updown-15m",
		"XRP": "xrp-updown-15m",
	}
}

// Slug names the market for the window starting at windowStart,
// e.g. btc-updown-15m-1765791900.
func Slug(prefix string, windowStart time.Time) string {
	return fmt.Sprintf("%s-%d", strings.TrimSuffix(strings.TrimSpace(prefix), "-"), windowStart.Unix())
}

// SlugFor looks up the asset's prefix, falling back to <asset>-updown-15m.
func SlugFor(prefixes map[string]string, asset string, windowStart time.Time) string {
	prefix, ok := prefixes[strings.ToUpper(asset)]
	if !ok || strings.TrimSpace(prefix) == "" {
		prefix = strings.ToLower(asset) + "-updown-15m"
	}
	return Slug(prefix, windowStart)
}
