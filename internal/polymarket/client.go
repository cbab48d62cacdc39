// Package polymarket reads 15-minute up/down market quotes from the Gamma API.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/httpx"
	"sniperbot-go/internal/signal"
)

// DefaultURL is the public Gamma host.
const DefaultURL = "https://gamma-api.polymarket.com"

// DefaultUserAgent mimics a browser UA to avoid Cloudflare 403s.
const DefaultUserAgent = "Mozilla/5.0"

var (
	// ErrUnavailable wraps transport and decoding failures.
	ErrUnavailable = errors.New("quote unavailable")
	// ErrMarketNotFound means Gamma has no usable market for the slug yet.
	ErrMarketNotFound = errors.New("market not found")
)

// Client fetches market quotes by slug.
type Client struct {
	host string
	http *httpx.Client
	log  zerolog.Logger
	now  func() time.Time
}

// NewClient validates host (empty means DefaultURL) and builds a client.
func NewClient(host string, opts httpx.Options, log zerolog.Logger) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultURL
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("gamma url parse %q: %w", host, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("gamma url must be http(s), got %q", host)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		host: host,
		http: httpx.New("gamma", opts, log),
		log:  log.With().Str("component", "gamma").Logger(),
		now:  time.Now,
	}, nil
}

// stringList accepts both a JSON array and a JSON string holding an array;
// Gamma returns outcomes, outcomePrices and clobTokenIds in the latter form.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*s = nil
			return nil
		}
		b = []byte(raw)
	}
	var vals []string
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*s = vals
	return nil
}

type market struct {
	Slug          string     `json:"slug"`
	ConditionID   string     `json:"conditionId"`
	Outcomes      stringList `json:"outcomes"`
	OutcomePrices stringList `json:"outcomePrices"`
	ClobTokenIDs  stringList `json:"clobTokenIds"`
	Closed        bool       `json:"closed"`
}

// Quote resolves slug to its outcome prices and token ids. YES is the "Up" side.
func (c *Client) Quote(ctx context.Context, slug string) (signal.Quote, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return signal.Quote{}, fmt.Errorf("market slug required")
	}
	q := url.Values{}
	q.Set("slug", slug)
	endpoint := c.host + "/markets?" + q.Encode()

	var markets []market
	if err := c.http.GetJSON(ctx, endpoint, &markets); err != nil {
		return signal.Quote{}, fmt.Errorf("%w: gamma %s: %v", ErrUnavailable, slug, err)
	}
	chosen := pickMarket(markets, slug)
	if chosen == nil {
		return signal.Quote{}, fmt.Errorf("%w: %s", ErrMarketNotFound, slug)
	}
	return c.quoteFromMarket(slug, *chosen)
}

func pickMarket(markets []market, slug string) *market {
	for i := range markets {
		if strings.TrimSpace(markets[i].Slug) == slug {
			return &markets[i]
		}
	}
	return nil
}

func (c *Client) quoteFromMarket(slug string, m market) (signal.Quote, error) {
	if len(m.ClobTokenIDs) != 2 {
		return signal.Quote{}, fmt.Errorf("%w: expected 2 clobTokenIds for %q, got %d", ErrMarketNotFound, slug, len(m.ClobTokenIDs))
	}
	if len(m.OutcomePrices) != 2 {
		return signal.Quote{}, fmt.Errorf("%w: expected 2 outcomePrices for %q, got %d", ErrMarketNotFound, slug, len(m.OutcomePrices))
	}
	yes, no := 0, 1
	if len(m.Outcomes) == 2 && isDownOutcome(m.Outcomes[0]) {
		yes, no = 1, 0
	}
	yesPx, err := decimal.NewFromString(strings.TrimSpace(m.OutcomePrices[yes]))
	if err != nil {
		return signal.Quote{}, fmt.Errorf("%w: outcome price %q: %v", ErrUnavailable, m.OutcomePrices[yes], err)
	}
	noPx, err := decimal.NewFromString(strings.TrimSpace(m.OutcomePrices[no]))
	if err != nil {
		return signal.Quote{}, fmt.Errorf("%w: outcome price %q: %v", ErrUnavailable, m.OutcomePrices[no], err)
	}
	return signal.Quote{
		Slug:        slug,
		ConditionID: m.ConditionID,
		YesPrice:    yesPx,
		NoPrice:     noPx,
		YesToken:    strings.TrimSpace(m.ClobTokenIDs[yes]),
		NoToken:     strings.TrimSpace(m.ClobTokenIDs[no]),
		FetchedAt:   c.now(),
	}, nil
}

func isDownOutcome(outcome string) bool {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "down", "no":
		return true
	}
	return false
}
