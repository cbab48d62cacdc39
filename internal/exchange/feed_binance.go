package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/metrics"
)

const defaultBinanceStreamBaseURL = "wss://stream.binance.com:9443"

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     decimal.Decimal `json:"p"`
	TradeTime int64           `json:"T"`
}

// BinanceStream subscribes to the combined trade stream and answers Price from the
// last trade seen. A price older than StaleAfter counts as unavailable.
type BinanceStream struct {
	opts    Options
	log     zerolog.Logger
	cache   *priceCache
	symbols []string
	assets  map[string]string // BTCUSDT -> BTC
}

// NewBinanceStream builds the stream source; Run must be started for prices to flow.
func NewBinanceStream(opts Options, log zerolog.Logger) *BinanceStream {
	opts = opts.withDefaults()
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBinanceStreamBaseURL
	}
	s := &BinanceStream{
		opts:   opts,
		log:    log.With().Str("provider", ProviderBinanceStream).Logger(),
		cache:  newPriceCache(opts.Now),
		assets: make(map[string]string, len(opts.Symbols)),
	}
	for asset := range opts.Symbols {
		asset = NormalizeAsset(asset)
		sym := binanceSymbol(opts.Symbols, asset)
		s.assets[sym] = asset
		s.symbols = append(s.symbols, sym)
	}
	sort.Strings(s.symbols)
	return s
}

func (s *BinanceStream) Name() string { return ProviderBinanceStream }

func (s *BinanceStream) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	asset = NormalizeAsset(asset)
	px, ok := s.cache.get(asset, s.opts.StaleAfter)
	if !ok {
		metrics.PriceFetchFailures.WithLabelValues(ProviderBinanceStream).Inc()
		return decimal.Zero, fmt.Errorf("%w: no trade for %s within %s", ErrUnavailable, asset, s.opts.StaleAfter)
	}
	return px, nil
}

// Run keeps the websocket connected until ctx is canceled, backing off between retries.
func (s *BinanceStream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("binance stream requires at least one symbol")
	}
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.opts.BaseURL, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("binance stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (s *BinanceStream) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", s.symbols).Msg("connected price stream")

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				// unblock ReadMessage on shutdown
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		if err := s.apply(message); err != nil {
			s.log.Warn().Err(err).Msg("dropping binance message")
		}
	}
}

// apply decodes one combined-stream envelope into the cache.
func (s *BinanceStream) apply(message []byte) error {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	symbol := parseBinanceSymbol(env.Stream)
	asset, ok := s.assets[symbol]
	if !ok {
		return fmt.Errorf("unexpected stream %q", env.Stream)
	}
	if !env.Data.Price.IsPositive() {
		return fmt.Errorf("invalid price %s for %s", env.Data.Price, symbol)
	}
	// Cache freshness follows our clock, not the exchange's trade time.
	s.cache.put(asset, env.Data.Price, s.opts.Now())
	return nil
}

func parseBinanceSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
