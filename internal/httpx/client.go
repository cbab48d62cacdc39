// Package httpx is the shared JSON-over-HTTP client used by price and quote sources.
// Every request goes through a per-host token bucket and a per-host circuit breaker.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrBreakerOpen is returned without touching the network while a host's breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Status, e.Body)
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Timeout          time.Duration
	RPS              float64
	Burst            int
	FailureThreshold uint32
	OpenTimeout      time.Duration
	UserAgent        string
}

const (
	defaultTimeout          = 10 * time.Second
	defaultRPS              = 5
	defaultBurst            = 5
	defaultFailureThreshold = 3
	defaultOpenTimeout      = 30 * time.Second
	defaultUserAgent        = "sniperbot-go/1.0"
	maxErrorBody            = 512
)

// Client performs rate-limited GET requests and decodes JSON bodies.
type Client struct {
	name string
	opts Options
	http *http.Client
	log  zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
}

// New builds a client; name prefixes breaker names in logs.
func New(name string, opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		name:     name,
		opts:     opts,
		http:     &http.Client{Timeout: opts.Timeout},
		log:      log,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// GetJSON fetches rawURL and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	limiter, breaker := c.guards(u.Host)
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = breaker.Execute(func() (interface{}, error) {
		return nil, c.get(ctx, rawURL, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", c.name, u.Host, ErrBreakerOpen)
	}
	return err
}

// State exposes the breaker state for host, mainly for tests and logs.
func (c *Client) State(host string) gobreaker.State {
	_, breaker := c.guards(host)
	return breaker.State()
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: rawURL, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) guards(host string) (*rate.Limiter, *gobreaker.CircuitBreaker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.opts.RPS), c.opts.Burst)
		c.limiters[host] = limiter
	}
	breaker, ok := c.breakers[host]
	if !ok {
		breaker = gobreaker.NewCircuitBreaker(c.breakerSettings(host))
		c.breakers[host] = breaker
	}
	return limiter, breaker
}

func (c *Client) breakerSettings(host string) gobreaker.Settings {
	threshold := c.opts.FailureThreshold
	return gobreaker.Settings{
		Name:     c.name + ":" + host,
		Interval: 60 * time.Second,
		Timeout:  c.opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 4xx answers mean the upstream is healthy; only transport errors and 5xx trip.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < 500 && se.Status != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
}
