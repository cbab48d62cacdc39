// Package strategy turns price samples into windowed up/down decisions.
package strategy

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

// ErrInvalidInput marks malformed numeric input. It is returned, never swallowed.
var ErrInvalidInput = errors.New("invalid input")

// Evaluator records the opening price of every window and emits at most one
// decision per evaluation once the window nears its close.
//
// Flow per window: NoReference -> HasReference on the first ObserveReference;
// Evaluate then gates on the snipe window, the cooldown and the minimum move.
// All methods share one mutex, so callers may fetch prices concurrently.
type Evaluator struct {
	cfg Config

	mu           sync.Mutex
	observations map[Bucket]map[string]signal.ReferenceObservation
	lastDecision time.Time
	lastByAsset  map[string]time.Time

	newID func() string
}

// NewEvaluator validates cfg and returns an empty evaluator with no cooldown active.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	scope, err := ParseCooldownScope(string(cfg.CooldownScope))
	if err != nil {
		return nil, err
	}
	cfg.CooldownScope = scope
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("evaluator config: %w", err)
	}
	return &Evaluator{
		cfg:          cfg,
		observations: make(map[Bucket]map[string]signal.ReferenceObservation),
		lastByAsset:  make(map[string]time.Time),
		newID:        uuid.NewString,
	}, nil
}

// Config returns the settings the evaluator was built with.
func (e *Evaluator) Config() Config { return e.cfg }

// CurrentBucket places now inside its window.
func (e *Evaluator) CurrentBucket(now time.Time) Window {
	return WindowAt(now, e.cfg.WindowLength)
}

// InSnipeWindow reports whether decisions may be emitted at now.
func (e *Evaluator) InSnipeWindow(now time.Time) bool {
	return e.cfg.InSnipeWindow(e.CurrentBucket(now).Remaining)
}

// ObserveReference stores price as the reference for (bucket(now), asset) unless one
// already exists. Callers only invoke it early in a window; that is not checked here.
func (e *Evaluator) ObserveReference(asset string, price decimal.Decimal, now time.Time) (bool, error) {
	asset, err := validateSample(asset, price, now)
	if err != nil {
		return false, err
	}
	w := e.CurrentBucket(now)

	e.mu.Lock()
	defer e.mu.Unlock()
	byAsset := e.observations[w.Bucket]
	if byAsset == nil {
		byAsset = make(map[string]signal.ReferenceObservation)
		e.observations[w.Bucket] = byAsset
	}
	if _, ok := byAsset[asset]; ok {
		return false, nil
	}
	byAsset[asset] = signal.ReferenceObservation{
		Bucket:     int64(w.Bucket),
		Asset:      asset,
		Price:      price,
		RecordedAt: now,
	}
	return true, nil
}

// Reference returns the stored reference for the window containing now.
func (e *Evaluator) Reference(asset string, now time.Time) (signal.ReferenceObservation, bool) {
	w := e.CurrentBucket(now)
	e.mu.Lock()
	defer e.mu.Unlock()
	obs, ok := e.observations[w.Bucket][strings.TrimSpace(asset)]
	return obs, ok
}

// Evaluate runs the full gate pipeline and, on success, starts the cooldown.
// A nil decision with a nil error means no signal.
func (e *Evaluator) Evaluate(asset string, price decimal.Decimal, now time.Time) (*signal.Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.candidateLocked(asset, price, now)
	if err != nil || d == nil {
		return nil, err
	}
	e.acceptLocked(*d)
	return d, nil
}

// Candidate runs the same gates as Evaluate without touching the cooldown, so the
// caller can apply further filters or rank assets before calling Accept.
func (e *Evaluator) Candidate(asset string, price decimal.Decimal, now time.Time) (*signal.Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.candidateLocked(asset, price, now)
}

// Accept commits a candidate and starts its cooldown. It returns false when a
// cooldown became active after the candidate was produced.
func (e *Evaluator) Accept(d signal.Decision) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cooldownActiveLocked(d.Asset, d.DecidedAt) {
		return false
	}
	e.acceptLocked(d)
	return true
}

// CooldownRemaining reports how long the cooldown still blocks asset at now.
func (e *Evaluator) CooldownRemaining(asset string, now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.lastDecisionLocked(strings.TrimSpace(asset))
	if last.IsZero() {
		return 0
	}
	left := e.cfg.Cooldown - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// Prune drops observations whose bucket is strictly older than RetainBuckets
// windows behind the bucket of now. It returns the number of buckets removed.
func (e *Evaluator) Prune(now time.Time) int {
	cutoff := e.CurrentBucket(now).Bucket - Bucket(e.cfg.RetainBuckets)
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for b := range e.observations {
		if b < cutoff {
			delete(e.observations, b)
			removed++
		}
	}
	return removed
}

// Buckets returns how many windows currently hold observations.
func (e *Evaluator) Buckets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observations)
}

func (e *Evaluator) candidateLocked(asset string, price decimal.Decimal, now time.Time) (*signal.Decision, error) {
	asset, err := validateSample(asset, price, now)
	if err != nil {
		return nil, err
	}
	w := e.CurrentBucket(now)
	if !e.cfg.InSnipeWindow(w.Remaining) {
		return nil, nil
	}
	if e.cooldownActiveLocked(asset, now) {
		return nil, nil
	}
	ref, ok := e.observations[w.Bucket][asset]
	if !ok {
		return nil, nil
	}
	if !ref.Price.IsPositive() {
		return nil, fmt.Errorf("%w: reference price for %s is %s", ErrInvalidInput, asset, ref.Price)
	}

	change := price.Sub(ref.Price).Div(ref.Price)
	if change.Abs().LessThan(e.cfg.MinMoveFraction) {
		return nil, nil
	}
	dir := signal.Down
	if change.IsPositive() {
		dir = signal.Up
	}
	return &signal.Decision{
		ID:               e.newID(),
		Asset:            asset,
		Bucket:           int64(w.Bucket),
		WindowStart:      w.Start,
		Direction:        dir,
		ReferencePrice:   ref.Price,
		CurrentPrice:     price,
		ChangeFraction:   change,
		SecondsRemaining: w.Remaining.Seconds(),
		DecidedAt:        now,
	}, nil
}

func (e *Evaluator) acceptLocked(d signal.Decision) {
	if e.cfg.CooldownScope == CooldownPerAsset {
		e.lastByAsset[d.Asset] = d.DecidedAt
		return
	}
	e.lastDecision = d.DecidedAt
}

func (e *Evaluator) lastDecisionLocked(asset string) time.Time {
	if e.cfg.CooldownScope == CooldownPerAsset {
		return e.lastByAsset[asset]
	}
	return e.lastDecision
}

func (e *Evaluator) cooldownActiveLocked(asset string, now time.Time) bool {
	last := e.lastDecisionLocked(asset)
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < e.cfg.Cooldown
}

func validateSample(asset string, price decimal.Decimal, now time.Time) (string, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return "", fmt.Errorf("%w: empty asset", ErrInvalidInput)
	}
	if !price.IsPositive() {
		return "", fmt.Errorf("%w: price for %s must be positive, got %s", ErrInvalidInput, asset, price)
	}
	if now.IsZero() {
		return "", fmt.Errorf("%w: zero timestamp for %s", ErrInvalidInput, asset)
	}
	return asset, nil
}
