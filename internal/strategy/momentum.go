package strategy

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

// MomentumTracker keeps a rolling window of samples per asset and reports the
// fractional change between the oldest and newest sample in it.
type MomentumTracker struct {
	window time.Duration

	mu     sync.Mutex
	series map[string]*momentumSeries
}

type momentumSeries struct {
	samples []signal.Sample
}

// NewMomentumTracker builds a tracker over the given lookback; 60s when non-positive.
func NewMomentumTracker(window time.Duration) *MomentumTracker {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &MomentumTracker{
		window: window,
		series: make(map[string]*momentumSeries),
	}
}

// Observe appends a sample and trims anything older than the lookback.
func (m *MomentumTracker) Observe(s signal.Sample) {
	asset := strings.TrimSpace(s.Asset)
	if asset == "" || !s.Price.IsPositive() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	series := m.series[asset]
	if series == nil {
		series = &momentumSeries{}
		m.series[asset] = series
	}
	series.append(s, m.window)
}

// Change returns (newest-oldest)/oldest over the lookback. ok is false until two
// samples are present.
func (m *MomentumTracker) Change(asset string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	series := m.series[strings.TrimSpace(asset)]
	if series == nil || len(series.samples) < 2 {
		return decimal.Zero, false
	}
	oldest, newest := series.samples[0], series.samples[len(series.samples)-1]
	return newest.Price.Sub(oldest.Price).Div(oldest.Price), true
}

// Confirms reports whether the rolling momentum agrees with dir by at least min.
// A non-positive min disables the check.
func (m *MomentumTracker) Confirms(asset string, dir signal.Direction, min decimal.Decimal) bool {
	if !min.IsPositive() {
		return true
	}
	change, ok := m.Change(asset)
	if !ok || change.Abs().LessThan(min) {
		return false
	}
	if dir == signal.Up {
		return change.IsPositive()
	}
	return change.IsNegative()
}

func (s *momentumSeries) append(sample signal.Sample, window time.Duration) {
	s.samples = append(s.samples, sample)
	cutoff := sample.Ts.Add(-window)
	idx := 0
	for i, existing := range s.samples {
		if existing.Ts.After(cutoff) {
			idx = i
			break
		}
		idx = i + 1
	}
	if idx > 0 && idx <= len(s.samples) {
		s.samples = s.samples[idx:]
	}
}
