package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket identifies a fixed-length window: floor(unix seconds / window length).
type Bucket int64

// CooldownScope selects whether one cooldown is shared by every asset or tracked per asset.
type CooldownScope string

const (
	// CooldownGlobal allows one accepted decision per cooldown period across all assets.
	CooldownGlobal CooldownScope = "global"
	// CooldownPerAsset tracks the cooldown independently for each asset.
	CooldownPerAsset CooldownScope = "asset"
)

// Config holds the evaluator knobs.
type Config struct {
	WindowLength     time.Duration
	SnipeWindowStart time.Duration // inclusive upper bound on time remaining
	SnipeWindowEnd   time.Duration // exclusive lower bound on time remaining
	MinMoveFraction  decimal.Decimal
	Cooldown         time.Duration
	CooldownScope    CooldownScope
	RetainBuckets    int
}

// DefaultConfig returns the 15-minute up/down settings.
func DefaultConfig() Config {
	return Config{
		WindowLength:     900 * time.Second,
		SnipeWindowStart: 90 * time.Second,
		SnipeWindowEnd:   15 * time.Second,
		MinMoveFraction:  decimal.RequireFromString("0.001"),
		Cooldown:         120 * time.Second,
		CooldownScope:    CooldownGlobal,
		RetainBuckets:    3,
	}
}

// Validate reports the first inconsistent knob.
func (c Config) Validate() error {
	if c.WindowLength < time.Second || c.WindowLength%time.Second != 0 {
		return fmt.Errorf("window length must be a positive whole number of seconds, got %s", c.WindowLength)
	}
	if c.SnipeWindowEnd < 0 {
		return fmt.Errorf("snipe window end must not be negative, got %s", c.SnipeWindowEnd)
	}
	if c.SnipeWindowStart <= c.SnipeWindowEnd {
		return fmt.Errorf("snipe window start (%s) must be greater than end (%s)", c.SnipeWindowStart, c.SnipeWindowEnd)
	}
	if c.SnipeWindowStart > c.WindowLength {
		return fmt.Errorf("snipe window start (%s) exceeds window length (%s)", c.SnipeWindowStart, c.WindowLength)
	}
	if !c.MinMoveFraction.IsPositive() {
		return fmt.Errorf("min move fraction must be positive, got %s", c.MinMoveFraction)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown)
	}
	if _, err := ParseCooldownScope(string(c.CooldownScope)); err != nil {
		return err
	}
	if c.RetainBuckets < 1 {
		return fmt.Errorf("retain buckets must be at least 1, got %d", c.RetainBuckets)
	}
	return nil
}

// ParseCooldownScope accepts "global", "asset" and a few aliases.
func ParseCooldownScope(raw string) (CooldownScope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "global", "process":
		return CooldownGlobal, nil
	case "asset", "per_asset", "per-asset":
		return CooldownPerAsset, nil
	default:
		return "", fmt.Errorf("unknown cooldown scope %q", raw)
	}
}

// Window describes where an instant falls inside its bucket.
type Window struct {
	Bucket    Bucket
	Start     time.Time
	End       time.Time
	Elapsed   time.Duration
	Remaining time.Duration
}

// WindowAt places now inside a bucket of the given length. Pure function of its inputs.
func WindowAt(now time.Time, length time.Duration) Window {
	secs := int64(length / time.Second)
	if secs <= 0 {
		secs = 1
	}
	unix := now.Unix()
	b := unix / secs
	if unix%secs < 0 {
		b--
	}
	start := time.Unix(b*secs, 0).In(now.Location())
	elapsed := now.Sub(start)
	return Window{
		Bucket:    Bucket(b),
		Start:     start,
		End:       start.Add(time.Duration(secs) * time.Second),
		Elapsed:   elapsed,
		Remaining: time.Duration(secs)*time.Second - elapsed,
	}
}

// InSnipeWindow reports whether remaining falls inside (end, start].
func (c Config) InSnipeWindow(remaining time.Duration) bool {
	return remaining > c.SnipeWindowEnd && remaining <= c.SnipeWindowStart
}
