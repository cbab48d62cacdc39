// Package config exposes strongly typed application configuration structs loaded from YAML,
// with secrets and toggles overridable from the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Asset names one traded asset on every upstream.
type Asset struct {
	Symbol     string `yaml:"symbol"`
	Binance    string `yaml:"binance"`
	CoinGecko  string `yaml:"coingecko"`
	SlugPrefix string `yaml:"slug_prefix"`
}

// Exchange selects the spot price source.
type Exchange struct {
	Provider          string  `yaml:"provider"` // stub|binance|binance_ws|coingecko
	BaseURL           string  `yaml:"base_url"`
	CacheTTLMs        int     `yaml:"cache_ttl_ms"`
	StaleAfterSecs    int     `yaml:"stale_after_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Assets            []Asset `yaml:"assets"`
}

// Window holds the evaluator knobs.
type Window struct {
	LengthSecs      int     `yaml:"length_secs"`
	SnipeStartSecs  int     `yaml:"snipe_start_secs"`
	SnipeEndSecs    int     `yaml:"snipe_end_secs"`
	MinMoveFraction float64 `yaml:"min_move_fraction"`
	CooldownSecs    int     `yaml:"cooldown_secs"`
	CooldownScope   string  `yaml:"cooldown_scope"` // global|asset
	RetainBuckets   int     `yaml:"retain_buckets"`
}

// Runner tunes the polling loop.
type Runner struct {
	CheckIntervalSecs   int     `yaml:"check_interval_secs"`
	CaptureSecs         int     `yaml:"capture_secs"`
	FetchTimeoutSecs    int     `yaml:"fetch_timeout_secs"`
	Priority            string  `yaml:"priority"` // first|largest_move
	MinMomentumFraction float64 `yaml:"min_momentum_fraction"`
	MomentumWindowSecs  int     `yaml:"momentum_window_secs"`
}

// Quotes configures the Polymarket odds gate.
type Quotes struct {
	Enabled bool    `yaml:"enabled"`
	BaseURL string  `yaml:"base_url"`
	MinOdds float64 `yaml:"min_odds"`
	MaxOdds float64 `yaml:"max_odds"`
}

// Risk encodes guard-rails on how often and how large the bot may act.
type Risk struct {
	MaxDecisionsPerDay  int     `yaml:"max_decisions_per_day"`
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Execution controls the order-intent executor.
type Execution struct {
	DryRun     bool    `yaml:"dry_run"`
	OrderSize  float64 `yaml:"order_size"`
	LimitPrice float64 `yaml:"limit_price"`
}

// Paper captures the simulated bankroll and journal outputs.
type Paper struct {
	StartingCash      float64 `yaml:"starting_cash"`
	BetSize           float64 `yaml:"bet_size"`
	DefaultEntryPrice float64 `yaml:"default_entry_price"`
	DecisionsPath     string  `yaml:"decisions_path"`
	SettlementsPath   string  `yaml:"settlements_path"`
}

// Wallet identifies the funded Polygon address. It never holds signing material.
type Wallet struct {
	Address string `yaml:"address"`
	RPCURL  string `yaml:"rpc_url"`
}

// Telegram enables chat notifications when both fields are set.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether notifications are configured.
func (t Telegram) Enabled() bool { return strings.TrimSpace(t.Token) != "" && t.ChatID != 0 }

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Exchange  Exchange  `yaml:"exchange"`
	Window    Window    `yaml:"window"`
	Runner    Runner    `yaml:"runner"`
	Quotes    Quotes    `yaml:"quotes"`
	Risk      Risk      `yaml:"risk"`
	Execution Execution `yaml:"execution"`
	Paper     Paper     `yaml:"paper"`
	Wallet    Wallet    `yaml:"wallet"`
	Telegram  Telegram  `yaml:"telegram"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		App: App{Name: "sniperbot", Env: "dev", LogLevel: "info"},
		Exchange: Exchange{
			Provider:          "binance",
			CacheTTLMs:        2000,
			StaleAfterSecs:    10,
			RequestsPerSecond: 5,
			Burst:             5,
			Assets: []Asset{
				{Symbol: "BTC", Binance: "BTCUSDT", CoinGecko: "bitcoin", SlugPrefix: "btc-updown-15m"},
				{Symbol: "ETH", Binance: "ETHUSDT", CoinGecko: "ethereum", SlugPrefix: "eth-updown-15m"},
				{Symbol: "SOL", Binance: "SOLUSDT", CoinGecko: "solana", SlugPrefix: "sol-updown-15m"},
			},
		},
		Window: Window{
			LengthSecs:      900,
			SnipeStartSecs:  90,
			SnipeEndSecs:    15,
			MinMoveFraction: 0.001,
			CooldownSecs:    120,
			CooldownScope:   "global",
			RetainBuckets:   3,
		},
		Runner: Runner{
			CheckIntervalSecs:  5,
			CaptureSecs:        30,
			FetchTimeoutSecs:   5,
			Priority:           "first",
			MomentumWindowSecs: 60,
		},
		Quotes: Quotes{MinOdds: 0.15, MaxOdds: 0.85},
		Risk:   Risk{MaxDecisionsPerDay: 10, MaxNotionalPerTrade: 50},
		Execution: Execution{
			DryRun:     true,
			OrderSize:  5,
			LimitPrice: 0.95,
		},
		Paper: Paper{
			StartingCash:      100,
			BetSize:           1,
			DefaultEntryPrice: 0.5,
			DecisionsPath:     "data/decisions.jsonl",
			SettlementsPath:   "data/settlements.jsonl",
		},
	}
}

// Load reads a YAML file over Defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	config := Defaults()
	if strings.TrimSpace(path) == "" {
		return config, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Exchange.Assets) == 0 {
		errs = append(errs, errors.New("exchange.assets must not be empty"))
	}
	seen := make(map[string]struct{}, len(c.Exchange.Assets))
	for i, a := range c.Exchange.Assets {
		sym := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if sym == "" {
			errs = append(errs, fmt.Errorf("exchange.assets[%d].symbol is empty", i))
			continue
		}
		if _, dup := seen[sym]; dup {
			errs = append(errs, fmt.Errorf("exchange.assets: duplicate symbol %s", sym))
		}
		seen[sym] = struct{}{}
	}
	if _, err := c.StrategyConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.Runner.CheckIntervalSecs <= 0 {
		errs = append(errs, fmt.Errorf("runner.check_interval_secs must be positive, got %d", c.Runner.CheckIntervalSecs))
	}
	if c.Runner.CaptureSecs <= 0 || c.Runner.CaptureSecs >= c.Window.LengthSecs-c.Window.SnipeStartSecs {
		errs = append(errs, fmt.Errorf("runner.capture_secs must be positive and end before the snipe window, got %d", c.Runner.CaptureSecs))
	}
	if c.Runner.FetchTimeoutSecs <= 0 {
		errs = append(errs, fmt.Errorf("runner.fetch_timeout_secs must be positive, got %d", c.Runner.FetchTimeoutSecs))
	}
	switch strings.ToLower(c.Runner.Priority) {
	case "", "first", "largest_move":
	default:
		errs = append(errs, fmt.Errorf("runner.priority must be first or largest_move, got %q", c.Runner.Priority))
	}
	if c.Runner.MinMomentumFraction < 0 {
		errs = append(errs, fmt.Errorf("runner.min_momentum_fraction must not be negative"))
	}
	if c.Quotes.MinOdds < 0 || c.Quotes.MaxOdds > 1 || c.Quotes.MinOdds > c.Quotes.MaxOdds {
		errs = append(errs, fmt.Errorf("quotes odds bounds must satisfy 0 <= min <= max <= 1, got %v..%v", c.Quotes.MinOdds, c.Quotes.MaxOdds))
	}
	if c.Risk.MaxDecisionsPerDay < 0 {
		errs = append(errs, fmt.Errorf("risk.max_decisions_per_day must not be negative"))
	}
	if c.Execution.OrderSize <= 0 {
		errs = append(errs, fmt.Errorf("execution.order_size must be positive, got %v", c.Execution.OrderSize))
	}
	if c.Execution.LimitPrice <= 0 || c.Execution.LimitPrice >= 1 {
		errs = append(errs, fmt.Errorf("execution.limit_price must be inside (0, 1), got %v", c.Execution.LimitPrice))
	}
	if c.Paper.BetSize <= 0 {
		errs = append(errs, fmt.Errorf("paper.bet_size must be positive, got %v", c.Paper.BetSize))
	}
	if c.Paper.DefaultEntryPrice <= 0 || c.Paper.DefaultEntryPrice >= 1 {
		errs = append(errs, fmt.Errorf("paper.default_entry_price must be inside (0, 1), got %v", c.Paper.DefaultEntryPrice))
	}
	return errors.Join(errs...)
}
