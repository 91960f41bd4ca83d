// Package config loads and validates the YAML configuration for the
// backtesting engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for a backtest run.
type Config struct {
	Logging     Logging     `yaml:"logging"`
	Storage     Storage     `yaml:"storage"`
	Simulation  Simulation  `yaml:"simulation"`
	Constraints Constraints `yaml:"constraints"`
	Providers   Providers   `yaml:"providers"`
	Universe    []string    `yaml:"universe"`
	Variants    []Variant   `yaml:"variants"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Simulation holds the date range, capital, and execution parameters shared
// by every timeframe run.
type Simulation struct {
	StartDate           string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate             string   `yaml:"end_date"`   // YYYY-MM-DD
	InitialCash         float64  `yaml:"initial_cash"`
	Timeframes          []string `yaml:"timeframes"`
	OrderTTLDays        int      `yaml:"order_ttl_days"`
	FeeBps              float64  `yaml:"fee_bps"`
	SlippageBps         float64  `yaml:"slippage_bps"`
	AnnualizationFactor float64  `yaml:"annualization_factor"`
}

// Constraints defines the allocator's global position limits.
type Constraints struct {
	MaxPositionPct      float64 `yaml:"max_position_pct"`
	MaxOpenPositions    int     `yaml:"max_open_positions"`
	MinCashReservePct   float64 `yaml:"min_cash_reserve_pct"`
	MaxTradePctOfVolume float64 `yaml:"max_trade_pct_of_volume"`
}

// Providers holds credentials and tuning for external suggestion providers.
type Providers struct {
	OpenAI OpenAIProvider `yaml:"openai"`
}

// OpenAIProvider configures the AI-backed candidate provider.
type OpenAIProvider struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxStocks       int    `yaml:"max_stocks"`
}

// Variant names one strategy policy under comparison.
type Variant struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"` // top-k, confidence-weighted, equal-weight
	Params map[string]int `yaml:"params"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in values that may be omitted from the file.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if len(cfg.Simulation.Timeframes) == 0 {
		cfg.Simulation.Timeframes = []string{string(domain.TimeframeDaily)}
	}
	if cfg.Simulation.OrderTTLDays == 0 {
		cfg.Simulation.OrderTTLDays = 5
	}
	if cfg.Simulation.AnnualizationFactor == 0 {
		cfg.Simulation.AnnualizationFactor = 252
	}
	if cfg.Providers.OpenAI.Model == "" {
		cfg.Providers.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Providers.OpenAI.TimeoutSeconds == 0 {
		cfg.Providers.OpenAI.TimeoutSeconds = 30
	}
	if cfg.Providers.OpenAI.RateLimitPerMin == 0 {
		cfg.Providers.OpenAI.RateLimitPerMin = 30
	}
	if cfg.Providers.OpenAI.MaxStocks == 0 {
		cfg.Providers.OpenAI.MaxStocks = 10
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Providers.OpenAI.Model = v
	}
	if v := os.Getenv("INITIAL_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulation.InitialCash = f
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks every configuration value the simulation depends on.
// Violations are fatal at run start; the engine never begins a run with an
// invalid configuration.
func (c *Config) Validate() error {
	start, err := c.StartDate()
	if err != nil {
		return &domain.ConfigError{Field: "simulation.start_date", Reason: err.Error()}
	}
	end, err := c.EndDate()
	if err != nil {
		return &domain.ConfigError{Field: "simulation.end_date", Reason: err.Error()}
	}
	if !end.After(start) {
		return &domain.ConfigError{Field: "simulation.end_date", Reason: "must be after start_date"}
	}

	if c.Simulation.InitialCash <= 0 {
		return &domain.ConfigError{Field: "simulation.initial_cash", Reason: "must be > 0"}
	}
	if c.Simulation.OrderTTLDays < 1 {
		return &domain.ConfigError{Field: "simulation.order_ttl_days", Reason: "must be >= 1"}
	}
	if c.Simulation.FeeBps < 0 {
		return &domain.ConfigError{Field: "simulation.fee_bps", Reason: "must be >= 0"}
	}
	if c.Simulation.SlippageBps < 0 {
		return &domain.ConfigError{Field: "simulation.slippage_bps", Reason: "must be >= 0"}
	}
	if c.Simulation.AnnualizationFactor <= 0 {
		return &domain.ConfigError{Field: "simulation.annualization_factor", Reason: "must be > 0"}
	}

	for _, tf := range c.Simulation.Timeframes {
		if !knownTimeframe(tf) {
			return &domain.ConfigError{
				Field:  "simulation.timeframes",
				Reason: fmt.Sprintf("unknown timeframe %q", tf),
			}
		}
	}

	if c.Constraints.MaxPositionPct <= 0 || c.Constraints.MaxPositionPct > 1 {
		return &domain.ConfigError{Field: "constraints.max_position_pct", Reason: "must be in (0, 1]"}
	}
	if c.Constraints.MaxOpenPositions < 1 {
		return &domain.ConfigError{Field: "constraints.max_open_positions", Reason: "must be >= 1"}
	}
	if c.Constraints.MinCashReservePct < 0 || c.Constraints.MinCashReservePct >= 1 {
		return &domain.ConfigError{Field: "constraints.min_cash_reserve_pct", Reason: "must be in [0, 1)"}
	}
	if c.Constraints.MaxTradePctOfVolume < 0 || c.Constraints.MaxTradePctOfVolume > 1 {
		return &domain.ConfigError{Field: "constraints.max_trade_pct_of_volume", Reason: "must be in [0, 1]"}
	}

	if len(c.Universe) == 0 {
		return &domain.ConfigError{Field: "universe", Reason: "at least one symbol is required"}
	}

	if len(c.Variants) == 0 {
		return &domain.ConfigError{Field: "variants", Reason: "at least one variant is required"}
	}
	seen := make(map[string]bool, len(c.Variants))
	for _, v := range c.Variants {
		if v.Name == "" {
			return &domain.ConfigError{Field: "variants", Reason: "variant name must not be empty"}
		}
		if seen[v.Name] {
			return &domain.ConfigError{Field: "variants", Reason: fmt.Sprintf("duplicate variant name %q", v.Name)}
		}
		seen[v.Name] = true
	}

	return nil
}

// StartDate parses the configured start date.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.Simulation.StartDate)
}

// EndDate parses the configured end date.
func (c *Config) EndDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.Simulation.EndDate)
}

// Timeframes returns the configured timeframes as domain values.
func (c *Config) Timeframes() []domain.Timeframe {
	out := make([]domain.Timeframe, 0, len(c.Simulation.Timeframes))
	for _, tf := range c.Simulation.Timeframes {
		out = append(out, domain.Timeframe(tf))
	}
	return out
}

func knownTimeframe(tf string) bool {
	for _, k := range domain.KnownTimeframes {
		if string(k) == tf {
			return true
		}
	}
	return false
}
