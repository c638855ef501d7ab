// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the agent configuration. Every strategy variant is a
// permutation of these parameters - the engine itself never changes.
type Config struct {
	DataDir      string // base directory for the journal and snapshots
	LogLevel     string
	DevMode      bool
	Seed         int64  // random source seed; 0 means non-reproducible
	ReplayFile   string // CSV tick file for offline runs; empty disables replay
	SnapshotCron string // cron spec for periodic state snapshots

	// Account
	InitialBalance float64

	// Windowing
	WindowSize int // rolling window length (14-300 across variants)
	RSIPeriod  int
	ERLookback int
	BollingerK float64

	// Entry predicates
	ZScoreEntry      float64
	RSIMax           float64
	EfficiencyMax    float64
	MinCoefVariation float64
	SlopeFilter      string
	RequireTickUp    bool
	Shuffle          bool
	BoostRelax       float64

	// Risk policy selection
	Policy string // "bracket" or "averaging"

	// BracketPolicy
	StopLossPct   float64
	TakeProfitPct float64
	TrailingPct   float64
	MaxHoldTicks  int
	VolScaled     bool
	VolMultiplier float64

	// AveragingPolicy
	MinProfitFloor  float64
	ProfitDecay     float64
	MinProfitFinal  float64
	AddDrawdownStep float64
	MaxDCALevels    int

	// Sizing
	Sizer          string // "fixed_usd", "percent_balance", "vol_inverse", "geometric"
	FixedUSD       float64
	PercentBalance float64
	RiskBudget     float64
	MaxNotional    float64
	GeoBase        float64
	GeoMultiplier  float64

	// Limits
	MaxConcurrent           int
	CooldownTicks           int
	MaxSymbolExposurePct    float64
	MaxPortfolioExposurePct float64
	BoostSizingMultiplier   float64

	// Reflection cut points
	ExcellentPct float64
	AveragePct   float64
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("AGENT_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		Seed:         int64(getEnvAsInt("AGENT_SEED", 0)),
		ReplayFile:   getEnv("REPLAY_FILE", ""),
		SnapshotCron: getEnv("SNAPSHOT_CRON", "@every 5m"),

		InitialBalance: getEnvAsFloat("INITIAL_BALANCE", 1000),

		WindowSize: getEnvAsInt("WINDOW_SIZE", 20),
		RSIPeriod:  getEnvAsInt("RSI_PERIOD", 14),
		ERLookback: getEnvAsInt("ER_LOOKBACK", 10),
		BollingerK: getEnvAsFloat("BOLLINGER_K", 2.0),

		ZScoreEntry:      getEnvAsFloat("ZSCORE_ENTRY", -2.0),
		RSIMax:           getEnvAsFloat("RSI_MAX", 35),
		EfficiencyMax:    getEnvAsFloat("EFFICIENCY_MAX", 0.4),
		MinCoefVariation: getEnvAsFloat("MIN_COEF_VARIATION", 0.001),
		SlopeFilter:      getEnv("SLOPE_FILTER", ""),
		RequireTickUp:    getEnvAsBool("REQUIRE_TICK_UP", false),
		Shuffle:          getEnvAsBool("SHUFFLE_SCAN", true),
		BoostRelax:       getEnvAsFloat("BOOST_RELAX", 0.2),

		Policy: getEnv("RISK_POLICY", "bracket"),

		StopLossPct:   getEnvAsFloat("STOP_LOSS_PCT", 0.05),
		TakeProfitPct: getEnvAsFloat("TAKE_PROFIT_PCT", 0.10),
		TrailingPct:   getEnvAsFloat("TRAILING_PCT", 0),
		MaxHoldTicks:  getEnvAsInt("MAX_HOLD_TICKS", 0),
		VolScaled:     getEnvAsBool("VOL_SCALED", false),
		VolMultiplier: getEnvAsFloat("VOL_MULTIPLIER", 2.0),

		MinProfitFloor:  getEnvAsFloat("MIN_PROFIT_FLOOR", 0.03),
		ProfitDecay:     getEnvAsFloat("PROFIT_DECAY", 0),
		MinProfitFinal:  getEnvAsFloat("MIN_PROFIT_FINAL", 0.002),
		AddDrawdownStep: getEnvAsFloat("ADD_DRAWDOWN_STEP", 0.05),
		MaxDCALevels:    getEnvAsInt("MAX_DCA_LEVELS", 3),

		Sizer:          getEnv("SIZER", "percent_balance"),
		FixedUSD:       getEnvAsFloat("FIXED_USD", 100),
		PercentBalance: getEnvAsFloat("PERCENT_BALANCE", 0.10),
		RiskBudget:     getEnvAsFloat("RISK_BUDGET", 10),
		MaxNotional:    getEnvAsFloat("MAX_NOTIONAL", 250),
		GeoBase:        getEnvAsFloat("GEO_BASE", 50),
		GeoMultiplier:  getEnvAsFloat("GEO_MULTIPLIER", 1.5),

		MaxConcurrent:           getEnvAsInt("MAX_CONCURRENT", 3),
		CooldownTicks:           getEnvAsInt("COOLDOWN_TICKS", 10),
		MaxSymbolExposurePct:    getEnvAsFloat("MAX_SYMBOL_EXPOSURE_PCT", 0.25),
		MaxPortfolioExposurePct: getEnvAsFloat("MAX_PORTFOLIO_EXPOSURE_PCT", 0.90),
		BoostSizingMultiplier:   getEnvAsFloat("BOOST_SIZING_MULTIPLIER", 1.25),

		ExcellentPct: getEnvAsFloat("REFLECT_EXCELLENT_PCT", 0.10),
		AveragePct:   getEnvAsFloat("REFLECT_AVERAGE_PCT", 0.50),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks parameter consistency.
func (c *Config) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("WINDOW_SIZE must be at least 2, got %d", c.WindowSize)
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("INITIAL_BALANCE must be positive, got %.2f", c.InitialBalance)
	}
	if c.Policy != "bracket" && c.Policy != "averaging" {
		return fmt.Errorf("RISK_POLICY must be \"bracket\" or \"averaging\", got %q", c.Policy)
	}
	switch c.Sizer {
	case "fixed_usd", "percent_balance", "vol_inverse", "geometric":
	default:
		return fmt.Errorf("unknown SIZER %q", c.Sizer)
	}
	if c.GeoMultiplier < 1 {
		return fmt.Errorf("GEO_MULTIPLIER must be >= 1, got %.2f", c.GeoMultiplier)
	}
	if c.MaxSymbolExposurePct <= 0 || c.MaxSymbolExposurePct > 1 {
		return fmt.Errorf("MAX_SYMBOL_EXPOSURE_PCT must be in (0, 1], got %.2f", c.MaxSymbolExposurePct)
	}
	if c.MaxPortfolioExposurePct <= 0 || c.MaxPortfolioExposurePct > 1 {
		return fmt.Errorf("MAX_PORTFOLIO_EXPOSURE_PCT must be in (0, 1], got %.2f", c.MaxPortfolioExposurePct)
	}
	if c.ExcellentPct <= 0 || c.AveragePct <= c.ExcellentPct || c.AveragePct >= 1 {
		return fmt.Errorf("reflection cut points must satisfy 0 < excellent < average < 1, got %.2f / %.2f", c.ExcellentPct, c.AveragePct)
	}
	if c.SlopeFilter != "" && c.SlopeFilter != "positive" && c.SlopeFilter != "negative" {
		return fmt.Errorf("SLOPE_FILTER must be empty, \"positive\" or \"negative\", got %q", c.SlopeFilter)
	}
	return nil
}

// JournalPath is the journal database location under the data directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// SnapshotPath is the state snapshot location under the data directory.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "state.msgpack")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
