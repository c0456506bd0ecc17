package config

import "strings"

// Config holds the knobs shared across the five daemons. Each daemon reads
// only the subset it needs; unused fields for a given daemon are harmless.
type Config struct {
	DataRoot string
	Symbol   string
	Port     int

	// Risk gate
	Whitelist    []string
	MaxNotional  float64
	PriceBandBps float64

	// Queue
	VisibilityTimeoutSec int
	MaxAttempts          int

	// Execution worker
	OrderTTLSec int
	AckTimeoutSec int

	// Strategy
	StrategyWindow int

	// Advisor / controller
	AdvisorIntervalSec    int
	ControllerIntervalSec int
	EquityUSD             float64
	DeltaCapBps           float64
	MinThresholdBps       float64
	MaxThresholdBps       float64
}

// FromEnv reads the process environment and returns a Config with the
// specification's defaults applied for any unset knob.
func FromEnv() Config {
	return Config{
		DataRoot: getEnv("DATA_ROOT", "./data"),
		Symbol:   getEnv("SYMBOL", "SPY"),
		Port:     getEnvInt("PORT", 8080),

		Whitelist:    splitWhitelist(getEnv("SYMBOL_WHITELIST", "SPY")),
		MaxNotional:  getEnvFloat("MAX_NOTIONAL", 100000),
		PriceBandBps: getEnvFloat("PRICE_BAND_BPS", 50),

		VisibilityTimeoutSec: getEnvInt("VISIBILITY_TIMEOUT_SEC", 10),
		MaxAttempts:          getEnvInt("MAX_ATTEMPTS", 10),

		OrderTTLSec:   getEnvInt("ORDER_TTL_SEC", 30),
		AckTimeoutSec: getEnvInt("ACK_TIMEOUT_SEC", 5),

		StrategyWindow: getEnvInt("STRATEGY_WINDOW", 30),

		AdvisorIntervalSec:    getEnvInt("ADVISOR_INTERVAL_SEC", 5),
		ControllerIntervalSec: getEnvInt("CONTROLLER_INTERVAL_SEC", 5),
		EquityUSD:             getEnvFloat("EQUITY_USD", 30000),
		DeltaCapBps:           getEnvFloat("DELTA_CAP_BPS", 0.2),
		MinThresholdBps:       getEnvFloat("MIN_THRESHOLD_BPS", 0.3),
		MaxThresholdBps:       getEnvFloat("MAX_THRESHOLD_BPS", 3.0),
	}
}

// WhitelistSet returns the Whitelist as a membership set for risk.Config.
func (c Config) WhitelistSet() map[string]bool {
	set := make(map[string]bool, len(c.Whitelist))
	for _, s := range c.Whitelist {
		set[s] = true
	}
	return set
}

func splitWhitelist(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
