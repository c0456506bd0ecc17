package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, "./data", cfg.DataRoot)
	assert.Equal(t, []string{"SPY"}, cfg.Whitelist)
	assert.Equal(t, 0.3, cfg.MinThresholdBps)
}

func TestFromEnvReadsOverrides(t *testing.T) {
	os.Setenv("SYMBOL_WHITELIST", "SPY, QQQ ,IWM")
	t.Cleanup(func() { os.Unsetenv("SYMBOL_WHITELIST") })

	cfg := FromEnv()
	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, cfg.Whitelist)
	assert.True(t, cfg.WhitelistSet()["QQQ"])
}
