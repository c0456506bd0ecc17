package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/queue"
)

func baseConfig() Config {
	return Config{
		Whitelist:    map[string]bool{"SPY": true},
		MaxNotional:  100000,
		PriceBandBps: 50,
	}
}

func limitPtr(v float64) *float64 { return &v }

func TestEvaluatePasses(t *testing.T) {
	order := queue.NewOrder{Symbol: "SPY", Side: "BUY", Qty: 10}
	res := Evaluate(order, 500.0, baseConfig())
	assert.True(t, res.OK)
	assert.Empty(t, res.Reason)
}

func TestEvaluateKillSwitchShortCircuits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "KILL")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	cfg := baseConfig()
	cfg.KillSwitchPath = path
	order := queue.NewOrder{Symbol: "SPY", Side: "BUY", Qty: 10}
	res := Evaluate(order, 500.0, cfg)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "killswitch")
}

func TestEvaluateSymbolNotWhitelisted(t *testing.T) {
	order := queue.NewOrder{Symbol: "TSLA", Side: "BUY", Qty: 10}
	res := Evaluate(order, 500.0, baseConfig())
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "whitelist")
}

func TestEvaluateMaxNotionalExceeded(t *testing.T) {
	order := queue.NewOrder{Symbol: "SPY", Side: "BUY", Qty: 1000}
	res := Evaluate(order, 500.0, baseConfig())
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "max_notional")
}

func TestEvaluatePriceBandViolation(t *testing.T) {
	order := queue.NewOrder{Symbol: "SPY", Side: "BUY", Qty: 10, Limit: limitPtr(520.0)}
	res := Evaluate(order, 500.0, baseConfig())
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "price band")
}

func TestEvaluatePriceBandWithinBound(t *testing.T) {
	order := queue.NewOrder{Symbol: "SPY", Side: "BUY", Qty: 10, Limit: limitPtr(501.0)}
	res := Evaluate(order, 500.0, baseConfig())
	assert.True(t, res.OK)
}
