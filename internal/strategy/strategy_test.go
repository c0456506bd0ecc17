package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/queue"
)

func bar(ts time.Time, close float64) marketdata.Bar1s {
	return marketdata.Bar1s{TS: ts, Symbol: "SPY", Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestMeanReversionNoSignalBeforeWindowFills(t *testing.T) {
	s := NewMeanReversion1S("SPY", 0.5, 3)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, s.OnBar(bar(ts, 100)))
	assert.Empty(t, s.OnBar(bar(ts.Add(time.Second), 100)))
}

func TestMeanReversionEmitsFadeSignals(t *testing.T) {
	s := NewMeanReversion1S("SPY", 0.5, 3)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.OnBar(bar(ts, 100))
	s.OnBar(bar(ts.Add(time.Second), 100))
	orders := s.OnBar(bar(ts.Add(2*time.Second), 100.2))
	require.Len(t, orders, 1)
	assert.Equal(t, "SELL", orders[0].Side)
	assert.Equal(t, "mr_short", orders[0].Tag)
}

func TestMeanReversionHotReloadThreshold(t *testing.T) {
	s := NewMeanReversion1S("SPY", 5.0, 3)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.OnBar(bar(ts, 100))
	s.OnBar(bar(ts.Add(time.Second), 100))
	assert.Empty(t, s.OnBar(bar(ts.Add(2*time.Second), 100.2)), "deviation under the wide threshold emits nothing")

	s.SetThresholdBps(0.1)
	orders := s.OnBar(bar(ts.Add(3*time.Second), 100.3))
	assert.NotEmpty(t, orders, "after narrowing the threshold the same-size deviation now fires")
}

func TestDeterministicTagFormat(t *testing.T) {
	ts := time.Date(2025, 3, 4, 9, 31, 2, 0, time.UTC)
	limit := 100.0
	order := queue.NewOrder{TS: ts, Symbol: "SPY", Side: "BUY", Qty: 3, Limit: &limit}
	tag := DeterministicTag(order)
	assert.Equal(t, "20250304T093102_SPY_BUY_3", tag)
}
