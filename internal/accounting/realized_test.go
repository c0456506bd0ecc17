package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/ledger"
)

func TestRealizedPnlTimeseriesBuyThenSell(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "SPY", Side: "BUY", FillQty: 10, AvgPx: 100.0, EventTS: ts},
		{Kind: ledger.KindFill, Tag: "t2", Symbol: "SPY", Side: "SELL", FillQty: 10, AvgPx: 105.0, EventTS: ts.Add(time.Minute)},
	}
	points := RealizedPnlTimeseries(entries, "SPY")
	require.Len(t, points, 2)

	assert.Equal(t, 0.0, points[0].RealizedPnlDelta, "opening buy realizes nothing")
	assert.InDelta(t, 50.0, points[1].RealizedPnlDelta, 1e-9)
	assert.InDelta(t, 50.0, points[1].RealizedPnlCum, 1e-9)
	assert.Equal(t, 0.0, points[1].PositionQty)
}

func TestRealizedPnlTimeseriesBuyIntoShort(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "SPY", Side: "SELL", FillQty: 10, AvgPx: 100.0, EventTS: ts},
		{Kind: ledger.KindFill, Tag: "t2", Symbol: "SPY", Side: "BUY", FillQty: 15, AvgPx: 95.0, EventTS: ts.Add(time.Minute)},
	}
	points := RealizedPnlTimeseries(entries, "SPY")
	require.Len(t, points, 2)

	// Covering 10 short shares at a 5-point gain each: (100-95)*10 = 50.
	assert.InDelta(t, 50.0, points[1].RealizedPnlDelta, 1e-9)
	// Residual 5 shares open a new long at 95.
	assert.InDelta(t, 5.0, points[1].PositionQty, 1e-9)
	assert.InDelta(t, 95.0, points[1].AvgCost, 1e-9)
}

func TestRealizedPnlTimeseriesIgnoresOtherSymbols(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "AAPL", Side: "BUY", FillQty: 10, AvgPx: 100.0, EventTS: ts},
	}
	points := RealizedPnlTimeseries(entries, "SPY")
	assert.Empty(t, points)
}

func TestDrawdownPctLastWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	points := []RealizedPoint{
		{EventTS: now.Add(-20 * time.Minute), RealizedPnlCum: 100},
		{EventTS: now.Add(-10 * time.Minute), RealizedPnlCum: 40},
	}
	dd := DrawdownPctLastWindow(points, 1000, 30*time.Minute, now)
	// Peak 100, current 40, drawdown -60 / 1000 * 100 = -6%.
	assert.InDelta(t, -6.0, dd, 1e-9)
}

func TestDrawdownPctLastWindowZeroEquity(t *testing.T) {
	dd := DrawdownPctLastWindow([]RealizedPoint{{RealizedPnlCum: 1}}, 0, time.Minute, time.Now())
	assert.Equal(t, 0.0, dd)
}
