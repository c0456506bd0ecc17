package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/ledger"
)

func TestComputePositionsFromIncrementalAvg(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "SPY", Side: "BUY", FillQty: 1, AvgPx: 100.0, EventTS: ts},
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "SPY", Side: "BUY", FillQty: 1, AvgPx: 101.0, EventTS: ts.Add(time.Second)},
		{Kind: ledger.KindFill, Tag: "t2", Symbol: "SPY", Side: "SELL", FillQty: 1, AvgPx: 101.5, EventTS: ts.Add(2 * time.Second)},
	}
	snaps := ComputePositions(entries)
	s, ok := snaps["SPY"]
	require.True(t, ok)

	assert.InDelta(t, 1.0, s.Qty, 1e-9)
	assert.InDelta(t, 101.0, s.AvgCost, 1e-6)
	assert.Greater(t, s.RealizedPnl, 0.0)
}

func TestComputePositionsSellNeverOpensShort(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{Kind: ledger.KindFill, Tag: "t1", Symbol: "AAPL", Side: "BUY", FillQty: 2, AvgPx: 10.0, EventTS: ts},
		{Kind: ledger.KindFill, Tag: "t2", Symbol: "AAPL", Side: "SELL", FillQty: 5, AvgPx: 12.0, EventTS: ts.Add(time.Second)},
	}
	snaps := ComputePositions(entries)
	s := snaps["AAPL"]
	assert.Equal(t, 0.0, s.Qty, "sell quantity beyond the long is clamped, never goes negative")
}
