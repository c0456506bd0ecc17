package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/accounting"
	"github.com/chidi150c/tradingstack/internal/advisor"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/params"
)

func TestFeedHealthOKFromBars(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var bars []marketdata.Bar1s
	for i := 0; i < 40; i++ {
		bars = append(bars, marketdata.Bar1s{TS: now.Add(time.Duration(-i) * time.Second), Symbol: "SPY"})
	}
	assert.True(t, FeedHealthOK(bars, nil, now))
}

func TestFeedHealthFailsOnStaleBars(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	bars := []marketdata.Bar1s{{TS: now.Add(-5 * time.Minute), Symbol: "SPY"}}
	assert.False(t, FeedHealthOK(bars, nil, now))
}

func TestNotFrozenOnDrawdownNeutralWithFewPoints(t *testing.T) {
	assert.True(t, NotFrozenOnDrawdown(nil, 1000, time.Now()))
}

func TestNotFrozenOnDrawdownTripsBelowThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	var points []accounting.RealizedPoint
	for i := 0; i < 12; i++ {
		points = append(points, accounting.RealizedPoint{EventTS: now.Add(time.Duration(i-11) * time.Minute), RealizedPnlCum: 100 - float64(i)*5})
	}
	assert.False(t, NotFrozenOnDrawdown(points, 1000, now))
}

func TestAcceptanceRateOKNoProposals(t *testing.T) {
	assert.True(t, AcceptanceRateOK(0, 0))
}

func TestAcceptanceRateTripsAboveThreshold(t *testing.T) {
	assert.False(t, AcceptanceRateOK(5, 10))
	assert.True(t, AcceptanceRateOK(2, 10))
}

func TestApplyClampsAndCapsDelta(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	current := params.RuntimeParams{Symbol: "SPY", SignalThresholdBps: 1.0}
	latest := &advisor.Proposal{Symbol: "SPY", SignalThresholdBps: 5.0} // above max, above delta cap

	updated, decision := Apply(current, latest, false, 3, now)
	assert.InDelta(t, 1.2, updated.SignalThresholdBps, 1e-9, "delta cap of 0.2 limits the move even though 5.0 clamps to 3.0")
	assert.InDelta(t, 0.2, decision.DeltaBps, 1e-9)
	assert.False(t, decision.Freeze)
}

func TestApplyNoOpWhenFrozen(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	current := params.RuntimeParams{Symbol: "SPY", SignalThresholdBps: 1.0}
	latest := &advisor.Proposal{Symbol: "SPY", SignalThresholdBps: 1.1}

	updated, decision := Apply(current, latest, true, 3, now)
	assert.Equal(t, current.SignalThresholdBps, updated.SignalThresholdBps)
	assert.Equal(t, 0.0, decision.DeltaBps)
	assert.True(t, decision.Freeze)
}

func TestAppliedTableRoundTrip(t *testing.T) {
	tbl := OpenAppliedTable(t.TempDir())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.Append(AppliedDecision{TS: now, Symbol: "SPY", DeltaBps: 0.1}))
	rows, err := tbl.ReadDay(now, "SPY")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
