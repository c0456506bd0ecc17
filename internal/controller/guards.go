// Package controller implements the guarded, rate-limited parameter
// application loop: three independent guards combine into a freeze flag,
// and the most recent proposal within a lookback window is clamped,
// delta-capped, and applied only when not frozen.
package controller

import (
	"time"

	"github.com/chidi150c/tradingstack/internal/accounting"
	"github.com/chidi150c/tradingstack/internal/marketdata"
)

// FeedHealthOK implements the first guard: either the newest bar is no
// more than 60s old and the last minute's coverage is at least 50%, or the
// latest trade is no more than 10s old with at least 20 trades in the last
// minute.
func FeedHealthOK(bars []marketdata.Bar1s, trades []marketdata.MarketTrade, now time.Time) bool {
	if barsHealthy(bars, now) {
		return true
	}
	return tradesHealthy(trades, now)
}

func barsHealthy(bars []marketdata.Bar1s, now time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	newest := bars[0].TS
	for _, b := range bars {
		if b.TS.After(newest) {
			newest = b.TS
		}
	}
	if now.Sub(newest) > 60*time.Second {
		return false
	}
	cutoff := now.Add(-time.Minute)
	seconds := make(map[int64]bool)
	for _, b := range bars {
		if !b.TS.Before(cutoff) {
			seconds[b.TS.Unix()] = true
		}
	}
	return float64(len(seconds)) >= 30 // >= 50% of 60 seconds
}

func tradesHealthy(trades []marketdata.MarketTrade, now time.Time) bool {
	if len(trades) == 0 {
		return false
	}
	newest := trades[0].TS
	count := 0
	cutoff := now.Add(-time.Minute)
	for _, tr := range trades {
		if tr.TS.After(newest) {
			newest = tr.TS
		}
		if !tr.TS.Before(cutoff) {
			count++
		}
	}
	if now.Sub(newest) > 10*time.Second {
		return false
	}
	return count >= 20
}

// NotFrozenOnDrawdown implements the second guard: drawdown over the last
// 30 minutes must be better (less negative) than -0.5% of equity. Fewer
// than 10 realized points is treated as neutral-true (not frozen).
func NotFrozenOnDrawdown(points []accounting.RealizedPoint, equityUSD float64, now time.Time) bool {
	if len(points) < 10 {
		return true
	}
	dd := accounting.DrawdownPctLastWindow(points, equityUSD, 30*time.Minute, now)
	return dd > -0.5
}

// AcceptanceRateOK implements the third guard: applied-with-nonzero-delta
// in the last 15 minutes divided by proposals seen in the last 15 minutes
// must be <= 0.30. No proposals seen is treated as true (not a brake).
func AcceptanceRateOK(appliedNonZero, proposalsSeen int) bool {
	if proposalsSeen == 0 {
		return true
	}
	rate := float64(appliedNonZero) / float64(proposalsSeen)
	return rate <= 0.30
}

// CombinedFreeze returns true (freeze) unless every guard passes.
func CombinedFreeze(feedHealthy, notFrozen, acceptanceOK bool) bool {
	return !(feedHealthy && notFrozen && acceptanceOK)
}
