// Package advisor computes short-window market features and maps them to
// signal-parameter proposals through a pluggable Provider, mirroring the
// original llm/advisor.py + llm/router.py split.
package advisor

import (
	"math"
	"sort"

	"github.com/chidi150c/tradingstack/internal/marketdata"
)

// Features are the three summary statistics computed over a bar window.
type Features struct {
	RealizedVolBps float64
	SpreadProxyBps float64
	TrendBps       float64
}

// ComputeFeatures derives Features from bars, assumed already sorted
// ascending by TS. An empty slice returns the zero Features.
func ComputeFeatures(bars []marketdata.Bar1s) Features {
	if len(bars) == 0 {
		return Features{}
	}
	var sumSq float64
	n := 0
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		r := (bars[i].Close - prev) / prev
		sumSq += r * r
		n++
	}
	volBps := 0.0
	if n > 0 {
		volBps = math.Sqrt(sumSq/float64(n)) * 1e4
	}

	ranges := make([]float64, len(bars))
	for i, b := range bars {
		closeRef := b.Close
		if closeRef == 0 {
			closeRef = 1.0
		}
		rangeVal := b.High - b.Low
		if rangeVal < 0 {
			rangeVal = 0
		}
		ranges[i] = rangeVal / closeRef * 1e4
	}
	sprBps := median(ranges)

	trendBps := 0.0
	if len(bars) > 1 && bars[0].Close != 0 {
		trendBps = (bars[len(bars)-1].Close/bars[0].Close - 1.0) * 1e4
	}

	return Features{RealizedVolBps: volBps, SpreadProxyBps: sprBps, TrendBps: trendBps}
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
