// Package accounting reconstructs realized P&L from ledger FILL rows using
// average-cost accounting over signed positions, and separately tracks a
// simpler flat position snapshot for end-of-day reporting. The split
// between realized.go (signed, used for drawdown) and positions.go
// (non-signed, snapshot-only) matches the original module layout.
package accounting

import (
	"sort"
	"time"

	"github.com/chidi150c/tradingstack/internal/ledger"
)

// RealizedPoint is one row of the reconstructed time series.
type RealizedPoint struct {
	EventTS         time.Time
	Symbol          string
	RealizedPnlDelta float64
	RealizedPnlCum  float64
	PositionQty     float64
	AvgCost         float64
}

type fillRecord struct {
	eventTS time.Time
	tag     string
	side    string
	fillQty float64
	avgPx   float64
}

// RealizedPnlTimeseries reconstructs (event_ts, realized_pnl_delta,
// realized_pnl_cum, position_qty, avg_cost) for symbol from the ledger
// entries supplied (typically ledger.ReadDay output, possibly spanning
// several days concatenated by the caller). Entries for other symbols and
// of kinds other than FILL are ignored.
func RealizedPnlTimeseries(entries []ledger.Entry, symbol string) []RealizedPoint {
	var fills []fillRecord
	for _, e := range entries {
		if e.Kind != ledger.KindFill || e.Symbol != symbol {
			continue
		}
		fills = append(fills, fillRecord{
			eventTS: e.EventTS,
			tag:     e.Tag,
			side:    e.Side,
			fillQty: e.FillQty,
			avgPx:   e.AvgPx,
		})
	}
	if len(fills) == 0 {
		return nil
	}

	sort.SliceStable(fills, func(i, j int) bool {
		if !fills[i].eventTS.Equal(fills[j].eventTS) {
			return fills[i].eventTS.Before(fills[j].eventTS)
		}
		return fills[i].tag < fills[j].tag
	})

	type tagState struct {
		qPrev, aPrev float64
	}
	perTag := make(map[string]*tagState)

	fillPx := make([]float64, len(fills))
	for i, f := range fills {
		st, ok := perTag[f.tag]
		if !ok {
			st = &tagState{}
			perTag[f.tag] = st
		}
		qNew := st.qPrev + f.fillQty
		var px float64
		if st.qPrev == 0 {
			px = f.avgPx
		} else {
			px = (f.avgPx*qNew - st.aPrev*st.qPrev) / f.fillQty
		}
		fillPx[i] = px
		st.qPrev, st.aPrev = qNew, f.avgPx
	}

	var (
		posQty      float64
		avgCost     float64
		realizedCum float64
		out         []RealizedPoint
	)
	for i, f := range fills {
		px := fillPx[i]
		q := f.fillQty
		side := f.side
		delta := 0.0

		switch side {
		case "BUY":
			if posQty < 0 {
				matched := minFloat(q, -posQty)
				delta += (avgCost - px) * matched
				posQty += matched
				q -= matched
				if q > 0 {
					avgCost = px
					posQty += q
				}
			} else {
				newQty := posQty + q
				denom := newQty
				if denom == 0 {
					denom = 1.0
				}
				avgCost = (avgCost*posQty + px*q) / denom
				posQty = newQty
			}
		case "SELL":
			if posQty > 0 {
				matched := minFloat(q, posQty)
				delta += (px - avgCost) * matched
				posQty -= matched
				q -= matched
				if q > 0 {
					avgCost = px
					posQty -= q
				}
			} else {
				size := -posQty
				newSize := size + q
				if posQty < 0 {
					denom := newSize
					if denom == 0 {
						denom = 1.0
					}
					avgCost = (avgCost*size + px*q) / denom
				} else {
					avgCost = px
				}
				posQty -= q
			}
		}

		realizedCum += delta
		out = append(out, RealizedPoint{
			EventTS:          f.eventTS,
			Symbol:           symbol,
			RealizedPnlDelta: delta,
			RealizedPnlCum:   realizedCum,
			PositionQty:      posQty,
			AvgCost:          avgCost,
		})
	}
	return out
}

// DrawdownPctLastWindow returns the current drawdown over the last
// window (current realized_pnl_cum minus its peak in the window, as a percent of
// equityUSD, always <= 0), evaluated relative to now. equityUSD <= 0 or an
// empty series both return 0.
func DrawdownPctLastWindow(points []RealizedPoint, equityUSD float64, window time.Duration, now time.Time) float64 {
	if equityUSD <= 0 || len(points) == 0 {
		return 0
	}
	cut := now.Add(-window)
	var windowed []RealizedPoint
	for _, p := range points {
		if !p.EventTS.Before(cut) {
			windowed = append(windowed, p)
		}
	}
	if len(windowed) == 0 {
		return 0
	}
	cur := windowed[len(windowed)-1].RealizedPnlCum
	peak := windowed[0].RealizedPnlCum
	for _, p := range windowed {
		if p.RealizedPnlCum > peak {
			peak = p.RealizedPnlCum
		}
	}
	dd := cur - peak
	return (dd / equityUSD) * 100.0
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
