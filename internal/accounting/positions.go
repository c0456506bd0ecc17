package accounting

import (
	"sort"

	"github.com/chidi150c/tradingstack/internal/ledger"
)

// PositionSnapshot is the simpler, non-signed end-of-day position view: a
// SELL only ever reduces a long down to flat (it never opens a short), and
// a BUY always extends the long. It is distinct from the signed-position
// series in realized.go, which the controller's drawdown guard needs.
type PositionSnapshot struct {
	Symbol      string
	Qty         float64
	AvgCost     float64
	RealizedPnl float64
}

// ComputePositions folds every FILL entry into a per-symbol snapshot, in
// (tag, event_ts) order to keep per-tag fill-price recovery correct.
func ComputePositions(entries []ledger.Entry) map[string]*PositionSnapshot {
	type fill struct {
		tag, symbol, side string
		qty, avgPx        float64
		eventTS           int64
	}
	var fills []fill
	for _, e := range entries {
		if e.Kind != ledger.KindFill || e.FillQty <= 0 || e.AvgPx <= 0 {
			continue
		}
		fills = append(fills, fill{
			tag: e.Tag, symbol: e.Symbol, side: e.Side,
			qty: e.FillQty, avgPx: e.AvgPx, eventTS: e.EventTS.UnixNano(),
		})
	}
	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].tag != fills[j].tag {
			return fills[i].tag < fills[j].tag
		}
		return fills[i].eventTS < fills[j].eventTS
	})

	type tagState struct{ qPrev, aPrev float64 }
	perTag := make(map[string]*tagState)
	snaps := make(map[string]*PositionSnapshot)

	for _, f := range fills {
		st, ok := perTag[f.tag]
		if !ok {
			st = &tagState{}
			perTag[f.tag] = st
		}
		qNew := st.qPrev + f.qty
		var px float64
		if st.qPrev == 0 {
			px = f.avgPx
		} else {
			px = (f.avgPx*qNew - st.aPrev*st.qPrev) / f.qty
		}
		st.qPrev, st.aPrev = qNew, f.avgPx

		pos, ok := snaps[f.symbol]
		if !ok {
			pos = &PositionSnapshot{Symbol: f.symbol}
			snaps[f.symbol] = pos
		}
		switch f.side {
		case "BUY":
			newQty := pos.Qty + f.qty
			denom := newQty
			if denom < 1e-9 {
				denom = 1e-9
			}
			pos.AvgCost = (pos.AvgCost*pos.Qty + px*f.qty) / denom
			pos.Qty = newQty
		case "SELL":
			sellQty := minFloat(f.qty, pos.Qty)
			pos.RealizedPnl += (px - pos.AvgCost) * sellQty
			pos.Qty -= sellQty
			if pos.Qty == 0 {
				pos.AvgCost = 0
			}
		}
	}
	return snaps
}
