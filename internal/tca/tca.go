// Package tca computes transaction cost analysis: implementation shortfall
// in basis points between an order's arrival price and its fill-weighted
// average price.
package tca

// Side is the order side the shortfall sign convention depends on.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TCA holds the inputs for one shortfall computation. Arrival is the close
// of the last bar at or before the originating intent's ts.
type TCA struct {
	Arrival   float64
	FillsWavg float64
	Side      Side
}

// ShortfallBps returns the implementation shortfall in basis points. BUY
// shortfall is positive when the fill price ran up above arrival; SELL
// shortfall is positive when the fill price ran down below arrival. Undefined
// (0) when Arrival <= 0.
func (t TCA) ShortfallBps() float64 {
	if t.Arrival <= 0 {
		return 0
	}
	ratio := t.FillsWavg / t.Arrival
	if t.Side == SideSell {
		return (1 - ratio) * 1e4
	}
	return (ratio - 1) * 1e4
}
