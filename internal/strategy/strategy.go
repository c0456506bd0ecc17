// Package strategy defines the external strategy contract engined evaluates
// on every bar, plus a bounded-window mean-reversion baseline implementing
// it. A strategy is a pure function of its bounded internal state and the
// incoming bar: it must not block or allocate unboundedly.
package strategy

import (
	"fmt"

	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/queue"
)

// Strategy evaluates one new bar and returns zero or more order intents.
type Strategy interface {
	OnBar(bar marketdata.Bar1s) []queue.NewOrder
	// SetThresholdBps hot-reloads the deviation threshold engined rereads
	// from runtime params before each decision.
	SetThresholdBps(bps float64)
}

// MeanReversion1S fades deviations of the bar close from a rolling mean of
// the last Window closes, grounded on the original baseline strategy.
type MeanReversion1S struct {
	thresholdBps float64
	window       int
	symbol       string
	buf          []float64
}

// NewMeanReversion1S constructs a baseline strategy for symbol with the
// given initial threshold (basis points) and rolling window length.
func NewMeanReversion1S(symbol string, thresholdBps float64, window int) *MeanReversion1S {
	return &MeanReversion1S{
		thresholdBps: thresholdBps,
		window:       window,
		symbol:       symbol,
	}
}

// SetThresholdBps implements Strategy.
func (m *MeanReversion1S) SetThresholdBps(bps float64) {
	m.thresholdBps = bps
}

// OnBar implements Strategy. Once the rolling window fills, a close more
// than ThresholdBps above the mean emits a fade SELL; below emits a fade
// BUY. Intents carry the strategy's own tag ("mr_short"/"mr_long") so
// engined's deterministic-tag fallback only applies when a strategy leaves
// Tag empty.
func (m *MeanReversion1S) OnBar(bar marketdata.Bar1s) []queue.NewOrder {
	if bar.Symbol != m.symbol {
		return nil
	}
	m.buf = append(m.buf, bar.Close)
	if len(m.buf) > m.window {
		m.buf = m.buf[len(m.buf)-m.window:]
	}
	if len(m.buf) < m.window {
		return nil
	}

	mean, ok := sma(m.buf, m.window)
	if !ok {
		return nil
	}
	devBps := (bar.Close/mean - 1.0) * 1e4

	limit := bar.Close
	switch {
	case devBps > m.thresholdBps:
		return []queue.NewOrder{{
			Symbol: m.symbol, Side: "SELL", Qty: 1, Limit: &limit, Tag: "mr_short", TS: bar.TS,
		}}
	case devBps < -m.thresholdBps:
		return []queue.NewOrder{{
			Symbol: m.symbol, Side: "BUY", Qty: 1, Limit: &limit, Tag: "mr_long", TS: bar.TS,
		}}
	default:
		return nil
	}
}

// DeterministicTag builds the fallback idempotency tag engined uses when a
// strategy-produced order leaves Tag empty: "{ts_utc_basic}_{symbol}_{side}_{qty}".
func DeterministicTag(order queue.NewOrder) string {
	return fmt.Sprintf("%s_%s_%s_%g", order.TS.UTC().Format("20060102T150405"), order.Symbol, order.Side, order.Qty)
}
