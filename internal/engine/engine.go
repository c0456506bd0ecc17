// Package engine composes a strategy with the pretrade risk gate: the
// engined daemon's on_bar entrypoint.
package engine

import (
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/queue"
	"github.com/chidi150c/tradingstack/internal/risk"
	"github.com/chidi150c/tradingstack/internal/strategy"
)

// DecisionEngine evaluates the strategy for each bar and filters its
// intents through the risk gate, tracking the last bar close as the risk
// gate's reference price.
type DecisionEngine struct {
	Strategy strategy.Strategy
	Risk     risk.Config
	lastPx   float64
}

// New constructs a DecisionEngine.
func New(strat strategy.Strategy, riskCfg risk.Config) *DecisionEngine {
	return &DecisionEngine{Strategy: strat, Risk: riskCfg}
}

// OnBar implements the engined per-bar decision: update last price, run
// the strategy, then keep only the intents the risk gate accepts.
func (e *DecisionEngine) OnBar(bar marketdata.Bar1s) []queue.NewOrder {
	e.lastPx = bar.Close
	intents := e.Strategy.OnBar(bar)
	var accepted []queue.NewOrder
	for _, order := range intents {
		if res := risk.Evaluate(order, e.lastPx, e.Risk); res.OK {
			accepted = append(accepted, order)
		}
	}
	return accepted
}

// LastPrice returns the most recent bar close seen.
func (e *DecisionEngine) LastPrice() float64 { return e.lastPx }
