// Package risk implements the pretrade risk gate: a synchronous predicate
// over a candidate order, the last traded price, and the active risk
// configuration. Checks run in a fixed order and short-circuit on the first
// failure, matching the original risk/gate.py ordering.
package risk

import (
	"fmt"
	"os"

	"github.com/chidi150c/tradingstack/internal/queue"
)

// Config holds the risk limits in force for a symbol at evaluation time.
// MaxNotional is applied exactly as given: neither the gate nor its callers
// scale it by the runtime risk multiplier.
type Config struct {
	KillSwitchPath string
	Whitelist      map[string]bool
	MaxNotional    float64
	PriceBandBps   float64
}

// Result is the gate's verdict. Reason is empty when OK is true.
type Result struct {
	OK     bool
	Reason string
}

func pass() Result { return Result{OK: true} }

func fail(format string, args ...any) Result {
	return Result{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate runs the four ordered checks from the specification's risk gate:
// kill switch, symbol whitelist, max notional, and limit price band. lastPx
// is the most recent traded price for order.Symbol; zero or negative means
// "unknown" and causes notional/band checks to use order.Limit alone where
// possible, failing safe (reject) when neither is available.
func Evaluate(order queue.NewOrder, lastPx float64, cfg Config) Result {
	if killSwitchActive(cfg.KillSwitchPath) {
		return fail("killswitch active")
	}
	if !cfg.Whitelist[order.Symbol] {
		return fail("symbol not in whitelist: %s", order.Symbol)
	}

	refPx := lastPx
	if order.Limit != nil {
		refPx = *order.Limit
	}
	if refPx <= 0 {
		return fail("no reference price for %s (last=%.4f)", order.Symbol, lastPx)
	}
	notional := refPx * order.Qty
	if notional > cfg.MaxNotional {
		return fail("notional %.2f exceeds max_notional %.2f", notional, cfg.MaxNotional)
	}

	if order.Limit != nil && lastPx > 0 {
		band := lastPx * cfg.PriceBandBps / 10000
		diff := *order.Limit - lastPx
		if diff < 0 {
			diff = -diff
		}
		if diff > band {
			return fail("limit %.4f outside price band (last=%.4f, band=%.4f)", *order.Limit, lastPx, band)
		}
	}

	return pass()
}

// killSwitchActive reports whether the kill-switch sentinel file exists.
// Any stat error other than not-exist is treated as "active" — fail safe.
func killSwitchActive(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	return !os.IsNotExist(err)
}
