package controller

import (
	"time"

	"github.com/chidi150c/tradingstack/internal/advisor"
	"github.com/chidi150c/tradingstack/internal/params"
	"github.com/chidi150c/tradingstack/internal/table"
)

// AppliedDecision is one row of the per-day applied-decisions table,
// written on every controller tick regardless of whether the proposal was
// actually applied — a no-op row still advances "seen" bookkeeping so the
// acceptance-rate guard stays accurate.
type AppliedDecision struct {
	TS                   time.Time `json:"ts"`
	Symbol               string    `json:"symbol"`
	AcceptedThresholdBps float64   `json:"accepted_threshold_bps"`
	DeltaBps             float64   `json:"delta_bps"`
	Seen                 int       `json:"seen"`
	Freeze               bool      `json:"freeze"`
}

// AppliedTable is the day-partitioned store at controller/{YYYY-MM-DD}/applied_{symbol}.tbl.
type AppliedTable struct {
	root string
}

// OpenAppliedTable returns a handle rooted at root.
func OpenAppliedTable(root string) *AppliedTable {
	return &AppliedTable{root: root}
}

func (a *AppliedTable) pathForDay(day time.Time, symbol string) string {
	return a.root + "/" + day.UTC().Format("2006-01-02") + "/applied_" + symbol + ".tbl"
}

// Append records one decision row.
func (a *AppliedTable) Append(d AppliedDecision) error {
	tbl := table.Open[AppliedDecision](a.pathForDay(d.TS, d.Symbol))
	return tbl.Append([]AppliedDecision{d})
}

// ReadDay returns every decision recorded for symbol on the given UTC day.
func (a *AppliedTable) ReadDay(day time.Time, symbol string) ([]AppliedDecision, error) {
	tbl := table.Open[AppliedDecision](a.pathForDay(day, symbol))
	return tbl.ReadAll()
}

const (
	minBps        = 0.3
	maxBps        = 3.0
	deltaCapBps   = 0.2
)

// Apply runs one controller tick: given the current params, the most
// recent proposal within the lookback window (nil if none), the guard
// inputs already evaluated by the caller, and how many proposals were seen
// in the acceptance-rate window, it returns the
// updated params (unchanged if not applied) and the decision row to
// record. now is passed in rather than read from the clock so the
// decision is reproducible in tests.
func Apply(
	current params.RuntimeParams,
	latest *advisor.Proposal,
	freeze bool,
	seenInWindow int,
	now time.Time,
) (params.RuntimeParams, AppliedDecision) {
	if latest == nil {
		return current, AppliedDecision{
			TS: now, Symbol: current.Symbol, AcceptedThresholdBps: current.SignalThresholdBps,
			DeltaBps: 0, Seen: 0, Freeze: freeze,
		}
	}

	proposed := clampBps(latest.SignalThresholdBps, minBps, maxBps)
	delta := proposed - current.SignalThresholdBps
	if abs(delta) > deltaCapBps {
		if delta > 0 {
			delta = deltaCapBps
		} else {
			delta = -deltaCapBps
		}
		proposed = current.SignalThresholdBps + delta
	}

	if !freeze && abs(delta) > 0 {
		updated := current
		updated.SignalThresholdBps = round3(proposed)
		return updated, AppliedDecision{
			TS: now, Symbol: current.Symbol, AcceptedThresholdBps: updated.SignalThresholdBps,
			DeltaBps: round3(delta), Seen: seenInWindow, Freeze: false,
		}
	}

	return current, AppliedDecision{
		TS: now, Symbol: current.Symbol, AcceptedThresholdBps: current.SignalThresholdBps,
		DeltaBps: 0, Seen: seenInWindow, Freeze: freeze,
	}
}

func clampBps(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round3(v float64) float64 {
	const p = 1000.0
	r := v * p
	if r < 0 {
		return float64(int64(r-0.5)) / p
	}
	return float64(int64(r+0.5)) / p
}
