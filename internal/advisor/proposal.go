package advisor

import (
	"time"

	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/table"
)

// Proposal is one row of the per-day proposal table: a provider's response
// plus the bookkeeping needed to compute the controller's acceptance rate.
type Proposal struct {
	TS                 time.Time `json:"ts"`
	Symbol             string    `json:"symbol"`
	SignalThresholdBps float64   `json:"signal.threshold_bps"`
	RiskMultiplier     float64   `json:"risk.multiplier"`
	Notes              string    `json:"notes"`
	Provider           string    `json:"provider"`
	CostUSD            float64   `json:"cost_usd"`
}

// ProposalTable is the day-partitioned append-only store at
// advisor/{YYYY-MM-DD}/proposals.tbl.
type ProposalTable struct {
	root string
}

// OpenProposalTable returns a handle rooted at root (e.g. "<DATA_ROOT>/advisor").
func OpenProposalTable(root string) *ProposalTable {
	return &ProposalTable{root: root}
}

func (p *ProposalTable) pathForDay(day time.Time) string {
	return p.root + "/" + day.UTC().Format("2006-01-02") + "/proposals.tbl"
}

// Append records one proposal.
func (p *ProposalTable) Append(proposal Proposal) error {
	tbl := table.Open[Proposal](p.pathForDay(proposal.TS))
	return tbl.Append([]Proposal{proposal})
}

// ReadDay returns every proposal recorded for the given UTC day.
func (p *ProposalTable) ReadDay(day time.Time) ([]Proposal, error) {
	tbl := table.Open[Proposal](p.pathForDay(day))
	return tbl.ReadAll()
}

// MakeProposal windows bars to the last windowSec seconds (by the newest
// bar's timestamp), computes features, and asks provider for a response.
func MakeProposal(symbol string, bars []marketdata.Bar1s, windowSec int, provider Provider) (Proposal, ProviderResponse) {
	windowed := lastWindow(bars, windowSec)
	feats := ComputeFeatures(windowed)
	resp := provider.Propose(feats)
	return Proposal{
		TS:                 time.Now().UTC(),
		Symbol:             symbol,
		SignalThresholdBps: resp.ThresholdBps,
		RiskMultiplier:      resp.RiskMult,
		Notes:              resp.Notes,
		Provider:           provider.Name(),
		CostUSD:            resp.CostUSD,
	}, resp
}

func lastWindow(bars []marketdata.Bar1s, windowSec int) []marketdata.Bar1s {
	if len(bars) == 0 {
		return nil
	}
	cutoff := bars[len(bars)-1].TS.Add(-time.Duration(windowSec) * time.Second)
	var out []marketdata.Bar1s
	for _, b := range bars {
		if b.TS.After(cutoff) {
			out = append(out, b)
		}
	}
	return out
}
