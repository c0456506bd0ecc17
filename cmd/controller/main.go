// Command controller evaluates the three adaptive-parameter guards every
// tick, combines them into a freeze flag, and applies the most recent
// advisor proposal within the lookback window to the runtime parameter
// file — clamped and delta-capped, and a no-op when frozen.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chidi150c/tradingstack/internal/accounting"
	"github.com/chidi150c/tradingstack/internal/advisor"
	"github.com/chidi150c/tradingstack/internal/config"
	"github.com/chidi150c/tradingstack/internal/controller"
	"github.com/chidi150c/tradingstack/internal/ledger"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/metrics"
	"github.com/chidi150c/tradingstack/internal/ops"
	"github.com/chidi150c/tradingstack/internal/params"
	"github.com/chidi150c/tradingstack/internal/table"
)

const acceptanceLookback = 15 * time.Minute

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "controller"})
	cfg := config.FromEnv()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok\n")) })
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		logger.Info("serving metrics", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps := dependencies{
		proposals: advisor.OpenProposalTable(filepath.Join(cfg.DataRoot, "advisor")),
		applied:   controller.OpenAppliedTable(filepath.Join(cfg.DataRoot, "controller")),
		led:       ledger.Open(filepath.Join(cfg.DataRoot, "exec")),
	}

	run(ctx, logger, cfg, deps)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

type dependencies struct {
	proposals *advisor.ProposalTable
	applied   *controller.AppliedTable
	led       *ledger.Ledger
}

func run(ctx context.Context, logger *charmlog.Logger, cfg config.Config, deps dependencies) {
	interval := time.Duration(cfg.ControllerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	paramsPath := filepath.Join(cfg.DataRoot, "params", fmt.Sprintf("runtime_%s.json", cfg.Symbol))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tick(logger, cfg, deps, paramsPath); err != nil {
				logger.Error("controller tick failed", "err", err)
			}
			if err := ops.Beat(filepath.Join(cfg.DataRoot, "ops", "heartbeat"), "controller"); err != nil {
				logger.Error("heartbeat failed", "err", err)
			}
		}
	}
}

func tick(logger *charmlog.Logger, cfg config.Config, deps dependencies, paramsPath string) error {
	now := time.Now().UTC()

	current, err := params.Load(paramsPath, cfg.Symbol)
	if err != nil {
		return fmt.Errorf("controller: load params: %w", err)
	}

	bars, err := readTodaysBars(cfg)
	if err != nil {
		return fmt.Errorf("controller: read bars: %w", err)
	}
	entries, err := deps.led.ReadDay(now)
	if err != nil {
		return fmt.Errorf("controller: read ledger: %w", err)
	}
	points := accounting.RealizedPnlTimeseries(entries, cfg.Symbol)
	if len(points) > 0 {
		metrics.RealizedPnlCum.WithLabelValues(cfg.Symbol).Set(points[len(points)-1].RealizedPnlCum)
	}

	feedOK := controller.FeedHealthOK(bars, nil, now)
	notFrozen := controller.NotFrozenOnDrawdown(points, cfg.EquityUSD, now)

	proposalsToday, err := deps.proposals.ReadDay(now)
	if err != nil {
		return fmt.Errorf("controller: read proposals: %w", err)
	}
	appliedToday, err := deps.applied.ReadDay(now, cfg.Symbol)
	if err != nil {
		return fmt.Errorf("controller: read applied: %w", err)
	}
	seen, appliedNonZero := windowCounts(proposalsToday, appliedToday, now)
	acceptanceOK := controller.AcceptanceRateOK(appliedNonZero, seen)

	freeze := controller.CombinedFreeze(feedOK, notFrozen, acceptanceOK)
	metrics.ControllerFreeze.WithLabelValues(cfg.Symbol).Set(boolToFloat(freeze))

	latest := latestProposal(proposalsToday, now)
	updated, decision := controller.Apply(current, latest, freeze, seen, now)

	if err := deps.applied.Append(decision); err != nil {
		return fmt.Errorf("controller: append decision: %w", err)
	}
	if decision.DeltaBps != 0 {
		if err := updated.Save(paramsPath); err != nil {
			return fmt.Errorf("controller: save params: %w", err)
		}
		logger.Info("applied proposal", "threshold_bps", updated.SignalThresholdBps, "delta_bps", decision.DeltaBps)
	}
	return nil
}

func readTodaysBars(cfg config.Config) ([]marketdata.Bar1s, error) {
	day := time.Now().UTC().Format("2006-01-02")
	tbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", cfg.Symbol)))
	return tbl.ReadAll()
}

// latestProposal returns the most recent proposal within the 15-minute
// acceptance-rate lookback, or nil if none.
func latestProposal(proposals []advisor.Proposal, now time.Time) *advisor.Proposal {
	cutoff := now.Add(-acceptanceLookback)
	var latest *advisor.Proposal
	for i := range proposals {
		if proposals[i].TS.Before(cutoff) {
			continue
		}
		if latest == nil || proposals[i].TS.After(latest.TS) {
			latest = &proposals[i]
		}
	}
	return latest
}

// windowCounts returns how many proposals were seen and how many applied
// decisions had a nonzero delta, both within the acceptance-rate lookback.
func windowCounts(proposals []advisor.Proposal, applied []controller.AppliedDecision, now time.Time) (seen, appliedNonZero int) {
	cutoff := now.Add(-acceptanceLookback)
	for _, p := range proposals {
		if !p.TS.Before(cutoff) {
			seen++
		}
	}
	for _, a := range applied {
		if !a.TS.Before(cutoff) && a.DeltaBps != 0 {
			appliedNonZero++
		}
	}
	return seen, appliedNonZero
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
