// Command advisor periodically windows recent bars into features and asks
// a Provider for a proposed signal threshold and risk multiplier, recording
// every proposal — accepted or not — to the day-partitioned proposal table
// the controller reads.
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

	"github.com/chidi150c/tradingstack/internal/advisor"
	"github.com/chidi150c/tradingstack/internal/config"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/ops"
	"github.com/chidi150c/tradingstack/internal/table"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "advisor"})
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

	proposals := advisor.OpenProposalTable(filepath.Join(cfg.DataRoot, "advisor"))
	provider := advisor.RulesProvider{}

	run(ctx, logger, cfg, proposals, provider)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

func run(ctx context.Context, logger *charmlog.Logger, cfg config.Config, proposals *advisor.ProposalTable, provider advisor.Provider) {
	interval := time.Duration(cfg.AdvisorIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(logger, cfg, proposals, provider)
			if err := ops.Beat(filepath.Join(cfg.DataRoot, "ops", "heartbeat"), "advisor"); err != nil {
				logger.Error("heartbeat failed", "err", err)
			}
		}
	}
}

func tick(logger *charmlog.Logger, cfg config.Config, proposals *advisor.ProposalTable, provider advisor.Provider) {
	bars, err := readRecentBars(cfg)
	if err != nil {
		logger.Error("read bars", "err", err)
		return
	}
	if len(bars) == 0 {
		return
	}
	proposal, resp := advisor.MakeProposal(cfg.Symbol, bars, 120, provider)
	if err := proposals.Append(proposal); err != nil {
		logger.Error("append proposal", "err", err)
		return
	}
	logger.Info("proposal recorded", "threshold_bps", resp.ThresholdBps, "risk_mult", resp.RiskMult, "notes", resp.Notes)
}

func readRecentBars(cfg config.Config) ([]marketdata.Bar1s, error) {
	day := time.Now().UTC().Format("2006-01-02")
	tbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", cfg.Symbol)))
	return tbl.ReadAll()
}
