// Command feedd ingests a live trade stream, aggregates it into 1-second
// bars, and durably appends both trades and bars to day-partitioned tables.
// It is the sole writer of the trade/bar tables.
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

	"github.com/chidi150c/tradingstack/internal/broker"
	"github.com/chidi150c/tradingstack/internal/config"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/metrics"
	"github.com/chidi150c/tradingstack/internal/ops"
	"github.com/chidi150c/tradingstack/internal/table"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "feedd"})
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

	source := broker.NewSyntheticSource(cfg.Symbol, 500.0, 200*time.Millisecond)
	defer source.Close()

	run(ctx, logger, cfg, source)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

func run(ctx context.Context, logger *charmlog.Logger, cfg config.Config, source broker.TradeSource) {
	var buf []marketdata.MarketTrade
	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-source.Trades():
			if !ok {
				return
			}
			buf = append(buf, trade)
		case <-flush.C:
			if len(buf) > 0 {
				metrics.FreshnessP99Ms.WithLabelValues(cfg.Symbol).Set(marketdata.FreshnessP99Ms(buf))
			}
			if err := flushBuf(cfg, buf); err != nil {
				logger.Error("flush failed", "err", err)
			}
			buf = buf[:0]
			if err := ops.Beat(filepath.Join(cfg.DataRoot, "ops", "heartbeat"), "feedd"); err != nil {
				logger.Error("heartbeat failed", "err", err)
			}
		}
	}
}

// flushBuf appends trades to the day's canonical trade log, then
// re-aggregates the full day's log into bars and overwrites the bars table
// wholesale — so a 1-second bucket whose trades straddle two flush ticks is
// always recomputed from the complete set of trades in that bucket, never
// split across two rows.
func flushBuf(cfg config.Config, trades []marketdata.MarketTrade) error {
	if len(trades) == 0 {
		return nil
	}
	day := trades[0].TS.UTC().Format("2006-01-02")
	tradesTbl := table.Open[marketdata.MarketTrade](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("trades_%s.tbl", cfg.Symbol)))
	if err := tradesTbl.Append(trades); err != nil {
		return err
	}

	allTrades, err := tradesTbl.ReadAll()
	if err != nil {
		return err
	}
	bars := marketdata.Aggregate1s(allTrades, cfg.Symbol)
	barsTbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", cfg.Symbol)))
	return barsTbl.WriteAll(bars)
}
