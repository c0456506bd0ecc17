// Command execd is the sole writer of order lifecycle events: it reserves
// one intent at a time from the durable queue, drives it through the paper
// broker under the pretrade risk gate, and records every state transition
// to the ledger.
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
	"github.com/chidi150c/tradingstack/internal/execworker"
	"github.com/chidi150c/tradingstack/internal/ledger"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/metrics"
	"github.com/chidi150c/tradingstack/internal/ops"
	"github.com/chidi150c/tradingstack/internal/queue"
	"github.com/chidi150c/tradingstack/internal/risk"
	"github.com/chidi150c/tradingstack/internal/table"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "execd"})
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

	q, err := queue.Open(filepath.Join(cfg.DataRoot, "queue.db"))
	if err != nil {
		logger.Fatal("queue open", "err", err)
	}
	defer q.Close()

	pb := broker.NewPaperBroker(2 * time.Second)
	w := &execworker.Worker{
		Queue:    q,
		Ledger:   ledger.Open(filepath.Join(cfg.DataRoot, "exec")),
		Broker:   pb,
		Topic:     "order_intents",
		OrderTTL:  time.Duration(cfg.OrderTTLSec) * time.Second,
		AckWindow: time.Duration(cfg.AckTimeoutSec) * time.Second,
		Risk: risk.Config{
			KillSwitchPath: ops.KillSwitchPath(cfg.DataRoot),
			Whitelist:      cfg.WhitelistSet(),
			MaxNotional:    cfg.MaxNotional,
			PriceBandBps:   cfg.PriceBandBps,
		},
		Arrival: arrivalLookup(cfg),
		Logger:  logger,
	}

	run(ctx, logger, cfg, w, q, pb)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

// arrivalLookup returns the close of the last 1s bar at or before ts for
// symbol, read from the day-partitioned bar table feedd maintains.
func arrivalLookup(cfg config.Config) execworker.ArrivalLookup {
	return func(symbol string, ts time.Time) (float64, bool) {
		day := ts.UTC().Format("2006-01-02")
		tbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", symbol)))
		bars, err := tbl.ReadAll()
		if err != nil || len(bars) == 0 {
			return 0, false
		}
		var best *marketdata.Bar1s
		for i := range bars {
			if bars[i].TS.After(ts) {
				continue
			}
			if best == nil || bars[i].TS.After(best.TS) {
				best = &bars[i]
			}
		}
		if best == nil {
			return 0, false
		}
		return best.Close, true
	}
}

func run(ctx context.Context, logger *charmlog.Logger, cfg config.Config, w *execworker.Worker, q *queue.Queue, pb *broker.PaperBroker) {
	poll := 250 * time.Millisecond
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	lastBeat := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lastPx, ok := currentPrice(cfg)
			if ok {
				pb.UpdatePrice(lastPx)
			}

			handled := processOneSafely(ctx, logger, w, cfg, lastPx)
			if !handled && time.Since(lastBeat) >= time.Second {
				if err := ops.Beat(filepath.Join(cfg.DataRoot, "ops", "heartbeat"), "execd"); err != nil {
					logger.Error("heartbeat failed", "err", err)
				}
				lastBeat = time.Now()
			}

			reportQueueDepth(logger, q)
		}
	}
}

// processOneSafely calls Worker.ProcessOne and recovers from any panic in
// that call, logging and continuing rather than letting one bad intent take
// the daemon down — the main loop's catch-log-sleep-continue policy.
func processOneSafely(ctx context.Context, logger *charmlog.Logger, w *execworker.Worker, cfg config.Config, lastPx float64) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in ProcessOne, continuing", "recover", r)
			time.Sleep(time.Second)
		}
	}()
	h, err := w.ProcessOne(ctx, time.Duration(cfg.VisibilityTimeoutSec)*time.Second, cfg.MaxAttempts, lastPx)
	if err != nil {
		logger.Error("process one", "err", err)
		time.Sleep(time.Second)
		return false
	}
	return h
}

func currentPrice(cfg config.Config) (float64, bool) {
	day := time.Now().UTC().Format("2006-01-02")
	tbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", cfg.Symbol)))
	bars, err := tbl.ReadAll()
	if err != nil || len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

func reportQueueDepth(logger *charmlog.Logger, q *queue.Queue) {
	depth, err := q.Depth("order_intents")
	if err != nil {
		logger.Error("queue depth", "err", err)
		return
	}
	dead, err := q.DeadLetterCount("order_intents")
	if err != nil {
		logger.Error("dead letter count", "err", err)
		return
	}
	metrics.QueueDepth.WithLabelValues("order_intents").Set(float64(depth))
	metrics.DeadLetterCount.WithLabelValues("order_intents").Set(float64(dead))
}
