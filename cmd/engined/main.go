// Command engined tails the current day's bars for one symbol, evaluates
// the strategy under the pretrade risk gate on every new bar, and enqueues
// accepted intents onto the durable queue. It is also a shadow ledger
// writer: every engine-produced intent is recorded as INTENT_SHADOW
// regardless of whether execution accepts it.
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

	"github.com/chidi150c/tradingstack/internal/config"
	"github.com/chidi150c/tradingstack/internal/engine"
	"github.com/chidi150c/tradingstack/internal/ledger"
	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/metrics"
	"github.com/chidi150c/tradingstack/internal/ops"
	"github.com/chidi150c/tradingstack/internal/params"
	"github.com/chidi150c/tradingstack/internal/queue"
	"github.com/chidi150c/tradingstack/internal/risk"
	"github.com/chidi150c/tradingstack/internal/strategy"
	"github.com/chidi150c/tradingstack/internal/table"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "engined"})
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

	led := ledger.Open(filepath.Join(cfg.DataRoot, "exec"))
	strat := strategy.NewMeanReversion1S(cfg.Symbol, 0.5, cfg.StrategyWindow)
	riskCfg := risk.Config{
		KillSwitchPath: ops.KillSwitchPath(cfg.DataRoot),
		Whitelist:      cfg.WhitelistSet(),
		MaxNotional:    cfg.MaxNotional,
		PriceBandBps:   cfg.PriceBandBps,
	}
	eng := engine.New(strat, riskCfg)

	run(ctx, logger, cfg, eng, q, led)

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

func run(ctx context.Context, logger *charmlog.Logger, cfg config.Config, eng *engine.DecisionEngine, q *queue.Queue, led *ledger.Ledger) {
	paramsPath := filepath.Join(cfg.DataRoot, "params", fmt.Sprintf("runtime_%s.json", cfg.Symbol))
	rp, err := params.Load(paramsPath, cfg.Symbol)
	if err != nil {
		logger.Error("params load", "err", err)
	}

	var lastSeen time.Time
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rp = params.LoadOrLastGood(paramsPath, rp)
			eng.Strategy.SetThresholdBps(rp.SignalThresholdBps)

			bars, err := tailTodaysBars(cfg)
			if err != nil {
				logger.Error("tail bars", "err", err)
				continue
			}
			for _, bar := range bars {
				if !bar.TS.After(lastSeen) {
					continue
				}
				lastSeen = bar.TS
				onBar(logger, cfg, eng, q, led, bar)
			}

			if err := ops.Beat(filepath.Join(cfg.DataRoot, "ops", "heartbeat"), "engined"); err != nil {
				logger.Error("heartbeat failed", "err", err)
			}
		}
	}
}

func onBar(logger *charmlog.Logger, cfg config.Config, eng *engine.DecisionEngine, q *queue.Queue, led *ledger.Ledger, bar marketdata.Bar1s) {
	intents := eng.OnBar(bar)
	now := time.Now().UTC()
	for _, order := range intents {
		tag := order.Tag
		if tag == "" {
			tag = strategy.DeterministicTag(order)
			order.Tag = tag
		}
		if err := q.Enqueue("order_intents", tag, order); err != nil {
			logger.Error("enqueue failed", "tag", tag, "err", err)
			continue
		}
		metrics.OrdersEnqueued.WithLabelValues(order.Symbol, order.Side).Inc()
		if err := led.Append([]ledger.Entry{{
			TS: order.TS, EventTS: now, Kind: ledger.KindIntentShadow, Tag: tag,
			Symbol: order.Symbol, Side: order.Side, Qty: order.Qty, Limit: order.Limit,
		}}); err != nil {
			logger.Error("shadow ledger append failed", "tag", tag, "err", err)
		}
	}
}

func tailTodaysBars(cfg config.Config) ([]marketdata.Bar1s, error) {
	day := time.Now().UTC().Format("2006-01-02")
	tbl := table.Open[marketdata.Bar1s](filepath.Join(cfg.DataRoot, "live", day, fmt.Sprintf("bars1s_%s.tbl", cfg.Symbol)))
	return tbl.ReadAll()
}
