// Package execworker implements execd's loop: reserve an intent, re-check
// ledger idempotency across restarts, run the pretrade risk gate, place
// with the broker, drive the order through internal/execstate as broker
// events arrive, cancel on TTL expiry, and on terminal fill with a known
// arrival price record a PNL_SNAPSHOT via internal/tca.
package execworker

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chidi150c/tradingstack/internal/broker"
	"github.com/chidi150c/tradingstack/internal/execstate"
	"github.com/chidi150c/tradingstack/internal/ledger"
	"github.com/chidi150c/tradingstack/internal/metrics"
	"github.com/chidi150c/tradingstack/internal/queue"
	"github.com/chidi150c/tradingstack/internal/risk"
	"github.com/chidi150c/tradingstack/internal/tca"
)

// ArrivalLookup returns the close of the last bar at or before ts for
// symbol, and whether an arrival price was found at all.
type ArrivalLookup func(symbol string, ts time.Time) (float64, bool)

// Worker drives one execd iteration at a time. It is not safe for
// concurrent use from multiple goroutines — execd is single-threaded per
// the specification's concurrency model.
type Worker struct {
	Queue     *queue.Queue
	Ledger    *ledger.Ledger
	Broker    broker.Broker
	Risk      risk.Config
	Topic     string
	OrderTTL  time.Duration
	AckWindow time.Duration
	Arrival   ArrivalLookup
	Logger    *log.Logger
}

// ProcessOne reserves and fully drains one intent, or returns (false, nil)
// if the queue had nothing eligible. Every ledger-visible error (risk
// reject, placement failure) is handled internally via REJ entries and
// queue ack/nack — ProcessOne's error return is reserved for queue/ledger
// I/O failures that the caller should log and back off on.
func (w *Worker) ProcessOne(ctx context.Context, visibilityTimeout time.Duration, maxAttempts int, lastPx float64) (bool, error) {
	entry, err := w.Queue.Reserve(w.Topic, visibilityTimeout, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("execworker: reserve: %w", err)
	}
	if entry == nil {
		return false, nil
	}

	now := time.Now().UTC()
	day := now

	already, err := w.Ledger.HasTag(day, entry.Tag)
	if err != nil {
		return true, fmt.Errorf("execworker: idempotency check: %w", err)
	}
	if already {
		return true, w.Queue.Ack(entry.ID)
	}

	if err := w.Ledger.Append([]ledger.Entry{{
		TS: now, EventTS: now, Kind: ledger.KindIntent, Tag: entry.Tag,
		Symbol: entry.Order.Symbol, Side: entry.Order.Side, Qty: entry.Order.Qty, Limit: entry.Order.Limit,
	}}); err != nil {
		return true, fmt.Errorf("execworker: append intent: %w", err)
	}

	res := risk.Evaluate(entry.Order, lastPx, w.Risk)
	if !res.OK {
		if err := w.Ledger.Append([]ledger.Entry{{
			TS: now, EventTS: now, Kind: ledger.KindRej, Tag: entry.Tag, Reason: res.Reason,
		}}); err != nil {
			return true, fmt.Errorf("execworker: append rej: %w", err)
		}
		metrics.OrdersRejected.WithLabelValues(entry.Order.Symbol, res.Reason).Inc()
		return true, w.Queue.Nack(entry.ID, true) // policy violation: non-retryable
	}

	handle, events, err := w.Broker.Place(ctx, entry.Order)
	if err != nil {
		if lErr := w.Ledger.Append([]ledger.Entry{{
			TS: now, EventTS: now, Kind: ledger.KindRej, Tag: entry.Tag, Reason: err.Error(),
		}}); lErr != nil {
			return true, fmt.Errorf("execworker: append rej: %w", lErr)
		}
		metrics.OrdersRejected.WithLabelValues(entry.Order.Symbol, "broker_error").Inc()
		return true, w.Queue.Nack(entry.ID, false) // recoverable: requeue
	}

	state := execstate.New(entry.Tag, entry.Order.Symbol, execstate.Side(entry.Order.Side), entry.Order.Qty, now)
	w.drive(ctx, entry, state, handle, events)
	return true, w.Queue.Ack(entry.ID)
}

func (w *Worker) drive(ctx context.Context, entry *queue.Entry, state *execstate.ExecState, handle string, events <-chan broker.OrderEvent) {
	deadline := time.After(w.OrderTTL)
	var ackDeadline <-chan time.Time
	if w.AckWindow > 0 {
		ackDeadline = time.After(w.AckWindow)
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.applyEvent(entry, state, ev)
			if state.State != execstate.StateNew {
				ackDeadline = nil // first ACK observed within the bounded window
			}
			if state.Terminal() {
				return
			}
		case <-ackDeadline:
			// Bounded window for the first submitted/acknowledged state
			// elapsed with the order still NEW: cancel rather than wait
			// indefinitely for an ACK that may never arrive.
			if state.State == execstate.StateNew {
				_ = w.Broker.Cancel(ctx, handle)
				return
			}
		case <-deadline:
			if state.Terminal() {
				return
			}
			_ = w.Broker.Cancel(ctx, handle)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) applyEvent(entry *queue.Entry, state *execstate.ExecState, ev broker.OrderEvent) {
	switch ev.Kind {
	case broker.EventAck:
		state.OnAck(ev.TS)
		w.appendLedger(ledger.Entry{TS: state.CreatedTS, EventTS: ev.TS, Kind: ledger.KindAck, Tag: entry.Tag})
	case broker.EventPartial, broker.EventFill:
		state.OnPartial(ev.Px, ev.Qty)
		kind := ledger.KindPartial
		if state.State == execstate.StateFill {
			kind = ledger.KindFill
		}
		w.appendLedger(ledger.Entry{
			TS: state.CreatedTS, EventTS: ev.TS, Kind: kind, Tag: entry.Tag,
			FillQty: state.FillQty, AvgPx: state.AvgFillPx,
		})
		metrics.Fills.WithLabelValues(entry.Order.Symbol, entry.Order.Side).Inc()
		if kind == ledger.KindFill {
			w.recordShortfall(entry, state, ev.TS)
		}
	case broker.EventRej:
		state.OnRej(ev.Reason)
		w.appendLedger(ledger.Entry{TS: state.CreatedTS, EventTS: ev.TS, Kind: ledger.KindRej, Tag: entry.Tag, Reason: ev.Reason})
	case broker.EventCancel:
		state.OnCancel(ev.TS)
		w.appendLedger(ledger.Entry{TS: state.CreatedTS, EventTS: ev.TS, Kind: ledger.KindCancel, Tag: entry.Tag})
	}
}

func (w *Worker) recordShortfall(entry *queue.Entry, state *execstate.ExecState, eventTS time.Time) {
	if w.Arrival == nil {
		return
	}
	arrival, ok := w.Arrival(entry.Order.Symbol, entry.Order.TS)
	if !ok {
		return
	}
	side := tca.SideBuy
	if entry.Order.Side == "SELL" {
		side = tca.SideSell
	}
	shortfall := tca.TCA{Arrival: arrival, FillsWavg: state.AvgFillPx, Side: side}.ShortfallBps()
	w.appendLedger(ledger.Entry{
		TS: state.CreatedTS, EventTS: eventTS, Kind: ledger.KindPnlSnapshot, Tag: entry.Tag, ShortfallBps: shortfall,
	})
	metrics.ShortfallBps.WithLabelValues(entry.Order.Symbol, entry.Order.Side).Observe(shortfall)
}

func (w *Worker) appendLedger(e ledger.Entry) {
	if err := w.Ledger.Append([]ledger.Entry{e}); err != nil && w.Logger != nil {
		w.Logger.Error("ledger append failed", "kind", e.Kind, "tag", e.Tag, "err", err)
	}
}
