package execworker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/tradingstack/internal/broker"
	"github.com/chidi150c/tradingstack/internal/ledger"
	"github.com/chidi150c/tradingstack/internal/queue"
	"github.com/chidi150c/tradingstack/internal/risk"
)

func newTestWorker(t *testing.T) (*Worker, *queue.Queue, *ledger.Ledger) {
	t.Helper()
	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	l := ledger.Open(t.TempDir())
	b := broker.NewPaperBroker(5 * time.Millisecond)
	b.UpdatePrice(100.0)

	w := &Worker{
		Queue:    q,
		Ledger:   l,
		Broker:   b,
		Topic:    "order_intents",
		OrderTTL: time.Second,
		Risk: risk.Config{
			Whitelist:    map[string]bool{"SPY": true},
			MaxNotional:  100000,
			PriceBandBps: 1000,
		},
	}
	return w, q, l
}

func TestProcessOneHappyPathFillsAndAcks(t *testing.T) {
	w, q, l := newTestWorker(t)
	require.NoError(t, q.Enqueue("order_intents", "tag-1", queue.NewOrder{
		Symbol: "SPY", Side: "BUY", Qty: 10, Tag: "tag-1", TS: time.Now().UTC(),
	}))

	handled, err := w.ProcessOne(context.Background(), time.Second, 5, 100.0)
	require.NoError(t, err)
	assert.True(t, handled)

	depth, err := q.Depth("order_intents")
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	rows, err := l.ReadDay(time.Now().UTC())
	require.NoError(t, err)
	var kinds []ledger.Kind
	for _, r := range rows {
		kinds = append(kinds, r.Kind)
	}
	assert.Contains(t, kinds, ledger.KindIntent)
	assert.Contains(t, kinds, ledger.KindAck)
	assert.Contains(t, kinds, ledger.KindFill)
}

func TestProcessOneRejectsOutsideRiskLimits(t *testing.T) {
	w, q, l := newTestWorker(t)
	w.Risk.MaxNotional = 1
	require.NoError(t, q.Enqueue("order_intents", "tag-1", queue.NewOrder{
		Symbol: "SPY", Side: "BUY", Qty: 10, Tag: "tag-1", TS: time.Now().UTC(),
	}))

	handled, err := w.ProcessOne(context.Background(), time.Second, 5, 100.0)
	require.NoError(t, err)
	assert.True(t, handled)

	dead, err := q.DeadLetterCount("order_intents")
	require.NoError(t, err)
	assert.Equal(t, 1, dead)

	rows, err := l.ReadDay(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledger.KindRej, rows[1].Kind)
}

func TestProcessOneIdempotentOnTag(t *testing.T) {
	w, q, l := newTestWorker(t)
	now := time.Now().UTC()
	require.NoError(t, l.Append([]ledger.Entry{{TS: now, Kind: ledger.KindIntent, Tag: "tag-1"}}))
	require.NoError(t, q.Enqueue("order_intents", "tag-1", queue.NewOrder{
		Symbol: "SPY", Side: "BUY", Qty: 10, Tag: "tag-1", TS: now,
	}))

	handled, err := w.ProcessOne(context.Background(), time.Second, 5, 100.0)
	require.NoError(t, err)
	assert.True(t, handled)

	rows, err := l.ReadDay(now)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "an already-recorded tag must not be processed twice")
}

func TestProcessOneReturnsFalseWhenQueueEmpty(t *testing.T) {
	w, _, _ := newTestWorker(t)
	handled, err := w.ProcessOne(context.Background(), time.Second, 5, 100.0)
	require.NoError(t, err)
	assert.False(t, handled)
}
