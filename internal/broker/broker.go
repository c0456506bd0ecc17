// Package broker defines the execution-side Broker interface execd drives
// and a PaperBroker in-memory implementation for dry runs, grounded on the
// teacher's broker_paper.go PlaceMarketQuote simulation. It also defines the
// TradeSource interface feedd consumes and a SyntheticSource generator used
// when no live feed is configured.
package broker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chidi150c/tradingstack/internal/marketdata"
	"github.com/chidi150c/tradingstack/internal/queue"
)

// EventKind enumerates the broker-originated events fed into a per-order
// execstate.ExecState.
type EventKind string

const (
	EventAck     EventKind = "ACK"
	EventRej     EventKind = "REJ"
	EventPartial EventKind = "PARTIAL"
	EventFill    EventKind = "FILL"
	EventCancel  EventKind = "CANCEL"
)

// OrderEvent is one lifecycle update for a placed order.
type OrderEvent struct {
	Kind   EventKind
	Px     float64
	Qty    float64
	Reason string
	TS     time.Time
}

// Broker places and cancels orders and streams their lifecycle events.
type Broker interface {
	// Place submits order and returns a broker-assigned handle plus a
	// channel of its lifecycle events. The channel is closed once the
	// order reaches a terminal event (REJ, FILL, or CANCEL).
	Place(ctx context.Context, order queue.NewOrder) (handle string, events <-chan OrderEvent, err error)
	Cancel(ctx context.Context, handle string) error
}

// PaperBroker simulates fills against the last observed price: it acks
// immediately and fills the full quantity after a short simulated delay,
// matching the teacher's "convert quote at current price" paper model
// generalized from a single quote-notional fill to a qty-based one.
type PaperBroker struct {
	mu       sync.Mutex
	price    float64
	fillWait time.Duration
	orders   map[string]chan struct{} // handle -> cancel signal
}

// NewPaperBroker returns a PaperBroker that simulates a fill fillWait after
// Place is called.
func NewPaperBroker(fillWait time.Duration) *PaperBroker {
	return &PaperBroker{fillWait: fillWait, orders: make(map[string]chan struct{})}
}

// UpdatePrice records the last observed traded price, used as the
// simulated fill price for subsequent Place calls.
func (p *PaperBroker) UpdatePrice(px float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = px
}

func (p *PaperBroker) lastPrice() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.price
}

// Place implements Broker.
func (p *PaperBroker) Place(ctx context.Context, order queue.NewOrder) (string, <-chan OrderEvent, error) {
	if order.Qty <= 0 {
		return "", nil, errors.New("broker: qty must be > 0")
	}
	px := p.lastPrice()
	if px <= 0 {
		return "", nil, errors.New("broker: no reference price available")
	}
	if order.Limit != nil {
		px = *order.Limit
	}

	handle := uuid.New().String()
	cancel := make(chan struct{})
	p.mu.Lock()
	p.orders[handle] = cancel
	p.mu.Unlock()

	events := make(chan OrderEvent, 4)
	events <- OrderEvent{Kind: EventAck, TS: time.Now().UTC()}

	go func() {
		defer close(events)
		defer func() {
			p.mu.Lock()
			delete(p.orders, handle)
			p.mu.Unlock()
		}()
		select {
		case <-time.After(p.fillWait):
			events <- OrderEvent{Kind: EventFill, Px: px, Qty: order.Qty, TS: time.Now().UTC()}
		case <-cancel:
			events <- OrderEvent{Kind: EventCancel, TS: time.Now().UTC()}
		case <-ctx.Done():
			events <- OrderEvent{Kind: EventCancel, TS: time.Now().UTC()}
		}
	}()
	return handle, events, nil
}

// Cancel implements Broker.
func (p *PaperBroker) Cancel(ctx context.Context, handle string) error {
	p.mu.Lock()
	cancel, ok := p.orders[handle]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("broker: unknown handle %s", handle)
	}
	close(cancel)
	return nil
}

// TradeSource is a cancellable stream of trades for one symbol.
type TradeSource interface {
	Trades() <-chan marketdata.MarketTrade
	Close()
}

// SyntheticSource generates a geometric random-walk trade print roughly
// every tick for symbol, used when no live feed is configured. Generation
// has no failure path, so there is no reconnect or backoff logic.
type SyntheticSource struct {
	out    chan marketdata.MarketTrade
	done   chan struct{}
	once   sync.Once
}

// NewSyntheticSource starts generating trades for symbol at the given tick
// interval, starting from startPx.
func NewSyntheticSource(symbol string, startPx float64, tick time.Duration) *SyntheticSource {
	s := &SyntheticSource{
		out:  make(chan marketdata.MarketTrade, 64),
		done: make(chan struct{}),
	}
	go s.run(symbol, startPx, tick)
	return s
}

func (s *SyntheticSource) run(symbol string, px float64, tick time.Duration) {
	defer close(s.out)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-s.done:
			return
		case <-time.After(tick):
			px *= 1 + (r.Float64()-0.5)*0.0005
			trade := marketdata.MarketTrade{
				TS:       time.Now().UTC(),
				Symbol:   symbol,
				Price:    px,
				Size:     int64(1 + r.Intn(10)),
				Venue:    "SYNTH",
				Source:   "synthetic",
				IngestTS: time.Now().UTC(),
			}
			select {
			case s.out <- trade:
			case <-s.done:
				return
			}
		}
	}
}

// Trades implements TradeSource.
func (s *SyntheticSource) Trades() <-chan marketdata.MarketTrade { return s.out }

// Close implements TradeSource. Safe to call more than once.
func (s *SyntheticSource) Close() {
	s.once.Do(func() { close(s.done) })
}
