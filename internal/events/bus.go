package events

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultCapacity is the bounded channel size each stage's producer and each
// subscriber's consumer is sized to. A full subscriber blocks the Bus's
// fan-out goroutine, and once the Bus's own buffer fills, Publish blocks the
// stage producing the event.
const DefaultCapacity = 256

// Bus is a single-producer-per-stage, multi-consumer broadcast of Events.
// Stages hold a sender clone (via Publish); consumers hold a Subscription.
type Bus struct {
	capacity int
	in       chan Event

	mu   sync.Mutex
	subs map[*Subscription]struct{}

	wg sync.WaitGroup
}

// Subscription is a bounded, per-consumer view onto the Bus.
type Subscription struct {
	ch   chan Event
	bus  *Bus
	once sync.Once
}

// Events returns the channel a consumer should range over.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription from the Bus. Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

// NewBus creates a Bus; it starts no goroutine. Call Run (typically in its own
// goroutine) to fan events out; cancelling Run's context stops the bus, and an
// event still being delivered at that moment may not reach every subscriber.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		in:       make(chan Event, capacity),
		subs:     make(map[*Subscription]struct{}),
	}
}

// Run drains the producer channel and fans each Event out to every current
// subscriber. A full subscriber channel blocks this loop, which in turn
// blocks Publish once its own buffer fills — the backpressure path required
// by the concurrency model.
func (b *Bus) Run(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.in:
			b.deliver(ctx, e)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, e Event) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- e:
		case <-ctx.Done():
			return
		}
	}
}

// Publish enqueues an Event for delivery. Blocks if the Bus's internal buffer
// is full (backpressure from a slow or absent fan-out consumer).
func (b *Bus) Publish(e Event) {
	b.in <- e
}

// Subscribe registers a new consumer and returns its Subscription.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Event, b.capacity), bus: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Wait blocks until Run has returned (context cancelled).
func (b *Bus) Wait() { b.wg.Wait() }

// LogAndPublish emits e to the structured logger at its LogLevel (mirroring
// the standalone operator log even when no UI subscriber is attached) and
// then publishes it to the Bus.
func (b *Bus) LogAndPublish(e Event) {
	logAt(e)
	b.Publish(e)
}

func logAt(e Event) {
	args := []any{"worker", e.Worker.String(), "type", e.EventType.String()}
	switch e.LogLevel {
	case LogError:
		log.Error(e.Message, args...)
	case LogWarn:
		log.Warn(e.Message, args...)
	case LogDebug:
		log.Debug(e.Message, args...)
	default:
		log.Info(e.Message, args...)
	}
}
