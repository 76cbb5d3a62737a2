package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"loyaltykit/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	defaultQueueSize   = 2048
	defaultWorkerCount = 4
)

type subscription struct {
	id  int64
	typ core.EventType
	fn  func(context.Context, core.Event)
}

// BusOption configures an EventBus before its workers start.
type BusOption func(*EventBus)

// WithQueueSize sets the async queue capacity. The award path never blocks
// on event delivery; once the queue is full further events are dropped and
// counted.
func WithQueueSize(n int) BusOption {
	return func(e *EventBus) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithWorkerCount sets how many goroutines drain the async queue.
func WithWorkerCount(n int) BusOption {
	return func(e *EventBus) {
		if n > 0 {
			e.workers = n
		}
	}
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
type EventBus struct {
	mode      DispatchMode
	mu        sync.RWMutex
	subs      map[core.EventType]map[int64]subscription
	nextID    int64
	queue     chan core.Event
	queueSize int
	workers   int
	dropped   atomic.Int64
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		mode:      mode,
		subs:      make(map[core.EventType]map[int64]subscription),
		queueSize: defaultQueueSize,
		workers:   defaultWorkerCount,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(eb)
	}
	eb.queue = make(chan core.Event, eb.queueSize)
	if mode == DispatchAsync {
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.workers; i++ {
		go func() {
			for {
				select {
				case ev := <-e.queue:
					e.dispatchSync(context.Background(), ev)
				case <-e.ctx.Done():
					return
				}
			}
		}()
	}
}

// Close stops async workers.
func (e *EventBus) Close() {
	e.cancel()
	// allow workers to drain briefly
	time.Sleep(10 * time.Millisecond)
}

// Dropped reports how many events were discarded because the async queue was
// full. A steadily climbing count means subscribers cannot keep up with the
// award rate.
func (e *EventBus) Dropped() int64 {
	return e.dropped.Load()
}

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, typ: typ, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// Publish sends an event to subscribers.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode == DispatchAsync {
		select {
		case e.queue <- ev:
		default:
			e.dropped.Add(1)
		}
		return
	}
	e.dispatchSync(ctx, ev)
}

func (e *EventBus) dispatchSync(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := e.subs[ev.Type]
	// copy to avoid holding lock during callbacks
	handlers := make([]func(context.Context, core.Event), 0, len(subs))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
