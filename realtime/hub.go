package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"loyaltykit/core"
)

// Hub fans loyalty events out to subscribers. A subscription can be scoped to
// a single account so a client only sees its own awards and level-ups.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]subscription
	next int
}

type subscription struct {
	ch      chan core.Event
	account core.AccountID // empty means all accounts
}

func NewHub() *Hub { return &Hub{subs: map[int]subscription{}} }

// Subscribe registers a firehose subscriber receiving every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.subscribe(buffer, "")
}

// SubscribeAccount registers a subscriber receiving only one account's events.
func (h *Hub) SubscribeAccount(buffer int, account core.AccountID) (int, <-chan core.Event) {
	return h.subscribe(buffer, account)
}

func (h *Hub) subscribe(buffer int, account core.AccountID) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscription{ch: ch, account: account}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Broadcast delivers ev to every matching subscriber. Slow subscribers with a
// full buffer lose the event rather than stalling the award path. Sends stay
// under the read lock: Unsubscribe closes channels under the write lock, so a
// channel can never be closed mid-broadcast.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.account != "" && sub.account != ev.Account {
			continue
		}
		select {
		case sub.ch <- ev:
		default: /* drop if full */
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
