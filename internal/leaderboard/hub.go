package leaderboard

import "sync"

// Hub fans out leaderboard snapshots to live subscribers. Slow subscribers
// only ever see the latest snapshot; older pending ones are dropped.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []Entry
}

func NewHub() *Hub { return &Hub{subs: make(map[int]chan []Entry)} }

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan []Entry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan []Entry, 1)
	h.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers top to every subscriber without blocking.
func (h *Hub) Publish(top []Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		snap := append([]Entry(nil), top...)
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// Subscribers returns the current listener count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
