package trigger

import (
	"sync"
	"time"

	"github.com/flemzord/tgflow/pkg/record"
)

// Event is one detected change in a chat.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	ChatID    string          `json:"chatId"`
	ChatType  string          `json:"chatType"`
	ChatTitle string          `json:"chatTitle"`
	Message   *record.Message `json:"message"`
	Detected  time.Time       `json:"detectedAt"`
}

// Hub fans events out to subscribers. A subscriber that does not keep up
// loses events rather than blocking the poller.
type Hub struct {
	mu      sync.RWMutex
	next    int
	subs    map[int]chan Event
	dropped int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel receiving every published event and a
// function that ends the subscription and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
