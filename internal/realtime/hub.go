package realtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Channel names. Subscribers join a store-level channel and, optionally, a
// station-level sub-channel for large stores.
func StoreChannel(storeID uuid.UUID) string {
	return fmt.Sprintf("store:%s", storeID)
}

func StationChannel(storeID uuid.UUID, station string) string {
	return fmt.Sprintf("store:%s:station:%s", storeID, station)
}

// Hub is the in-process subscription registry. Delivery is best-effort,
// at-most-once: a subscriber that cannot keep up has messages dropped.
// Lost notifications do not lose data — the pull loop reconciles full
// record state regardless.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe joins a channel. The returned cancel func must be called when
// the subscriber leaves; it closes the message channel.
func (h *Hub) Subscribe(channel string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[chan []byte]struct{})
	}
	h.subs[channel][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[channel]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, channel)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Deliver pushes a message to every subscriber of the channel without
// blocking the publisher.
func (h *Hub) Deliver(channel string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[channel] {
		select {
		case ch <- msg:
		default: // slow subscriber — drop
		}
	}
}
