package service

import (
	"sync"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
)

const (
	defaultHistoryLimit = 256
	subscriberBuffer    = 64
)

// Hub fans the paced event stream of one battle out to its subscribers. It
// keeps a bounded history so late subscribers (reconnects, spectators) can
// catch up before receiving live events.
type Hub struct {
	mu      sync.Mutex
	history []game.Event
	limit   int
	subs    map[uint64]chan game.Event
	nextID  uint64
	closed  bool
}

func newHub(limit int) *Hub {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Hub{limit: limit, subs: make(map[uint64]chan game.Event)}
}

// Emit implements timeline.Sink. It never blocks: a subscriber whose buffer
// is full is dropped and its channel closed.
func (h *Hub) Emit(ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.history = append(h.history, ev)
	if over := len(h.history) - h.limit; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			logging.Warn("dropping slow subscriber", logging.Fields{
				constants.LogFieldBattleID: ev.BattleID,
				"subscriber":               id,
			})
			close(ch)
			delete(h.subs, id)
		}
	}
	if ev.Type == game.EventBattleEnded {
		h.closeLocked()
	}
}

// Subscribe returns the events emitted so far and a channel of the events
// that follow. The channel is closed when the battle ends, when the
// subscriber falls behind, or when cancel is called.
func (h *Hub) Subscribe() ([]game.Event, <-chan game.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := append([]game.Event(nil), h.history...)
	ch := make(chan game.Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return history, ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				close(c)
				delete(h.subs, id)
			}
		})
	}
	return history, ch, cancel
}

// Subscribers is the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// History returns a copy of the retained events.
func (h *Hub) History() []game.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]game.Event(nil), h.history...)
}

// Close ends every subscription without waiting for battle_ended.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked()
}

func (h *Hub) closeLocked() {
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
