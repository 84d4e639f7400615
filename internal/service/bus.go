package service

import "sync"

// Change actions.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Change is a catalog mutation.
type Change struct {
	Action string `json:"action" enum:"created,updated,deleted"`
	ID     string `json:"id"`
}

// ChangeBus fans catalog changes out to subscribers.
type ChangeBus struct {
	mu   sync.RWMutex
	subs map[chan Change]struct{}
}

// NewChangeBus creates an empty bus.
func NewChangeBus() *ChangeBus {
	return &ChangeBus{subs: make(map[chan Change]struct{})}
}

// Publish sends a change to all subscribers without blocking.
func (b *ChangeBus) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel of changes.
func (b *ChangeBus) Subscribe() chan Change {
	ch := make(chan Change, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *ChangeBus) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
