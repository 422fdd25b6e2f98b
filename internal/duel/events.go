package duel

import "sync"

// EventType tags what a published event describes.
type EventType string

const (
	// EventState follows every accepted move, reset, or forced override.
	EventState EventType = "state"
	// EventThinking marks negotiation start and end.
	EventThinking EventType = "thinking"
)

// Event is one controller notification with the session state at publish time.
type Event struct {
	Type      EventType
	SessionID string
	Snapshot  Snapshot
}

// bus is an in-process fan-out of controller events. Publishing never blocks:
// a subscriber that cannot keep up loses events rather than stalling a turn.
type bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan Event)}
}

// subscribe registers a buffered listener and returns its channel plus an
// unsubscribe func. The channel closes on unsubscribe or bus shutdown.
func (b *bus) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *bus) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
