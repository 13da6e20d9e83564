package server

import (
	"sync"

	"legacylift/internal/pipeline"
)

const subscriberBuffer = 32

// Broker fans pipeline events out to the progress sockets of one session.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan pipeline.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan pipeline.Event]struct{})}
}

// Subscribe registers a listener for sessionID. The cancel func closes the
// channel and is safe to call more than once.
func (b *Broker) Subscribe(sessionID string) (<-chan pipeline.Event, func()) {
	ch := make(chan pipeline.Event, subscriberBuffer)
	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[chan pipeline.Event]struct{})
		b.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Publish never blocks: a slow subscriber loses its oldest event.
func (b *Broker) Publish(sessionID string, e pipeline.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[sessionID] {
		push(ch, e)
	}
}

func push(ch chan pipeline.Event, e pipeline.Event) {
	select {
	case ch <- e:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}
