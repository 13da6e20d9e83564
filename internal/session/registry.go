package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultMaxSessions = 1024

// Registry maps session ids to slots, evicting the least recently used
// idle session once full. A session whose action is still running is parked
// until the action finishes, so its result is not lost.
type Registry struct {
	mu    sync.Mutex
	slots *lru.Cache[string, *Slot]
	busy  map[string]*Slot
}

func NewRegistry(maxSessions int) (*Registry, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	r := &Registry{busy: make(map[string]*Slot)}
	cache, err := lru.NewWithEvict[string, *Slot](maxSessions, r.onEvict)
	if err != nil {
		return nil, err
	}
	r.slots = cache
	return r, nil
}

// onEvict runs synchronously inside slots.Add, which is only called with
// r.mu held.
func (r *Registry) onEvict(id string, s *Slot) {
	if s.Running() {
		r.busy[id] = s
	}
}

// NewID mints a session id.
func NewID() string { return uuid.NewString() }

// Get returns the slot for id, creating it when absent. An empty or
// malformed id gets a fresh one; the returned id is the one to keep.
func (r *Registry) Get(id string) (string, *Slot) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		id = NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for parked, s := range r.busy {
		if !s.Running() {
			delete(r.busy, parked)
		}
	}
	if s, ok := r.slots.Get(id); ok {
		return id, s
	}
	s, ok := r.busy[id]
	if ok {
		delete(r.busy, id)
	} else {
		s = &Slot{}
	}
	r.slots.Add(id, s)
	return id, s
}
