// Package session holds the current bundle for each user session.
package session

import (
	"errors"
	"sync"

	"legacylift/internal/artifact"
)

var ErrBusy = errors.New("a migration is already running for this session")

// Slot holds at most one bundle. A bundle is only ever replaced whole.
type Slot struct {
	mu      sync.RWMutex
	bundle  *artifact.Bundle
	running bool
	lastErr string
}

// Current returns the bundle, or nil if no run has completed.
func (s *Slot) Current() *artifact.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// Replace swaps in b. A nil bundle leaves the slot untouched.
func (s *Slot) Replace(b *artifact.Bundle) {
	if b == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = b
	s.lastErr = ""
}

// Fail records a user-facing error for the latest action and keeps the
// bundle.
func (s *Slot) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}

// LastError returns the message of the latest failed action, if any.
func (s *Slot) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Begin marks an action as running. The returned func ends it; calling it
// more than once is harmless.
func (s *Slot) Begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrBusy
	}
	s.running = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		})
	}, nil
}

func (s *Slot) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
