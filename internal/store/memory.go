package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemoryRuns = 64
	DefaultMemoryTTL  = time.Hour
)

// MemoryStore keeps the files of the most recent runs in memory. A run is
// evicted whole once maxRuns newer runs exist or its TTL passes.
type MemoryStore struct {
	mu   sync.Mutex
	runs *expirable.LRU[string, map[string][]byte]
}

func NewMemoryStore(maxRuns int, ttl time.Duration) *MemoryStore {
	if maxRuns <= 0 {
		maxRuns = DefaultMemoryRuns
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryStore{
		runs: expirable.NewLRU[string, map[string][]byte](maxRuns, nil, ttl),
	}
}

func (s *MemoryStore) Put(_ context.Context, runID, p string, content []byte) error {
	runID, p, err := normalize(runID, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.runs.Get(runID)
	if !ok {
		files = make(map[string][]byte, 4)
	}
	files[p] = append([]byte(nil), content...)
	s.runs.Add(runID, files)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID, p string) ([]byte, error) {
	runID, p, err := normalize(runID, p)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.runs.Get(runID)
	if !ok {
		return nil, ErrNotFound
	}
	raw, ok := files[p]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
