package store

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		// Presigned URLs expire after an hour; keep them well inside that.
		URLTTL:        5 * time.Minute,
		URLMaxEntries: 256,
	}
}

func (c CacheConfig) withDefaults() CacheConfig {
	def := DefaultCacheConfig()
	if c.BlobTTL <= 0 {
		c.BlobTTL = def.BlobTTL
	}
	if c.BlobMaxEntries <= 0 {
		c.BlobMaxEntries = def.BlobMaxEntries
	}
	if c.URLTTL <= 0 {
		c.URLTTL = def.URLTTL
	}
	if c.URLMaxEntries <= 0 {
		c.URLMaxEntries = def.URLMaxEntries
	}
	return c
}

type MetricsSnapshot struct {
	BlobHits       uint64 `json:"blob_hits"`
	BlobMisses     uint64 `json:"blob_misses"`
	URLHits        uint64 `json:"url_hits"`
	URLMisses      uint64 `json:"url_misses"`
	OriginReads    uint64 `json:"origin_reads"`
	OriginWrites   uint64 `json:"origin_writes"`
	OriginReadErr  uint64 `json:"origin_read_errors"`
	OriginWriteErr uint64 `json:"origin_write_errors"`
}

type metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	urlHits        atomic.Uint64
	urlMisses      atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

// CachedStore is a read-through, write-through cache in front of a remote
// store, so repeated downloads of the current bundle skip the origin.
type CachedStore struct {
	origin Store

	blobs *expirable.LRU[string, []byte]
	urls  *expirable.LRU[string, string]
	m     metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	cfg = cfg.withDefaults()
	return &CachedStore{
		origin: origin,
		blobs:  expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		urls:   expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, runID, p string, content []byte) error {
	s.m.originWrites.Add(1)
	if err := s.origin.Put(ctx, runID, p, content); err != nil {
		s.m.originWriteErr.Add(1)
		return err
	}
	key := cacheKey(runID, p)
	s.blobs.Add(key, append([]byte(nil), content...))
	s.urls.Remove(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, p string) ([]byte, error) {
	key := cacheKey(runID, p)
	if raw, ok := s.blobs.Get(key); ok {
		s.m.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.m.blobMisses.Add(1)
	s.m.originReads.Add(1)

	raw, err := s.origin.Get(ctx, runID, p)
	if err != nil {
		s.m.originReadErr.Add(1)
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) GetURL(ctx context.Context, runID, p string) (string, error) {
	key := cacheKey(runID, p)
	if u, ok := s.urls.Get(key); ok {
		s.m.urlHits.Add(1)
		return u, nil
	}
	s.m.urlMisses.Add(1)
	s.m.originReads.Add(1)

	u, err := s.origin.GetURL(ctx, runID, p)
	if err != nil {
		s.m.originReadErr.Add(1)
		return "", err
	}
	if strings.TrimSpace(u) != "" {
		s.urls.Add(key, u)
	}
	return u, nil
}

// Metrics reports cache effectiveness and origin traffic since start.
func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		BlobHits:       s.m.blobHits.Load(),
		BlobMisses:     s.m.blobMisses.Load(),
		URLHits:        s.m.urlHits.Load(),
		URLMisses:      s.m.urlMisses.Load(),
		OriginReads:    s.m.originReads.Load(),
		OriginWrites:   s.m.originWrites.Load(),
		OriginReadErr:  s.m.originReadErr.Load(),
		OriginWriteErr: s.m.originWriteErr.Load(),
	}
}

func cacheKey(runID, p string) string {
	return strings.TrimSpace(runID) + "/" + strings.TrimLeft(strings.TrimSpace(p), "/")
}
