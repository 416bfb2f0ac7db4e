package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// memoryCleanupInterval is how often expired entries are swept out.
const memoryCleanupInterval = time.Minute

// DefaultCacheMaxEntries bounds the in-memory cache when no limit is
// configured.
const DefaultCacheMaxEntries = 1024

// MemoryCacheStore is an in-memory CacheStore with per-entry TTL expiry
// and least-recently-used eviction once the entry limit is reached.
type MemoryCacheStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryCacheEntry
	maxEntries int

	stopCh   chan struct{}
	stopOnce sync.Once
}

type memoryCacheEntry struct {
	response       *ir.ChatResponse
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// NewMemoryCacheStore returns a store holding at most maxEntries
// responses. A background goroutine sweeps expired entries until Close
// is called.
func NewMemoryCacheStore(maxEntries int) *MemoryCacheStore {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	s := &MemoryCacheStore{
		entries:    make(map[string]*memoryCacheEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Get implements CacheStore. Responses are returned as deep copies so
// callers cannot mutate cached state.
func (s *MemoryCacheStore) Get(ctx context.Context, key string) (*ir.ChatResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	e.lastAccessedAt = time.Now()
	return e.response.Clone(), true, nil
}

// Set implements CacheStore, evicting the least recently used entry
// when the store is full.
func (s *MemoryCacheStore) Set(ctx context.Context, key string, resp *ir.ChatResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	now := time.Now()
	s.entries[key] = &memoryCacheEntry{
		response:       resp.Clone(),
		expiresAt:      now.Add(ttl),
		lastAccessedAt: now,
	}
	return nil
}

// Len returns the current entry count.
func (s *MemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *MemoryCacheStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// evictOldest removes the least recently accessed entry. Caller holds
// the write lock.
func (s *MemoryCacheStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range s.entries {
		if oldestKey == "" || e.lastAccessedAt.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryCacheStore) cleanupLoop() {
	ticker := time.NewTicker(memoryCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryCacheStore) removeExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
