package ratelimit

import (
	"sync"
	"time"
)

// Store keeps, per key, the timestamps of recent hits. Implementations may
// be backed by memory or an external store; callers only see this interface.
type Store interface {
	// Count returns how many hits of key fall inside (now-window, now] and
	// the oldest of them.
	Count(key string, now time.Time, window time.Duration) (int, time.Time, error)
	// Add records a hit at now.
	Add(key string, now time.Time, window time.Duration) error
	// Purge drops every timestamp older than now-window.
	Purge(now time.Time, window time.Duration) error
	Close() error
}

// MemoryStore is an in-process Store with an optional janitor goroutine.
type MemoryStore struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	stop   chan struct{}
	closed sync.Once
}

// NewMemoryStore creates a store. When cleanupEvery > 0 a janitor purges
// entries older than window at that interval until Close.
func NewMemoryStore(cleanupEvery, window time.Duration) *MemoryStore {
	s := &MemoryStore{
		hits: make(map[string][]time.Time),
		stop: make(chan struct{}),
	}
	if cleanupEvery > 0 && window > 0 {
		go s.cleanupRoutine(cleanupEvery, window)
	}
	return s
}

func (s *MemoryStore) Count(key string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.prune(key, now, window)
	if len(kept) == 0 {
		return 0, time.Time{}, nil
	}
	return len(kept), kept[0], nil
}

func (s *MemoryStore) Add(key string, now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.prune(key, now, window)
	s.hits[key] = append(kept, now)
	return nil
}

// prune drops expired timestamps of key. Timestamps are appended in call
// order, so the expired ones form a prefix.
func (s *MemoryStore) prune(key string, now time.Time, window time.Duration) []time.Time {
	list := s.hits[key]
	cutoff := now.Add(-window)
	i := 0
	for i < len(list) && !list[i].After(cutoff) {
		i++
	}
	if i == len(list) {
		delete(s.hits, key)
		return nil
	}
	if i > 0 {
		list = append(list[:0:0], list[i:]...)
		s.hits[key] = list
	}
	return list
}

func (s *MemoryStore) Purge(now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.hits {
		s.prune(key, now, window)
	}
	return nil
}

// Keys returns the number of keys with live hits.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (s *MemoryStore) Close() error {
	s.closed.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanupRoutine(every, window time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.Purge(now, window)
		}
	}
}
