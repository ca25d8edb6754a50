package storage

import (
	"container/list"
	"sync"
	"time"
)

type cacheItem[V any] struct {
	key       string
	value     V
	timestamp time.Time
	element   *list.Element
}

// MemoryCache is an LRU cache with optional idle TTL. Reads refresh both
// recency and the TTL clock.
type MemoryCache[V any] struct {
	maxSize int
	ttl     time.Duration
	items   map[string]*cacheItem[V]
	lruList *list.List
	mu      sync.Mutex
	now     func() time.Time
	onEvict func(key string, value V)
	stop    chan struct{}
	closed  sync.Once
}

// NewMemoryCache creates a cache holding at most maxSize entries. When
// ttl > 0, idle entries expire and a cleanup goroutine runs until Close.
func NewMemoryCache[V any](maxSize int, ttl time.Duration) *MemoryCache[V] {
	if maxSize <= 0 {
		maxSize = 1024
	}
	cache := &MemoryCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*cacheItem[V]),
		lruList: list.New(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if ttl > 0 {
		go cache.cleanupRoutine()
	}

	return cache
}

// OnEvict registers a callback for entries dropped by capacity or TTL.
func (mc *MemoryCache[V]) OnEvict(fn func(key string, value V)) {
	mc.mu.Lock()
	mc.onEvict = fn
	mc.mu.Unlock()
}

func (mc *MemoryCache[V]) Set(key string, value V) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if item, exists := mc.items[key]; exists {
		item.value = value
		item.timestamp = now
		mc.lruList.MoveToFront(item.element)
		return
	}

	item := &cacheItem[V]{key: key, value: value, timestamp: now}
	item.element = mc.lruList.PushFront(item)
	mc.items[key] = item

	for len(mc.items) > mc.maxSize {
		mc.evictOldest()
	}
}

func (mc *MemoryCache[V]) Get(key string) (V, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var zero V
	item, exists := mc.items[key]
	if !exists {
		return zero, false
	}

	now := mc.now()
	if mc.ttl > 0 && now.Sub(item.timestamp) > mc.ttl {
		mc.evict(item)
		return zero, false
	}

	item.timestamp = now
	mc.lruList.MoveToFront(item.element)
	return item.value, true
}

// Delete removes key without calling the eviction callback.
func (mc *MemoryCache[V]) Delete(key string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, exists := mc.items[key]
	if exists {
		mc.deleteItem(item)
	}
	return exists
}

func (mc *MemoryCache[V]) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.items)
}

// Stats returns cache statistics
func (mc *MemoryCache[V]) Stats() CacheStats {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return CacheStats{
		Size:    len(mc.items),
		MaxSize: mc.maxSize,
		TTL:     mc.ttl,
	}
}

func (mc *MemoryCache[V]) Close() error {
	mc.closed.Do(func() { close(mc.stop) })
	return nil
}

func (mc *MemoryCache[V]) evictOldest() {
	if element := mc.lruList.Back(); element != nil {
		mc.evict(element.Value.(*cacheItem[V]))
	}
}

func (mc *MemoryCache[V]) evict(item *cacheItem[V]) {
	mc.deleteItem(item)
	if mc.onEvict != nil {
		mc.onEvict(item.key, item.value)
	}
}

func (mc *MemoryCache[V]) deleteItem(item *cacheItem[V]) {
	delete(mc.items, item.key)
	mc.lruList.Remove(item.element)
}

func (mc *MemoryCache[V]) cleanupRoutine() {
	ticker := time.NewTicker(mc.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			mc.cleanupExpired()
		}
	}
}

func (mc *MemoryCache[V]) cleanupExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	var expired []*cacheItem[V]
	for _, item := range mc.items {
		if now.Sub(item.timestamp) > mc.ttl {
			expired = append(expired, item)
		}
	}
	for _, item := range expired {
		mc.evict(item)
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	TTL     time.Duration `json:"ttl"`
}
