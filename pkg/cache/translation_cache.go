// Package cache memoizes segment translations so repeated utterances in a
// transcript, or a re-run of the same job, do not hit the backend again.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry is one cached translation.
type Entry struct {
	Key       string
	Value     string
	CreatedAt time.Time
	HitCount  int64
}

// Stats reports cache effectiveness.
type Stats struct {
	Size    int   `json:"size"`
	MaxSize int   `json:"maxSize"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// TranslationCache is a size-bounded LRU with a per-entry TTL.
type TranslationCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewTranslationCache creates a cache holding up to maxSize entries. A
// non-positive ttl keeps entries until they are evicted.
func NewTranslationCache(maxSize int, ttl time.Duration) *TranslationCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TranslationCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for one segment call.
func Key(strategy, target, text string) string {
	sum := sha256.Sum256([]byte(strategy + "\x00" + target + "\x00" + text))
	return strategy + ":" + target + ":" + hex.EncodeToString(sum[:])[:32]
}

// Get returns the cached value for key if present and not expired.
func (c *TranslationCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	entry := el.Value.(*Entry)
	if c.expired(entry) {
		c.remove(el)
		c.misses++
		return "", false
	}
	entry.HitCount++
	c.hits++
	c.order.MoveToFront(el)
	return entry.Value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *TranslationCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*Entry)
		entry.Value = value
		entry.CreatedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(&Entry{Key: key, Value: value, CreatedAt: c.now()})
}

// Clear removes every entry.
func (c *TranslationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *TranslationCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), MaxSize: c.maxSize, Hits: c.hits, Misses: c.misses}
}

func (c *TranslationCache) expired(e *Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *TranslationCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*Entry).Key)
}
