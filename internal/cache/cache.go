// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ContentCache memoizes converted detail-page content by item URL with LRU
// eviction, so records revisited across cycles or sessions never cost a
// second navigation.
type ContentCache struct {
	store   map[string]*list.Element
	lruList *list.List
	mu      sync.RWMutex
	maxSize int64 // Maximum total content bytes
	size    int64
	ttl     time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	hits    uint64
	misses  uint64
}

type entry struct {
	key       string
	content   string
	expiresAt time.Time
}

// NewContentCache creates a content cache bounded by total bytes. Entries
// older than ttl are dropped by a background janitor.
func NewContentCache(maxSizeBytes int64, ttl time.Duration) *ContentCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 50 * 1024 * 1024 // Default: 50MB
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &ContentCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		ttl:     ttl,
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.janitor()
	return c
}

// Get returns the cached content for key, refreshing its LRU position.
func (c *ContentCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.store[key]
	if !ok {
		c.misses++
		return "", false
	}

	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeLocked(el)
		c.misses++
		return "", false
	}

	c.lruList.MoveToFront(el)
	c.hits++
	return e.content, true
}

// Set stores content under key, evicting least-recently-used entries until
// the byte budget holds.
func (c *ContentCache) Set(key, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.store[key]; ok {
		c.removeLocked(el)
	}

	e := &entry{key: key, content: content, expiresAt: time.Now().Add(c.ttl)}
	el := c.lruList.PushFront(e)
	c.store[key] = el
	c.size += int64(len(content))

	for c.size > c.maxSize && c.lruList.Len() > 1 {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.removeLocked(oldest)
		log.Debug().Str("key", evicted.key).Msg("Evicted cached content")
	}
}

// Len reports the number of cached entries.
func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lruList.Len()
}

// Stats reports accumulated hit and miss counts.
func (c *ContentCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear removes all cached content.
func (c *ContentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*list.Element)
	c.lruList.Init()
	c.size = 0
}

// Close stops the janitor goroutine.
func (c *ContentCache) Close() {
	c.cancel()
}

func (c *ContentCache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.lruList.Remove(el)
	delete(c.store, e.key)
	c.size -= int64(len(e.content))
}

// janitor periodically drops expired entries.
func (c *ContentCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for el := c.lruList.Back(); el != nil; {
				prev := el.Prev()
				if e := el.Value.(*entry); now.After(e.expiresAt) {
					c.removeLocked(el)
				}
				el = prev
			}
			c.mu.Unlock()
		}
	}
}
