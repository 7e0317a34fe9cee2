package ollama

import (
	"context"
	"slices"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

// CachedEmbedder wraps an Embedder with an in-memory LRU cache keyed on
// normalized text.
type CachedEmbedder struct {
	inner   domain.Embedder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedEmbedder creates a cache decorator around an embedder.
func NewCachedEmbedder(inner domain.Embedder, maxEntries int, metrics *observability.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Embed returns the cached vector for text, calling the inner embedder on a
// miss. Callers own the returned slice.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := domain.Normalize(text)
	if vec, ok := c.cache.get(key); ok {
		c.metrics.EmbedCache.WithLabelValues("hit").Inc()
		return slices.Clone(vec), nil
	}
	c.metrics.EmbedCache.WithLabelValues("miss").Inc()

	vec, err := c.inner.Embed(ctx, key)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty vectors so a transient empty answer can be retried.
	if len(vec) > 0 {
		c.cache.put(key, slices.Clone(vec))
	}
	return vec, nil
}

// lruCache is a simple thread-safe LRU cache of embeddings.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []float32
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
