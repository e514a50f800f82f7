package embedding

import (
	"container/list"
	"context"
	"sync"
)

// Cache is an LRU of embeddings keyed by the exact input text.
type Cache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
	hits     uint64
	misses   uint64
	mu       sync.Mutex
}

type cacheEntry struct {
	text string
	vec  []float32
}

// NewCache creates a cache holding at most capacity embeddings. A non-positive capacity
// disables caching.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the cached embedding for text.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return append([]float32(nil), elem.Value.(*cacheEntry).vec...), true
}

// Put stores vec for text, evicting the least recently used entry when full.
func (c *Cache) Put(text string, vec []float32) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := append([]float32(nil), vec...)
	if elem, ok := c.items[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).vec = stored
		return
	}
	c.items[text] = c.order.PushFront(&cacheEntry{text: text, vec: stored})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).text)
	}
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CachedEmbedder puts a Cache in front of another embedder.
type CachedEmbedder struct {
	Embedder
	cache *Cache
}

// WithCache wraps e so repeated texts are embedded once.
func WithCache(e Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewCache(capacity)}
}

// Embed returns the cached vector for text or asks the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Put(text, v)
	return v, nil
}

// EmbedBatch embeds each text through the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, c.Embed)
}

// Cache exposes the underlying cache for status reporting.
func (c *CachedEmbedder) Cache() *Cache { return c.cache }
