package provider

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// CacheStats represents cache performance metrics
type CacheStats struct {
	Size      int           `json:"size"`
	MaxSize   int           `json:"max_size"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Evictions int64         `json:"evictions"`
	TTL       time.Duration `json:"ttl"`
}

type cacheEntry struct {
	key       string
	provider  PaymentProvider
	createdAt time.Time
	element   *list.Element
}

// ProviderCache keeps initialized providers per tenant, bounded by size and age
type ProviderCache struct {
	entries map[string]*cacheEntry
	order   *list.List // most recently used at front
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex

	hits      int64
	misses    int64
	evictions int64
}

// NewProviderCache creates a new in-memory provider cache. A ttl of zero disables expiry.
func NewProviderCache(maxSize int, ttl time.Duration) *ProviderCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &ProviderCache{
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(tenantID, providerName string) string {
	return strings.ToUpper(tenantID) + "/" + strings.ToLower(providerName)
}

// Get returns a cached provider or nil
func (c *ProviderCache) Get(tenantID, providerName string) PaymentProvider {
	key := cacheKey(tenantID, providerName)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}

	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		c.remove(entry)
		c.misses++
		return nil
	}

	c.order.MoveToFront(entry.element)
	c.hits++
	return entry.provider
}

// Set stores a provider, evicting the least recently used entry when full
func (c *ProviderCache) Set(tenantID, providerName string, p PaymentProvider) {
	key := cacheKey(tenantID, providerName)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.provider = p
		entry.createdAt = c.now()
		c.order.MoveToFront(entry.element)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*cacheEntry))
		c.evictions++
	}

	entry := &cacheEntry{key: key, provider: p, createdAt: c.now()}
	entry.element = c.order.PushFront(entry)
	c.entries[key] = entry
}

// Delete drops the cached provider for a tenant
func (c *ProviderCache) Delete(tenantID, providerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[cacheKey(tenantID, providerName)]; ok {
		c.remove(entry)
	}
}

// Stats returns cache statistics
func (c *ProviderCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		TTL:       c.ttl,
	}
}

// remove must be called with c.mu held
func (c *ProviderCache) remove(entry *cacheEntry) {
	c.order.Remove(entry.element)
	delete(c.entries, entry.key)
}
