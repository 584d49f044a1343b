// Package cache provides a size-bounded LRU map whose entries also expire after a TTL.
package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"go.uber.org/zap"
)

// Stats is a point-in-time view of cache activity
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
}

// Cache is safe for concurrent use. A zero TTL disables expiry.
type Cache[V any] struct {
	mu     sync.Mutex
	lru    *lru.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	// expiry per key; lru.Cache cannot be inspected without touching recency
	expires map[string]time.Time
	stats   Stats
	// set while an explicit removal runs so OnEvicted only counts capacity evictions
	removing bool
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *zap.Logger
	name   string
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger logs evictions and expirations at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithName labels log lines from this cache
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New creates a cache holding at most maxEntries values. maxEntries <= 0 means unbounded.
func New[V any](maxEntries int, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now, name: "cache"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if maxEntries < 0 {
		maxEntries = 0
	}

	c := &Cache[V]{
		lru:     lru.New(maxEntries),
		ttl:     ttl,
		now:     o.now,
		logger:  o.logger.With(zap.String("cache", o.name)),
		expires: make(map[string]time.Time),
	}
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		k := key.(string)
		delete(c.expires, k)
		if c.removing {
			return
		}
		c.stats.Evictions++
		c.logger.Debug("cache entry evicted", zap.String("key", k))
	}
	return c
}

// Get returns the value for key if present and not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.expiredLocked(key, c.now()) {
		c.removeLocked(key)
		c.stats.Expired++
		c.stats.Misses++
		c.logger.Debug("cache entry expired", zap.String("key", key))
		return zero, false
	}
	raw, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	c.stats.Hits++
	return raw.(V), true
}

// Set stores value under key, refreshing its TTL and recency
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, value)
	if c.ttl > 0 {
		c.expires[key] = c.now().Add(c.ttl)
	}
}

// Delete removes key, reporting whether it was present
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lru.Get(key); !ok {
		return false
	}
	c.removeLocked(key)
	return true
}

// PruneExpired drops every expired entry and returns how many were removed
func (c *Cache[V]) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var stale []string
	for key := range c.expires {
		if c.expiredLocked(key, now) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		c.removeLocked(key)
	}
	c.stats.Expired += uint64(len(stale))
	if len(stale) > 0 {
		c.logger.Debug("cache pruned expired entries", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len returns the number of stored entries, expired ones included until pruned
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge empties the cache
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removing = true
	c.lru.Clear()
	c.removing = false
	c.expires = make(map[string]time.Time)
	c.logger.Debug("cache purged")
}

// Stats returns the counters accumulated since creation
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

func (c *Cache[V]) expiredLocked(key string, now time.Time) bool {
	at, ok := c.expires[key]
	return ok && !now.Before(at)
}

func (c *Cache[V]) removeLocked(key string) {
	c.removing = true
	c.lru.Remove(key)
	c.removing = false
	delete(c.expires, key)
}
