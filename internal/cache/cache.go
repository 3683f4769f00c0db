// Package cache is a keyed TTL cache for derived payloads (weather bundles,
// home-screen aggregates) where full mirroring is unnecessary but a degraded
// fallback is still wanted. Entries expire instead of being replaced; stale
// entries remain readable until swept.
package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/store"
)

// Entry is a cache hit. Stale is recomputed on every read; the persisted
// row never stores a staleness flag, since real time has moved since write.
type Entry struct {
	Key       string
	Data      []byte
	CachedAt  time.Time
	ExpiresAt time.Time
	Stale     bool
}

// Cache wraps the cache_entries table with per-scope TTL semantics.
// Like the mirror, it fails open: storage errors read as "not cached".
type Cache struct {
	db   *store.DB
	log  *zap.Logger
	ttls map[string]time.Duration
	now  func() time.Time
}

// DefaultTTL applies to scopes without an explicit entry.
const DefaultTTL = 30 * time.Minute

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL overrides the TTL for one scope.
func WithTTL(scope string, ttl time.Duration) Option {
	return func(c *Cache) { c.ttls[scope] = ttl }
}

// WithClock injects a time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the default per-scope TTLs: 30 minutes for
// home/insights-class data, 60 minutes for forecast/marine-class data.
func New(db *store.DB, log *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		db:  db,
		log: log,
		ttls: map[string]time.Duration{
			ScopeHome:     30 * time.Minute,
			ScopeInsights: 30 * time.Minute,
			ScopeBundle:   30 * time.Minute,
			ScopePreset:   30 * time.Minute,
			ScopeForecast: 60 * time.Minute,
			ScopeMarine:   60 * time.Minute,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured TTL for a scope.
func (c *Cache) TTL(scope string) time.Duration {
	if ttl, ok := c.ttls[scope]; ok {
		return ttl
	}
	return DefaultTTL
}

// Get returns the entry for key, possibly stale, or nil when absent.
func (c *Cache) Get(key string) *Entry {
	row, err := c.db.GetCacheEntry(key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if row == nil {
		return nil
	}
	expiresAt := time.UnixMilli(row.ExpiresAt)
	return &Entry{
		Key:       key,
		Data:      row.Payload,
		CachedAt:  time.UnixMilli(row.CachedAt),
		ExpiresAt: expiresAt,
		Stale:     !c.now().Before(expiresAt),
	}
}

// Set overwrites the entry for key with data, expiring after the scope TTL.
// Best-effort: a storage failure is logged and swallowed.
func (c *Cache) Set(key string, data []byte, scope string) {
	now := c.now()
	expiresAt := now.Add(c.TTL(scope))
	if err := c.db.SetCacheEntry(key, data, now.UnixMilli(), expiresAt.UnixMilli()); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ClearExpired sweeps every entry whose expiry has passed and returns the
// count. Meant to run opportunistically (daemon start), not on a timer.
func (c *Cache) ClearExpired() int64 {
	n, err := c.db.DeleteExpiredCache(c.now().UnixMilli())
	if err != nil {
		c.log.Warn("cache sweep failed", zap.Error(err))
		return 0
	}
	return n
}

// ClearAll unconditionally empties the cache.
func (c *Cache) ClearAll() {
	if err := c.db.ClearCache(); err != nil {
		c.log.Warn("cache clear failed", zap.Error(err))
	}
}
