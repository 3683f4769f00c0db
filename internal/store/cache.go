package store

import "database/sql"

// GetCacheEntry returns a cache entry by key, or nil when absent. Staleness
// is computed by the caller at read time, never read from the row.
func (db *DB) GetCacheEntry(key string) (*CacheEntry, error) {
	var e CacheEntry
	err := db.QueryRow(`
		SELECT key, payload, cached_at, expires_at FROM cache_entries WHERE key = ?`, key).
		Scan(&e.Key, &e.Payload, &e.CachedAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SetCacheEntry inserts or overwrites a cache entry.
func (db *DB) SetCacheEntry(key string, payload []byte, cachedAt, expiresAt int64) error {
	_, err := db.Exec(`
		INSERT INTO cache_entries (key, payload, cached_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, payload, cachedAt, expiresAt)
	return err
}

// DeleteExpiredCache removes every entry whose expiry has passed, returning
// the number deleted.
func (db *DB) DeleteExpiredCache(now int64) (int64, error) {
	res, err := db.Exec(`DELETE FROM cache_entries WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearCache unconditionally empties the cache store.
func (db *DB) ClearCache() error {
	_, err := db.Exec(`DELETE FROM cache_entries`)
	return err
}

// CacheCount returns the total number of cache entries.
func (db *DB) CacheCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	return count, err
}
