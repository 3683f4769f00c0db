package store

// Record is a raw mirror row: one domain entity serialized as JSON, keyed by
// its own identifier within an entity namespace.
type Record struct {
	Entity    string
	ID        string
	Payload   []byte
	CreatedAt int64
	UpdatedAt int64
}

// RecordInput is the write-side shape for Put operations.
type RecordInput struct {
	ID      string
	Payload []byte
}

// CacheEntry is a raw TTL cache row.
type CacheEntry struct {
	Key       string
	Payload   []byte
	CachedAt  int64
	ExpiresAt int64
}

// Outbox item statuses. Synced items are deleted on acknowledgement, so only
// pending, syncing and failed rows exist at rest.
const (
	OutboxPending = "pending"
	OutboxSyncing = "syncing"
	OutboxFailed  = "failed"
)

// OutboxItem is a deferred write operation. The payload is opaque to the
// queue; producers and consumers agree on its shape per op type.
type OutboxItem struct {
	ID             string
	Op             string
	Payload        []byte
	IdempotencyKey string
	Status         string
	RetryCount     int
	LastError      string
	NextAttemptAt  int64
	CreatedAt      int64
	UpdatedAt      int64
}
