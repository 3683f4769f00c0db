package bus

import "time"

// Event kinds published by the data layer. Subscribers filter by prefix,
// so "outbox." matches every outbox event.
const (
	KindMirrorUpdated       = "mirror.updated"
	KindSyncRefreshed       = "sync.refreshed"
	KindOutboxQueued        = "outbox.queued"
	KindOutboxSyncing       = "outbox.syncing"
	KindOutboxSynced        = "outbox.synced"
	KindOutboxFailed        = "outbox.failed"
	KindOutboxConflict      = "outbox.conflict"
	KindOutboxCancelled     = "outbox.cancelled"
	KindConnectivityChanged = "connectivity.changed"
	KindCacheSwept          = "cache.swept"
)

// Event represents a data-layer event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
