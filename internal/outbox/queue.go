// Package outbox is the durable write queue: operations attempted while
// offline are persisted here and drained with bounded backoff once the
// network returns. The queue never understands payloads; producers register
// typed handlers per op.
package outbox

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/store"
)

// Operation types carried by queue items.
const (
	OpCreateReport  = "report.create"
	OpCreateComment = "comment.create"
)

// IdempotencyKey derives a stable key from an operation and its payload.
// The payload is canonicalized through a map round-trip so field order in
// the producer's struct never changes the key; encoding/json emits map keys
// sorted.
func IdempotencyKey(op string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(append([]byte(op+"\n"), canonical...))
	return hex.EncodeToString(sum[:]), nil
}

// Enqueue persists a new pending item unless one with the same idempotency
// key is already active. Returns the item and whether it was newly queued.
// Persisting happens before returning, so a process restart cannot lose the
// queued write.
func Enqueue(db *store.DB, b *bus.Bus, op string, payload any, idempotencyKey string) (*store.OutboxItem, bool, error) {
	exists, err := db.OutboxExists(idempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}
	if exists {
		return nil, false, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode payload: %w", err)
	}
	item := &store.OutboxItem{
		ID:             uuid.NewString(),
		Op:             op,
		Payload:        raw,
		IdempotencyKey: idempotencyKey,
	}
	if err := db.QueueOutbox(item); err != nil {
		return nil, false, fmt.Errorf("queue outbox: %w", err)
	}

	publish(b, bus.KindOutboxQueued, map[string]string{"id": item.ID, "op": op})
	return item, true, nil
}

// RetryFailed returns every failed item to pending, due immediately.
// Retry counts are preserved, so the next failure backs off from where it
// stopped instead of restarting the schedule after an outage.
func RetryFailed(db *store.DB, b *bus.Bus) (int64, error) {
	n, err := db.ResetFailedOutbox(time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		publish(b, bus.KindOutboxQueued, map[string]int64{"retried": n})
	}
	return n, nil
}

// CancelDraft removes a queued item outright, e.g. when the user discards
// an offline-created draft before it syncs.
func CancelDraft(db *store.DB, b *bus.Bus, id string) error {
	item, err := db.OutboxByID(id)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	if err := db.DeleteOutbox(id); err != nil {
		return err
	}
	publish(b, bus.KindOutboxCancelled, map[string]string{"id": id, "op": item.Op})
	return nil
}

func publish(b *bus.Bus, kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
