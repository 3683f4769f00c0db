// Package mirror provides fail-open, per-entity collections over the local
// mirror database. The mirror exists to keep the UI usable when the network
// is degraded, so no read or write here ever surfaces a storage error:
// failures are logged and collapsed to empty/absent results.
package mirror

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/store"
)

// Def describes one entity type: its storage namespace, how to extract a
// record's identifier, and the listing order the UI expects. A nil Sort
// keeps insertion order.
type Def[T any] struct {
	Entity string
	ID     func(T) string
	Sort   func([]T)
}

// Collection is a typed view over one entity namespace.
type Collection[T any] struct {
	db  *store.DB
	def Def[T]
	log *zap.Logger
}

// NewCollection builds a collection for the given entity definition.
func NewCollection[T any](db *store.DB, def Def[T], log *zap.Logger) *Collection[T] {
	return &Collection[T]{db: db, def: def, log: log}
}

// Entity returns the storage namespace of this collection.
func (c *Collection[T]) Entity() string { return c.def.Entity }

// GetAll reads every record of the entity, in the entity's listing order.
// On storage or decode failure it logs and returns what it could read.
func (c *Collection[T]) GetAll() []T {
	payloads, err := c.db.ListRecords(c.def.Entity)
	if err != nil {
		c.log.Warn("mirror read failed", zap.String("entity", c.def.Entity), zap.Error(err))
		return nil
	}

	recs := make([]T, 0, len(payloads))
	for _, p := range payloads {
		var rec T
		if err := json.Unmarshal(p, &rec); err != nil {
			c.log.Warn("mirror record corrupt, skipping",
				zap.String("entity", c.def.Entity), zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	if c.def.Sort != nil {
		c.def.Sort(recs)
	}
	return recs
}

// GetByID returns a record by identifier, nil when absent or unreadable.
func (c *Collection[T]) GetByID(id string) *T {
	payload, err := c.db.GetRecord(c.def.Entity, id)
	if err != nil {
		c.log.Warn("mirror read failed",
			zap.String("entity", c.def.Entity), zap.String("id", id), zap.Error(err))
		return nil
	}
	if payload == nil {
		return nil
	}
	var rec T
	if err := json.Unmarshal(payload, &rec); err != nil {
		c.log.Warn("mirror record corrupt",
			zap.String("entity", c.def.Entity), zap.String("id", id), zap.Error(err))
		return nil
	}
	return &rec
}

// Save upserts a single record. Best-effort: a storage failure is logged,
// not returned.
func (c *Collection[T]) Save(rec T) {
	payload, err := json.Marshal(rec)
	if err != nil {
		c.log.Warn("mirror encode failed", zap.String("entity", c.def.Entity), zap.Error(err))
		return
	}
	if err := c.db.PutRecord(c.def.Entity, c.def.ID(rec), payload); err != nil {
		c.log.Warn("mirror write failed", zap.String("entity", c.def.Entity), zap.Error(err))
	}
}

// SaveMany upserts multiple records in one transaction.
func (c *Collection[T]) SaveMany(recs []T) {
	inputs, ok := c.encode(recs)
	if !ok {
		return
	}
	if err := c.db.PutRecords(c.def.Entity, inputs); err != nil {
		c.log.Warn("mirror bulk write failed", zap.String("entity", c.def.Entity), zap.Error(err))
	}
}

// Replace clears the entity and writes recs, for authoritative full-list
// responses.
func (c *Collection[T]) Replace(recs []T) {
	inputs, ok := c.encode(recs)
	if !ok {
		return
	}
	if err := c.db.ReplaceRecords(c.def.Entity, inputs); err != nil {
		c.log.Warn("mirror replace failed", zap.String("entity", c.def.Entity), zap.Error(err))
	}
}

// Delete removes a record by identifier. No-op if absent.
func (c *Collection[T]) Delete(id string) {
	if err := c.db.DeleteRecord(c.def.Entity, id); err != nil {
		c.log.Warn("mirror delete failed",
			zap.String("entity", c.def.Entity), zap.String("id", id), zap.Error(err))
	}
}

// Clear removes every record of the entity.
func (c *Collection[T]) Clear() {
	if err := c.db.ClearEntity(c.def.Entity); err != nil {
		c.log.Warn("mirror clear failed", zap.String("entity", c.def.Entity), zap.Error(err))
	}
}

// Filter returns the records matching pred, in listing order. The mirror
// holds a bounded client-side working set, so a full scan is fine.
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	var out []T
	for _, rec := range c.GetAll() {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (c *Collection[T]) encode(recs []T) ([]store.RecordInput, bool) {
	inputs := make([]store.RecordInput, 0, len(recs))
	for _, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			c.log.Warn("mirror encode failed", zap.String("entity", c.def.Entity), zap.Error(err))
			return nil, false
		}
		inputs = append(inputs, store.RecordInput{ID: c.def.ID(rec), Payload: payload})
	}
	return inputs, true
}
