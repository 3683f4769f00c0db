// Package resource implements the read/write orchestration the UI calls:
// network-first reads that refresh the local mirror and degrade to it when
// the backend is unreachable, and optimistic writes that land in the mirror
// immediately while the durable outbox carries them to the server.
package resource

import (
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/store"
)

// DefaultPerPage matches the backend's default page size, so mirror-served
// pages line up with network-served ones.
const DefaultPerPage = 20

// base carries the wiring every service shares.
type base struct {
	db      *store.DB
	client  *api.Client
	monitor *connectivity.Monitor
	bus     *bus.Bus
	log     *zap.Logger
}

// online reports whether a network attempt is worth making. With no monitor
// wired (tests, one-shot CLI use) the answer is always yes.
func (b *base) online() bool {
	return b.monitor == nil || b.monitor.Online()
}

// fallback reports whether err should degrade the read to the mirror rather
// than surface. Client-side mistakes (validation, bad request) surface; the
// mirror only papers over reachability problems.
func fallback(err error) bool {
	return api.IsTransient(err)
}

// checkpoint records a successful refresh of one entity and announces it.
func (b *base) checkpoint(entity string) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := b.db.SetSyncState("last_sync:"+entity, now); err != nil {
		b.log.Warn("sync checkpoint failed", zap.String("entity", entity), zap.Error(err))
	}
	b.publish(bus.KindSyncRefreshed, map[string]string{"entity": entity, "at": now})
}

func (b *base) publish(kind string, payload any) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// LastSync returns the RFC3339 instant of the last successful refresh of an
// entity, or "" when it never synced.
func (b *base) LastSync(entity string) string {
	v, err := b.db.GetSyncState("last_sync:" + entity)
	if err != nil {
		b.log.Warn("sync state read failed", zap.String("entity", entity), zap.Error(err))
		return ""
	}
	return v
}

// paginate slices recs into the requested page, computing the same meta
// block the server would.
func paginate[T any](recs []T, page, perPage int) model.Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	total := len(recs)
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return model.Page[T]{
		Data: recs[start:end],
		Meta: model.Meta{Page: page, PerPage: perPage, Total: total, LastPage: lastPage},
	}
}

// pageAll wraps a full mirror result as the single page of an unpaginated
// endpoint. PerPage mirrors the count the way the server reports full-list
// responses; an empty set keeps the default page size.
func pageAll[T any](recs []T) model.Page[T] {
	perPage := len(recs)
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	return model.Page[T]{
		Data:       recs,
		Meta:       model.Meta{Page: 1, PerPage: perPage, Total: len(recs), LastPage: 1},
		FromMirror: true,
	}
}
