package resource

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/mirror"
	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/store"
)

// EventFilter bounds an event listing to a date window. Zero bounds are
// open ends.
type EventFilter struct {
	From time.Time
	To   time.Time
}

func (f EventFilter) query() url.Values {
	q := url.Values{}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format("2006-01-02"))
	}
	return q
}

func (f EventFilter) matches(e model.Event) bool {
	start := e.StartTime()
	if !f.From.IsZero() && start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && start.After(f.To) {
		return false
	}
	return true
}

// EventService serves municipal events, soonest first.
type EventService struct {
	base
	coll *mirror.Collection[model.Event]
}

// NewEvents wires the event service.
func NewEvents(db *store.DB, client *api.Client, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *EventService {
	return &EventService{
		base: base{db: db, client: client, monitor: monitor, bus: b, log: log},
		coll: mirror.Events(db, log),
	}
}

// List fetches events within the filter window, serving the mirror when the
// backend is unreachable. Unbounded listings replace the mirror wholesale.
func (s *EventService) List(ctx context.Context, f EventFilter) (model.Page[model.Event], error) {
	if s.online() {
		recs, meta, err := s.client.ListEvents(ctx, f.query())
		if err == nil {
			if f.From.IsZero() && f.To.IsZero() {
				s.coll.Replace(recs)
			} else {
				s.coll.SaveMany(recs)
			}
			s.checkpoint(s.coll.Entity())
			s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.coll.Entity(), "count": len(recs)})
			return model.Page[model.Event]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[model.Event]{}, err
		}
		s.log.Warn("event list degraded to mirror", zap.Error(err))
	}

	return pageAll(s.coll.Filter(func(e model.Event) bool { return f.matches(e) })), nil
}
