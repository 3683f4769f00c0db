package resource

import (
	"context"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/mirror"
	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/store"
)

// AlertService serves civil-defense alerts, newest first. Alerts are small
// and the server always answers the full current set, so every successful
// fetch replaces the mirror.
type AlertService struct {
	base
	coll *mirror.Collection[model.Alert]
}

// NewAlerts wires the alert service.
func NewAlerts(db *store.DB, client *api.Client, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *AlertService {
	return &AlertService{
		base: base{db: db, client: client, monitor: monitor, bus: b, log: log},
		coll: mirror.Alerts(db, log),
	}
}

// List fetches the current alerts, serving the mirror when unreachable.
func (s *AlertService) List(ctx context.Context) (model.Page[model.Alert], error) {
	if s.online() {
		recs, meta, err := s.client.ListAlerts(ctx)
		if err == nil {
			s.coll.Replace(recs)
			s.checkpoint(s.coll.Entity())
			s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.coll.Entity(), "count": len(recs)})
			return model.Page[model.Alert]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[model.Alert]{}, err
		}
		s.log.Warn("alert list degraded to mirror", zap.Error(err))
	}

	return pageAll(s.coll.GetAll()), nil
}
