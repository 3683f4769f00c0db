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

// PlaceService serves the slow-moving catalogs: neighborhoods, mass
// schedules, useful phones and tourism spots. They are small full-list
// endpoints, so every refresh replaces the mirror.
type PlaceService struct {
	base
	bairros *mirror.Collection[model.Bairro]
	masses  *mirror.Collection[model.MassSchedule]
	phones  *mirror.Collection[model.UsefulPhone]
	spots   *mirror.Collection[model.TourismSpot]
}

// NewPlaces wires the catalog service.
func NewPlaces(db *store.DB, client *api.Client, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *PlaceService {
	return &PlaceService{
		base:    base{db: db, client: client, monitor: monitor, bus: b, log: log},
		bairros: mirror.Bairros(db, log),
		masses:  mirror.MassSchedules(db, log),
		phones:  mirror.UsefulPhones(db, log),
		spots:   mirror.TourismSpots(db, log),
	}
}

// listCatalog is the shared degrade path for full-list catalogs.
func listCatalog[T any](ctx context.Context, b *base, coll *mirror.Collection[T], fetch func(context.Context) ([]T, model.Meta, error)) (model.Page[T], error) {
	if b.online() {
		recs, meta, err := fetch(ctx)
		if err == nil {
			coll.Replace(recs)
			b.checkpoint(coll.Entity())
			b.publish(bus.KindMirrorUpdated, map[string]any{"entity": coll.Entity(), "count": len(recs)})
			return model.Page[T]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[T]{}, err
		}
		b.log.Warn("catalog list degraded to mirror",
			zap.String("entity", coll.Entity()), zap.Error(err))
	}

	return pageAll(coll.GetAll()), nil
}

// Bairros lists neighborhoods in pt-BR alphabetical order.
func (s *PlaceService) Bairros(ctx context.Context) (model.Page[model.Bairro], error) {
	return listCatalog(ctx, &s.base, s.bairros, s.client.ListBairros)
}

// MassSchedules lists church service times.
func (s *PlaceService) MassSchedules(ctx context.Context) (model.Page[model.MassSchedule], error) {
	return listCatalog(ctx, &s.base, s.masses, s.client.ListMassSchedules)
}

// UsefulPhones lists public-utility phone numbers.
func (s *PlaceService) UsefulPhones(ctx context.Context) (model.Page[model.UsefulPhone], error) {
	return listCatalog(ctx, &s.base, s.phones, s.client.ListUsefulPhones)
}

// TourismSpots lists tourism points of interest.
func (s *PlaceService) TourismSpots(ctx context.Context) (model.Page[model.TourismSpot], error) {
	return listCatalog(ctx, &s.base, s.spots, s.client.ListTourismSpots)
}
