package resource

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/cache"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/store"
)

// WeatherResult is a weather read with its provenance: fresh from the
// network, or from the cache and how stale.
type WeatherResult struct {
	Bundle    model.WeatherBundle
	FromCache bool
	Stale     bool
	CachedAt  time.Time
}

// WeatherService serves weather payloads through the TTL cache instead of
// the mirror: the data is derived and expires, it is not a record set.
// Unlike mirror-backed reads there is no empty fallback; with no network
// and no cached entry the error surfaces.
type WeatherService struct {
	base
	cache *cache.Cache
}

// NewWeather wires the weather service.
func NewWeather(db *store.DB, client *api.Client, monitor *connectivity.Monitor, c *cache.Cache, b *bus.Bus, log *zap.Logger) *WeatherService {
	return &WeatherService{
		base:  base{db: db, client: client, monitor: monitor, bus: b, log: log},
		cache: c,
	}
}

// Bundle fetches the aggregated weather payload, caching fresh responses
// and answering from cache (possibly stale) when the backend is
// unreachable.
func (s *WeatherService) Bundle(ctx context.Context, days int, units string, sections []string) (WeatherResult, error) {
	key := cache.BuildKey(cache.ScopeBundle, s.client.Tenant(), map[string]any{
		"days":     days,
		"units":    units,
		"sections": sections,
	})

	if s.online() {
		bundle, err := s.client.WeatherBundle(ctx, days, units, sections)
		if err == nil {
			if data, mErr := json.Marshal(bundle); mErr == nil {
				s.cache.Set(key, data, cache.ScopeBundle)
			}
			return WeatherResult{Bundle: bundle}, nil
		}
		if !fallback(err) {
			return WeatherResult{}, err
		}
		if res, ok := s.cached(key); ok {
			s.log.Warn("weather bundle served from cache", zap.Bool("stale", res.Stale), zap.Error(err))
			return res, nil
		}
		return WeatherResult{}, err
	}

	if res, ok := s.cached(key); ok {
		return res, nil
	}
	return WeatherResult{}, &api.Error{Status: 503, Code: "offline", Message: "offline and no cached weather"}
}

func (s *WeatherService) cached(key string) (WeatherResult, bool) {
	entry := s.cache.Get(key)
	if entry == nil {
		return WeatherResult{}, false
	}
	var bundle model.WeatherBundle
	if err := json.Unmarshal(entry.Data, &bundle); err != nil {
		s.log.Warn("cached weather entry corrupt", zap.String("key", key), zap.Error(err))
		return WeatherResult{}, false
	}
	return WeatherResult{
		Bundle:    bundle,
		FromCache: true,
		Stale:     entry.Stale,
		CachedAt:  entry.CachedAt,
	}, true
}

// Forecast fetches the daily forecast block alone, with the same cache
// degradation as Bundle but a longer TTL.
func (s *WeatherService) Forecast(ctx context.Context, days int, units string) (json.RawMessage, bool, error) {
	key := cache.BuildKey(cache.ScopeForecast, s.client.Tenant(), map[string]any{
		"days":  days,
		"units": units,
	})
	return s.rawBlock(ctx, key, cache.ScopeForecast, func() (json.RawMessage, error) {
		return s.client.Forecast(ctx, days, units)
	})
}

// Marine fetches the tide/swell block alone.
func (s *WeatherService) Marine(ctx context.Context, days int) (json.RawMessage, bool, error) {
	key := cache.BuildKey(cache.ScopeMarine, s.client.Tenant(), map[string]any{
		"days": days,
	})
	return s.rawBlock(ctx, key, cache.ScopeMarine, func() (json.RawMessage, error) {
		return s.client.Marine(ctx, days)
	})
}

// rawBlock is the shared network-then-cache path for single weather blocks.
// The bool reports whether the payload came from cache.
func (s *WeatherService) rawBlock(_ context.Context, key, scope string, fetch func() (json.RawMessage, error)) (json.RawMessage, bool, error) {
	if s.online() {
		raw, err := fetch()
		if err == nil {
			s.cache.Set(key, raw, scope)
			return raw, false, nil
		}
		if !fallback(err) {
			return nil, false, err
		}
		if entry := s.cache.Get(key); entry != nil {
			return entry.Data, true, nil
		}
		return nil, false, err
	}

	if entry := s.cache.Get(key); entry != nil {
		return entry.Data, true, nil
	}
	return nil, false, &api.Error{Status: 503, Code: "offline", Message: "offline and no cached weather"}
}
