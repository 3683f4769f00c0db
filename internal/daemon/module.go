// Package daemon composes the sync daemon: one process per profile that
// owns the mirror database, probes connectivity and drains the outbox.
package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/cache"
	"github.com/etijucas/offline/internal/config"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/lock"
	"github.com/etijucas/offline/internal/logging"
	"github.com/etijucas/offline/internal/outbox"
	"github.com/etijucas/offline/internal/profile"
	"github.com/etijucas/offline/internal/resource"
	"github.com/etijucas/offline/internal/store"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Services bundles the resource services the daemon exposes; consumers
// embedding the module (tests, a future RPC surface) receive them wired.
type Services struct {
	fx.Out

	Reports *resource.ReportService
	Forum   *resource.ForumService
	Events  *resource.EventService
	Alerts  *resource.AlertService
	Places  *resource.PlaceService
	Weather *resource.WeatherService
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideLock,
			provideStore,
			provideClient,
			provideMonitor,
			provideCache,
			provideDrainer,
			provideServices,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		logger.Info("no config file, using defaults", zap.Error(err))
		return config.Default()
	}
	return cfg
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL, cfg.API.TenantToken, cfg.API.Timeout(), logger)
}

func provideMonitor(cfg *config.Config, client *api.Client, b *bus.Bus, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(b, logger, client.HealthURL(), cfg.Sync.ProbeInterval())
}

func provideCache(cfg *config.Config, db *store.DB, logger *zap.Logger) *cache.Cache {
	var opts []cache.Option
	if m := cfg.Cache.HomeTTLMinutes; m > 0 {
		ttl := time.Duration(m) * time.Minute
		opts = append(opts,
			cache.WithTTL(cache.ScopeHome, ttl),
			cache.WithTTL(cache.ScopeBundle, ttl),
			cache.WithTTL(cache.ScopeInsights, ttl))
	}
	if m := cfg.Cache.ForecastTTLMinutes; m > 0 {
		ttl := time.Duration(m) * time.Minute
		opts = append(opts,
			cache.WithTTL(cache.ScopeForecast, ttl),
			cache.WithTTL(cache.ScopeMarine, ttl))
	}
	return cache.New(db, logger, opts...)
}

func provideDrainer(cfg *config.Config, db *store.DB, monitor *connectivity.Monitor, b *bus.Bus, logger *zap.Logger) *outbox.Drainer {
	d := outbox.NewDrainer(db, monitor, b, logger)
	d.SetMaxAttempts(cfg.Sync.MaxAttempts)
	return d
}

func provideServices(db *store.DB, client *api.Client, monitor *connectivity.Monitor, c *cache.Cache, b *bus.Bus, logger *zap.Logger) Services {
	return Services{
		Reports: resource.NewReports(db, client, monitor, b, logger),
		Forum:   resource.NewForum(db, client, monitor, b, logger),
		Events:  resource.NewEvents(db, client, monitor, b, logger),
		Alerts:  resource.NewAlerts(db, client, monitor, b, logger),
		Places:  resource.NewPlaces(db, client, monitor, b, logger),
		Weather: resource.NewWeather(db, client, monitor, c, b, logger),
	}
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, monitor *connectivity.Monitor, drainer *outbox.Drainer, c *cache.Cache, b *bus.Bus, reports *resource.ReportService, forum *resource.ForumService, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Expired cache entries are swept once per daemon start, not
			// on a timer; stale reads are resolved at read time.
			if n := c.ClearExpired(); n > 0 {
				logger.Info("expired cache entries swept", zap.Int64("count", n))
				b.Publish(bus.Event{Kind: bus.KindCacheSwept, Timestamp: time.Now(), Payload: n})
			}

			reports.RegisterHandlers(drainer)
			forum.RegisterHandlers(drainer)

			monitor.Start(context.Background())
			drainer.Start(context.Background())
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			drainer.Stop()
			monitor.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
