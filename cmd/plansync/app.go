package main

import (
	"context"

	"github.com/flexprice/plansync/internal/cache"
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/lock"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/metrics"
	"github.com/flexprice/plansync/internal/postgres"
	redisClient "github.com/flexprice/plansync/internal/redis"
	"github.com/flexprice/plansync/internal/repository/file"
	"github.com/flexprice/plansync/internal/repository/memory"
	pgRepo "github.com/flexprice/plansync/internal/repository/postgres"
	redisRepo "github.com/flexprice/plansync/internal/repository/redis"
	"github.com/flexprice/plansync/internal/sentry"
	"github.com/flexprice/plansync/internal/service"
	"github.com/flexprice/plansync/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// appOptions provides every dependency of the services. Store clients are
// nil unless the configured store type needs them.
func appOptions(configPath string) fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Provide(
			func() (*config.Configuration, error) {
				return config.Load(configPath)
			},
			provideLogger,
			prometheus.NewRegistry,
			metrics.NewMetrics,
			provideSentry,

			provideRedis,
			providePostgres,

			payvalida.NewClient,
			provideCatalog,
			providePlanHistoryRepository,
			provideGuard,
			cache.Initialize,

			service.NewServiceParams,
			service.NewPlanSyncService,
			service.NewSubscriptionService,
		),
	)
}

func provideLogger(lc fx.Lifecycle, cfg *config.Configuration) (*logger.Logger, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func provideSentry(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*sentry.Service, error) {
	svc, err := sentry.NewSentryService(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			svc.Flush(flushTimeout)
			return nil
		},
	})
	return svc, nil
}

func provideRedis(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*redisClient.Client, error) {
	if cfg.Store.Type != types.StoreTypeRedis {
		return nil, nil
	}
	client, err := redisClient.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func providePostgres(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*postgres.Client, error) {
	if cfg.Store.Type != types.StoreTypePostgres {
		return nil, nil
	}
	client, err := postgres.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pgRepo.EnsureSchema(ctx, client)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideCatalog(cfg *config.Configuration, log *logger.Logger) (catalog.Gateway, error) {
	return file.NewGateway(context.Background(), cfg, log)
}

func providePlanHistoryRepository(
	cfg *config.Configuration,
	rc *redisClient.Client,
	pc *postgres.Client,
	log *logger.Logger,
) planhistory.Repository {
	switch cfg.Store.Type {
	case types.StoreTypeRedis:
		return redisRepo.NewPlanHistoryRepository(rc, log)
	case types.StoreTypePostgres:
		return pgRepo.NewPlanHistoryRepository(pc, log)
	default:
		log.Warnw("using in-memory plan history, nothing survives this process")
		return memory.NewPlanHistoryRepository()
	}
}

func provideGuard(cfg *config.Configuration, rc *redisClient.Client, log *logger.Logger) lock.Guard {
	if rc != nil {
		return lock.NewRedisGuard(rc, cfg.Sync.LockTTL, log)
	}
	return lock.NewInProcessGuard()
}

// withServices starts the dependency graph, runs fn and stops it again
func withServices(ctx context.Context, configPath string, fn func(ctx context.Context, deps *deps) error) error {
	var d deps
	app := fx.New(appOptions(configPath), fx.Populate(&d.PlanSync, &d.Subscriptions, &d.Config, &d.Logger))
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx, &d)
}

type deps struct {
	PlanSync      service.PlanSyncService
	Subscriptions service.SubscriptionService
	Config        *config.Configuration
	Logger        *logger.Logger
}
