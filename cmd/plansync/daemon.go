package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/flexprice/plansync/internal/config"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run reconciliation on the configured schedule and serve metrics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "run-now",
				Usage: "Run one reconciliation immediately on start",
			},
		},
		Action: func(c *cli.Context) error {
			app := fx.New(
				appOptions(c.String("config")),
				fx.Supply(runOnStart(c.Bool("run-now"))),
				fx.Invoke(startScheduler, startMetricsServer),
			)
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancel := context.WithTimeout(c.Context, shutdownTimeout)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			<-app.Done()

			stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelStop()
			return app.Stop(stopCtx)
		},
	}
}

type runOnStart bool

func startScheduler(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	svc service.PlanSyncService,
	log *logger.Logger,
	runNow runOnStart,
) error {
	c := cron.New()

	run := func() {
		result, err := svc.RunReconciliation(context.Background())
		if err != nil {
			if ierr.IsAlreadyRunning(err) {
				log.Infow("skipping scheduled plan sync, previous run still active")
				return
			}
			log.Errorw("scheduled plan sync failed", "error", err)
			return
		}
		log.Infow("scheduled plan sync finished",
			"run_id", result.RunID,
			"duration", result.FinishedAt.Sub(result.StartedAt).String())
	}

	if _, err := c.AddFunc(cfg.Sync.Schedule, run); err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid sync schedule %q", cfg.Sync.Schedule).
			Mark(ierr.ErrValidation)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			log.Infow("plan sync scheduler started", "schedule", cfg.Sync.Schedule)
			if runNow {
				go run()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
				log.Warnw("plan sync still running at shutdown")
			}
			return nil
		},
	})
	return nil
}

func startMetricsServer(lc fx.Lifecycle, cfg *config.Configuration, registry *prometheus.Registry, log *logger.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("metrics server stopped", "error", err)
				}
			}()
			log.Infow("metrics server listening", "address", srv.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
