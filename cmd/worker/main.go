// Package main runs the learning coach background planner and its admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/di"
	"coachapp/internal/handlers"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"
	"coachapp/internal/version"
	"coachapp/internal/worker"

	"golang.org/x/sync/errgroup"
)

func newPlanner(container di.ServiceContainerInterface, instance string) (*worker.Worker, error) {
	users, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve user service")
	}
	topics, err := container.GetCatalogService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve catalog service")
	}
	roadmaps, err := container.GetRoadmapService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve roadmap service")
	}
	mail, err := container.GetEmailService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve email service")
	}
	return worker.NewWorker(users, topics, roadmaps, mail, instance,
		container.GetConfig(), container.GetLogger()), nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	telemetry, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.WorkerServiceName, observability.LevelFromString(cfg.Server.LogLevel))
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	logger := telemetry.Logger
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(flushCtx); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}()

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
		defer cancel()
		if err := container.Shutdown(releaseCtx); err != nil {
			logger.Warn(releaseCtx, "Error releasing worker resources", map[string]interface{}{"error": err.Error()})
		}
	}()

	instance, _ := os.Hostname()
	planner, err := newPlanner(container, instance)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Starting learning coach worker", map[string]interface{}{
		"instance":    instance,
		"port":        cfg.Server.WorkerPort,
		"interval":    cfg.Planner.Interval.String(),
		"concurrency": cfg.Planner.Concurrency,
		"paused":      cfg.Planner.StartPaused,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.WorkerPort,
		Handler:           handlers.NewWorkerRouter(cfg, planner, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		planner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return contextutils.WrapErrorf(err, "worker admin server on port %s", cfg.Server.WorkerPort)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
		defer cancel()
		// stop planning before the admin API goes away
		return errors.Join(planner.Shutdown(drainCtx), srv.Shutdown(drainCtx))
	})

	err = g.Wait()
	logger.Info(ctx, "Worker exited", map[string]interface{}{"instance": instance})
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
