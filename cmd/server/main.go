// Package main runs the learning coach API server.
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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Application owns the API router and the container behind it
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication resolves the services the API needs and builds the router
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	users, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve user service")
	}
	topics, err := container.GetCatalogService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve catalog service")
	}
	progress, err := container.GetProgressService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve progress service")
	}
	interactions, err := container.GetInteractionService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve interaction service")
	}
	roadmaps, err := container.GetRoadmapService()
	if err != nil {
		return nil, contextutils.WrapError(err, "resolve roadmap service")
	}

	return &Application{
		container: container,
		router: handlers.NewRouter(container.GetConfig(),
			users, topics, progress, interactions, roadmaps, container.GetLogger()),
	}, nil
}

// Serve listens on port until ctx ends, then drains in-flight requests
func (a *Application) Serve(ctx context.Context, port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return contextutils.WrapError(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(drainCtx)
	})
	return g.Wait()
}

// Shutdown releases container resources after Serve returns
func (a *Application) Shutdown(ctx context.Context) error {
	return a.container.Shutdown(ctx)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	telemetry, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.ServiceName, observability.LevelFromString(cfg.Server.LogLevel))
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

	logger.Info(ctx, "Starting learning coach API", map[string]interface{}{
		"port":    cfg.Server.Port,
		"version": version.For(handlers.ServiceName),
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		return err
	}

	app, err := NewApplication(container)
	if err != nil {
		_ = container.Shutdown(context.Background())
		return err
	}

	serveErr := app.Serve(ctx, cfg.Server.Port)
	if serveErr != nil {
		logger.Error(ctx, "API server stopped", serveErr, nil)
	} else {
		logger.Info(ctx, "API server drained", nil)
	}

	releaseCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, app.Shutdown(releaseCtx))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
