// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"io"
	"sync"

	"coachapp/internal/catalog"
	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	"coachapp/internal/services/mailer"
	contextutils "coachapp/internal/utils"
)

// Service names registered in the container
const (
	serviceUser        = "user"
	serviceCatalog     = "catalog"
	serviceProgress    = "progress"
	serviceInteraction = "interaction"
	serviceRoadmap     = "roadmap"
	serviceEmail       = "email"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetCatalogService() (services.CatalogServiceInterface, error)
	GetProgressService() (services.ProgressServiceInterface, error)
	GetInteractionService() (services.InteractionServiceInterface, error)
	GetRoadmapService() (services.RoadmapServiceInterface, error)
	GetEmailService() (mailer.Mailer, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	SeedCatalog(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	metrics       *observability.CoachMetrics
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// NewServiceContainerWithDB wires every service on an already open database.
// The caller keeps ownership of db.
func NewServiceContainerWithDB(ctx context.Context, cfg *config.Config, logger *observability.Logger, db *sql.DB) *ServiceContainer {
	sc := NewServiceContainer(cfg, logger)
	sc.db = db
	sc.initializeServices(ctx)
	return sc
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	metrics, err := observability.NewCoachMetrics(nil)
	if err != nil {
		sc.logger.Warn(ctx, "Coach metrics unavailable, continuing without them", map[string]interface{}{
			"error": err.Error(),
		})
	}
	sc.metrics = metrics

	sc.initializeServices(ctx)

	if sc.cfg.Server.SeedCatalog {
		if err := sc.seedCatalog(ctx); err != nil {
			_ = sc.cleanup(ctx)
			return contextutils.WrapErrorf(err, "failed to seed catalog")
		}
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, serviceUser)
}

// GetCatalogService returns the catalog service
func (sc *ServiceContainer) GetCatalogService() (services.CatalogServiceInterface, error) {
	return GetServiceAs[services.CatalogServiceInterface](sc, serviceCatalog)
}

// GetProgressService returns the progress service
func (sc *ServiceContainer) GetProgressService() (services.ProgressServiceInterface, error) {
	return GetServiceAs[services.ProgressServiceInterface](sc, serviceProgress)
}

// GetInteractionService returns the interaction service
func (sc *ServiceContainer) GetInteractionService() (services.InteractionServiceInterface, error) {
	return GetServiceAs[services.InteractionServiceInterface](sc, serviceInteraction)
}

// GetRoadmapService returns the roadmap service
func (sc *ServiceContainer) GetRoadmapService() (services.RoadmapServiceInterface, error) {
	return GetServiceAs[services.RoadmapServiceInterface](sc, serviceRoadmap)
}

// GetEmailService returns the mailer
func (sc *ServiceContainer) GetEmailService() (mailer.Mailer, error) {
	return GetServiceAs[mailer.Mailer](sc, serviceEmail)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// SeedCatalog loads the embedded topic catalog into the database
func (sc *ServiceContainer) SeedCatalog(ctx context.Context) error {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.seedCatalog(ctx)
}

func (sc *ServiceContainer) seedCatalog(ctx context.Context) error {
	catalogService, ok := sc.services[serviceCatalog].(services.CatalogServiceInterface)
	if !ok {
		return contextutils.ErrorWithContextf("catalog service is not registered")
	}

	c, err := catalog.Default()
	if err != nil {
		return err
	}
	subjects, topics, err := catalogService.Seed(ctx, c)
	if err != nil {
		return err
	}
	sc.logger.Info(ctx, "Catalog seeded", map[string]interface{}{
		"subjects_inserted": subjects,
		"topics_inserted":   topics,
	})
	return nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) {
	userService := services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services[serviceUser] = userService

	catalogService := services.NewCatalogServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services[serviceCatalog] = catalogService

	progressService := services.NewProgressServiceWithLogger(sc.db, sc.cfg, sc.logger, sc.metrics)
	sc.services[serviceProgress] = progressService

	// Interaction service feeds outcomes into progress and mood into profiles
	interactionService := services.NewInteractionServiceWithLogger(sc.db, sc.cfg, sc.logger, userService, progressService)
	sc.services[serviceInteraction] = interactionService

	cache, err := services.NewRoadmapCache(sc.cfg.Cache, sc.logger)
	if err != nil {
		sc.logger.Warn(ctx, "Roadmap cache unavailable, reading roadmaps from the database only", map[string]interface{}{
			"error": err.Error(),
		})
		cache = services.NoopRoadmapCache{}
	}
	if closer, ok := cache.(io.Closer); ok {
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return closer.Close()
		})
	}

	roadmapService := services.NewRoadmapServiceWithLogger(sc.db, sc.cfg, sc.logger, userService, catalogService, progressService, cache, sc.metrics)
	sc.services[serviceRoadmap] = roadmapService

	sc.services[serviceEmail] = services.CreateEmailService(sc.cfg, sc.logger, sc.db)
}
