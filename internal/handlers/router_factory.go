package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"coachapp/internal/config"
	"coachapp/internal/middleware"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	"coachapp/internal/version"
)

// ServiceName identifies the API server in traces and version responses
const ServiceName = "coach-backend"

// NewRouter creates the API engine with all middleware and /v1 routes
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	catalogService services.CatalogServiceInterface,
	progressService services.ProgressServiceInterface,
	interactionService services.InteractionServiceInterface,
	roadmapService services.RoadmapServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.RecoveryOptionsFromConfig(cfg.Server)))
	router.Use(middleware.LearnerContext())
	router.Use(middleware.RequestLogger(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling(ServiceName))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug || cfg.IsTest
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	catalogHandler := NewCatalogHandler(catalogService, cfg, logger)
	userHandler := NewUserHandler(userService, cfg, logger)
	progressHandler := NewProgressHandler(progressService, cfg, logger)
	interactionHandler := NewInteractionHandler(interactionService, cfg, logger)
	roadmapHandler := NewRoadmapHandler(roadmapService, cfg, logger)
	routeListing := NewRouteListingHandler(ServiceName)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", versionHandler(cfg))
		v1.GET("/routes", routeListing.GetRouteListingJSON)

		v1.GET("/subjects", catalogHandler.ListSubjects)
		v1.GET("/subjects/:subjectId/topics", catalogHandler.ListTopics)

		users := v1.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("/:userId", userHandler.GetUser)
			users.PUT("/:userId", userHandler.UpdateUser)
			users.POST("/:userId/directives/apply", userHandler.ApplyDirectives)

			users.GET("/:userId/progress", progressHandler.GetProgress)
			users.PUT("/:userId/progress/:topicId", progressHandler.UpsertProgress)

			users.GET("/:userId/interactions", interactionHandler.ListInteractions)
			users.POST("/:userId/interactions/quiz", interactionHandler.RecordQuizAnswer)
			users.POST("/:userId/interactions/session", interactionHandler.RecordSessionEnd)
			users.POST("/:userId/interactions/chat", interactionHandler.RecordChatMessage)

			users.POST("/:userId/roadmaps", roadmapHandler.GenerateRoadmap)
			users.GET("/:userId/roadmaps", roadmapHandler.GetRoadmap)
			users.GET("/:userId/roadmaps/analytics", roadmapHandler.GetAnalytics)
			users.GET("/:userId/roadmaps/adaptations", roadmapHandler.GetAdaptations)
		}

		v1.PUT("/roadmap-items/:itemId/status", roadmapHandler.UpdateItemStatus)
	}

	routeListing.CollectRoutes(router)
	return router
}

// versionHandler reports the server build and, when reachable, the worker's
func versionHandler(cfg *config.Config) gin.HandlerFunc {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   config.VersionProbeTimeout,
	}

	return func(c *gin.Context) {

		workerInternalURL := os.Getenv("WORKER_INTERNAL_URL")
		if workerInternalURL == "" {
			workerInternalURL = cfg.Server.WorkerInternalURL
		}

		var workerVersion interface{} = gin.H{"error": "Worker unavailable"}
		if workerInternalURL != "" {
			req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, workerInternalURL+"/v1/version", nil)
			if err == nil {
				resp, err := client.Do(req)
				if err == nil {
					defer func() { _ = resp.Body.Close() }()
					if resp.StatusCode == http.StatusOK {
						if err := json.NewDecoder(resp.Body).Decode(&workerVersion); err != nil {
							workerVersion = gin.H{"error": "Failed to decode worker version"}
						}
					}
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"backend": version.For(ServiceName),
			"worker":  workerVersion,
		})
	}
}

// WorkerServiceName identifies the background planner in traces and version responses
const WorkerServiceName = "coach-worker"

// NewWorkerRouter creates the worker's admin engine
func NewWorkerRouter(cfg *config.Config, w WorkerController, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.RecoveryOptionsFromConfig(cfg.Server)))
	router.Use(middleware.LearnerContext())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": WorkerServiceName})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling(WorkerServiceName))
	router.RedirectTrailingSlash = false

	adminHandler := NewWorkerAdminHandlerWithLogger(cfg, w, logger)
	routeListing := NewRouteListingHandler(WorkerServiceName)

	router.GET("/configz", adminHandler.GetConfigz)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.For(WorkerServiceName))
		})
		v1.GET("/routes", routeListing.GetRouteListingJSON)

		v1.GET("/details", adminHandler.GetWorkerDetails)
		v1.GET("/status", adminHandler.GetWorkerStatus)
		v1.GET("/history", adminHandler.GetHistory)
		v1.GET("/logs", adminHandler.GetActivityLogs)
		v1.GET("/backoffs", adminHandler.GetBackoffs)
		v1.POST("/pause", adminHandler.PauseWorker)
		v1.POST("/resume", adminHandler.ResumeWorker)
		v1.POST("/trigger", adminHandler.TriggerWorkerRun)
	}

	routeListing.CollectRoutes(router)
	return router
}
