package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/database"
	"github.com/temcen/dinerank/internal/handlers"
	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/internal/validation"
)

type App struct {
	config     *config.Config
	logger     *logrus.Logger
	db         *database.Database
	registry   *prometheus.Registry
	services   *services.Services
	handlers   *handlers.Handlers
	validation *middleware.ValidationMiddleware
	router     *gin.Engine
	cancel     context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   setupLogger(cfg),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svc, err := services.New(cfg, app.logger, db, app.registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	schemas, err := validation.NewDefaultSchemaValidator()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.validation = middleware.NewValidationMiddleware(schemas)

	app.handlers = handlers.New(cfg, app.logger, svc, app.registry)
	app.setupRouter()

	return app, nil
}

// Start builds the first snapshot and schedules later refreshes. A failed
// first build is logged and serving continues in cold-start-only mode until
// a refresh succeeds.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if _, err := a.services.Snapshots.Refresh(ctx); err != nil {
		a.logger.WithError(err).Warn("Initial snapshot build failed, collaborative scoring disabled until next refresh")
	}

	if err := a.services.Snapshots.Start(); err != nil {
		cancel()
		return err
	}

	go a.services.Health.CollectSystemMetrics(runCtx, 15*time.Second)
	return nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancel != nil {
		a.cancel()
	}

	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Warn("Error closing services")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, a.handlers.Metrics.Serve)
	}

	api := router.Group("/api/v1")
	api.Use(a.validation.ValidateHeaders())

	api.POST("/auth/token", a.validation.ValidateTokenRequest(), a.handlers.Auth.IssueToken)

	authed := api.Group("")
	{
		authed.Use(middleware.Auth(a.services.Auth, a.logger))
		authed.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		authed.DELETE("/auth/token", a.handlers.Auth.RevokeToken)

		recommendations := authed.Group("/recommendations")
		{
			recommendations.GET("/:userId", a.validation.ValidateRecommendationQuery(), a.handlers.Recommendation.Get)
			recommendations.POST("", a.validation.ValidateRecommendationRequest(), a.handlers.Recommendation.Post)
		}

		admin := authed.Group("/admin")
		{
			admin.Use(middleware.RequireRole(services.RoleAdmin))

			admin.GET("/snapshot", a.handlers.Admin.GetSnapshot)
			admin.POST("/snapshot/refresh", a.handlers.Admin.RefreshSnapshot)
			admin.GET("/ranking-config", a.handlers.Admin.GetRankingConfig)
			admin.POST("/ranking-config/validate", a.handlers.Admin.ValidateRankingConfig)
		}
	}

	a.router = router
}
