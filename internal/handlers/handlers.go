package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	Recommendation *RecommendationHandler
	Admin          *AdminHandler
	Metrics        *MetricsHandler
}

func New(cfg *config.Config, logger *logrus.Logger, services *services.Services, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Auth:           NewAuthHandler(logger, services.Auth),
		Recommendation: NewRecommendationHandler(services.RecommendationOrchestrator, logger),
		Admin:          NewAdminHandler(logger, cfg, services.Snapshots, services.RateLimit),
		Metrics:        NewMetricsHandler(gatherer),
	}
}
