package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/database"
	"github.com/temcen/dinerank/internal/messaging"
)

type Services struct {
	Auth                       *AuthService
	Health                     *HealthService
	RateLimit                  *RateLimitService
	MessageBus                 *messaging.MessageBus
	Metrics                    *MetricsCollector
	FeatureStore               *FeatureStore
	Snapshots                  *SnapshotManager
	Ranker                     *HybridRanker
	RecommendationOrchestrator *RecommendationOrchestrator
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	metrics := NewMetricsCollector(reg)

	authService := NewAuthService(cfg, logger, db.Redis.Hot)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis.Hot)
	featureStore := NewFeatureStore(db.PG, db.Redis.Warm, &cfg.Ranking, logger)

	var graph SimilarityGraphPublisher
	if db.Neo4j != nil {
		graph = NewNeo4jSimilarityGraph(db.Neo4j, logger)
	}
	snapshots := NewSnapshotManager(featureStore, graph, cfg.Ranking.Collaborative, metrics, logger)

	var publisher EventPublisher
	var messageBus *messaging.MessageBus
	if len(cfg.Kafka.Brokers) > 0 {
		messageBus = messaging.NewMessageBus(cfg, logger)
		publisher = messageBus
	} else {
		logger.Warn("No Kafka brokers configured, served events disabled")
	}

	ranker := NewHybridRanker(cfg.Ranking)
	orchestrator := NewRecommendationOrchestrator(
		featureStore, snapshots, ranker, publisher,
		db.Redis.Warm, metrics, &cfg.Ranking, logger,
	)

	healthService := NewHealthService(logger, reg, snapshots, DatabaseHealthChecks(db)...)

	return &Services{
		Auth:                       authService,
		Health:                     healthService,
		RateLimit:                  rateLimitService,
		MessageBus:                 messageBus,
		Metrics:                    metrics,
		FeatureStore:               featureStore,
		Snapshots:                  snapshots,
		Ranker:                     ranker,
		RecommendationOrchestrator: orchestrator,
	}, nil
}

// Close flushes pending events and releases the message bus.
func (s *Services) Close() error {
	s.Snapshots.Stop()
	s.RecommendationOrchestrator.Wait()
	if s.MessageBus != nil {
		return s.MessageBus.Close()
	}
	return nil
}
