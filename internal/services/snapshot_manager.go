package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// InteractionSource lists per (user, restaurant) order aggregates for the
// whole population.
type InteractionSource interface {
	ListInteractionStats(ctx context.Context) ([]InteractionStats, error)
}

// SimilarityGraphPublisher mirrors a snapshot's neighbor lists elsewhere.
type SimilarityGraphPublisher interface {
	PublishNeighbors(ctx context.Context, snapshot *SimilaritySnapshot) error
}

// SnapshotManager owns the current similarity snapshot. Refreshes build a
// new snapshot and swap it in atomically; readers holding the previous one
// keep using it until they finish.
type SnapshotManager struct {
	current   atomic.Pointer[SimilaritySnapshot]
	source    InteractionSource
	publisher SimilarityGraphPublisher
	config    config.CollaborativeConfig
	metrics   *MetricsCollector
	logger    *logrus.Logger
	now       func() time.Time

	refreshMu sync.Mutex
	cron      *cron.Cron
}

func NewSnapshotManager(
	source InteractionSource,
	publisher SimilarityGraphPublisher,
	config config.CollaborativeConfig,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *SnapshotManager {
	m := &SnapshotManager{
		source:    source,
		publisher: publisher,
		config:    config,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	m.current.Store(NewEmptySnapshot())
	return m
}

// Current returns the snapshot serving reads. It is never nil.
func (m *SnapshotManager) Current() *SimilaritySnapshot {
	return m.current.Load()
}

// SimilarUsers wraps the current snapshot's neighbor lists.
func (m *SnapshotManager) SimilarUsers(ctx context.Context, userID string, k int) ([]models.SimilarUser, error) {
	users, ok := m.Current().SimilarUsers(userID, k)
	if !ok {
		return []models.SimilarUser{}, nil
	}
	return users, nil
}

// Refresh rebuilds the snapshot from the interaction source. Concurrent
// calls are serialized; the version always increases.
func (m *SnapshotManager) Refresh(ctx context.Context) (*SimilaritySnapshot, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()

	stats, err := m.source.ListInteractionStats(ctx)
	if err != nil {
		m.metrics.RecordSnapshotRefresh(nil, err, time.Since(start))
		return nil, fmt.Errorf("%w: failed to load interactions: %v", ErrSnapshotUnavailable, err)
	}

	now := m.now()
	vectors := BuildInteractionVectors(stats, now)
	next := BuildSnapshot(m.Current().Version()+1, vectors, m.config.Neighbors, m.config.Workers, now)
	m.current.Store(next)

	duration := time.Since(start)
	m.metrics.RecordSnapshotRefresh(next, nil, duration)

	info := next.Info()
	m.logger.WithFields(logrus.Fields{
		"version":     info.Version,
		"users":       info.Users,
		"restaurants": info.Restaurants,
		"neighbors":   info.Neighbors,
		"duration":    duration,
	}).Info("Similarity snapshot refreshed")

	if m.publisher != nil && m.config.PublishGraph {
		if err := m.publisher.PublishNeighbors(ctx, next); err != nil {
			m.logger.WithError(err).WithField("version", info.Version).Warn("Failed to publish similarity graph")
		}
	}

	return next, nil
}

// Start schedules periodic refreshes using the configured cron spec.
func (m *SnapshotManager) Start() error {
	if m.config.RefreshSchedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.config.RefreshSchedule, m.refreshJob); err != nil {
		return fmt.Errorf("invalid snapshot refresh schedule %q: %w", m.config.RefreshSchedule, err)
	}
	m.cron = c
	c.Start()

	m.logger.WithField("schedule", m.config.RefreshSchedule).Info("Snapshot refresh scheduled")
	return nil
}

// Stop cancels the schedule and waits for a running refresh to finish.
func (m *SnapshotManager) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

func (m *SnapshotManager) refreshJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := m.Refresh(ctx); err != nil {
		m.logger.WithError(err).Error("Scheduled snapshot refresh failed")
	}
}
