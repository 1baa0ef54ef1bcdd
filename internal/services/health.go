package services

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/database"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthService struct {
	logger    *logrus.Logger
	checks    []HealthCheck
	snapshots SnapshotSource
	timeout   time.Duration
	now       func() time.Time

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
	systemMetrics     *prometheus.GaugeVec
}

// Health states, reported per dependency and overall.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]string      `json:"services"`
	Critical    []string               `json:"critical_failures,omitempty"`
	NonCritical []string               `json:"non_critical_failures,omitempty"`
	Latency     time.Duration          `json:"latency,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// DatabaseHealthChecks probes PostgreSQL and the hot Redis as critical, and
// the warm Redis and Neo4j as non-critical.
func DatabaseHealthChecks(db *database.Database) []HealthCheck {
	checks := []HealthCheck{
		{Name: "postgresql", Critical: true, Check: func(ctx context.Context) error { return db.PG.Ping(ctx) }},
		{Name: "redis_hot", Critical: true, Check: func(ctx context.Context) error { return db.Redis.Hot.Ping(ctx).Err() }},
		{Name: "redis_warm", Check: func(ctx context.Context) error { return db.Redis.Warm.Ping(ctx).Err() }},
	}
	if db.Neo4j != nil {
		checks = append(checks, HealthCheck{Name: "neo4j", Check: db.Neo4j.VerifyConnectivity})
	}
	return checks
}

func NewHealthService(logger *logrus.Logger, reg prometheus.Registerer, snapshots SnapshotSource, checks ...HealthCheck) *HealthService {
	factory := promauto.With(reg)

	return &HealthService{
		logger:    logger,
		checks:    checks,
		snapshots: snapshots,
		timeout:   5 * time.Second,
		now:       time.Now,

		healthCheckStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dinerank_health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),

		lastHealthCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dinerank_health_check_timestamp",
			Help: "Timestamp of last health check",
		}, []string{"service"}),

		systemMetrics: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dinerank_system_info",
			Help: "System information metrics",
		}, []string{"metric_type"}),
	}
}

// CheckHealth is unhealthy when a critical dependency fails and degraded
// when only non-critical ones do. An empty snapshot counts as non-critical.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := s.now()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
		Details:   make(map[string]interface{}),
	}

	allCriticalHealthy := true
	for _, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := check.Check(checkCtx)
		cancel()

		if err == nil {
			status.Services[check.Name] = StatusHealthy
			s.UpdateHealthMetrics(check.Name, true)
			continue
		}

		status.Services[check.Name] = StatusUnhealthy
		s.UpdateHealthMetrics(check.Name, false)
		if check.Critical {
			allCriticalHealthy = false
			status.Critical = append(status.Critical, check.Name)
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", check.Name)
		} else {
			status.NonCritical = append(status.NonCritical, check.Name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", check.Name)
		}
	}

	if s.snapshots != nil {
		info := s.snapshots.Current().Info()
		status.Details["snapshot"] = info
		if info.Version == 0 {
			status.Services["similarity_snapshot"] = StatusUnhealthy
			status.NonCritical = append(status.NonCritical, "similarity_snapshot")
		} else {
			status.Services["similarity_snapshot"] = StatusHealthy
		}
	}
	sort.Strings(status.Critical)
	sort.Strings(status.NonCritical)

	switch {
	case !allCriticalHealthy:
		status.Status = StatusUnhealthy
	case len(status.NonCritical) > 0:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	status.Latency = s.now().Sub(start)

	return status
}

// CollectSystemMetrics samples runtime statistics until ctx is done.
func (s *HealthService) CollectSystemMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var memStats runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		runtime.ReadMemStats(&memStats)
		s.systemMetrics.WithLabelValues("memory_alloc_bytes").Set(float64(memStats.Alloc))
		s.systemMetrics.WithLabelValues("memory_sys_bytes").Set(float64(memStats.Sys))
		s.systemMetrics.WithLabelValues("goroutines_count").Set(float64(runtime.NumGoroutine()))
		s.systemMetrics.WithLabelValues("gc_runs_total").Set(float64(memStats.NumGC))
	}
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	s.healthCheckStatus.WithLabelValues(serviceName).Set(value)
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(s.now().Unix()))
}

// String renders the status for logs.
func (h *HealthStatus) String() string {
	return fmt.Sprintf("%s (critical=%v non_critical=%v)", h.Status, h.Critical, h.NonCritical)
}
