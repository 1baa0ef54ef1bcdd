package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dinerank/pkg/models"
)

func passing(name string, critical bool) HealthCheck {
	return HealthCheck{Name: name, Critical: critical, Check: func(context.Context) error { return nil }}
}

func failing(name string, critical bool) HealthCheck {
	return HealthCheck{Name: name, Critical: critical, Check: func(context.Context) error { return errors.New("down") }}
}

func builtSnapshot() SnapshotSource {
	return staticSnapshots{BuildSnapshot(3, map[string]models.InteractionVector{"u1": {"r1": 1}}, 5, 1, time.Now())}
}

func TestHealthService_CheckHealth(t *testing.T) {
	tests := []struct {
		name        string
		snapshots   SnapshotSource
		checks      []HealthCheck
		status      string
		critical    []string
		nonCritical []string
	}{
		{
			name:      "all healthy",
			snapshots: builtSnapshot(),
			checks:    []HealthCheck{passing("postgresql", true), passing("redis_warm", false)},
			status:    "healthy",
		},
		{
			name:        "non-critical failure degrades",
			snapshots:   builtSnapshot(),
			checks:      []HealthCheck{passing("postgresql", true), failing("redis_warm", false)},
			status:      "degraded",
			nonCritical: []string{"redis_warm"},
		},
		{
			name:        "critical failure",
			snapshots:   builtSnapshot(),
			checks:      []HealthCheck{failing("redis_hot", true), failing("postgresql", true), failing("neo4j", false)},
			status:      "unhealthy",
			critical:    []string{"postgresql", "redis_hot"},
			nonCritical: []string{"neo4j"},
		},
		{
			name:        "empty snapshot degrades",
			snapshots:   staticSnapshots{NewEmptySnapshot()},
			checks:      []HealthCheck{passing("postgresql", true)},
			status:      "degraded",
			nonCritical: []string{"similarity_snapshot"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewHealthService(newTestLogger(), prometheus.NewRegistry(), tt.snapshots, tt.checks...)

			status := service.CheckHealth(context.Background())

			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.critical, status.Critical)
			assert.Equal(t, tt.nonCritical, status.NonCritical)
			assert.Contains(t, status.Services, "similarity_snapshot")
		})
	}
}

func TestHealthService_ChecksHonourTimeout(t *testing.T) {
	slow := HealthCheck{Name: "postgresql", Critical: true, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	service := NewHealthService(newTestLogger(), prometheus.NewRegistry(), nil, slow)
	service.timeout = 10 * time.Millisecond

	status := service.CheckHealth(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.NotContains(t, status.Services, "similarity_snapshot")
}

func TestHealthService_UpdateHealthMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	service := NewHealthService(newTestLogger(), registry, nil)

	service.UpdateHealthMetrics("postgresql", true)
	service.UpdateHealthMetrics("redis_hot", false)

	families, err := registry.Gather()
	require.NoError(t, err)

	status := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "dinerank_health_check_status" {
			continue
		}
		for _, m := range mf.GetMetric() {
			status[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"postgresql": 1, "redis_hot": 0}, status)
}
