package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

type MockSnapshotService struct {
	mock.Mock
}

func (m *MockSnapshotService) Current() *services.SimilaritySnapshot {
	args := m.Called()
	return args.Get(0).(*services.SimilaritySnapshot)
}

func (m *MockSnapshotService) Refresh(ctx context.Context) (*services.SimilaritySnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SimilaritySnapshot), args.Error(1)
}

type fixedLimiter struct {
	allowed bool
	calls   []string
}

func (l *fixedLimiter) AllowAction(_ context.Context, userID, action string, limit int) (bool, *models.RateLimitInfo) {
	l.calls = append(l.calls, fmt.Sprintf("%s:%s:%d", userID, action, limit))
	remaining := 0
	if l.allowed {
		remaining = limit
	}
	return l.allowed, &models.RateLimitInfo{Limit: limit, Remaining: remaining, ResetTime: 1700000000}
}

func testAdminConfig() *config.Config {
	return &config.Config{
		Auth:    config.AuthConfig{RateLimit: config.RateLimitConfig{SnapshotRefresh: 6, Window: time.Minute}},
		Ranking: config.DefaultRankingConfig(),
	}
}

func setupAdminRouter(handler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "ops")
		c.Next()
	})
	router.GET("/admin/snapshot", handler.GetSnapshot)
	router.POST("/admin/snapshot/refresh", handler.RefreshSnapshot)
	router.GET("/admin/ranking-config", handler.GetRankingConfig)
	router.POST("/admin/ranking-config/validate", handler.ValidateRankingConfig)
	return router
}

func testSnapshot(version int64) *services.SimilaritySnapshot {
	return services.BuildSnapshot(version, map[string]models.InteractionVector{
		"u1": {"r1": 1},
		"u2": {"r1": 1, "r2": 1},
	}, 10, 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
}

func TestAdminHandler_GetSnapshot(t *testing.T) {
	snapshots := new(MockSnapshotService)
	snapshots.On("Current").Return(testSnapshot(3))
	router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), snapshots, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/snapshot", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Snapshot models.SnapshotInfo `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Snapshot.Version)
	assert.Equal(t, 2, body.Snapshot.Users)
	assert.Equal(t, 2, body.Snapshot.Neighbors)
}

func TestAdminHandler_RefreshSnapshot(t *testing.T) {
	t.Run("refreshes", func(t *testing.T) {
		snapshots := new(MockSnapshotService)
		snapshots.On("Current").Return(testSnapshot(3))
		snapshots.On("Refresh", mock.Anything).Return(testSnapshot(4), nil)
		limiter := &fixedLimiter{allowed: true}
		router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), snapshots, limiter))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/snapshot/refresh", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			PreviousVersion int64               `json:"previous_version"`
			Snapshot        models.SnapshotInfo `json:"snapshot"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(3), body.PreviousVersion)
		assert.Equal(t, int64(4), body.Snapshot.Version)
		assert.Equal(t, []string{"ops:snapshot_refresh:6"}, limiter.calls)
	})

	t.Run("throttled", func(t *testing.T) {
		snapshots := new(MockSnapshotService)
		router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), snapshots, &fixedLimiter{allowed: false}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/snapshot/refresh", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, w))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		snapshots.AssertNotCalled(t, "Refresh", mock.Anything)
	})

	t.Run("interaction store unavailable", func(t *testing.T) {
		snapshots := new(MockSnapshotService)
		snapshots.On("Current").Return(testSnapshot(3))
		snapshots.On("Refresh", mock.Anything).Return(nil, fmt.Errorf("%w: db down", services.ErrSnapshotUnavailable))
		router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), snapshots, nil))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/snapshot/refresh", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "SNAPSHOT_REFRESH_FAILED", errorCode(t, w))
	})

	t.Run("unexpected failure", func(t *testing.T) {
		snapshots := new(MockSnapshotService)
		snapshots.On("Current").Return(testSnapshot(3))
		snapshots.On("Refresh", mock.Anything).Return(nil, errors.New("boom"))
		router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), snapshots, nil))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/snapshot/refresh", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAdminHandler_RankingConfig(t *testing.T) {
	router := setupAdminRouter(NewAdminHandler(newTestLogger(), testAdminConfig(), new(MockSnapshotService), nil))

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ranking-config", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"DefaultCount":10`)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid overlay", `{"MaxCount": 80}`, http.StatusOK},
		{"max below default", `{"MaxCount": 5}`, http.StatusUnprocessableEntity},
		{"malformed", `{"MaxCount": "many"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/ranking-config/validate", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
