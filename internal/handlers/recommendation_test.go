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
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

// MockRecommendationService is a mock implementation
type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) Recommend(ctx context.Context, reqCtx *services.RecommendationContext) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, reqCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResponse), args.Error(1)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func sampleResponse(userID string) *models.RecommendationResponse {
	return &models.RecommendationResponse{
		RequestID: "req-123",
		UserID:    userID,
		Recommendations: []models.RecommendedRestaurant{
			{
				Position:   1,
				Restaurant: models.Restaurant{ID: "r1", Name: "Truffles", Cuisine: "Continental"},
				Score:      0.91,
				Explanation: models.Explanation{
					Primary: models.Reason{Category: "rating", Tier: models.TierMedium, Text: "Rated 4.6/5 by 900 customers"},
					Summary: "Rated 4.6/5 by 900 customers.",
				},
			},
		},
		Metadata:    models.RecommendationMetadata{Eligibility: "ELIGIBLE_FULL", Relaxation: "none"},
		GeneratedAt: time.Now(),
	}
}

func setupRecommendationRouter(handler *RecommendationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextRequestID, "req-123")
		c.Next()
	})
	router.GET("/recommendations/:userId", handler.Get)
	router.POST("/recommendations", handler.Post)
	return router
}

func TestRecommendationHandler_Get(t *testing.T) {
	mockService := new(MockRecommendationService)
	handler := NewRecommendationHandler(mockService, newTestLogger())
	router := setupRecommendationRouter(handler)

	mockService.On("Recommend", mock.Anything, mock.MatchedBy(func(reqCtx *services.RecommendationContext) bool {
		return reqCtx.UserID == "user-42" &&
			reqCtx.RequestID == "req-123" &&
			reqCtx.Count == 5 &&
			reqCtx.Context.TimeBucket == models.TimeDinner &&
			reqCtx.Context.Weather == models.WeatherRainy &&
			reqCtx.Context.DayOfWeek == time.Saturday &&
			reqCtx.Context.Location == models.GeoPoint{Lat: 12.97, Lon: 77.59}
	})).Return(sampleResponse("user-42"), nil)

	req := httptest.NewRequest(http.MethodGet, "/recommendations/user-42?count=5&time_bucket=dinner&weather=rainy&day=6&lat=12.97&lon=77.59", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response models.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user-42", response.UserID)
	require.Len(t, response.Recommendations, 1)
	assert.Equal(t, "r1", response.Recommendations[0].Restaurant.ID)
	assert.Equal(t, "Rated 4.6/5 by 900 customers.", response.Recommendations[0].Explanation.Summary)

	mockService.AssertExpectations(t)
}

func TestRecommendationHandler_GetDefaults(t *testing.T) {
	mockService := new(MockRecommendationService)
	handler := NewRecommendationHandler(mockService, newTestLogger())
	router := setupRecommendationRouter(handler)

	mockService.On("Recommend", mock.Anything, mock.MatchedBy(func(reqCtx *services.RecommendationContext) bool {
		return reqCtx.Count == 0 &&
			reqCtx.Context.TimeBucket == "" &&
			reqCtx.Context.Location.IsZero()
	})).Return(sampleResponse("u1"), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommendations/u1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestRecommendationHandler_GetRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"non-numeric count", "count=ten", "INVALID_COUNT"},
		{"negative count", "count=-3", "VALIDATION_FAILED"},
		{"non-numeric day", "day=monday", "INVALID_DAY"},
		{"day out of range", "day=9", "VALIDATION_FAILED"},
		{"lat without lon", "lat=12.9", "INVALID_LOCATION"},
		{"latitude out of range", "lat=123&lon=77.5", "VALIDATION_FAILED"},
		{"unknown weather", "weather=foggy", "VALIDATION_FAILED"},
		{"unknown time bucket", "time_bucket=brunch", "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockRecommendationService)
			router := setupRecommendationRouter(NewRecommendationHandler(mockService, newTestLogger()))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommendations/u1?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			mockService.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything)
		})
	}
}

func TestRecommendationHandler_Post(t *testing.T) {
	mockService := new(MockRecommendationService)
	router := setupRecommendationRouter(NewRecommendationHandler(mockService, newTestLogger()))

	mockService.On("Recommend", mock.Anything, mock.MatchedBy(func(reqCtx *services.RecommendationContext) bool {
		return reqCtx.UserID == "u7" && reqCtx.Count == 3 && reqCtx.Context.Weather == models.WeatherHot
	})).Return(sampleResponse("u7"), nil)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id": "u7",
		"count":   3,
		"weather": "hot",
	})
	req := httptest.NewRequest(http.MethodPost, "/recommendations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestRecommendationHandler_PostInvalidBody(t *testing.T) {
	mockService := new(MockRecommendationService)
	router := setupRecommendationRouter(NewRecommendationHandler(mockService, newTestLogger()))

	req := httptest.NewRequest(http.MethodPost, "/recommendations", bytes.NewBufferString(`{"user_id":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestRecommendationHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{"unknown user", fmt.Errorf("%w: ghost", services.ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND", ""},
		{"invalid request", services.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST", ""},
		{"upstream down", fmt.Errorf("%w: timeout", services.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "5"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "RECOMMENDATION_GENERATION_FAILED", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockRecommendationService)
			router := setupRecommendationRouter(NewRecommendationHandler(mockService, newTestLogger()))
			mockService.On("Recommend", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommendations/ghost", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}
