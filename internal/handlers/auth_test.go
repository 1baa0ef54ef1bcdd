package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "handler-secret", TokenTTL: time.Hour}}
	authService := services.NewAuthService(cfg, newTestLogger(), nil)
	handler := NewAuthHandler(newTestLogger(), authService)

	router := gin.New()
	router.POST("/auth/token", handler.IssueToken)
	router.DELETE("/auth/token", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		c.Next()
	}, handler.RevokeToken)
	return router, authService
}

func TestAuthHandler_IssueToken(t *testing.T) {
	router, authService := setupAuthRouter(t)

	body, _ := json.Marshal(TokenRequest{APIKey: "demo-enterprise-key", UserID: "ops"})
	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "enterprise", resp.UserTier)

	claims, err := authService.ValidateToken(req.Context(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, services.RoleAdmin, claims.Role)
}

func TestAuthHandler_IssueTokenErrors(t *testing.T) {
	router, _ := setupAuthRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"api_key":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing user", `{"api_key":"demo-free-key"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown key", `{"api_key":"nope","user_id":"u1"}`, http.StatusUnauthorized, "INVALID_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestAuthHandler_RevokeToken(t *testing.T) {
	router, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/auth/token", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
