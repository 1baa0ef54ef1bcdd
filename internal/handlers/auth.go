package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
)

type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
	UserID string `json:"user_id" validate:"required,max=64"`
}

// AuthHandler exchanges API keys for session tokens.
type AuthHandler struct {
	logger      *logrus.Logger
	authService *services.AuthService
	validator   *validator.Validate
}

func NewAuthHandler(logger *logrus.Logger, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		authService: authService,
		validator:   validator.New(),
	}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Request validation failed",
				"details": err.Error(),
			},
		})
		return
	}

	userTier, err := h.authService.ValidateAPIKey(req.APIKey)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key")
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), req.UserID, req.APIKey, userTier)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		respondError(c, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, token)
}

func (h *AuthHandler) RevokeToken(c *gin.Context) {
	userID, _, _ := middleware.GetUserFromContext(c)

	if err := h.authService.RevokeToken(c.Request.Context(), userID); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to revoke token")
		respondError(c, http.StatusServiceUnavailable, "REVOKE_FAILED", "Failed to revoke session")
		return
	}

	c.Status(http.StatusNoContent)
}
