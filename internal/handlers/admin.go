package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

// ActionLimiter throttles named actions per caller.
type ActionLimiter interface {
	AllowAction(ctx context.Context, userID, action string, limit int) (bool, *models.RateLimitInfo)
}

// AdminHandler serves snapshot and ranking-policy endpoints.
type AdminHandler struct {
	logger    *logrus.Logger
	config    *config.Config
	snapshots services.SnapshotServiceInterface
	limiter   ActionLimiter // optional
}

func NewAdminHandler(logger *logrus.Logger, cfg *config.Config, snapshots services.SnapshotServiceInterface, limiter ActionLimiter) *AdminHandler {
	return &AdminHandler{
		logger:    logger,
		config:    cfg,
		snapshots: snapshots,
		limiter:   limiter,
	}
}

// GetSnapshot describes the snapshot currently serving reads.
func (h *AdminHandler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"snapshot": h.snapshots.Current().Info(),
	})
}

// RefreshSnapshot rebuilds the similarity snapshot synchronously. Requests
// keep being served from the previous snapshot until the swap.
func (h *AdminHandler) RefreshSnapshot(c *gin.Context) {
	userID, _, _ := middleware.GetUserFromContext(c)

	if h.limiter != nil {
		allowed, info := h.limiter.AllowAction(c.Request.Context(), userID, services.ActionSnapshotRefresh, h.config.Auth.RateLimit.SnapshotRefresh)
		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))
			respondError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Snapshot refresh limit exceeded. Please try again later.")
			return
		}
	}

	previous := h.snapshots.Current().Version()
	snapshot, err := h.snapshots.Refresh(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Manual snapshot refresh failed")
		if errors.Is(err, services.ErrSnapshotUnavailable) {
			respondError(c, http.StatusServiceUnavailable, "SNAPSHOT_REFRESH_FAILED", "Interaction data is temporarily unavailable")
			return
		}
		respondError(c, http.StatusInternalServerError, "SNAPSHOT_REFRESH_FAILED", "Failed to refresh snapshot")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"previous": previous,
		"version":  snapshot.Version(),
	}).Info("Snapshot refreshed on demand")

	c.JSON(http.StatusOK, gin.H{
		"message":          "Snapshot refreshed successfully",
		"previous_version": previous,
		"snapshot":         snapshot.Info(),
	})
}

// GetRankingConfig returns the ranking policy in effect.
func (h *AdminHandler) GetRankingConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ranking": h.config.Ranking,
	})
}

// ValidateRankingConfig overlays the request body on the current policy and
// reports whether the result would be accepted at startup. Nothing is
// applied.
func (h *AdminHandler) ValidateRankingConfig(c *gin.Context) {
	candidate := h.config.Ranking
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid ranking configuration format",
				"details": err.Error(),
			},
		})
		return
	}

	if err := candidate.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"valid": false,
			"error": gin.H{
				"code":    "INVALID_RANKING_CONFIG",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"ranking": candidate,
	})
}
