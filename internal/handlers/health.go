package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

// SnapshotVersionHeader reports the similarity snapshot serving traffic.
const SnapshotVersionHeader = "X-Snapshot-Version"

type HealthHandler struct {
	logger        *logrus.Logger
	healthService *services.HealthService
}

func NewHealthHandler(logger *logrus.Logger, healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
	}
}

// Check answers 200 while every critical dependency is up, including when
// only the snapshot or an optional store is degraded.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	c.Header("Cache-Control", "no-store")
	if info, ok := status.Details["snapshot"].(models.SnapshotInfo); ok {
		c.Header(SnapshotVersionHeader, strconv.FormatInt(info.Version, 10))
	}

	httpStatus := http.StatusOK
	if status.Status == services.StatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
		h.logger.WithField("critical_failures", status.Critical).Warn("Health check failed")
	}

	c.JSON(httpStatus, status)
}
