package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/middleware"
	"github.com/temcen/dinerank/internal/services"
	"github.com/temcen/dinerank/pkg/models"
)

type RecommendationHandler struct {
	recommender services.RecommendationServiceInterface
	logger      *logrus.Logger
	validator   *validator.Validate
}

func NewRecommendationHandler(recommender services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger,
		validator:   validator.New(),
	}
}

// Get serves GET /recommendations/:userId. Context comes from the query
// string: time_bucket, weather, day, lat, lon and count.
func (h *RecommendationHandler) Get(c *gin.Context) {
	req := models.RecommendationRequest{
		UserID:     c.Param("userId"),
		TimeBucket: c.Query("time_bucket"),
		Weather:    c.Query("weather"),
	}

	if countStr := c.Query("count"); countStr != "" {
		count, err := strconv.Atoi(countStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_COUNT", "Count must be an integer")
			return
		}
		req.Count = count
	}

	if dayStr := c.Query("day"); dayStr != "" {
		day, err := strconv.Atoi(dayStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_DAY", "Day must be an integer between 0 and 6")
			return
		}
		req.DayOfWeek = &day
	}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" || lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			respondError(c, http.StatusBadRequest, "INVALID_LOCATION", "lat and lon must both be numbers")
			return
		}
		req.Location = &models.GeoPoint{Lat: lat, Lon: lon}
	}

	h.recommend(c, req)
}

// Post serves POST /recommendations with a JSON RecommendationRequest.
func (h *RecommendationHandler) Post(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to bind recommendation request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	h.recommend(c, req)
}

func (h *RecommendationHandler) recommend(c *gin.Context, req models.RecommendationRequest) {
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

	reqCtx := &services.RecommendationContext{
		RequestID: c.GetString(middleware.ContextRequestID),
		UserID:    req.UserID,
		Count:     req.Count,
		Context:   requestContext(req),
	}

	response, err := h.recommender.Recommend(c.Request.Context(), reqCtx)
	if err != nil {
		h.handleServiceError(c, req.UserID, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *RecommendationHandler) handleServiceError(c *gin.Context, userID string, err error) {
	logger := h.logger.WithError(err).WithField("user_id", userID)

	switch {
	case errors.Is(err, services.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, services.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, services.ErrUpstreamUnavailable):
		logger.Error("Recommendation dependencies unavailable")
		c.Header("Retry-After", "5")
		respondError(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Recommendation data is temporarily unavailable")
	default:
		logger.Error("Failed to generate recommendations")
		respondError(c, http.StatusInternalServerError, "RECOMMENDATION_GENERATION_FAILED", "Failed to generate recommendations")
	}
}

// requestContext leaves unset fields zero so the service can fill defaults.
func requestContext(req models.RecommendationRequest) models.RequestContext {
	ctx := models.RequestContext{
		TimeBucket: models.TimeBucket(req.TimeBucket),
		Weather:    models.Weather(req.Weather),
		DayOfWeek:  time.Now().Weekday(),
	}
	if req.DayOfWeek != nil {
		ctx.DayOfWeek = time.Weekday(*req.DayOfWeek)
	}
	if req.Location != nil {
		ctx.Location = *req.Location
	}
	return ctx
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
