package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/temcen/dinerank/internal/validation"
)

const maxUserIDLength = 64

var (
	validTimeBuckets = []string{"breakfast", "lunch", "dinner", "late_night"}
	validWeather     = []string{"clear", "rainy", "hot", "cold"}
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

func (vm *ValidationMiddleware) ValidateRecommendationRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.RecommendationRequestSchema)
}

func (vm *ValidationMiddleware) ValidateTokenRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.TokenRequestSchema)
}

// validateRequestBody checks the body against a schema and restores it for
// the handler.
func (vm *ValidationMiddleware) validateRequestBody(schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bodyBytes) == 0 {
			vm.sendValidationError(c, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		if !json.Valid(bodyBytes) {
			vm.sendValidationError(c, "INVALID_JSON", "Request body must be valid JSON", nil)
			return
		}

		result := vm.validator.ValidateJSONString(schemaName, string(bodyBytes))
		if !result.Valid {
			vm.sendValidationErrors(c, result.Errors)
			return
		}

		c.Next()
	}
}

// ValidateRecommendationQuery checks the path and query parameters of the
// GET recommendations route.
func (vm *ValidationMiddleware) ValidateRecommendationQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		errors := make([]validation.ValidationError, 0)
		addError := func(field, message, code, value string) {
			errors = append(errors, validation.ValidationError{Field: field, Message: message, Code: code, Value: value})
		}

		if userID := c.Param("userId"); !isValidUserID(userID) {
			addError("userId", "User ID must be 1 to 64 characters of letters, digits, '_', '-', '.' or ':'", "INVALID_PATH_PARAM", userID)
		}

		if count := c.Query("count"); count != "" {
			if n, err := strconv.Atoi(count); err != nil || n < 0 {
				addError("count", "Count must be a non-negative integer", "INVALID_QUERY_PARAM", count)
			}
		}

		if bucket := c.Query("time_bucket"); bucket != "" && !isValidEnum(bucket, validTimeBuckets) {
			addError("time_bucket", fmt.Sprintf("Time bucket must be one of: %s", strings.Join(validTimeBuckets, ", ")), "INVALID_QUERY_PARAM", bucket)
		}

		if weather := c.Query("weather"); weather != "" && !isValidEnum(weather, validWeather) {
			addError("weather", fmt.Sprintf("Weather must be one of: %s", strings.Join(validWeather, ", ")), "INVALID_QUERY_PARAM", weather)
		}

		if day := c.Query("day"); day != "" {
			if n, err := strconv.Atoi(day); err != nil || n < 0 || n > 6 {
				addError("day", "Day must be an integer between 0 (Sunday) and 6", "INVALID_QUERY_PARAM", day)
			}
		}

		lat, lon := c.Query("lat"), c.Query("lon")
		if (lat == "") != (lon == "") {
			addError("location", "lat and lon must be given together", "INVALID_QUERY_PARAM", lat+","+lon)
		}
		if lat != "" && !isValidCoordinate(lat, 90) {
			addError("lat", "Latitude must be a number between -90 and 90", "INVALID_QUERY_PARAM", lat)
		}
		if lon != "" && !isValidCoordinate(lon, 180) {
			addError("lon", "Longitude must be a number between -180 and 180", "INVALID_QUERY_PARAM", lon)
		}

		if len(errors) > 0 {
			vm.sendValidationErrors(c, errors)
			return
		}

		c.Next()
	}
}

// ValidateHeaders validates required headers
func (vm *ValidationMiddleware) ValidateHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		errors := make([]validation.ValidationError, 0)

		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch {
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength != 0 && contentType == "" {
				errors = append(errors, validation.ValidationError{
					Field:   "Content-Type",
					Message: "Content-Type header is required",
					Code:    "MISSING_HEADER",
				})
			} else if contentType != "" && !strings.Contains(contentType, "application/json") {
				errors = append(errors, validation.ValidationError{
					Field:   "Content-Type",
					Message: "Content-Type must be application/json",
					Code:    "INVALID_HEADER",
					Value:   contentType,
				})
			}
		}

		if accept := c.GetHeader("Accept"); accept != "" {
			if !strings.Contains(accept, "application/json") && !strings.Contains(accept, "*/*") {
				errors = append(errors, validation.ValidationError{
					Field:   "Accept",
					Message: "Accept header must include application/json",
					Code:    "INVALID_HEADER",
					Value:   accept,
				})
			}
		}

		if len(errors) > 0 {
			vm.sendValidationErrors(c, errors)
			return
		}

		c.Next()
	}
}

func isValidUserID(value string) bool {
	if len(value) == 0 || len(value) > maxUserIDLength {
		return false
	}
	for _, char := range value {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_' || char == '.' || char == ':') {
			return false
		}
	}
	return true
}

func isValidCoordinate(value string, limit float64) bool {
	f, err := strconv.ParseFloat(value, 64)
	return err == nil && f >= -limit && f <= limit
}

func isValidEnum(value string, validValues []string) bool {
	for _, valid := range validValues {
		if value == valid {
			return true
		}
	}
	return false
}

func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"details":   details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": requestIDFor(c),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		},
	})
}

func (vm *ValidationMiddleware) sendValidationErrors(c *gin.Context, errors []validation.ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":      "VALIDATION_ERROR",
			"message":   "Request validation failed",
			"details":   validation.FieldDetails(errors),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": requestIDFor(c),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		},
	})
}

func requestIDFor(c *gin.Context) string {
	if id := c.GetString(ContextRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}
