package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/services"
)

// Context keys set by Auth.
const (
	ContextUserID   = "user_id"
	ContextUserTier = "user_tier"
	ContextAPIKey   = "api_key"
	ContextRole     = "role"
)

func Auth(authService *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT", "Authorization header must be in format 'Bearer <token>'")
			return
		}

		tokenString := tokenParts[1]

		// API keys never contain dots, JWTs always do.
		if !strings.Contains(tokenString, ".") {
			userTier, err := authService.ValidateAPIKey(tokenString)
			if err != nil {
				logger.WithError(err).Warn("Invalid API key")
				abortWithError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key")
				return
			}

			// API key callers act on behalf of the user named in X-User-ID.
			userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
			if len(userID) > 64 {
				abortWithError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID format")
				return
			}
			if userID == "" {
				userID = "api:" + tokenString
			}

			c.Set(ContextUserID, userID)
			c.Set(ContextUserTier, userTier)
			c.Set(ContextAPIKey, tokenString)
			c.Set(ContextRole, roleForAPITier(userTier))
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.WithError(err).Warn("Invalid JWT token")
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserTier, claims.UserTier)
		c.Set(ContextAPIKey, claims.APIKey)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from role. It must run
// after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetUserFromContext returns the caller's user ID, tier and API key.
func GetUserFromContext(c *gin.Context) (string, string, string) {
	return c.GetString(ContextUserID), c.GetString(ContextUserTier), c.GetString(ContextAPIKey)
}

func roleForAPITier(userTier string) string {
	if userTier == "enterprise" {
		return services.RoleAdmin
	}
	return services.RoleClient
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
