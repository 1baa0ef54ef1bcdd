package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/temcen/dinerank/internal/config"
)

// CORS allows browser clients to call the API. Credentials are only
// allowed when the origin list is explicit.
func CORS(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Security.CORS.AllowedOrigins
	wildcard := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			wildcard = true
		}
	}

	corsConfig := cors.Config{
		AllowMethods: cfg.Security.CORS.AllowedMethods,
		AllowHeaders: cfg.Security.CORS.AllowedHeaders,
		ExposeHeaders: []string{
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
			RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if wildcard {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}

	return cors.New(corsConfig)
}
