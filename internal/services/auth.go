package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

const tokenIssuer = "dinerank"

// Roles carried in tokens. Admin routes require RoleAdmin.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type AuthService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
		now:         time.Now,
	}
}

// GenerateToken signs a session token for the user and records the session
// in Redis. A Redis failure does not fail token generation.
func (s *AuthService) GenerateToken(ctx context.Context, userID, apiKey, userTier string) (*models.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.config.Auth.TokenTTL)
	claims := &models.JWTClaims{
		UserID:   userID,
		APIKey:   apiKey,
		UserTier: userTier,
		Role:     roleForTier(userTier),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if s.redisClient != nil {
		err = s.redisClient.Set(ctx, sessionKey(userID), tokenString, s.config.Auth.TokenTTL).Err()
		if err != nil {
			s.logger.WithError(err).Warn("Failed to store session in Redis")
		}
	}

	return &models.AuthResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		UserTier:  userTier,
	}, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if s.redisClient == nil {
		return claims, nil
	}

	// A missing session means the token was revoked.
	exists, err := s.redisClient.Exists(ctx, sessionKey(claims.UserID)).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to check session in Redis")
	} else if exists == 0 {
		return nil, fmt.Errorf("session not found or expired")
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, userID string) error {
	if s.redisClient == nil {
		return nil
	}
	if err := s.redisClient.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateAPIKey maps an API key to its tier.
func (s *AuthService) ValidateAPIKey(apiKey string) (string, error) {
	apiKeyToTier := map[string]string{
		"demo-free-key":       "free",
		"demo-premium-key":    "premium",
		"demo-enterprise-key": "enterprise",
	}

	if tier, exists := apiKeyToTier[apiKey]; exists {
		return tier, nil
	}

	return "", fmt.Errorf("invalid API key")
}

func roleForTier(userTier string) string {
	if userTier == "enterprise" {
		return RoleAdmin
	}
	return RoleClient
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
