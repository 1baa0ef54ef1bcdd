package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// Rate-limited actions beyond plain API calls.
const ActionSnapshotRefresh = "snapshot_refresh"

// RateLimitService keeps sliding windows in a Redis sorted set per key.
// When Redis is unreachable every request is allowed.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	now         func() time.Time
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (s *RateLimitService) CheckLimit(ctx context.Context, userID, userTier string) (*models.RateLimitInfo, error) {
	limit := s.getLimitForTier(userTier)
	key := fmt.Sprintf("rate_limit:user:%s", userID)
	return s.slidingWindow(ctx, key, limit, s.config.Auth.RateLimit.Window)
}

func (s *RateLimitService) IsAllowed(ctx context.Context, userID, userTier string) (bool, *models.RateLimitInfo, error) {
	info, err := s.CheckLimit(ctx, userID, userTier)
	if err != nil {
		return false, nil, err
	}

	allowed := info.Remaining > 0
	return allowed, info, nil
}

// AllowAction throttles a named action per user, independent of tier.
func (s *RateLimitService) AllowAction(ctx context.Context, userID, action string, limit int) (bool, *models.RateLimitInfo) {
	key := fmt.Sprintf("rate_limit:%s:%s", userID, action)
	info, err := s.slidingWindow(ctx, key, limit, s.config.Auth.RateLimit.Window)
	if err != nil {
		return true, info
	}
	return info.Remaining > 0, info
}

func (s *RateLimitService) slidingWindow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitInfo, error) {
	now := s.now()
	windowStart := now.Add(-window)
	permissive := &models.RateLimitInfo{
		Limit:     limit,
		Remaining: limit,
		ResetTime: now.Add(window).Unix(),
	}

	if s.redisClient == nil {
		return permissive, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()

	// Remove expired entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))

	// Count requests before this one
	countCmd := pipe.ZCard(ctx, key)

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to execute rate limit pipeline")
		return permissive, nil
	}

	remaining := limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(window).Unix(),
	}, nil
}

func (s *RateLimitService) getLimitForTier(userTier string) int {
	switch userTier {
	case "premium":
		return s.config.Auth.RateLimit.Premium
	case "enterprise":
		return s.config.Auth.RateLimit.Premium * 10
	default:
		return s.config.Auth.RateLimit.Default
	}
}
