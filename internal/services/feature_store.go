package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// FeatureProvider supplies the per-request inputs of the ranker.
type FeatureProvider interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetCandidateRestaurants(ctx context.Context, location models.GeoPoint, radiusKm float64) ([]models.Restaurant, error)
	GetInteractionWeights(ctx context.Context, userID string) (models.InteractionVector, error)
	GetPopularRestaurants(ctx context.Context, location models.GeoPoint) ([]models.Restaurant, error)
}

const restaurantColumns = `
	restaurant_id, name, cuisine, avg_rating, review_count, price_tier,
	avg_delivery_minutes, is_veg_only, is_accepting_orders, lat, lon, popularity_score`

// FeatureStore reads users, restaurants and orders from PostgreSQL. The
// popular list is cached in the warm Redis tier when one is configured.
type FeatureStore struct {
	db     DatabaseQuerier
	redis  *redis.Client // warm cache, optional
	config *config.RankingConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewFeatureStore(db DatabaseQuerier, redis *redis.Client, config *config.RankingConfig, logger *logrus.Logger) *FeatureStore {
	return &FeatureStore{
		db:     db,
		redis:  redis,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (s *FeatureStore) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, order_count,
			COALESCE(dietary, 'none'),
			COALESCE(price_sensitivity, ''),
			COALESCE(favorite_cuisine, ''),
			lat, lon
		FROM users
		WHERE user_id = $1`

	var (
		profile     models.UserProfile
		dietary     string
		sensitivity string
	)
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.OrderCount,
		&dietary,
		&sensitivity,
		&profile.FavoriteCuisine,
		&profile.Location.Lat,
		&profile.Location.Lon,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: profile query failed: %v", ErrUpstreamUnavailable, err)
	}

	profile.Dietary = parseDietary(dietary)
	profile.PriceTier = models.PriceSensitivity(strings.ToLower(sensitivity)).PreferredPriceTier()

	history, ordered, err := s.orderHistory(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load order history")
	}
	profile.CuisineHistory = history
	profile.OrderedRestaurants = ordered

	return &profile, nil
}

// orderHistory returns per-cuisine order counts and the restaurants the
// user has ordered from, in restaurant id order.
func (s *FeatureStore) orderHistory(ctx context.Context, userID string) (map[string]int, []string, error) {
	query := `
		SELECT o.restaurant_id, r.cuisine, COUNT(*)
		FROM orders o
		JOIN restaurants r ON r.restaurant_id = o.restaurant_id
		WHERE o.user_id = $1
		GROUP BY o.restaurant_id, r.cuisine
		ORDER BY o.restaurant_id`

	history := make(map[string]int)
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return history, nil, err
	}
	defer rows.Close()

	var ordered []string
	for rows.Next() {
		var restaurantID, cuisine string
		var count int
		if err := rows.Scan(&restaurantID, &cuisine, &count); err != nil {
			return history, ordered, err
		}
		history[cuisine] += count
		ordered = append(ordered, restaurantID)
	}
	return history, ordered, rows.Err()
}

func (s *FeatureStore) GetCandidateRestaurants(ctx context.Context, location models.GeoPoint, radiusKm float64) ([]models.Restaurant, error) {
	latDelta, lonDelta := boundingBox(location, radiusKm)

	query := `SELECT` + restaurantColumns + `
		FROM restaurants
		WHERE lat BETWEEN $1 AND $2
			AND lon BETWEEN $3 AND $4
		ORDER BY restaurant_id`

	rows, err := s.db.Query(ctx, query,
		location.Lat-latDelta, location.Lat+latDelta,
		location.Lon-lonDelta, location.Lon+lonDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: candidate query failed: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	restaurants, err := scanRestaurants(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: candidate scan failed: %v", ErrUpstreamUnavailable, err)
	}
	return restaurants, nil
}

func (s *FeatureStore) GetInteractionWeights(ctx context.Context, userID string) (models.InteractionVector, error) {
	query := `
		SELECT user_id, restaurant_id, COUNT(*), COALESCE(AVG(rating), 0), MAX(ordered_at)
		FROM orders
		WHERE user_id = $1
		GROUP BY user_id, restaurant_id`

	stats, err := s.queryInteractionStats(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return BuildInteractionVectors(stats, s.now())[userID], nil
}

// ListInteractionStats feeds snapshot builds with the whole population.
func (s *FeatureStore) ListInteractionStats(ctx context.Context) ([]InteractionStats, error) {
	query := `
		SELECT user_id, restaurant_id, COUNT(*), COALESCE(AVG(rating), 0), MAX(ordered_at)
		FROM orders
		GROUP BY user_id, restaurant_id`

	return s.queryInteractionStats(ctx, query)
}

func (s *FeatureStore) queryInteractionStats(ctx context.Context, query string, args ...interface{}) ([]InteractionStats, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("interaction query failed: %w", err)
	}
	defer rows.Close()

	var stats []InteractionStats
	for rows.Next() {
		var st InteractionStats
		if err := rows.Scan(&st.UserID, &st.RestaurantID, &st.OrderCount, &st.AvgUserRating, &st.LastOrderAt); err != nil {
			return nil, fmt.Errorf("interaction scan failed: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// GetPopularRestaurants returns the fallback list ordered by popularity,
// then rating, then review count.
func (s *FeatureStore) GetPopularRestaurants(ctx context.Context, location models.GeoPoint) ([]models.Restaurant, error) {
	cacheKey := fmt.Sprintf("popular:%.2f:%.2f", location.Lat, location.Lon)
	if cached, err := s.getCachedResults(ctx, cacheKey); err == nil && cached != nil {
		return cached, nil
	}

	latDelta, lonDelta := boundingBox(location, s.config.CandidateRadiusKm)
	query := `SELECT` + restaurantColumns + `
		FROM restaurants
		WHERE lat BETWEEN $1 AND $2
			AND lon BETWEEN $3 AND $4
		ORDER BY popularity_score DESC, avg_rating DESC, review_count DESC, restaurant_id
		LIMIT $5`

	rows, err := s.db.Query(ctx, query,
		location.Lat-latDelta, location.Lat+latDelta,
		location.Lon-lonDelta, location.Lon+lonDelta,
		s.config.MaxCount,
	)
	if err != nil {
		return nil, fmt.Errorf("popular query failed: %w", err)
	}
	defer rows.Close()

	restaurants, err := scanRestaurants(rows)
	if err != nil {
		return nil, fmt.Errorf("popular scan failed: %w", err)
	}

	if err := s.cacheResults(ctx, cacheKey, restaurants, s.config.Caching.PopularTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache popular restaurants")
	}
	return restaurants, nil
}

func scanRestaurants(rows pgx.Rows) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Cuisine, &r.AvgRating, &r.ReviewCount, &r.PriceTier,
			&r.AvgDeliveryMinutes, &r.IsVegOnly, &r.IsAcceptingOrders,
			&r.Location.Lat, &r.Location.Lon, &r.PopularityScore,
		); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}

// boundingBox converts a radius into degree offsets around a point.
func boundingBox(center models.GeoPoint, radiusKm float64) (latDelta, lonDelta float64) {
	latDelta = radiusKm / kmPerDegree
	cos := math.Cos(center.Lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	lonDelta = radiusKm / (kmPerDegree * cos)
	return latDelta, lonDelta
}

func parseDietary(s string) models.DietaryPreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "veg", "vegetarian":
		return models.DietVeg
	case "vegan":
		return models.DietVegan
	case "non_veg", "non-veg", "nonveg":
		return models.DietNonVeg
	default:
		return models.DietNone
	}
}

// Cache helper methods

func (s *FeatureStore) getCachedResults(ctx context.Context, key string) ([]models.Restaurant, error) {
	if s.redis == nil {
		return nil, nil
	}
	cached := s.redis.Get(ctx, key).Val()
	if cached == "" {
		return nil, fmt.Errorf("cache miss")
	}

	var results []models.Restaurant
	if err := json.Unmarshal([]byte(cached), &results); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *FeatureStore) cacheResults(ctx context.Context, key string, results []models.Restaurant, ttl time.Duration) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, key, data, ttl).Err()
}
