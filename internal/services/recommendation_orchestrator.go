package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// RecommendationContext is a single recommend call after request parsing.
type RecommendationContext struct {
	RequestID string                `json:"request_id"`
	UserID    string                `json:"user_id"`
	Count     int                   `json:"count"`
	Context   models.RequestContext `json:"context"`
}

// EventPublisher receives an event for every served response.
type EventPublisher interface {
	PublishRecommendationServed(ctx context.Context, event models.RecommendationServedEvent) error
}

// SnapshotSource exposes the snapshot serving reads.
type SnapshotSource interface {
	Current() *SimilaritySnapshot
}

// RecommendationOrchestrator loads ranking inputs, runs the hybrid ranker
// inside a time budget and handles caching, fallback and event publishing.
type RecommendationOrchestrator struct {
	features  FeatureProvider
	snapshots SnapshotSource
	ranker    *HybridRanker
	publisher EventPublisher    // optional
	redis     *redis.Client     // warm cache, optional
	metrics   *MetricsCollector // optional
	config    *config.RankingConfig
	logger    *logrus.Logger
	now       func() time.Time

	inflight sync.WaitGroup
}

// NewRecommendationOrchestrator creates a new recommendation orchestrator
func NewRecommendationOrchestrator(
	features FeatureProvider,
	snapshots SnapshotSource,
	ranker *HybridRanker,
	publisher EventPublisher,
	redis *redis.Client,
	metrics *MetricsCollector,
	config *config.RankingConfig,
	logger *logrus.Logger,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		features:  features,
		snapshots: snapshots,
		ranker:    ranker,
		publisher: publisher,
		redis:     redis,
		metrics:   metrics,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Recommend returns at most Count restaurants for the user. Only a missing
// user or an unavailable profile or candidate store produce an error.
func (o *RecommendationOrchestrator) Recommend(ctx context.Context, reqCtx *RecommendationContext) (*models.RecommendationResponse, error) {
	startTime := o.now()

	if reqCtx.UserID == "" || reqCtx.Count < 0 {
		return nil, ErrInvalidRequest
	}
	count := reqCtx.Count
	if count == 0 {
		count = o.config.DefaultCount
	}
	if count > o.config.MaxCount {
		count = o.config.MaxCount
	}
	requestID := reqCtx.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	situation := o.completeContext(reqCtx.Context, startTime)

	logger := o.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    reqCtx.UserID,
	})

	// Readers keep this snapshot for the whole request, even across a refresh.
	snapshot := o.snapshots.Current()
	cacheKey := o.buildCacheKey(reqCtx.UserID, situation, count, snapshot.Version())

	if cached, err := o.getCachedRecommendations(ctx, cacheKey); err == nil && cached != nil {
		o.metrics.RecordCacheResult("recommendations", true)
		logger.Debug("Recommendation cache hit")
		cached.RequestID = requestID
		cached.CacheHit = true
		o.publishServed(cached)
		return cached, nil
	}
	o.metrics.RecordCacheResult("recommendations", false)

	profile, err := o.features.GetUserProfile(ctx, reqCtx.UserID)
	if err != nil {
		return nil, upstreamError(err)
	}

	location := situation.Location
	if location.IsZero() {
		location = profile.Location
	}

	candidates, err := o.features.GetCandidateRestaurants(ctx, location, o.config.CandidateRadiusKm)
	if err != nil {
		return nil, upstreamError(err)
	}

	input := RankingInput{
		Profile:    profile,
		Context:    situation,
		Candidates: candidates,
		Snapshot:   snapshot,
		Count:      count,
		Ordered:    profile.OrderedRestaurants,
	}

	budgetCtx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()

	if o.ranker.Eligibility(profile) == EligibleFull {
		weights, err := o.features.GetInteractionWeights(budgetCtx, reqCtx.UserID)
		if err != nil {
			logger.WithError(err).Warn("Failed to load interaction weights, collaborative signal skipped")
		}
		input.Interactions = weights
	}

	result, timedOut := o.rankWithBudget(budgetCtx, input)
	if timedOut {
		logger.WithField("budget", o.config.RequestTimeout).Warn("Ranking exceeded its time budget, serving popular fallback")
	}
	if timedOut || result.NeedsFallback {
		result = o.rankPopular(ctx, input, logger)
	}
	if result.Eligibility == EligibleFull && !timedOut && input.Interactions.IsZero() {
		o.metrics.RecordCollaborativeEmpty()
	}

	response := o.buildResponse(requestID, reqCtx.UserID, situation, result, timedOut, startTime)

	if err := o.cacheRecommendations(ctx, cacheKey, response); err != nil {
		logger.WithError(err).Warn("Failed to cache recommendations")
	}

	duration := o.now().Sub(startTime)
	o.metrics.RecordRecommendation(result.Eligibility, result.Relaxation, response.Metadata.Degraded, result.DiversityBackfilled, duration)
	o.publishServed(response)

	logger.WithFields(logrus.Fields{
		"count":       len(response.Recommendations),
		"eligibility": result.Eligibility,
		"relaxation":  result.Relaxation.String(),
		"latency":     duration,
	}).Info("Recommendations generated")

	return response, nil
}

// rankWithBudget runs the ranker and gives up once ctx is done. The ranker
// holds no shared state, so an abandoned run finishes harmlessly.
func (o *RecommendationOrchestrator) rankWithBudget(ctx context.Context, input RankingInput) (RankingResult, bool) {
	if ctx.Err() != nil {
		return RankingResult{}, true
	}

	done := make(chan RankingResult, 1)
	go func() {
		done <- o.ranker.Rank(input)
	}()

	select {
	case result := <-done:
		return result, false
	case <-ctx.Done():
		return RankingResult{}, true
	}
}

func (o *RecommendationOrchestrator) rankPopular(ctx context.Context, input RankingInput, logger *logrus.Entry) RankingResult {
	location := input.Context.Location
	if location.IsZero() {
		location = input.Profile.Location
	}

	popular, err := o.features.GetPopularRestaurants(ctx, location)
	if err != nil {
		logger.WithError(err).Warn("Popular restaurants unavailable, returning empty result")
		popular = nil
	}
	return o.ranker.RankFallback(input, popular)
}

func (o *RecommendationOrchestrator) completeContext(in models.RequestContext, now time.Time) models.RequestContext {
	if in.TimeBucket == "" {
		in.TimeBucket = models.TimeBucketAt(now)
	}
	if in.Weather == "" {
		in.Weather = models.WeatherClear
	}
	return in
}

func (o *RecommendationOrchestrator) buildResponse(
	requestID, userID string,
	situation models.RequestContext,
	result RankingResult,
	timedOut bool,
	startTime time.Time,
) *models.RecommendationResponse {
	items := make([]models.RecommendedRestaurant, len(result.Items))
	for i, item := range result.Items {
		scores := models.ScoreBreakdown{
			Content:      item.Content,
			Contextual:   item.Contextual,
			ContextBoost: item.ContextBoost,
		}
		if item.HasCollab {
			cf := item.Collaborative
			scores.Collaborative = &cf
		}
		items[i] = models.RecommendedRestaurant{
			Position:    i + 1,
			Restaurant:  *item.Restaurant,
			Score:       item.Final,
			Scores:      scores,
			DistanceKm:  item.DistanceKm,
			Explanation: item.Explanation,
		}
	}

	return &models.RecommendationResponse{
		RequestID:       requestID,
		UserID:          userID,
		Recommendations: items,
		Context:         situation,
		Metadata: models.RecommendationMetadata{
			Eligibility:         string(result.Eligibility),
			RelaxationLevel:     int(result.Relaxation),
			Relaxation:          result.Relaxation.String(),
			Degraded:            result.Degraded || timedOut,
			DiversityBackfilled: result.DiversityBackfilled,
			SnapshotVersion:     result.SnapshotVersion,
			CandidateCount:      result.CandidateCount,
			TimedOut:            timedOut,
		},
		GeneratedAt: startTime,
	}
}

func (o *RecommendationOrchestrator) publishServed(response *models.RecommendationResponse) {
	if o.publisher == nil {
		return
	}

	ids := make([]string, len(response.Recommendations))
	for i, rec := range response.Recommendations {
		ids[i] = rec.Restaurant.ID
	}
	event := models.RecommendationServedEvent{
		EventID:         uuid.NewString(),
		RequestID:       response.RequestID,
		UserID:          response.UserID,
		RestaurantIDs:   ids,
		Eligibility:     response.Metadata.Eligibility,
		RelaxationLevel: response.Metadata.RelaxationLevel,
		Degraded:        response.Metadata.Degraded,
		SnapshotVersion: response.Metadata.SnapshotVersion,
		TimeBucket:      response.Context.TimeBucket,
		Weather:         response.Context.Weather,
		ServedAt:        o.now(),
	}

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.publisher.PublishRecommendationServed(ctx, event); err != nil {
			o.logger.WithError(err).WithField("request_id", event.RequestID).Warn("Failed to publish served event")
		}
	}()
}

// Wait blocks until pending event publishes have finished.
func (o *RecommendationOrchestrator) Wait() {
	o.inflight.Wait()
}

// upstreamError keeps not-found and unavailable errors distinguishable.
func upstreamError(err error) error {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// Cache operations

func (o *RecommendationOrchestrator) getCachedRecommendations(ctx context.Context, cacheKey string) (*models.RecommendationResponse, error) {
	if o.redis == nil {
		return nil, fmt.Errorf("cache not available")
	}

	cached := o.redis.Get(ctx, cacheKey).Val()
	if cached == "" {
		return nil, fmt.Errorf("cache miss")
	}

	var response models.RecommendationResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (o *RecommendationOrchestrator) cacheRecommendations(ctx context.Context, cacheKey string, response *models.RecommendationResponse) error {
	if o.redis == nil {
		return nil // No caching available, but not an error
	}
	// Degraded answers are not worth pinning for a full TTL.
	if response.Metadata.Degraded {
		return nil
	}

	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return o.redis.Set(ctx, cacheKey, data, o.config.Caching.RecommendationsTTL).Err()
}

// buildCacheKey includes the snapshot version so a refresh invalidates
// every cached answer.
func (o *RecommendationOrchestrator) buildCacheKey(userID string, situation models.RequestContext, count int, version int64) string {
	return fmt.Sprintf("recommendations:%s:%s:%s:%d:%.3f:%.3f:%d:v%d",
		userID,
		situation.TimeBucket,
		situation.Weather,
		situation.DayOfWeek,
		situation.Location.Lat,
		situation.Location.Lon,
		count,
		version,
	)
}
