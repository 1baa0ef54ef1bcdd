package services

import (
	"context"

	"github.com/temcen/dinerank/pkg/models"
)

// RecommendationServiceInterface is what the HTTP layer needs from the
// recommendation pipeline.
type RecommendationServiceInterface interface {
	Recommend(ctx context.Context, reqCtx *RecommendationContext) (*models.RecommendationResponse, error)
}

// SnapshotServiceInterface is what the admin endpoints need from the
// snapshot manager.
type SnapshotServiceInterface interface {
	Current() *SimilaritySnapshot
	Refresh(ctx context.Context) (*SimilaritySnapshot, error)
}

var (
	_ RecommendationServiceInterface = (*RecommendationOrchestrator)(nil)
	_ SnapshotServiceInterface       = (*SnapshotManager)(nil)
	_ FeatureProvider                = (*FeatureStore)(nil)
	_ InteractionSource              = (*FeatureStore)(nil)
	_ SimilarityGraphPublisher       = (*Neo4jSimilarityGraph)(nil)
)
