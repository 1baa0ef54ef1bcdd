package models

import (
	"time"
)

type ReasonTier string

const (
	TierHigh   ReasonTier = "high"
	TierMedium ReasonTier = "medium"
	TierLow    ReasonTier = "low"
)

// Rank orders tiers, lower is more important.
func (t ReasonTier) Rank() int {
	switch t {
	case TierHigh:
		return 0
	case TierMedium:
		return 1
	default:
		return 2
	}
}

type Reason struct {
	Category string     `json:"category"`
	Tier     ReasonTier `json:"tier"`
	Text     string     `json:"text"`
}

type Explanation struct {
	Primary    Reason   `json:"primary"`
	Supporting []Reason `json:"supporting,omitempty"`
	Summary    string   `json:"summary"`
}

type ScoreBreakdown struct {
	Collaborative *float64 `json:"collaborative,omitempty"`
	Content       float64  `json:"content"`
	Contextual    float64  `json:"contextual"`
	ContextBoost  float64  `json:"context_boost"`
}

type RecommendedRestaurant struct {
	Position    int            `json:"position"`
	Restaurant  Restaurant     `json:"restaurant"`
	Score       float64        `json:"score"`
	Scores      ScoreBreakdown `json:"scores"`
	DistanceKm  float64        `json:"distance_km"`
	Explanation Explanation    `json:"explanation"`
}

type RecommendationMetadata struct {
	Eligibility         string `json:"eligibility"`
	RelaxationLevel     int    `json:"relaxation_level"`
	Relaxation          string `json:"relaxation"`
	Degraded            bool   `json:"degraded"`
	DiversityBackfilled bool   `json:"diversity_backfilled"`
	SnapshotVersion     int64  `json:"snapshot_version"`
	CandidateCount      int    `json:"candidate_count"`
	TimedOut            bool   `json:"timed_out,omitempty"`
}

type RecommendationRequest struct {
	UserID     string    `json:"user_id" validate:"required,max=64"`
	Count      int       `json:"count" validate:"omitempty,min=1"`
	TimeBucket string    `json:"time_bucket" validate:"omitempty,oneof=breakfast lunch dinner late_night"`
	Weather    string    `json:"weather" validate:"omitempty,oneof=clear rainy hot cold"`
	DayOfWeek  *int      `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	Location   *GeoPoint `json:"location,omitempty"`
}

type RecommendationResponse struct {
	RequestID       string                  `json:"request_id"`
	UserID          string                  `json:"user_id"`
	Recommendations []RecommendedRestaurant `json:"recommendations"`
	Context         RequestContext          `json:"context"`
	Metadata        RecommendationMetadata  `json:"metadata"`
	GeneratedAt     time.Time               `json:"generated_at"`
	CacheHit        bool                    `json:"cache_hit"`
}

// RecommendationServedEvent is published after every successful response.
type RecommendationServedEvent struct {
	EventID         string     `json:"event_id"`
	RequestID       string     `json:"request_id"`
	UserID          string     `json:"user_id"`
	RestaurantIDs   []string   `json:"restaurant_ids"`
	Eligibility     string     `json:"eligibility"`
	RelaxationLevel int        `json:"relaxation_level"`
	Degraded        bool       `json:"degraded"`
	SnapshotVersion int64      `json:"snapshot_version"`
	TimeBucket      TimeBucket `json:"time_bucket"`
	Weather         Weather    `json:"weather"`
	ServedAt        time.Time  `json:"served_at"`
}

// SnapshotInfo describes the similarity snapshot currently serving reads.
type SnapshotInfo struct {
	Version     int64     `json:"version"`
	BuiltAt     time.Time `json:"built_at"`
	Users       int       `json:"users"`
	Restaurants int       `json:"restaurants"`
	Neighbors   int       `json:"neighbors"`
}
