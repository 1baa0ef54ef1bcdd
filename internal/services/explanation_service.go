package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// Reason categories
const (
	OrderHistoryReason = "order_history"
	SimilarUsersReason = "similar_users"
	RatingReason       = "rating"
	TimeOfDayReason    = "time_of_day"
	DeliveryReason     = "delivery"
	GeneralReason      = "general"
)

const generalPreferencesText = "Matches your general preferences"

// ExplanationService derives ranked, human-readable reasons from the same
// signals used to rank a candidate.
type ExplanationService struct {
	config     config.ExplanationConfig
	contextual *ContextualScorer
}

// NewExplanationService creates a new explanation service
func NewExplanationService(config config.ExplanationConfig, contextual *ContextualScorer) *ExplanationService {
	return &ExplanationService{
		config:     config,
		contextual: contextual,
	}
}

// Explain is deterministic for identical inputs.
func (es *ExplanationService) Explain(profile *models.UserProfile, reqCtx models.RequestContext, c Candidate) models.Explanation {
	return es.selectReasons(es.gatherReasons(profile, reqCtx, c))
}

// gatherReasons lists every qualifying reason in a fixed order.
func (es *ExplanationService) gatherReasons(profile *models.UserProfile, reqCtx models.RequestContext, c Candidate) []models.Reason {
	r := c.Restaurant
	var reasons []models.Reason

	if count := cuisineOrderCount(profile, r.Cuisine); count > 0 {
		reasons = append(reasons, models.Reason{
			Category: OrderHistoryReason,
			Tier:     models.TierHigh,
			Text:     orderHistoryText(r.Cuisine, count),
		})
	}

	if c.NeighborSupport > 0 && c.NeighborSupport >= es.config.MinNeighborSupport {
		reasons = append(reasons, models.Reason{
			Category: SimilarUsersReason,
			Tier:     models.TierHigh,
			Text:     fmt.Sprintf("Popular among users with similar taste (%d similar users love this)", c.NeighborSupport),
		})
	}

	if r.HasReliableRating() && r.AvgRating >= es.config.HighRatingThreshold {
		reasons = append(reasons, models.Reason{
			Category: RatingReason,
			Tier:     models.TierMedium,
			Text:     fmt.Sprintf("Rated %.1f/5 by %d customers", r.AvgRating, r.ReviewCount),
		})
	}

	if reqCtx.TimeBucket != "" && es.contextual.TimeMultiplier(reqCtx.TimeBucket, r.Cuisine) > 1.0 {
		reasons = append(reasons, models.Reason{
			Category: TimeOfDayReason,
			Tier:     models.TierMedium,
			Text:     "Perfect for " + displayLabel(string(reqCtx.TimeBucket)),
		})
	}

	if r.AvgDeliveryMinutes > 0 && r.AvgDeliveryMinutes <= es.config.QuickDeliveryMinutes {
		reasons = append(reasons, models.Reason{
			Category: DeliveryReason,
			Tier:     models.TierLow,
			Text:     fmt.Sprintf("Quick delivery in ~%d minutes", int(math.Round(r.AvgDeliveryMinutes))),
		})
	}

	return reasons
}

// selectReasons orders reasons by tier, keeping insertion order inside a
// tier, and splits them into primary and supporting.
func (es *ExplanationService) selectReasons(reasons []models.Reason) models.Explanation {
	if len(reasons) == 0 {
		primary := models.Reason{Category: GeneralReason, Tier: models.TierLow, Text: generalPreferencesText}
		return models.Explanation{Primary: primary, Summary: primary.Text + "."}
	}

	ordered := make([]models.Reason, len(reasons))
	copy(ordered, reasons)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Tier.Rank() < ordered[j].Tier.Rank()
	})

	explanation := models.Explanation{Primary: ordered[0]}
	rest := ordered[1:]
	if len(rest) > es.config.MaxSupporting {
		rest = rest[:es.config.MaxSupporting]
	}
	if len(rest) > 0 {
		explanation.Supporting = rest
	}

	texts := make([]string, 0, 1+len(rest))
	texts = append(texts, explanation.Primary.Text)
	for _, s := range rest {
		texts = append(texts, s.Text)
	}
	explanation.Summary = strings.Join(texts, ". ") + "."

	return explanation
}

func orderHistoryText(cuisine string, count int) string {
	if count == 1 {
		return fmt.Sprintf("You've ordered %s 1 time", cuisine)
	}
	return fmt.Sprintf("You've ordered %s %d times", cuisine, count)
}

// cuisineOrderCount sums history entries whose label matches the cuisine.
func cuisineOrderCount(profile *models.UserProfile, cuisine string) int {
	if profile == nil || len(profile.CuisineHistory) == 0 {
		return 0
	}
	key := CanonicalCuisine(cuisine)
	total := 0
	for label, count := range profile.CuisineHistory {
		if CanonicalCuisine(label) == key {
			total += count
		}
	}
	return total
}
