package services

import (
	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// RankingInput is everything the ranker needs, already loaded in memory.
type RankingInput struct {
	Profile      *models.UserProfile
	Context      models.RequestContext
	Candidates   []models.Restaurant
	Interactions models.InteractionVector
	Snapshot     *SimilaritySnapshot
	Count        int
	// Ordered holds restaurants the user has already ordered from.
	Ordered []string
}

// RankedCandidate pairs a surfaced candidate with its explanation.
type RankedCandidate struct {
	Candidate
	Explanation models.Explanation
}

type RankingResult struct {
	Items               []RankedCandidate
	Eligibility         EligibilityState
	Relaxation          RelaxationLevel
	Degraded            bool
	DiversityBackfilled bool
	SnapshotVersion     int64
	CandidateCount      int
	// NeedsFallback is set when no relaxation level left any candidate and
	// the caller should supply the popular-restaurants list.
	NeedsFallback bool
}

// HybridRanker blends collaborative, content and contextual scores, filters
// with progressive relaxation, diversifies and explains. It performs no I/O
// and keeps no state between calls.
type HybridRanker struct {
	config        config.RankingConfig
	content       *ContentScorer
	contextual    *ContextualScorer
	collaborative *CollaborativeScorer
	diversity     *DiversityFilter
	explanations  *ExplanationService
}

func NewHybridRanker(config config.RankingConfig) *HybridRanker {
	contextual := NewContextualScorer(config.Context)
	return &HybridRanker{
		config:        config,
		content:       NewContentScorer(config.Content),
		contextual:    contextual,
		collaborative: NewCollaborativeScorer(config.Collaborative.Neighbors),
		diversity:     NewDiversityFilter(config.Diversity),
		explanations:  NewExplanationService(config.Explanation, contextual),
	}
}

// Eligibility classifies the request once from the user's order count.
func (r *HybridRanker) Eligibility(profile *models.UserProfile) EligibilityState {
	if profile.OrderCount >= r.config.MinOrdersForCF {
		return EligibleFull
	}
	return EligibleColdStart
}

// Rank runs scoring, hard filters with relaxation, diversity and
// explanation over the request's candidates.
func (r *HybridRanker) Rank(in RankingInput) RankingResult {
	eligibility := r.Eligibility(in.Profile)
	restaurants := dedupeRestaurants(in.Candidates)
	if r.config.Filters.ExcludeOrdered {
		restaurants = excludeOrdered(restaurants, in.Ordered)
	}
	scored := r.score(in, eligibility, restaurants)

	result := RankingResult{
		Eligibility:     eligibility,
		SnapshotVersion: snapshotVersion(in.Snapshot),
		CandidateCount:  len(scored),
	}

	for level := RelaxNone; level <= RelaxUnrestricted; level++ {
		filtered := r.filter(scored, in.Profile, level)
		if len(filtered) == 0 {
			continue
		}
		result.Relaxation = level
		result.Degraded = level != RelaxNone
		result.Items, result.DiversityBackfilled = r.finalize(in, filtered)
		return result
	}

	result.Relaxation = RelaxPopular
	result.Degraded = true
	result.NeedsFallback = true
	return result
}

// RankFallback ranks the popular-restaurants list without hard filters.
// Each restaurant's popularity score stands in for its final score.
func (r *HybridRanker) RankFallback(in RankingInput, popular []models.Restaurant) RankingResult {
	eligibility := r.Eligibility(in.Profile)
	scored := r.score(in, eligibility, dedupeRestaurants(popular))
	for i := range scored {
		scored[i].Final = scored[i].Restaurant.PopularityScore
	}

	result := RankingResult{
		Eligibility:     eligibility,
		Relaxation:      RelaxPopular,
		Degraded:        true,
		SnapshotVersion: snapshotVersion(in.Snapshot),
		CandidateCount:  len(scored),
	}
	result.Items, result.DiversityBackfilled = r.finalize(in, scored)
	return result
}

// score builds one candidate per restaurant. Contextual boosts and
// collaborative scores are normalized over the full set before blending.
func (r *HybridRanker) score(in RankingInput, eligibility EligibilityState, restaurants []models.Restaurant) []Candidate {
	if len(restaurants) == 0 {
		return nil
	}

	userLocation := in.Context.Location
	if userLocation.IsZero() {
		userLocation = in.Profile.Location
	}

	ids := make([]string, len(restaurants))
	rawBoosts := make(map[string]float64, len(restaurants))
	candidates := make([]Candidate, len(restaurants))

	for i := range restaurants {
		res := &restaurants[i]
		distance := DistanceKm(userLocation, res.Location)
		boost := r.contextual.ScoreAt(res, in.Context, distance)

		ids[i] = res.ID
		rawBoosts[res.ID] = boost
		candidates[i] = Candidate{
			Restaurant:   res,
			DistanceKm:   distance,
			Content:      r.content.Score(in.Profile, res),
			ContextBoost: boost,
		}
	}

	contextual := MinMaxNormalize(rawBoosts)

	var collab CollaborativeResult
	weights := r.config.Weights.ColdStart
	if eligibility == EligibleFull {
		weights = r.config.Weights.Full
		collab = r.collaborative.Score(in.Snapshot, in.Profile.UserID, in.Interactions, ids)
	}

	for i := range candidates {
		c := &candidates[i]
		c.Contextual = contextual[c.Restaurant.ID]
		c.Final = weights.Content*c.Content + weights.Contextual*c.Contextual

		if eligibility != EligibleFull {
			continue
		}
		if cf, ok := collab.Scores[c.Restaurant.ID]; ok {
			c.Collaborative = cf
			c.HasCollab = true
		}
		c.NeighborSupport = collab.Support[c.Restaurant.ID]
		c.Final += weights.Collaborative * c.Collaborative
	}

	return candidates
}

// filter applies the hard filters for a relaxation level. Availability and
// dietary constraints hold at every level.
func (r *HybridRanker) filter(candidates []Candidate, profile *models.UserProfile, level RelaxationLevel) []Candidate {
	f := r.config.Filters
	var out []Candidate

	for _, c := range candidates {
		res := c.Restaurant
		if !res.IsAcceptingOrders {
			continue
		}
		if profile.Dietary.RequiresVegOnly() && !res.IsVegOnly {
			continue
		}

		switch level {
		case RelaxNone:
			if c.DistanceKm > f.MaxDistanceKm || !meetsRating(res, f.MinRating) {
				continue
			}
		case RelaxDistance:
			if c.DistanceKm > f.RelaxedDistanceKm || !meetsRating(res, f.MinRating) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func (r *HybridRanker) finalize(in RankingInput, candidates []Candidate) ([]RankedCandidate, bool) {
	n := in.Count
	if n <= 0 {
		n = r.config.DefaultCount
	}

	selected, backfilled := r.diversity.Apply(candidates, n)
	items := make([]RankedCandidate, len(selected))
	for i, c := range selected {
		items[i] = RankedCandidate{
			Candidate:   c,
			Explanation: r.explanations.Explain(in.Profile, in.Context, c),
		}
	}
	return items, backfilled
}

// excludeOrdered drops restaurants the user has ordered from. It runs
// before scoring so normalization only sees what can be served.
func excludeOrdered(restaurants []models.Restaurant, ordered []string) []models.Restaurant {
	if len(ordered) == 0 {
		return restaurants
	}
	seen := make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		seen[id] = struct{}{}
	}

	out := make([]models.Restaurant, 0, len(restaurants))
	for _, res := range restaurants {
		if _, ok := seen[res.ID]; ok {
			continue
		}
		out = append(out, res)
	}
	return out
}

// meetsRating ignores ratings that are not backed by reviews.
func meetsRating(res *models.Restaurant, minRating float64) bool {
	return !res.HasReliableRating() || res.AvgRating >= minRating
}

func snapshotVersion(s *SimilaritySnapshot) int64 {
	if s == nil {
		return 0
	}
	return s.Version()
}
