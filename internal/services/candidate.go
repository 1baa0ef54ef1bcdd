package services

import (
	"sort"

	"github.com/temcen/dinerank/pkg/models"
)

type EligibilityState string

const (
	EligibleFull      EligibilityState = "ELIGIBLE_FULL"
	EligibleColdStart EligibilityState = "ELIGIBLE_COLDSTART"
)

// RelaxationLevel counts how far the hard filters had to be widened.
type RelaxationLevel int

const (
	RelaxNone RelaxationLevel = iota
	RelaxDistance
	RelaxUnrestricted
	RelaxPopular
)

func (l RelaxationLevel) String() string {
	switch l {
	case RelaxNone:
		return "none"
	case RelaxDistance:
		return "extended_distance"
	case RelaxUnrestricted:
		return "unrestricted"
	case RelaxPopular:
		return "popular_fallback"
	default:
		return "unknown"
	}
}

// Candidate is one restaurant with every score derived for it during a
// request. Stages copy candidates, they never modify them in place.
type Candidate struct {
	Restaurant      *models.Restaurant
	DistanceKm      float64
	Collaborative   float64
	HasCollab       bool
	Content         float64
	ContextBoost    float64
	Contextual      float64
	NeighborSupport int
	Final           float64
}

// candidateLess is the single ordering used by ranking and diversity:
// final score descending, then restaurant id ascending.
func candidateLess(a, b Candidate) bool {
	if a.Final != b.Final {
		return a.Final > b.Final
	}
	return a.Restaurant.ID < b.Restaurant.ID
}

// sortedCandidates returns a sorted copy.
func sortedCandidates(in []Candidate) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return candidateLess(out[i], out[j]) })
	return out
}

// dedupeRestaurants keeps the first record seen for every id.
func dedupeRestaurants(in []models.Restaurant) []models.Restaurant {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Restaurant, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
