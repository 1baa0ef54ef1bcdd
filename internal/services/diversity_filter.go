package services

import (
	"github.com/temcen/dinerank/internal/config"
)

// DiversityFilter caps how many restaurants of one cuisine appear in a list.
type DiversityFilter struct {
	config config.DiversityConfig
}

// NewDiversityFilter creates a new diversity filter
func NewDiversityFilter(config config.DiversityConfig) *DiversityFilter {
	return &DiversityFilter{config: config}
}

// Apply selects up to n candidates in ranking order. The first pass admits
// at most MaxPerCuisine per cuisine; a second, uncapped pass fills the
// remaining slots from the skipped candidates. backfilled reports whether
// the second pass admitted anything.
func (df *DiversityFilter) Apply(candidates []Candidate, n int) (selected []Candidate, backfilled bool) {
	if n <= 0 || len(candidates) == 0 {
		return nil, false
	}

	ordered := sortedCandidates(candidates)
	perCuisine := make(map[string]int)
	seen := make(map[string]struct{})
	var skipped []Candidate

	for _, c := range ordered {
		if len(selected) >= n {
			break
		}
		if _, dup := seen[c.Restaurant.ID]; dup {
			continue
		}
		key := CanonicalCuisine(c.Restaurant.Cuisine)
		if perCuisine[key] >= df.config.MaxPerCuisine {
			skipped = append(skipped, c)
			continue
		}
		perCuisine[key]++
		seen[c.Restaurant.ID] = struct{}{}
		selected = append(selected, c)
	}

	for _, c := range skipped {
		if len(selected) >= n {
			break
		}
		if _, dup := seen[c.Restaurant.ID]; dup {
			continue
		}
		seen[c.Restaurant.ID] = struct{}{}
		selected = append(selected, c)
		backfilled = true
	}

	return selected, backfilled
}
