package services

import (
	"github.com/temcen/dinerank/pkg/models"
)

// CollaborativeResult holds normalized scores for a candidate set together
// with how many neighbors backed each restaurant.
type CollaborativeResult struct {
	Scores    map[string]float64
	Support   map[string]int
	Neighbors []models.SimilarUser
}

// Empty reports whether no collaborative signal was produced.
func (r CollaborativeResult) Empty() bool {
	return len(r.Scores) == 0
}

// CollaborativeScorer aggregates neighbor interactions read from a
// similarity snapshot. It never mutates the snapshot.
type CollaborativeScorer struct {
	neighbors int
}

func NewCollaborativeScorer(neighbors int) *CollaborativeScorer {
	return &CollaborativeScorer{neighbors: neighbors}
}

// Score returns a [0,1] score for every candidate, or an empty result when
// the user has no interactions to compare.
func (s *CollaborativeScorer) Score(
	snapshot *SimilaritySnapshot,
	userID string,
	vector models.InteractionVector,
	candidateIDs []string,
) CollaborativeResult {
	if snapshot == nil || vector.IsZero() || len(candidateIDs) == 0 {
		return CollaborativeResult{}
	}

	similar, ok := snapshot.SimilarUsers(userID, s.neighbors)
	if !ok {
		similar = snapshot.SimilarUsersForVector(userID, vector, s.neighbors)
	}

	raw := make(map[string]float64, len(candidateIDs))
	for _, id := range candidateIDs {
		raw[id] = 0
	}
	support := make(map[string]int)

	for _, n := range similar {
		snapshot.ForEachInteraction(n.UserID, func(restaurantID string, weight float64) {
			if _, ok := raw[restaurantID]; !ok {
				return
			}
			raw[restaurantID] += n.Similarity * weight
			support[restaurantID]++
		})
	}

	return CollaborativeResult{
		Scores:    MinMaxNormalize(raw),
		Support:   support,
		Neighbors: similar,
	}
}
