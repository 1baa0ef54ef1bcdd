package services

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/dinerank/pkg/models"
)

// sparseVector stores one user's interaction weights ordered by
// restaurant index.
type sparseVector struct {
	idx  []int
	val  []float64
	norm float64
}

type neighbor struct {
	user int
	sim  float64
}

// posting is one entry of the restaurant -> users inverted index.
type posting struct {
	user   int
	weight float64
}

// SimilaritySnapshot is an immutable, versioned view of the interaction
// population together with each user's precomputed nearest neighbors.
// Nothing mutates a snapshot after BuildSnapshot returns, so readers share
// it without locking.
type SimilaritySnapshot struct {
	version         int64
	builtAt         time.Time
	k               int
	userIDs         []string
	userIndex       map[string]int
	restaurantIDs   []string
	restaurantIndex map[string]int
	vectors         []sparseVector
	postings        [][]posting
	neighbors       [][]neighbor
}

// NewEmptySnapshot returns version 0, used until the first build finishes.
func NewEmptySnapshot() *SimilaritySnapshot {
	return &SimilaritySnapshot{
		userIndex:       map[string]int{},
		restaurantIndex: map[string]int{},
	}
}

// BuildSnapshot computes cosine similarities across all users and keeps the
// top k neighbors of each. Ties rank the user that sorts first by id ahead.
func BuildSnapshot(version int64, interactions map[string]models.InteractionVector, k, workers int, builtAt time.Time) *SimilaritySnapshot {
	snap := &SimilaritySnapshot{
		version:         version,
		builtAt:         builtAt,
		k:               k,
		userIndex:       make(map[string]int, len(interactions)),
		restaurantIndex: make(map[string]int),
	}

	restaurantSet := make(map[string]struct{})
	for userID, vec := range interactions {
		snap.userIDs = append(snap.userIDs, userID)
		for rid := range vec {
			restaurantSet[rid] = struct{}{}
		}
	}
	sort.Strings(snap.userIDs)
	for i, id := range snap.userIDs {
		snap.userIndex[id] = i
	}
	for rid := range restaurantSet {
		snap.restaurantIDs = append(snap.restaurantIDs, rid)
	}
	sort.Strings(snap.restaurantIDs)
	for i, id := range snap.restaurantIDs {
		snap.restaurantIndex[id] = i
	}

	snap.vectors = make([]sparseVector, len(snap.userIDs))
	snap.postings = make([][]posting, len(snap.restaurantIDs))
	for u, userID := range snap.userIDs {
		vec := snap.toSparse(interactions[userID])
		snap.vectors[u] = vec
		for i, r := range vec.idx {
			snap.postings[r] = append(snap.postings[r], posting{user: u, weight: vec.val[i]})
		}
	}

	snap.neighbors = make([][]neighbor, len(snap.userIDs))
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(snap.userIDs))
	for u := range snap.userIDs {
		jobs <- u
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc := make([]float64, len(snap.userIDs))
			for u := range jobs {
				snap.neighbors[u] = snap.nearest(snap.vectors[u], u, k, acc)
			}
		}()
	}
	wg.Wait()

	return snap
}

// toSparse drops non-positive weights and unknown restaurants.
func (s *SimilaritySnapshot) toSparse(vec models.InteractionVector) sparseVector {
	var out sparseVector
	for rid, w := range vec {
		if w <= 0 {
			continue
		}
		r, ok := s.restaurantIndex[rid]
		if !ok {
			continue
		}
		out.idx = append(out.idx, r)
		out.val = append(out.val, w)
	}
	sort.Sort(byIndex(out))
	if len(out.val) > 0 {
		out.norm = floats.Norm(out.val, 2)
	}
	return out
}

// nearest scores vec against every snapshot user through the inverted index.
// acc is a zeroed scratch buffer sized to the user count and is left zeroed.
func (s *SimilaritySnapshot) nearest(vec sparseVector, self, k int, acc []float64) []neighbor {
	if vec.norm == 0 || k <= 0 {
		return nil
	}

	var touched []int
	for i, r := range vec.idx {
		for _, p := range s.postings[r] {
			if p.user == self {
				continue
			}
			if acc[p.user] == 0 {
				touched = append(touched, p.user)
			}
			acc[p.user] += vec.val[i] * p.weight
		}
	}

	result := make([]neighbor, 0, len(touched))
	for _, u := range touched {
		dot := acc[u]
		acc[u] = 0
		if other := s.vectors[u].norm; other > 0 && dot > 0 {
			result = append(result, neighbor{user: u, sim: dot / (vec.norm * other)})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].sim != result[j].sim {
			return result[i].sim > result[j].sim
		}
		return result[i].user < result[j].user
	})
	if len(result) > k {
		result = result[:k]
	}
	return result
}

func (s *SimilaritySnapshot) Version() int64 {
	return s.version
}

func (s *SimilaritySnapshot) BuiltAt() time.Time {
	return s.builtAt
}

func (s *SimilaritySnapshot) HasUser(userID string) bool {
	_, ok := s.userIndex[userID]
	return ok
}

// SimilarUsers returns up to k precomputed neighbors of a known user.
func (s *SimilaritySnapshot) SimilarUsers(userID string, k int) ([]models.SimilarUser, bool) {
	u, ok := s.userIndex[userID]
	if !ok {
		return nil, false
	}
	return s.export(s.neighbors[u], k), true
}

// SimilarUsersForVector scores a live interaction vector against the
// snapshot population. The user itself, if present, is excluded.
func (s *SimilaritySnapshot) SimilarUsersForVector(userID string, vec models.InteractionVector, k int) []models.SimilarUser {
	self := -1
	if u, ok := s.userIndex[userID]; ok {
		self = u
	}
	acc := make([]float64, len(s.userIDs))
	return s.export(s.nearest(s.toSparse(vec), self, k, acc), k)
}

// ForEachInteraction visits every positive weight recorded for a user.
func (s *SimilaritySnapshot) ForEachInteraction(userID string, fn func(restaurantID string, weight float64)) {
	u, ok := s.userIndex[userID]
	if !ok {
		return
	}
	vec := s.vectors[u]
	for i, r := range vec.idx {
		fn(s.restaurantIDs[r], vec.val[i])
	}
}

// Info summarizes the snapshot for admin endpoints and logs.
func (s *SimilaritySnapshot) Info() models.SnapshotInfo {
	edges := 0
	for _, n := range s.neighbors {
		edges += len(n)
	}
	return models.SnapshotInfo{
		Version:     s.version,
		BuiltAt:     s.builtAt,
		Users:       len(s.userIDs),
		Restaurants: len(s.restaurantIDs),
		Neighbors:   edges,
	}
}

func (s *SimilaritySnapshot) export(ns []neighbor, k int) []models.SimilarUser {
	if k > 0 && len(ns) > k {
		ns = ns[:k]
	}
	out := make([]models.SimilarUser, len(ns))
	for i, n := range ns {
		out[i] = models.SimilarUser{UserID: s.userIDs[n.user], Similarity: n.sim}
	}
	return out
}

type byIndex sparseVector

func (v byIndex) Len() int           { return len(v.idx) }
func (v byIndex) Less(i, j int) bool { return v.idx[i] < v.idx[j] }
func (v byIndex) Swap(i, j int) {
	v.idx[i], v.idx[j] = v.idx[j], v.idx[i]
	v.val[i], v.val[j] = v.val[j], v.val[i]
}
