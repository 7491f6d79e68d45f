package retrieval

import "sort"

const (
	// DefaultRRFK dampens how much a first place in one list dominates the fused order.
	DefaultRRFK = 60
	// DefaultOverfetchFactor multiplies the requested limit for each sub-search.
	DefaultOverfetchFactor = 3
)

// ScoredID is a chunk ID with a score, as produced by a ranking or by fusion.
type ScoredID struct {
	ChunkID string
	Score   float64
}

// ReciprocalRankFusion merges ranked lists of chunk IDs. Each chunk scores
// sum(1 / (k + rank)) over the lists it appears in, with 1-based ranks. A chunk
// repeated within one list only counts at its best rank. The result is sorted
// by score descending, then chunk ID ascending.
func ReciprocalRankFusion(k int, lists ...[]string) []ScoredID {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		seen := make(map[string]bool, len(list))
		for i, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			scores[id] += 1.0 / float64(k+i+1)
		}
	}

	fused := make([]ScoredID, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, ScoredID{ChunkID: id, Score: score})
	}
	sortScored(fused)
	return fused
}

func sortScored(items []ScoredID) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ChunkID < items[j].ChunkID
	})
}
