package retrieval

import (
	"sort"
	"time"
)

// DefaultMaxEvidence is the number of chunks kept per video when the caller
// does not say otherwise.
const DefaultMaxEvidence = 3

// VideoResult is one video with its best-scoring chunks as evidence.
type VideoResult struct {
	VideoID     string         `json:"video_id"`
	VideoTitle  string         `json:"video_title"`
	Channel     *string        `json:"channel,omitempty"`
	YoutubeID   *string        `json:"youtube_id,omitempty"`
	Thumbnail   *string        `json:"thumbnail,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Score       float64        `json:"score"`
	MatchCount  int            `json:"match_count"`
	Evidence    []SearchResult `json:"evidence"`
}

// AggregateByVideo groups chunk hits by video. A video scores the maximum of
// its chunk scores; videos are ordered by that score, and ties keep the order
// in which each video first appeared. The input slice is not modified.
func AggregateByVideo(results []SearchResult, maxEvidence int) []VideoResult {
	if maxEvidence <= 0 {
		maxEvidence = DefaultMaxEvidence
	}

	index := make(map[string]int)
	videos := make([]VideoResult, 0)
	for _, r := range results {
		i, ok := index[r.VideoID]
		if !ok {
			i = len(videos)
			index[r.VideoID] = i
			videos = append(videos, VideoResult{
				VideoID:     r.VideoID,
				VideoTitle:  r.VideoTitle,
				Channel:     r.Channel,
				YoutubeID:   r.YoutubeID,
				Thumbnail:   r.Thumbnail,
				PublishedAt: r.PublishedAt,
				Score:       r.Similarity,
			})
		}

		v := &videos[i]
		v.MatchCount++
		if r.Similarity > v.Score {
			v.Score = r.Similarity
		}
		v.Evidence = append(v.Evidence, r)
	}

	for i := range videos {
		ev := videos[i].Evidence
		sort.SliceStable(ev, func(a, b int) bool {
			return ev[a].Similarity > ev[b].Similarity
		})
		if len(ev) > maxEvidence {
			videos[i].Evidence = ev[:maxEvidence:maxEvidence]
		}
	}

	sort.SliceStable(videos, func(a, b int) bool {
		return videos[a].Score > videos[b].Score
	})

	return videos
}
