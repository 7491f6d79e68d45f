package mcpserver

import (
	"github.com/DreamCats/tubeindex/internal/retrieval"
	"github.com/DreamCats/tubeindex/internal/store"
)

// SearchInput defines inputs for the tubeindex_search tool.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"free-text search query"`
	Mode         string   `json:"mode,omitempty" jsonschema:"vector, keyword or hybrid (default hybrid)"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Channels     []string `json:"channels,omitempty" jsonschema:"only keep channels matching these glob patterns"`
	Decay        bool     `json:"decay,omitempty" jsonschema:"down-weight older videos"`
	HalfLifeDays float64  `json:"half_life_days,omitempty" jsonschema:"decay half-life in days"`
	ByVideo      bool     `json:"by_video,omitempty" jsonschema:"group results by video"`
}

// SearchOutput is the output for tubeindex_search.
type SearchOutput struct {
	Query          string                   `json:"query"`
	Mode           string                   `json:"mode"`
	Degraded       bool                     `json:"degraded"`
	DegradedReason string                   `json:"degraded_reason,omitempty"`
	Count          int                      `json:"count"`
	Results        []retrieval.SearchResult `json:"results,omitempty"`
	Videos         []retrieval.VideoResult  `json:"videos,omitempty"`
}

// RelatedInput defines inputs for the tubeindex_related tool.
type RelatedInput struct {
	VideoID            string  `json:"video_id" jsonschema:"video whose chunks to start from"`
	Limit              int     `json:"limit,omitempty" jsonschema:"maximum number of related chunks"`
	MinSimilarity      float64 `json:"min_similarity,omitempty" jsonschema:"minimum edge similarity"`
	IncludeWithinVideo bool    `json:"include_within_video,omitempty" jsonschema:"also return chunks of the same video"`
}

// RelatedOutput is the output for tubeindex_related.
type RelatedOutput struct {
	VideoID string               `json:"video_id"`
	Count   int                  `json:"count"`
	Related []store.RelatedChunk `json:"related"`
}

// TemporalInput defines inputs for the tubeindex_temporal tool.
type TemporalInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"chunk to look up"`
}

// TemporalOutput is the output for tubeindex_temporal.
type TemporalOutput struct {
	Found    bool                    `json:"found"`
	Metadata *store.TemporalMetadata `json:"metadata,omitempty"`
}

// StatusInput defines inputs for the tubeindex_status tool.
type StatusInput struct{}

// StatusOutput is the output for tubeindex_status.
type StatusOutput struct {
	Videos           int64  `json:"videos"`
	Chunks           int64  `json:"chunks"`
	Embedded         int64  `json:"embedded"`
	Relationships    int64  `json:"relationships"`
	TemporalMetadata int64  `json:"temporal_metadata"`
	TextDocuments    uint64 `json:"text_documents"`
	Embedding        bool   `json:"embedding"`
}
