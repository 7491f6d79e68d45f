package store

import "time"

// Video is the owning aggregate for transcript chunks.
type Video struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Channel     *string    `json:"channel,omitempty"`
	YoutubeID   *string    `json:"youtube_id,omitempty"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Chunk is a contiguous transcript segment, the atomic unit of retrieval.
// Embedding is nil until the embedding job has filled it in.
type Chunk struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Content   string    `json:"content"`
	StartTime *float64  `json:"start_time,omitempty"`
	EndTime   *float64  `json:"end_time,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEmbedding reports whether the chunk takes part in vector and graph operations.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Relationship is a directed, weighted similarity edge between two chunks.
type Relationship struct {
	SourceChunkID string    `json:"source_chunk_id"`
	TargetChunkID string    `json:"target_chunk_id"`
	Similarity    float64   `json:"similarity"`
	CreatedAt     time.Time `json:"created_at"`
}

// TemporalMetadata holds version and release-date signals extracted from a chunk.
// Rows exist only for confidence > 0.
type TemporalMetadata struct {
	ChunkID            string    `json:"chunk_id"`
	VersionMention     *string   `json:"version_mention,omitempty"`
	ReleaseDateMention *string   `json:"release_date_mention,omitempty"`
	Confidence         float64   `json:"confidence"`
	CreatedAt          time.Time `json:"created_at"`
}

// ChunkHit is a chunk joined with the metadata of its owning video.
type ChunkHit struct {
	ChunkID     string     `json:"chunk_id"`
	Content     string     `json:"content"`
	StartTime   *float64   `json:"start_time,omitempty"`
	EndTime     *float64   `json:"end_time,omitempty"`
	VideoID     string     `json:"video_id"`
	VideoTitle  string     `json:"video_title"`
	Channel     *string    `json:"channel,omitempty"`
	YoutubeID   *string    `json:"youtube_id,omitempty"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ScoredChunk is a vector search hit.
type ScoredChunk struct {
	ChunkID    string
	Similarity float64
}

// RelatedChunk is one graph edge resolved to its target chunk and video.
type RelatedChunk struct {
	SourceChunkID string `json:"source_chunk_id"`
	ChunkHit
	Similarity float64 `json:"similarity"`
}
