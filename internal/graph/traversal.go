package graph

import (
	"context"
	"fmt"

	"github.com/DreamCats/tubeindex/internal/store"
)

// ChunkResolver lists the chunk IDs of a video.
type ChunkResolver interface {
	IDsByVideo(ctx context.Context, videoID string) ([]string, error)
}

// EdgeReader reads stored edges joined with their target chunks.
type EdgeReader interface {
	Related(ctx context.Context, videoID string, minSimilarity float64, includeWithinVideo bool, limit int) ([]store.RelatedChunk, error)
}

// RelatedOptions controls GetRelatedChunks.
type RelatedOptions struct {
	Limit              int     `validate:"min=1,max=100"`
	MinSimilarity      float64 `validate:"gte=-1,lte=1"`
	IncludeWithinVideo bool
}

// DefaultRelatedOptions returns cross-video discovery defaults.
func DefaultRelatedOptions() RelatedOptions {
	return RelatedOptions{Limit: 10, MinSimilarity: 0.75}
}

// Traverser answers related-chunk queries from the stored graph. It never
// recomputes similarity; results are as fresh as the last build.
type Traverser struct {
	chunks ChunkResolver
	edges  EdgeReader
}

func NewTraverser(chunks ChunkResolver, edges EdgeReader) *Traverser {
	return &Traverser{chunks: chunks, edges: edges}
}

// GetRelatedChunks returns the strongest neighbours of videoID's chunks,
// ordered by similarity descending. Edges whose target chunk has been removed
// or lost its embedding are not returned.
func (t *Traverser) GetRelatedChunks(ctx context.Context, videoID string, opts RelatedOptions) ([]store.RelatedChunk, error) {
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id is required", ErrInvalidInput)
	}
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ids, err := t.chunks.IDsByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", videoID, err)
	}
	if len(ids) == 0 {
		return []store.RelatedChunk{}, nil
	}

	related, err := t.edges.Related(ctx, videoID, opts.MinSimilarity, opts.IncludeWithinVideo, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("related chunks of %s: %w", videoID, err)
	}
	if related == nil {
		related = []store.RelatedChunk{}
	}
	return related, nil
}
