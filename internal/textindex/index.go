// Package textindex is the lexical side of hybrid search: a bleve index over
// chunk content, ranked by bleve's relevance score.
package textindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

const batchSize = 500

// Doc is one chunk as seen by the lexical index.
type Doc struct {
	ChunkID string
	VideoID string
	Content string
}

// Hit is a keyword search result.
type Hit struct {
	ChunkID string
	Score   float64
}

// Index wraps a bleve index stored on disk.
type Index struct {
	index  bleve.Index
	dir    string
	logger *zap.Logger
}

// Open opens the index at dir, creating it when missing.
func Open(dir string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := bleve.Open(dir)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return nil, fmt.Errorf("create text index dir: %w", err)
		}
		index, err = bleve.New(dir, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create bleve index: %w", err)
		}
		logger.Debug("created text index", zap.String("dir", dir))
	} else if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &Index{index: index, dir: dir, logger: logger}, nil
}

// Reset drops every document by recreating the index directory.
func (x *Index) Reset() error {
	if err := x.index.Close(); err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	if err := os.RemoveAll(x.dir); err != nil {
		return fmt.Errorf("reset text index dir: %w", err)
	}
	index, err := bleve.New(x.dir, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}
	x.index = index
	return nil
}

// IndexDocs adds or replaces documents in batches.
func (x *Index) IndexDocs(docs []Doc) error {
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		batch := x.index.NewBatch()
		for _, d := range docs[start:end] {
			if err := batch.Index(d.ChunkID, map[string]any{
				"content":  d.Content,
				"video_id": d.VideoID,
			}); err != nil {
				return fmt.Errorf("index chunk %s: %w", d.ChunkID, err)
			}
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("apply text index batch: %w", err)
		}
	}
	return nil
}

// Delete removes a chunk from the index.
func (x *Index) Delete(chunkID string) error {
	return x.index.Delete(chunkID)
}

// Search ranks chunks by lexical relevance to query, best first. Equal scores
// are ordered by chunk ID. A blank query returns no hits.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []Hit{}, nil
	}

	match := bleve.NewMatchQuery(query)
	match.SetField("content")

	req := bleve.NewSearchRequestOptions(match, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ChunkID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (x *Index) Count() (uint64, error) {
	return x.index.DocCount()
}

func (x *Index) Close() error {
	return x.index.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	videoField := bleve.NewTextFieldMapping()
	videoField.Store = true
	videoField.Index = true
	videoField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("video_id", videoField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
