package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/internal/cache"
	"github.com/DreamCats/tubeindex/internal/config"
	"github.com/DreamCats/tubeindex/internal/embedding"
	"github.com/DreamCats/tubeindex/internal/graph"
	"github.com/DreamCats/tubeindex/internal/retrieval"
	"github.com/DreamCats/tubeindex/internal/store"
	"github.com/DreamCats/tubeindex/internal/temporal"
	"github.com/DreamCats/tubeindex/internal/textindex"
)

// Indexer owns the stores and services and runs the batch jobs over them.
type Indexer struct {
	cfg          *config.Config
	db           *store.DB
	text         *textindex.Index
	cache        cache.Cache
	embedService *embedding.Service
	embedErr     error
	videoStore   *store.VideoStore
	chunkStore   *store.ChunkStore
	edgeStore    *store.EdgeStore
	temporal     *store.TemporalStore
	logger       *zap.Logger
}

// NewIndexer opens the database and text index described by cfg. A missing or
// broken embedding configuration is not fatal: jobs that need embeddings fail
// and searches degrade to keyword ranking.
func NewIndexer(cfg *config.Config, logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	text, err := textindex.Open(cfg.TextIndex.Path, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open text index: %w", err)
	}

	c, err := cache.New(cfg.Cache, logger)
	if err != nil {
		text.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	idx := &Indexer{
		cfg:        cfg,
		db:         db,
		text:       text,
		cache:      c,
		videoStore: store.NewVideoStore(db),
		chunkStore: store.NewChunkStore(db),
		edgeStore:  store.NewEdgeStore(db),
		temporal:   store.NewTemporalStore(db),
		logger:     logger,
	}

	if key := strings.TrimSpace(cfg.Embedding.APIKey); key == "" || key == config.PlaceholderAPIKey {
		idx.embedErr = errors.New("embedding.api_key is not set")
	} else {
		idx.embedService, idx.embedErr = embedding.NewService(cfg.Embedding,
			embedding.WithCache(c, cfg.Cache.TTL),
			embedding.WithLogger(logger),
		)
	}
	if idx.embedErr != nil {
		logger.Warn("embedding service unavailable", zap.Error(idx.embedErr))
	}

	return idx, nil
}

// ImportFile is the JSON document accepted by Import.
type ImportFile struct {
	Videos []ImportVideo `json:"videos"`
}

// ImportVideo is one video and its transcript chunks.
type ImportVideo struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Channel     *string       `json:"channel,omitempty"`
	YoutubeID   *string       `json:"youtube_id,omitempty"`
	Thumbnail   *string       `json:"thumbnail,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	Chunks      []ImportChunk `json:"chunks"`
}

// ImportChunk is one transcript chunk. ID is generated when empty.
type ImportChunk struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	StartTime *float64  `json:"start_time,omitempty"`
	EndTime   *float64  `json:"end_time,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ImportStats reports what an import wrote.
type ImportStats struct {
	Videos   int `json:"videos"`
	Chunks   int `json:"chunks"`
	Embedded int `json:"embedded"`
}

// ReadImportFile decodes an import document from path.
func ReadImportFile(path string) (*ImportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var file ImportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	return &file, nil
}

// Import upserts videos and chunks and adds the chunks to the text index.
// Supplied embeddings must match the configured dimensions.
func (idx *Indexer) Import(ctx context.Context, file *ImportFile) (ImportStats, error) {
	var stats ImportStats
	dims := idx.cfg.Embedding.Dimensions

	for vi, v := range file.Videos {
		if strings.TrimSpace(v.ID) == "" {
			return stats, fmt.Errorf("%w: video %d has no id", store.ErrInvalidInput, vi)
		}
		if err := idx.videoStore.Upsert(ctx, &store.Video{
			ID:          v.ID,
			Title:       v.Title,
			Channel:     v.Channel,
			YoutubeID:   v.YoutubeID,
			Thumbnail:   v.Thumbnail,
			PublishedAt: v.PublishedAt,
		}); err != nil {
			return stats, fmt.Errorf("store video %s: %w", v.ID, err)
		}

		chunks := make([]*store.Chunk, 0, len(v.Chunks))
		docs := make([]textindex.Doc, 0, len(v.Chunks))
		for _, c := range v.Chunks {
			if strings.TrimSpace(c.Content) == "" {
				continue
			}
			id := c.ID
			if id == "" {
				id = uuid.NewString()
			}
			if len(c.Embedding) > 0 && dims > 0 && len(c.Embedding) != dims {
				return stats, fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
					store.ErrInvalidInput, id, len(c.Embedding), dims)
			}
			if len(c.Embedding) > 0 {
				stats.Embedded++
			}
			chunks = append(chunks, &store.Chunk{
				ID:        id,
				VideoID:   v.ID,
				Content:   c.Content,
				StartTime: c.StartTime,
				EndTime:   c.EndTime,
				Embedding: c.Embedding,
			})
			docs = append(docs, textindex.Doc{ChunkID: id, VideoID: v.ID, Content: c.Content})
		}

		if err := idx.chunkStore.CreateBatch(ctx, chunks); err != nil {
			return stats, fmt.Errorf("store chunks of %s: %w", v.ID, err)
		}
		if err := idx.text.IndexDocs(docs); err != nil {
			return stats, fmt.Errorf("index chunks of %s: %w", v.ID, err)
		}

		stats.Videos++
		stats.Chunks += len(chunks)
		idx.logger.Debug("imported video", zap.String("video_id", v.ID), zap.Int("chunks", len(chunks)))
	}

	idx.logger.Info("import finished",
		zap.Int("videos", stats.Videos),
		zap.Int("chunks", stats.Chunks),
		zap.Int("embedded", stats.Embedded),
	)
	return stats, nil
}

// EmbedStats reports an embedding backfill.
type EmbedStats struct {
	Embedded int `json:"embedded"`
	Batches  int `json:"batches"`
}

// EmbedMissing fills in embeddings for chunks that have none, one batch at a
// time. It stops at the first failed batch and returns what was done so far.
func (idx *Indexer) EmbedMissing(ctx context.Context) (EmbedStats, error) {
	var stats EmbedStats
	if idx.embedService == nil {
		return stats, fmt.Errorf("embedding service unavailable: %w", idx.embedErr)
	}

	batchSize := idx.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		pending, err := idx.chunkStore.ListMissingEmbeddings(ctx, batchSize)
		if err != nil {
			return stats, err
		}
		if len(pending) == 0 {
			break
		}

		texts := make([]string, len(pending))
		for i, c := range pending {
			texts[i] = c.Content
		}
		vectors, err := idx.embedService.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch: %w", err)
		}

		written := 0
		for i, vec := range vectors {
			if len(vec) == 0 {
				continue
			}
			if err := idx.chunkStore.UpdateEmbedding(ctx, pending[i].ID, vec); err != nil {
				return stats, err
			}
			written++
		}

		stats.Batches++
		stats.Embedded += written
		idx.logger.Debug("embedded chunks", zap.Int("batch", stats.Batches), zap.Int("written", written))

		if written == 0 {
			break
		}
	}

	idx.logger.Info("embedding backfill finished", zap.Int("embedded", stats.Embedded))
	return stats, nil
}

// TemporalStats reports a temporal extraction run.
type TemporalStats struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
}

// ExtractTemporal runs the extractor over chunks without metadata and stores
// a row for each chunk with a non-zero confidence.
func (idx *Indexer) ExtractTemporal(ctx context.Context) (TemporalStats, error) {
	var stats TemporalStats

	chunks, err := idx.chunkStore.ListWithoutTemporal(ctx)
	if err != nil {
		return stats, err
	}

	for _, c := range chunks {
		stats.Scanned++
		sig := temporal.Extract(c.Content)
		if sig.Confidence <= 0 {
			continue
		}
		created, err := idx.temporal.Insert(ctx, &store.TemporalMetadata{
			ChunkID:            c.ID,
			VersionMention:     sig.VersionMention(),
			ReleaseDateMention: sig.ReleaseDateMention(),
			Confidence:         sig.Confidence,
		})
		if err != nil {
			return stats, fmt.Errorf("store temporal metadata for %s: %w", c.ID, err)
		}
		if created {
			stats.Created++
		}
	}

	idx.logger.Info("temporal extraction finished", zap.Int("scanned", stats.Scanned), zap.Int("created", stats.Created))
	return stats, nil
}

// ReindexText rebuilds the text index from the chunk table.
func (idx *Indexer) ReindexText(ctx context.Context) (int, error) {
	chunks, err := idx.chunkStore.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := idx.text.Reset(); err != nil {
		return 0, err
	}

	docs := make([]textindex.Doc, len(chunks))
	for i, c := range chunks {
		docs[i] = textindex.Doc{ChunkID: c.ID, VideoID: c.VideoID, Content: c.Content}
	}
	if err := idx.text.IndexDocs(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Stats combines database counts with the text index size.
type Stats struct {
	store.DBStats
	TextDocuments uint64 `json:"text_documents"`
	Embedding     bool   `json:"embedding_available"`
}

func (idx *Indexer) Stats(ctx context.Context) (*Stats, error) {
	dbStats, err := idx.db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := idx.text.Count()
	if err != nil {
		return nil, fmt.Errorf("count text index: %w", err)
	}
	return &Stats{DBStats: *dbStats, TextDocuments: docs, Embedding: idx.embedService != nil}, nil
}

// Retriever builds a hybrid retriever over this index.
func (idx *Indexer) Retriever(synonyms *retrieval.SynonymsExpander) *retrieval.HybridRetriever {
	var embedder retrieval.Embedder
	if idx.embedService != nil {
		embedder = idx.embedService
	}
	return retrieval.NewHybridRetriever(
		idx.chunkStore,
		idx.text,
		idx.chunkStore,
		embedder,
		retrieval.WithRRFK(idx.cfg.Search.RRFK),
		retrieval.WithOverfetchFactor(idx.cfg.Search.OverfetchFactor),
		retrieval.WithSynonyms(synonyms),
		retrieval.WithRetrieverLogger(idx.logger),
	)
}

// GraphBuilder builds a similarity graph builder over this index.
func (idx *Indexer) GraphBuilder() *graph.Builder {
	return graph.NewBuilder(idx.chunkStore, idx.edgeStore, idx.videoStore, idx.cfg.Embedding.Dimensions, idx.logger)
}

// Traverser builds a graph traverser over this index.
func (idx *Indexer) Traverser() *graph.Traverser {
	return graph.NewTraverser(idx.chunkStore, idx.edgeStore)
}

// PruneEdges removes edges whose endpoints no longer exist or lost their embedding.
func (idx *Indexer) PruneEdges(ctx context.Context) (int64, error) {
	return idx.edgeStore.PruneDangling(ctx)
}

// TemporalMetadata returns the stored metadata of a chunk.
func (idx *Indexer) TemporalMetadata(ctx context.Context, chunkID string) (*store.TemporalMetadata, error) {
	return idx.temporal.Get(ctx, chunkID)
}

// Close releases the database, text index and cache.
func (idx *Indexer) Close() error {
	return errors.Join(idx.text.Close(), idx.cache.Close(), idx.db.Close())
}
