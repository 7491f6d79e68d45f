package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedVideo(t *testing.T, db *DB, id string, chunks map[string][]float32) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, NewVideoStore(db).Upsert(ctx, &Video{ID: id, Title: "Video " + id, Channel: strPtr("chan-" + id)}))

	var batch []*Chunk
	for cid, vec := range chunks {
		batch = append(batch, &Chunk{ID: cid, VideoID: id, Content: "content of " + cid, Embedding: vec})
	}
	require.NoError(t, NewChunkStore(db).CreateBatch(ctx, batch))
}

func TestOpen_AppliesSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestVideoStore_GetNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := NewVideoStore(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVideoStore_UpsertRoundTripsPublishedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	videos := NewVideoStore(db)

	published := time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, videos.Upsert(ctx, &Video{ID: "v1", Title: "Intro", PublishedAt: &published}))
	require.NoError(t, videos.Upsert(ctx, &Video{ID: "v1", Title: "Intro (updated)", PublishedAt: &published}))

	got, err := videos.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Intro (updated)", got.Title)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))
	assert.Nil(t, got.Channel)
}

func TestChunkStore_CreateBatchKeepsExistingEmbedding(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedVideo(t, db, "v1", map[string][]float32{"c1": {1, 0, 0}})

	chunks := NewChunkStore(db)
	require.NoError(t, chunks.CreateBatch(ctx, []*Chunk{{ID: "c1", VideoID: "v1", Content: "new text"}}))

	got, err := chunks.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "new text", got.Content)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
}

func TestChunkStore_UpdateEmbeddingMissingChunk(t *testing.T) {
	db := openTestDB(t)
	err := NewChunkStore(db).UpdateEmbedding(context.Background(), "nope", []float32{1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChunkStore_SearchByVectorOrdersBySimilarity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedVideo(t, db, "v1", map[string][]float32{
		"a": {1, 0},
		"b": {0.7, 0.7},
		"c": {0, 1},
		"d": nil,
	})

	hits, err := NewChunkStore(db).SearchByVector(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "b", hits[1].ChunkID)
	assert.Equal(t, "c", hits[2].ChunkID)
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-6)
}

func TestChunkStore_SearchByVectorRejectsBadLimit(t *testing.T) {
	db := openTestDB(t)
	_, err := NewChunkStore(db).SearchByVector(context.Background(), []float32{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChunkStore_SimilarPairs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedVideo(t, db, "v1", map[string][]float32{"a1": {1, 0}, "a2": {0.99, 0.1}})
	seedVideo(t, db, "v2", map[string][]float32{"b1": {1, 0.05}, "b2": {0, 1}, "b3": {1, 0, 0}})

	pairs, err := NewChunkStore(db).SimilarPairs(ctx, "v1", 0.8, 2)
	require.NoError(t, err)

	for _, p := range pairs {
		assert.NotEqual(t, p.SourceChunkID, p.TargetChunkID)
		assert.Greater(t, p.Similarity, 0.8)
		assert.NotEqual(t, "b2", p.TargetChunkID)
		assert.NotEqual(t, "b3", p.TargetChunkID, "dimension mismatch must be excluded")
	}

	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.SourceChunkID+">"+p.TargetChunkID)
	}
	assert.Equal(t, []string{"a1>a2", "a1>b1", "a2>a1", "a2>b1"}, keys)
}

func TestEdgeStore_InsertBidirectionalIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	edges := NewEdgeStore(db)

	pairs := []Relationship{{SourceChunkID: "a", TargetChunkID: "b", Similarity: 0.9}}

	created, skipped, err := edges.InsertBidirectional(ctx, pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)

	created, skipped, err = edges.InsertBidirectional(ctx, pairs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)

	all, err := edges.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].SourceChunkID)
	assert.Equal(t, "b", all[1].SourceChunkID)
	assert.Equal(t, all[0].Similarity, all[1].Similarity)
}

func TestEdgeStore_RejectsSelfEdge(t *testing.T) {
	db := openTestDB(t)
	_, _, err := NewEdgeStore(db).InsertBidirectional(context.Background(),
		[]Relationship{{SourceChunkID: "a", TargetChunkID: "a", Similarity: 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEdgeStore_RelatedFiltersStaleAndWithinVideo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedVideo(t, db, "v1", map[string][]float32{"a1": {1, 0}, "a2": {1, 0.1}})
	seedVideo(t, db, "v2", map[string][]float32{"b1": {1, 0.2}})
	seedVideo(t, db, "v3", map[string][]float32{"c1": {1, 0.3}})

	edges := NewEdgeStore(db)
	_, _, err := edges.InsertBidirectional(ctx, []Relationship{
		{SourceChunkID: "a1", TargetChunkID: "a2", Similarity: 0.99},
		{SourceChunkID: "a1", TargetChunkID: "b1", Similarity: 0.9},
		{SourceChunkID: "a2", TargetChunkID: "c1", Similarity: 0.8},
		{SourceChunkID: "a1", TargetChunkID: "ghost", Similarity: 0.95},
	})
	require.NoError(t, err)

	related, err := edges.Related(ctx, "v1", 0.75, false, 10)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "b1", related[0].ChunkID)
	assert.Equal(t, "v2", related[0].VideoID)
	assert.Equal(t, "c1", related[1].ChunkID)

	related, err = edges.Related(ctx, "v1", 0.85, true, 10)
	require.NoError(t, err)
	require.Len(t, related, 3)
	assert.Equal(t, "a1", related[0].ChunkID)
	assert.Equal(t, "a2", related[0].SourceChunkID)
	assert.Equal(t, "a2", related[1].ChunkID)
	assert.Equal(t, "b1", related[2].ChunkID)

	pruned, err := edges.PruneDangling(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
}

func TestTemporalStore_InsertOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedVideo(t, db, "v1", map[string][]float32{"c1": nil})

	temporal := NewTemporalStore(db)
	created, err := temporal.Insert(ctx, &TemporalMetadata{ChunkID: "c1", VersionMention: strPtr("2.0"), Confidence: 0.7})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = temporal.Insert(ctx, &TemporalMetadata{ChunkID: "c1", VersionMention: strPtr("3.0"), Confidence: 0.7})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := temporal.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "2.0", *got.VersionMention)
	assert.Nil(t, got.ReleaseDateMention)

	_, err = temporal.Insert(ctx, &TemporalMetadata{ChunkID: "c1", Confidence: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	seedVideo(t, db, "v1", map[string][]float32{"c1": {1}, "c2": nil})

	stats, err := db.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.VideoCount)
	assert.Equal(t, int64(2), stats.ChunkCount)
	assert.Equal(t, int64(1), stats.EmbeddedChunkCount)
}

func TestStorageErrorMatchesCategory(t *testing.T) {
	err := wrapErr("op", errors.New("disk full"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.Nil(t, wrapErr("op", nil))
}
