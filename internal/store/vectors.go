package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	"modernc.org/sqlite"

	"github.com/DreamCats/tubeindex/internal/embedding"
)

// CosineDistanceFunc is the SQL scalar function registered on every connection.
// vec_distance_cosine(a, b) returns the cosine distance in [0, 2] between two
// embedding blobs, or NULL when either side is missing, malformed, of a
// different dimension, or has zero norm.
const CosineDistanceFunc = "vec_distance_cosine"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(CosineDistanceFunc, 2, cosineDistanceSQL)
}

func cosineDistanceSQL(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, okA := args[0].([]byte)
	b, okB := args[1].([]byte)
	if !okA || !okB {
		return nil, nil
	}

	va, err := embedding.DecodeVector(a)
	if err != nil {
		return nil, nil
	}
	vb, err := embedding.DecodeVector(b)
	if err != nil {
		return nil, nil
	}

	distance, ok := embedding.CosineDistance(va, vb)
	if !ok {
		return nil, nil
	}
	return distance, nil
}

// UpdateEmbedding sets the embedding of a single chunk.
func (c *ChunkStore) UpdateEmbedding(ctx context.Context, chunkID string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("cannot store empty vector for chunk %s", chunkID)
	}

	res, err := c.db.sqlDB.ExecContext(ctx,
		"UPDATE chunks SET embedding = ? WHERE id = ?",
		embedding.EncodeVector(vector), chunkID,
	)
	if err != nil {
		return wrapErr("update embedding", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return nil
}

// SearchByVector ranks all embedded chunks by cosine similarity to query, descending.
// Equal similarities are ordered by chunk ID. Chunks whose embedding cannot be
// compared with the query are skipped.
func (c *ChunkStore) SearchByVector(ctx context.Context, query []float32, limit int) ([]ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		return nil, InvalidInput("limit must be positive, got %d", limit)
	}

	rows, err := c.db.sqlDB.QueryContext(ctx, `
		SELECT id, distance FROM (
			SELECT id, vec_distance_cosine(embedding, ?) AS distance
			FROM chunks
			WHERE embedding IS NOT NULL
		)
		WHERE distance IS NOT NULL
		ORDER BY distance ASC, id ASC
		LIMIT ?
	`, embedding.EncodeVector(query), limit)
	if err != nil {
		return nil, wrapErr("vector search", err)
	}
	defer rows.Close()

	results := make([]ScoredChunk, 0, limit)
	for rows.Next() {
		var sc ScoredChunk
		var distance float64
		if err := rows.Scan(&sc.ChunkID, &distance); err != nil {
			return nil, wrapErr("scan vector hit", err)
		}
		sc.Similarity = 1 - distance
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate vector hits", err)
	}

	return results, nil
}

// SimilarPairs compares every embedded chunk of videoID against every other
// embedded chunk in the corpus and returns the pairs whose similarity
// (1 - cosine distance) is strictly above threshold. When dims > 0, chunks whose
// embedding does not have exactly dims components are left out on both sides.
//
// Rows are ordered by source then target ID. Pairs where both chunks belong to
// videoID appear in both orientations.
func (c *ChunkStore) SimilarPairs(ctx context.Context, videoID string, threshold float64, dims int) ([]Relationship, error) {
	blobLen := -1
	if dims > 0 {
		blobLen = dims * 4
	}

	rows, err := c.db.sqlDB.QueryContext(ctx, `
		SELECT source_id, target_id, similarity FROM (
			SELECT s.id AS source_id, t.id AS target_id,
				1 - vec_distance_cosine(s.embedding, t.embedding) AS similarity
			FROM chunks s
			JOIN chunks t ON t.id <> s.id
			WHERE s.video_id = ?
				AND s.embedding IS NOT NULL
				AND t.embedding IS NOT NULL
				AND (? < 0 OR (length(s.embedding) = ? AND length(t.embedding) = ?))
		)
		WHERE similarity IS NOT NULL AND similarity > ?
		ORDER BY source_id, target_id
	`, videoID, blobLen, blobLen, blobLen, threshold)
	if err != nil {
		return nil, wrapErr("similar pairs", err)
	}
	defer rows.Close()

	var pairs []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.SourceChunkID, &r.TargetChunkID, &r.Similarity); err != nil {
			return nil, wrapErr("scan pair", err)
		}
		pairs = append(pairs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate pairs", err)
	}

	return pairs, nil
}
