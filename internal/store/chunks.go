package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DreamCats/tubeindex/internal/embedding"
)

// ChunkStore provides CRUD and similarity operations for transcript chunks
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new chunk store
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkColumns = "id, video_id, content, start_time, end_time, embedding, created_at"

// CreateBatch inserts chunks in a transaction. Existing chunks keep their
// embedding unless the incoming chunk carries one.
func (c *ChunkStore) CreateBatch(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, video_id, content, start_time, end_time, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_id = excluded.video_id,
			content = excluded.content,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			embedding = COALESCE(excluded.embedding, chunks.embedding)
	`)
	if err != nil {
		return wrapErr("prepare chunk insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}

		var blob any
		if chunk.HasEmbedding() {
			blob = embedding.EncodeVector(chunk.Embedding)
		}

		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.VideoID, chunk.Content, chunk.StartTime, chunk.EndTime,
			blob, formatTime(chunk.CreatedAt),
		); err != nil {
			return wrapErr(fmt.Sprintf("insert chunk %s", chunk.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit chunks", err)
	}
	return nil
}

// Get retrieves a chunk by ID
func (c *ChunkStore) Get(ctx context.Context, id string) (*Chunk, error) {
	row := c.db.sqlDB.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get chunk", err)
	}
	return chunk, nil
}

// IDsByVideo returns the IDs of a video's chunks.
func (c *ChunkStore) IDsByVideo(ctx context.Context, videoID string) ([]string, error) {
	rows, err := c.db.sqlDB.QueryContext(ctx, "SELECT id FROM chunks WHERE video_id = ? ORDER BY id", videoID)
	if err != nil {
		return nil, wrapErr("list chunk ids", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListMissingEmbeddings returns up to limit chunks whose embedding is still NULL.
func (c *ChunkStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*Chunk, error) {
	return c.list(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE embedding IS NULL ORDER BY id LIMIT ?", limit)
}

// ListWithoutTemporal returns chunks that have no temporal metadata row yet.
func (c *ChunkStore) ListWithoutTemporal(ctx context.Context) ([]*Chunk, error) {
	return c.list(ctx, `
		SELECT c.id, c.video_id, c.content, c.start_time, c.end_time, c.embedding, c.created_at
		FROM chunks c
		LEFT JOIN temporal_metadata t ON t.chunk_id = c.id
		WHERE t.chunk_id IS NULL
		ORDER BY c.id
	`)
}

// ListAll returns every chunk ordered by ID.
func (c *ChunkStore) ListAll(ctx context.Context) ([]*Chunk, error) {
	return c.list(ctx, "SELECT "+chunkColumns+" FROM chunks ORDER BY id")
}

// GetHits loads chunks joined with their video metadata, keyed by chunk ID.
// IDs that no longer exist are absent from the map.
func (c *ChunkStore) GetHits(ctx context.Context, ids []string) (map[string]*ChunkHit, error) {
	hits := make(map[string]*ChunkHit, len(ids))
	if len(ids) == 0 {
		return hits, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.sqlDB.QueryContext(ctx, `
		SELECT c.id, c.content, c.start_time, c.end_time, c.video_id,
			v.title, v.channel, v.youtube_id, v.thumbnail, v.published_at
		FROM chunks c
		JOIN videos v ON v.id = c.video_id
		WHERE c.id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, wrapErr("load chunk hits", err)
	}
	defer rows.Close()

	for rows.Next() {
		hit, err := scanChunkHit(rows)
		if err != nil {
			return nil, err
		}
		hits[hit.ChunkID] = hit
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate chunk hits", err)
	}

	return hits, nil
}

// Count returns the number of chunks
func (c *ChunkStore) Count(ctx context.Context) (int, error) {
	var count int
	err := c.db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, wrapErr("count chunks", err)
}

// CountEmbedded returns the number of chunks with a non-null embedding.
func (c *ChunkStore) CountEmbedded(ctx context.Context) (int, error) {
	var count int
	err := c.db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL").Scan(&count)
	return count, wrapErr("count embedded chunks", err)
}

func (c *ChunkStore) list(ctx context.Context, query string, args ...any) ([]*Chunk, error) {
	rows, err := c.db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list chunks", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, wrapErr("scan chunk", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate chunks", err)
	}
	return chunks, nil
}

// scanChunk scans a row selected with chunkColumns. A malformed embedding blob
// is dropped rather than failing the row.
func scanChunk(row rowScanner) (*Chunk, error) {
	chunk := &Chunk{}
	var start, end sql.NullFloat64
	var blob []byte
	var createdAt any

	if err := row.Scan(&chunk.ID, &chunk.VideoID, &chunk.Content, &start, &end, &blob, &createdAt); err != nil {
		return nil, err
	}

	chunk.StartTime = nullFloat(start)
	chunk.EndTime = nullFloat(end)
	if len(blob) > 0 {
		if vec, err := embedding.DecodeVector(blob); err == nil {
			chunk.Embedding = vec
		}
	}
	if ts, err := parseTimeValue(createdAt); err == nil {
		chunk.CreatedAt = ts
	}

	return chunk, nil
}

func scanChunkHit(row rowScanner) (*ChunkHit, error) {
	hit := &ChunkHit{}
	var start, end sql.NullFloat64
	var channel, youtubeID, thumbnail sql.NullString
	var publishedAt any

	if err := row.Scan(
		&hit.ChunkID, &hit.Content, &start, &end, &hit.VideoID,
		&hit.VideoTitle, &channel, &youtubeID, &thumbnail, &publishedAt,
	); err != nil {
		return nil, wrapErr("scan chunk hit", err)
	}

	hit.StartTime = nullFloat(start)
	hit.EndTime = nullFloat(end)
	hit.Channel = nullString(channel)
	hit.YoutubeID = nullString(youtubeID)
	hit.Thumbnail = nullString(thumbnail)
	// An unparseable publish date is treated as unknown.
	hit.PublishedAt, _ = scanNullTime(publishedAt)

	return hit, nil
}
