package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EdgeStore provides CRUD operations for similarity relationships
type EdgeStore struct {
	db *DB
}

// NewEdgeStore creates a new edge store
func NewEdgeStore(db *DB) *EdgeStore {
	return &EdgeStore{db: db}
}

// InsertBidirectional stores each pair in both directions inside a single
// transaction. Rows that already exist are left untouched and counted as
// skipped; self-pairs are rejected.
func (e *EdgeStore) InsertBidirectional(ctx context.Context, pairs []Relationship) (created, skipped int, err error) {
	if len(pairs) == 0 {
		return 0, 0, nil
	}
	for _, p := range pairs {
		if p.SourceChunkID == p.TargetChunkID {
			return 0, 0, InvalidInput("self relationship on chunk %s", p.SourceChunkID)
		}
	}

	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (source_chunk_id, target_chunk_id, similarity, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_chunk_id, target_chunk_id) DO NOTHING
	`)
	if err != nil {
		return 0, 0, wrapErr("prepare relationship insert", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	insert := func(from, to string, sim float64) error {
		res, err := stmt.ExecContext(ctx, from, to, sim, now)
		if err != nil {
			return wrapErr(fmt.Sprintf("insert relationship (%s -> %s)", from, to), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapErr("rows affected", err)
		}
		if n > 0 {
			created++
		} else {
			skipped++
		}
		return nil
	}

	for _, p := range pairs {
		if err := insert(p.SourceChunkID, p.TargetChunkID, p.Similarity); err != nil {
			return 0, 0, err
		}
		if err := insert(p.TargetChunkID, p.SourceChunkID, p.Similarity); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, wrapErr("commit relationships", err)
	}
	return created, skipped, nil
}

// DeleteAll removes every relationship and returns how many rows were deleted.
func (e *EdgeStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := e.db.sqlDB.ExecContext(ctx, "DELETE FROM relationships")
	if err != nil {
		return 0, wrapErr("delete relationships", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PruneDangling removes relationships whose source or target chunk is gone
// or no longer has an embedding.
func (e *EdgeStore) PruneDangling(ctx context.Context) (int64, error) {
	res, err := e.db.sqlDB.ExecContext(ctx, `
		DELETE FROM relationships
		WHERE NOT EXISTS (
			SELECT 1 FROM chunks c WHERE c.id = relationships.source_chunk_id AND c.embedding IS NOT NULL
		)
		OR NOT EXISTS (
			SELECT 1 FROM chunks c WHERE c.id = relationships.target_chunk_id AND c.embedding IS NOT NULL
		)
	`)
	if err != nil {
		return 0, wrapErr("prune relationships", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Related returns edges leaving any chunk of videoID, resolved to their target
// chunk and its video. Targets that were deleted or lost their embedding are
// filtered out. Results are ordered by similarity descending, then target and
// source ID.
func (e *EdgeStore) Related(ctx context.Context, videoID string, minSimilarity float64, includeWithinVideo bool, limit int) ([]RelatedChunk, error) {
	if limit <= 0 {
		return nil, InvalidInput("limit must be positive, got %d", limit)
	}

	query := `
		SELECT r.source_chunk_id, r.similarity,
			c.id, c.content, c.start_time, c.end_time, c.video_id,
			v.title, v.channel, v.youtube_id, v.thumbnail, v.published_at
		FROM relationships r
		JOIN chunks s ON s.id = r.source_chunk_id
		JOIN chunks c ON c.id = r.target_chunk_id
		JOIN videos v ON v.id = c.video_id
		WHERE s.video_id = ?
			AND c.embedding IS NOT NULL
			AND r.similarity >= ?
	`
	args := []any{videoID, minSimilarity}
	if !includeWithinVideo {
		query += " AND c.video_id <> ?"
		args = append(args, videoID)
	}
	query += " ORDER BY r.similarity DESC, c.id ASC, r.source_chunk_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("related chunks", err)
	}
	defer rows.Close()

	results := make([]RelatedChunk, 0)
	for rows.Next() {
		var rc RelatedChunk
		var start, end sql.NullFloat64
		var channel, youtubeID, thumbnail sql.NullString
		var publishedAt any

		if err := rows.Scan(
			&rc.SourceChunkID, &rc.Similarity,
			&rc.ChunkID, &rc.Content, &start, &end, &rc.VideoID,
			&rc.VideoTitle, &channel, &youtubeID, &thumbnail, &publishedAt,
		); err != nil {
			return nil, wrapErr("scan related chunk", err)
		}

		rc.StartTime = nullFloat(start)
		rc.EndTime = nullFloat(end)
		rc.Channel = nullString(channel)
		rc.YoutubeID = nullString(youtubeID)
		rc.Thumbnail = nullString(thumbnail)
		rc.PublishedAt, _ = scanNullTime(publishedAt)

		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate related chunks", err)
	}

	return results, nil
}

// ListAll returns every stored edge ordered by source and target.
func (e *EdgeStore) ListAll(ctx context.Context) ([]Relationship, error) {
	return e.list(ctx, `
		SELECT source_chunk_id, target_chunk_id, similarity, created_at
		FROM relationships ORDER BY source_chunk_id, target_chunk_id
	`)
}

// Count returns the number of stored edges
func (e *EdgeStore) Count(ctx context.Context) (int, error) {
	var count int
	err := e.db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM relationships").Scan(&count)
	return count, wrapErr("count relationships", err)
}

func (e *EdgeStore) list(ctx context.Context, query string, args ...any) ([]Relationship, error) {
	rows, err := e.db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list relationships", err)
	}
	defer rows.Close()

	var edges []Relationship
	for rows.Next() {
		var r Relationship
		var createdAt any
		if err := rows.Scan(&r.SourceChunkID, &r.TargetChunkID, &r.Similarity, &createdAt); err != nil {
			return nil, wrapErr("scan relationship", err)
		}
		if ts, err := parseTimeValue(createdAt); err == nil {
			r.CreatedAt = ts
		}
		edges = append(edges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate relationships", err)
	}
	return edges, nil
}
