package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TemporalStore persists extracted temporal metadata, one row per chunk.
type TemporalStore struct {
	db *DB
}

// NewTemporalStore creates a new temporal metadata store
func NewTemporalStore(db *DB) *TemporalStore {
	return &TemporalStore{db: db}
}

// Insert stores metadata for a chunk. An existing row is kept and reported
// with created=false.
func (t *TemporalStore) Insert(ctx context.Context, meta *TemporalMetadata) (bool, error) {
	if meta.Confidence <= 0 || meta.Confidence > 1 {
		return false, InvalidInput("confidence must be in (0, 1], got %v", meta.Confidence)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	res, err := t.db.sqlDB.ExecContext(ctx, `
		INSERT INTO temporal_metadata (chunk_id, version_mention, release_date_mention, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO NOTHING
	`, meta.ChunkID, meta.VersionMention, meta.ReleaseDateMention, meta.Confidence, formatTime(meta.CreatedAt))
	if err != nil {
		return false, wrapErr("insert temporal metadata", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("rows affected", err)
	}
	return n > 0, nil
}

// Get returns the metadata of a chunk, or ErrNotFound.
func (t *TemporalStore) Get(ctx context.Context, chunkID string) (*TemporalMetadata, error) {
	row := t.db.sqlDB.QueryRowContext(ctx, `
		SELECT chunk_id, version_mention, release_date_mention, confidence, created_at
		FROM temporal_metadata WHERE chunk_id = ?
	`, chunkID)

	meta := &TemporalMetadata{}
	var version, date sql.NullString
	var createdAt any
	err := row.Scan(&meta.ChunkID, &version, &date, &meta.Confidence, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get temporal metadata", err)
	}

	meta.VersionMention = nullString(version)
	meta.ReleaseDateMention = nullString(date)
	if ts, err := parseTimeValue(createdAt); err == nil {
		meta.CreatedAt = ts
	}
	return meta, nil
}

// Count returns the number of temporal metadata rows
func (t *TemporalStore) Count(ctx context.Context) (int, error) {
	var count int
	err := t.db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM temporal_metadata").Scan(&count)
	return count, wrapErr("count temporal metadata", err)
}
