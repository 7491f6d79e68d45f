package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// VideoStore provides CRUD operations for videos
type VideoStore struct {
	db *DB
}

// NewVideoStore creates a new video store
func NewVideoStore(db *DB) *VideoStore {
	return &VideoStore{db: db}
}

// Upsert inserts a video or refreshes its metadata.
func (v *VideoStore) Upsert(ctx context.Context, video *Video) error {
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO videos (id, title, channel, youtube_id, thumbnail, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			channel = excluded.channel,
			youtube_id = excluded.youtube_id,
			thumbnail = excluded.thumbnail,
			published_at = excluded.published_at
	`

	_, err := v.db.sqlDB.ExecContext(ctx, query,
		video.ID, video.Title, video.Channel, video.YoutubeID, video.Thumbnail,
		nullableTime(video.PublishedAt), formatTime(video.CreatedAt),
	)
	return wrapErr("upsert video", err)
}

// Get retrieves a video by ID
func (v *VideoStore) Get(ctx context.Context, id string) (*Video, error) {
	row := v.db.sqlDB.QueryRowContext(ctx, `
		SELECT id, title, channel, youtube_id, thumbnail, published_at, created_at
		FROM videos WHERE id = ?
	`, id)

	video := &Video{}
	var channel, youtubeID, thumbnail sql.NullString
	var publishedAt, createdAt any

	err := row.Scan(&video.ID, &video.Title, &channel, &youtubeID, &thumbnail, &publishedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get video", err)
	}

	video.Channel = nullString(channel)
	video.YoutubeID = nullString(youtubeID)
	video.Thumbnail = nullString(thumbnail)
	if video.PublishedAt, err = scanNullTime(publishedAt); err != nil {
		return nil, wrapErr("parse published_at", err)
	}
	if ts, err := parseTimeValue(createdAt); err == nil {
		video.CreatedAt = ts
	}

	return video, nil
}

// ListIDs returns every video ID in ascending order.
func (v *VideoStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := v.db.sqlDB.QueryContext(ctx, "SELECT id FROM videos ORDER BY id")
	if err != nil {
		return nil, wrapErr("list videos", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// Count returns the number of videos
func (v *VideoStore) Count(ctx context.Context) (int, error) {
	var count int
	err := v.db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	return count, wrapErr("count videos", err)
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate ids", err)
	}
	return ids, nil
}
