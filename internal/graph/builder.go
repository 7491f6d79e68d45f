// Package graph maintains the chunk similarity graph: building bidirectional
// edges per video, rebuilding the whole graph, and reading related chunks back.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/internal/store"
)

// DefaultThreshold is the similarity an edge must exceed to be stored.
const DefaultThreshold = 0.75

// ErrInvalidInput is returned for rejected graph parameters.
var ErrInvalidInput = store.ErrInvalidInput

var validate = validator.New()

// PairFinder finds candidate pairs for one video.
type PairFinder interface {
	IDsByVideo(ctx context.Context, videoID string) ([]string, error)
	SimilarPairs(ctx context.Context, videoID string, threshold float64, dims int) ([]store.Relationship, error)
}

// EdgeWriter persists edges.
type EdgeWriter interface {
	InsertBidirectional(ctx context.Context, pairs []store.Relationship) (created, skipped int, err error)
	DeleteAll(ctx context.Context) (int64, error)
}

// VideoLister enumerates videos for a backfill.
type VideoLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// BuildStats counts edge rows touched by one computation.
type BuildStats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Builder computes similarity edges.
type Builder struct {
	chunks PairFinder
	edges  EdgeWriter
	videos VideoLister
	dims   int
	logger *zap.Logger
}

// NewBuilder creates a builder. dims is the expected embedding length; chunks
// with any other length are ignored. dims <= 0 disables the check.
func NewBuilder(chunks PairFinder, edges EdgeWriter, videos VideoLister, dims int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		chunks: chunks,
		edges:  edges,
		videos: videos,
		dims:   dims,
		logger: logger,
	}
}

type buildParams struct {
	VideoID   string  `validate:"required"`
	Threshold float64 `validate:"gte=-1,lte=1"`
}

// ComputeRelationships links every embedded chunk of videoID to every other
// embedded chunk whose similarity is above threshold, in both directions.
// Edges that already exist are counted as skipped.
func (b *Builder) ComputeRelationships(ctx context.Context, videoID string, threshold float64) (BuildStats, error) {
	if err := validate.Struct(buildParams{VideoID: videoID, Threshold: threshold}); err != nil {
		return BuildStats{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	own, err := b.chunks.IDsByVideo(ctx, videoID)
	if err != nil {
		return BuildStats{}, fmt.Errorf("list chunks of %s: %w", videoID, err)
	}
	if len(own) == 0 {
		return BuildStats{}, nil
	}
	inVideo := make(map[string]bool, len(own))
	for _, id := range own {
		inVideo[id] = true
	}

	pairs, err := b.chunks.SimilarPairs(ctx, videoID, threshold, b.dims)
	if err != nil {
		return BuildStats{}, fmt.Errorf("similar pairs of %s: %w", videoID, err)
	}

	// Pairs inside the video come back once per orientation; keep one.
	unique := pairs[:0]
	for _, p := range pairs {
		if inVideo[p.TargetChunkID] && p.SourceChunkID > p.TargetChunkID {
			continue
		}
		unique = append(unique, p)
	}

	created, skipped, err := b.edges.InsertBidirectional(ctx, unique)
	if err != nil {
		return BuildStats{}, fmt.Errorf("insert edges for %s: %w", videoID, err)
	}

	b.logger.Debug("computed relationships",
		zap.String("video_id", videoID),
		zap.Int("pairs", len(unique)),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return BuildStats{Created: created, Skipped: skipped}, nil
}

// BackfillOptions configures a full rebuild.
type BackfillOptions struct {
	Threshold float64
	// Progress receives one tick per video. May be nil.
	Progress ProgressReporter
}

// VideoFailure records a video whose edges could not be computed.
type VideoFailure struct {
	VideoID string `json:"video_id"`
	Error   string `json:"error"`
}

// BackfillReport summarises a full rebuild.
type BackfillReport struct {
	Deleted   int64          `json:"deleted"`
	Videos    int            `json:"videos"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Created   int            `json:"created"`
	Skipped   int            `json:"skipped"`
	Failures  []VideoFailure `json:"failures,omitempty"`
	Cancelled bool           `json:"cancelled"`
	Duration  time.Duration  `json:"duration"`
}

// Backfill deletes every edge and recomputes the graph one video at a time.
// A failing video is recorded and skipped. Cancellation is honoured between
// videos and returns the partial report with Cancelled set.
//
// Backfill must not run concurrently with ComputeRelationships.
func (b *Builder) Backfill(ctx context.Context, opts BackfillOptions) (BackfillReport, error) {
	start := time.Now()
	var report BackfillReport

	if opts.Threshold < -1 || opts.Threshold > 1 {
		return report, fmt.Errorf("%w: threshold %v out of range", ErrInvalidInput, opts.Threshold)
	}

	ids, err := b.videos.ListIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list videos: %w", err)
	}
	report.Videos = len(ids)

	deleted, err := b.edges.DeleteAll(ctx)
	if err != nil {
		return report, fmt.Errorf("clear edges: %w", err)
	}
	report.Deleted = deleted
	b.logger.Info("cleared relationships", zap.Int64("deleted", deleted), zap.Int("videos", len(ids)))

	progress := opts.Progress
	if progress == nil {
		progress = nopProgress{}
	}
	progress.Start(len(ids))
	defer progress.Finish()

	for _, id := range ids {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		stats, err := b.ComputeRelationships(ctx, id, opts.Threshold)
		progress.Increment()
		if err != nil {
			if ctx.Err() != nil {
				report.Cancelled = true
				break
			}
			report.Failed++
			report.Failures = append(report.Failures, VideoFailure{VideoID: id, Error: err.Error()})
			b.logger.Warn("relationship computation failed", zap.String("video_id", id), zap.Error(err))
			continue
		}

		report.Processed++
		report.Created += stats.Created
		report.Skipped += stats.Skipped
	}

	report.Duration = time.Since(start)
	b.logger.Info("backfill finished",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("created", report.Created),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
