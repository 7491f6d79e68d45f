package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DreamCats/tubeindex/internal/store"
	"github.com/DreamCats/tubeindex/internal/temporal"
	"github.com/DreamCats/tubeindex/internal/textindex"
)

// ErrInvalidInput is returned for rejected search parameters.
var ErrInvalidInput = store.ErrInvalidInput

// Mode selects which rankings a search uses.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher ranks embedded chunks by cosine similarity.
type VectorSearcher interface {
	SearchByVector(ctx context.Context, query []float32, limit int) ([]store.ScoredChunk, error)
}

// KeywordSearcher ranks chunks by lexical relevance.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]textindex.Hit, error)
}

// ChunkLoader resolves chunk IDs to chunk and video metadata.
type ChunkLoader interface {
	GetHits(ctx context.Context, ids []string) (map[string]*store.ChunkHit, error)
}

// SearchOptions configures search behavior
type SearchOptions struct {
	Mode  Mode `validate:"omitempty,oneof=vector keyword hybrid"`
	Limit int  `validate:"min=1,max=100"`

	// DecayHalfLifeDays > 0 multiplies every score by the age decay of the
	// chunk's video before the final ordering.
	DecayHalfLifeDays float64 `validate:"gte=0"`

	// Channels are glob patterns; when set, only results whose channel
	// matches one of them are returned.
	Channels []string `validate:"dive,required"`
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Mode:  ModeHybrid,
		Limit: 10,
	}
}

// SearchResult is a ranked chunk hit. Similarity is the ranking score: the
// cosine similarity in vector mode, the lexical score in keyword mode, and
// the fused reciprocal-rank score in hybrid mode.
type SearchResult struct {
	store.ChunkHit
	Similarity float64 `json:"similarity"`
}

// SearchResponse carries the results and whether they were produced with
// reduced capability.
type SearchResponse struct {
	Mode           Mode           `json:"mode"`
	Results        []SearchResult `json:"results"`
	Degraded       bool           `json:"degraded"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}

// HybridRetriever provides hybrid search combining vector and keyword search
type HybridRetriever struct {
	vectors   VectorSearcher
	keywords  KeywordSearcher
	chunks    ChunkLoader
	embedder  Embedder
	synonyms  *SynonymsExpander
	logger    *zap.Logger
	rrfK      int
	overfetch int
	now       func() time.Time
}

// RetrieverOption customises a HybridRetriever.
type RetrieverOption func(*HybridRetriever)

// WithRRFK overrides the reciprocal rank fusion constant.
func WithRRFK(k int) RetrieverOption {
	return func(h *HybridRetriever) {
		if k > 0 {
			h.rrfK = k
		}
	}
}

// WithOverfetchFactor overrides how many candidates each sub-search returns
// relative to the requested limit.
func WithOverfetchFactor(f int) RetrieverOption {
	return func(h *HybridRetriever) {
		if f > 0 {
			h.overfetch = f
		}
	}
}

// WithSynonyms expands keyword queries with the given aliases.
func WithSynonyms(s *SynonymsExpander) RetrieverOption {
	return func(h *HybridRetriever) { h.synonyms = s }
}

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(logger *zap.Logger) RetrieverOption {
	return func(h *HybridRetriever) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock sets the reference time used for decay.
func WithClock(now func() time.Time) RetrieverOption {
	return func(h *HybridRetriever) { h.now = now }
}

// NewHybridRetriever creates a new hybrid retriever. embedder may be nil, in
// which case vector and hybrid searches degrade to keyword results.
func NewHybridRetriever(
	vectors VectorSearcher,
	keywords KeywordSearcher,
	chunks ChunkLoader,
	embedder Embedder,
	opts ...RetrieverOption,
) *HybridRetriever {
	h := &HybridRetriever{
		vectors:   vectors,
		keywords:  keywords,
		chunks:    chunks,
		embedder:  embedder,
		logger:    zap.NewNop(),
		rrfK:      DefaultRRFK,
		overfetch: DefaultOverfetchFactor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var validate = validator.New()

// Search runs the requested rankings and returns at most opts.Limit results.
// A blank query returns no results without touching the embedder or storage.
func (h *HybridRetriever) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateChannelPatterns(opts.Channels); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	resp := &SearchResponse{Mode: opts.Mode, Results: []SearchResult{}}
	query = strings.TrimSpace(query)
	if query == "" {
		return resp, nil
	}

	fetch := opts.Limit * h.overfetch

	var ranked []ScoredID
	switch opts.Mode {
	case ModeKeyword:
		hits, err := h.keywordSearch(ctx, query, fetch)
		if err != nil {
			return nil, err
		}
		ranked = keywordScores(hits)

	case ModeVector:
		vec, err := h.embedQuery(ctx, query)
		if err != nil {
			h.degrade(resp, err)
			hits, kerr := h.keywordSearch(ctx, query, fetch)
			if kerr != nil {
				return nil, kerr
			}
			ranked = keywordScores(hits)
			break
		}
		hits, err := h.vectors.SearchByVector(ctx, vec, fetch)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		ranked = vectorScores(hits)

	case ModeHybrid:
		var err error
		ranked, err = h.hybridSearch(ctx, query, fetch, resp)
		if err != nil {
			return nil, err
		}
	}

	results, err := h.hydrate(ctx, ranked)
	if err != nil {
		return nil, err
	}

	if opts.DecayHalfLifeDays > 0 {
		applyDecay(results, h.now(), opts.DecayHalfLifeDays)
	}

	filtered := results[:0]
	for _, r := range results {
		if matchChannel(opts.Channels, r.Channel) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	resp.Results = filtered

	h.logger.Debug("search complete",
		zap.String("mode", string(opts.Mode)),
		zap.Int("candidates", len(ranked)),
		zap.Int("results", len(resp.Results)),
		zap.Bool("degraded", resp.Degraded),
	)
	return resp, nil
}

// hybridSearch runs the vector and keyword rankings concurrently and fuses
// them. An embedding failure drops the vector side and flags the response.
func (h *HybridRetriever) hybridSearch(ctx context.Context, query string, fetch int, resp *SearchResponse) ([]ScoredID, error) {
	var (
		vectorIDs  []string
		keywordIDs []string
		embedErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := h.embedQuery(gctx, query)
		if err != nil {
			embedErr = err
			return nil
		}
		hits, err := h.vectors.SearchByVector(gctx, vec, fetch)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		for _, hit := range hits {
			vectorIDs = append(vectorIDs, hit.ChunkID)
		}
		return nil
	})
	g.Go(func() error {
		hits, err := h.keywordSearch(gctx, query, fetch)
		if err != nil {
			return err
		}
		for _, hit := range hits {
			keywordIDs = append(keywordIDs, hit.ChunkID)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if embedErr != nil {
		h.degrade(resp, embedErr)
		return ReciprocalRankFusion(h.rrfK, keywordIDs), nil
	}
	return ReciprocalRankFusion(h.rrfK, vectorIDs, keywordIDs), nil
}

func (h *HybridRetriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if h.embedder == nil {
		return nil, errors.New("no embedding service configured")
	}
	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("embedding service returned an empty vector")
	}
	return vec, nil
}

func (h *HybridRetriever) keywordSearch(ctx context.Context, query string, limit int) ([]textindex.Hit, error) {
	expanded, matches := h.synonyms.Expand(query)
	if len(matches) > 0 {
		h.logger.Debug("expanded keyword query", zap.String("query", expanded))
	}
	hits, err := h.keywords.Search(ctx, expanded, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return hits, nil
}

func (h *HybridRetriever) degrade(resp *SearchResponse, err error) {
	resp.Degraded = true
	resp.DegradedReason = fmt.Sprintf("query embedding failed: %v", err)
	h.logger.Warn("search degraded to keyword ranking", zap.Error(err))
}

// hydrate loads metadata for ranked IDs, keeping the ranking order. IDs that
// no longer resolve to a chunk are dropped.
func (h *HybridRetriever) hydrate(ctx context.Context, ranked []ScoredID) ([]SearchResult, error) {
	if len(ranked) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ChunkID
	}
	hits, err := h.chunks.GetHits(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		hit, ok := hits[r.ChunkID]
		if !ok {
			continue
		}
		results = append(results, SearchResult{ChunkHit: *hit, Similarity: r.Score})
	}
	return results, nil
}

func applyDecay(results []SearchResult, now time.Time, halfLifeDays float64) {
	for i := range results {
		results[i].Similarity *= temporal.DecayAt(now, results[i].PublishedAt, halfLifeDays)
	}
	sortResults(results)
}

func sortResults(results []SearchResult) {
	scored := make([]ScoredID, len(results))
	pos := make(map[string]SearchResult, len(results))
	for i, r := range results {
		scored[i] = ScoredID{ChunkID: r.ChunkID, Score: r.Similarity}
		pos[r.ChunkID] = r
	}
	sortScored(scored)
	for i, s := range scored {
		results[i] = pos[s.ChunkID]
	}
}

func keywordScores(hits []textindex.Hit) []ScoredID {
	out := make([]ScoredID, len(hits))
	for i, h := range hits {
		out[i] = ScoredID{ChunkID: h.ChunkID, Score: h.Score}
	}
	return out
}

func vectorScores(hits []store.ScoredChunk) []ScoredID {
	out := make([]ScoredID, len(hits))
	for i, h := range hits {
		out[i] = ScoredID{ChunkID: h.ChunkID, Score: h.Similarity}
	}
	return out
}
