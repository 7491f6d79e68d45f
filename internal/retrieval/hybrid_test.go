package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCats/tubeindex/internal/store"
	"github.com/DreamCats/tubeindex/internal/textindex"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeVectors struct {
	hits []store.ScoredChunk
	err  error
}

func (f *fakeVectors) SearchByVector(ctx context.Context, q []float32, limit int) ([]store.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeKeywords struct {
	hits    []textindex.Hit
	queries []string
}

func (f *fakeKeywords) Search(ctx context.Context, q string, limit int) ([]textindex.Hit, error) {
	f.queries = append(f.queries, q)
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeChunks map[string]*store.ChunkHit

func (f fakeChunks) GetHits(ctx context.Context, ids []string) (map[string]*store.ChunkHit, error) {
	out := make(map[string]*store.ChunkHit)
	for _, id := range ids {
		if h, ok := f[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func chunkCorpus() fakeChunks {
	chanA, chanB := "Fireship", "ThePrimeagen"
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return fakeChunks{
		"c1": {ChunkID: "c1", VideoID: "v1", VideoTitle: "One", Channel: &chanA, PublishedAt: &old},
		"c2": {ChunkID: "c2", VideoID: "v1", VideoTitle: "One", Channel: &chanA, PublishedAt: &old},
		"c3": {ChunkID: "c3", VideoID: "v2", VideoTitle: "Two", Channel: &chanB, PublishedAt: &recent},
		"c4": {ChunkID: "c4", VideoID: "v3", VideoTitle: "Three"},
	}
}

func resultIDs(results []SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func TestReciprocalRankFusion(t *testing.T) {
	fused := ReciprocalRankFusion(60, []string{"a", "b", "c"}, []string{"c", "a", "d"})
	require.Len(t, fused, 4)

	// a: 1/61 + 1/62, c: 1/63 + 1/61, b: 1/62, d: 1/63
	assert.Equal(t, []string{"a", "c", "b", "d"}, []string{fused[0].ChunkID, fused[1].ChunkID, fused[2].ChunkID, fused[3].ChunkID})
	assert.InDelta(t, 1.0/61+1.0/62, fused[0].Score, 1e-12)

	again := ReciprocalRankFusion(60, []string{"a", "b", "c"}, []string{"c", "a", "d"})
	assert.Equal(t, fused, again)
}

func TestReciprocalRankFusion_TiesBreakByID(t *testing.T) {
	fused := ReciprocalRankFusion(60, []string{"z"}, []string{"a"})
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.Equal(t, "z", fused[1].ChunkID)
}

func TestReciprocalRankFusion_AppearingInMoreListsNeverHurts(t *testing.T) {
	base := ReciprocalRankFusion(60, []string{"a", "b"})
	more := ReciprocalRankFusion(60, []string{"a", "b"}, []string{"b"})

	score := func(items []ScoredID, id string) float64 {
		for _, it := range items {
			if it.ChunkID == id {
				return it.Score
			}
		}
		return 0
	}
	assert.Greater(t, score(more, "b"), score(base, "b"))
	assert.Equal(t, "b", more[0].ChunkID)
}

func TestReciprocalRankFusion_DuplicateInListCountsOnce(t *testing.T) {
	fused := ReciprocalRankFusion(60, []string{"a", "a"})
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
}

func TestSearch_EmptyQuerySkipsEmbedder(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1}}
	kw := &fakeKeywords{}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), emb)

	resp, err := h.Search(context.Background(), "   ", DefaultSearchOptions())
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, emb.calls)
	assert.Empty(t, kw.queries)
}

func TestSearch_RejectsInvalidOptions(t *testing.T) {
	h := NewHybridRetriever(&fakeVectors{}, &fakeKeywords{}, chunkCorpus(), nil)

	tests := []struct {
		name string
		opts SearchOptions
	}{
		{"zero limit", SearchOptions{Mode: ModeHybrid, Limit: 0}},
		{"limit above max", SearchOptions{Mode: ModeHybrid, Limit: 101}},
		{"unknown mode", SearchOptions{Mode: "semantic", Limit: 5}},
		{"negative half-life", SearchOptions{Limit: 5, DecayHalfLifeDays: -1}},
		{"bad channel glob", SearchOptions{Limit: 5, Channels: []string{"[abc"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Search(context.Background(), "golang", tt.opts)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSearch_HybridFusesBothRankings(t *testing.T) {
	vec := &fakeVectors{hits: []store.ScoredChunk{{ChunkID: "c1", Similarity: 0.9}, {ChunkID: "c3", Similarity: 0.8}}}
	kw := &fakeKeywords{hits: []textindex.Hit{{ChunkID: "c3", Score: 4.2}, {ChunkID: "c2", Score: 1.1}}}
	h := NewHybridRetriever(vec, kw, chunkCorpus(), &fakeEmbedder{vec: []float32{1, 0}})

	resp, err := h.Search(context.Background(), "goroutines", SearchOptions{Mode: ModeHybrid, Limit: 10})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Equal(t, []string{"c3", "c1", "c2"}, resultIDs(resp.Results))
	assert.InDelta(t, 1.0/62+1.0/61, resp.Results[0].Similarity, 1e-12)
	assert.Equal(t, "Two", resp.Results[0].VideoTitle)
}

func TestSearch_DegradesWhenEmbeddingFails(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	kw := &fakeKeywords{hits: []textindex.Hit{{ChunkID: "c2", Score: 2}, {ChunkID: "c4", Score: 1}}}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), emb)

	for _, mode := range []Mode{ModeHybrid, ModeVector} {
		t.Run(string(mode), func(t *testing.T) {
			resp, err := h.Search(context.Background(), "rust", SearchOptions{Mode: mode, Limit: 10})
			require.NoError(t, err)
			assert.True(t, resp.Degraded)
			assert.Contains(t, resp.DegradedReason, "provider down")
			assert.Equal(t, []string{"c2", "c4"}, resultIDs(resp.Results))
		})
	}
}

func TestSearch_NilEmbedderDegrades(t *testing.T) {
	kw := &fakeKeywords{hits: []textindex.Hit{{ChunkID: "c1", Score: 1}}}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), nil)

	resp, err := h.Search(context.Background(), "rust", DefaultSearchOptions())
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, []string{"c1"}, resultIDs(resp.Results))
}

func TestSearch_EmptyCorpusIsNotDegraded(t *testing.T) {
	h := NewHybridRetriever(&fakeVectors{}, &fakeKeywords{}, fakeChunks{}, &fakeEmbedder{vec: []float32{1}})

	resp, err := h.Search(context.Background(), "anything", DefaultSearchOptions())
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Results)
}

func TestSearch_StorageErrorPropagates(t *testing.T) {
	vec := &fakeVectors{err: store.ErrStorage}
	h := NewHybridRetriever(vec, &fakeKeywords{}, chunkCorpus(), &fakeEmbedder{vec: []float32{1}})

	_, err := h.Search(context.Background(), "go", SearchOptions{Mode: ModeVector, Limit: 5})
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestSearch_VectorModeReportsSimilarity(t *testing.T) {
	vec := &fakeVectors{hits: []store.ScoredChunk{{ChunkID: "c3", Similarity: 0.91}, {ChunkID: "missing", Similarity: 0.5}}}
	h := NewHybridRetriever(vec, &fakeKeywords{}, chunkCorpus(), &fakeEmbedder{vec: []float32{1}})

	resp, err := h.Search(context.Background(), "go", SearchOptions{Mode: ModeVector, Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0.91, resp.Results[0].Similarity)
}

func TestSearch_KeywordModeExpandsSynonyms(t *testing.T) {
	kw := &fakeKeywords{hits: []textindex.Hit{{ChunkID: "c1", Score: 3}}}
	syn := NewSynonymsExpander(map[string][]string{"kubernetes": {"k8s"}})
	emb := &fakeEmbedder{vec: []float32{1}}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), emb, WithSynonyms(syn))

	resp, err := h.Search(context.Background(), "k8s", SearchOptions{Mode: ModeKeyword, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"k8s kubernetes"}, kw.queries)
	assert.Zero(t, emb.calls)
	assert.Equal(t, 3.0, resp.Results[0].Similarity)
}

func TestSearch_ChannelFilter(t *testing.T) {
	kw := &fakeKeywords{hits: []textindex.Hit{
		{ChunkID: "c1", Score: 4}, {ChunkID: "c3", Score: 3}, {ChunkID: "c4", Score: 2},
	}}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), nil)

	resp, err := h.Search(context.Background(), "go", SearchOptions{Mode: ModeKeyword, Limit: 5, Channels: []string{"The*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, resultIDs(resp.Results))
}

func TestSearch_LimitTruncates(t *testing.T) {
	kw := &fakeKeywords{hits: []textindex.Hit{
		{ChunkID: "c1", Score: 4}, {ChunkID: "c2", Score: 3}, {ChunkID: "c3", Score: 2},
	}}
	h := NewHybridRetriever(&fakeVectors{}, kw, chunkCorpus(), nil)

	resp, err := h.Search(context.Background(), "go", SearchOptions{Mode: ModeKeyword, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, resultIDs(resp.Results))
}

func TestSearch_DecayFavoursRecentVideos(t *testing.T) {
	vec := &fakeVectors{hits: []store.ScoredChunk{{ChunkID: "c1", Similarity: 0.9}, {ChunkID: "c3", Similarity: 0.8}, {ChunkID: "c4", Similarity: 0.1}}}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHybridRetriever(vec, &fakeKeywords{}, chunkCorpus(), &fakeEmbedder{vec: []float32{1}},
		WithClock(func() time.Time { return now }))

	resp, err := h.Search(context.Background(), "go", SearchOptions{Mode: ModeVector, Limit: 5, DecayHalfLifeDays: 365})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	// c3 was published "now" and keeps its score; c1 is four years old.
	assert.Equal(t, "c3", resp.Results[0].ChunkID)
	assert.InDelta(t, 0.8, resp.Results[0].Similarity, 1e-9)
	assert.Less(t, resp.Results[len(resp.Results)-1].Similarity, 0.1)
}

func TestAggregateByVideo(t *testing.T) {
	results := []SearchResult{
		{ChunkHit: store.ChunkHit{ChunkID: "x1", VideoID: "X"}, Similarity: 0.3},
		{ChunkHit: store.ChunkHit{ChunkID: "y1", VideoID: "Y"}, Similarity: 0.5},
		{ChunkHit: store.ChunkHit{ChunkID: "x2", VideoID: "X"}, Similarity: 0.9},
	}
	before := append([]SearchResult(nil), results...)

	videos := AggregateByVideo(results, 3)
	require.Len(t, videos, 2)
	assert.Equal(t, "X", videos[0].VideoID)
	assert.Equal(t, 0.9, videos[0].Score)
	assert.Equal(t, 2, videos[0].MatchCount)
	assert.Equal(t, []string{"x2", "x1"}, resultIDs(videos[0].Evidence))
	assert.Equal(t, "Y", videos[1].VideoID)
	assert.Equal(t, before, results)
}

func TestAggregateByVideo_CapsEvidenceAndKeepsTieOrder(t *testing.T) {
	results := []SearchResult{
		{ChunkHit: store.ChunkHit{ChunkID: "b1", VideoID: "B"}, Similarity: 0.5},
		{ChunkHit: store.ChunkHit{ChunkID: "a1", VideoID: "A"}, Similarity: 0.5},
		{ChunkHit: store.ChunkHit{ChunkID: "a2", VideoID: "A"}, Similarity: 0.4},
		{ChunkHit: store.ChunkHit{ChunkID: "a3", VideoID: "A"}, Similarity: 0.2},
	}

	videos := AggregateByVideo(results, 2)
	require.Len(t, videos, 2)
	assert.Equal(t, "B", videos[0].VideoID)
	assert.Equal(t, 3, videos[1].MatchCount)
	assert.Equal(t, []string{"a1", "a2"}, resultIDs(videos[1].Evidence))
}

func TestAggregateByVideo_Empty(t *testing.T) {
	assert.Empty(t, AggregateByVideo(nil, 0))
}
