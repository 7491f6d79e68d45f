package textindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "chunks.bleve"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_SearchRanksByRelevance(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.IndexDocs([]Doc{
		{ChunkID: "c1", VideoID: "v1", Content: "React hooks explained with useEffect and useState"},
		{ChunkID: "c2", VideoID: "v1", Content: "Cooking pasta at home"},
		{ChunkID: "c3", VideoID: "v2", Content: "Hooks hooks hooks: a deep dive into custom hooks"},
	}))

	hits, err := idx.Search(context.Background(), "hooks", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ids := []string{hits[0].ChunkID, hits[1].ChunkID}
	assert.ElementsMatch(t, []string{"c1", "c3"}, ids)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestIndex_BlankQuery(t *testing.T) {
	idx := openTestIndex(t)
	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ReopenAndReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks.bleve")

	idx, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, idx.IndexDocs([]Doc{{ChunkID: "c1", VideoID: "v1", Content: "golang generics"}}))
	require.NoError(t, idx.Close())

	idx, err = Open(dir, nil)
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, idx.Reset())
	n, err = idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestIndex_Delete(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.IndexDocs([]Doc{{ChunkID: "c1", VideoID: "v1", Content: "kubernetes operators"}}))
	require.NoError(t, idx.Delete("c1"))

	hits, err := idx.Search(context.Background(), "kubernetes", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
