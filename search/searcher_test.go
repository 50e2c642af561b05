package search

import (
	"context"
	"testing"

	"github.com/poiesic/docpipe/ai/mock"
	"github.com/poiesic/docpipe/core"
	storagebadger "github.com/poiesic/docpipe/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchFixture(t *testing.T) (*Searcher, *storagebadger.Stores, *mock.MockEmbedder) {
	t.Helper()
	stores := storagebadger.NewMemoryStores(t)
	embedder := mock.NewMockEmbedder()
	s, err := NewSearcher(stores.Vectors, embedder)
	require.NoError(t, err)
	return s, stores, embedder
}

func saveRecord(t *testing.T, stores *storagebadger.Stores, embedder *mock.MockEmbedder,
	index, id, text string, tags map[string][]string) {
	t.Helper()
	vector, err := embedder.EmbedText(context.Background(), text)
	require.NoError(t, err)
	require.NoError(t, stores.Vectors.Upsert(context.Background(), index, &core.MemoryRecord{
		ID:         id,
		PipelineID: "pipe-" + id,
		Text:       text,
		Vector:     vector,
		Tags:       tags,
	}))
}

func TestSearchRanksIdenticalTextFirst(t *testing.T) {
	s, stores, embedder := newSearchFixture(t)

	saveRecord(t, stores, embedder, "docs", "r1", "kubernetes cluster networking guide", nil)
	saveRecord(t, stores, embedder, "docs", "r2", "gardening tips unrelated entirely", nil)

	results, err := s.Search(context.Background(), Query{
		Index: "docs",
		Text:  "kubernetes cluster networking guide",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "r1", results[0].Record.ID)
}

func TestSearchTagFilter(t *testing.T) {
	s, stores, embedder := newSearchFixture(t)

	saveRecord(t, stores, embedder, "docs", "r1", "release notes for version one",
		map[string][]string{"user": {"alice"}})
	saveRecord(t, stores, embedder, "docs", "r2", "release notes for version two",
		map[string][]string{"user": {"bob"}})

	results, err := s.Search(context.Background(), Query{
		Index: "docs",
		Text:  "release notes",
		Tags:  map[string][]string{"user": {"bob"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].Record.ID)

	// A filter key the records lack excludes everything.
	results, err = s.Search(context.Background(), Query{
		Index: "docs",
		Text:  "release notes",
		Tags:  map[string][]string{"team": {"infra"}},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchLimit(t *testing.T) {
	s, stores, embedder := newSearchFixture(t)

	saveRecord(t, stores, embedder, "docs", "r1", "first document about storage", nil)
	saveRecord(t, stores, embedder, "docs", "r2", "second document about storage", nil)
	saveRecord(t, stores, embedder, "docs", "r3", "third document about storage", nil)

	results, err := s.Search(context.Background(), Query{
		Index: "docs",
		Text:  "document about storage",
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmptyQuery(t *testing.T) {
	s, _, _ := newSearchFixture(t)
	_, err := s.Search(context.Background(), Query{Index: "docs", Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchUnknownIndex(t *testing.T) {
	s, _, _ := newSearchFixture(t)
	results, err := s.Search(context.Background(), Query{Index: "missing", Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestContainsAllQueryWords(t *testing.T) {
	assert.True(t, containsAllQueryWords("The quick brown fox jumps", "quick fox"))
	assert.False(t, containsAllQueryWords("The quick brown fox", "quick wolf"))
	// Stop-word-only queries never match.
	assert.False(t, containsAllQueryWords("anything at all", "the a an"))
}
