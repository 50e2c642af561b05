package docpipe

import (
	"context"
	"testing"

	"github.com/poiesic/docpipe/ai/mock"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService("",
		WithInMemory(),
		WithAIProvider(mock.NewMockProvider()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestServiceUploadAndSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "notes.txt",
		MimeType: "text/plain",
		Content:  []byte("The release process starts with a version tag."),
	}}, map[string][]string{"user": {"alice"}})
	require.NoError(t, err)

	ready, err := svc.IsReady(ctx, id)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, svc.Drain(ctx))

	ready, err = svc.IsReady(ctx, id)
	require.NoError(t, err)
	assert.True(t, ready)

	searcher, err := svc.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.Search(ctx, search.Query{
		Index: "docs",
		Text:  "The release process starts with a version tag.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, []string{"alice"}, results[0].Record.Tags["user"])
}

func TestServiceStatusReportsProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "a.txt",
		MimeType: "text/plain",
		Content:  []byte("short document body"),
	}}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	status, err := svc.Status(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.False(t, status.Failed)
	assert.Equal(t, core.DefaultSteps(), status.CompletedSteps)
	assert.Empty(t, status.RemainingSteps)
}

func TestServiceDeleteDocument(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "a.txt",
		MimeType: "text/plain",
		Content:  []byte("document that will be deleted"),
	}}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	require.NoError(t, svc.DeleteDocument(ctx, "docs", id))
	require.NoError(t, svc.Drain(ctx))

	searcher, err := svc.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.Search(ctx, search.Query{
		Index: "docs",
		Text:  "document that will be deleted",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServiceDeleteIndex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "a.txt",
		MimeType: "text/plain",
		Content:  []byte("first body"),
	}}, nil)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "b.txt",
		MimeType: "text/plain",
		Content:  []byte("second body"),
	}}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	_, err = svc.DeleteIndex(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	searcher, err := svc.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.Search(ctx, search.Query{Index: "docs", Text: "body"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServiceCancelWithdrawsWork(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "a.txt",
		MimeType: "text/plain",
		Content:  []byte("never processed"),
	}}, nil)
	require.NoError(t, err)

	withdrawn, err := svc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, withdrawn)

	require.NoError(t, svc.Drain(ctx))

	ready, err := svc.IsReady(ctx, id)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestServicePoisonedEmptyOnHealthyRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "docs", []UploadFile{{
		Name:     "a.txt",
		MimeType: "text/plain",
		Content:  []byte("healthy document"),
	}}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	poisoned, err := svc.Poisoned(ctx)
	require.NoError(t, err)
	assert.Empty(t, poisoned)
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfigFile().Pipeline
	cfg.FetchBatchSize = -1
	_, err := NewService("", WithInMemory(), WithPipelineConfig(&cfg))
	require.Error(t, err)
}
