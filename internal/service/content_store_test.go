package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStore_BuildsChunksAndEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newTestStore(t, embedder)
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	doc, hit, err := store.GetOrBuild(context.Background(), "biology.pdf", modTime, staticLoader(sampleText()))
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, "biology.pdf", doc.Name)
	assert.Equal(t, domain.CacheKey("biology.pdf"), doc.Key)
	assert.NotEmpty(t, doc.Chunks)
	assert.Len(t, doc.Embeddings, len(doc.Chunks))
	assert.Equal(t, modTime, doc.ModifiedTime)
}

func TestContentStore_SecondCallIsCacheHit(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newTestStore(t, embedder)
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return sampleText(), nil
	}

	first, hit, err := store.GetOrBuild(ctx, "biology.pdf", modTime, load)
	require.NoError(t, err)
	require.False(t, hit)

	second, hit, err := store.GetOrBuild(ctx, "biology.pdf", modTime.Add(500*time.Millisecond), load)
	require.NoError(t, err)

	assert.True(t, hit)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, embedder.Calls())
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, first.Embeddings, second.Embeddings)
}

func TestContentStore_NewerSourceInvalidates(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	_, _, err := store.GetOrBuild(ctx, "notes.pdf", modTime, staticLoader(sampleText()))
	require.NoError(t, err)

	updated := "Entirely new material about thermodynamics, entropy and the conservation of energy in closed systems."
	doc, hit, err := store.GetOrBuild(ctx, "notes.pdf", modTime.Add(time.Hour), staticLoader(updated))
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Contains(t, doc.Content, "thermodynamics")
	assert.Equal(t, modTime.Add(time.Hour), doc.ModifiedTime)
}

func TestContentStore_EmptyTextIsExtractionError(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})

	text := "==========\nPAGE 1\n==========\n[EMPTY PAGE OR NO TEXT]\n\n"
	_, _, err := store.GetOrBuild(context.Background(), "scan.pdf", time.Time{}, staticLoader(text))

	var extractErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "scan.pdf", extractErr.Source)
	assert.True(t, domain.IsPerFileError(err))
}

func TestContentStore_LoaderErrorPassesThrough(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	loadErr := &domain.DownloadError{URL: "https://example.com/x.pdf", Status: 404}

	_, _, err := store.GetOrBuild(context.Background(), "x.pdf", time.Time{}, failingLoader(loadErr))
	assert.ErrorIs(t, err, loadErr)
}

func TestContentStore_CachesWithoutEmbedder(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return sampleText(), nil
	}

	first, hit, err := store.GetOrBuild(ctx, "a.pdf", time.Time{}, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEmpty(t, first.Chunks)
	assert.Empty(t, first.Embeddings)

	second, hit, err := store.GetOrBuild(ctx, "a.pdf", time.Time{}, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, first.Chunks, second.Chunks)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
}

func TestContentStore_EmbeddingFailureIsCachedAndBackfilled(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding endpoint down")}
	store := newTestStore(t, embedder)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return sampleText(), nil
	}

	doc, hit, err := store.GetOrBuild(ctx, "a.pdf", time.Time{}, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEmpty(t, doc.Chunks)
	assert.Empty(t, doc.Embeddings)

	embedder.mu.Lock()
	embedder.err = nil
	embedder.mu.Unlock()

	doc, hit, err = store.GetOrBuild(ctx, "a.pdf", time.Time{}, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), loads.Load())
	assert.Len(t, doc.Embeddings, len(doc.Chunks))

	// The vectors were written back, so a third call does not embed again.
	calls := embedder.Calls()
	doc, hit, err = store.GetOrBuild(ctx, "a.pdf", time.Time{}, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, doc.Embeddings, len(doc.Chunks))
	assert.Equal(t, calls, embedder.Calls())
}

func TestContentStore_ConcurrentBuildsShareOneLoad(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		loads.Add(1)
		<-release
		return sampleText(), nil
	}

	var wg sync.WaitGroup
	docs := make([]*domain.Document, 8)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, _, err := store.GetOrBuild(ctx, "shared.pdf", time.Time{}, load)
			assert.NoError(t, err)
			docs[i] = doc
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int32(2))
	for _, d := range docs {
		require.NotNil(t, d)
		assert.Equal(t, docs[0].Chunks, d.Chunks)
	}
}

func TestContentStore_QuestionsClearAndStats(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	ctx := context.Background()

	_, _, err := store.GetOrBuild(ctx, "a.pdf", time.Time{}, staticLoader(sampleText()))
	require.NoError(t, err)

	qs := FallbackQuestions(3, 0)
	require.NoError(t, store.StoreQuestions(ctx, "a.pdf", qs))

	cached, err := store.CachedQuestions(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Len(t, cached, 3)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.QuestionSets)
	assert.Equal(t, "fs", stats.Backend)

	removed, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.CachedQuestions(ctx, "a.pdf")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}
