package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/storage"
)

const dims = 4

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:", storage.WithValidator(embedding.NewValidator(dims)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEngine(s *storage.SQLiteStore, opts ...Option) *Engine {
	return NewEngine(s, embedding.NewValidator(dims), opts...)
}

func create(t *testing.T, s *storage.SQLiteStore, content string, emb []float32) int64 {
	t.Helper()
	id, err := s.Create(context.Background(), models.NoteInput{Content: content, Embedding: emb})
	require.NoError(t, err)
	return id
}

func TestEngine_DeletionInvalidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)

	a := create(t, s, "A", []float32{0, 0, 0, 0})
	b := create(t, s, "B", []float32{1, 0, 0, 0})
	c := create(t, s, "C", []float32{3, 0, 0, 0})

	ids, err := e.Search(ctx, []float32{0, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b, c}, ids)

	require.NoError(t, s.Delete(ctx, b))

	ids, err = e.Search(ctx, []float32{0, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, c}, ids)
	assert.NotContains(t, ids, b)
}

func TestEngine_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)

	ids, err := e.Search(ctx, []float32{1, 2, 3, 4}, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	create(t, s, "no embedding", nil)
	ids, err = e.Search(ctx, []float32{1, 2, 3, 4}, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEngine_BoundsAndUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)

	present := map[int64]bool{}
	for i := 0; i < 12; i++ {
		id := create(t, s, "n", []float32{float32(i), float32(i % 3), 0, 1})
		present[id] = true
	}

	for _, k := range []int{1, 5, 12, 50} {
		ids, err := e.Search(ctx, []float32{2, 1, 0, 1}, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(ids), k)
		seen := map[int64]bool{}
		for _, id := range ids {
			assert.True(t, present[id], "unknown id %d", id)
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}

	ids, err := e.Search(ctx, []float32{2, 1, 0, 1}, 0)
	require.NoError(t, err)
	assert.Len(t, ids, models.DefaultTopK)
}

func TestEngine_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for i := 0; i < 6; i++ {
		create(t, s, "n", []float32{float32(i % 2), float32(i), 1, 0})
	}
	q := []float32{0.5, 2, 1, 0}

	first, err := newEngine(s).Search(ctx, q, 4)
	require.NoError(t, err)
	second, err := newEngine(s).Search(ctx, q, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_UpdatePreservesRanking(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)

	a := create(t, s, "alpha", []float32{1, 0, 0, 0})
	b := create(t, s, "beta", []float32{0, 1, 0, 0})
	q := []float32{0.9, 0.1, 0, 0}

	before, err := e.Search(ctx, q, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{a, b}, before)
	buildsBefore := e.IndexInfo().Builds

	require.NoError(t, s.Update(ctx, a, models.NoteUpdate{Content: "alpha edited", Tags: []string{"x"}}))

	after, err := e.Search(ctx, q, 2)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, buildsBefore, e.IndexInfo().Builds, "content edits must not force a rebuild")
}

func TestEngine_ReusesCacheUntilGenerationMoves(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)
	create(t, s, "a", []float32{1, 1, 1, 1})

	require.NoError(t, e.Warm(ctx))
	require.NoError(t, e.Warm(ctx))
	assert.Equal(t, uint64(1), e.IndexInfo().Builds)
	assert.Equal(t, 1, e.IndexInfo().Size)

	create(t, s, "b", []float32{2, 2, 2, 2})
	_, err := e.Search(ctx, []float32{0, 0, 0, 0}, 5)
	require.NoError(t, err)
	info := e.IndexInfo()
	assert.Equal(t, uint64(2), info.Builds)
	assert.Equal(t, 2, info.Size)
	assert.True(t, info.Cached)
	assert.NotEmpty(t, info.BuildID)

	e.Invalidate()
	assert.False(t, e.IndexInfo().Cached)
}

func TestEngine_ConcurrentSearchesShareBuild(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	e := newEngine(s)
	for i := 0; i < 20; i++ {
		create(t, s, "n", []float32{float32(i), 0, 0, 0})
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := e.Search(ctx, []float32{3, 0, 0, 0}, 3)
			assert.NoError(t, err)
			assert.Len(t, ids, 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(1), e.IndexInfo().Builds)
}

func TestEngine_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newStore(t))

	_, err := e.Search(ctx, []float32{1, 2, 3, 4}, -1)
	assert.True(t, apperr.IsValidation(err))

	_, err = e.Search(ctx, []float32{1, 2}, 5)
	assert.True(t, apperr.IsValidation(err))

	_, err = e.SearchText(ctx, "", 5)
	assert.True(t, apperr.IsValidation(err))
}

type failingEmbedder struct{ *embedding.MockEmbedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model offline")
}

func TestEngine_SearchText(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	mock := embedding.NewMockEmbedder(dims)

	v, _ := mock.Embed(ctx, "garden tomatoes")
	want := create(t, s, "garden tomatoes", v)
	w, _ := mock.Embed(ctx, "tax return")
	create(t, s, "tax return", w)

	e := newEngine(s, WithEmbedder(mock))
	hits, err := e.SearchText(ctx, "garden tomatoes", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, want, hits[0].ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)

	_, err = newEngine(s, WithEmbedder(failingEmbedder{embedding.NewMockEmbedder(dims)})).SearchText(ctx, "x", 1)
	assert.True(t, apperr.IsDependency(err))

	_, err = newEngine(s).SearchText(ctx, "x", 1)
	assert.True(t, apperr.IsDependency(err))
}

func TestEngine_KeywordSearch(t *testing.T) {
	ctx := context.Background()
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	defer kw.Close()
	require.NoError(t, kw.Index(ctx, &models.Note{ID: 3, Content: "renew passport"}))

	e := newEngine(newStore(t), WithKeywordIndex(kw))
	res, err := e.KeywordSearch(ctx, "passport", 0, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(3), res[0].NoteID)

	_, err = e.KeywordSearch(ctx, "", 5, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = newEngine(newStore(t)).KeywordSearch(ctx, "x", 5, nil)
	assert.True(t, apperr.IsDependency(err))
}

func TestEngine_WorkerRebuildsAfterInvalidate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newStore(t)
	e := newEngine(s)
	create(t, s, "a", []float32{1, 0, 0, 0})

	e.Start(ctx)
	require.Eventually(t, func() bool { return e.running.Load() }, timeout, tick)
	e.Invalidate()
	require.Eventually(t, func() bool { return e.IndexInfo().Cached }, timeout, tick)
	assert.Equal(t, 1, e.IndexInfo().Size)
}
