package notes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/search"
	"github.com/hyperjump/memoro/internal/storage"
)

const dims = 8

type stubEnricher struct {
	summary    string
	tags       []string
	summaryErr error
	tagsErr    error
}

func (e *stubEnricher) Summarize(context.Context, string) (string, error) {
	return e.summary, e.summaryErr
}

func (e *stubEnricher) ExtractTags(context.Context, string) ([]string, error) {
	return e.tags, e.tagsErr
}

// slowEnricher holds every summary long enough for concurrent captures to overlap.
type slowEnricher struct{ stubEnricher }

func (e *slowEnricher) Summarize(ctx context.Context, text string) (string, error) {
	time.Sleep(50 * time.Millisecond)
	return e.stubEnricher.Summarize(ctx, text)
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type fixture struct {
	svc     *Service
	store   *storage.SQLiteStore
	keyword *keyword.BleveIndex
	engine  *search.Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", storage.WithValidator(embedding.NewValidator(dims)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })
	emb := embedding.NewMockEmbedder(dims)
	engine := search.NewEngine(store, embedding.NewValidator(dims),
		search.WithEmbedder(emb), search.WithKeywordIndex(kw))

	base := []Option{
		WithEmbedder(emb),
		WithEnricher(&stubEnricher{summary: "a summary", tags: []string{"go", "notes"}}),
		WithKeywordIndex(kw),
		WithInvalidator(engine),
		WithLedger(store),
	}
	svc := NewService(store, append(base, opts...)...)
	return &fixture{svc: svc, store: store, keyword: kw, engine: engine}
}

func TestService_Capture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.Capture(ctx, "learning about vector indexes")
	require.NoError(t, err)
	assert.Equal(t, "a summary", note.Summary)
	assert.Equal(t, []string{"go", "notes"}, note.Tags)
	assert.Len(t, note.Embedding, dims)

	ids, err := f.engine.SearchText(ctx, "learning about vector indexes", 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, note.ID, ids[0].ID)

	hits, err := f.engine.KeywordSearch(ctx, "vector", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, note.ID, hits[0].NoteID)
}

func TestService_CaptureRejectsBlank(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Capture(context.Background(), "  \n ")
	assert.True(t, apperr.IsValidation(err))
}

func TestService_CaptureEnrichmentFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	f := newFixture(t, WithEnricher(&stubEnricher{summaryErr: boom}))

	_, err := f.svc.Capture(ctx, "some text")
	require.Error(t, err)
	assert.True(t, apperr.IsDependency(err))
	assert.ErrorIs(t, err, boom)

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_CaptureEmbeddingFailureStoresNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithEmbedder(embedding.NewDisabledEmbedder(dims)))

	note, err := f.svc.Capture(ctx, "kept without a vector")
	require.NoError(t, err)
	assert.False(t, note.HasEmbedding())

	ids, err := f.engine.Search(ctx, make([]float32, dims), 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_CreateAutoEmbed(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	id, err := f.svc.Create(ctx, models.NoteInput{Content: "plain"})
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.HasEmbedding())

	f = newFixture(t, WithAutoEmbed(true))
	id, err = f.svc.Create(ctx, models.NoteInput{Content: "plain"})
	require.NoError(t, err)
	got, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.HasEmbedding())
}

func TestService_DeleteInvalidatesAndUnindexes(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvalidator{}
	f := newFixture(t, WithInvalidator(inv))

	note, err := f.svc.Capture(ctx, "ephemeral thought")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.n)

	require.NoError(t, f.svc.Delete(ctx, note.ID))
	assert.Equal(t, 2, inv.n)

	n, err := f.keyword.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	err = f.svc.Delete(ctx, note.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_UpdateReindexesKeywords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.svc.Create(ctx, models.NoteInput{Content: "alpha"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Update(ctx, id, models.NoteUpdate{Content: "bravo"}))

	hits, err := f.keyword.Search(ctx, "bravo", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	hits, err = f.keyword.Search(ctx, "alpha", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	err = f.svc.Update(ctx, 999, models.NoteUpdate{Content: "x"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_Reembed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.svc.Create(ctx, models.NoteInput{Content: "later"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Reembed(ctx, id, nil))
	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Embedding, dims)

	explicit := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	require.NoError(t, f.svc.Reembed(ctx, id, explicit))
	got, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, explicit, got.Embedding)

	err = f.svc.Reembed(ctx, id, []float32{1, 2})
	assert.True(t, apperr.IsValidation(err))

	err = f.svc.Reembed(ctx, 404, nil)
	assert.True(t, apperr.IsNotFound(err))

	f = newFixture(t, WithEmbedder(embedding.NewDisabledEmbedder(dims)))
	id, err = f.svc.Create(ctx, models.NoteInput{Content: "later"})
	require.NoError(t, err)
	err = f.svc.Reembed(ctx, id, nil)
	assert.True(t, apperr.IsDependency(err))
}

func TestService_Backfill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, c := range []string{"one", "two", "three"} {
		_, err := f.svc.Create(ctx, models.NoteInput{Content: c})
		require.NoError(t, err)
	}

	embedded, failed, err := f.svc.Backfill(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, embedded)
	assert.Zero(t, failed)

	embedded, failed, err = f.svc.Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, embedded)
	assert.Zero(t, failed)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.WithEmbedding)
}

func TestService_BackfillCountsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithEmbedder(embedding.NewDisabledEmbedder(dims)))
	_, err := f.svc.Create(ctx, models.NoteInput{Content: "one"})
	require.NoError(t, err)

	embedded, failed, err := f.svc.Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, embedded)
	assert.Equal(t, 1, failed)
}

func TestService_CaptureFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "idea.md")
	require.NoError(t, os.WriteFile(path, []byte("# Idea\n\nship it"), 0600))

	note, err := f.svc.CaptureFile(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, "# Idea\n\nship it", note.Content)

	again, err := f.svc.CaptureFile(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = f.svc.CaptureFile(ctx, filepath.Join(dir, "image.png"))
	assert.True(t, apperr.IsValidation(err))
}

func TestService_CaptureFileConcurrentOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithEnricher(&slowEnricher{stubEnricher{summary: "s"}}))
	path := filepath.Join(t.TempDir(), "todo.txt")
	require.NoError(t, os.WriteFile(path, []byte("buy milk"), 0600))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CaptureFile(ctx, path)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, f.svc.files)
}

func TestService_CaptureDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("second"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0, 1}, 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0700))

	n, err := f.svc.CaptureDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.CaptureDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_RebuildKeywordIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.Create(ctx, models.NoteInput{Content: "written behind the service"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RebuildKeywordIndex(ctx))
	hits, err := f.keyword.Search(ctx, "behind", 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
