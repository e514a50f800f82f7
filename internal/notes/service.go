// Package notes coordinates capture, enrichment, embedding and indexing of notes.
package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/enrich"
	"github.com/hyperjump/memoro/internal/extract"
	"github.com/hyperjump/memoro/internal/fileid"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/storage"
)

// Invalidator is told when the set of stored embeddings changed.
type Invalidator interface {
	Invalidate()
}

// Service is the write path for notes: it keeps the store, the keyword index and the
// search engine consistent with each other.
type Service struct {
	store     storage.NoteStore
	embedder  embedding.Embedder
	enricher  enrich.Enricher
	keyword   keyword.Index
	engine    Invalidator
	extractor *extract.Extractor
	ledger    storage.CaptureLedger
	autoEmbed bool
	logger    *zap.Logger

	filesMu sync.Mutex
	files   map[string]*fileLock
}

// fileLock serializes captures of one path from the ledger check through the ledger write.
type fileLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEmbedder sets the embedder used by Capture, Reembed and Backfill.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithEnricher sets the summary and tag provider used by Capture.
func WithEnricher(e enrich.Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithKeywordIndex mirrors every write into idx.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(s *Service) { s.keyword = idx }
}

// WithInvalidator registers the component caching a vector index over the store.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.engine = inv }
}

// WithExtractor sets the extractor used by CaptureFile.
func WithExtractor(x *extract.Extractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithLedger enables skipping files that were already captured.
func WithLedger(l storage.CaptureLedger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithAutoEmbed makes Create embed notes that arrive without a vector.
func WithAutoEmbed(on bool) Option {
	return func(s *Service) { s.autoEmbed = on }
}

// NewService returns a Service over store. Without an enricher, captured notes get no summary or tags;
// without an embedder they are stored without an embedding.
func NewService(store storage.NoteStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		enricher:  enrich.Disabled{},
		extractor: extract.NewExtractor(0),
		logger:    zap.NewNop(),
		files:     make(map[string]*fileLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture enriches content with a summary and tags, embeds it and stores the note.
// Enrichment failure aborts the capture; embedding failure only drops the embedding.
func (s *Service) Capture(ctx context.Context, content string) (*models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("note content must not be empty")
	}
	summary, err := s.enricher.Summarize(ctx, content)
	if err != nil {
		return nil, asDependency(err, "summarize note")
	}
	tags, err := s.enricher.ExtractTags(ctx, content)
	if err != nil {
		return nil, asDependency(err, "extract tags")
	}
	in := models.NoteInput{
		Content:   content,
		Summary:   summary,
		Tags:      tags,
		Embedding: s.tryEmbed(ctx, content),
	}
	id, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Create stores a note with caller-supplied fields. When no embedding is given and auto-embedding is
// enabled, one is computed on a best-effort basis.
func (s *Service) Create(ctx context.Context, in models.NoteInput) (int64, error) {
	if len(in.Embedding) == 0 && s.autoEmbed {
		in.Embedding = s.tryEmbed(ctx, in.Content)
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in models.NoteInput) (int64, error) {
	id, err := s.store.Create(ctx, in)
	if err != nil {
		return 0, err
	}
	if len(in.Embedding) > 0 {
		s.invalidate()
	}
	s.indexKeywords(ctx, id)
	s.logger.Debug("note stored", zap.Int64("id", id), zap.Bool("embedded", len(in.Embedding) > 0))
	return id, nil
}

// Get returns the note with id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Note, error) {
	return s.store.Get(ctx, id)
}

// List returns all notes newest first.
func (s *Service) List(ctx context.Context) ([]*models.Note, error) {
	return s.store.List(ctx)
}

// ListGroupedByDay returns notes grouped by calendar day, newest day first.
func (s *Service) ListGroupedByDay(ctx context.Context) ([]models.DayGroup, error) {
	return s.store.ListGroupedByDay(ctx)
}

// Update replaces content, summary and tags of a note. The embedding is left as is.
func (s *Service) Update(ctx context.Context, id int64, upd models.NoteUpdate) error {
	if err := s.store.Update(ctx, id, upd); err != nil {
		return err
	}
	s.indexKeywords(ctx, id)
	return nil
}

// Delete removes a note from the store and the keyword index.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	if s.keyword != nil {
		if err := s.keyword.Delete(ctx, id); err != nil {
			s.logger.Warn("keyword delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

// Reembed computes and stores a fresh embedding for one note. When vec is non-empty it is stored instead
// of calling the embedder.
func (s *Service) Reembed(ctx context.Context, id int64, vec []float32) error {
	if len(vec) == 0 {
		note, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		vec, err = s.embed(ctx, note.Content)
		if err != nil {
			return err
		}
	}
	if err := s.store.SetEmbedding(ctx, id, vec); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Backfill embeds up to limit notes that have no embedding (limit <= 0 means all).
// It stops early only when ctx is done.
func (s *Service) Backfill(ctx context.Context, limit int) (embedded, failed int, err error) {
	missing, err := s.store.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, n := range missing {
		if err := ctx.Err(); err != nil {
			return embedded, failed, err
		}
		vec, err := s.embed(ctx, n.Content)
		if err == nil {
			err = s.store.SetEmbedding(ctx, n.ID, vec)
		}
		if err != nil {
			failed++
			s.logger.Warn("backfill embedding failed", zap.Int64("id", n.ID), zap.Error(err))
			continue
		}
		embedded++
	}
	if embedded > 0 {
		s.invalidate()
	}
	s.logger.Info("embedding backfill finished",
		zap.Int("candidates", len(missing)), zap.Int("embedded", embedded), zap.Int("failed", failed))
	return embedded, failed, nil
}

// CaptureFile extracts the text of the file at path and captures it as a note. A file whose current
// version was captured before is skipped and (nil, nil) is returned.
func (s *Service) CaptureFile(ctx context.Context, path string) (*models.Note, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !extract.Supported(absPath) {
		return nil, apperr.Validation("unsupported file type", goerr.V("path", absPath))
	}
	unlock := s.lockFile(absPath)
	defer unlock()

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	fp := fileid.Fingerprint(absPath, info)
	if s.ledger != nil {
		seen, err := s.ledger.IsCaptured(ctx, fp)
		if err != nil {
			return nil, err
		}
		if seen {
			s.logger.Debug("skipping captured file", zap.String("path", absPath))
			return nil, nil
		}
	}
	text, err := s.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if text == "" {
		return nil, apperr.Validation("file has no text", goerr.V("path", absPath))
	}
	note, err := s.Capture(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.ledger != nil {
		if err := s.ledger.MarkCaptured(ctx, fp, absPath, note.ID); err != nil {
			s.logger.Warn("record captured file failed", zap.String("path", absPath), zap.Error(err))
		}
	}
	s.logger.Info("file captured", zap.String("path", absPath), zap.Int64("id", note.ID))
	return note, nil
}

// lockFile blocks until no other capture of path is in flight and returns the release func.
func (s *Service) lockFile(path string) func() {
	s.filesMu.Lock()
	l, ok := s.files[path]
	if !ok {
		l = &fileLock{}
		s.files[path] = l
	}
	l.refs++
	s.filesMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.filesMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.files, path)
		}
		s.filesMu.Unlock()
	}
}

// CaptureDirectory captures every supported regular file directly inside dir. Files that fail are logged
// and counted; the first such error is returned along with the number of notes created.
func (s *Service) CaptureDirectory(ctx context.Context, dir string) (n int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir: %w", err)
	}
	var firstErr error
	for _, e := range entries {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if !e.Type().IsRegular() || !extract.Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		note, err := s.CaptureFile(ctx, path)
		if err != nil {
			s.logger.Warn("capture file failed", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if note != nil {
			n++
		}
	}
	return n, firstErr
}

// RebuildKeywordIndex replaces the keyword index contents with the notes in the store.
func (s *Service) RebuildKeywordIndex(ctx context.Context) error {
	if s.keyword == nil {
		return nil
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	return s.keyword.Rebuild(ctx, all)
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, apperr.Dependency(embedding.ErrDisabled, "no embedder configured")
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, asDependency(err, "embed note")
	}
	return vec, nil
}

// tryEmbed returns nil when embedding is unavailable or fails.
func (s *Service) tryEmbed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		s.logger.Warn("embedding failed, storing note without embedding", zap.Error(err))
		return nil
	}
	return vec
}

func (s *Service) indexKeywords(ctx context.Context, id int64) {
	if s.keyword == nil {
		return
	}
	note, err := s.store.Get(ctx, id)
	if err == nil {
		err = s.keyword.Index(ctx, note)
	}
	if err != nil {
		s.logger.Warn("keyword indexing failed", zap.Int64("id", id), zap.Error(err))
	}
}

func (s *Service) invalidate() {
	if s.engine != nil {
		s.engine.Invalidate()
	}
}

func asDependency(err error, msg string) error {
	if apperr.IsDependency(err) {
		return err
	}
	return apperr.Dependency(err, msg)
}
