// Package search answers nearest-neighbor queries over note embeddings and owns the
// cached vector index.
package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/vector"
)

// snapshot pairs a built index with the store generation it reflects. Never mutated.
type snapshot struct {
	generation uint64
	index      *vector.FlatIndex
}

// Engine runs semantic search. The index is rebuilt whenever the store generation moves
// past the cached snapshot, so a search never sees a deleted note.
type Engine struct {
	source      vector.EmbeddingSource
	builder     *vector.Builder
	validator   *embedding.Validator
	embedder    embedding.Embedder
	keyword     keyword.Index
	defaultTopK int
	logger      *zap.Logger

	current atomic.Pointer[snapshot]
	buildMu sync.Mutex
	builds  atomic.Uint64
	rebuild chan struct{}
	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEmbedder sets the embedder used by SearchText.
func WithEmbedder(emb embedding.Embedder) Option {
	return func(e *Engine) { e.embedder = emb }
}

// WithKeywordIndex enables KeywordSearch.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(e *Engine) { e.keyword = idx }
}

// WithDefaultTopK sets the neighbor count used when a query asks for 0.
func WithDefaultTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.defaultTopK = k
		}
	}
}

// NewEngine creates an engine reading embeddings from source.
func NewEngine(source vector.EmbeddingSource, validator *embedding.Validator, opts ...Option) *Engine {
	if validator == nil {
		validator = embedding.NewValidator(embedding.DefaultDimensions)
	}
	e := &Engine{
		source:      source,
		validator:   validator,
		defaultTopK: models.DefaultTopK,
		logger:      zap.NewNop(),
		rebuild:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = vector.NewBuilder(source, validator, e.logger)
	return e
}

// Search returns the ids of the topK notes nearest to query, closest first. topK 0 selects
// the default. An empty or fully invalid corpus yields an empty result.
func (e *Engine) Search(ctx context.Context, query []float32, topK int) ([]int64, error) {
	hits, err := e.Neighbors(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// Neighbors is Search with distances.
func (e *Engine) Neighbors(ctx context.Context, query []float32, topK int) ([]vector.Neighbor, error) {
	if topK < 0 {
		return nil, apperr.Validation("top_k must not be negative", goerr.V("top_k", topK))
	}
	if topK == 0 {
		topK = e.defaultTopK
	}
	q, err := e.validator.Validate(query)
	if err != nil {
		return nil, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return nil, err
	}
	hits := idx.Search(q, topK)
	if hits == nil {
		hits = []vector.Neighbor{}
	}
	return hits, nil
}

// SearchText embeds text and searches with the result.
func (e *Engine) SearchText(ctx context.Context, text string, topK int) ([]vector.Neighbor, error) {
	if text == "" {
		return nil, apperr.Validation("query text is empty")
	}
	if e.embedder == nil {
		return nil, apperr.Dependency(nil, "no embedder configured")
	}
	q, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to embed query")
	}
	return e.Neighbors(ctx, q, topK)
}

// KeywordSearch runs a full-text query over content, summary and tags.
func (e *Engine) KeywordSearch(ctx context.Context, text string, limit int, opts *keyword.SearchOptions) ([]*keyword.Result, error) {
	q := &models.KeywordQuery{Query: text, Limit: limit}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if e.keyword == nil {
		return nil, apperr.Dependency(nil, "keyword index not configured")
	}
	return e.keyword.Search(ctx, q.Query, q.Limit, opts)
}

// Invalidate drops the cached index. When the worker runs, a rebuild is scheduled.
func (e *Engine) Invalidate() {
	e.current.Store(nil)
	if !e.running.Load() {
		return
	}
	select {
	case e.rebuild <- struct{}{}:
	default:
	}
}

// Warm builds the index now if the cached one is missing or stale.
func (e *Engine) Warm(ctx context.Context) error {
	_, err := e.index(ctx)
	return err
}

// Start runs the background rebuild worker until ctx is done.
func (e *Engine) Start(ctx context.Context) {
	e.running.Store(true)
	go func() {
		defer e.running.Store(false)
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.rebuild:
				if err := e.Warm(ctx); err != nil && ctx.Err() == nil {
					e.logger.Warn("background index rebuild failed", zap.Error(err))
				}
			}
		}
	}()
}

// IndexInfo describes the cached index.
type IndexInfo struct {
	Cached     bool      `json:"cached"`
	Size       int       `json:"size"`
	Dimensions int       `json:"dimensions"`
	Generation uint64    `json:"generation"`
	BuildID    string    `json:"build_id,omitempty"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
	Builds     uint64    `json:"builds"`
}

// IndexInfo reports the cached snapshot without triggering a build.
func (e *Engine) IndexInfo() IndexInfo {
	info := IndexInfo{Dimensions: e.validator.Dimensions(), Builds: e.builds.Load()}
	s := e.current.Load()
	if s == nil {
		return info
	}
	info.Cached = true
	info.Size = s.index.Size()
	info.Generation = s.generation
	info.BuildID = s.index.BuildID()
	info.BuiltAt = s.index.BuiltAt()
	return info
}

// index returns an index matching the current store generation, building one if needed.
// Concurrent callers share a single build.
func (e *Engine) index(ctx context.Context) (*vector.FlatIndex, error) {
	gen, err := e.source.Generation(ctx)
	if err != nil {
		return nil, err
	}
	if s := e.current.Load(); s != nil && s.generation == gen {
		return s.index, nil
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if s := e.current.Load(); s != nil && s.generation == gen {
		return s.index, nil
	}

	start := time.Now()
	idx, built, err := e.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	e.builds.Add(1)
	e.current.Store(&snapshot{generation: built, index: idx})
	e.logger.Debug("vector index ready",
		zap.Int("size", idx.Size()),
		zap.Uint64("generation", built),
		zap.Duration("took", time.Since(start)))
	return idx, nil
}
