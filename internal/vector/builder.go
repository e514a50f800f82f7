package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/models"
)

// EmbeddingSource is the part of the note store the builder reads.
type EmbeddingSource interface {
	Generation(ctx context.Context) (uint64, error)
	AllValidEmbeddings(ctx context.Context) ([]models.EmbeddingRecord, error)
}

// Builder turns the stored embeddings into a FlatIndex.
type Builder struct {
	source    EmbeddingSource
	validator *embedding.Validator
	logger    *zap.Logger
}

// NewBuilder returns a builder reading from source and re-checking vectors with validator.
func NewBuilder(source EmbeddingSource, validator *embedding.Validator, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = embedding.NewValidator(embedding.DefaultDimensions)
	}
	return &Builder{source: source, validator: validator, logger: logger}
}

// Build reads the generation, then every valid embedding, and returns the index for that
// generation. It returns a nil index when no vector survives. The generation is read first
// so a concurrent write can only make the result look older than it is.
func (b *Builder) Build(ctx context.Context) (*FlatIndex, uint64, error) {
	gen, err := b.source.Generation(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read generation: %w", err)
	}
	recs, err := b.source.AllValidEmbeddings(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load embeddings: %w", err)
	}
	if len(recs) == 0 {
		return nil, gen, nil
	}

	dims := b.validator.Dimensions()
	data := make([]float32, 0, len(recs)*dims)
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		vec, err := b.validator.Validate(rec.Vector)
		if err != nil {
			b.logger.Warn("skipping embedding during index build",
				zap.Int64("note_id", rec.NoteID), zap.Error(err))
			continue
		}
		data = append(data, vec...)
		ids = append(ids, rec.NoteID)
	}
	if len(ids) == 0 {
		return nil, gen, nil
	}

	idx := &FlatIndex{
		dims:       dims,
		data:       data,
		ids:        ids,
		generation: gen,
		buildID:    uuid.NewString(),
		builtAt:    time.Now().UTC(),
	}
	b.logger.Debug("built vector index",
		zap.String("build_id", idx.buildID),
		zap.Int("vectors", len(ids)),
		zap.Int("skipped", len(recs)-len(ids)),
		zap.Uint64("generation", gen))
	return idx, gen, nil
}
