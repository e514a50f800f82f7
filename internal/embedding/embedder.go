// Package embedding provides text embedding providers and the validator that decides which
// vectors may enter the note index.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultDimensions is the embedding width produced by all-MiniLM-L6-v2.
const DefaultDimensions = 384

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ErrDisabled is returned by the disabled embedder.
var ErrDisabled = errors.New("embedding provider disabled")

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string // onnx, gemini, mock, none
	Dimensions int
	ModelPath  string
	MaxTokens  int
	CacheSize  int
	Gemini     GeminiConfig
}

// New builds the embedder named by opts.Provider. An ONNX model that cannot be loaded
// degrades to the disabled embedder so notes are still stored, without embeddings.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	switch opts.Provider {
	case "onnx", "":
		emb, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			logger.Warn("onnx embedder unavailable, notes will be stored without embeddings",
				zap.String("model", opts.ModelPath), zap.Error(err))
			return NewDisabledEmbedder(opts.Dimensions), nil
		}
		return emb, nil
	case "gemini":
		g := opts.Gemini
		if g.Dimensions == 0 {
			g.Dimensions = opts.Dimensions
		}
		emb, err := NewGeminiEmbedder(ctx, g)
		if err != nil {
			return nil, err
		}
		return WithCache(emb, opts.CacheSize), nil
	case "mock":
		return NewMockEmbedder(opts.Dimensions), nil
	case "none":
		return NewDisabledEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

// DisabledEmbedder fails every request with ErrDisabled.
type DisabledEmbedder struct {
	dimensions int
}

// NewDisabledEmbedder returns an embedder that never produces vectors.
func NewDisabledEmbedder(dimensions int) *DisabledEmbedder {
	return &DisabledEmbedder{dimensions: dimensions}
}

func (e *DisabledEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

func (e *DisabledEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrDisabled
}

func (e *DisabledEmbedder) Dimensions() int { return e.dimensions }

func (e *DisabledEmbedder) Close() error { return nil }

// embedEach runs embed for every text in order and stops at the first error.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
