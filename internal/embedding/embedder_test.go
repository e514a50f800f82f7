package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	a, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 384)

	var norm float64
	for _, x := range a {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)

	_, err = NewValidator(384).Validate(a)
	assert.NoError(t, err)
}

func TestMockEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	base, _ := e.Embed(ctx, "grocery list milk eggs")
	near, _ := e.Embed(ctx, "grocery list milk bread")
	far, _ := e.Embed(ctx, "quarterly tax filing deadline")
	assert.Less(t, sqDist(base, near), sqDist(base, far))
}

func sqDist(a, b []float32) float32 {
	var d float32
	for i := range a {
		x := a[i] - b[i]
		d += x * x
	}
	return d
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, Options{Provider: "mock", Dimensions: 16}, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())

	e, err = New(ctx, Options{Provider: "none"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, e.Dimensions())
	_, err = e.Embed(ctx, "x")
	assert.True(t, errors.Is(err, ErrDisabled))

	// A missing model degrades to the disabled embedder.
	e, err = New(ctx, Options{Provider: "onnx", ModelPath: "/nonexistent/model.onnx"}, nil)
	require.NoError(t, err)
	_, err = e.Embed(ctx, "x")
	assert.True(t, errors.Is(err, ErrDisabled))

	_, err = New(ctx, Options{Provider: "bogus"}, nil)
	assert.Error(t, err)
}

func TestEmbedBatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEmbedder(4).EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
}
