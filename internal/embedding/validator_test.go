package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/memoro/internal/apperr"
)

func vec(n int, fill float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(384)

	nan := vec(384, 0.1)
	nan[7] = float32(math.NaN())
	inf := vec(384, 0.1)
	inf[383] = float32(math.Inf(-1))

	tests := []struct {
		name    string
		in      []float32
		wantErr bool
	}{
		{"exact length", vec(384, 0.5), false},
		{"all zeros accepted", vec(384, 0), false},
		{"nil", nil, true},
		{"empty", []float32{}, true},
		{"too short", vec(383, 0.1), true},
		{"too long", vec(385, 0.1), true},
		{"nan", nan, true},
		{"inf", inf, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := v.Validate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsValidation(err))
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestValidator_ValidateReturnsCopy(t *testing.T) {
	v := NewValidator(3)
	in := []float32{1, 2, 3}
	out, err := v.Validate(in)
	require.NoError(t, err)
	in[0] = 99
	assert.Equal(t, float32(1), out[0])
}

func TestValidator_ValidateRaw(t *testing.T) {
	v := NewValidator(3)

	out, err := v.ValidateRaw([]any{1.0, 2.5, -3.0})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3}, out)

	out, err = v.ValidateRaw([]float64{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, out)

	for name, raw := range map[string]any{
		"nil":          nil,
		"string":       "1,2,3",
		"map":          map[string]any{"a": 1.0},
		"non-numeric":  []any{1.0, "x", 3.0},
		"nested":       []any{1.0, []any{2.0}, 3.0},
		"short":        []any{1.0, 2.0},
		"overflow":     []float64{1, math.MaxFloat64, 0},
		"nan float64s": []float64{1, math.NaN(), 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateRaw(raw)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestValidator_DecodeRoundTrip(t *testing.T) {
	v := NewValidator(4)
	in := []float32{0.1, -0.25, 3.5e-7, 1}
	s, err := Encode(in)
	require.NoError(t, err)

	out, err := v.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = v.Decode("not json")
	assert.True(t, apperr.IsValidation(err))
	_, err = v.Decode("[1, 2]")
	assert.True(t, apperr.IsValidation(err))
	_, err = v.Decode("null")
	assert.True(t, apperr.IsValidation(err))
}

func TestNewValidator_DefaultDimensions(t *testing.T) {
	assert.Equal(t, DefaultDimensions, NewValidator(0).Dimensions())
}
