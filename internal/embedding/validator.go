package embedding

import (
	"encoding/json"
	"math"

	"github.com/m-mizutani/goerr/v2"

	"github.com/hyperjump/memoro/internal/apperr"
)

// Validator decides whether a vector is eligible for indexing. The same instance is used
// when a note is written and when the index is built.
type Validator struct {
	dims int
}

// NewValidator returns a validator for vectors of exactly dims components.
func NewValidator(dims int) *Validator {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Validator{dims: dims}
}

// Dimensions returns the required vector length.
func (v *Validator) Dimensions() int { return v.dims }

// Validate checks length and finiteness and returns a private copy of vec.
func (v *Validator) Validate(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, apperr.Validation("embedding is empty")
	}
	if len(vec) != v.dims {
		return nil, apperr.Validation("embedding has wrong dimensionality",
			goerr.V("got", len(vec)), goerr.V("want", v.dims))
	}
	out := make([]float32, len(vec))
	for i, x := range vec {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, apperr.Validation("embedding has non-finite component", goerr.V("index", i))
		}
		out[i] = x
	}
	return out, nil
}

// ValidateRaw accepts a decoded JSON value and converts it to a validated float32 vector.
// Non-numeric elements and values outside the float32 range are rejected.
func (v *Validator) ValidateRaw(raw any) ([]float32, error) {
	switch vals := raw.(type) {
	case nil:
		return nil, apperr.Validation("embedding is missing")
	case []float32:
		return v.Validate(vals)
	case []float64:
		return v.fromFloat64(vals)
	case []any:
		if len(vals) != v.dims {
			return nil, apperr.Validation("embedding has wrong dimensionality",
				goerr.V("got", len(vals)), goerr.V("want", v.dims))
		}
		fs := make([]float64, len(vals))
		for i, e := range vals {
			switch n := e.(type) {
			case float64:
				fs[i] = n
			case float32:
				fs[i] = float64(n)
			case int:
				fs[i] = float64(n)
			case int64:
				fs[i] = float64(n)
			case json.Number:
				f, err := n.Float64()
				if err != nil {
					return nil, apperr.Validation("embedding component is not a number", goerr.V("index", i))
				}
				fs[i] = f
			default:
				return nil, apperr.Validation("embedding component is not a number",
					goerr.V("index", i), goerr.V("value", e))
			}
		}
		return v.fromFloat64(fs)
	default:
		return nil, apperr.Validation("embedding is not a list of numbers")
	}
}

// Decode parses a stored JSON array and validates it.
func (v *Validator) Decode(data string) ([]float32, error) {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, apperr.Validation("embedding is not valid JSON", goerr.V("error", err.Error()))
	}
	return v.ValidateRaw(raw)
}

// Encode renders a vector in the stored JSON array form.
func Encode(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (v *Validator) fromFloat64(vals []float64) ([]float32, error) {
	if len(vals) == 0 {
		return nil, apperr.Validation("embedding is empty")
	}
	if len(vals) != v.dims {
		return nil, apperr.Validation("embedding has wrong dimensionality",
			goerr.V("got", len(vals)), goerr.V("want", v.dims))
	}
	out := make([]float32, len(vals))
	for i, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, apperr.Validation("embedding has non-finite component", goerr.V("index", i))
		}
		if math.Abs(f) > math.MaxFloat32 {
			return nil, apperr.Validation("embedding component overflows float32", goerr.V("index", i))
		}
		out[i] = float32(f)
	}
	return out, nil
}
