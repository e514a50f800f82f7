// Package vector builds and queries the exact nearest-neighbor index over note embeddings.
package vector

import (
	"cmp"
	"slices"
	"time"
)

// Neighbor is one search hit: the note id, its row in the index, and the squared L2 distance.
type Neighbor struct {
	ID       int64   `json:"id"`
	Row      int     `json:"-"`
	Distance float32 `json:"distance"`
}

// FlatIndex is an immutable brute-force index using squared Euclidean distance. Row i of
// the matrix belongs to ids[i]. A nil *FlatIndex is the empty index and answers every
// query with no results.
type FlatIndex struct {
	dims       int
	data       []float32
	ids        []int64
	generation uint64
	buildID    string
	builtAt    time.Time
}

// Size returns the number of indexed vectors.
func (x *FlatIndex) Size() int {
	if x == nil {
		return 0
	}
	return len(x.ids)
}

// Dimensions returns the vector width, or 0 for the empty index.
func (x *FlatIndex) Dimensions() int {
	if x == nil {
		return 0
	}
	return x.dims
}

// Generation is the store generation the index was built from.
func (x *FlatIndex) Generation() uint64 {
	if x == nil {
		return 0
	}
	return x.generation
}

// BuildID identifies one build for logs and status output.
func (x *FlatIndex) BuildID() string {
	if x == nil {
		return ""
	}
	return x.buildID
}

// BuiltAt is when the build finished.
func (x *FlatIndex) BuiltAt() time.Time {
	if x == nil {
		return time.Time{}
	}
	return x.builtAt
}

// Search returns up to k nearest rows to query, closest first. Equal distances are ordered
// by ascending row. The query must have the index dimensionality.
func (x *FlatIndex) Search(query []float32, k int) []Neighbor {
	n := x.Size()
	if n == 0 || k <= 0 || len(query) != x.dims {
		return nil
	}
	hits := make([]Neighbor, n)
	for row := 0; row < n; row++ {
		hits[row] = Neighbor{Row: row, Distance: SquaredL2(query, x.row(row))}
	}
	slices.SortFunc(hits, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})
	if k > n {
		k = n
	}
	out := hits[:k:k]
	// Rows beyond the id table are dropped rather than mapped.
	kept := out[:0]
	for _, h := range out {
		if h.Row < 0 || h.Row >= len(x.ids) {
			continue
		}
		h.ID = x.ids[h.Row]
		kept = append(kept, h)
	}
	return kept
}

func (x *FlatIndex) row(i int) []float32 {
	return x.data[i*x.dims : (i+1)*x.dims]
}

// SquaredL2 returns the squared Euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
