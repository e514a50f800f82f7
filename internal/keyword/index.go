// Package keyword provides full-text search over note content, summaries and tags.
package keyword

import (
	"context"

	"github.com/hyperjump/memoro/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means exact term matching.
type SearchOptions struct {
	// Fuzzy enables typo-tolerant matching.
	Fuzzy bool
	// Fuzziness is the maximum edit distance per term (1 or 2). Defaults to 1.
	Fuzziness int
}

// Index defines keyword indexing and search over notes.
type Index interface {
	Index(ctx context.Context, note *models.Note) error
	Rebuild(ctx context.Context, notes []*models.Note) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id int64) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	NoteID int64
	Score  float64
}
