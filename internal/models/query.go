package models

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/hyperjump/memoro/internal/apperr"
)

const (
	// DefaultTopK is the number of neighbors returned when a query does not set one.
	DefaultTopK = 5
	// DefaultKeywordLimit and MaxKeywordLimit bound keyword search results.
	DefaultKeywordLimit = 10
	MaxKeywordLimit     = 100
)

// SearchQuery is a semantic search request. Exactly one of Query or Vector is used;
// Vector wins when both are set.
type SearchQuery struct {
	Query  string    `json:"query,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	TopK   int       `json:"top_k,omitempty"`
	// Filter keeps only hits whose summary or tags contain it (case-insensitive).
	Filter string `json:"filter,omitempty"`
}

// Validate checks the query and fills in the default top-k.
func (q *SearchQuery) Validate() error {
	if q.Query == "" && len(q.Vector) == 0 {
		return apperr.Validation("query cannot be empty")
	}
	if q.TopK < 0 {
		return apperr.Validation("top_k must not be negative", goerr.V("top_k", q.TopK))
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	return nil
}

// KeywordQuery is a full-text search request over content, summary and tags.
type KeywordQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks the query and applies the default and maximum limit.
func (q *KeywordQuery) Validate() error {
	if q.Query == "" {
		return apperr.Validation("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultKeywordLimit
	}
	if q.Limit > MaxKeywordLimit {
		q.Limit = MaxKeywordLimit
	}
	return nil
}
