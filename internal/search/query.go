package search

import (
	"context"
	"time"

	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/vector"
)

// NoteLookup loads notes by id, in the order given.
type NoteLookup interface {
	GetMany(ctx context.Context, ids []int64) ([]*models.Note, error)
}

// Query runs a semantic search request and attaches the matching notes. Ranking is by
// distance only; q.Filter narrows the ranked list afterwards.
func (e *Engine) Query(ctx context.Context, q *models.SearchQuery, notes NoteLookup) (*models.SearchResponse, error) {
	if q.TopK == 0 {
		q.TopK = e.defaultTopK
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		hits []vector.Neighbor
		err  error
	)
	if len(q.Vector) > 0 {
		hits, err = e.Neighbors(ctx, q.Vector, q.TopK)
	} else {
		hits, err = e.SearchText(ctx, q.Query, q.TopK)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	loaded, err := notes.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Note, len(loaded))
	for _, n := range loaded {
		n.Embedding = nil
		byID[n.ID] = n
	}

	kept := FilterLexical(loaded, q.Filter)
	keep := make(map[int64]bool, len(kept))
	for _, n := range kept {
		keep[n.ID] = true
	}

	resp := &models.SearchResponse{
		Query:    q.Query,
		IDs:      []int64{},
		Hits:     []*models.SearchHit{},
		Filtered: q.Filter != "",
	}
	for _, h := range hits {
		n, ok := byID[h.ID]
		if !ok || !keep[h.ID] {
			continue
		}
		resp.IDs = append(resp.IDs, h.ID)
		resp.Hits = append(resp.Hits, &models.SearchHit{
			Rank:     len(resp.Hits) + 1,
			NoteID:   h.ID,
			Distance: h.Distance,
			Note:     n,
		})
	}
	resp.Total = len(resp.Hits)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// QueryKeyword runs a full-text request and attaches the matching notes.
func (e *Engine) QueryKeyword(ctx context.Context, q *models.KeywordQuery, opts *keyword.SearchOptions, notes NoteLookup) (*models.SearchResponse, error) {
	start := time.Now()
	results, err := e.KeywordSearch(ctx, q.Query, q.Limit, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(results))
	scores := make(map[int64]float64, len(results))
	for i, r := range results {
		ids[i] = r.NoteID
		scores[r.NoteID] = r.Score
	}
	loaded, err := notes.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	resp := &models.SearchResponse{Query: q.Query, IDs: []int64{}, Hits: []*models.SearchHit{}}
	for _, n := range loaded {
		n.Embedding = nil
		resp.IDs = append(resp.IDs, n.ID)
		resp.Hits = append(resp.Hits, &models.SearchHit{
			Rank:   len(resp.Hits) + 1,
			NoteID: n.ID,
			Score:  scores[n.ID],
			Note:   n,
		})
	}
	resp.Total = len(resp.Hits)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}
