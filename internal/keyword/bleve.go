package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/memoro/internal/models"
)

// Field boosts: a term in a tag says more about a note than a term in its body.
const (
	contentBoost = 1.0
	summaryBoost = 1.5
	tagsBoost    = 2.0
)

// BleveIndex implements Index using Bleve. Documents are keyed by the decimal note id.
type BleveIndex struct {
	index bleve.Index
}

type noteDoc struct {
	Content string `json:"content"`
	Summary string `json:"summary"`
	Tags    string `json:"tags"`
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so "meeting" does not match "meet".
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("summary", text)
	docMapping.AddFieldMappingsAt("tags", text)
	im.AddDocumentMapping("note", docMapping)
	im.DefaultType = "note"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index in memory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces a note.
func (b *BleveIndex) Index(ctx context.Context, note *models.Note) error {
	return b.index.Index(docID(note.ID), toDoc(note))
}

// Rebuild indexes every note in one batch. Existing entries with the same id are replaced.
func (b *BleveIndex) Rebuild(ctx context.Context, notes []*models.Note) error {
	batch := b.index.NewBatch()
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(docID(n.ID), toDoc(n)); err != nil {
			return fmt.Errorf("batch index note %d: %w", n.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a boosted match over content, summary and tags and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	fuzzy, fuzziness := false, 1
	if opts != nil {
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	fields := []struct {
		name  string
		boost float64
	}{{"content", contentBoost}, {"summary", summaryBoost}, {"tags", tagsBoost}}

	var qs []blevequery.Query
	for _, f := range fields {
		if fuzzy {
			for _, term := range tokenizeQuery(query) {
				fq := bleve.NewFuzzyQuery(term)
				fq.SetFuzziness(fuzziness)
				fq.SetField(f.name)
				fq.SetBoost(f.boost)
				qs = append(qs, fq)
			}
			continue
		}
		mq := bleve.NewMatchQuery(query)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		qs = append(qs, mq)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &Result{NoteID: id, Score: hit.Score})
	}
	return out, nil
}

// Delete removes a note from the index.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(docID(id))
}

// DocCount returns the total number of indexed notes.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toDoc(n *models.Note) noteDoc {
	return noteDoc{
		Content: n.Content,
		Summary: n.Summary,
		Tags:    strings.Join(n.Tags, " "),
	}
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
