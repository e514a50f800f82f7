package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/memoro/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	note := &models.Note{ID: 12, Content: "Call Omnisyan about the Bayes report", Summary: "phone call"}
	if err := idx.Index(ctx, note); err != nil {
		t.Fatalf("Index: %v", err)
	}

	for _, q := range []string{"Omnisyan", "bayes"} {
		results, err := idx.Search(ctx, q, 10, nil)
		if err != nil {
			t.Fatalf("Search %q: %v", q, err)
		}
		if len(results) == 0 || results[0].NoteID != 12 {
			t.Errorf("Search %q = %+v, want note 12", q, results)
		}
	}
}

func TestBleveIndex_TagsOutrankContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, &models.Note{ID: 1, Content: "we talked about gardening once"})
	_ = idx.Index(ctx, &models.Note{ID: 2, Content: "seed order", Tags: []string{"gardening"}})

	results, err := idx.Search(ctx, "gardening", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].NoteID != 2 {
		t.Errorf("tagged note should rank first, got %+v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, &models.Note{ID: 5, Content: "dentist appointment tuesday"})

	results, _ := idx.Search(ctx, "dentsit", 10, nil)
	if len(results) != 0 {
		t.Errorf("exact search should miss a typo, got %+v", results)
	}
	results, err := idx.Search(ctx, "dentsit", 10, &SearchOptions{Fuzzy: true, Fuzziness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].NoteID != 5 {
		t.Errorf("fuzzy search = %+v, want note 5", results)
	}
}

func TestBleveIndex_DeleteAndRebuild(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	notes := []*models.Note{
		{ID: 1, Content: "alpha"},
		{ID: 2, Content: "beta"},
		{ID: 3, Content: "gamma"},
	}
	if err := idx.Rebuild(ctx, notes); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 3 {
		t.Errorf("DocCount = %d, want 3", n)
	}
	if err := idx.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}
	results, _ := idx.Search(ctx, "beta", 10, nil)
	if len(results) != 0 {
		t.Errorf("deleted note still found: %+v", results)
	}
}

func TestBleveIndex_ReopenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.Index(context.Background(), &models.Note{ID: 9, Content: "persisted"})
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "persisted", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].NoteID != 9 {
		t.Errorf("results after reopen = %+v", results)
	}
}
