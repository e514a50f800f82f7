package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/memoro/internal/models"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestFilterLexical(t *testing.T) {
	notes := []*models.Note{
		{ID: 1, Summary: "Weekly Planning", Tags: []string{"work"}},
		{ID: 2, Summary: "groceries", Tags: []string{"Home", "shopping"}},
		{ID: 3, Summary: "", Tags: []string{"planning-poker"}},
		{ID: 4, Content: "planning only in content"},
	}

	got := FilterLexical(notes, "PLANNING")
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	assert.Len(t, FilterLexical(notes, "home"), 1)
	assert.Len(t, FilterLexical(notes, "  "), 4)
	assert.Empty(t, FilterLexical(notes, "nothing"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", Snippet("a\n b\t c", 0))
	assert.Equal(t, "héll...", Snippet("héllo world", 4))
	assert.Equal(t, "short", Snippet("short", 10))
}
