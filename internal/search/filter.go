package search

import (
	"strings"

	"github.com/hyperjump/memoro/internal/models"
)

// FilterLexical keeps notes whose summary or any tag contains term, ignoring case. Rank order
// is preserved. An empty term keeps everything.
func FilterLexical(notes []*models.Note, term string) []*models.Note {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return notes
	}
	out := make([]*models.Note, 0, len(notes))
	for _, n := range notes {
		if matchesLexical(n, term) {
			out = append(out, n)
		}
	}
	return out
}

func matchesLexical(n *models.Note, term string) bool {
	if strings.Contains(strings.ToLower(n.Summary), term) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Snippet shortens content to at most maxRunes runes for list output.
func Snippet(content string, maxRunes int) string {
	content = strings.Join(strings.Fields(content), " ")
	r := []rune(content)
	if maxRunes <= 0 || len(r) <= maxRunes {
		return content
	}
	return string(r[:maxRunes]) + "..."
}
