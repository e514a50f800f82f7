// Package cli formats memoro command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/search"
)

// OutputFormat selects how commands print results.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetRunes = 200

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes ranked results to w in the given format.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "Found %d results in %dms", resp.Total, resp.QueryTime)
	if resp.Filtered {
		fmt.Fprint(w, " (filtered)")
	}
	fmt.Fprintln(w)
	for _, h := range resp.Hits {
		fmt.Fprintln(w, strings.Repeat("─", 57))
		if h.Score != 0 {
			fmt.Fprintf(w, "#%d  note %d  score %.4f\n", h.Rank, h.NoteID, h.Score)
		} else {
			fmt.Fprintf(w, "#%d  note %d  distance %.4f\n", h.Rank, h.NoteID, h.Distance)
		}
		if h.Note != nil {
			writeNoteBody(w, h.Note)
		}
	}
	return nil
}

// WriteNote writes a single note in full.
func WriteNote(w io.Writer, n *models.Note, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, n)
	}
	fmt.Fprintf(w, "Note %d  %s\n", n.ID, n.Timestamp)
	if n.Summary != "" {
		fmt.Fprintf(w, "Summary: %s\n", n.Summary)
	}
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(n.Tags, ", "))
	}
	embedded := "no"
	if n.HasEmbedding() {
		embedded = fmt.Sprintf("yes (%d dims)", len(n.Embedding))
	}
	fmt.Fprintf(w, "Embedding: %s\n\n%s\n", embedded, n.Content)
	return nil
}

// WriteNotes writes a list of notes, one short entry each.
func WriteNotes(w io.Writer, notes []*models.Note, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintf(w, "[%d] %s\n", n.ID, n.Timestamp)
		writeNoteBody(w, n)
	}
	return nil
}

// WriteDays writes notes grouped by day under a date heading.
func WriteDays(w io.Writer, days []models.DayGroup, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, days)
	}
	if len(days) == 0 {
		fmt.Fprintln(w, "No notes.")
		return nil
	}
	for _, d := range days {
		fmt.Fprintf(w, "== %s (%d) ==\n", d.Date, len(d.Notes))
		for _, n := range d.Notes {
			fmt.Fprintf(w, "[%d] %s\n", n.ID, search.Snippet(n.Content, snippetRunes))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeNoteBody(w io.Writer, n *models.Note) {
	if n.Summary != "" {
		fmt.Fprintf(w, "  summary: %s\n", n.Summary)
	}
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Fprintf(w, "  %s\n\n", search.Snippet(n.Content, snippetRunes))
}
