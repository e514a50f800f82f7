// Package models defines core data structures for notes, queries, and search results.
package models

// TimestampLayout is the fixed-width UTC layout notes are stamped with. Values in this
// layout sort lexicographically in time order and their first 10 bytes are the ISO date.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Note is a captured note with its derived metadata.
type Note struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	Timestamp string    `json:"timestamp"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the note carries a validated embedding.
func (n *Note) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// Date returns the calendar date prefix of the note timestamp.
func (n *Note) Date() string {
	if len(n.Timestamp) < 10 {
		return n.Timestamp
	}
	return n.Timestamp[:10]
}

// NoteInput is the input for creating a note.
type NoteInput struct {
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// NoteUpdate carries the mutable fields of a note. Timestamp and embedding are not part of it.
type NoteUpdate struct {
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// DayGroup holds the notes created on one calendar date.
type DayGroup struct {
	Date  string  `json:"date"`
	Notes []*Note `json:"notes"`
}

// EmbeddingRecord pairs a note id with its validated vector.
type EmbeddingRecord struct {
	NoteID int64
	Vector []float32
}

// StoreStats summarizes the store contents.
type StoreStats struct {
	Notes         int64 `json:"notes"`
	WithEmbedding int64 `json:"with_embedding"`
}
