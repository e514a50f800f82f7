// Package storage persists notes and their embeddings.
package storage

import (
	"context"

	"github.com/hyperjump/memoro/internal/models"
)

// NoteStore is the durable record of notes. Every mutating operation is atomic.
type NoteStore interface {
	Create(ctx context.Context, in models.NoteInput) (int64, error)
	Get(ctx context.Context, id int64) (*models.Note, error)
	// GetMany returns the notes for ids in the given order, skipping unknown ids.
	GetMany(ctx context.Context, ids []int64) ([]*models.Note, error)
	Update(ctx context.Context, id int64, upd models.NoteUpdate) error
	Delete(ctx context.Context, id int64) error

	// List returns all notes newest first (timestamp DESC, id DESC), without embeddings.
	List(ctx context.Context) ([]*models.Note, error)
	ListGroupedByDay(ctx context.Context) ([]models.DayGroup, error)

	// AllValidEmbeddings returns every stored embedding that passes validation, by ascending id.
	AllValidEmbeddings(ctx context.Context) ([]models.EmbeddingRecord, error)
	SetEmbedding(ctx context.Context, id int64, vec []float32) error
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*models.Note, error)
	// Generation changes whenever the set of valid embeddings may have changed.
	Generation(ctx context.Context) (uint64, error)

	Stats(ctx context.Context) (*models.StoreStats, error)
	Close() error
}

// CaptureLedger remembers which file versions were already captured as notes.
type CaptureLedger interface {
	IsCaptured(ctx context.Context, fingerprint string) (bool, error)
	MarkCaptured(ctx context.Context, fingerprint, path string, noteID int64) error
}
