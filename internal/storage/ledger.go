package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/memoro/internal/models"
)

// IsCaptured reports whether a file version was already turned into a note.
func (s *SQLiteStore) IsCaptured(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM captured_files WHERE fingerprint = ?`, fingerprint).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query capture ledger: %w", err)
	}
	return n > 0, nil
}

// MarkCaptured records that a file version produced noteID.
func (s *SQLiteStore) MarkCaptured(ctx context.Context, fingerprint, path string, noteID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO captured_files (fingerprint, path, note_id, captured_at) VALUES (?, ?, ?, ?)`,
		fingerprint, path, noteID, s.now().UTC().Format(models.TimestampLayout))
	if err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	return nil
}
