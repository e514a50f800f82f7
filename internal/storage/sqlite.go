package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/models"
)

// SQLiteStore implements NoteStore using SQLite. The pool holds a single connection so
// writes are serialized and in-memory databases are shared by every call.
type SQLiteStore struct {
	db        *sql.DB
	validator *embedding.Validator
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger for skipped rows and rejected vectors.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithValidator sets the embedding validator. Defaults to 384 dimensions.
func WithValidator(v *embedding.Validator) Option {
	return func(s *SQLiteStore) {
		if v != nil {
			s.validator = v
		}
	}
}

// NewSQLiteStore opens or creates the database at dbPath and applies pending migrations.
// Parent directories are created if they do not exist. ":memory:" opens a private database.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := RunMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		validator: embedding.NewValidator(embedding.DefaultDimensions),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a note stamped with the current UTC time. A rejected embedding is logged
// and the note is stored without one.
func (s *SQLiteStore) Create(ctx context.Context, in models.NoteInput) (int64, error) {
	if strings.TrimSpace(in.Content) == "" {
		return 0, apperr.Validation("note content is empty")
	}

	var embJSON sql.NullString
	if len(in.Embedding) > 0 {
		vec, err := s.validator.Validate(in.Embedding)
		if err != nil {
			s.logger.Warn("storing note without embedding", zap.Error(err))
		} else {
			enc, err := embedding.Encode(vec)
			if err != nil {
				return 0, fmt.Errorf("failed to encode embedding: %w", err)
			}
			embJSON = sql.NullString{String: enc, Valid: true}
		}
	}

	ts := s.now().UTC().Format(models.TimestampLayout)
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO notes (content, summary, timestamp, tags, embedding) VALUES (?, ?, ?, ?, ?)`,
			in.Content, in.Summary, ts, models.JoinTags(in.Tags), embJSON,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if embJSON.Valid {
			return bumpGeneration(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create note: %w", err)
	}
	return id, nil
}

// Get returns a note with its embedding. A corrupt stored embedding is logged and omitted.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, summary, timestamp, tags, embedding FROM notes WHERE id = ?`, id)

	var (
		note    models.Note
		summary sql.NullString
		ts      sql.NullString
		tags    sql.NullString
		emb     sql.NullString
	)
	err := row.Scan(&note.ID, &note.Content, &summary, &ts, &tags, &emb)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("note not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	note.Summary = summary.String
	note.Timestamp = ts.String
	note.Tags = models.SplitTags(tags.String)
	if emb.Valid {
		note.Embedding = s.decodeEmbedding(id, emb.String)
	}
	return &note, nil
}

// GetMany returns notes for ids in the given order; unknown ids are skipped.
func (s *SQLiteStore) GetMany(ctx context.Context, ids []int64) ([]*models.Note, error) {
	notes := make([]*models.Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.Get(ctx, id)
		if apperr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Update replaces content, summary and tags. Timestamp and embedding are left untouched.
func (s *SQLiteStore) Update(ctx context.Context, id int64, upd models.NoteUpdate) error {
	if strings.TrimSpace(upd.Content) == "" {
		return apperr.Validation("note content is empty", goerr.V("id", id))
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE notes SET content = ?, summary = ?, tags = ? WHERE id = ?`,
			upd.Content, upd.Summary, models.JoinTags(upd.Tags), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		return requireRow(res, id)
	})
}

// Delete removes a note and invalidates any index built before it.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		if err := requireRow(res, id); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
}

// List returns all notes newest first. Embeddings are not loaded.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.Note, error) {
	return s.queryNotes(ctx,
		`SELECT id, content, summary, timestamp, tags FROM notes ORDER BY timestamp DESC, id DESC`)
}

// ListGroupedByDay groups List by the date prefix of each timestamp. Groups appear in the
// order their date is first seen.
func (s *SQLiteStore) ListGroupedByDay(ctx context.Context) ([]models.DayGroup, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDay(notes), nil
}

// GroupByDay groups notes by date, preserving input order.
func GroupByDay(notes []*models.Note) []models.DayGroup {
	groups := []models.DayGroup{}
	index := make(map[string]int)
	for _, n := range notes {
		d := n.Date()
		i, ok := index[d]
		if !ok {
			i = len(groups)
			index[d] = i
			groups = append(groups, models.DayGroup{Date: d})
		}
		groups[i].Notes = append(groups[i].Notes, n)
	}
	return groups
}

// AllValidEmbeddings returns (id, vector) for every note whose stored embedding passes
// validation, ordered by id. Corrupt rows are logged and skipped.
func (s *SQLiteStore) AllValidEmbeddings(ctx context.Context) ([]models.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM notes WHERE embedding IS NOT NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.EmbeddingRecord
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if vec := s.decodeEmbedding(id, raw); vec != nil {
			out = append(out, models.EmbeddingRecord{NoteID: id, Vector: vec})
		}
	}
	return out, rows.Err()
}

// SetEmbedding replaces the embedding of a note.
func (s *SQLiteStore) SetEmbedding(ctx context.Context, id int64, vec []float32) error {
	valid, err := s.validator.Validate(vec)
	if err != nil {
		return err
	}
	enc, err := embedding.Encode(valid)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE notes SET embedding = ? WHERE id = ?`, enc, id)
		if err != nil {
			return fmt.Errorf("failed to set embedding: %w", err)
		}
		if err := requireRow(res, id); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
}

// ListMissingEmbeddings returns up to limit notes without an embedding, oldest first.
// A non-positive limit returns all of them.
func (s *SQLiteStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*models.Note, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryNotes(ctx,
		`SELECT id, content, summary, timestamp, tags FROM notes
		 WHERE embedding IS NULL ORDER BY id ASC LIMIT ?`, limit)
}

// Generation returns the embedding generation counter.
func (s *SQLiteStore) Generation(ctx context.Context) (uint64, error) {
	var g int64
	if err := s.db.QueryRowContext(ctx, `SELECT generation FROM store_state WHERE id = 1`).Scan(&g); err != nil {
		return 0, fmt.Errorf("failed to read generation: %w", err)
	}
	return uint64(g), nil
}

// Stats counts notes and notes carrying an embedding.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	var st models.StoreStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(embedding) FROM notes`).Scan(&st.Notes, &st.WithEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}
	return &st, nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return SchemaVersion(ctx, s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryNotes(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		var (
			n       models.Note
			summary sql.NullString
			ts      sql.NullString
			tags    sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Content, &summary, &ts, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Summary = summary.String
		n.Timestamp = ts.String
		n.Tags = models.SplitTags(tags.String)
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) decodeEmbedding(id int64, raw string) []float32 {
	vec, err := s.validator.Decode(raw)
	if err != nil {
		s.logger.Warn("skipping stored embedding",
			zap.Int64("note_id", id),
			zap.Error(apperr.Schema(err, "stored embedding rejected", goerr.V("id", id))))
		return nil
	}
	return vec
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func bumpGeneration(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE store_state SET generation = generation + 1 WHERE id = 1`)
	return err
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("note not found", goerr.V("id", id))
	}
	return nil
}
