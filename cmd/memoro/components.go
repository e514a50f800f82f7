package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/config"
	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/enrich"
	"github.com/hyperjump/memoro/internal/extract"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/notes"
	"github.com/hyperjump/memoro/internal/search"
	"github.com/hyperjump/memoro/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Store     *storage.SQLiteStore
	Validator *embedding.Validator
	Embedder  embedding.Embedder
	Enricher  enrich.Enricher
	Keyword   *keyword.BleveIndex
	Engine    *search.Engine
	Notes     *notes.Service
}

// Close releases the keyword index, the embedder and the database.
func (c *Components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Validator: embedding.NewValidator(cfg.Embedding.Dimensions)}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if err := ensureParentDir(cfg.Storage.DatabasePath); err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath,
		storage.WithLogger(logger), storage.WithValidator(c.Validator))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Store = store

	c.Embedder, err = embedding.New(ctx, cfg.Embedding.Options(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if got := c.Embedder.Dimensions(); got != cfg.Embedding.Dimensions {
		logger.Warn("embedder width differs from configured dimensions; its vectors will be rejected",
			zap.Int("embedder", got), zap.Int("configured", cfg.Embedding.Dimensions))
	}

	c.Enricher, err = enrich.New(ctx, cfg.Enrich.Options(), logger)
	if err != nil {
		logger.Warn("enrichment unavailable, captured notes get no summary or tags", zap.Error(err))
		c.Enricher = enrich.Disabled{}
	}

	if err := ensureParentDir(cfg.Storage.KeywordIndexPath); err != nil {
		return nil, err
	}
	c.Keyword, err = keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	c.Engine = search.NewEngine(store, c.Validator,
		search.WithLogger(logger),
		search.WithEmbedder(c.Embedder),
		search.WithKeywordIndex(c.Keyword),
		search.WithDefaultTopK(cfg.Search.DefaultTopK))

	c.Notes = notes.NewService(store,
		notes.WithLogger(logger),
		notes.WithEmbedder(c.Embedder),
		notes.WithEnricher(c.Enricher),
		notes.WithKeywordIndex(c.Keyword),
		notes.WithInvalidator(c.Engine),
		notes.WithExtractor(extract.NewExtractor(0)),
		notes.WithLedger(store),
		notes.WithAutoEmbed(cfg.Embedding.AutoEmbedOrDefault()))

	if err := syncKeywordIndex(ctx, c, logger); err != nil {
		return nil, err
	}
	ok = true
	return c, nil
}

// syncKeywordIndex repopulates the keyword index when it is out of step with the store, e.g. after
// the index directory was removed.
func syncKeywordIndex(ctx context.Context, c *Components, logger *zap.Logger) error {
	stats, err := c.Store.Stats(ctx)
	if err != nil {
		return err
	}
	docs, err := c.Keyword.DocCount()
	if err != nil {
		return err
	}
	if int64(docs) == stats.Notes {
		return nil
	}
	logger.Info("rebuilding keyword index", zap.Uint64("indexed", docs), zap.Int64("notes", stats.Notes))
	return c.Notes.RebuildKeywordIndex(ctx)
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return nil
}
