package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/memoro/internal/cli"
	"github.com/hyperjump/memoro/internal/search"
	"github.com/hyperjump/memoro/internal/storage"
)

type statusResponse struct {
	Version          string           `json:"version"`
	ConfigPath       string           `json:"config_path,omitempty"`
	DatabasePath     string           `json:"database_path"`
	KeywordIndexPath string           `json:"keyword_index_path"`
	SchemaVersion    int              `json:"schema_version"`
	Notes            int64            `json:"notes"`
	WithEmbedding    int64            `json:"with_embedding"`
	KeywordDocs      uint64           `json:"keyword_docs"`
	EmbeddingModel   string           `json:"embedding_provider"`
	EnrichProvider   string           `json:"enrich_provider"`
	Index            search.IndexInfo `json:"index"`
	DiskUsageBytes   int64            `json:"disk_usage_bytes"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show note counts, index state and storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			comp, cfg := s.comp, s.cfg

			stats, err := comp.Store.Stats(ctx)
			if err != nil {
				return err
			}
			schema, err := comp.Store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			docs, err := comp.Keyword.DocCount()
			if err != nil {
				return err
			}
			if err := comp.Engine.Warm(ctx); err != nil {
				return err
			}
			paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.KeywordIndexPath)
			disk, err := storage.DiskUsageBytes(paths...)
			if err != nil {
				return err
			}
			st := statusResponse{
				Version:          version,
				ConfigPath:       s.configPath,
				DatabasePath:     cfg.Storage.DatabasePath,
				KeywordIndexPath: cfg.Storage.KeywordIndexPath,
				SchemaVersion:    schema,
				Notes:            stats.Notes,
				WithEmbedding:    stats.WithEmbedding,
				KeywordDocs:      docs,
				EmbeddingModel:   cfg.Embedding.Provider,
				EnrichProvider:   cfg.Enrich.Provider,
				Index:            comp.Engine.IndexInfo(),
				DiskUsageBytes:   disk,
			}
			if s.format == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "memoro %s\n", st.Version)
			if st.ConfigPath != "" {
				fmt.Fprintf(w, "Config:         %s\n", st.ConfigPath)
			}
			fmt.Fprintf(w, "Database:       %s (schema v%d)\n", st.DatabasePath, st.SchemaVersion)
			fmt.Fprintf(w, "Keyword index:  %s (%d docs)\n", st.KeywordIndexPath, st.KeywordDocs)
			fmt.Fprintf(w, "Notes:          %d (%d with embedding)\n", st.Notes, st.WithEmbedding)
			fmt.Fprintf(w, "Vector index:   %d vectors, %d dims, generation %d\n",
				st.Index.Size, st.Index.Dimensions, st.Index.Generation)
			fmt.Fprintf(w, "Providers:      embedding=%s enrich=%s\n", st.EmbeddingModel, st.EnrichProvider)
			fmt.Fprintf(w, "Disk usage:     %s\n", formatSize(st.DiskUsageBytes))
			return nil
		},
	}
}

func formatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
