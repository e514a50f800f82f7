// Package main is the memoro CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/cli"
	"github.com/hyperjump/memoro/internal/config"
	"github.com/hyperjump/memoro/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/memoro/config.yaml"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	output     string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "memoro",
		Short: "memoro - capture notes, enrich them and find them again by meaning",
		Long: `memoro stores short notes in SQLite, derives a summary and tags with an LLM,
embeds them locally or through Gemini and answers nearest-neighbor queries over the embeddings.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&opts.dbPath, "database", "", "note database path (overrides config)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServerCmd(opts),
		newAddCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newReembedCmd(opts),
		newImportCmd(opts),
		newStatusCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "memoro version %s\n", version)
			return nil
		},
	}
}

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists, built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := config.LoadEnv(".env"); err != nil {
				return nil, "", err
			}
			config.ApplyEnv(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// session is what a command needs: resolved config, logger, output format and components.
type session struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	format     cli.OutputFormat
	comp       *Components
}

func (s *session) Close() {
	if s.comp != nil {
		s.comp.Close()
	}
	_ = s.logger.Sync()
}

// openSession loads config, builds the logger and initializes components. server selects the
// server logger instead of the quiet CLI logger.
func openSession(ctx context.Context, opts *rootOptions, server bool) (*session, error) {
	format, err := cli.ParseFormat(opts.output)
	if err != nil {
		return nil, err
	}
	cfg, resolved, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Storage.DatabasePath = opts.dbPath
	}
	debug := cfg.Debug || opts.debug
	var logger *zap.Logger
	if server {
		logger, err = utils.NewLogger(debug)
	} else {
		logger, err = utils.NewCLILogger(debug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	comp, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return &session{cfg: cfg, configPath: resolved, logger: logger, format: format, comp: comp}, nil
}
