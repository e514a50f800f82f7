package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/scheduler"
	"github.com/hyperjump/memoro/internal/server"
	"github.com/hyperjump/memoro/internal/storage"
	"github.com/hyperjump/memoro/internal/watcher"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API, the inbox watcher and the embedding backfill",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts, !noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch inbox directories")
	return cmd
}

func runServer(ctx context.Context, opts *rootOptions, watch bool) error {
	s, err := openSession(ctx, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()
	cfg, logger, comp := s.cfg, s.logger, s.comp

	comp.Engine.Start(ctx)
	if err := comp.Engine.Warm(ctx); err != nil {
		logger.Warn("initial index build failed", zap.Error(err))
	}

	if watch && len(cfg.Inbox.Directories) > 0 {
		w := watcher.NewWatcher(cfg.Inbox.Directories,
			func(ctx context.Context, path string) error {
				_, err := comp.Notes.CaptureFile(ctx, path)
				return err
			},
			watcher.WithLogger(logger),
			watcher.WithExtensions(cfg.Inbox.Extensions),
			watcher.WithDebounce(cfg.Inbox.Debounce))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go func() {
			n := w.Scan(ctx)
			logger.Info("inbox scan finished", zap.Int("files", n))
		}()
	}

	sched := scheduler.New(comp.Notes, cfg.Embedding.BackfillSchedule, scheduler.WithLogger(logger))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	diskPaths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.KeywordIndexPath)
	srv := server.NewServer(comp.Notes, comp.Engine, comp.Store, comp.Validator, cfg.Server.Addr(),
		server.WithLogger(logger),
		server.WithDiskPaths(diskPaths...),
		server.WithVersion(version))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	}
}
