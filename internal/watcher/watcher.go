// Package watcher turns files dropped into inbox directories into notes.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before it is captured.
const DefaultDebounce = 500 * time.Millisecond

// CaptureFunc is called once per settled file.
type CaptureFunc func(ctx context.Context, path string) error

// Watcher watches inbox directories (non-recursively) and captures new or changed files.
type Watcher struct {
	dirs       []string
	extensions []string
	debounce   time.Duration
	capture    CaptureFunc
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithExtensions restricts capture to files with one of exts (with or without the dot). Empty means all.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithDebounce sets the quiet period before a file is captured.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher returns a watcher over dirs that hands settled files to capture.
func NewWatcher(dirs []string, capture CaptureFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:     append([]string(nil), dirs...),
		debounce: DefaultDebounce,
		capture:  capture,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates missing inbox directories, begins watching them and returns. Events are processed
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for i, dir := range w.dirs {
		abs, err := filepath.Abs(dir)
		if err == nil {
			err = os.MkdirAll(abs, 0o755)
		}
		if err == nil {
			err = fsw.Add(abs)
		}
		if err != nil {
			_ = fsw.Close()
			return err
		}
		w.dirs[i] = abs
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(w.ctx, fsw)
	w.logger.Info("inbox watcher started", zap.Strings("dirs", w.dirs), zap.Strings("extensions", w.extensions))
	return nil
}

// Scan captures every matching file already present in the inbox directories. On a started
// watcher, Stop cancels the scan and waits for it to return.
func (w *Watcher) Scan(ctx context.Context) int {
	if wctx, ok := w.track(); ok {
		defer w.wg.Done()
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		defer context.AfterFunc(wctx, cancel)()
	}
	n := 0
	for _, dir := range w.Directories() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("inbox scan failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return n
			}
			path := filepath.Join(dir, e.Name())
			if !e.Type().IsRegular() || !w.matches(path) {
				continue
			}
			w.captureNow(ctx, path)
			n++
		}
	}
	return n
}

// Directories returns the watched directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// Stop cancels pending captures, closes the fsnotify watcher and waits for the event loop, a running
// Scan and any capture already in progress to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.cancel()
	_ = w.fsw.Close()
	w.fsw = nil
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.matches(ev.Name) {
		return
	}
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.schedule(ev.Name)
}

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	ctx := w.ctx
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.fsw == nil || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		w.captureNow(ctx, path)
	})
}

// track registers work that Stop must wait for. It returns the watcher context, or false when
// the watcher is not running.
func (w *Watcher) track() (context.Context, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil, false
	}
	w.wg.Add(1)
	return w.ctx, true
}

func (w *Watcher) captureNow(ctx context.Context, path string) {
	if err := w.capture(ctx, path); err != nil {
		w.logger.Warn("inbox capture failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) matches(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return MatchExtension(path, w.extensions)
}

// MatchExtension reports whether path has one of extensions, ignoring case and a leading dot.
// An empty list matches every path.
func MatchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
