// Package watcher imports verse datasets dropped into a local folder.
//
// A dropped file is named <corpus>__<name>.csv or <corpus>__<name>.xlsx.
// After upload it is moved to imported/, or to failed/ when the upload is
// rejected.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const (
	importedDir = "imported"
	failedDir   = "failed"
	separator   = "__"

	defaultSettle = 500 * time.Millisecond
)

var dropMimeTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type Option func(*Watcher)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSettle sets how long a file must stay unchanged before it is imported.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

type Watcher struct {
	dir      string
	ingestor ports.DatasetIngestor
	logger   *slog.Logger
	settle   time.Duration
}

func New(dir string, ingestor ports.DatasetIngestor, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("drop dir is empty")
	}
	for _, sub := range []string{"", importedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create drop dir: %w", err)
		}
	}
	w := &Watcher{
		dir:      dir,
		ingestor: ingestor,
		logger:   slog.Default(),
		settle:   defaultSettle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run imports files already present, then watches for new ones until ctx is
// done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch drop dir: %w", err)
	}
	w.logger.Info("drop_watcher_started", "dir", w.dir)

	if err := w.ScanOnce(ctx); err != nil {
		return err
	}

	ready := make(chan string, 16)
	settle := newDebouncer(w.settle, func(path string) {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	defer settle.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, _, ok := ParseDropName(filepath.Base(event.Name)); !ok {
				continue
			}
			settle.touch(event.Name)
		case path := <-ready:
			w.importFile(ctx, path)
			settle.done(path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("drop_watcher_error", "error", err)
		}
	}
}

// ScanOnce imports every droppable file currently in the folder.
func (w *Watcher) ScanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read drop dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := ParseDropName(entry.Name()); !ok {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		w.importFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	base := filepath.Base(path)
	corpus, filename, ok := ParseDropName(base)
	if !ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		// Already moved or removed.
		w.logger.Debug("drop_file_skipped", "path", path, "error", err)
		return
	}
	dataset, err := w.ingestor.Upload(ctx, corpus, filename, dropMimeTypes[strings.ToLower(filepath.Ext(filename))], f)
	f.Close()

	target := importedDir
	if err != nil {
		target = failedDir
		w.logger.Error("drop_import_failed", "file", base, "corpus", corpus, "error", err)
	} else {
		w.logger.Info("drop_imported", "file", base, "corpus", corpus, "dataset_id", dataset.ID)
	}
	if err := os.Rename(path, filepath.Join(w.dir, target, base)); err != nil {
		w.logger.Warn("drop_file_move_failed", "file", base, "error", err)
	}
}

// ParseDropName splits "<corpus>__<name>.<ext>" into the corpus id and the
// dataset filename.
func ParseDropName(base string) (corpus, filename string, ok bool) {
	if strings.HasPrefix(base, ".") {
		return "", "", false
	}
	if _, known := dropMimeTypes[strings.ToLower(filepath.Ext(base))]; !known {
		return "", "", false
	}
	corpus, filename, found := strings.Cut(base, separator)
	corpus = strings.ToLower(strings.TrimSpace(corpus))
	if !found || corpus == "" || strings.TrimSpace(strings.TrimSuffix(filename, filepath.Ext(filename))) == "" {
		return "", "", false
	}
	return corpus, filename, true
}

// debouncer fires once per path after the path has been quiet for the
// settle delay. Events for a path already handed to fire are ignored until
// done is called for it.
type debouncer struct {
	mu     sync.Mutex
	settle time.Duration
	fire   func(path string)
	timers map[string]*time.Timer
	queued map[string]bool
}

func newDebouncer(settle time.Duration, fire func(path string)) *debouncer {
	return &debouncer{
		settle: settle,
		fire:   fire,
		timers: make(map[string]*time.Timer),
		queued: make(map[string]bool),
	}
}

func (d *debouncer) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queued[path] {
		return
	}
	if timer, ok := d.timers[path]; ok {
		timer.Reset(d.settle)
		return
	}
	d.timers[path] = time.AfterFunc(d.settle, func() {
		d.mu.Lock()
		if d.queued[path] {
			d.mu.Unlock()
			return
		}
		d.queued[path] = true
		d.mu.Unlock()
		d.fire(path)
	})
}

func (d *debouncer) done(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.timers[path]; ok {
		timer.Stop()
		delete(d.timers, path)
	}
	delete(d.queued, path)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
