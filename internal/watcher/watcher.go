// Package watcher feeds files from watched directories into ingestion,
// with fsnotify events debounced per path.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/ingest"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches directories and ingests matching files as documents.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	coordinator *ingest.Coordinator
	logger      *zap.Logger

	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer
	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher over roots. extensions filter which files are
// ingested (empty matches everything); recursive extends the watch to
// subdirectories, including ones created later; logger may be nil.
func New(roots, extensions []string, recursive bool, coordinator *ingest.Coordinator, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		roots:       roots,
		extensions:  extensions,
		recursive:   recursive,
		coordinator: coordinator,
		logger:      logger,
		debounce:    defaultDebounce,
		timers:      make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
}

// Start begins watching. Existing files in the roots are ingested once, then
// the watcher runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	w.mu.Unlock()

	for _, root := range w.roots {
		w.watchTree(ctx, root)
	}

	go w.run(ctx)
	w.logger.Info("watcher started", zap.Strings("roots", w.roots))
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
}

// watchTree registers a watch on root (and its subtree when recursive) and
// ingests files already present, so content that predates the watch is not
// missed.
func (w *Watcher) watchTree(ctx context.Context, root string) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk watch root failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return fs.SkipDir
			}
			if aerr := w.fsw.Add(path); aerr != nil {
				w.logger.Warn("watch directory failed", zap.String("path", path), zap.Error(aerr))
			}
			return nil
		}
		if w.matchExtension(path) {
			w.ingest(ctx, path)
		}
		return nil
	})
	if walkErr != nil {
		w.logger.Warn("walk watch root failed", zap.String("root", root), zap.Error(walkErr))
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// New subdirectories join the watch; files written between the
			// mkdir event and the watch registration are picked up by the sync.
			if w.recursive && ev.Op.Has(fsnotify.Create) {
				w.watchTree(ctx, path)
			}
			return
		}
		if w.matchExtension(path) {
			w.debounceIngest(ctx, path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if w.matchExtension(path) {
			if err := w.coordinator.RemoveFile(ctx, path); err != nil {
				w.logger.Warn("remove watched file failed",
					zap.String("path", path), zap.Error(err))
			}
		}
	}
}

// debounceIngest delays ingestion until writes to the path settle.
func (w *Watcher) debounceIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read watched file failed", zap.String("path", path), zap.Error(err))
		return
	}
	docID, err := w.coordinator.IngestFile(ctx, path, content, filepath.Dir(path))
	if err != nil {
		w.logger.Warn("ingest watched file failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("watched file ingested",
		zap.String("path", path), zap.String("document_id", docID))
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
