// Package registry caches query-ready document handles. Each document is
// built at most once at a time no matter how many callers ask for it, and
// invalidation waits out any in-flight build so a stale handle cannot be
// published after its document changed.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/index"
)

// Builder loads the handle for a document, typically artifact recovery.
type Builder func(ctx context.Context, docID string) (*index.Handle, error)

// Registry is the handle cache. Build failures are never cached; the next
// caller triggers a fresh attempt.
type Registry struct {
	builder Builder
	logger  *zap.Logger
	now     func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	entries  entryStore
	inflight map[string]chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithMaxEntries bounds the cache; least recently used handles are evicted
// and closed. Zero or negative leaves the cache unbounded.
func WithMaxEntries(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.entries = newLRUStore(n, func(id string, e *entry) {
				if err := e.handle.Close(); err != nil {
					r.logger.Warn("close evicted handle", zap.String("document_id", id), zap.Error(err))
				}
				r.logger.Debug("handle evicted", zap.String("document_id", id))
			})
		}
	}
}

// New creates a registry around the given builder.
func New(builder Builder, opts ...Option) *Registry {
	r := &Registry{
		builder:  builder,
		logger:   zap.NewNop(),
		now:      time.Now,
		entries:  newMapStore(),
		inflight: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrBuild returns the cached handle for docID, building it if absent.
// Concurrent callers for the same document share one build; distinct
// documents build in parallel.
func (r *Registry) GetOrBuild(ctx context.Context, docID string) (*index.Handle, error) {
	r.mu.Lock()
	if e, ok := r.entries.Get(docID); ok {
		r.mu.Unlock()
		return e.handle, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(docID, func() (interface{}, error) {
		r.mu.Lock()
		// Another flight may have finished between the fast path and here.
		if e, ok := r.entries.Get(docID); ok {
			r.mu.Unlock()
			return e.handle, nil
		}
		done := make(chan struct{})
		r.inflight[docID] = done
		r.mu.Unlock()

		defer func() {
			r.mu.Lock()
			delete(r.inflight, docID)
			r.mu.Unlock()
			close(done)
		}()

		start := r.now()
		handle, err := r.builder(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("build handle for %s: %w", docID, err)
		}
		r.mu.Lock()
		r.entries.Add(docID, &entry{handle: handle, loadedAt: r.now()})
		r.mu.Unlock()
		r.logger.Info("handle loaded",
			zap.String("document_id", docID),
			zap.Int("chunks", handle.ChunkCount()),
			zap.Duration("took", r.now().Sub(start)))
		return handle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Handle), nil
}

// Invalidate removes the cached handle for docID, waiting for any build in
// flight so a stale handle cannot land in the cache afterwards.
func (r *Registry) Invalidate(ctx context.Context, docID string) error {
	for {
		r.mu.Lock()
		done, building := r.inflight[docID]
		r.mu.Unlock()
		if !building {
			break
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	e, ok := r.entries.Remove(docID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := e.handle.Close(); err != nil {
		return fmt.Errorf("close handle for %s: %w", docID, err)
	}
	r.logger.Debug("handle invalidated", zap.String("document_id", docID))
	return nil
}

// Cached reports whether a handle for docID is currently cached.
func (r *Registry) Cached(docID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries.Get(docID)
	return ok
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Close invalidates every cached handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	keys := r.entries.Keys()
	var entries []*entry
	for _, id := range keys {
		if e, ok := r.entries.Remove(id); ok {
			entries = append(entries, e)
		}
	}
	r.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		if err := e.handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
