package artifact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/index"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

// Loader recovers query-ready handles from persisted artifacts. It tries
// recovery strategies in order: the local disk cache first, then the blob
// store. A blob outage aborts recovery immediately instead of being treated
// as a bad artifact; anything else moves on to the next strategy and is
// reported through ExhaustedError when all of them fail.
type Loader struct {
	store  blob.Store
	local  *LocalCache
	logger *zap.Logger
}

// NewLoader creates a loader. local may be nil to disable the disk cache;
// logger may be nil.
func NewLoader(store blob.Store, local *LocalCache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, local: local, logger: logger}
}

type strategy struct {
	name string
	load func(ctx context.Context, docID string) (*Set, error)
}

func (l *Loader) strategies() []strategy {
	var out []strategy
	if l.local != nil {
		out = append(out, strategy{name: "local", load: func(ctx context.Context, docID string) (*Set, error) {
			return l.local.Read(docID)
		}})
	}
	out = append(out, strategy{name: "remote", load: l.fetchRemote})
	return out
}

// Load recovers the artifact set for docID and materializes it as a Handle.
func (l *Loader) Load(ctx context.Context, docID string) (*index.Handle, error) {
	set, err := l.LoadSet(ctx, docID)
	if err != nil {
		return nil, err
	}
	return materialize(set)
}

// LoadSet recovers the raw artifact set without building indexes.
func (l *Loader) LoadSet(ctx context.Context, docID string) (*Set, error) {
	var failures []error
	for _, s := range l.strategies() {
		set, err := s.load(ctx, docID)
		if err == nil {
			l.logger.Debug("artifact recovered",
				zap.String("document_id", docID),
				zap.String("strategy", s.name))
			if s.name == "remote" && l.local != nil {
				if werr := l.local.Write(set); werr != nil {
					l.logger.Warn("local artifact cache write failed",
						zap.String("document_id", docID), zap.Error(werr))
				}
			}
			return set, nil
		}
		if blob.IsUnavailable(err) {
			return nil, fmt.Errorf("blob store unavailable recovering %s: %w", docID, err)
		}
		l.logger.Debug("recovery strategy failed",
			zap.String("document_id", docID),
			zap.String("strategy", s.name),
			zap.Error(err))
		failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
	}
	return nil, &ExhaustedError{DocumentID: docID, Errs: failures}
}

// fetchRemote downloads the essential files from the blob store. A missing
// or empty file is an IncompleteError; an unreachable store aborts via
// UnavailableError.
func (l *Loader) fetchRemote(ctx context.Context, docID string) (*Set, error) {
	raw := make(map[string][]byte, 3)
	var missing []string
	for _, name := range EssentialFiles() {
		data, err := l.store.Get(ctx, Key(docID, name))
		if errors.Is(err, blob.ErrNotFound) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			missing = append(missing, name)
			continue
		}
		raw[name] = data
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{DocumentID: docID, Missing: missing}
	}
	return parseSet(docID, raw)
}

// materialize turns a parsed set into a Handle, deserializing the vector
// index and building the keyword index.
func materialize(set *Set) (*index.Handle, error) {
	docID := set.Manifest.DocumentID
	vecIndex, err := vector.Deserialize(set.Manifest.IndexType, set.VectorData)
	if err != nil {
		return nil, &CorruptError{DocumentID: docID, File: config.FileVectors, Err: err}
	}
	if vecIndex.Size() != set.Manifest.ChunkCount {
		vecIndex.Close()
		return nil, &CorruptError{DocumentID: docID, File: config.FileVectors,
			Err: fmt.Errorf("vector count %d does not match manifest %d", vecIndex.Size(), set.Manifest.ChunkCount)}
	}
	h, err := index.NewHandle(docID, set.Chunks, vecIndex)
	if err != nil {
		vecIndex.Close()
		return nil, fmt.Errorf("build handle for %s: %w", docID, err)
	}
	return h, nil
}
