package artifact

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
)

// Writer persists artifact sets to the blob store.
type Writer struct {
	store  blob.Store
	logger *zap.Logger
}

// NewWriter creates an artifact writer. logger may be nil.
func NewWriter(store blob.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// Write persists all files of the set. Files are written with the manifest
// last so that a manifest's presence implies the rest were already uploaded.
func (w *Writer) Write(ctx context.Context, set *Set) error {
	docID := set.Manifest.DocumentID

	chunksJSON, err := json.Marshal(set.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(set.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{config.FileChunks, chunksJSON},
		{config.FileVectors, set.VectorData},
		{config.FileManifest, manifestJSON},
	}
	for _, f := range files {
		if err := w.store.Put(ctx, Key(docID, f.name), f.data); err != nil {
			return fmt.Errorf("put %s: %w", f.name, err)
		}
	}
	w.logger.Info("artifact written",
		zap.String("document_id", docID),
		zap.Int("chunks", set.Manifest.ChunkCount))
	return nil
}

// Remove deletes every object under the document's artifact prefix,
// including partial leftovers from failed runs.
func (w *Writer) Remove(ctx context.Context, docID string) error {
	objects, err := w.store.List(ctx, Prefix(docID))
	if err != nil {
		return fmt.Errorf("list artifact objects: %w", err)
	}
	for _, obj := range objects {
		if err := w.store.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("delete %s: %w", obj.Key, err)
		}
	}
	if len(objects) > 0 {
		w.logger.Info("artifact removed",
			zap.String("document_id", docID),
			zap.Int("objects", len(objects)))
	}
	return nil
}
