// Package ingest coordinates the document lifecycle: upload, background
// processing, status polling, reprocessing, and deletion.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/artifact"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/fileid"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/pipeline"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
)

// UploadRequest describes a new document submission.
type UploadRequest struct {
	Title        string
	Filename     string
	Content      []byte
	Folder       string
	Topic        string
	ChunkSize    int
	ChunkOverlap int
}

// Coordinator owns document lifecycle transitions. Processing runs in the
// background; Status never triggers work, it only reads recorded state.
type Coordinator struct {
	docs     docstore.Store
	blobs    blob.Store
	pipe     *pipeline.Pipeline
	registry *registry.Registry
	writer   *artifact.Writer
	local    *artifact.LocalCache
	logger   *zap.Logger

	wg sync.WaitGroup
}

// New creates a coordinator. local may be nil; logger may be nil.
func New(docs docstore.Store, blobs blob.Store, pipe *pipeline.Pipeline,
	reg *registry.Registry, writer *artifact.Writer, local *artifact.LocalCache,
	logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		docs:     docs,
		blobs:    blobs,
		pipe:     pipe,
		registry: reg,
		writer:   writer,
		local:    local,
		logger:   logger,
	}
}

// Upload stores the source blob, records the document as pending, and
// schedules background processing.
func (c *Coordinator) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("empty upload")
	}
	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.Filename), filepath.Ext(req.Filename))
	}

	id := uuid.New().String()
	sourceKey := "uploads/" + id + strings.ToLower(filepath.Ext(req.Filename))
	if err := c.blobs.Put(ctx, sourceKey, req.Content); err != nil {
		return nil, fmt.Errorf("store source: %w", err)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:           id,
		Title:        title,
		SourceKey:    sourceKey,
		ContentType:  contentTypeFor(req.Filename),
		Status:       models.StatusPending,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
		Folder:       req.Folder,
		Topic:        req.Topic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.docs.Create(ctx, doc); err != nil {
		// Best effort: do not leave an orphaned blob behind.
		if derr := c.blobs.Delete(context.Background(), sourceKey); derr != nil {
			c.logger.Warn("orphaned source cleanup failed",
				zap.String("key", sourceKey), zap.Error(derr))
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	c.Submit(doc.ID)
	c.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("bytes", len(req.Content)))
	return doc, nil
}

// Submit schedules background processing for docID. It never blocks; the
// pipeline coalesces overlapping runs for the same document.
func (c *Coordinator) Submit(docID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Detached from the request context: processing outlives the upload call.
		if err := c.pipe.Process(context.Background(), docID); err != nil {
			c.logger.Warn("background processing failed",
				zap.String("document_id", docID), zap.Error(err))
		}
	}()
}

// Status returns the polling view of a document. It performs no side effects.
func (c *Coordinator) Status(ctx context.Context, docID string) (*models.StatusReport, error) {
	doc, err := c.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	return doc.Report(), nil
}

// Reprocess re-runs the pipeline for an existing document.
func (c *Coordinator) Reprocess(ctx context.Context, docID string) error {
	if _, err := c.docs.Get(ctx, docID); err != nil {
		return err
	}
	c.Submit(docID)
	return nil
}

// Delete removes a document entirely: cached handle, artifacts, source blob,
// and the metadata record.
func (c *Coordinator) Delete(ctx context.Context, docID string) error {
	doc, err := c.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	if err := c.registry.Invalidate(ctx, docID); err != nil {
		return fmt.Errorf("invalidate cached handle: %w", err)
	}
	if err := c.writer.Remove(ctx, docID); err != nil {
		return fmt.Errorf("remove artifacts: %w", err)
	}
	if c.local != nil {
		if err := c.local.Remove(docID); err != nil {
			c.logger.Warn("local artifact removal failed",
				zap.String("document_id", docID), zap.Error(err))
		}
	}
	if err := c.blobs.Delete(ctx, doc.SourceKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("remove source blob: %w", err)
	}
	if err := c.docs.Delete(ctx, docID); err != nil {
		return fmt.Errorf("remove document record: %w", err)
	}
	c.logger.Info("document deleted", zap.String("document_id", docID))
	return nil
}

// IngestFile upserts a watched file as a document with a path-derived ID and
// schedules processing. folder is the watched directory the file came from.
func (c *Coordinator) IngestFile(ctx context.Context, path string, content []byte, folder string) (string, error) {
	docID := fileid.FileDocID(path)
	sourceKey := "uploads/" + docID + strings.ToLower(filepath.Ext(path))
	if err := c.blobs.Put(ctx, sourceKey, content); err != nil {
		return "", fmt.Errorf("store source: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	now := time.Now().UTC()
	existing, err := c.docs.Get(ctx, docID)
	switch {
	case err == nil:
		existing.Title = title
		existing.SourceKey = sourceKey
		existing.Status = models.StatusPending
		existing.Error = ""
		existing.UpdatedAt = now
		if err := c.docs.Update(ctx, existing); err != nil {
			return "", fmt.Errorf("update document: %w", err)
		}
	case errors.Is(err, docstore.ErrNotFound):
		doc := &models.Document{
			ID:          docID,
			Title:       title,
			SourceKey:   sourceKey,
			ContentType: contentTypeFor(path),
			Status:      models.StatusPending,
			Folder:      folder,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := c.docs.Create(ctx, doc); err != nil {
			return "", fmt.Errorf("record document: %w", err)
		}
	default:
		return "", err
	}

	c.Submit(docID)
	return docID, nil
}

// RemoveFile deletes the document derived from a watched file path.
func (c *Coordinator) RemoveFile(ctx context.Context, path string) error {
	docID := fileid.FileDocID(path)
	err := c.Delete(ctx, docID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

// Wait blocks until all background processing started so far has finished.
// Used during shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".odt":
		return "application/vnd.oasis.opendocument.text"
	case ".rtf":
		return "application/rtf"
	case ".md":
		return "text/markdown"
	case ".txt", "":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
