package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/artifact"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/embedding"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/extract"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

// Options carries pipeline tuning knobs.
type Options struct {
	IndexType    string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Pipeline processes one document end to end: fetch the source blob,
// extract text, chunk, embed, build the vector index, persist the artifact,
// and flip the document status. Overlapping runs for the same document are
// coalesced: the later request folds into one rerun after the current one.
type Pipeline struct {
	docs      docstore.Store
	blobs     blob.Store
	extractor *extract.Extractor
	embedder  embedding.Embedder
	writer    *artifact.Writer
	local     *artifact.LocalCache
	registry  *registry.Registry
	opts      Options
	logger    *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

// New creates a pipeline. local may be nil; logger may be nil.
func New(docs docstore.Store, blobs blob.Store, extractor *extract.Extractor,
	embedder embedding.Embedder, writer *artifact.Writer, local *artifact.LocalCache,
	reg *registry.Registry, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	return &Pipeline{
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		writer:    writer,
		local:     local,
		registry:  reg,
		opts:      opts,
		logger:    logger,
		running:   make(map[string]bool),
	}
}

// Process runs the pipeline for docID. If a run for the same document is
// already in flight, the request is absorbed into a single rerun after the
// current run finishes and Process returns nil immediately.
func (p *Pipeline) Process(ctx context.Context, docID string) error {
	p.mu.Lock()
	if _, active := p.running[docID]; active {
		p.running[docID] = true
		p.mu.Unlock()
		p.logger.Debug("processing coalesced", zap.String("document_id", docID))
		return nil
	}
	p.running[docID] = false
	p.mu.Unlock()

	for {
		err := p.runOnce(ctx, docID)

		p.mu.Lock()
		rerun := p.running[docID]
		if rerun {
			p.running[docID] = false
			p.mu.Unlock()
			continue
		}
		delete(p.running, docID)
		p.mu.Unlock()
		return err
	}
}

func (p *Pipeline) runOnce(ctx context.Context, docID string) error {
	start := time.Now()
	doc, err := p.docs.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if err := p.docs.SetStatus(ctx, docID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	set, err := p.build(ctx, doc)
	if err != nil {
		p.fail(ctx, docID, err)
		return err
	}

	if err := p.writer.Write(ctx, set); err != nil {
		p.fail(ctx, docID, err)
		return err
	}
	if p.local != nil {
		if err := p.local.Write(set); err != nil {
			p.logger.Warn("local artifact write failed",
				zap.String("document_id", docID), zap.Error(err))
		}
	}

	if err := p.docs.SetStatus(ctx, docID, models.StatusProcessed, ""); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	// Drop any handle built from the previous artifact.
	if err := p.registry.Invalidate(ctx, docID); err != nil {
		p.logger.Warn("invalidate after processing failed",
			zap.String("document_id", docID), zap.Error(err))
	}

	p.logger.Info("document processed",
		zap.String("document_id", docID),
		zap.Int("chunks", set.Manifest.ChunkCount),
		zap.Duration("took", time.Since(start)))
	return nil
}

// build produces the artifact set for a document.
func (p *Pipeline) build(ctx context.Context, doc *models.Document) (*artifact.Set, error) {
	content, err := p.blobs.Get(ctx, doc.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("fetch source %s: %w", doc.SourceKey, err)
	}

	text, err := p.extractor.Extract(content, filepath.Ext(doc.SourceKey))
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	chunkSize, chunkOverlap := doc.ChunkSize, doc.ChunkOverlap
	if chunkSize <= 0 {
		chunkSize = p.opts.ChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = p.opts.ChunkOverlap
	}
	chunks := NewChunker(chunkSize, chunkOverlap).Chunk(doc.ID, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no extractable content in %s", doc.SourceKey)
	}

	if err := p.embed(ctx, chunks); err != nil {
		return nil, err
	}

	vecIndex, err := vector.New(p.opts.IndexType, p.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	defer vecIndex.Close()
	for i := range chunks {
		if err := vecIndex.Add(chunks[i].ID, chunks[i].Embedding); err != nil {
			return nil, fmt.Errorf("add vector for %s: %w", chunks[i].ID, err)
		}
	}
	vecData, err := vecIndex.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize vector index: %w", err)
	}

	return &artifact.Set{
		Manifest: artifact.Manifest{
			Version:      artifact.ManifestVersion,
			DocumentID:   doc.ID,
			Title:        doc.Title,
			ChunkCount:   len(chunks),
			Dimensions:   p.embedder.Dimensions(),
			IndexType:    p.opts.IndexType,
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
			CreatedAt:    time.Now().UTC(),
		},
		Chunks:     chunks,
		VectorData: vecData,
	}, nil
}

// embed fills chunk embeddings in batches.
func (p *Pipeline) embed(ctx context.Context, chunks []models.Chunk) error {
	for i := 0; i < len(chunks); i += p.opts.BatchSize {
		end := i + p.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Content
		}
		embeddings, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", i, end-1, err)
		}
		for j := i; j < end; j++ {
			chunks[j].Embedding = embeddings[j-i]
		}
	}
	return nil
}

// fail records the failure and clears any partially written artifact so a
// later recovery cannot see a half-index.
func (p *Pipeline) fail(ctx context.Context, docID string, cause error) {
	if err := p.writer.Remove(ctx, docID); err != nil {
		p.logger.Warn("partial artifact cleanup failed",
			zap.String("document_id", docID), zap.Error(err))
	}
	if p.local != nil {
		if err := p.local.Remove(docID); err != nil {
			p.logger.Warn("local artifact cleanup failed",
				zap.String("document_id", docID), zap.Error(err))
		}
	}
	if err := p.docs.SetStatus(ctx, docID, models.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("mark failed", zap.String("document_id", docID), zap.Error(err))
	}
	p.logger.Warn("document processing failed",
		zap.String("document_id", docID), zap.Error(cause))
}
