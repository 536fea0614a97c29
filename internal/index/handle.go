// Package index provides the in-memory, query-ready form of a processed
// document: its chunks, a vector index, and a keyword index built at load time.
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

// Handle is a fully materialized document index. Chunks keep their original
// order; the keyword index is memory-only and rebuilt on every load.
type Handle struct {
	docID     string
	chunks    []models.Chunk
	chunkByID map[string]*models.Chunk
	vectors   vector.Index
	keyword   bleve.Index
}

// Match is a chunk with its fused retrieval score.
type Match struct {
	Chunk *models.Chunk
	Score float32
}

// NewHandle builds a handle from ordered chunks and a loaded vector index.
// The keyword index is built here from chunk content.
func NewHandle(docID string, chunks []models.Chunk, vectors vector.Index) (*Handle, error) {
	im := bleve.NewIndexMapping()
	fieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so exact words match.
	fieldMapping.Analyzer = standard.Name
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", fieldMapping)
	im.DefaultMapping = docMapping

	kw, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}

	h := &Handle{
		docID:     docID,
		chunks:    chunks,
		chunkByID: make(map[string]*models.Chunk, len(chunks)),
		vectors:   vectors,
		keyword:   kw,
	}
	batch := kw.NewBatch()
	for i := range chunks {
		c := &h.chunks[i]
		h.chunkByID[c.ID] = c
		if err := batch.Index(c.ID, map[string]string{"content": c.Content}); err != nil {
			kw.Close()
			return nil, fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}
	if err := kw.Batch(batch); err != nil {
		kw.Close()
		return nil, fmt.Errorf("commit keyword batch: %w", err)
	}
	return h, nil
}

// DocumentID returns the owning document ID.
func (h *Handle) DocumentID() string {
	return h.docID
}

// Chunks returns the chunks in original order.
func (h *Handle) Chunks() []models.Chunk {
	return h.chunks
}

// ChunkCount returns the number of chunks.
func (h *Handle) ChunkCount() int {
	return len(h.chunks)
}

// Chunk returns the chunk with the given ID, or nil.
func (h *Handle) Chunk(id string) *models.Chunk {
	return h.chunkByID[id]
}

// Search runs hybrid retrieval: vector similarity fused with keyword match
// scores. Weights control the blend; either may be zero.
func (h *Handle) Search(ctx context.Context, queryText string, queryVec []float32, topK int, keywordWeight, semanticWeight float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	scores := make(map[string]float32)

	if semanticWeight > 0 && queryVec != nil {
		vecResults, err := h.vectors.Search(queryVec, topK*2)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		for _, r := range vecResults {
			scores[r.ID] += float32(semanticWeight) * r.Score
		}
	}

	if keywordWeight > 0 && queryText != "" {
		kwScores, err := h.keywordScores(ctx, queryText, topK*2)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		for id, s := range kwScores {
			scores[id] += float32(keywordWeight) * s
		}
	}

	matches := make([]Match, 0, len(scores))
	for id, score := range scores {
		chunk, ok := h.chunkByID[id]
		if !ok {
			continue
		}
		matches = append(matches, Match{Chunk: chunk, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// keywordScores runs a match query and returns max-normalized scores so
// keyword and vector scores live on comparable scales.
func (h *Handle) keywordScores(ctx context.Context, queryText string, limit int) (map[string]float32, error) {
	q := bleve.NewMatchQuery(queryText)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := h.keyword.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	maxScore := res.Hits[0].Score
	for _, hit := range res.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	out := make(map[string]float32, len(res.Hits))
	for _, hit := range res.Hits {
		if maxScore > 0 {
			out[hit.ID] = float32(hit.Score / maxScore)
		}
	}
	return out, nil
}

// Close releases the keyword and vector indexes. Safe to call once.
func (h *Handle) Close() error {
	var firstErr error
	if h.keyword != nil {
		if err := h.keyword.Close(); err != nil {
			firstErr = err
		}
		h.keyword = nil
	}
	if h.vectors != nil {
		if err := h.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		h.vectors = nil
	}
	return firstErr
}
