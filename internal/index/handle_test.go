package index

import (
	"context"
	"testing"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

func buildHandle(t *testing.T) *Handle {
	t.Helper()
	chunks := []models.Chunk{
		{ID: "d1_c0000", DocumentID: "d1", Content: "the mitochondria is the powerhouse of the cell", ChunkIndex: 0},
		{ID: "d1_c0001", DocumentID: "d1", Content: "photosynthesis converts light into chemical energy", ChunkIndex: 1},
		{ID: "d1_c0002", DocumentID: "d1", Content: "osmosis moves water across membranes", ChunkIndex: 2},
	}
	idx := vector.NewFlatIndex(3)
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, c := range chunks {
		if err := idx.Add(c.ID, vecs[i]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	h, err := NewHandle("d1", chunks, idx)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHandle_Accessors(t *testing.T) {
	h := buildHandle(t)
	if h.DocumentID() != "d1" {
		t.Errorf("DocumentID = %q", h.DocumentID())
	}
	if h.ChunkCount() != 3 {
		t.Errorf("ChunkCount = %d", h.ChunkCount())
	}
	if c := h.Chunk("d1_c0001"); c == nil || c.ChunkIndex != 1 {
		t.Errorf("Chunk lookup failed: %+v", c)
	}
	if h.Chunk("missing") != nil {
		t.Error("expected nil for unknown chunk id")
	}
}

func TestHandle_SemanticSearch(t *testing.T) {
	h := buildHandle(t)
	matches, err := h.Search(context.Background(), "", []float32{0.9, 0.1, 0}, 2, 0, 1.0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) == 0 || matches[0].Chunk.ID != "d1_c0000" {
		t.Fatalf("unexpected top match: %+v", matches)
	}
}

func TestHandle_KeywordSearch(t *testing.T) {
	h := buildHandle(t)
	matches, err := h.Search(context.Background(), "photosynthesis light", nil, 2, 1.0, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) == 0 || matches[0].Chunk.ID != "d1_c0001" {
		t.Fatalf("unexpected top match: %+v", matches)
	}
}

func TestHandle_HybridPrefersDoubleHit(t *testing.T) {
	h := buildHandle(t)
	// Chunk 0 gets both a keyword hit and the closest vector.
	matches, err := h.Search(context.Background(), "mitochondria", []float32{1, 0, 0}, 3, 0.5, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) == 0 || matches[0].Chunk.ID != "d1_c0000" {
		t.Fatalf("unexpected top match: %+v", matches)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("matches not sorted by score")
		}
	}
}

func TestHandle_TopKZero(t *testing.T) {
	h := buildHandle(t)
	matches, err := h.Search(context.Background(), "anything", []float32{1, 0, 0}, 0, 0.5, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches != nil {
		t.Errorf("expected nil for topK=0, got %d", len(matches))
	}
}
