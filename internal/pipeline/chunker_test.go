package pipeline

import (
	"strings"
	"testing"
)

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(5, 2)
	text := "one two three four five six seven eight nine ten"
	chunks := c.Chunk("doc1", text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].Content != "one two three four five" {
		t.Errorf("unexpected first chunk: %q", chunks[0].Content)
	}
	// Overlap: the second chunk starts 3 words in (size 5 - overlap 2).
	if !strings.HasPrefix(chunks[1].Content, "four five") {
		t.Errorf("unexpected second chunk: %q", chunks[1].Content)
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
		if ch.DocumentID != "doc1" {
			t.Errorf("chunk %d has document id %q", i, ch.DocumentID)
		}
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 2)
	if chunks := c.Chunk("doc1", "   \n\t "); chunks != nil {
		t.Errorf("expected nil for whitespace-only text, got %d chunks", len(chunks))
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(4, 1)
	text := "alpha beta gamma delta epsilon zeta eta theta"
	first := c.Chunk("doc1", text)
	second := c.Chunk("doc1", text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ids differ: %q vs %q", i, first[i].ID, second[i].ID)
		}
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d contents differ", i)
		}
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("doc1", 0); got != "doc1_c0000" {
		t.Errorf("ChunkID(doc1, 0) = %q", got)
	}
	if got := ChunkID("doc1", 42); got != "doc1_c0042" {
		t.Errorf("ChunkID(doc1, 42) = %q", got)
	}
}

func TestChunker_OverlapAtLeastOneStep(t *testing.T) {
	// Overlap >= size must still advance.
	c := NewChunker(3, 3)
	chunks := c.Chunk("doc1", "a b c d e")
	if len(chunks) < 2 {
		t.Fatalf("expected progress through text, got %d chunks", len(chunks))
	}
}
