// Package pipeline turns uploaded documents into persisted index artifacts.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// Chunker splits text into overlapping word-based chunks. Chunk IDs are
// derived from the document ID and position, so re-chunking the same text
// with the same settings reproduces the same IDs.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into chunks with overlapping windows.
func (c *Chunker) Chunk(docID, text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []models.Chunk
	chunkIndex := 0
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.Chunk{
			ID:         ChunkID(docID, chunkIndex),
			DocumentID: docID,
			Content:    strings.Join(words[i:end], " "),
			ChunkIndex: chunkIndex,
		})
		chunkIndex++
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// ChunkID returns the deterministic ID of the chunk at position index.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_c%04d", docID, index)
}
