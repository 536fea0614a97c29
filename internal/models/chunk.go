package models

// Chunk is an ordered fragment of a document's extracted text, the unit of
// embedding and retrieval. Chunk IDs are deterministic for a given document
// and configuration so that reprocessing is reproducible.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
}
