// Package artifact persists and recovers the durable form of a document
// index: a manifest, the chunk texts, and the serialized vector index,
// stored under a per-document prefix in the blob store.
package artifact

import (
	"time"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// ManifestVersion is written into every manifest; readers reject other versions.
const ManifestVersion = 1

// Manifest describes one persisted index and is the first file checked
// during recovery.
type Manifest struct {
	Version      int       `json:"version"`
	DocumentID   string    `json:"document_id"`
	Title        string    `json:"title"`
	ChunkCount   int       `json:"chunk_count"`
	Dimensions   int       `json:"dimensions"`
	IndexType    string    `json:"index_type"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	CreatedAt    time.Time `json:"created_at"`
}

// Set is a complete artifact for one document, ready to write or just parsed.
type Set struct {
	Manifest Manifest
	Chunks   []models.Chunk
	// VectorData is the serialized vector index (vectors.bin).
	VectorData []byte
}

// Prefix returns the blob key prefix for a document's artifact files.
func Prefix(docID string) string {
	return "indexes/" + docID + "/"
}

// Key returns the blob key of one artifact file for a document.
func Key(docID, file string) string {
	return Prefix(docID) + file
}

// EssentialFiles are the files an artifact must have to be recoverable.
func EssentialFiles() []string {
	return []string{config.FileManifest, config.FileChunks, config.FileVectors}
}
