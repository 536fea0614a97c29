// Package vector provides in-memory vector indexes with binary
// serialization, used as the semantic half of document retrieval.
package vector

// Result is a single nearest-neighbor match.
type Result struct {
	ID    string
	Score float32
}

// Index is a searchable collection of embeddings keyed by string ID.
// Implementations must serialize to a self-describing byte format that
// Deserialize can restore.
type Index interface {
	Add(id string, embedding []float32) error
	Search(query []float32, topK int) ([]Result, error)
	Size() int
	Dimensions() int
	Serialize() ([]byte, error)
	Close() error
}

// Index type names accepted by New and recorded in artifact manifests.
const (
	TypeFlat = "flat"
	TypeHNSW = "hnsw"
)
