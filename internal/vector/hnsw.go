package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/coder/hnsw"

	"github.com/Techways-AI/sme-panel-staging-sub001/pkg/utils"
)

// HNSWIndex is an approximate nearest-neighbor index backed by a pure-Go
// HNSW graph. Chunk IDs are mapped to uint64 graph keys; the mapping is
// serialized alongside the graph.
type HNSWIndex struct {
	graph      *hnsw.Graph[uint64]
	dimensions int
	idMap      map[string]uint64
	keyMap     map[uint64]string
	nextKey    uint64
}

// hnswMeta is the gob-encoded header stored before the exported graph.
type hnswMeta struct {
	Dimensions int
	IDMap      map[string]uint64
	NextKey    uint64
}

// NewHNSWIndex creates an empty HNSW index with cosine distance.
func NewHNSWIndex(dimensions int) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &HNSWIndex{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
	}
}

// Add inserts a vector under the given ID. Re-adding an existing ID orphans
// the old graph node instead of deleting it; deleting nodes can break the
// coder/hnsw graph.
func (idx *HNSWIndex) Add(id string, embedding []float32) error {
	if len(embedding) != idx.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(embedding), idx.dimensions)
	}
	if oldKey, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, oldKey)
		delete(idx.idMap, id)
	}
	key := idx.nextKey
	idx.nextKey++

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	utils.NormalizeL2(vec)

	idx.graph.Add(hnsw.MakeNode(key, vec))
	idx.idMap[id] = key
	idx.keyMap[key] = id
	return nil
}

// Search returns up to topK matches by cosine similarity, highest first.
// Orphaned graph nodes are skipped.
func (idx *HNSWIndex) Search(query []float32, topK int) ([]Result, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimensions)
	}
	if topK <= 0 || idx.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	// Over-fetch to compensate for orphaned nodes.
	nodes := idx.graph.Search(q, topK+idx.graph.Len()-len(idx.idMap))
	results := make([]Result, 0, topK)
	for _, node := range nodes {
		id, ok := idx.keyMap[node.Key]
		if !ok {
			continue
		}
		// Cosine distance is 0..2; map to a 0..1 similarity.
		dist := idx.graph.Distance(q, node.Value)
		results = append(results, Result{ID: id, Score: 1.0 - dist/2.0})
		if len(results) == topK {
			break
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// Size returns the number of live IDs.
func (idx *HNSWIndex) Size() int {
	return len(idx.idMap)
}

// Dimensions returns the vector dimension.
func (idx *HNSWIndex) Dimensions() int {
	return idx.dimensions
}

// Serialize writes a length-prefixed gob header (dimensions and ID mapping)
// followed by the exported graph.
func (idx *HNSWIndex) Serialize() ([]byte, error) {
	var meta bytes.Buffer
	enc := gob.NewEncoder(&meta)
	if err := enc.Encode(hnswMeta{
		Dimensions: idx.dimensions,
		IDMap:      idx.idMap,
		NextKey:    idx.nextKey,
	}); err != nil {
		return nil, fmt.Errorf("encode hnsw metadata: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(meta.Len())); err != nil {
		return nil, fmt.Errorf("write metadata length: %w", err)
	}
	buf.Write(meta.Bytes())
	if err := idx.graph.Export(&buf); err != nil {
		return nil, fmt.Errorf("export hnsw graph: %w", err)
	}
	return buf.Bytes(), nil
}

// Close is a no-op for HNSWIndex.
func (idx *HNSWIndex) Close() error {
	return nil
}

// DeserializeHNSW restores an HNSWIndex from Serialize output.
func DeserializeHNSW(data []byte) (*HNSWIndex, error) {
	r := bytes.NewReader(data)
	var metaLen uint32
	if err := binary.Read(r, binary.LittleEndian, &metaLen); err != nil {
		return nil, fmt.Errorf("read metadata length: %w", err)
	}
	metaBytes := make([]byte, metaLen)
	if _, err := r.Read(metaBytes); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta hnswMeta
	if err := gob.NewDecoder(bytes.NewReader(metaBytes)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode hnsw metadata: %w", err)
	}

	idx := NewHNSWIndex(meta.Dimensions)
	// Import requires a buffered reader.
	if err := idx.graph.Import(bufio.NewReader(r)); err != nil {
		return nil, fmt.Errorf("import hnsw graph: %w", err)
	}
	idx.idMap = meta.IDMap
	idx.nextKey = meta.NextKey
	for id, key := range meta.IDMap {
		idx.keyMap[key] = id
	}
	return idx, nil
}
