package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// FlatIndex is a brute-force index that scans every vector on search.
// Exact and simple; fine for per-document indexes of a few thousand chunks.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
}

// NewFlatIndex creates an empty flat index for vectors of the given dimension.
func NewFlatIndex(dimensions int) *FlatIndex {
	return &FlatIndex{dimensions: dimensions}
}

// Add appends a vector. IDs are not deduplicated; callers add each chunk once.
func (idx *FlatIndex) Add(id string, embedding []float32) error {
	if len(embedding) != idx.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(embedding), idx.dimensions)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vec)
	return nil
}

// Search returns the topK entries by cosine similarity, highest first.
func (idx *FlatIndex) Search(query []float32, topK int) ([]Result, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimensions)
	}
	if topK <= 0 || len(idx.ids) == 0 {
		return nil, nil
	}
	results := make([]Result, 0, len(idx.ids))
	for i, vec := range idx.vectors {
		results = append(results, Result{ID: idx.ids[i], Score: cosineSimilarity(query, vec)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Size returns the number of stored vectors.
func (idx *FlatIndex) Size() int {
	return len(idx.ids)
}

// Dimensions returns the vector dimension.
func (idx *FlatIndex) Dimensions() int {
	return idx.dimensions
}

// Serialize writes the index as little-endian binary:
// dimensions uint32, count uint32, then per entry idLen uint32, id bytes, vector float32s.
func (idx *FlatIndex) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(idx.dimensions)); err != nil {
		return nil, fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(idx.ids))); err != nil {
		return nil, fmt.Errorf("write count: %w", err)
	}
	for i, id := range idx.ids {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(id))); err != nil {
			return nil, fmt.Errorf("write id length: %w", err)
		}
		buf.WriteString(id)
		if err := binary.Write(&buf, binary.LittleEndian, idx.vectors[i]); err != nil {
			return nil, fmt.Errorf("write vector: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Close is a no-op for FlatIndex.
func (idx *FlatIndex) Close() error {
	return nil
}

// DeserializeFlat restores a FlatIndex from Serialize output.
func DeserializeFlat(data []byte) (*FlatIndex, error) {
	buf := bytes.NewReader(data)
	var dimensions, count uint32
	if err := binary.Read(buf, binary.LittleEndian, &dimensions); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	idx := NewFlatIndex(int(dimensions))
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(buf, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read id length: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := buf.Read(idBytes); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		vec := make([]float32, dimensions)
		if err := binary.Read(buf, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		idx.ids = append(idx.ids, string(idBytes))
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
