package vector

import "fmt"

// New creates an empty index of the given type.
func New(indexType string, dimensions int) (Index, error) {
	switch indexType {
	case TypeHNSW:
		return NewHNSWIndex(dimensions), nil
	case TypeFlat:
		return NewFlatIndex(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown index type %q", indexType)
	}
}

// Deserialize restores an index of the given type from Serialize output.
func Deserialize(indexType string, data []byte) (Index, error) {
	switch indexType {
	case TypeHNSW:
		return DeserializeHNSW(data)
	case TypeFlat:
		return DeserializeFlat(data)
	default:
		return nil, fmt.Errorf("unknown index type %q", indexType)
	}
}
