// Package fileid provides a deterministic document ID from a file path for watched files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// FileDocID returns a stable document ID for the given absolute path.
// The same path always yields the same ID, so a re-ingested watched file
// replaces its earlier index instead of creating a duplicate.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:16])
}

// IsFileID reports whether the ID was derived from a watched file path.
func IsFileID(id string) bool {
	return len(id) > len(prefix) && id[:len(prefix)] == prefix
}
