package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// LocalCache keeps a copy of artifact files on local disk so restarts can
// skip the blob fetch. Per-document file locks guard against concurrent
// processes sharing the directory.
type LocalCache struct {
	dir string
}

// NewLocalCache creates the cache rooted at dir.
func NewLocalCache(dir string) (*LocalCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local artifact dir: %w", err)
	}
	return &LocalCache{dir: dir}, nil
}

func (c *LocalCache) docDir(docID string) string {
	return filepath.Join(c.dir, docID)
}

func (c *LocalCache) lock(docID string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(c.dir, docID+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock artifact %s: %w", docID, err)
	}
	return fl, nil
}

// Write stores the set's files under the document's directory.
func (c *LocalCache) Write(set *Set) error {
	docID := set.Manifest.DocumentID
	fl, err := c.lock(docID)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	dir := c.docDir(docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	chunksJSON, err := json.Marshal(set.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(set.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	files := map[string][]byte{
		config.FileChunks:   chunksJSON,
		config.FileVectors:  set.VectorData,
		config.FileManifest: manifestJSON,
	}
	for name, data := range files {
		if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// Read loads the set from disk. Missing or empty files yield
// IncompleteError, unparseable ones CorruptError.
func (c *LocalCache) Read(docID string) (*Set, error) {
	fl, err := c.lock(docID)
	if err != nil {
		return nil, err
	}
	defer fl.Unlock()

	dir := c.docDir(docID)
	raw := make(map[string][]byte, 3)
	var missing []string
	for _, name := range EssentialFiles() {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) == 0 {
			missing = append(missing, name)
			continue
		}
		raw[name] = data
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{DocumentID: docID, Missing: missing}
	}
	return parseSet(docID, raw)
}

// Remove deletes the document's cached files and lock file.
func (c *LocalCache) Remove(docID string) error {
	fl, err := c.lock(docID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(c.docDir(docID)); err != nil {
		fl.Unlock()
		return fmt.Errorf("remove artifact dir: %w", err)
	}
	fl.Unlock()
	_ = os.Remove(filepath.Join(c.dir, docID+".lock"))
	return nil
}

// parseSet validates and decodes raw artifact file contents.
func parseSet(docID string, raw map[string][]byte) (*Set, error) {
	var manifest Manifest
	if err := json.Unmarshal(raw[config.FileManifest], &manifest); err != nil {
		return nil, &CorruptError{DocumentID: docID, File: config.FileManifest, Err: err}
	}
	if manifest.Version != ManifestVersion {
		return nil, &CorruptError{DocumentID: docID, File: config.FileManifest,
			Err: fmt.Errorf("unsupported manifest version %d", manifest.Version)}
	}
	if manifest.DocumentID != docID {
		return nil, &CorruptError{DocumentID: docID, File: config.FileManifest,
			Err: fmt.Errorf("manifest document id %q does not match %q", manifest.DocumentID, docID)}
	}
	var chunks []models.Chunk
	if err := json.Unmarshal(raw[config.FileChunks], &chunks); err != nil {
		return nil, &CorruptError{DocumentID: docID, File: config.FileChunks, Err: err}
	}
	if len(chunks) != manifest.ChunkCount {
		return nil, &CorruptError{DocumentID: docID, File: config.FileChunks,
			Err: fmt.Errorf("chunk count %d does not match manifest %d", len(chunks), manifest.ChunkCount)}
	}
	return &Set{Manifest: manifest, Chunks: chunks, VectorData: raw[config.FileVectors]}, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
