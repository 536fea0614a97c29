package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem. The bucket is a directory
// under root; object keys map to file paths beneath it. Puts are written to a
// temp file and renamed so readers never observe a partially written object.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at path/bucket.
func NewFSStore(path, bucket string) (*FSStore, error) {
	root := filepath.Join(path, bucket)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &UnavailableError{Op: "init", Key: root, Err: err}
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) keyPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}

// List returns objects under prefix, with keys relative to the bucket root.
func (s *FSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, &UnavailableError{Op: "list", Key: prefix, Err: err}
	}
	return objects, nil
}

// Get returns the object bytes, or ErrNotFound if no object exists at key.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, &UnavailableError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Put writes the object atomically (temp file + rename).
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &UnavailableError{Op: "put", Key: key, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &UnavailableError{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &UnavailableError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Delete removes the object; missing objects are ignored.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &UnavailableError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
