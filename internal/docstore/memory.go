package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]*models.Document
}

// NewMemStore creates an empty in-memory document store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]*models.Document)}
}

func copyDoc(doc *models.Document) *models.Document {
	out := *doc
	return &out
}

// Create inserts a new document.
func (s *MemStore) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.docs[doc.ID] = copyDoc(doc)
	return nil
}

// Get returns a copy of the document, or ErrNotFound.
func (s *MemStore) Get(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return copyDoc(doc), nil
}

// Update replaces the stored document.
func (s *MemStore) Update(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	doc.UpdatedAt = time.Now().UTC()
	s.docs[doc.ID] = copyDoc(doc)
	return nil
}

// SetStatus updates the status and error message.
func (s *MemStore) SetStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	doc.Status = status
	doc.Error = errMsg
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the document.
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	delete(s.docs, id)
	return nil
}

// List returns documents ordered by creation time, newest first.
func (s *MemStore) List(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	all := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		all = append(all, copyDoc(doc))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ListProcessedIDs returns ids of processed documents matching the filters.
func (s *MemStore) ListProcessedIDs(ctx context.Context, folder, topic string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, doc := range s.docs {
		if doc.Status != models.StatusProcessed {
			continue
		}
		if folder != "" && doc.Folder != folder {
			continue
		}
		if topic != "" && doc.Topic != topic {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the total number of documents.
func (s *MemStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error { return nil }
