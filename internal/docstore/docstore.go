// Package docstore defines the persistence interface for document metadata.
// Document status is written only by the pipeline and the ingestion
// coordinator; status queries are read-only.
package docstore

import (
	"context"
	"errors"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store defines document metadata persistence operations.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	// SetStatus updates the status and error message of a document.
	SetStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// ListProcessedIDs returns the ids of processed documents matching the
	// folder and topic filters. Empty filter strings match everything.
	ListProcessedIDs(ctx context.Context, folder, topic string) ([]string, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
