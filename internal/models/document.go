// Package models defines core data structures for documents, chunks, and question answering.
package models

import "time"

// DocumentStatus is the lifecycle state of a document's index.
type DocumentStatus string

const (
	// StatusPending means the document was uploaded but processing has not started.
	StatusPending DocumentStatus = "pending"
	// StatusProcessing means the indexing pipeline is running for the document.
	StatusProcessing DocumentStatus = "processing"
	// StatusProcessed means index artifacts were fully persisted and are queryable.
	StatusProcessed DocumentStatus = "processed"
	// StatusFailed means the last pipeline run ended with an error (see Document.Error).
	StatusFailed DocumentStatus = "failed"
)

// Document represents an uploaded study document and its indexing state.
// Status is written only by the indexing pipeline and the ingestion coordinator.
type Document struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	SourceKey   string         `json:"source_key" db:"source_key"`
	ContentType string         `json:"content_type" db:"content_type"`
	Status      DocumentStatus `json:"status" db:"status"`
	Error       string         `json:"error,omitempty" db:"error"`
	ChunkSize   int            `json:"chunk_size" db:"chunk_size"`
	ChunkOverlap int           `json:"chunk_overlap" db:"chunk_overlap"`
	Folder      string         `json:"folder,omitempty" db:"folder"`
	Topic       string         `json:"topic,omitempty" db:"topic"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// StatusReport is the polling view of a document's processing state.
type StatusReport struct {
	Processed  bool   `json:"processed"`
	Processing bool   `json:"processing"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// Report converts the document status into the polling booleans.
func (d *Document) Report() *StatusReport {
	return &StatusReport{
		Processed:  d.Status == StatusProcessed,
		Processing: d.Status == StatusPending || d.Status == StatusProcessing,
		Failed:     d.Status == StatusFailed,
		Error:      d.Error,
	}
}
