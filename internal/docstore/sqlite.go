// Package docstore provides a SQLite implementation of the Store interface.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		source_key TEXT NOT NULL,
		content_type TEXT,
		status TEXT NOT NULL,
		error TEXT,
		chunk_size INTEGER NOT NULL,
		chunk_overlap INTEGER NOT NULL,
		folder TEXT,
		topic TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_folder ON documents(folder);
	CREATE INDEX IF NOT EXISTS idx_documents_topic ON documents(topic);
	`
	_, err := db.Exec(schema)
	return err
}

// Create inserts a new document row.
func (s *SQLiteStore) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source_key, content_type, status, error,
			chunk_size, chunk_overlap, folder, topic, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourceKey, doc.ContentType, string(doc.Status), doc.Error,
		doc.ChunkSize, doc.ChunkOverlap, doc.Folder, doc.Topic, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, source_key, content_type, status, error,
			chunk_size, chunk_overlap, folder, topic, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row, id)
}

func scanDocument(row *sql.Row, id string) (*models.Document, error) {
	var doc models.Document
	var status string
	err := row.Scan(&doc.ID, &doc.Title, &doc.SourceKey, &doc.ContentType, &status, &doc.Error,
		&doc.ChunkSize, &doc.ChunkOverlap, &doc.Folder, &doc.Topic, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

// Update rewrites all mutable fields of the document.
func (s *SQLiteStore) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET title = ?, source_key = ?, content_type = ?, status = ?, error = ?,
			chunk_size = ?, chunk_overlap = ?, folder = ?, topic = ?, updated_at = ?
		WHERE id = ?`,
		doc.Title, doc.SourceKey, doc.ContentType, string(doc.Status), doc.Error,
		doc.ChunkSize, doc.ChunkOverlap, doc.Folder, doc.Topic, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", doc.ID, err)
	}
	return requireRow(res, doc.ID)
}

// SetStatus updates only the status and error message of a document.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set status of document %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the document row.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return requireRow(res, id)
}

// List returns documents ordered by creation time, newest first.
func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, source_key, content_type, status, error,
			chunk_size, chunk_overlap, folder, topic, created_at, updated_at
		FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var status string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.SourceKey, &doc.ContentType, &status, &doc.Error,
			&doc.ChunkSize, &doc.ChunkOverlap, &doc.Folder, &doc.Topic, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Status = models.DocumentStatus(status)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ListProcessedIDs returns ids of processed documents matching the filters.
func (s *SQLiteStore) ListProcessedIDs(ctx context.Context, folder, topic string) ([]string, error) {
	query := `SELECT id FROM documents WHERE status = ?`
	args := []interface{}{string(models.StatusProcessed)}
	if folder != "" {
		query += ` AND folder = ?`
		args = append(args, folder)
	}
	if topic != "" {
		query += ` AND topic = ?`
		args = append(args, topic)
	}
	query += ` ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the total number of documents.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
