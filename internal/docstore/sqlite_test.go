package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDoc(id string) *models.Document {
	return &models.Document{
		ID:        id,
		Title:     "Title " + id,
		SourceKey: "uploads/" + id + ".txt",
		Status:    models.StatusPending,
	}
}

func TestSQLiteStore_CRUD(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	doc := sampleDoc("doc1")
	doc.Folder = "biology"
	if err := store.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "doc1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Title doc1" || got.Folder != "biology" || got.Status != models.StatusPending {
		t.Errorf("unexpected document: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got.Title = "Renamed"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = store.Get(ctx, "doc1")
	if got.Title != "Renamed" {
		t.Errorf("Title after update = %q", got.Title)
	}

	if err := store.Delete(ctx, "doc1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, sampleDoc("ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
	if err := store.SetStatus(ctx, "ghost", models.StatusProcessed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_SetStatus(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	if err := store.Create(ctx, sampleDoc("doc1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetStatus(ctx, "doc1", models.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ := store.Get(ctx, "doc1")
	if got.Status != models.StatusFailed || got.Error != "boom" {
		t.Errorf("status = %s error = %q", got.Status, got.Error)
	}

	// A later success clears the recorded error.
	if err := store.SetStatus(ctx, "doc1", models.StatusProcessed, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ = store.Get(ctx, "doc1")
	if got.Status != models.StatusProcessed || got.Error != "" {
		t.Errorf("status = %s error = %q", got.Status, got.Error)
	}
}

func TestSQLiteStore_ListPagination(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.Create(ctx, sampleDoc(id)); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	page, err := store.List(ctx, 0, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 3 {
		t.Errorf("first page = %d docs, want 3", len(page))
	}
	page, err = store.List(ctx, 3, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("second page = %d docs, want 1", len(page))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Errorf("Count = %d, want 4", count)
	}
}

func TestSQLiteStore_ListProcessedIDs(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	docs := []*models.Document{
		{ID: "p1", SourceKey: "k", Status: models.StatusProcessed, Folder: "bio", Topic: "cells"},
		{ID: "p2", SourceKey: "k", Status: models.StatusProcessed, Folder: "bio", Topic: "plants"},
		{ID: "p3", SourceKey: "k", Status: models.StatusProcessed, Folder: "math", Topic: "cells"},
		{ID: "x1", SourceKey: "k", Status: models.StatusPending, Folder: "bio", Topic: "cells"},
	}
	for _, d := range docs {
		if err := store.Create(ctx, d); err != nil {
			t.Fatalf("Create %s: %v", d.ID, err)
		}
	}

	cases := []struct {
		name   string
		folder string
		topic  string
		want   int
	}{
		{"all processed", "", "", 3},
		{"folder filter", "bio", "", 2},
		{"topic filter", "", "cells", 2},
		{"folder and topic", "bio", "cells", 1},
		{"no match", "chem", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := store.ListProcessedIDs(ctx, tc.folder, tc.topic)
			if err != nil {
				t.Fatalf("ListProcessedIDs: %v", err)
			}
			if len(ids) != tc.want {
				t.Errorf("got %v, want %d ids", ids, tc.want)
			}
		})
	}
}
