package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/artifact"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/embedding"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/extract"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/fileid"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/pipeline"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

type env struct {
	docs  *docstore.MemStore
	blobs *blob.MemStore
	reg   *registry.Registry
	coord *Coordinator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	docs := docstore.NewMemStore()
	blobs := blob.NewMemStore()
	writer := artifact.NewWriter(blobs, nil)
	loader := artifact.NewLoader(blobs, nil, nil)
	reg := registry.New(loader.Load)
	t.Cleanup(func() { reg.Close() })
	pipe := pipeline.New(docs, blobs, extract.NewExtractor(), embedding.NewMockEmbedder(8),
		writer, nil, reg, pipeline.Options{
			IndexType:    vector.TypeFlat,
			ChunkSize:    5,
			ChunkOverlap: 1,
		}, nil)
	coord := New(docs, blobs, pipe, reg, writer, nil, nil)
	return &env{docs: docs, blobs: blobs, reg: reg, coord: coord}
}

func TestCoordinator_UploadLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	doc, err := e.coord.Upload(ctx, UploadRequest{
		Filename: "notes.txt",
		Content:  []byte("one two three four five six seven eight"),
		Folder:   "biology",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("Title = %q, want derived from filename", doc.Title)
	}
	if doc.Status != models.StatusPending {
		t.Errorf("Status = %s, want pending", doc.Status)
	}

	e.coord.Wait()
	report, err := e.coord.Status(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.Processed {
		t.Fatalf("report = %+v, want processed", report)
	}

	ids, err := e.docs.ListProcessedIDs(ctx, "biology", "")
	if err != nil {
		t.Fatalf("ListProcessedIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != doc.ID {
		t.Errorf("ListProcessedIDs = %v", ids)
	}
}

func TestCoordinator_UploadEmptyRejected(t *testing.T) {
	e := newEnv(t)
	if _, err := e.coord.Upload(context.Background(), UploadRequest{Filename: "x.txt"}); err == nil {
		t.Fatal("expected error for empty upload")
	}
}

func TestCoordinator_StatusReflectsFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc, err := e.coord.Upload(ctx, UploadRequest{
		Filename: "empty.txt",
		Content:  []byte("   "),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	e.coord.Wait()

	report, err := e.coord.Status(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.Failed || report.Error == "" {
		t.Errorf("report = %+v, want failed with error", report)
	}
}

func TestCoordinator_StatusUnknownDocument(t *testing.T) {
	e := newEnv(t)
	_, err := e.coord.Status(context.Background(), "nope")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCoordinator_DeleteRemovesEverything(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc, err := e.coord.Upload(ctx, UploadRequest{
		Filename: "notes.txt",
		Content:  []byte("alpha beta gamma delta epsilon zeta eta"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	e.coord.Wait()
	if _, err := e.reg.GetOrBuild(ctx, doc.ID); err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}

	if err := e.coord.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if e.reg.Cached(doc.ID) {
		t.Error("handle still cached")
	}
	if _, err := e.docs.Get(ctx, doc.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("document record still present: %v", err)
	}
	if _, err := e.blobs.Get(ctx, doc.SourceKey); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("source blob still present: %v", err)
	}
	objects, _ := e.blobs.List(ctx, artifact.Prefix(doc.ID))
	if len(objects) != 0 {
		t.Errorf("%d artifact objects left", len(objects))
	}
}

func TestCoordinator_Reprocess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc, err := e.coord.Upload(ctx, UploadRequest{
		Filename: "notes.txt",
		Content:  []byte("one two three four five six"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	e.coord.Wait()

	if err := e.coord.Reprocess(ctx, doc.ID); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	e.coord.Wait()
	report, _ := e.coord.Status(ctx, doc.ID)
	if !report.Processed {
		t.Errorf("report = %+v after reprocess", report)
	}

	if err := e.coord.Reprocess(ctx, "nope"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Reprocess unknown = %v, want ErrNotFound", err)
	}
}

func TestCoordinator_IngestFileUpserts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	path := filepath.Join("/watch", "notes.txt")

	docID, err := e.coord.IngestFile(ctx, path, []byte("first version with several words"), "/watch")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if docID != fileid.FileDocID(path) {
		t.Errorf("docID = %q, want path-derived", docID)
	}
	e.coord.Wait()

	// Re-ingesting the same path reuses the document instead of duplicating it.
	again, err := e.coord.IngestFile(ctx, path, []byte("second version with different words"), "/watch")
	if err != nil {
		t.Fatalf("second IngestFile: %v", err)
	}
	if again != docID {
		t.Errorf("re-ingest produced new id %q", again)
	}
	e.coord.Wait()

	count, _ := e.docs.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	if err := e.coord.RemoveFile(ctx, path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if count, _ := e.docs.Count(ctx); count != 0 {
		t.Errorf("Count after RemoveFile = %d", count)
	}
	// Removing an unknown path is a no-op.
	if err := e.coord.RemoveFile(ctx, "/watch/ghost.txt"); err != nil {
		t.Errorf("RemoveFile unknown: %v", err)
	}
}
