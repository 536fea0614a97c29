package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

func testSet(t *testing.T, docID string) *Set {
	t.Helper()
	chunks := []models.Chunk{
		{ID: docID + "_c0000", DocumentID: docID, Content: "alpha beta gamma", ChunkIndex: 0},
		{ID: docID + "_c0001", DocumentID: docID, Content: "delta epsilon zeta", ChunkIndex: 1},
	}
	idx := vector.NewFlatIndex(2)
	idx.Add(chunks[0].ID, []float32{1, 0})
	idx.Add(chunks[1].ID, []float32{0, 1})
	data, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return &Set{
		Manifest: Manifest{
			Version:    ManifestVersion,
			DocumentID: docID,
			Title:      "Test Doc",
			ChunkCount: 2,
			Dimensions: 2,
			IndexType:  vector.TypeFlat,
			ChunkSize:  512,
			CreatedAt:  time.Now().UTC(),
		},
		Chunks:     chunks,
		VectorData: data,
	}
}

func TestWriterLoader_Roundtrip(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	set := testSet(t, "doc1")
	if err := writer.Write(ctx, set); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loader := NewLoader(store, nil, nil)
	handle, err := loader.Load(ctx, "doc1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer handle.Close()
	if handle.ChunkCount() != 2 {
		t.Errorf("ChunkCount = %d", handle.ChunkCount())
	}
	matches, err := handle.Search(ctx, "alpha", []float32{1, 0}, 1, 0.5, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.ID != "doc1_c0000" {
		t.Errorf("unexpected match: %+v", matches)
	}
}

func TestLoader_MissingEssentialFile(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Delete(ctx, Key("doc1", config.FileChunks)); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	loader := NewLoader(store, nil, nil)
	_, err := loader.Load(ctx, "doc1")
	if err == nil {
		t.Fatal("expected error")
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedError", err)
	}
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("ExhaustedError does not wrap IncompleteError: %v", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != config.FileChunks {
		t.Errorf("Missing = %v, want [%s]", incomplete.Missing, config.FileChunks)
	}
}

func TestLoader_EmptyEssentialFile(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Zero-byte files count as missing, not corrupt.
	if err := store.Put(ctx, Key("doc1", config.FileVectors), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	loader := NewLoader(store, nil, nil)
	_, err := loader.Load(ctx, "doc1")
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteError", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != config.FileVectors {
		t.Errorf("Missing = %v, want [%s]", incomplete.Missing, config.FileVectors)
	}
}

func TestLoader_EmptyFileNotMirroredLocally(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Put(ctx, Key("doc1", config.FileVectors), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	local, err := NewLocalCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalCache: %v", err)
	}

	loader := NewLoader(store, local, nil)
	if _, err := loader.Load(ctx, "doc1"); err == nil {
		t.Fatal("expected error")
	}
	// The defective set must not have been written through to the local cache.
	var incomplete *IncompleteError
	if _, err := local.Read("doc1"); !errors.As(err, &incomplete) {
		t.Errorf("local Read = %v, want IncompleteError", err)
	}
}

func TestLoader_CorruptManifest(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	store.Put(ctx, Key("doc1", config.FileManifest), []byte("not json"))

	loader := NewLoader(store, nil, nil)
	_, err := loader.Load(ctx, "doc1")
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
	if corrupt.File != config.FileManifest {
		t.Errorf("File = %q", corrupt.File)
	}
}

func TestLoader_CorruptVectors(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	store.Put(ctx, Key("doc1", config.FileVectors), []byte{0x01})

	loader := NewLoader(store, nil, nil)
	_, err := loader.Load(ctx, "doc1")
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
	if corrupt.File != config.FileVectors {
		t.Errorf("File = %q", corrupt.File)
	}
}

func TestLoader_UnavailableAbortsImmediately(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	store.SetErr(errors.New("connection refused"))
	loader := NewLoader(store, nil, nil)
	_, err := loader.Load(ctx, "doc1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !blob.IsUnavailable(err) {
		t.Errorf("err = %v, want unavailable", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("outage must not be reported as exhausted strategies")
	}
}

func TestLoader_LocalCacheServesAfterRemoteLoss(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	local, err := NewLocalCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalCache: %v", err)
	}

	loader := NewLoader(store, local, nil)
	handle, err := loader.Load(ctx, "doc1")
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	handle.Close()

	// Remote artifacts gone; the write-through local copy still recovers.
	if err := writer.Remove(ctx, "doc1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	handle, err = loader.Load(ctx, "doc1")
	if err != nil {
		t.Fatalf("Load from local cache: %v", err)
	}
	defer handle.Close()
	if handle.ChunkCount() != 2 {
		t.Errorf("ChunkCount = %d", handle.ChunkCount())
	}
}

func TestWriter_RemoveDeletesEverything(t *testing.T) {
	store := blob.NewMemStore()
	ctx := context.Background()
	writer := NewWriter(store, nil)
	if err := writer.Write(ctx, testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Simulate a leftover from an interrupted run.
	store.Put(ctx, Key("doc1", "vectors.bin.partial"), []byte{0})

	if err := writer.Remove(ctx, "doc1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	objects, err := store.List(ctx, Prefix("doc1"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("%d objects left after Remove", len(objects))
	}
}

func TestLocalCache_EmptyFileIncomplete(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalCache(dir)
	if err != nil {
		t.Fatalf("NewLocalCache: %v", err)
	}
	if err := local.Write(testSet(t, "doc1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.Truncate(filepath.Join(dir, "doc1", config.FileChunks), 0); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	_, err = local.Read("doc1")
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Read = %v, want IncompleteError", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != config.FileChunks {
		t.Errorf("Missing = %v, want [%s]", incomplete.Missing, config.FileChunks)
	}
}

func TestLocalCache_Remove(t *testing.T) {
	local, err := NewLocalCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalCache: %v", err)
	}
	set := testSet(t, "doc1")
	if err := local.Write(set); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := local.Read("doc1"); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := local.Remove("doc1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	var incomplete *IncompleteError
	if _, err := local.Read("doc1"); !errors.As(err, &incomplete) {
		t.Errorf("Read after Remove = %v, want IncompleteError", err)
	}
}
