package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/chat"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/embedding"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/index"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/pipeline"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/vector"
)

// handleBuilder builds handles directly from in-memory chunk content using
// the same embedder queries go through, so retrieval is self-consistent.
func handleBuilder(embedder embedding.Embedder, contents map[string][]string) registry.Builder {
	return func(ctx context.Context, docID string) (*index.Handle, error) {
		texts, ok := contents[docID]
		if !ok {
			return nil, errors.New("unknown document " + docID)
		}
		idx := vector.NewFlatIndex(embedder.Dimensions())
		var chunks []models.Chunk
		for i, text := range texts {
			vec, err := embedder.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			id := pipeline.ChunkID(docID, i)
			if err := idx.Add(id, vec); err != nil {
				return nil, err
			}
			chunks = append(chunks, models.Chunk{
				ID: id, DocumentID: docID, Content: text, ChunkIndex: i,
			})
		}
		return index.NewHandle(docID, chunks, idx)
	}
}

type fixture struct {
	docs      *docstore.MemStore
	reg       *registry.Registry
	completer *chat.MockCompleter
	embedder  embedding.Embedder
}

func newFixture(t *testing.T, contents map[string][]string) *fixture {
	t.Helper()
	embedder := embedding.NewMockEmbedder(8)
	docs := docstore.NewMemStore()
	reg := registry.New(handleBuilder(embedder, contents))
	t.Cleanup(func() { reg.Close() })

	ctx := context.Background()
	for id := range contents {
		doc := &models.Document{
			ID:        id,
			Title:     "Title " + id,
			SourceKey: "uploads/" + id + ".txt",
			Status:    models.StatusProcessed,
			CreatedAt: time.Now().UTC(),
		}
		if err := docs.Create(ctx, doc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return &fixture{
		docs:      docs,
		reg:       reg,
		completer: &chat.MockCompleter{Answer: "the answer"},
		embedder:  embedder,
	}
}

func (f *fixture) executor(minScore float64) *Executor {
	return New(f.docs, f.reg, f.embedder, f.completer, Options{
		KeywordWeight:   0.3,
		SemanticWeight:  0.7,
		MinScore:        minScore,
		MaxContextChars: 4000,
	}, nil)
}

func TestExecutor_EmptyScope(t *testing.T) {
	f := newFixture(t, map[string][]string{})
	e := f.executor(0)
	_, err := e.Answer(context.Background(), &models.AskRequest{Question: "anything?"})
	if !errors.Is(err, ErrEmptyScope) {
		t.Fatalf("err = %v, want ErrEmptyScope", err)
	}
	if f.completer.Calls() != 0 {
		t.Error("completer must not run for empty scope")
	}
}

func TestExecutor_EmptyQuestion(t *testing.T) {
	f := newFixture(t, map[string][]string{"doc1": {"content"}})
	e := f.executor(0)
	if _, err := e.Answer(context.Background(), &models.AskRequest{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExecutor_UnprocessedDocumentRejected(t *testing.T) {
	f := newFixture(t, map[string][]string{"doc1": {"content"}})
	ctx := context.Background()
	if err := f.docs.SetStatus(ctx, "doc1", models.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	e := f.executor(0)
	_, err := e.Answer(ctx, &models.AskRequest{Question: "q?", DocumentID: "doc1"})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestExecutor_UnknownDocument(t *testing.T) {
	f := newFixture(t, map[string][]string{"doc1": {"content"}})
	e := f.executor(0)
	_, err := e.Answer(context.Background(), &models.AskRequest{Question: "q?", DocumentID: "nope"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExecutor_NoRelevantContentSkipsCompleter(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"doc1": {"completely unrelated text about nothing"},
	})
	// MinScore above any possible fused score forces the no-content outcome.
	e := f.executor(10.0)
	resp, err := e.Answer(context.Background(), &models.AskRequest{Question: "what is photosynthesis?"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !resp.NoRelevantContent {
		t.Error("expected NoRelevantContent")
	}
	if resp.Answer != "" {
		t.Errorf("Answer = %q, want empty", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %d, want 0", len(resp.Sources))
	}
	if f.completer.Calls() != 0 {
		t.Errorf("completer ran %d times, want 0", f.completer.Calls())
	}
}

func TestExecutor_AnswerWithSources(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"doc1": {"photosynthesis converts light to energy", "plants have chloroplasts"},
		"doc2": {"mitochondria produce ATP in animal cells"},
	})
	e := f.executor(-1) // accept everything
	resp, err := e.Answer(context.Background(), &models.AskRequest{Question: "photosynthesis converts light to energy", TopK: 3})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.NoRelevantContent {
		t.Fatal("unexpected NoRelevantContent")
	}
	if resp.Answer != "the answer" {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) == 0 || len(resp.Sources) > 3 {
		t.Fatalf("Sources = %d", len(resp.Sources))
	}
	// Exact text match must rank first; mock embeddings are deterministic per text.
	if resp.Sources[0].ChunkID != pipeline.ChunkID("doc1", 0) {
		t.Errorf("top source = %s", resp.Sources[0].ChunkID)
	}
	if resp.Sources[0].DocumentTitle != "Title doc1" {
		t.Errorf("top source title = %q", resp.Sources[0].DocumentTitle)
	}
	if f.completer.Calls() != 1 {
		t.Errorf("completer ran %d times, want 1", f.completer.Calls())
	}
}

func TestExecutor_ScopedToSingleDocument(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"doc1": {"photosynthesis in plants"},
		"doc2": {"photosynthesis in algae"},
	})
	e := f.executor(-1)
	resp, err := e.Answer(context.Background(), &models.AskRequest{
		Question:   "photosynthesis",
		DocumentID: "doc2",
		TopK:       5,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	for _, src := range resp.Sources {
		if src.DocumentID != "doc2" {
			t.Errorf("source from outside scope: %s", src.DocumentID)
		}
	}
}

func TestExecutor_CompleterErrorPropagates(t *testing.T) {
	f := newFixture(t, map[string][]string{"doc1": {"some content here"}})
	f.completer.Err = errors.New("provider down")
	e := f.executor(-1)
	_, err := e.Answer(context.Background(), &models.AskRequest{Question: "some content here"})
	if err == nil {
		t.Fatal("expected completer error to propagate")
	}
}
