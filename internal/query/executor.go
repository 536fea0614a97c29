// Package query answers questions over processed documents: retrieve
// relevant chunks across the scope, then generate a grounded answer.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/chat"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/embedding"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
)

// ErrEmptyScope is returned when the question's scope matches no processed
// documents.
var ErrEmptyScope = errors.New("no processed documents match the requested scope")

// ErrNotReady is returned when the requested document exists but has not
// finished processing.
var ErrNotReady = errors.New("document is not processed yet")

// Options carries retrieval and generation tuning.
type Options struct {
	KeywordWeight   float64
	SemanticWeight  float64
	MinScore        float64
	MaxContextChars int
	// Parallelism bounds concurrent per-document retrieval. Zero means 8.
	Parallelism int
}

// Executor runs the ask flow.
type Executor struct {
	docs      docstore.Store
	registry  *registry.Registry
	embedder  embedding.Embedder
	completer chat.Completer
	opts      Options
	logger    *zap.Logger
}

// New creates an executor. logger may be nil.
func New(docs docstore.Store, reg *registry.Registry, embedder embedding.Embedder,
	completer chat.Completer, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	return &Executor{
		docs:      docs,
		registry:  reg,
		embedder:  embedder,
		completer: completer,
		opts:      opts,
		logger:    logger,
	}
}

// scored pairs a retrieved chunk with its owning document's title.
type scored struct {
	docID    string
	docTitle string
	chunkID  string
	chunkIdx int
	content  string
	score    float64
}

// Answer resolves the scope, retrieves the best chunks across it, and
// generates an answer. When nothing scores above the relevance threshold the
// response reports NoRelevantContent and the completer is never called.
func (e *Executor) Answer(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ids, titles, err := e.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}

	queryVec, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := e.retrieve(ctx, ids, titles, req.Question, queryVec, req.TopK)
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].chunkID < matches[j].chunkID
	})
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	var relevant []scored
	for _, m := range matches {
		if m.score >= e.opts.MinScore {
			relevant = append(relevant, m)
		}
	}

	if len(relevant) == 0 {
		e.logger.Debug("no relevant content",
			zap.String("question", req.Question),
			zap.Int("documents", len(ids)))
		return &models.AskResponse{
			Sources:           []*models.Source{},
			NoRelevantContent: true,
			QueryTime:         time.Since(start).Milliseconds(),
		}, nil
	}

	answer, err := e.generate(ctx, req.Question, relevant)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]*models.Source, len(relevant))
	for i, m := range relevant {
		sources[i] = &models.Source{
			DocumentID:    m.docID,
			DocumentTitle: m.docTitle,
			ChunkID:       m.chunkID,
			ChunkIndex:    m.chunkIdx,
			Content:       m.content,
			Score:         m.score,
		}
	}
	return &models.AskResponse{
		Answer:    answer,
		Sources:   sources,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// resolveScope returns the processed document IDs the question runs over,
// plus their titles for source reporting.
func (e *Executor) resolveScope(ctx context.Context, req *models.AskRequest) ([]string, map[string]string, error) {
	if req.DocumentID != "" {
		doc, err := e.docs.Get(ctx, req.DocumentID)
		if err != nil {
			return nil, nil, err
		}
		if doc.Status != models.StatusProcessed {
			return nil, nil, fmt.Errorf("document %s: %w", doc.ID, ErrNotReady)
		}
		return []string{doc.ID}, map[string]string{doc.ID: doc.Title}, nil
	}

	ids, err := e.docs.ListProcessedIDs(ctx, req.Folder, req.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("list processed documents: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil, ErrEmptyScope
	}
	titles := make(map[string]string, len(ids))
	for _, id := range ids {
		doc, err := e.docs.Get(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load document %s: %w", id, err)
		}
		titles[id] = doc.Title
	}
	return ids, titles, nil
}

// retrieve searches every document in scope concurrently and collects
// per-chunk matches.
func (e *Executor) retrieve(ctx context.Context, ids []string, titles map[string]string,
	question string, queryVec []float32, topK int) ([]scored, error) {
	var mu sync.Mutex
	var matches []scored

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			handle, err := e.registry.GetOrBuild(gctx, id)
			if err != nil {
				return fmt.Errorf("load index for %s: %w", id, err)
			}
			hits, err := handle.Search(gctx, question, queryVec, topK,
				e.opts.KeywordWeight, e.opts.SemanticWeight)
			if err != nil {
				return fmt.Errorf("search %s: %w", id, err)
			}
			mu.Lock()
			for _, hit := range hits {
				matches = append(matches, scored{
					docID:    id,
					docTitle: titles[id],
					chunkID:  hit.Chunk.ID,
					chunkIdx: hit.Chunk.ChunkIndex,
					content:  hit.Chunk.Content,
					score:    float64(hit.Score),
				})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// generate builds the grounded prompt and calls the completer.
func (e *Executor) generate(ctx context.Context, question string, matches []scored) (string, error) {
	var ctxBuilder strings.Builder
	for i, m := range matches {
		passage := fmt.Sprintf("[%d] (from %q)\n%s\n\n", i+1, m.docTitle, m.content)
		if e.opts.MaxContextChars > 0 && ctxBuilder.Len()+len(passage) > e.opts.MaxContextChars {
			break
		}
		ctxBuilder.WriteString(passage)
	}

	messages := []chat.Message{
		{
			Role: "system",
			Content: "You are a study assistant. Answer the question using only the " +
				"provided passages. If the passages do not contain the answer, say so. " +
				"Cite passage numbers like [1] where relevant.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Passages:\n\n%sQuestion: %s", ctxBuilder.String(), question),
		},
	}
	return e.completer.Complete(ctx, messages)
}
