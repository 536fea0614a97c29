// Package main is the SME Panel indexing service entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/artifact"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/chat"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/config"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/embedding"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/extract"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/ingest"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/pipeline"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/query"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/registry"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/server"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/watcher"
	"github.com/Techways-AI/sme-panel-staging-sub001/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/smepanel/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence so development runs pick up the
// project config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "reprocess":
		runReprocess()
	case "delete":
		runDelete()
	case "version", "--version", "-v":
		fmt.Printf("smepanel version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// Components holds all wired services for one run.
type Components struct {
	Docs        docstore.Store
	Blobs       blob.Store
	Embedder    embedding.Embedder
	Registry    *registry.Registry
	Coordinator *ingest.Coordinator
	Executor    *query.Executor
}

// Close releases everything, waiting for background processing first.
func (c *Components) Close() {
	if c.Coordinator != nil {
		c.Coordinator.Wait()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Docs != nil {
		_ = c.Docs.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	docs, err := docstore.NewSQLiteStore(cfg.Docstore.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initialize docstore: %w", err)
	}

	blobs, err := blob.NewFSStore(cfg.Blob.Path, cfg.Blob.Bucket)
	if err != nil {
		return nil, fmt.Errorf("initialize blob store: %w", err)
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	var local *artifact.LocalCache
	if cfg.Artifact.LocalDir != "" {
		local, err = artifact.NewLocalCache(cfg.Artifact.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("initialize local artifact cache: %w", err)
		}
	}
	writer := artifact.NewWriter(blobs, logger)
	loader := artifact.NewLoader(blobs, local, logger)

	regOpts := []registry.Option{registry.WithLogger(logger)}
	if cfg.Cache.MaxEntries > 0 {
		regOpts = append(regOpts, registry.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	reg := registry.New(loader.Load, regOpts...)

	pipe := pipeline.New(docs, blobs, extract.NewExtractor(), embedder, writer, local, reg,
		pipeline.Options{
			IndexType:    cfg.Index.IndexType,
			ChunkSize:    cfg.Index.ChunkSize,
			ChunkOverlap: cfg.Index.ChunkOverlap,
			BatchSize:    cfg.Embedding.BatchSize,
		}, logger)

	coordinator := ingest.New(docs, blobs, pipe, reg, writer, local, logger)

	completer := chat.NewOpenAIClient(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Model)
	executor := query.New(docs, reg, embedder, completer,
		query.Options{
			KeywordWeight:   cfg.Query.KeywordWeight,
			SemanticWeight:  cfg.Query.SemanticWeight,
			MinScore:        cfg.Query.MinScore,
			MaxContextChars: cfg.Query.MaxContextChars,
		}, logger)

	return &Components{
		Docs:        docs,
		Blobs:       blobs,
		Embedder:    embedder,
		Registry:    reg,
		Coordinator: coordinator,
		Executor:    executor,
	}, nil
}

func buildEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var inner embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		inner = embedding.NewOpenAIEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
		)
	case "onnx":
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
		)
		if err != nil {
			return nil, fmt.Errorf("initialize onnx embedder: %w", err)
		}
		inner = onnxEmbedder
	case "mock":
		logger.Warn("using mock embedder; retrieval quality will be meaningless")
		inner = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize > 0 {
		return embedding.NewCachedEmbedder(inner, cfg.Embedding.CacheSize), nil
	}
	return inner, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(), components.Coordinator, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Coordinator,
		components.Executor,
		components.Docs,
		components.Registry,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	components.Coordinator.Wait()
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	title := fs.String("title", "", "document title (defaults to file name)")
	folder := fs.String("folder", "", "folder label")
	topic := fs.String("topic", "", "topic label")
	wait := fs.Bool("wait", true, "wait for processing to finish")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: smepanel ingest [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	logger, components := mustComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("Failed to read file", zap.String("path", path), zap.Error(err))
	}

	ctx := context.Background()
	doc, err := components.Coordinator.Upload(ctx, ingest.UploadRequest{
		Title:    *title,
		Filename: filepath.Base(path),
		Content:  content,
		Folder:   *folder,
		Topic:    *topic,
	})
	if err != nil {
		logger.Fatal("Upload failed", zap.Error(err))
	}
	fmt.Printf("document %s uploaded\n", doc.ID)

	if *wait {
		components.Coordinator.Wait()
		report, err := components.Coordinator.Status(ctx, doc.ID)
		if err != nil {
			logger.Fatal("Status check failed", zap.Error(err))
		}
		switch {
		case report.Processed:
			fmt.Println("processed")
		case report.Failed:
			fmt.Printf("failed: %s\n", report.Error)
			os.Exit(1)
		}
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docID := fs.String("doc", "", "restrict to one document id")
	folder := fs.String("folder", "", "restrict to a folder")
	topic := fs.String("topic", "", "restrict to a topic")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: smepanel ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	logger, components := mustComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	resp, err := components.Executor.Answer(context.Background(), &models.AskRequest{
		Question:   question,
		DocumentID: *docID,
		Folder:     *folder,
		Topic:      *topic,
		TopK:       *topK,
	})
	if err != nil {
		logger.Fatal("Ask failed", zap.Error(err))
	}
	if resp.NoRelevantContent {
		fmt.Println("No relevant content found.")
		return
	}
	fmt.Println(resp.Answer)
	fmt.Println()
	for i, src := range resp.Sources {
		fmt.Printf("[%d] %s (%s) score=%.3f\n", i+1, src.DocumentTitle, src.ChunkID, src.Score)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	logger, components := mustComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if fs.NArg() >= 1 {
		report, err := components.Coordinator.Status(ctx, fs.Arg(0))
		if err != nil {
			logger.Fatal("Status failed", zap.Error(err))
		}
		switch {
		case report.Processed:
			fmt.Println("processed")
		case report.Failed:
			fmt.Printf("failed: %s\n", report.Error)
		default:
			fmt.Println("processing")
		}
		return
	}
	count, err := components.Docs.Count(ctx)
	if err != nil {
		logger.Fatal("Status failed", zap.Error(err))
	}
	fmt.Printf("documents: %d\ncached indexes: %d\n", count, components.Registry.Len())
}

func runReprocess() {
	fs := flag.NewFlagSet("reprocess", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: smepanel reprocess [flags] <document-id>")
		os.Exit(1)
	}

	logger, components := mustComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	if err := components.Coordinator.Reprocess(context.Background(), fs.Arg(0)); err != nil {
		logger.Fatal("Reprocess failed", zap.Error(err))
	}
	components.Coordinator.Wait()
	fmt.Println("done")
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: smepanel delete [flags] <document-id>")
		os.Exit(1)
	}

	logger, components := mustComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	if err := components.Coordinator.Delete(context.Background(), fs.Arg(0)); err != nil {
		logger.Fatal("Delete failed", zap.Error(err))
	}
	fmt.Println("deleted")
}

// mustComponents loads config, logger, and components or exits.
func mustComponents(configPath string) (*zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return logger, components
}

func printUsage() {
	fmt.Println(`smepanel - study document indexing and question answering

Usage:
  smepanel server [--config path] [--debug]     start the HTTP API
  smepanel ingest [flags] <file>                upload and index a document
  smepanel ask [flags] <question>               ask a question over indexed documents
  smepanel status [document-id]                 show system or document status
  smepanel reprocess <document-id>              rebuild a document's index
  smepanel delete <document-id>                 remove a document and its index
  smepanel version                              print version`)
}
