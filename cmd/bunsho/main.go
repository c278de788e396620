// Package main is the Bunsho CLI entry point.
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

	"github.com/hyperjump/bunsho/internal/auth"
	"github.com/hyperjump/bunsho/internal/blobstore"
	"github.com/hyperjump/bunsho/internal/chat"
	"github.com/hyperjump/bunsho/internal/chunker"
	"github.com/hyperjump/bunsho/internal/config"
	"github.com/hyperjump/bunsho/internal/embedding"
	"github.com/hyperjump/bunsho/internal/extract"
	"github.com/hyperjump/bunsho/internal/ingest"
	"github.com/hyperjump/bunsho/internal/retrieval"
	"github.com/hyperjump/bunsho/internal/server"
	"github.com/hyperjump/bunsho/internal/storage"
	"github.com/hyperjump/bunsho/internal/vectorstore"
	"github.com/hyperjump/bunsho/internal/watcher"
	"github.com/hyperjump/bunsho/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bunsho/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// uses the project's config.
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
	case "query":
		runQuery()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("bunsho version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
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
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	streamer, err := chat.NewOpenAIStreamer(chat.OpenAIConfig{
		BaseURL:       cfg.Chat.BaseURL,
		APIKey:        cfg.Chat.APIKey,
		Model:         cfg.Chat.Model,
		MaxTokens:     cfg.Chat.MaxTokens,
		Temperature:   cfg.Chat.Temperature,
		StreamTimeout: cfg.Chat.StreamTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat client", zap.Error(err))
	}
	answerer := chat.NewAnswerer(components.Engine, streamer, chat.WithLogger(logger))

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var inbox *watcher.Watcher
	if cfg.Watch.Directory != "" {
		inbox = watcher.New(cfg.Watch.Directory, cfg.Watch.Tenant, components.Pipeline,
			watcher.WithLogger(logger))
		if err := inbox.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
	}

	authn := auth.New(cfg.Auth.Keys, logger)
	srv := server.NewServer(
		components.Pipeline,
		components.Engine,
		answerer,
		components.Storage,
		components.Blobs,
		authn,
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
	if inbox != nil {
		inbox.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tenant := fs.String("tenant", "default", "tenant namespace to ingest into")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: bunsho ingest [flags] <pdf-file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Pipeline.IngestFile(context.Background(), *tenant, path)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s (%d chunks, %s extraction)\n",
		result.DocumentID, result.ChunkCount, result.ExtractionMethod)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tenant := fs.String("tenant", "default", "tenant namespace to query")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: bunsho query [flags] <question>")
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Engine.Retrieve(context.Background(), *tenant, question)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	if !result.HasContext() {
		fmt.Println("No matching context found.")
		return
	}
	for i, m := range result.Matches {
		fmt.Printf("%d. [%.4f] %s\n   %s\n", i+1, m.Score, m.ID, m.Text)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tenant := fs.String("tenant", "default", "tenant namespace")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: bunsho delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Pipeline.Delete(context.Background(), *tenant, docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tenant := fs.String("tenant", "default", "tenant namespace")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	count, err := components.Storage.CountDocuments(context.Background(), *tenant)
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Tenant:    %s\n", *tenant)
	fmt.Printf("Documents: %d\n", count)
	if usage, ok := components.Blobs.(interface{ Usage() (int64, error) }); ok {
		if bytes, err := usage.Usage(); err == nil {
			fmt.Printf("Blobs:     %d bytes\n", bytes)
		}
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Blobs    blobstore.Store
	Embedder embedding.Embedder
	Vectors  vectorstore.Store
	Pipeline *ingest.Pipeline
	Engine   *retrieval.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	blobs, err := blobstore.NewDisk(cfg.Storage.BlobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	var ocr extract.OCRClient
	if cfg.OCR.BaseURL != "" {
		ocr = extract.NewRemoteOCR(extract.OCRConfig{
			BaseURL:      cfg.OCR.BaseURL,
			APIKey:       cfg.OCR.APIKey,
			PollInterval: cfg.OCR.PollInterval,
			MaxPolls:     cfg.OCR.MaxPolls,
		}, logger)
	} else {
		logger.Warn("OCR is not configured; low-density PDFs will use direct extraction")
	}
	extractor := extract.NewExtractor(cfg.Extraction.MinCharsPerPage, ocr, logger)

	var embedder embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder, err = embedding.NewOpenAIClient(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			Timeout:    cfg.Embedding.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	} else {
		logger.Warn("no embedding API key set, using mock embeddings")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	var vectors vectorstore.Store
	if cfg.VectorStore.BaseURL != "" {
		vectors, err = vectorstore.NewPinecone(vectorstore.PineconeConfig{
			BaseURL: cfg.VectorStore.BaseURL,
			APIKey:  cfg.VectorStore.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	} else {
		logger.Warn("no vector store configured, using in-memory store; vectors are lost on restart")
		vectors = vectorstore.NewMemory()
	}

	ch := chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	pipeline := ingest.NewPipeline(store, blobs, extractor, ch, embedder, vectors,
		ingest.WithLogger(logger))
	engine := retrieval.NewEngine(embedder, vectors, cfg.Retrieval.TopK,
		retrieval.WithLogger(logger),
		retrieval.WithMinScore(cfg.Retrieval.MinScore))

	return &Components{
		Storage:  store,
		Blobs:    blobs,
		Embedder: embedder,
		Vectors:  vectors,
		Pipeline: pipeline,
		Engine:   engine,
	}, nil
}

func printUsage() {
	fmt.Println(`bunsho - Tenant-isolated PDF question answering service

Usage:
  bunsho server [flags]            Start the HTTP server
  bunsho ingest [flags] <file>     Ingest a PDF from disk
  bunsho query [flags] <question>  Retrieve matching chunks for a question
  bunsho delete [flags] <id>       Delete a document
  bunsho status [flags]            Show document and blob counts for a tenant
  bunsho version                   Show version
  bunsho help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/bunsho/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --tenant string    Tenant namespace to ingest into (default: default)

Query, Delete, Status Flags:
  --config string    Config file path
  --tenant string    Tenant namespace (default: default)

Examples:
  bunsho server
  bunsho ingest --tenant acme handbook.pdf
  bunsho query --tenant acme "what is the refund window?"
  bunsho delete --tenant acme 2f1f1a9c-7c3e-4ad0-9e6b-0a9f4a1f2b3c`)
}
