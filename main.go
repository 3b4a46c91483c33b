package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fabfab/mini-rag/api"
	"github.com/fabfab/mini-rag/chat"
	"github.com/fabfab/mini-rag/config"
	"github.com/fabfab/mini-rag/database"
	"github.com/fabfab/mini-rag/embeddings"
	"github.com/fabfab/mini-rag/ingestion"
	"github.com/fabfab/mini-rag/llm"
	"github.com/fabfab/mini-rag/rerank"
	"github.com/fabfab/mini-rag/retrieval"
	"github.com/fabfab/mini-rag/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "query":
		queryCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "listen address for the HTTP API")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := api.New(logger)

	// The pipeline initializes in the background so liveness is reachable
	// immediately; queries get a not-ready response until the swap happens.
	go func() {
		pipeline, cleanup, err := buildPipeline(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("initialize pipeline: %v", err)
		}
		defer cleanup()

		srv.SetPipeline(pipeline)
		logger.Printf("pipeline ready (store=%s, embeddings=%s/%s, rerank=%s)",
			cfg.StoreKind, cfg.Embeddings.Provider, cfg.Embeddings.Model, cfg.Rerank.Provider)
		<-ctx.Done()
	}()

	if err := srv.Start(ctx, *addr); err != nil {
		logger.Fatalf("http server: %v", err)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := flags.String("file", "", "path to a .txt or .pdf file to ingest")
	text := flags.String("text", "", "raw text to ingest")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	if *file == "" && strings.TrimSpace(*text) == "" {
		logger.Fatal("provide --file or --text")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("initialize pipeline: %v", err)
	}
	defer cleanup()

	var docs []ingestion.Document
	switch {
	case *file != "":
		docs, err = loadFile(*file)
		if err != nil {
			logger.Fatalf("load %s: %v", *file, err)
		}
	default:
		docs = []ingestion.Document{ingestion.NewTextDocument(*text, "")}
	}

	count, err := pipeline.Ingestor.Ingest(ctx, docs)
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
	logger.Printf("ingested %d chunks", count)
}

func queryCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	question := flags.String("question", "", "question to ask")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse query flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		logger.Fatal("provide --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("initialize pipeline: %v", err)
	}
	defer cleanup()

	resp, err := pipeline.Answerer.Answer(ctx, *question)
	if err != nil {
		logger.Fatalf("query failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, source := range resp.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}
}

// buildPipeline constructs the shared clients and services once. Everything
// it returns is safe for concurrent read-only use.
func buildPipeline(ctx context.Context, cfg config.Config, logger *log.Logger) (*api.Pipeline, func(), error) {
	cleanup := func() {}

	var store vectorstore.Store
	switch cfg.StoreKind {
	case config.StorePgvector:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("postgres connection: %w", err)
		}
		cleanup = pool.Close
		store = vectorstore.NewPostgresStore(pool)
	case config.StoreMemory:
		store = vectorstore.NewMemoryStore()
	default:
		return nil, cleanup, fmt.Errorf("unknown vector store: %s", cfg.StoreKind)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("llm setup: %w", err)
	}

	reranker, err := rerank.NewReranker(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("reranker setup: %w", err)
	}

	counter, err := ingestion.NewTiktokenCounter()
	if err != nil {
		return nil, cleanup, fmt.Errorf("tokenizer setup: %w", err)
	}

	splitter := ingestion.NewSplitter(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap, counter)
	ingestSvc := ingestion.NewService(store, embedder, splitter, logger, cfg.Embeddings.Dimension)
	retrievalSvc := retrieval.NewService(store, embedder, reranker, logger, retrieval.Options{
		FetchK: cfg.Pipeline.FetchK,
		PoolK:  cfg.Pipeline.PoolK,
		TopN:   cfg.Pipeline.TopN,
	})
	chatSvc := chat.NewService(retrievalSvc, llmClient, logger)

	return &api.Pipeline{Ingestor: ingestSvc, Answerer: chatSvc}, cleanup, nil
}

func loadFile(path string) ([]ingestion.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ingestion.LoadPDF(data, filepath.Base(path))
	default:
		return []ingestion.Document{ingestion.NewTextDocument(string(data), filepath.Base(path))}, nil
	}
}

func printUsage() {
	fmt.Println("Usage: mini-rag <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API (ingest, query, health)")
	fmt.Println("  ingest   Ingest a text or PDF file into the vector index")
	fmt.Println("  query    Ask a one-off question against the index")
}
