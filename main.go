package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"legal-rag/chunk"
	"legal-rag/config"
	"legal-rag/crossref"
	"legal-rag/extract"
	"legal-rag/ingest"
	"legal-rag/llmclient"
	"legal-rag/rag"
	"legal-rag/vecindex"
	"legal-rag/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	embedder, err := llmclient.NewEmbeddingClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedding client", zap.Error(err))
	}
	// The embedding dimension must match the index dimension or nothing
	// that gets upserted will ever be queryable.
	if err := embedder.VerifyDimension(ctx); err != nil {
		logger.Fatal("Embedding service verification failed", zap.Error(err))
	}

	index, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize vector index", zap.Error(err))
	}

	graph := crossref.LoadGraph(cfg.CrossRefPath, logger)
	crossrefs := crossref.NewEngine(graph, index, logger)
	if err := crossrefs.RebuildFromIndex(ctx); err != nil {
		logger.Warn("Could not rebuild cross-reference entities from index", zap.Error(err))
	}

	chain := rag.NewCitationChain()
	searcher := rag.NewHybridSearcher(index, embedder, logger)
	assembler := rag.NewAssembler(chain, cfg.ContextMaxChars)
	generator := llmclient.New(cfg, logger)
	orchestrator := rag.NewOrchestrator(searcher, assembler, generator,
		cfg.SearchTopK, cfg.LLMMaxTokens, cfg.LLMTemperature, logger)

	extractor := extract.New(cfg.OCRBinary, logger)
	chunker := chunk.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, logger)
	manager := ingest.NewManager(extractor, chunker, embedder, index, chain, crossrefs,
		cfg.UploadDir, cfg.EmbedBatchSize, logger)

	webServer := web.NewServer(web.Dependencies{
		Orchestrator: orchestrator,
		Searcher:     searcher,
		Index:        index,
		Manager:      manager,
		CrossRefs:    crossrefs,
	}, logger, cfg)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.WebHost, cfg.WebPort)
	logger.Info("Starting legal research assistant", zap.String("address", addr))
	if err := webServer.Start(ctx, addr); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}

func buildIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (vecindex.Index, error) {
	switch cfg.VectorBackend {
	case "chromem":
		return vecindex.NewChromemIndex(cfg.ChromemPersistPath, cfg.IndexName, cfg.EmbeddingDimension, logger)
	case "pgvector":
		if strings.TrimSpace(cfg.PostgresURL) == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required for the pgvector backend")
		}
		return vecindex.NewPgvectorIndex(ctx, cfg.PostgresURL, cfg.IndexName, cfg.EmbeddingDimension, logger)
	case "memory":
		return vecindex.NewMemoryIndex(cfg.EmbeddingDimension), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
