package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevTechJr/context-graphs/internal/auth"
	"github.com/DevTechJr/context-graphs/internal/config"
	"github.com/DevTechJr/context-graphs/internal/graph"
	"github.com/DevTechJr/context-graphs/internal/llm"
	"github.com/DevTechJr/context-graphs/internal/mcp"
	"github.com/DevTechJr/context-graphs/internal/orchestrator"
	"github.com/DevTechJr/context-graphs/internal/ratelimit"
	"github.com/DevTechJr/context-graphs/internal/search"
	"github.com/DevTechJr/context-graphs/internal/server"
	"github.com/DevTechJr/context-graphs/internal/service/embedding"
	"github.com/DevTechJr/context-graphs/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("CONTEXTGRAPH_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("contextgraph starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to Neo4j.
	store, err := graph.New(ctx, graph.Config{
		URI:         cfg.Neo4jURI,
		Username:    cfg.Neo4jUsername,
		Password:    cfg.Neo4jPassword,
		Database:    cfg.Neo4jDatabase,
		Timeout:     cfg.Neo4jTimeout,
		MaxPoolSize: cfg.Neo4jMaxPool,
	}, logger)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := store.EnsureSchema(ctx, ""); err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}

	// Embedding provider.
	embedder := newEmbeddingProvider(cfg, logger)

	// LLM client.
	model, err := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	// Precedent index: Qdrant ANN when configured, brute-force graph scan
	// otherwise. Both rank by cosine similarity.
	var (
		index search.Index = search.NewGraphIndex(store)
		ann   orchestrator.ANNUpserter
	)
	if cfg.QdrantURL != "" {
		qdrantIndex, err := search.NewQdrantIndex(search.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dims:       uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
		}, store, logger)
		if err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
		defer func() { _ = qdrantIndex.Close() }()

		if err := qdrantIndex.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("qdrant ensure collection: %w", err)
		}
		index = qdrantIndex
		ann = qdrantIndex
		logger.Info("qdrant: enabled", "collection", cfg.QdrantCollection)
	} else {
		logger.Info("qdrant: disabled (no QDRANT_URL), using brute-force graph scan")
	}

	// Orchestration service (shared by HTTP and MCP).
	svc := orchestrator.New(store, embedder, index, model, ann, orchestrator.Config{
		TopK:             cfg.PrecedentTopK,
		LLMModel:         cfg.LLMModel,
		DefaultActorID:   cfg.DefaultActorID,
		DefaultActorName: cfg.DefaultActorName,
	}, logger)

	// Optional JWT auth.
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	if jwtMgr == nil {
		logger.Warn("auth disabled (no CONTEXTGRAPH_JWT_SECRET)")
	}

	// MCP server, mounted at /mcp.
	mcpSrv := mcp.New(svc, embedder, index, version, logger)

	// Optional per-IP rate limiting.
	var limiter ratelimit.Limiter
	if cfg.RateLimitRPS > 0 {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = memLimiter.Close() }()
		limiter = memLimiter
		logger.Info("rate limiting enabled", "rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		Orchestrator:        svc,
		JWTMgr:              jwtMgr,
		MCPServer:           mcpSrv.MCPServer(),
		Limiter:             limiter,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("contextgraph shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("contextgraph stopped")
	return nil
}

// newEmbeddingProvider creates an embedding provider based on configuration.
// Provider selection: "openai", "ollama", "noop", or "auto" (default).
// Auto mode prefers OpenAI when a key is present so precedent vectors match
// the corpus produced by the default model, then tries Ollama, else noop.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when CONTEXTGRAPH_EMBEDDING_PROVIDER=openai")
			return embedding.NewNoopProvider(dims)
		}
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModel, "dimensions", dims)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)

	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)

	case "noop":
		logger.Info("embedding provider: noop (precedent search disabled)")
		return embedding.NewNoopProvider(dims)

	case "auto":
		fallthrough
	default:
		if cfg.OpenAIAPIKey != "" {
			logger.Info("embedding provider: openai (auto-detected)", "model", cfg.EmbeddingModel, "dimensions", dims)
			return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)
		}
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)
		}
		logger.Warn("no embedding provider available, using noop (precedent search disabled)")
		return embedding.NewNoopProvider(dims)
	}
}

// ollamaReachable checks if an Ollama server is responding.
func ollamaReachable(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
