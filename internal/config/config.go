// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Neo4j settings.
	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string // Default logical database; requests may override per call.
	Neo4jTimeout  time.Duration
	Neo4jMaxPool  int

	// Embedding provider settings.
	EmbeddingProvider   string // "auto", "openai", "ollama", or "noop"
	OpenAIAPIKey        string
	EmbeddingModel      string
	EmbeddingDimensions int // Vector dimensions; must match the chosen model's output.
	OllamaURL           string
	OllamaModel         string

	// LLM settings.
	LLMModel string

	// Orchestrator settings.
	PrecedentTopK    int
	DefaultActorID   string
	DefaultActorName string

	// Qdrant settings (optional ANN precedent index; empty URL = brute-force scan).
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Auth settings (optional; empty secret disables auth).
	JWTSecret     string
	JWTExpiration time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64

	// Rate limiting (per client IP; 0 RPS disables).
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("CONTEXTGRAPH_PORT", 8080),
		ReadTimeout:         envDuration("CONTEXTGRAPH_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("CONTEXTGRAPH_WRITE_TIMEOUT", 120*time.Second),
		Neo4jURI:            envStr("NEO4J_URI", ""),
		Neo4jUsername:       envStr("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword:       envStr("NEO4J_PASSWORD", ""),
		Neo4jDatabase:       envStr("NEO4J_DATABASE", ""),
		Neo4jTimeout:        envDuration("NEO4J_TIMEOUT", 10*time.Second),
		Neo4jMaxPool:        envInt("NEO4J_MAX_POOL_SIZE", 50),
		EmbeddingProvider:   envStr("CONTEXTGRAPH_EMBEDDING_PROVIDER", "auto"),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		EmbeddingModel:      envStr("CONTEXTGRAPH_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: envInt("CONTEXTGRAPH_EMBEDDING_DIMENSIONS", 1536),
		OllamaURL:           envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envStr("OLLAMA_MODEL", "mxbai-embed-large"),
		LLMModel:            envStr("CONTEXTGRAPH_LLM_MODEL", "gpt-4.1-nano"),
		PrecedentTopK:       envInt("CONTEXTGRAPH_PRECEDENT_TOP_K", 5),
		DefaultActorID:      envStr("CONTEXTGRAPH_ACTOR_ID", "agent-ai-001"),
		DefaultActorName:    envStr("CONTEXTGRAPH_ACTOR_NAME", "DecisionBot"),
		QdrantURL:           envStr("QDRANT_URL", ""),
		QdrantAPIKey:        envStr("QDRANT_API_KEY", ""),
		QdrantCollection:    envStr("QDRANT_COLLECTION", "decisions"),
		JWTSecret:           envStr("CONTEXTGRAPH_JWT_SECRET", ""),
		JWTExpiration:       envDuration("CONTEXTGRAPH_JWT_EXPIRATION", 24*time.Hour),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "contextgraph"),
		LogLevel:            envStr("CONTEXTGRAPH_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("CONTEXTGRAPH_MAX_REQUEST_BODY_BYTES", 1*1024*1024)),
		RateLimitRPS:        envFloat("CONTEXTGRAPH_RATE_LIMIT_RPS", 0),
		RateLimitBurst:      envInt("CONTEXTGRAPH_RATE_LIMIT_BURST", 20),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
// Missing store credentials are a startup-time fatal condition; embedding and
// LLM credentials are validated lazily by the components that need them.
func (c Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("config: NEO4J_URI is required")
	}
	if c.Neo4jUsername == "" || c.Neo4jPassword == "" {
		return fmt.Errorf("config: NEO4J_USERNAME and NEO4J_PASSWORD are required")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("config: CONTEXTGRAPH_EMBEDDING_DIMENSIONS must be positive")
	}
	if c.PrecedentTopK <= 0 {
		return fmt.Errorf("config: CONTEXTGRAPH_PRECEDENT_TOP_K must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: CONTEXTGRAPH_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("config: CONTEXTGRAPH_RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("config: CONTEXTGRAPH_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
