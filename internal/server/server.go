package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/DevTechJr/context-graphs/api"
	"github.com/DevTechJr/context-graphs/internal/auth"
	"github.com/DevTechJr/context-graphs/internal/ratelimit"
)

// Server is the decision graph HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// JWTMgr, MCPServer, and Limiter are optional (nil = disabled).
type ServerConfig struct {
	Store        GraphStore
	Orchestrator Decider
	JWTMgr       *auth.JWTManager
	MCPServer    *mcpserver.MCPServer
	Limiter      ratelimit.Limiter
	Logger       *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Orchestrator:        cfg.Orchestrator,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Health and API description (no auth).
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})

	// Decision trace endpoints.
	mux.HandleFunc("POST /v1/decisions", h.HandleCreateDecision)
	mux.HandleFunc("GET /v1/decisions/{id}", h.HandleGetDecision)
	mux.HandleFunc("GET /v1/decisions/{id}/subgraph", h.HandleDecisionSubgraph)
	mux.HandleFunc("GET /v1/decisions/{id}/verify", h.HandleVerifyDecision)

	// Orchestrated decision pipeline.
	mux.HandleFunc("POST /v1/decide", h.HandleDecide)

	// Knowledge base.
	mux.HandleFunc("GET /v1/policies", h.HandleListPolicies)
	mux.HandleFunc("POST /v1/policies", h.HandleUpsertPolicy)

	// Human overrides.
	mux.HandleFunc("POST /v1/approvals", h.HandleCreateApproval)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Middleware chain (outermost executes first): request ID, security
	// headers, rate limit, tracing, logging, auth, recovery, handler.
	// The limiter sits before tracing so rejected requests don't emit spans.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = ratelimit.Middleware(cfg.Limiter, ratelimit.ClientIPKey, func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	})(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// decodeJSONBody decodes a JSON request body, rejecting unknown fields.
func decodeJSONBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
