// Package mcp exposes the decision pipeline over the Model Context Protocol,
// so MCP-compatible agents can request decisions and look up precedents
// without going through the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/DevTechJr/context-graphs/internal/model"
	"github.com/DevTechJr/context-graphs/internal/search"
	"github.com/DevTechJr/context-graphs/internal/service/embedding"
)

// Decider runs the orchestrated decision pipeline.
type Decider interface {
	Decide(ctx context.Context, req model.DecideRequest) (model.DecideResponse, error)
}

// Server wraps the MCP server with the decision service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	decider   Decider
	embedder  embedding.Provider
	index     search.Index
	logger    *slog.Logger
}

// New creates and configures an MCP server with the decision tools.
func New(decider Decider, embedder embedding.Provider, index search.Index, version string, logger *slog.Logger) *Server {
	s := &Server{
		decider:  decider,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"context-graphs",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// contextgraph_decide — run the full decision pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("contextgraph_decide",
			mcplib.WithDescription(`Make a policy-grounded decision on a customer request.

The request is matched against company policies and similar past decisions
(precedents), synthesized by an LLM, and the full decision trace is recorded
in the graph for audit.

WHAT YOU GET BACK:
- decision: APPROVE, DENY, or ESCALATE
- confidence: the model's confidence (0.0-1.0)
- reasoning: why the verdict was reached
- decision_id: graph id of the recorded trace`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("request",
				mcplib.Description("The customer request to decide on, e.g. 'Customer wants a refund after the outage'"),
				mcplib.Required(),
			),
			mcplib.WithString("evidence",
				mcplib.Description("Optional supporting context, e.g. 'Customer since 2019, enterprise plan'"),
			),
			mcplib.WithString("actor",
				mcplib.Description("Optional actor id making the decision; defaults to the built-in agent"),
			),
			mcplib.WithString("database",
				mcplib.Description("Optional logical database to record the trace in"),
			),
		),
		s.handleDecide,
	)

	// contextgraph_precedents — semantic lookup of similar past decisions.
	s.mcpServer.AddTool(
		mcplib.NewTool("contextgraph_precedents",
			mcplib.WithDescription(`Find past decisions similar to a query, ranked by embedding similarity.

WHEN TO USE: before deciding, to see how similar requests were handled.
Read-only; nothing is recorded.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("query",
				mcplib.Description("Natural language description of the request to match"),
				mcplib.Required(),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum precedents to return"),
				mcplib.Min(1),
				mcplib.Max(50),
				mcplib.DefaultNumber(5),
			),
			mcplib.WithString("database",
				mcplib.Description("Optional logical database to search"),
			),
		),
		s.handlePrecedents,
	)
}

func (s *Server) handleDecide(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	req := model.DecideRequest{
		Request:  request.GetString("request", ""),
		Actor:    request.GetString("actor", ""),
		Database: request.GetString("database", ""),
	}
	if ev := request.GetString("evidence", ""); ev != "" {
		req.Evidence = []model.EvidenceInput{{Raw: ev}}
	}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	resp, err := s.decider.Decide(ctx, req)
	if err != nil {
		return errorResult(fmt.Sprintf("decide failed: %v", err)), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) handlePrecedents(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}
	limit := request.GetInt("limit", 5)
	database := request.GetString("database", "")

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return errorResult(fmt.Sprintf("embed query: %v", err)), nil
	}
	results, err := s.index.TopK(ctx, database, vec, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	type precedent struct {
		ID         string  `json:"id"`
		Prompt     string  `json:"prompt"`
		Response   string  `json:"response"`
		Reasoning  string  `json:"reasoning"`
		Confidence float64 `json:"confidence"`
		Similarity float64 `json:"similarity"`
	}
	out := struct {
		HasPrecedent bool        `json:"has_precedent"`
		Precedents   []precedent `json:"precedents"`
	}{
		HasPrecedent: len(results) > 0,
		Precedents:   make([]precedent, 0, len(results)),
	}
	for _, r := range results {
		out.Precedents = append(out.Precedents, precedent{
			ID:         r.Decision.ID,
			Prompt:     r.Decision.Prompt,
			Response:   r.Decision.Response,
			Reasoning:  r.Decision.Reasoning,
			Confidence: r.Decision.Confidence,
			Similarity: r.Similarity,
		})
	}
	return jsonResult(out), nil
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		IsError: true,
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
	}
}
