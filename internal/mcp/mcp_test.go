package mcp

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevTechJr/context-graphs/internal/model"
	"github.com/DevTechJr/context-graphs/internal/search"
	"github.com/DevTechJr/context-graphs/internal/service/embedding"
)

type fakeDecider struct {
	resp model.DecideResponse
	err  error
	seen *model.DecideRequest
}

func (f *fakeDecider) Decide(_ context.Context, req model.DecideRequest) (model.DecideResponse, error) {
	f.seen = &req
	return f.resp, f.err
}

type fakeIndex struct {
	results []search.Result
	err     error
}

func (f *fakeIndex) TopK(_ context.Context, _ string, _ []float32, _ int) ([]search.Result, error) {
	return f.results, f.err
}

func newTestServer(decider Decider, index search.Index) *Server {
	return New(decider, embedding.NewNoopProvider(8), index, "test", slog.New(slog.DiscardHandler))
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected TextContent")
	return text.Text
}

func TestHandleDecide(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		decider := &fakeDecider{resp: model.DecideResponse{
			DecisionID: "dec-abc123def456",
			Decision:   model.VerdictApprove,
			Confidence: 0.9,
		}}
		s := newTestServer(decider, &fakeIndex{})

		result, err := s.handleDecide(ctx, toolRequest("contextgraph_decide", map[string]any{
			"request":  "Customer wants a refund",
			"evidence": "Customer since 2019",
			"actor":    "human-7",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, parseToolText(t, result), "dec-abc123def456")

		require.NotNil(t, decider.seen)
		assert.Equal(t, "human-7", decider.seen.Actor)
		require.Len(t, decider.seen.Evidence, 1)
		assert.True(t, decider.seen.Evidence[0].IsString())
	})

	t.Run("missing request is a tool error", func(t *testing.T) {
		s := newTestServer(&fakeDecider{}, &fakeIndex{})
		result, err := s.handleDecide(ctx, toolRequest("contextgraph_decide", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("pipeline failure is a tool error", func(t *testing.T) {
		s := newTestServer(&fakeDecider{err: errors.New("llm down")}, &fakeIndex{})
		result, err := s.handleDecide(ctx, toolRequest("contextgraph_decide", map[string]any{
			"request": "refund",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, parseToolText(t, result), "llm down")
	})
}

func TestHandlePrecedents(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked precedents", func(t *testing.T) {
		idx := &fakeIndex{results: []search.Result{
			{Decision: model.Decision{ID: "dec-1", Prompt: "old refund", Response: model.VerdictDeny}, Similarity: 0.82},
		}}
		s := newTestServer(&fakeDecider{}, idx)

		result, err := s.handlePrecedents(ctx, toolRequest("contextgraph_precedents", map[string]any{
			"query": "refund request",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		text := parseToolText(t, result)
		assert.Contains(t, text, `"has_precedent": true`)
		assert.Contains(t, text, "dec-1")
	})

	t.Run("empty corpus has no precedent", func(t *testing.T) {
		s := newTestServer(&fakeDecider{}, &fakeIndex{})
		result, err := s.handlePrecedents(ctx, toolRequest("contextgraph_precedents", map[string]any{
			"query": "refund request",
		}))
		require.NoError(t, err)
		assert.Contains(t, parseToolText(t, result), `"has_precedent": false`)
	})

	t.Run("missing query is a tool error", func(t *testing.T) {
		s := newTestServer(&fakeDecider{}, &fakeIndex{})
		result, err := s.handlePrecedents(ctx, toolRequest("contextgraph_precedents", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
