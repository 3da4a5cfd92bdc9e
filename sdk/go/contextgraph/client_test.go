package contextgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope wraps v the way the server does.
func envelope(v any) map[string]any {
	return map[string]any{"data": v, "meta": map[string]any{"request_id": "req-1"}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Token: "test-token"})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err, "BaseURL is required")

	c, err := NewClient(Config{BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL, "trailing slash trimmed")
}

func TestDecide(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/decide", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(envelope(DecideResponse{
			DecisionID: "dec-abc123def456",
			Decision:   VerdictApprove,
			Confidence: 0.9,
		}))
	})

	resp, err := client.Decide(context.Background(), DecideRequest{
		Request:        "Customer wants a refund",
		StringEvidence: []string{"customer since 2019"},
		Evidence:       []EvidenceItem{{ID: "ev-1", Type: "ticket"}},
		Actor:          "human-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "dec-abc123def456", resp.DecisionID)
	assert.Equal(t, VerdictApprove, resp.Decision)

	// String and structured evidence merged into one wire list.
	evidence, ok := gotBody["evidence"].([]any)
	require.True(t, ok)
	require.Len(t, evidence, 2)
	assert.Equal(t, "customer since 2019", evidence[0])
	obj, ok := evidence[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ev-1", obj["id"])
	assert.Equal(t, "human-7", gotBody["actor"])
}

func TestGetDecision(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decisions/dec-1", r.URL.Path)
		assert.Equal(t, "tenant-a", r.URL.Query().Get("database"))
		_ = json.NewEncoder(w).Encode(envelope(map[string]any{"id": "dec-1", "response": "APPROVE"}))
	})

	props, err := client.GetDecision(context.Background(), "dec-1", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "APPROVE", props["response"])
}

func TestGetSubgraph(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decisions/dec-1/subgraph", r.URL.Path)
		_ = json.NewEncoder(w).Encode(envelope(Subgraph{
			Decision: map[string]any{"id": "dec-1"},
			Actors:   []map[string]any{{"id": "agent-ai-001"}},
		}))
	})

	sub, err := client.GetSubgraph(context.Background(), "dec-1", "")
	require.NoError(t, err)
	assert.Equal(t, "dec-1", sub.Decision["id"])
	assert.Len(t, sub.Actors, 1)
}

func TestVerifyDecision(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decisions/dec-1/verify", r.URL.Path)
		_ = json.NewEncoder(w).Encode(envelope(VerifyResponse{DecisionID: "dec-1", Intact: true, ContentHash: "v1:abc"}))
	})

	resp, err := client.VerifyDecision(context.Background(), "dec-1", "")
	require.NoError(t, err)
	assert.True(t, resp.Intact)
}

func TestPolicies(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "refund,vip", r.URL.Query().Get("tags"))
			_ = json.NewEncoder(w).Encode(envelope(map[string]any{
				"policies": []Policy{{ID: "pol-1", Name: "Refund Policy", Severity: "strict"}},
			}))
		case http.MethodPost:
			var req UpsertPolicyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "pol-2", req.Policy.ID)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(envelope(map[string]any{"id": "pol-2"}))
		}
	})

	policies, err := client.PoliciesByTags(context.Background(), []string{"refund", "vip"}, "")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "strict", policies[0].Severity)

	err = client.UpsertPolicy(context.Background(), UpsertPolicyRequest{
		Policy: Policy{ID: "pol-2", Name: "New Policy"},
	})
	require.NoError(t, err)
}

func TestCreateApproval(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/approvals", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(envelope(ApprovalResponse{ID: "app-12345678", DecisionID: "dec-1"}))
	})

	resp, err := client.CreateApproval(context.Background(), ApprovalRequest{
		DecisionID: "dec-1",
		Approver:   "manager-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "app-12345678", resp.ID)
}

func TestErrorMapping(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "not_found", "message": "decision not found"},
		})
	})

	_, err := client.GetDecision(context.Background(), "dec-nope", "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Contains(t, apiErr.Message, "decision not found")
}

func TestNonEnvelopeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bad gateway")
}
