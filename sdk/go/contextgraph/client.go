package contextgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the server (e.g. "http://localhost:8080").
	BaseURL string

	// Token is an optional JWT bearer token. Leave empty when the server
	// runs with auth disabled.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default
	// client with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the Context Graphs API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("contextgraph: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
	}, nil
}

// Health checks the server's health. Works without credentials.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Decide runs the orchestrated decision pipeline: the request is matched
// against policies and precedents, decided by the LLM, and recorded in the
// graph with full provenance.
func (c *Client) Decide(ctx context.Context, req DecideRequest) (*DecideResponse, error) {
	body := buildDecideBody(req)
	var resp DecideResponse
	if err := c.post(ctx, "/v1/decide", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDecision fetches a decision's stored properties. The embedding vector
// is never included.
func (c *Client) GetDecision(ctx context.Context, id, database string) (map[string]any, error) {
	var resp map[string]any
	if err := c.get(ctx, decisionPath(id, "", database), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSubgraph fetches a decision with its connected actors, evidence,
// policies, and approvals.
func (c *Client) GetSubgraph(ctx context.Context, id, database string) (*Subgraph, error) {
	var resp Subgraph
	if err := c.get(ctx, decisionPath(id, "subgraph", database), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyDecision recomputes a decision's content hash server-side and
// reports whether the record is intact.
func (c *Client) VerifyDecision(ctx context.Context, id, database string) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.get(ctx, decisionPath(id, "verify", database), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateDecision records a raw decision node from an id and a flat
// property map. Prefer Decide for orchestrated decisions.
func (c *Client) CreateDecision(ctx context.Context, id string, payload map[string]any, database string) error {
	body := map[string]any{"id": id, "payload": payload}
	if database != "" {
		body["database"] = database
	}
	return c.post(ctx, "/v1/decisions", body, nil)
}

// PoliciesByTags returns active policies matching any of the tags,
// severity-sorted (strict first).
func (c *Client) PoliciesByTags(ctx context.Context, tags []string, database string) ([]Policy, error) {
	params := url.Values{}
	params.Set("tags", strings.Join(tags, ","))
	if database != "" {
		params.Set("database", database)
	}
	return c.listPolicies(ctx, params)
}

// PoliciesByCategory returns active policies in the named category.
func (c *Client) PoliciesByCategory(ctx context.Context, category, database string) ([]Policy, error) {
	params := url.Values{}
	params.Set("category", category)
	if database != "" {
		params.Set("database", database)
	}
	return c.listPolicies(ctx, params)
}

func (c *Client) listPolicies(ctx context.Context, params url.Values) ([]Policy, error) {
	var resp struct {
		Policies []Policy `json:"policies"`
	}
	if err := c.get(ctx, "/v1/policies?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Policies, nil
}

// UpsertPolicy creates or updates a policy in the knowledge base.
func (c *Client) UpsertPolicy(ctx context.Context, req UpsertPolicyRequest) error {
	return c.post(ctx, "/v1/policies", req, nil)
}

// CreateApproval records a human approval of a decision.
func (c *Client) CreateApproval(ctx context.Context, req ApprovalRequest) (*ApprovalResponse, error) {
	var resp ApprovalResponse
	if err := c.post(ctx, "/v1/approvals", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Wire-format helpers
// ---------------------------------------------------------------------------

func decisionPath(id, suffix, database string) string {
	path := "/v1/decisions/" + url.PathEscape(id)
	if suffix != "" {
		path += "/" + suffix
	}
	if database != "" {
		path += "?database=" + url.QueryEscape(database)
	}
	return path
}

// buildDecideBody merges structured and string evidence into the mixed
// evidence list the server accepts.
func buildDecideBody(req DecideRequest) map[string]any {
	body := map[string]any{"request": req.Request}

	var evidence []any
	for _, s := range req.StringEvidence {
		evidence = append(evidence, s)
	}
	for _, item := range req.Evidence {
		evidence = append(evidence, item)
	}
	if len(evidence) > 0 {
		body["evidence"] = evidence
	}
	if req.Actor != "" {
		body["actor"] = req.Actor
	}
	if req.Database != "" {
		body["database"] = req.Database
	}
	return body
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("contextgraph: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("contextgraph: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("contextgraph: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("contextgraph: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("contextgraph: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}
	if dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("contextgraph: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		return json.Unmarshal(bodyBytes, dest)
	}
	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
