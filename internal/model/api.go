package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Error codes returned in the standard error envelope.
const (
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeUpstreamError = "upstream_error"
	ErrCodeInternalError = "internal_error"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail carries a machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta is attached to every response for request correlation.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateDecisionRequest is the raw decision write shape: an id plus a flat
// property map, optionally targeting a logical database.
type CreateDecisionRequest struct {
	ID       string         `json:"id"`
	Payload  map[string]any `json:"payload"`
	Database string         `json:"database,omitempty"`
}

// EvidenceInput is a single evidence item in a decide request. Accepts either
// a bare string or a structured object. String evidence is embedded into the
// prompt text only and never persisted as a graph node; structured evidence
// with an explicit id is linked via JUSTIFIED_BY.
type EvidenceInput struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Issue       string `json:"issue,omitempty"`

	// Raw is set when the item was supplied as a bare string.
	Raw string `json:"-"`
}

// UnmarshalJSON accepts both `"some text"` and `{"id": ..., "type": ...}`.
func (e *EvidenceInput) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = EvidenceInput{Raw: s}
		return nil
	}

	type structured EvidenceInput
	var s structured
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("evidence must be a string or an object: %w", err)
	}
	*e = EvidenceInput(s)
	return nil
}

// IsString reports whether the item was supplied as a bare string.
func (e EvidenceInput) IsString() bool {
	return e.Raw != ""
}

// DecideRequest is the orchestrated decision input.
type DecideRequest struct {
	Request  string          `json:"request"`
	Evidence []EvidenceInput `json:"evidence,omitempty"`
	Actor    string          `json:"actor,omitempty"`
	Database string          `json:"database,omitempty"`
}

// Validate checks required fields and length limits.
func (r DecideRequest) Validate() error {
	if strings.TrimSpace(r.Request) == "" {
		return fmt.Errorf("request is required")
	}
	if len(r.Request) > MaxRequestLen {
		return fmt.Errorf("request exceeds maximum length of %d bytes", MaxRequestLen)
	}
	for i, ev := range r.Evidence {
		size := len(ev.Raw) + len(ev.Description) + len(ev.Issue)
		if size > MaxEvidenceLen {
			return fmt.Errorf("evidence[%d] exceeds maximum length of %d bytes", i, MaxEvidenceLen)
		}
	}
	return nil
}

// DecideResponse aggregates the orchestrated decision outcome plus the
// policy and precedent record lists for downstream display.
type DecideResponse struct {
	DecisionID         string           `json:"decision_id"`
	Decision           Verdict          `json:"decision"`
	Confidence         float64          `json:"confidence"`
	Reasoning          string           `json:"reasoning"`
	PoliciesConsidered int              `json:"policies_considered"`
	PrecedentsFound    int              `json:"precedents_found"`
	UsedPrecedents     bool             `json:"used_precedents"`
	PoliciesDetails    []Policy         `json:"policies_details"`
	PrecedentsDetails  []map[string]any `json:"precedents_details"`
}

// CreateApprovalRequest records a human override of a decision.
type CreateApprovalRequest struct {
	ID         string `json:"id,omitempty"`
	DecisionID string `json:"decision_id"`
	Approver   string `json:"approver"`
	Reason     string `json:"reason,omitempty"`
	Database   string `json:"database,omitempty"`
}

// UpsertPolicyRequest creates or updates a policy, optionally placing it in a
// category and marking which older policy it supersedes.
type UpsertPolicyRequest struct {
	Policy     Policy `json:"policy"`
	CategoryID string `json:"category_id,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
	Database   string `json:"database,omitempty"`
}
