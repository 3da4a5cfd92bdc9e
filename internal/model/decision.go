package model

import (
	"fmt"
	"time"
)

// Verdict is the outcome of an orchestrated decision.
//
// The response parser passes unrecognized verdict strings through verbatim;
// VerdictUnknown is only the default for a response missing the field entirely.
type Verdict = string

const (
	VerdictApprove  Verdict = "APPROVE"
	VerdictDeny     Verdict = "DENY"
	VerdictEscalate Verdict = "ESCALATE"
	VerdictUnknown  Verdict = "UNKNOWN"
)

// Decision is a recorded verdict with its supporting context.
// Immutable after creation except for the later attachment of its embedding.
type Decision struct {
	ID                string    `json:"id"`
	Prompt            string    `json:"prompt"`
	Response          Verdict   `json:"response"`
	Confidence        float64   `json:"confidence"`
	Reasoning         string    `json:"reasoning"`
	PoliciesMentioned string    `json:"policies_mentioned"`
	UsedPrecedents    bool      `json:"used_precedents"`
	CreatedAt         time.Time `json:"created_at"`
	LLMModel          string    `json:"llm_model"`

	// ContentHash is a versioned SHA-256 digest of the fields above,
	// computed at creation for tamper evidence. Not part of the hash input.
	ContentHash string `json:"content_hash,omitempty"`

	// Embedding of the prompt text, attached after creation. Nil until then.
	// All embeddings in a corpus share one dimensionality.
	Embedding []float32 `json:"-"`
}

// Actor identifies who or what made a decision (human or agent).
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
}

// Evidence is a supporting fact node (ticket, outage record, customer history).
type Evidence struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Issue       string `json:"issue,omitempty"`
}

// Approval records a human override or exception grant for a decision.
type Approval struct {
	ID        string    `json:"id"`
	Approver  string    `json:"approver"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Subgraph is a decision plus everything directly connected to it,
// fetched in a single round trip.
type Subgraph struct {
	Decision  map[string]any   `json:"decision"`
	Actors    []map[string]any `json:"actors"`
	Evidence  []map[string]any `json:"evidence"`
	Policies  []map[string]any `json:"policies"`
	Approvals []map[string]any `json:"approvals"`
}

// Field length limits for decide requests. These bound what flows into the
// embedding pipeline and the LLM prompt.
const (
	MaxRequestLen  = 32 * 1024 // 32 KB
	MaxEvidenceLen = 16 * 1024 // 16 KB per item
)

// ValidatePayload checks that a raw decision payload is a flat map of
// scalar values (or lists of scalars). The store is a typed boundary:
// nested maps and other unknown shapes are rejected before any write.
func ValidatePayload(payload map[string]any) error {
	for k, v := range payload {
		if k == "" {
			return fmt.Errorf("payload key must not be empty")
		}
		switch val := v.(type) {
		case string, bool, float64, int, int64, float32, nil:
		case []any:
			for i, item := range val {
				switch item.(type) {
				case string, bool, float64, int, int64, float32:
				default:
					return fmt.Errorf("payload key %q: list element %d is not a scalar", k, i)
				}
			}
		case []string, []float64, []float32:
		default:
			return fmt.Errorf("payload key %q has unsupported type %T (payload must be flat)", k, v)
		}
	}
	return nil
}
