package contextgraph

// Decision verdicts returned by the decide pipeline. The server passes
// unrecognized model verdicts through verbatim, so treat these as the
// common cases rather than an exhaustive set.
const (
	VerdictApprove  = "APPROVE"
	VerdictDeny     = "DENY"
	VerdictEscalate = "ESCALATE"
	VerdictUnknown  = "UNKNOWN"
)

// EvidenceItem is a single structured evidence item in a decide request.
type EvidenceItem struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Issue       string `json:"issue,omitempty"`
}

// DecideRequest asks the server for an orchestrated decision.
// Evidence holds structured items; StringEvidence holds prompt-only text
// snippets. Both may be set; they are merged into one list on the wire.
type DecideRequest struct {
	Request        string
	Evidence       []EvidenceItem
	StringEvidence []string
	Actor          string
	Database       string
}

// DecideResponse is the orchestrated decision outcome.
type DecideResponse struct {
	DecisionID         string           `json:"decision_id"`
	Decision           string           `json:"decision"`
	Confidence         float64          `json:"confidence"`
	Reasoning          string           `json:"reasoning"`
	PoliciesConsidered int              `json:"policies_considered"`
	PrecedentsFound    int              `json:"precedents_found"`
	UsedPrecedents     bool             `json:"used_precedents"`
	PoliciesDetails    []Policy         `json:"policies_details"`
	PrecedentsDetails  []map[string]any `json:"precedents_details"`
}

// Policy is a company policy in the knowledge base.
type Policy struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	Severity            string   `json:"severity,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Active              *bool    `json:"active,omitempty"`
	RequiresApproval    bool     `json:"requires_approval,omitempty"`
	ApprovalLevel       string   `json:"approval_level,omitempty"`
	ExceptionConditions string   `json:"exception_conditions,omitempty"`
}

// Subgraph is a decision plus everything directly connected to it.
type Subgraph struct {
	Decision  map[string]any   `json:"decision"`
	Actors    []map[string]any `json:"actors"`
	Evidence  []map[string]any `json:"evidence"`
	Policies  []map[string]any `json:"policies"`
	Approvals []map[string]any `json:"approvals"`
}

// VerifyResponse reports whether a decision's stored content hash matches
// its recomputed hash.
type VerifyResponse struct {
	DecisionID  string `json:"decision_id"`
	Intact      bool   `json:"intact"`
	ContentHash string `json:"content_hash"`
}

// HealthResponse is the server's health report.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ApprovalRequest records a human approval of a decision.
type ApprovalRequest struct {
	ID         string `json:"id,omitempty"`
	DecisionID string `json:"decision_id"`
	Approver   string `json:"approver"`
	Reason     string `json:"reason,omitempty"`
	Database   string `json:"database,omitempty"`
}

// ApprovalResponse identifies the stored approval.
type ApprovalResponse struct {
	ID         string `json:"id"`
	DecisionID string `json:"decision_id"`
}

// UpsertPolicyRequest creates or updates a policy, optionally placing it in
// a category and marking which older policy it supersedes.
type UpsertPolicyRequest struct {
	Policy     Policy `json:"policy"`
	CategoryID string `json:"category_id,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
	Database   string `json:"database,omitempty"`
}
