package model

// Severity orders policies by how strictly they bind a decision.
type Severity string

const (
	SeverityFlexible Severity = "flexible"
	SeverityModerate Severity = "moderate"
	SeverityStrict   Severity = "strict"
)

// severityRank maps severities to their position in the flexible < moderate < strict order.
var severityRank = map[Severity]int{
	SeverityFlexible: 0,
	SeverityModerate: 1,
	SeverityStrict:   2,
}

// Rank returns the ordinal position of the severity. Unknown severities rank
// below flexible so malformed reference data sinks to the end of strict-first lists.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// Policy is an organizational rule or guideline. Read-mostly reference data;
// lifecycle is managed by the knowledge-base loader, not the orchestrator.
type Policy struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Tags        []string `json:"tags"`

	// Active is a tri-state flag: nil (absent) and true both mean active,
	// an explicit false excludes the policy from retrieval.
	Active *bool `json:"active,omitempty"`

	RequiresApproval    bool   `json:"requires_approval,omitempty"`
	ApprovalLevel       string `json:"approval_level,omitempty"`
	ExceptionConditions string `json:"exception_conditions,omitempty"`
}

// IsActive reports whether the policy should be returned by retrieval.
func (p Policy) IsActive() bool {
	return p.Active == nil || *p.Active
}

// PolicyCategory groups related policies (e.g. "Refunds", "Customer Service").
type PolicyCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
