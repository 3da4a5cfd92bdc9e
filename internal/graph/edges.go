package graph

import (
	"context"
	"fmt"
)

// linkNodes creates a directed edge between two existing nodes with MERGE
// semantics: repeating the call is a no-op, and if either endpoint is
// missing the MATCH finds nothing and no edge is created. The silent no-op
// on dangling endpoints mirrors the fire-and-forget linking the orchestrator
// relies on; callers that need a hard guarantee must check node existence
// first.
func (s *Store) linkNodes(ctx context.Context, database, fromLabel, fromID, relType, toLabel, toID string) error {
	if fromID == "" || toID == "" {
		return fmt.Errorf("graph: %s edge requires both node ids", relType)
	}
	cypher := fmt.Sprintf(
		"MATCH (a:%s {id: $from_id}), (b:%s {id: $to_id}) MERGE (a)-[:%s]->(b)",
		fromLabel, toLabel, relType,
	)
	return s.write(ctx, database, cypher, map[string]any{"from_id": fromID, "to_id": toID})
}

// LinkActorMadeDecision creates (Actor)-[:MADE]->(Decision).
func (s *Store) LinkActorMadeDecision(ctx context.Context, database, actorID, decisionID string) error {
	return s.linkNodes(ctx, database, LabelActor, actorID, RelMade, LabelDecision, decisionID)
}

// LinkDecisionJustifiedByEvidence creates (Decision)-[:JUSTIFIED_BY]->(Evidence).
func (s *Store) LinkDecisionJustifiedByEvidence(ctx context.Context, database, decisionID, evidenceID string) error {
	return s.linkNodes(ctx, database, LabelDecision, decisionID, RelJustifiedBy, LabelEvidence, evidenceID)
}

// LinkDecisionOverridesPolicy creates (Decision)-[:OVERRIDES]->(Policy).
func (s *Store) LinkDecisionOverridesPolicy(ctx context.Context, database, decisionID, policyID string) error {
	return s.linkNodes(ctx, database, LabelDecision, decisionID, RelOverrides, LabelPolicy, policyID)
}

// LinkDecisionFollowsPolicy creates (Decision)-[:FOLLOWS]->(Policy).
func (s *Store) LinkDecisionFollowsPolicy(ctx context.Context, database, decisionID, policyID string) error {
	return s.linkNodes(ctx, database, LabelDecision, decisionID, RelFollows, LabelPolicy, policyID)
}

// LinkApprovalApprovedDecision creates (Approval)-[:APPROVED]->(Decision).
func (s *Store) LinkApprovalApprovedDecision(ctx context.Context, database, approvalID, decisionID string) error {
	return s.linkNodes(ctx, database, LabelApproval, approvalID, RelApproved, LabelDecision, decisionID)
}

// LinkPolicyPartOfCategory creates (Policy)-[:PART_OF]->(PolicyCategory).
func (s *Store) LinkPolicyPartOfCategory(ctx context.Context, database, policyID, categoryID string) error {
	return s.linkNodes(ctx, database, LabelPolicy, policyID, RelPartOf, LabelPolicyCategory, categoryID)
}

// LinkPolicySupersedes creates (NewPolicy)-[:SUPERSEDES]->(OldPolicy) for
// policy versioning.
func (s *Store) LinkPolicySupersedes(ctx context.Context, database, newPolicyID, oldPolicyID string) error {
	return s.linkNodes(ctx, database, LabelPolicy, newPolicyID, RelSupersedes, LabelPolicy, oldPolicyID)
}
