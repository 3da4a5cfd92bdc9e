package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// upsertNode merges a node by label and id and overlays its properties.
// Last write wins per property; repeated creation never duplicates the node.
// Labels come from package constants, never from caller input, so string
// interpolation into the Cypher text is safe.
func (s *Store) upsertNode(ctx context.Context, database, label, id string, props map[string]any) error {
	if id == "" {
		return fmt.Errorf("graph: %s id must not be empty", label)
	}
	cypher := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props", label)
	return s.write(ctx, database, cypher, map[string]any{"id": id, "props": props})
}

// getNodeProps fetches a node's raw property map, or ErrNotFound.
func (s *Store) getNodeProps(ctx context.Context, database, label, id string) (map[string]any, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n LIMIT 1", label)
	records, err := s.readRecords(ctx, database, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	v, ok := records[0].Get("n")
	if !ok {
		return nil, ErrNotFound
	}
	props, ok := nodeProps(v)
	if !ok {
		return nil, fmt.Errorf("graph: unexpected record shape for %s %q", label, id)
	}
	return props, nil
}

// CreateDecision upserts a typed Decision node.
func (s *Store) CreateDecision(ctx context.Context, database string, d model.Decision) error {
	return s.upsertNode(ctx, database, LabelDecision, d.ID, decisionToProps(d))
}

// CreateDecisionRaw upserts a Decision node from a validated flat payload.
// The payload shape must already have passed model.ValidatePayload.
func (s *Store) CreateDecisionRaw(ctx context.Context, database, id string, payload map[string]any) error {
	if err := model.ValidatePayload(payload); err != nil {
		return fmt.Errorf("graph: invalid decision payload: %w", err)
	}
	return s.upsertNode(ctx, database, LabelDecision, id, payload)
}

// GetDecision fetches a typed Decision, or ErrNotFound.
func (s *Store) GetDecision(ctx context.Context, database, id string) (model.Decision, error) {
	props, err := s.getNodeProps(ctx, database, LabelDecision, id)
	if err != nil {
		return model.Decision{}, err
	}
	return decisionFromProps(props), nil
}

// GetDecisionRaw fetches a Decision node's stored property map, including
// any store-added fields, or ErrNotFound.
func (s *Store) GetDecisionRaw(ctx context.Context, database, id string) (map[string]any, error) {
	return s.getNodeProps(ctx, database, LabelDecision, id)
}

// UpsertActor creates or updates an Actor node. Last write wins.
func (s *Store) UpsertActor(ctx context.Context, database string, a model.Actor) error {
	props := map[string]any{
		"name": a.Name,
		"type": a.Type,
	}
	if a.Model != "" {
		props["model"] = a.Model
	}
	return s.upsertNode(ctx, database, LabelActor, a.ID, props)
}

// UpsertEvidence creates or updates an Evidence node.
func (s *Store) UpsertEvidence(ctx context.Context, database string, e model.Evidence) error {
	props := map[string]any{}
	if e.Type != "" {
		props["type"] = e.Type
	}
	if e.Description != "" {
		props["description"] = e.Description
	}
	if e.Issue != "" {
		props["issue"] = e.Issue
	}
	return s.upsertNode(ctx, database, LabelEvidence, e.ID, props)
}

// UpsertPolicy creates or updates a Policy node.
func (s *Store) UpsertPolicy(ctx context.Context, database string, p model.Policy) error {
	return s.upsertNode(ctx, database, LabelPolicy, p.ID, policyToProps(p))
}

// UpsertPolicyCategory creates or updates a PolicyCategory node.
func (s *Store) UpsertPolicyCategory(ctx context.Context, database string, c model.PolicyCategory) error {
	props := map[string]any{"name": c.Name}
	if c.Description != "" {
		props["description"] = c.Description
	}
	return s.upsertNode(ctx, database, LabelPolicyCategory, c.ID, props)
}

// CreateApproval creates an Approval node recording a human override.
func (s *Store) CreateApproval(ctx context.Context, database string, a model.Approval) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	props := map[string]any{
		"approver":   a.Approver,
		"reason":     a.Reason,
		"created_at": created.UTC().Format(time.RFC3339),
	}
	return s.upsertNode(ctx, database, LabelApproval, a.ID, props)
}
