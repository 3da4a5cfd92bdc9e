package graph

import (
	"context"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// DecisionSubgraph returns a decision and all its directly connected actors,
// evidence, policies, and approvals in a single round trip.
// Returns ErrNotFound when the decision itself does not exist.
func (s *Store) DecisionSubgraph(ctx context.Context, database, decisionID string) (model.Subgraph, error) {
	cypher := `
	MATCH (d:Decision {id: $id})
	OPTIONAL MATCH (a:Actor)-[:MADE]->(d)
	OPTIONAL MATCH (d)-[:JUSTIFIED_BY]->(e:Evidence)
	OPTIONAL MATCH (d)-[:FOLLOWS|OVERRIDES]->(p:Policy)
	OPTIONAL MATCH (ap:Approval)-[:APPROVED]->(d)
	RETURN d, collect(DISTINCT a) AS actors, collect(DISTINCT e) AS evidence,
	       collect(DISTINCT p) AS policies, collect(DISTINCT ap) AS approvals`
	records, err := s.readRecords(ctx, database, cypher, map[string]any{"id": decisionID})
	if err != nil {
		return model.Subgraph{}, err
	}
	if len(records) == 0 {
		return model.Subgraph{}, ErrNotFound
	}

	rec := records[0]
	sub := model.Subgraph{
		Actors:    []map[string]any{},
		Evidence:  []map[string]any{},
		Policies:  []map[string]any{},
		Approvals: []map[string]any{},
	}

	if v, ok := rec.Get("d"); ok {
		if props, ok := nodeProps(v); ok {
			sub.Decision = props
		}
	}
	if sub.Decision == nil {
		return model.Subgraph{}, ErrNotFound
	}

	sub.Actors = collectNodes(rec, "actors")
	sub.Evidence = collectNodes(rec, "evidence")
	sub.Policies = collectNodes(rec, "policies")
	sub.Approvals = collectNodes(rec, "approvals")
	return sub, nil
}

// collectNodes extracts property maps from a collect() column, dropping the
// nulls that OPTIONAL MATCH produces when nothing is connected.
func collectNodes(rec interface{ Get(string) (any, bool) }, key string) []map[string]any {
	out := []map[string]any{}
	v, ok := rec.Get(key)
	if !ok {
		return out
	}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if item == nil {
			continue
		}
		if props, ok := nodeProps(item); ok {
			out = append(out, props)
		}
	}
	return out
}
