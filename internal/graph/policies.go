package graph

import (
	"context"
	"sort"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// PoliciesByTags returns active policies matching any of the provided tags,
// ordered by severity descending (strict first) so the highest-stakes rules
// lead the prompt. A policy is active when its active flag is true or absent;
// an explicit false excludes it.
func (s *Store) PoliciesByTags(ctx context.Context, database string, tags []string) ([]model.Policy, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	cypher := `
	MATCH (p:Policy)
	WHERE ANY(tag IN $tags WHERE tag IN p.tags)
	AND (p.active IS NULL OR p.active = true)
	RETURN p`
	return s.queryPolicies(ctx, database, cypher, map[string]any{"tags": tags})
}

// PoliciesByCategory returns active policies in a category, matched by the
// category's name or id, ordered by severity descending.
func (s *Store) PoliciesByCategory(ctx context.Context, database, category string) ([]model.Policy, error) {
	cypher := `
	MATCH (p:Policy)-[:PART_OF]->(pc:PolicyCategory)
	WHERE (pc.name = $category OR pc.id = $category)
	AND (p.active IS NULL OR p.active = true)
	RETURN p`
	return s.queryPolicies(ctx, database, cypher, map[string]any{"category": category})
}

func (s *Store) queryPolicies(ctx context.Context, database, cypher string, params map[string]any) ([]model.Policy, error) {
	records, err := s.readRecords(ctx, database, cypher, params)
	if err != nil {
		return nil, err
	}

	policies := make([]model.Policy, 0, len(records))
	for _, rec := range records {
		v, ok := rec.Get("p")
		if !ok {
			continue
		}
		if props, ok := nodeProps(v); ok {
			policies = append(policies, policyFromProps(props))
		}
	}

	sortPoliciesBySeverity(policies)
	return policies, nil
}

// sortPoliciesBySeverity orders strict before moderate before flexible.
// The sort is stable so policies of equal severity keep store order.
func sortPoliciesBySeverity(policies []model.Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		return policies[i].Severity.Rank() > policies[j].Severity.Rank()
	})
}
