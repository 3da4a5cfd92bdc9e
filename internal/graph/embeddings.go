package graph

import (
	"context"
	"fmt"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// AttachEmbedding stores an embedding vector on an existing Decision node.
// Attaching to a missing decision is a no-op (MATCH finds nothing).
// An empty vector is rejected so a failed embedding call can never poison
// the precedent corpus.
func (s *Store) AttachEmbedding(ctx context.Context, database, decisionID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("graph: embedding must not be empty")
	}
	cypher := "MATCH (d:Decision {id: $id}) SET d.embedding = $embedding"
	return s.write(ctx, database, cypher, map[string]any{
		"id":        decisionID,
		"embedding": vecToProp(vec),
	})
}

// EmbeddedDecisions returns every decision that carries an embedding.
// This is the corpus for the brute-force precedent scan; an empty corpus
// is an empty slice, not an error.
func (s *Store) EmbeddedDecisions(ctx context.Context, database string) ([]model.Decision, error) {
	cypher := `
	MATCH (d:Decision)
	WHERE d.embedding IS NOT NULL
	RETURN d`
	records, err := s.readRecords(ctx, database, cypher, nil)
	if err != nil {
		return nil, err
	}

	decisions := make([]model.Decision, 0, len(records))
	for _, rec := range records {
		v, ok := rec.Get("d")
		if !ok {
			continue
		}
		if props, ok := nodeProps(v); ok {
			decisions = append(decisions, decisionFromProps(props))
		}
	}
	return decisions, nil
}
