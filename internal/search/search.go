// Package search finds precedent decisions by embedding similarity.
//
// Two implementations exist: GraphIndex scans every embedded decision in the
// graph store (exact, fine for corpora in the thousands), and QdrantIndex
// delegates to an ANN index (approximate, for larger corpora). Both rank by
// cosine similarity and return the same Result shape, so the orchestrator
// never knows which one it holds.
package search

import (
	"context"
	"fmt"
	"math"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// Result is a precedent decision with its similarity to the query vector.
type Result struct {
	Decision   model.Decision
	Similarity float64
}

// Index retrieves the top-k most similar prior decisions.
// Implementations must be safe for concurrent use.
type Index interface {
	// TopK returns at most k decisions ranked by similarity descending.
	// An empty corpus yields an empty slice, not an error.
	TopK(ctx context.Context, database string, query []float32, k int) ([]Result, error)
}

// Cosine returns the cosine similarity of two vectors.
// Either vector having zero norm yields 0, not NaN. Mismatched
// dimensionalities are a caller bug and return an error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("search: dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
