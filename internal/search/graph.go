package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// Corpus supplies the embedded decisions to scan. *graph.Store satisfies it.
type Corpus interface {
	EmbeddedDecisions(ctx context.Context, database string) ([]model.Decision, error)
}

// GraphIndex is an exact brute-force index over the graph store's embedded
// decisions. Every TopK call re-reads the corpus, so results always reflect
// the latest writes without any sync machinery.
type GraphIndex struct {
	corpus Corpus
}

// NewGraphIndex creates a brute-force index backed by the given corpus.
func NewGraphIndex(corpus Corpus) *GraphIndex {
	return &GraphIndex{corpus: corpus}
}

// TopK scans all embedded decisions and returns the k most similar, ranked
// by cosine similarity descending. Ties keep corpus order (stable sort) so
// repeated calls over the same corpus rank identically. Decisions whose
// stored vector does not match the query's dimensionality are skipped
// rather than failing the whole search.
func (g *GraphIndex) TopK(ctx context.Context, database string, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}

	decisions, err := g.corpus.EmbeddedDecisions(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("search: load corpus: %w", err)
	}

	results := make([]Result, 0, len(decisions))
	for _, d := range decisions {
		if len(d.Embedding) != len(query) {
			continue
		}
		sim, err := Cosine(query, d.Embedding)
		if err != nil {
			continue
		}
		results = append(results, Result{Decision: d, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
