package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevTechJr/context-graphs/internal/model"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors score 1", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("opposite vectors score -1", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 0}, []float32{-1, 0})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sim, 1e-9)
	})

	t.Run("zero norm yields 0 not NaN", func(t *testing.T) {
		sim, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, 0.0, sim)

		sim, err = Cosine([]float32{1, 2, 3}, []float32{0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, 0.0, sim)
	})

	t.Run("scale invariant", func(t *testing.T) {
		a, err := Cosine([]float32{1, 2, 3}, []float32{4, 5, 6})
		require.NoError(t, err)
		b, err := Cosine([]float32{10, 20, 30}, []float32{4, 5, 6})
		require.NoError(t, err)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("dimension mismatch errors", func(t *testing.T) {
		_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
		assert.Error(t, err)
	})
}

// fakeCorpus satisfies Corpus with an in-memory decision list.
type fakeCorpus struct {
	decisions []model.Decision
	err       error
}

func (f *fakeCorpus) EmbeddedDecisions(_ context.Context, _ string) ([]model.Decision, error) {
	return f.decisions, f.err
}

func dec(id string, vec ...float32) model.Decision {
	return model.Decision{ID: id, Embedding: vec}
}

func TestGraphIndexTopK(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by similarity descending", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{decisions: []model.Decision{
			dec("dec-far", -1, 0),
			dec("dec-near", 1, 0.1),
			dec("dec-mid", 0, 1),
		}})

		results, err := idx.TopK(ctx, "", []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "dec-near", results[0].Decision.ID)
		assert.Equal(t, "dec-mid", results[1].Decision.ID)
		assert.Equal(t, "dec-far", results[2].Decision.ID)
		assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
		assert.GreaterOrEqual(t, results[1].Similarity, results[2].Similarity)
	})

	t.Run("truncates to k", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{decisions: []model.Decision{
			dec("a", 1, 0),
			dec("b", 0.9, 0.1),
			dec("c", 0.8, 0.2),
		}})

		results, err := idx.TopK(ctx, "", []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("empty corpus yields empty slice", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{})
		results, err := idx.TopK(ctx, "", []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ties keep corpus order", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{decisions: []model.Decision{
			dec("first", 2, 0),
			dec("second", 4, 0), // same direction, same cosine
		}})

		results, err := idx.TopK(ctx, "", []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "first", results[0].Decision.ID)
		assert.Equal(t, "second", results[1].Decision.ID)
	})

	t.Run("skips mismatched dimensionalities", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{decisions: []model.Decision{
			dec("good", 1, 0),
			dec("bad", 1, 0, 0),
		}})

		results, err := idx.TopK(ctx, "", []float32{1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "good", results[0].Decision.ID)
	})

	t.Run("k of zero yields empty", func(t *testing.T) {
		idx := NewGraphIndex(&fakeCorpus{decisions: []model.Decision{dec("a", 1, 0)}})
		results, err := idx.TopK(ctx, "", []float32{1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestParseQdrantURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		useTLS  bool
		wantErr bool
	}{
		{name: "https with REST port maps to gRPC", url: "https://xyz.cloud.qdrant.io:6333", host: "xyz.cloud.qdrant.io", port: 6334, useTLS: true},
		{name: "http localhost", url: "http://localhost:6333", host: "localhost", port: 6334, useTLS: false},
		{name: "explicit gRPC port kept", url: "http://localhost:6334", host: "localhost", port: 6334, useTLS: false},
		{name: "no port defaults to gRPC", url: "https://qdrant.example.com", host: "qdrant.example.com", port: 6334, useTLS: true},
		{name: "garbage", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, useTLS, err := parseQdrantURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
			assert.Equal(t, tt.useTLS, useTLS)
		})
	}
}
