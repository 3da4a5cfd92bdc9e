package embedding

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripperFunc lets tests stub the OpenAI endpoint without a server.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newStubbedOpenAIProvider(body string, status int) *OpenAIProvider {
	p := NewOpenAIProvider("test-key", "text-embedding-3-small", 3)
	p.httpClient = &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     http.Header{"Content-Type": []string{"application/json"}},
			}, nil
		}),
	}
	return p
}

func TestOpenAIEmbedBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("reorders by index", func(t *testing.T) {
		p := newStubbedOpenAIProvider(`{"data":[
			{"index":1,"embedding":[0.4,0.5,0.6]},
			{"index":0,"embedding":[0.1,0.2,0.3]}
		]}`, http.StatusOK)

		vecs, err := p.EmbedBatch(ctx, []string{"first", "second"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vecs[0])
		assert.Equal(t, []float32{0.4, 0.5, 0.6}, vecs[1])
	})

	t.Run("missing vector in response errors", func(t *testing.T) {
		// A 200 whose data array skips an input must not yield a nil
		// vector with a nil error.
		p := newStubbedOpenAIProvider(`{"data":[
			{"index":0,"embedding":[0.1,0.2,0.3]}
		]}`, http.StatusOK)

		_, err := p.EmbedBatch(ctx, []string{"first", "second"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing vector for input 1")
	})

	t.Run("empty vector in response errors", func(t *testing.T) {
		p := newStubbedOpenAIProvider(`{"data":[
			{"index":0,"embedding":[]}
		]}`, http.StatusOK)

		_, err := p.EmbedBatch(ctx, []string{"only"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing vector for input 0")
	})

	t.Run("out of range index errors", func(t *testing.T) {
		p := newStubbedOpenAIProvider(`{"data":[
			{"index":5,"embedding":[0.1,0.2,0.3]}
		]}`, http.StatusOK)

		_, err := p.EmbedBatch(ctx, []string{"only"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid index 5")
	})

	t.Run("api error body surfaces", func(t *testing.T) {
		p := newStubbedOpenAIProvider(
			`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`,
			http.StatusTooManyRequests)

		_, err := p.EmbedBatch(ctx, []string{"only"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit_error")
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})

	t.Run("missing api key errors before any call", func(t *testing.T) {
		p := NewOpenAIProvider("", "text-embedding-3-small", 3)
		_, err := p.EmbedBatch(ctx, []string{"only"})
		require.Error(t, err)
	})
}

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider(4)
	assert.Equal(t, 4, p.Dimensions())

	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)
}
