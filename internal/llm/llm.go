// Package llm wraps large language model calls behind a minimal interface.
//
// The orchestrator only ever needs "prompt in, text out"; keeping the
// interface that small lets tests substitute a canned model and keeps
// provider churn out of the decision pipeline.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model generates a completion for a single prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// OpenAI calls the OpenAI chat completion API.
type OpenAI struct {
	client *openai.LLM
	model  string
}

// NewOpenAI creates an OpenAI-backed model. The model name is pinned by the
// caller; responses from different models parse differently enough that
// silently changing models mid-deployment would skew decision quality.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY must be set")
	}
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create openai client: %w", err)
	}
	return &OpenAI{client: client, model: model}, nil
}

// Model returns the pinned model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Generate sends the prompt and returns the raw completion text, trimmed.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.client, prompt)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}
