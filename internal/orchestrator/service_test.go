package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevTechJr/context-graphs/internal/integrity"
	"github.com/DevTechJr/context-graphs/internal/model"
	"github.com/DevTechJr/context-graphs/internal/search"
	"github.com/DevTechJr/context-graphs/internal/service/embedding"
)

// fakeStore records every write so tests can assert on the provenance trail.
type fakeStore struct {
	policies    []model.Policy
	policiesErr error
	createErr   error

	seenTags     []string
	decisions    []model.Decision
	embeddings   map[string][]float32
	actors       []model.Actor
	evidence     []model.Evidence
	madeLinks    [][2]string // actorID, decisionID
	evLinks      [][2]string // decisionID, evidenceID
	followsLinks [][2]string // decisionID, policyID
}

func newFakeStore(policies ...model.Policy) *fakeStore {
	return &fakeStore{policies: policies, embeddings: map[string][]float32{}}
}

func (f *fakeStore) PoliciesByTags(_ context.Context, _ string, tags []string) ([]model.Policy, error) {
	f.seenTags = tags
	return f.policies, f.policiesErr
}

func (f *fakeStore) CreateDecision(_ context.Context, _ string, d model.Decision) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeStore) AttachEmbedding(_ context.Context, _, id string, vec []float32) error {
	f.embeddings[id] = vec
	return nil
}

func (f *fakeStore) UpsertActor(_ context.Context, _ string, a model.Actor) error {
	f.actors = append(f.actors, a)
	return nil
}

func (f *fakeStore) UpsertEvidence(_ context.Context, _ string, e model.Evidence) error {
	f.evidence = append(f.evidence, e)
	return nil
}

func (f *fakeStore) LinkActorMadeDecision(_ context.Context, _, actorID, decisionID string) error {
	f.madeLinks = append(f.madeLinks, [2]string{actorID, decisionID})
	return nil
}

func (f *fakeStore) LinkDecisionJustifiedByEvidence(_ context.Context, _, decisionID, evidenceID string) error {
	f.evLinks = append(f.evLinks, [2]string{decisionID, evidenceID})
	return nil
}

func (f *fakeStore) LinkDecisionFollowsPolicy(_ context.Context, _, decisionID, policyID string) error {
	f.followsLinks = append(f.followsLinks, [2]string{decisionID, policyID})
	return nil
}

// fakeIndex returns canned precedents.
type fakeIndex struct {
	results []search.Result
	err     error
}

func (f *fakeIndex) TopK(_ context.Context, _ string, _ []float32, _ int) ([]search.Result, error) {
	return f.results, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newService(store Store, index search.Index, gen Generator) *Service {
	return New(store, embedding.NewNoopProvider(8), index, gen, nil, Config{
		TopK:     5,
		LLMModel: "gpt-4.1-nano",
	}, testLogger())
}

func approveModel() Generator {
	return ModelFunc(func(_ context.Context, _ string) (string, error) {
		return "DECISION: APPROVE\nCONFIDENCE: 0.9\nREASONING: Within policy.\nPOLICIES: Standard Refund Policy\nPRECEDENTS: Yes", nil
	})
}

// ModelFunc mirrors llm.ModelFunc without importing the llm package.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	policy := model.Policy{ID: "pol-refund", Name: "Standard Refund Policy", Severity: model.SeverityStrict}

	t.Run("happy path records full trace", func(t *testing.T) {
		store := newFakeStore(policy, model.Policy{ID: "pol-vip", Name: "VIP Policy"})
		idx := &fakeIndex{results: []search.Result{
			{Decision: model.Decision{ID: "dec-aaa", Prompt: "old refund"}, Similarity: 0.8},
		}}
		svc := newService(store, idx, approveModel())

		resp, err := svc.Decide(ctx, model.DecideRequest{Request: "Customer wants refund for outage"})
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^dec-[0-9a-f]{12}$`), resp.DecisionID)
		assert.Equal(t, model.VerdictApprove, resp.Decision)
		assert.Equal(t, 0.9, resp.Confidence)
		assert.Equal(t, "Within policy.", resp.Reasoning)
		assert.Equal(t, 2, resp.PoliciesConsidered)
		assert.Equal(t, 1, resp.PrecedentsFound)
		assert.True(t, resp.UsedPrecedents)
		assert.Len(t, resp.PoliciesDetails, 2)
		require.Len(t, resp.PrecedentsDetails, 1)
		assert.Equal(t, 0.8, resp.PrecedentsDetails[0]["similarity"])

		require.Len(t, store.decisions, 1)
		d := store.decisions[0]
		assert.Equal(t, resp.DecisionID, d.ID)
		assert.Equal(t, "Customer wants refund for outage", d.Prompt)
		assert.Equal(t, "gpt-4.1-nano", d.LLMModel)
		assert.Equal(t, "Standard Refund Policy", d.PoliciesMentioned)
		assert.False(t, d.CreatedAt.IsZero())
		assert.True(t, integrity.VerifyContentHash(d.ContentHash, d), "content hash covers the recorded fields")

		// Embedding attached under the new decision id.
		assert.Contains(t, store.embeddings, resp.DecisionID)

		// Default actor upserted and linked.
		require.Len(t, store.actors, 1)
		assert.Equal(t, "agent-ai-001", store.actors[0].ID)
		assert.Equal(t, "DecisionBot", store.actors[0].Name)
		require.Len(t, store.madeLinks, 1)
		assert.Equal(t, [2]string{"agent-ai-001", resp.DecisionID}, store.madeLinks[0])

		// Only the lead policy gets a FOLLOWS edge.
		require.Len(t, store.followsLinks, 1)
		assert.Equal(t, [2]string{resp.DecisionID, "pol-refund"}, store.followsLinks[0])
	})

	t.Run("tags flow into policy retrieval", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeIndex{}, approveModel())

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "vip outage"})
		require.NoError(t, err)
		assert.Equal(t, ExtractTags("vip outage"), store.seenTags)
	})

	t.Run("explicit actor is linked but not upserted", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeIndex{}, approveModel())

		resp, err := svc.Decide(ctx, model.DecideRequest{Request: "refund", Actor: "human-42"})
		require.NoError(t, err)
		assert.Empty(t, store.actors)
		require.Len(t, store.madeLinks, 1)
		assert.Equal(t, [2]string{"human-42", resp.DecisionID}, store.madeLinks[0])
	})

	t.Run("evidence linking", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeIndex{}, approveModel())

		resp, err := svc.Decide(ctx, model.DecideRequest{
			Request: "refund",
			Evidence: []model.EvidenceInput{
				{Raw: "loyal customer"},                             // string: prompt only
				{ID: "ev-1", Type: "ticket", Description: "t-123"}, // linked
				{Type: "note", Description: "no id"},               // unaddressable: skipped
			},
		})
		require.NoError(t, err)

		require.Len(t, store.evidence, 1)
		assert.Equal(t, "ev-1", store.evidence[0].ID)
		require.Len(t, store.evLinks, 1)
		assert.Equal(t, [2]string{resp.DecisionID, "ev-1"}, store.evLinks[0])
	})

	t.Run("no policies means no follows edge", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeIndex{}, approveModel())

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		require.NoError(t, err)
		assert.Empty(t, store.followsLinks)
	})

	t.Run("malformed llm response still records a decision", func(t *testing.T) {
		store := newFakeStore()
		gen := ModelFunc(func(_ context.Context, _ string) (string, error) {
			return "I am not sure what to say here.", nil
		})
		svc := newService(store, &fakeIndex{}, gen)

		resp, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		require.NoError(t, err)
		assert.Equal(t, model.VerdictUnknown, resp.Decision)
		assert.Equal(t, 0.5, resp.Confidence)
		require.Len(t, store.decisions, 1)
	})

	t.Run("prompt carries policies and precedents", func(t *testing.T) {
		var captured string
		gen := ModelFunc(func(_ context.Context, prompt string) (string, error) {
			captured = prompt
			return "DECISION: DENY", nil
		})
		store := newFakeStore(policy)
		idx := &fakeIndex{results: []search.Result{
			{Decision: model.Decision{Prompt: "previous refund ask", Response: model.VerdictDeny}, Similarity: 0.77},
		}}
		svc := newService(store, idx, gen)

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund please"})
		require.NoError(t, err)
		assert.Contains(t, captured, "Standard Refund Policy")
		assert.Contains(t, captured, "(Similarity: 0.77) previous refund ask")
		assert.True(t, strings.HasPrefix(captured, "You are an AI decision agent"))
	})

	t.Run("llm failure aborts without recording", func(t *testing.T) {
		store := newFakeStore()
		gen := ModelFunc(func(_ context.Context, _ string) (string, error) {
			return "", errors.New("rate limited")
		})
		svc := newService(store, &fakeIndex{}, gen)

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		require.Error(t, err)
		assert.Empty(t, store.decisions)
	})

	t.Run("policy retrieval failure aborts", func(t *testing.T) {
		store := newFakeStore()
		store.policiesErr = errors.New("neo4j down")
		svc := newService(store, &fakeIndex{}, approveModel())

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		assert.Error(t, err)
	})

	t.Run("precedent search failure aborts", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeIndex{err: errors.New("index down")}, approveModel())

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		assert.Error(t, err)
	})

	t.Run("decision write failure aborts", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errors.New("write failed")
		svc := newService(store, &fakeIndex{}, approveModel())

		_, err := svc.Decide(ctx, model.DecideRequest{Request: "refund"})
		assert.Error(t, err)
	})
}

func TestNewDecisionID(t *testing.T) {
	seen := map[string]bool{}
	re := regexp.MustCompile(`^dec-[0-9a-f]{12}$`)
	for range 100 {
		id := newDecisionID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
