// Package orchestrator runs the full decision pipeline: tag extraction,
// policy retrieval, precedent search, prompt compilation, the LLM call,
// response parsing, and provenance recording in the graph.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/DevTechJr/context-graphs/internal/integrity"
	"github.com/DevTechJr/context-graphs/internal/model"
	"github.com/DevTechJr/context-graphs/internal/search"
	"github.com/DevTechJr/context-graphs/internal/service/embedding"
	"github.com/DevTechJr/context-graphs/internal/telemetry"
)

// Store is the graph persistence surface the pipeline needs.
// *graph.Store satisfies it; tests substitute an in-memory fake.
type Store interface {
	PoliciesByTags(ctx context.Context, database string, tags []string) ([]model.Policy, error)
	CreateDecision(ctx context.Context, database string, d model.Decision) error
	AttachEmbedding(ctx context.Context, database, decisionID string, vec []float32) error
	UpsertActor(ctx context.Context, database string, a model.Actor) error
	UpsertEvidence(ctx context.Context, database string, e model.Evidence) error
	LinkActorMadeDecision(ctx context.Context, database, actorID, decisionID string) error
	LinkDecisionJustifiedByEvidence(ctx context.Context, database, decisionID, evidenceID string) error
	LinkDecisionFollowsPolicy(ctx context.Context, database, decisionID, policyID string) error
}

// Generator produces a completion for a prompt. llm.Model satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ANNUpserter mirrors new decision vectors into an external ANN index.
// Optional; nil means the brute-force graph scan is the only index.
type ANNUpserter interface {
	Upsert(ctx context.Context, database, decisionID string, embedding []float32) error
}

// Config tunes the pipeline.
type Config struct {
	TopK             int    // precedents retrieved per decision
	LLMModel         string // recorded on every decision for audit
	DefaultActorID   string
	DefaultActorName string
}

// Service wires the pipeline stages together.
type Service struct {
	store    Store
	embedder embedding.Provider
	index    search.Index
	llm      Generator
	ann      ANNUpserter
	cfg      Config
	logger   *slog.Logger

	decideDuration metric.Float64Histogram
	decisionsTotal metric.Int64Counter
}

// New creates the orchestration service. ann may be nil.
func New(store Store, embedder embedding.Provider, index search.Index, gen Generator, ann ANNUpserter, cfg Config, logger *slog.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.DefaultActorID == "" {
		cfg.DefaultActorID = "agent-ai-001"
	}
	if cfg.DefaultActorName == "" {
		cfg.DefaultActorName = "DecisionBot"
	}

	decideDuration := telemetry.DurationHistogram("orchestrator", "decide.duration",
		"End-to-end decision pipeline duration")
	decisionsTotal := telemetry.Counter("orchestrator", "decide.total",
		"Decisions recorded, by verdict")

	return &Service{
		store:          store,
		embedder:       embedder,
		index:          index,
		llm:            gen,
		ann:            ann,
		cfg:            cfg,
		logger:         logger,
		decideDuration: decideDuration,
		decisionsTotal: decisionsTotal,
	}
}

// newDecisionID returns a fresh decision id of the form "dec-" plus 12 hex
// characters drawn from a random UUID.
func newDecisionID() string {
	u := uuid.New()
	return fmt.Sprintf("dec-%x", u[:6])
}

// Decide runs the full pipeline for one request and records the resulting
// decision trace in the graph.
//
// Upstream failures (embedding, LLM) and the decision write itself abort the
// call. Provenance edges after the decision node exists are best-effort:
// a failed link is logged and skipped so a transient graph hiccup cannot
// discard an already-made decision.
func (s *Service) Decide(ctx context.Context, req model.DecideRequest) (model.DecideResponse, error) {
	start := time.Now()

	// Stage 1: tags and policy retrieval.
	tags := ExtractTags(req.Request)
	policies, err := s.store.PoliciesByTags(ctx, req.Database, tags)
	if err != nil {
		return model.DecideResponse{}, fmt.Errorf("orchestrator: query policies: %w", err)
	}
	s.logger.Info("policies retrieved", "tags", tags, "count", len(policies))

	// Stage 2: embed the request and search for precedents.
	queryVec, err := s.embedder.Embed(ctx, req.Request)
	if err != nil {
		return model.DecideResponse{}, fmt.Errorf("orchestrator: embed request: %w", err)
	}
	precedents, err := s.index.TopK(ctx, req.Database, queryVec, s.cfg.TopK)
	if err != nil {
		return model.DecideResponse{}, fmt.Errorf("orchestrator: search precedents: %w", err)
	}
	s.logger.Info("precedents retrieved", "count", len(precedents))

	// Stage 3: compile the prompt.
	prompt := BuildPrompt(req.Request, policies, precedents, req.Evidence)

	// Stage 4: call the model.
	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return model.DecideResponse{}, fmt.Errorf("orchestrator: llm call: %w", err)
	}

	// Stage 5: parse the response.
	parsed := ParseResponse(raw)

	// Stage 6: record the decision trace.
	decisionID := newDecisionID()
	decision := model.Decision{
		ID:                decisionID,
		Prompt:            req.Request,
		Response:          parsed.Decision,
		Confidence:        parsed.Confidence,
		Reasoning:         parsed.Reasoning,
		PoliciesMentioned: parsed.PoliciesMentioned,
		UsedPrecedents:    parsed.UsedPrecedents,
		CreatedAt:         time.Now().UTC(),
		LLMModel:          s.cfg.LLMModel,
	}
	decision.ContentHash = integrity.ComputeContentHash(decision)
	if err := s.store.CreateDecision(ctx, req.Database, decision); err != nil {
		return model.DecideResponse{}, fmt.Errorf("orchestrator: record decision: %w", err)
	}

	if err := s.store.AttachEmbedding(ctx, req.Database, decisionID, queryVec); err != nil {
		s.logger.Warn("attach embedding failed, decision excluded from precedent corpus",
			"decision_id", decisionID, "error", err)
	} else if s.ann != nil {
		if err := s.ann.Upsert(ctx, req.Database, decisionID, queryVec); err != nil {
			s.logger.Warn("ann index upsert failed", "decision_id", decisionID, "error", err)
		}
	}

	s.recordProvenance(ctx, req, decisionID, policies)

	s.decideDuration.Record(ctx, time.Since(start).Seconds())
	s.decisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", parsed.Decision)))
	s.logger.Info("decision recorded",
		"decision_id", decisionID,
		"verdict", parsed.Decision,
		"confidence", parsed.Confidence,
		"used_precedents", parsed.UsedPrecedents)

	return model.DecideResponse{
		DecisionID:         decisionID,
		Decision:           parsed.Decision,
		Confidence:         parsed.Confidence,
		Reasoning:          parsed.Reasoning,
		PoliciesConsidered: len(policies),
		PrecedentsFound:    len(precedents),
		UsedPrecedents:     parsed.UsedPrecedents,
		PoliciesDetails:    policies,
		PrecedentsDetails:  precedentDetails(precedents),
	}, nil
}

// recordProvenance links the decision to its actor, evidence, and the lead
// policy. Each link is independent and best-effort.
func (s *Service) recordProvenance(ctx context.Context, req model.DecideRequest, decisionID string, policies []model.Policy) {
	actorID := req.Actor
	if actorID == "" {
		actorID = s.cfg.DefaultActorID
		actor := model.Actor{
			ID:    actorID,
			Name:  s.cfg.DefaultActorName,
			Type:  "ai_agent",
			Model: s.cfg.LLMModel,
		}
		if err := s.store.UpsertActor(ctx, req.Database, actor); err != nil {
			s.logger.Warn("upsert actor failed", "actor_id", actorID, "error", err)
		}
	}
	if err := s.store.LinkActorMadeDecision(ctx, req.Database, actorID, decisionID); err != nil {
		s.logger.Warn("link actor failed", "actor_id", actorID, "decision_id", decisionID, "error", err)
	}

	// String evidence lives only in the prompt text. Structured evidence
	// with an id becomes a node and a JUSTIFIED_BY edge; structured
	// evidence without an id cannot be addressed and is skipped.
	for _, ev := range req.Evidence {
		if ev.IsString() || ev.ID == "" {
			continue
		}
		node := model.Evidence{ID: ev.ID, Type: ev.Type, Description: ev.Description, Issue: ev.Issue}
		if err := s.store.UpsertEvidence(ctx, req.Database, node); err != nil {
			s.logger.Warn("upsert evidence failed", "evidence_id", ev.ID, "error", err)
			continue
		}
		if err := s.store.LinkDecisionJustifiedByEvidence(ctx, req.Database, decisionID, ev.ID); err != nil {
			s.logger.Warn("link evidence failed", "evidence_id", ev.ID, "error", err)
		}
	}

	// Only the lead policy gets a FOLLOWS edge. Policies are severity-sorted,
	// so the lead is the strictest match; attributing every retrieved policy
	// would overstate what the model actually applied.
	if len(policies) > 0 {
		if err := s.store.LinkDecisionFollowsPolicy(ctx, req.Database, decisionID, policies[0].ID); err != nil {
			s.logger.Warn("link policy failed", "policy_id", policies[0].ID, "decision_id", decisionID, "error", err)
		}
	}
}

// precedentDetails flattens search results into decision records annotated
// with their similarity score.
func precedentDetails(precedents []search.Result) []map[string]any {
	details := make([]map[string]any, 0, len(precedents))
	for _, p := range precedents {
		d := p.Decision
		details = append(details, map[string]any{
			"id":                 d.ID,
			"prompt":             d.Prompt,
			"response":           d.Response,
			"confidence":         d.Confidence,
			"reasoning":          d.Reasoning,
			"policies_mentioned": d.PoliciesMentioned,
			"used_precedents":    d.UsedPrecedents,
			"created_at":         d.CreatedAt,
			"llm_model":          d.LLMModel,
			"similarity":         p.Similarity,
		})
	}
	return details
}
