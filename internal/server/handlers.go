package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DevTechJr/context-graphs/internal/graph"
	"github.com/DevTechJr/context-graphs/internal/integrity"
	"github.com/DevTechJr/context-graphs/internal/model"
)

// GraphStore is the persistence surface the handlers need.
// *graph.Store satisfies it; tests substitute a fake.
type GraphStore interface {
	Ping(ctx context.Context) error
	CreateDecisionRaw(ctx context.Context, database, id string, payload map[string]any) error
	GetDecisionRaw(ctx context.Context, database, id string) (map[string]any, error)
	GetDecision(ctx context.Context, database, id string) (model.Decision, error)
	DecisionSubgraph(ctx context.Context, database, decisionID string) (model.Subgraph, error)
	PoliciesByTags(ctx context.Context, database string, tags []string) ([]model.Policy, error)
	PoliciesByCategory(ctx context.Context, database, category string) ([]model.Policy, error)
	UpsertPolicy(ctx context.Context, database string, p model.Policy) error
	LinkPolicyPartOfCategory(ctx context.Context, database, policyID, categoryID string) error
	LinkPolicySupersedes(ctx context.Context, database, newPolicyID, oldPolicyID string) error
	CreateApproval(ctx context.Context, database string, a model.Approval) error
	LinkApprovalApprovedDecision(ctx context.Context, database, approvalID, decisionID string) error
}

// Decider runs the orchestrated decision pipeline.
type Decider interface {
	Decide(ctx context.Context, req model.DecideRequest) (model.DecideResponse, error)
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store        GraphStore
	orchestrator Decider
	version      string
	maxBodyBytes int64
}

// HandlersDeps configures NewHandlers.
type HandlersDeps struct {
	Store               GraphStore
	Orchestrator        Decider
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	if deps.MaxRequestBodyBytes <= 0 {
		deps.MaxRequestBodyBytes = 1 << 20 // 1 MB
	}
	return &Handlers{
		store:        deps.Store,
		orchestrator: deps.Orchestrator,
		version:      deps.Version,
		maxBodyBytes: deps.MaxRequestBodyBytes,
	}
}

// decodeJSON decodes a JSON request body into the target struct, enforcing
// the body size limit and rejecting unknown fields.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	return decodeJSONBody(r, target)
}

// HandleHealth reports service liveness and graph connectivity.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]any{
		"status":  status,
		"version": h.version,
	})
}

// HandleCreateDecision records a raw decision node from an id and a flat
// property map. This is the low-level write path; /v1/decide is the
// orchestrated one.
func (h *Handlers) HandleCreateDecision(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDecisionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "id is required")
		return
	}
	if err := model.ValidatePayload(req.Payload); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.store.CreateDecisionRaw(r.Context(), req.Database, req.ID, req.Payload); err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "store decision: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"id": req.ID})
}

// HandleGetDecision returns a decision node's stored properties.
// The embedding vector is stripped from the response; it is an internal
// search artifact, not audit data.
func (h *Handlers) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	props, err := h.store.GetDecisionRaw(r.Context(), r.URL.Query().Get("database"), id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, fmt.Sprintf("decision %q not found", id))
			return
		}
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "fetch decision: "+err.Error())
		return
	}
	delete(props, "embedding")
	writeJSON(w, r, http.StatusOK, props)
}

// HandleDecisionSubgraph returns a decision with its connected actors,
// evidence, policies, and approvals.
func (h *Handlers) HandleDecisionSubgraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sub, err := h.store.DecisionSubgraph(r.Context(), r.URL.Query().Get("database"), id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, fmt.Sprintf("decision %q not found", id))
			return
		}
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "fetch subgraph: "+err.Error())
		return
	}
	delete(sub.Decision, "embedding")
	writeJSON(w, r, http.StatusOK, sub)
}

// HandleVerifyDecision recomputes a decision's content hash and compares it
// to the stored one. A decision written before hashing was introduced, or
// one whose fields were modified after the fact, reports intact=false.
func (h *Handlers) HandleVerifyDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.store.GetDecision(r.Context(), r.URL.Query().Get("database"), id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, fmt.Sprintf("decision %q not found", id))
			return
		}
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "fetch decision: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"decision_id":  d.ID,
		"intact":       integrity.VerifyContentHash(d.ContentHash, d),
		"content_hash": d.ContentHash,
	})
}

// HandleDecide runs the full orchestration pipeline for a request.
func (h *Handlers) HandleDecide(w http.ResponseWriter, r *http.Request) {
	var req model.DecideRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	resp, err := h.orchestrator.Decide(r.Context(), req)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "decide: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleListPolicies returns active policies by tags or by category.
// Exactly one of ?tags= (comma-separated) or ?category= must be provided.
func (h *Handlers) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tagsParam := strings.TrimSpace(q.Get("tags"))
	category := strings.TrimSpace(q.Get("category"))

	if (tagsParam == "") == (category == "") {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "provide exactly one of tags or category")
		return
	}

	var (
		policies []model.Policy
		err      error
	)
	if category != "" {
		policies, err = h.store.PoliciesByCategory(r.Context(), q.Get("database"), category)
	} else {
		var tags []string
		for _, t := range strings.Split(tagsParam, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		policies, err = h.store.PoliciesByTags(r.Context(), q.Get("database"), tags)
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "query policies: "+err.Error())
		return
	}
	if policies == nil {
		policies = []model.Policy{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"policies": policies})
}

// HandleUpsertPolicy creates or updates a policy, optionally placing it in a
// category and recording which policy it supersedes.
func (h *Handlers) HandleUpsertPolicy(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertPolicyRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Policy.ID) == "" || strings.TrimSpace(req.Policy.Name) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "policy id and name are required")
		return
	}

	if err := h.store.UpsertPolicy(r.Context(), req.Database, req.Policy); err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "store policy: "+err.Error())
		return
	}
	if req.CategoryID != "" {
		if err := h.store.LinkPolicyPartOfCategory(r.Context(), req.Database, req.Policy.ID, req.CategoryID); err != nil {
			writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "link category: "+err.Error())
			return
		}
	}
	if req.Supersedes != "" {
		if err := h.store.LinkPolicySupersedes(r.Context(), req.Database, req.Policy.ID, req.Supersedes); err != nil {
			writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "link supersedes: "+err.Error())
			return
		}
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"id": req.Policy.ID})
}

// HandleCreateApproval records a human approval of a decision and links it.
func (h *Handlers) HandleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var req model.CreateApprovalRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.DecisionID) == "" || strings.TrimSpace(req.Approver) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "decision_id and approver are required")
		return
	}

	id := req.ID
	if id == "" {
		id = "app-" + uuid.New().String()[:8]
	}
	approval := model.Approval{ID: id, Approver: req.Approver, Reason: req.Reason}
	if err := h.store.CreateApproval(r.Context(), req.Database, approval); err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "store approval: "+err.Error())
		return
	}
	if err := h.store.LinkApprovalApprovedDecision(r.Context(), req.Database, id, req.DecisionID); err != nil {
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamError, "link approval: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"id": id, "decision_id": req.DecisionID})
}
