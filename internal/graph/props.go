package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// Property conversion between typed records and Neo4j property maps.
// Neo4j returns float64 for floating point, int64 for integers, and []any
// for lists; the helpers below normalize those shapes back into Go types.

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func boolProp(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

// optBoolProp preserves the tri-state of an optional boolean property:
// nil when absent, a pointer otherwise.
func optBoolProp(props map[string]any, key string) *bool {
	if v, ok := props[key].(bool); ok {
		return &v
	}
	return nil
}

func strSliceProp(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func timeProp(props map[string]any, key string) time.Time {
	switch v := props[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// vecProp decodes an embedding property. Vectors are stored as float lists;
// the driver hands them back as []any of float64.
func vecProp(props map[string]any, key string) []float32 {
	switch v := props[key].(type) {
	case []float32:
		return v
	case []any:
		out := make([]float32, 0, len(v))
		for _, item := range v {
			switch f := item.(type) {
			case float64:
				out = append(out, float32(f))
			case int64:
				out = append(out, float32(f))
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

// vecToProp widens an embedding for storage. Neo4j float lists are float64.
func vecToProp(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, f := range vec {
		out[i] = float64(f)
	}
	return out
}

// nodeProps extracts the property map from a record value that may be a
// Neo4j node.
func nodeProps(v any) (map[string]any, bool) {
	node, ok := v.(neo4j.Node)
	if !ok {
		return nil, false
	}
	return node.Props, true
}

// decisionFromProps maps a Decision node's properties into a typed record.
func decisionFromProps(props map[string]any) model.Decision {
	return model.Decision{
		ID:                strProp(props, "id"),
		Prompt:            strProp(props, "prompt"),
		Response:          strProp(props, "response"),
		Confidence:        floatProp(props, "confidence"),
		Reasoning:         strProp(props, "reasoning"),
		PoliciesMentioned: strProp(props, "policies_mentioned"),
		UsedPrecedents:    boolProp(props, "used_precedents"),
		CreatedAt:         timeProp(props, "created_at"),
		LLMModel:          strProp(props, "llm_model"),
		ContentHash:       strProp(props, "content_hash"),
		Embedding:         vecProp(props, "embedding"),
	}
}

// decisionToProps maps a typed Decision into storage properties.
// The embedding is deliberately excluded: it is attached later by
// AttachEmbedding so decision creation never blocks on the embedding API.
func decisionToProps(d model.Decision) map[string]any {
	props := map[string]any{
		"prompt":             d.Prompt,
		"response":           d.Response,
		"confidence":         d.Confidence,
		"reasoning":          d.Reasoning,
		"policies_mentioned": d.PoliciesMentioned,
		"used_precedents":    d.UsedPrecedents,
		"created_at":         d.CreatedAt.UTC().Format(time.RFC3339),
		"llm_model":          d.LLMModel,
	}
	if d.ContentHash != "" {
		props["content_hash"] = d.ContentHash
	}
	return props
}

// policyFromProps maps a Policy node's properties into a typed record.
func policyFromProps(props map[string]any) model.Policy {
	return model.Policy{
		ID:                  strProp(props, "id"),
		Name:                strProp(props, "name"),
		Description:         strProp(props, "description"),
		Severity:            model.Severity(strProp(props, "severity")),
		Tags:                strSliceProp(props, "tags"),
		Active:              optBoolProp(props, "active"),
		RequiresApproval:    boolProp(props, "requires_approval"),
		ApprovalLevel:       strProp(props, "approval_level"),
		ExceptionConditions: strProp(props, "exception_conditions"),
	}
}

// policyToProps maps a typed Policy into storage properties.
func policyToProps(p model.Policy) map[string]any {
	props := map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"severity":    string(p.Severity),
		"tags":        p.Tags,
	}
	if p.Active != nil {
		props["active"] = *p.Active
	}
	if p.RequiresApproval {
		props["requires_approval"] = true
	}
	if p.ApprovalLevel != "" {
		props["approval_level"] = p.ApprovalLevel
	}
	if p.ExceptionConditions != "" {
		props["exception_conditions"] = p.ExceptionConditions
	}
	return props
}
