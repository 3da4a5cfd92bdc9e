package orchestrator

import (
	"strconv"
	"strings"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// Parsed is the structured reading of an LLM decision response.
type Parsed struct {
	Decision          model.Verdict
	Confidence        float64
	Reasoning         string
	PoliciesMentioned string
	UsedPrecedents    bool
}

// ParseResponse extracts the labeled fields from an LLM response.
//
// The parser is deliberately lenient: models drift from the requested format,
// and a malformed response must never fail the decision. Each field falls
// back to a safe default when absent or unparseable (UNKNOWN verdict,
// 0.5 confidence, empty strings, false). Unrecognized verdict strings pass
// through verbatim rather than being coerced, so auditors can see exactly
// what the model said. When a label repeats, the last occurrence wins.
func ParseResponse(response string) Parsed {
	result := Parsed{
		Decision:   model.VerdictUnknown,
		Confidence: 0.5,
	}

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		switch {
		case strings.HasPrefix(line, "DECISION:"):
			result.Decision = fieldValue(line)
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if f, err := strconv.ParseFloat(fieldValue(line), 64); err == nil {
				result.Confidence = f
			}
		case strings.HasPrefix(line, "REASONING:"):
			result.Reasoning = fieldValue(line)
		case strings.HasPrefix(line, "POLICIES:"):
			result.PoliciesMentioned = fieldValue(line)
		case strings.HasPrefix(line, "PRECEDENTS:"):
			result.UsedPrecedents = strings.Contains(strings.ToLower(fieldValue(line)), "yes")
		}
	}

	return result
}

// fieldValue returns the trimmed text after the first colon.
func fieldValue(line string) string {
	_, after, _ := strings.Cut(line, ":")
	return strings.TrimSpace(after)
}
