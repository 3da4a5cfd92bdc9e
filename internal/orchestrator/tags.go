package orchestrator

import (
	"sort"
	"strings"
)

// keywordTags maps request keywords to the policy tags they imply.
// A production system would use a classifier here; keyword matching is the
// retrieval floor that keeps the pipeline deterministic and testable.
var keywordTags = map[string][]string{
	"refund":     {"refund"},
	"discount":   {"discount", "vip", "exception"},
	"vip":        {"vip", "exception", "customer_service"},
	"outage":     {"outage", "sla", "compensation"},
	"enterprise": {"vip", "exception"},
	"exception":  {"exception"},
	"escalation": {"escalation", "high_value"},
}

// ExtractTags derives policy retrieval tags from free-text request content.
// Matching is case-insensitive substring, so "REFUND" and "refunds" both hit
// the "refund" keyword. The "refund" tag is always included as a baseline so
// retrieval never comes back empty-handed for the most common request class.
// Output is sorted and duplicate-free, so equal requests always produce
// identical tag lists.
func ExtractTags(request string) []string {
	lower := strings.ToLower(request)

	set := map[string]struct{}{
		"refund": {},
	}
	for keyword, tags := range keywordTags {
		if strings.Contains(lower, keyword) {
			for _, t := range tags {
				set[t] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
