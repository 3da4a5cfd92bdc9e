package orchestrator

import (
	"fmt"
	"strings"

	"github.com/DevTechJr/context-graphs/internal/model"
	"github.com/DevTechJr/context-graphs/internal/search"
)

// BuildPrompt compiles the request, retrieved policies, precedents, and
// evidence into the LLM prompt. Compilation is pure and deterministic:
// identical inputs yield the identical prompt string. Empty sections are
// omitted entirely rather than rendered as empty headers, and missing
// fields render as placeholder text so the section numbering never shifts.
func BuildPrompt(request string, policies []model.Policy, precedents []search.Result, evidence []model.EvidenceInput) string {
	var b strings.Builder

	b.WriteString("You are an AI decision agent for a SaaS company. A customer has made a request that requires a decision.\n\n")
	b.WriteString("CUSTOMER REQUEST:\n")
	b.WriteString(request)
	b.WriteString("\n\n")

	if len(policies) > 0 {
		b.WriteString("RELEVANT COMPANY POLICIES:\n")
		for i, p := range policies {
			fmt.Fprintf(&b, "%d. %s\n", i+1, orDefault(p.Name, "Unknown Policy"))
			fmt.Fprintf(&b, "   Description: %s\n", orDefault(p.Description, "N/A"))
			fmt.Fprintf(&b, "   Severity: %s\n", orDefault(string(p.Severity), "N/A"))
			if p.RequiresApproval {
				fmt.Fprintf(&b, "   Requires Approval: %s\n", orDefault(p.ApprovalLevel, "Yes"))
			}
			if p.ExceptionConditions != "" {
				fmt.Fprintf(&b, "   Exceptions: %s\n", p.ExceptionConditions)
			}
			b.WriteString("\n")
		}
	}

	if len(precedents) > 0 {
		b.WriteString("SIMILAR PAST DECISIONS (Precedents):\n")
		for i, prec := range precedents {
			d := prec.Decision
			fmt.Fprintf(&b, "%d. (Similarity: %.2f) %s\n", i+1, prec.Similarity, orDefault(d.Prompt, "N/A"))
			fmt.Fprintf(&b, "   Decision: %s\n", orDefault(d.Response, "N/A"))
			fmt.Fprintf(&b, "   Reasoning: %s\n", orDefault(d.Reasoning, "N/A"))
			b.WriteString("\n")
		}
	}

	if len(evidence) > 0 {
		b.WriteString("EVIDENCE (Customer Context):\n")
		for i, ev := range evidence {
			if ev.IsString() {
				fmt.Fprintf(&b, "%d. %s\n", i+1, ev.Raw)
				continue
			}
			detail := ev.Description
			if detail == "" {
				detail = ev.Issue
			}
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, orDefault(ev.Type, "Unknown"), orDefault(detail, "N/A"))
		}
		b.WriteString("\n")
	}

	b.WriteString(`INSTRUCTIONS:
Based on the above context, make a decision. You must:

1. DECISION: State clearly "APPROVE" or "DENY" or "ESCALATE"
2. CONFIDENCE: Provide a confidence score (0.0 to 1.0)
3. REASONING: Explain your reasoning in 2-3 sentences
4. POLICIES: List which policies you followed or overrode
5. PRECEDENTS: Mention if precedents influenced your decision

Format your response as:
DECISION: [APPROVE/DENY/ESCALATE]
CONFIDENCE: [0.0-1.0]
REASONING: [Your explanation]
POLICIES: [Policy names you considered]
PRECEDENTS: [Yes/No - did precedents influence this?]
`)

	return b.String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
