package specialists

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
)

// analysis is the JSON shape every specialist asks the LLM to return (spec
// §4.8: "a JSON response schema {status, issue, recommendation}").
type analysis struct {
	Status         string `json:"status"`
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

// systemPromptTemplate is shared scaffolding; each specialist supplies its
// own domain-specific middle paragraph.
const systemPromptTemplate = `You are the %s specialist on an infrastructure triage team.
%s
Respond with a JSON object: {"status": "PASS"|"WARN"|"FAIL", "issue": "...", "recommendation": "..."}.`

// base is embedded by every concrete specialist; it owns the shared
// LLM-submission step so each specialist file only needs to gather
// evidence (original_source/a2a_orchestrator/llm.py's gemini_analyze is
// the grounding for the prompt shape and the WARN-on-failure fallback).
type base struct {
	domain string
	llm    llm.Client
	log    *logrus.Logger
}

func (b *base) systemPrompt(domainBrief string) string {
	return fmt.Sprintf(systemPromptTemplate, b.domain, domainBrief)
}

func (b *base) analyze(ctx context.Context, alert Alert, systemPrompt, evidence string, toolsUsed []string) Finding {
	start := time.Now()
	raw, err := b.llm.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   renderAlertPrompt(alert, evidence),
		Temperature:  0.3,
		MaxTokens:    500,
	})
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return Finding{
			Agent: b.domain, Status: StatusWarn,
			Issue:          "alert: " + alert.Name,
			Recommendation: "manual investigation required (llm unavailable)",
			Evidence:       truncateEvidence(evidence), ToolsUsed: toolsUsed, LatencyMs: latencyMs,
		}
	}

	var parsed analysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Status == "" {
		return Finding{
			Agent: b.domain, Status: StatusWarn,
			Issue: truncateEvidence(raw), Evidence: truncateEvidence(evidence),
			ToolsUsed: toolsUsed, LatencyMs: latencyMs,
		}
	}

	return Finding{
		Agent: b.domain, Status: parsed.Status, Issue: parsed.Issue,
		Recommendation: parsed.Recommendation, Evidence: truncateEvidence(evidence),
		ToolsUsed: toolsUsed, LatencyMs: latencyMs,
	}
}

func renderAlertPrompt(alert Alert, evidence string) string {
	var labels strings.Builder
	for k, v := range alert.Labels {
		if labels.Len() > 0 {
			labels.WriteString(", ")
		}
		fmt.Fprintf(&labels, "%s=%s", k, v)
	}
	return fmt.Sprintf(
		"Alert: %s\nSeverity: %s\nLabels: %s\nDescription: %s\n\nEvidence from investigation:\n%s\n\nAnalyze this alert and provide your assessment.",
		alert.Name, alert.Severity, labels.String(), alert.Description, evidence,
	)
}

// matchesAny reports whether s contains any of the keywords, case-
// insensitively (the same conditional-evidence-gathering gate spec §4.8
// describes for the devops specialist's crash|oom check).
func matchesAny(s string, keywords ...string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
