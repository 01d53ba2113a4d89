// Package synthesis implements the Synthesis Engine (C9, spec §4.9): it
// fuses the Specialist Pool's findings into a single verdict, weighting
// each finding by its domain's authority and the severity of its status.
// The primary path asks the LLM to perform the fusion; if the LLM is
// disabled or the call errors, a deterministic rule-based formula takes
// over so triage never blocks on the LLM.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/specialists"
)

const (
	VerdictActionable    = "ACTIONABLE"
	VerdictUnknown       = "UNKNOWN"
	VerdictFalsePositive = "FALSE_POSITIVE"
)

type Verdict struct {
	Verdict         string  `json:"verdict"`
	Confidence      float64 `json:"confidence"`
	Synthesis       string  `json:"synthesis"`
	SuggestedAction string  `json:"suggested_action,omitempty"`
}

var severityScore = map[string]int{
	specialists.StatusFail:  3,
	specialists.StatusError: 2,
	specialists.StatusWarn:  1,
	specialists.StatusPass:  0,
}

const synthesisSystemPrompt = `You are synthesizing findings from multiple specialist agents investigating
an infrastructure alert. Weight the findings by domain authority (security > devops > sre >
network > database > infrastructure) and the severity of each finding's status.

Output JSON with:
- verdict: ACTIONABLE (needs fix), UNKNOWN (needs investigation), FALSE_POSITIVE (no action)
- confidence: 0.0-1.0
- synthesis: brief explanation of the root cause
- suggested_action: a specific recommendation, if actionable`

type Engine struct {
	llm           llm.Client
	domainWeights map[string]float64
	log           *logrus.Logger
}

func New(llmClient llm.Client, domainWeights map[string]float64, log *logrus.Logger) *Engine {
	return &Engine{llm: llmClient, domainWeights: domainWeights, log: log}
}

// Synthesize fuses findings into a Verdict. An empty findings slice yields
// {UNKNOWN, 0.3, "no findings"} here without consulting the LLM; pkg/triage
// also short-circuits to that verdict before calling Synthesize.
func (e *Engine) Synthesize(ctx context.Context, alert specialists.Alert, findings []specialists.Finding) Verdict {
	if len(findings) == 0 {
		return Verdict{Verdict: VerdictUnknown, Confidence: 0.3, Synthesis: "no findings"}
	}

	if v, ok := e.llmSynthesize(ctx, alert, findings); ok {
		return v
	}

	return e.ruleBasedSynthesize(alert, findings)
}

func (e *Engine) llmSynthesize(ctx context.Context, alert specialists.Alert, findings []specialists.Finding) (Verdict, bool) {
	raw, err := e.llm.Complete(ctx, llm.Request{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   renderSynthesisPrompt(alert, findings, e.domainWeights),
		Temperature:  0.2,
		MaxTokens:    400,
	})
	if err != nil {
		e.log.WithField("component", "synthesis").Warnf("LLM synthesis failed, falling back to rule-based: %v", err)
		return Verdict{}, false
	}

	var parsed Verdict
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil || parsed.Verdict == "" {
		e.log.WithField("component", "synthesis").Warnf("unparseable LLM synthesis response, falling back to rule-based")
		return Verdict{}, false
	}

	return parsed, true
}

// ruleBasedSynthesize implements spec §4.9's exact formula: a
// weight-by-domain, score-by-severity fusion with fixed verdict
// thresholds and confidence curves.
func (e *Engine) ruleBasedSynthesize(alert specialists.Alert, findings []specialists.Finding) Verdict {
	var totalWeight, weightedScore float64
	var failCount, errorCount int
	var issues []string
	var recommendations []string

	for _, f := range findings {
		weight, ok := e.domainWeights[f.Agent]
		if !ok {
			weight = 0.5
		}
		severity := severityScore[f.Status]
		weightedScore += weight * float64(severity)
		totalWeight += weight

		switch f.Status {
		case specialists.StatusFail:
			failCount++
		case specialists.StatusError:
			errorCount++
		}
		if f.Issue != "" && f.Status != specialists.StatusPass {
			issues = append(issues, fmt.Sprintf("%s: %s", f.Agent, f.Issue))
		}
		if f.Recommendation != "" {
			recommendations = append(recommendations, f.Recommendation)
		}
	}

	var normalizedScore float64
	if totalWeight > 0 {
		normalizedScore = weightedScore / totalWeight
	}

	var verdict Verdict
	switch {
	case failCount > 0 || normalizedScore >= 2.0:
		verdict.Verdict = VerdictActionable
		verdict.Confidence = min(0.95, 0.7+0.1*normalizedScore)
	case errorCount > 0 || normalizedScore >= 1.0:
		verdict.Verdict = VerdictUnknown
		verdict.Confidence = 0.5 + 0.1*normalizedScore
	default:
		verdict.Verdict = VerdictFalsePositive
		verdict.Confidence = max(0.4, 0.8-0.2*normalizedScore)
	}

	if len(issues) > 0 {
		if len(issues) > 3 {
			issues = issues[:3]
		}
		verdict.Synthesis = strings.Join(issues, "; ")
	} else {
		verdict.Synthesis = fmt.Sprintf("alert %q investigated by %d specialists, no critical issues found", alert.Name, len(findings))
	}
	if len(recommendations) > 0 {
		verdict.SuggestedAction = recommendations[0]
	}

	return verdict
}

func renderSynthesisPrompt(alert specialists.Alert, findings []specialists.Finding, weights map[string]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert: %s (severity=%s)\n%s\n\nFindings:\n", alert.Name, alert.Severity, alert.Description)
	for _, f := range findings {
		weight, ok := weights[f.Agent]
		if !ok {
			weight = 0.5
		}
		fmt.Fprintf(&b, "- [%s, weight=%.2f] status=%s issue=%q evidence=%q recommendation=%q\n",
			f.Agent, weight, f.Status, f.Issue, truncate(f.Evidence, 200), f.Recommendation)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
