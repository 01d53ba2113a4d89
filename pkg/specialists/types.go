// Package specialists implements the specialist pool (C8, spec §4.8): six
// domain experts, each owning a disjoint subset of tools, that gather
// evidence for an alert and submit it to the LLM for a PASS/WARN/FAIL
// verdict. No specialist may depend on another's output; the pool runs
// all six concurrently and never lets one's panic or error block the rest.
package specialists

import (
	"context"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/sirupsen/logrus"
)

// Alert is the triage pipeline's input (spec §4.8).
type Alert struct {
	Name        string            `json:"name"`
	Severity    string            `json:"severity"`
	Labels      map[string]string `json:"labels"`
	Description string            `json:"description"`
}

// Finding statuses (spec §4.8/§4.9).
const (
	StatusPass  = "PASS"
	StatusWarn  = "WARN"
	StatusFail  = "FAIL"
	StatusError = "ERROR"
)

// maxEvidenceChars caps Finding.Evidence (spec §4.8: "evidence
// (<=1000 chars)").
const maxEvidenceChars = 1000

// Finding is one specialist's output (spec §4.8).
type Finding struct {
	Agent          string   `json:"agent"`
	Status         string   `json:"status"`
	Issue          string   `json:"issue"`
	Evidence       string   `json:"evidence"`
	Recommendation string   `json:"recommendation,omitempty"`
	ToolsUsed      []string `json:"tools_used"`
	LatencyMs      int64    `json:"latency_ms"`
}

// truncateEvidence clamps s to maxEvidenceChars.
func truncateEvidence(s string) string {
	if len(s) <= maxEvidenceChars {
		return s
	}
	return s[:maxEvidenceChars]
}

// Specialist is one domain expert's investigation contract. Domain must
// match one of the keys in a synthesis domain_weights map (spec §4.9).
type Specialist interface {
	Domain() string
	Investigate(ctx context.Context, alert Alert) Finding
}

// runSafely recovers a panicking specialist into an ERROR finding, the
// same "never propagate" policy syncers.runSafely applies to syncers
// (spec §4.8: "On any exception, status becomes ERROR... never propagate").
func runSafely(ctx context.Context, log *logrus.Logger, domain string, fn func(ctx context.Context) Finding) (finding Finding) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logging.NewFields().Component("specialist").Source(domain).Fields()).
				Errorf("recovered from panic: %v", r)
			finding = Finding{Agent: domain, Status: StatusError, Issue: "internal panic during investigation"}
		}
	}()
	return fn(ctx)
}
