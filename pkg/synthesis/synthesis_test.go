package synthesis_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/specialists"
	"github.com/charlieshreck/homelab-graph/pkg/synthesis"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type erroringLLM struct{}

func (erroringLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", errors.New("llm unavailable")
}

var _ llm.Client = erroringLLM{}

func weights() map[string]float64 {
	return map[string]float64{
		"security":       1.0,
		"devops":         0.8,
		"sre":            0.7,
		"network":        0.6,
		"database":       0.5,
		"infrastructure": 0.4,
	}
}

func TestEngine_Synthesize_NoFindingsReturnsUnconditionalUnknown(t *testing.T) {
	e := synthesis.New(erroringLLM{}, weights(), discardLogger())
	v := e.Synthesize(context.Background(), specialists.Alert{Name: "Test"}, nil)

	if v.Verdict != synthesis.VerdictUnknown || v.Confidence != 0.3 || v.Synthesis != "no findings" {
		t.Fatalf("expected the unconditional no-findings fallback, got %+v", v)
	}
}

func TestEngine_Synthesize_FallsBackToRuleBasedOnLLMError(t *testing.T) {
	e := synthesis.New(erroringLLM{}, weights(), discardLogger())
	findings := []specialists.Finding{
		{Agent: "security", Status: specialists.StatusFail, Issue: "secret leaked", Recommendation: "rotate"},
	}
	v := e.Synthesize(context.Background(), specialists.Alert{Name: "Test"}, findings)

	if v.Verdict != synthesis.VerdictActionable {
		t.Fatalf("expected ACTIONABLE from a single FAIL finding, got %s", v.Verdict)
	}
	if v.SuggestedAction != "rotate" {
		t.Fatalf("expected the first recommendation to surface, got %q", v.SuggestedAction)
	}
}

func TestEngine_RuleBasedSynthesize_AllPassIsFalsePositive(t *testing.T) {
	e := synthesis.New(erroringLLM{}, weights(), discardLogger())
	findings := []specialists.Finding{
		{Agent: "devops", Status: specialists.StatusPass},
		{Agent: "network", Status: specialists.StatusPass},
	}
	v := e.Synthesize(context.Background(), specialists.Alert{Name: "Test"}, findings)

	if v.Verdict != synthesis.VerdictFalsePositive {
		t.Fatalf("expected FALSE_POSITIVE when every finding passes, got %s", v.Verdict)
	}
	if v.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8 at zero weighted score, got %f", v.Confidence)
	}
}

func TestEngine_RuleBasedSynthesize_ErrorWithoutFailIsUnknown(t *testing.T) {
	e := synthesis.New(erroringLLM{}, weights(), discardLogger())
	findings := []specialists.Finding{
		{Agent: "sre", Status: specialists.StatusError, Issue: "panic"},
		// A lone ERROR scores exactly 2.0, which already reaches the
		// ACTIONABLE threshold; the PASS keeps the weighted score below 1.0
		// so only the error count decides the verdict.
		{Agent: "devops", Status: specialists.StatusPass},
	}
	v := e.Synthesize(context.Background(), specialists.Alert{Name: "Test"}, findings)

	if v.Verdict != synthesis.VerdictUnknown {
		t.Fatalf("expected UNKNOWN from an ERROR finding with no FAIL present, got %s", v.Verdict)
	}
}

func TestEngine_RuleBasedSynthesize_WeightedFailBeatsUnweightedWarn(t *testing.T) {
	e := synthesis.New(erroringLLM{}, weights(), discardLogger())
	findings := []specialists.Finding{
		{Agent: "security", Status: specialists.StatusFail, Issue: "leak"},
		{Agent: "infrastructure", Status: specialists.StatusWarn, Issue: "minor"},
	}
	v := e.Synthesize(context.Background(), specialists.Alert{Name: "Test"}, findings)

	if v.Verdict != synthesis.VerdictActionable {
		t.Fatalf("expected ACTIONABLE since fail_count > 0, got %s", v.Verdict)
	}
}
