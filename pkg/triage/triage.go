// Package triage implements the Triage Orchestrator (C10, spec §4.10):
// given an alert, fan out to every specialist in the pool, collect their
// findings, and synthesize a final verdict.
package triage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/metrics"
	"github.com/charlieshreck/homelab-graph/pkg/specialists"
	"github.com/charlieshreck/homelab-graph/pkg/synthesis"
)

type Report struct {
	Verdict  synthesis.Verdict     `json:"verdict"`
	Findings []specialists.Finding `json:"findings"`
	Duration time.Duration         `json:"-"`
}

type Orchestrator struct {
	pool      *specialists.Pool
	synthesis *synthesis.Engine
	metrics   *metrics.Collector
	log       *logrus.Logger
}

func New(pool *specialists.Pool, engine *synthesis.Engine, mc *metrics.Collector, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{pool: pool, synthesis: engine, metrics: mc, log: log}
}

// Triage runs the full C8 → C9 pipeline for one alert. Spec §4.10: if the
// pool returns zero findings, the unconditional {UNKNOWN, 0.3, "no
// findings"} verdict is produced without ever calling the synthesis
// engine.
func (o *Orchestrator) Triage(ctx context.Context, alert specialists.Alert) Report {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.TriageDuration.Observe(time.Since(start).Seconds())
		}
	}()

	findings := o.pool.Investigate(ctx, alert)
	if len(findings) == 0 {
		v := synthesis.Verdict{Verdict: synthesis.VerdictUnknown, Confidence: 0.3, Synthesis: "no findings"}
		o.recordVerdict(v)
		return Report{Verdict: v, Findings: findings, Duration: time.Since(start)}
	}

	v := o.synthesis.Synthesize(ctx, alert, findings)
	o.recordVerdict(v)

	o.log.WithFields(logrus.Fields{
		"alert":   alert.Name,
		"verdict": v.Verdict,
	}).Info("triage complete")

	return Report{Verdict: v, Findings: findings, Duration: time.Since(start)}
}

func (o *Orchestrator) recordVerdict(v synthesis.Verdict) {
	if o.metrics != nil {
		o.metrics.RecordTriage(v.Verdict)
	}
}
