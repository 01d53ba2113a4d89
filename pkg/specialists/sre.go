package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const sreBrief = `You investigate service reliability: cross-service dependency anomalies
from Coroot and metric trends. Cross-reference known runbooks before recommending action.`

// SRESpecialist owns query_metrics, coroot_get_anomalies, and
// search_runbooks, grounded on original_source/a2a-orchestrator's
// mcp_client import list (all three named there with no domain assigned
// in the retrieved files).
type SRESpecialist struct {
	base
	metricsClient httptool.Client
	corootServer  string
	runbookServer string
}

func NewSRESpecialist(client httptool.Client, corootServerName, runbookServerName string, llmClient llm.Client, log *logrus.Logger) *SRESpecialist {
	return &SRESpecialist{
		base:          base{domain: "sre", llm: llmClient, log: log},
		metricsClient: client,
		corootServer:  corootServerName,
		runbookServer: runbookServerName,
	}
}

func (s *SRESpecialist) Domain() string { return "sre" }

func (s *SRESpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		anomalies := s.metricsClient.CallTool(ctx, s.corootServer, "coroot_get_anomalies", nil)
		metrics := s.metricsClient.CallTool(ctx, s.corootServer, "query_metrics", map[string]interface{}{"service": alert.Labels["service"]})
		runbooks := s.metricsClient.CallTool(ctx, s.runbookServer, "search_runbooks", map[string]interface{}{"query": alert.Name})
		evidence := fmt.Sprintf("anomalies: %v\nmetrics: %v\nrunbooks: %v", anomalies, metrics, runbooks)

		return s.analyze(ctx, alert, s.systemPrompt(sreBrief), evidence,
			[]string{"coroot_get_anomalies", "query_metrics", "search_runbooks"})
	})
}
