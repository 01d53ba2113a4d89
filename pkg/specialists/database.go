package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const databaseBrief = `You investigate stateful workload health: StatefulSet replica status and
the PersistentVolumeClaims backing it. Recommend storage or replica-count fixes.`

// DatabaseSpecialist owns kubectl_get_statefulsets and kubectl_get_pvcs.
// Spec §4.8 names explicit tool subsets only for devops, network, and
// infrastructure; database's subset is not in the original retrieval
// either, so this targets the StatefulSet+PVC pairing that is the only
// "database-shaped" workload already modeled in the data model
// (StatefulSet, PVC) rather than inventing an unmodeled tool.
type DatabaseSpecialist struct {
	base
	client     httptool.Client
	serverName string
}

func NewDatabaseSpecialist(client httptool.Client, serverName string, llmClient llm.Client, log *logrus.Logger) *DatabaseSpecialist {
	return &DatabaseSpecialist{base: base{domain: "database", llm: llmClient, log: log}, client: client, serverName: serverName}
}

func (s *DatabaseSpecialist) Domain() string { return "database" }

func (s *DatabaseSpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		namespace := alert.Labels["namespace"]
		args := map[string]interface{}{"namespace": namespace}
		statefulsets := s.client.CallTool(ctx, s.serverName, "kubectl_get_statefulsets", args)
		evidence := fmt.Sprintf("statefulsets: %v", statefulsets)
		toolsUsed := []string{"kubectl_get_statefulsets"}

		if matchesAny(alert.Name, "disk", "pvc", "storage", "volume") {
			pvcs := s.client.CallTool(ctx, s.serverName, "kubectl_get_pvcs", args)
			evidence += fmt.Sprintf("\npvcs: %v", pvcs)
			toolsUsed = append(toolsUsed, "kubectl_get_pvcs")
		}

		return s.analyze(ctx, alert, s.systemPrompt(databaseBrief), evidence, toolsUsed)
	})
}
