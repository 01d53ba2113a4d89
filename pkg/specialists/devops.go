package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const devopsBrief = `You investigate Kubernetes workload health: pod status, restart counts,
recent events, and crash/OOM signals. Recommend kubectl-level remediation.`

// DevOpsSpecialist owns kubectl_get_pods/events/logs, the exact tool
// subset named in spec §4.8. It only fetches logs when the alert name
// suggests a crash or OOM, per spec §4.8's worked example.
type DevOpsSpecialist struct {
	base
	client     httptool.Client
	serverName string
}

func NewDevOpsSpecialist(client httptool.Client, serverName string, llmClient llm.Client, log *logrus.Logger) *DevOpsSpecialist {
	return &DevOpsSpecialist{base: base{domain: "devops", llm: llmClient, log: log}, client: client, serverName: serverName}
}

func (s *DevOpsSpecialist) Domain() string { return "devops" }

func (s *DevOpsSpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		namespace := alert.Labels["namespace"]
		args := map[string]interface{}{"namespace": namespace}

		toolsUsed := []string{"kubectl_get_pods", "kubectl_get_events"}
		pods := s.client.CallTool(ctx, s.serverName, "kubectl_get_pods", args)
		events := s.client.CallTool(ctx, s.serverName, "kubectl_get_events", args)
		evidence := fmt.Sprintf("pods: %v\nevents: %v", pods, events)

		if matchesAny(alert.Name, "crash", "oom") {
			toolsUsed = append(toolsUsed, "kubectl_logs")
			logs := s.client.CallTool(ctx, s.serverName, "kubectl_logs", args)
			evidence += fmt.Sprintf("\nlogs: %v", logs)
		}

		return s.analyze(ctx, alert, s.systemPrompt(devopsBrief), evidence, toolsUsed)
	})
}
