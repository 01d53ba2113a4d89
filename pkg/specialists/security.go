package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const securityBrief = `You investigate Kubernetes Secret hygiene: stale or soon-to-expire
credentials referenced by the alerting workload. Recommend rotation or access tightening.`

// SecuritySpecialist owns list_secrets, disjoint from every other
// specialist's tool set. Grounded on original_source/a2a-orchestrator's
// mcp_client import list, which names list_secrets but never wires it to
// a specific domain agent in the retrieved files — assigned here as the
// natural fit for a security investigation.
type SecuritySpecialist struct {
	base
	client     httptool.Client
	serverName string
}

func NewSecuritySpecialist(client httptool.Client, serverName string, llmClient llm.Client, log *logrus.Logger) *SecuritySpecialist {
	return &SecuritySpecialist{base: base{domain: "security", llm: llmClient, log: log}, client: client, serverName: serverName}
}

func (s *SecuritySpecialist) Domain() string { return "security" }

func (s *SecuritySpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		namespace := alert.Labels["namespace"]
		secrets := s.client.CallTool(ctx, s.serverName, "list_secrets", map[string]interface{}{"namespace": namespace})
		evidence := fmt.Sprintf("secrets: %v", secrets)

		return s.analyze(ctx, alert, s.systemPrompt(securityBrief), evidence, []string{"list_secrets"})
	})
}
