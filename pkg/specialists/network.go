package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const networkBrief = `You investigate DNS and service networking: AdGuard rewrite rules and
Kubernetes Service endpoint health. Recommend DNS or Service fixes.`

// NetworkSpecialist owns adguard_get_rewrites plus kubectl_get_services,
// the exact subset spec §4.8 names for it.
type NetworkSpecialist struct {
	base
	client       httptool.Client
	adguardName  string
	kubectlName  string
}

func NewNetworkSpecialist(client httptool.Client, adguardServerName, kubectlServerName string, llmClient llm.Client, log *logrus.Logger) *NetworkSpecialist {
	return &NetworkSpecialist{
		base:        base{domain: "network", llm: llmClient, log: log},
		client:      client,
		adguardName: adguardServerName,
		kubectlName: kubectlServerName,
	}
}

func (s *NetworkSpecialist) Domain() string { return "network" }

func (s *NetworkSpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		namespace := alert.Labels["namespace"]
		rewrites := s.client.CallTool(ctx, s.adguardName, "adguard_get_rewrites", nil)
		services := s.client.CallTool(ctx, s.kubectlName, "kubectl_get_services", map[string]interface{}{"namespace": namespace})
		evidence := fmt.Sprintf("dns rewrites: %v\nservices: %v", rewrites, services)

		return s.analyze(ctx, alert, s.systemPrompt(networkBrief), evidence,
			[]string{"adguard_get_rewrites", "kubectl_get_services"})
	})
}
