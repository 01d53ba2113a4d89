package specialists

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const infrastructureBrief = `You investigate the hypervisor and storage layer underneath the
cluster: Proxmox VM/container state, TrueNAS pool and alert health, and Gatus uptime checks.
Recommend infrastructure-level remediation.`

// InfrastructureSpecialist owns truenas_get_alerts/list_pools,
// proxmox_list_vms/list_containers, and gatus_get_failing — the exact
// subset spec §4.8 names for it. It routes to TrueNAS vs Proxmox vs
// Gatus by matching the alert's labels rather than calling every tool
// on every alert.
type InfrastructureSpecialist struct {
	base
	client        httptool.Client
	truenasServer string
	proxmoxServer string
	gatusServer   string
}

func NewInfrastructureSpecialist(client httptool.Client, truenasServerName, proxmoxServerName, gatusServerName string, llmClient llm.Client, log *logrus.Logger) *InfrastructureSpecialist {
	return &InfrastructureSpecialist{
		base:          base{domain: "infrastructure", llm: llmClient, log: log},
		client:        client,
		truenasServer: truenasServerName,
		proxmoxServer: proxmoxServerName,
		gatusServer:   gatusServerName,
	}
}

func (s *InfrastructureSpecialist) Domain() string { return "infrastructure" }

func (s *InfrastructureSpecialist) Investigate(ctx context.Context, alert Alert) Finding {
	return runSafely(ctx, s.log, s.Domain(), func(ctx context.Context) Finding {
		var evidence string
		var toolsUsed []string

		source := alert.Labels["source"]

		switch {
		case matchesAny(source, "truenas") || matchesAny(alert.Name, "pool", "disk", "zfs"):
			alerts := s.client.CallTool(ctx, s.truenasServer, "truenas_get_alerts", nil)
			pools := s.client.CallTool(ctx, s.truenasServer, "truenas_list_pools", nil)
			evidence = fmt.Sprintf("truenas alerts: %v\npools: %v", alerts, pools)
			toolsUsed = []string{"truenas_get_alerts", "truenas_list_pools"}
		case matchesAny(source, "proxmox") || matchesAny(alert.Name, "vm", "container", "hypervisor"):
			vms := s.client.CallTool(ctx, s.proxmoxServer, "proxmox_list_vms", nil)
			containers := s.client.CallTool(ctx, s.proxmoxServer, "proxmox_list_containers", nil)
			evidence = fmt.Sprintf("vms: %v\ncontainers: %v", vms, containers)
			toolsUsed = []string{"proxmox_list_vms", "proxmox_list_containers"}
		default:
			failing := s.client.CallTool(ctx, s.gatusServer, "gatus_get_failing", nil)
			evidence = fmt.Sprintf("failing checks: %v", failing)
			toolsUsed = []string{"gatus_get_failing"}
		}

		return s.analyze(ctx, alert, s.systemPrompt(infrastructureBrief), evidence, toolsUsed)
	})
}
