package specialists

import (
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

// Build constructs the six-specialist pool over one shared HTTP tool
// client. MCP server names match the configured HTTPToolsConfig.Servers
// entries: "kubernetes" for kubectl-backed tools, "adguard" for DNS,
// "truenas"/"proxmox"/"gatus" for the infrastructure layer, "coroot" and
// "runbooks" for the SRE domain.
func Build(client httptool.Client, llmClient llm.Client, log *logrus.Logger) *Pool {
	return NewPool(
		NewDevOpsSpecialist(client, "kubernetes", llmClient, log),
		NewNetworkSpecialist(client, "adguard", "kubernetes", llmClient, log),
		NewSecuritySpecialist(client, "kubernetes", llmClient, log),
		NewSRESpecialist(client, "coroot", "runbooks", llmClient, log),
		NewDatabaseSpecialist(client, "kubernetes", llmClient, log),
		NewInfrastructureSpecialist(client, "truenas", "proxmox", "gatus", llmClient, log),
	)
}
