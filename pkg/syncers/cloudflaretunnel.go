package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeCloudflareTunnelStatement = `
MERGE (n:` + model.LabelCloudflareTunnel + ` {tunnel_id: row.tunnel_id})
SET n.name = row.name,
    n.status = row.status,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

// CloudflareTunnelSyncer projects CloudflareTunnel nodes from the
// cloudflare HTTP tool server's list_tunnels tool. The cross-source linker
// (§4.5 pass 4) later matches a CNAME DNSRecord whose answer contains
// `.cfargotunnel.com` against a tunnel by substring-matching tunnel_id.
type CloudflareTunnelSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewCloudflareTunnelSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *CloudflareTunnelSyncer {
	return &CloudflareTunnelSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *CloudflareTunnelSyncer) Name() string { return "cloudflaretunnel" }

func (s *CloudflareTunnelSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *CloudflareTunnelSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_tunnels", nil)
	tunnels := asList(payload, "tunnels")

	var rows []map[string]interface{}
	var identities []model.Row

	for _, tun := range tunnels {
		tunnelID := asString(tun, "id")
		if tunnelID == "" {
			continue
		}
		row := model.Row{
			"tunnel_id": tunnelID,
			"name":      asString(tun, "name"),
			"status":    asString(tun, "status"),
			"source":    s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"tunnel_id": tunnelID})
	}

	if err := s.store.BatchMerge(ctx, mergeCloudflareTunnelStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelCloudflareTunnel, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}
