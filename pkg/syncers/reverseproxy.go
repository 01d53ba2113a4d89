package syncers

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeReverseProxyStatement = `
MERGE (n:` + model.LabelReverseProxy + ` {domain: row.domain})
SET n.upstream_ip = row.upstream_ip,
    n.upstream_port = row.upstream_port,
    n.upstream_tls = row.upstream_tls,
    n.description = row.description,
    n.enabled = row.enabled,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

// ReverseProxySyncer projects ReverseProxy nodes from a Caddy-style reverse
// proxy admin API, joining its proxy definitions with their route handles by
// UUID the way the original discovery service's `sync_caddy_proxies` does
// (a proxy's upstream lives on the handle whose `reverse` field names the
// proxy's own `uuid`, not on the proxy record itself). The cross-source
// linker (§4.5 pass 3) later matches DNSRecord->ReverseProxy by exact
// domain equality, then ReverseProxy->{Host,VM,NAS,ProxmoxNode,Device} by
// upstream_ip.
type ReverseProxySyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewReverseProxySyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *ReverseProxySyncer {
	return &ReverseProxySyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *ReverseProxySyncer) Name() string { return "reverseproxy" }

func (s *ReverseProxySyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *ReverseProxySyncer) run(ctx context.Context) (int, error) {
	proxiesPayload := s.client.CallTool(ctx, s.serverName, "list_caddy_reverse_proxies", nil)
	proxies := asList(proxiesPayload, "proxies")

	handlesPayload := s.client.CallTool(ctx, s.serverName, "list_caddy_handles", nil)
	handles := asList(handlesPayload, "handles")

	handleByProxyUUID := make(map[string]map[string]interface{}, len(handles))
	for _, h := range handles {
		if reverse := asString(h, "reverse"); reverse != "" {
			handleByProxyUUID[reverse] = h
		}
	}

	var rows []map[string]interface{}
	var identities []model.Row

	for _, proxy := range proxies {
		domain := asString(proxy, "from_domain")
		if domain == "" {
			continue
		}
		handle := handleByProxyUUID[asString(proxy, "uuid")]
		row := model.Row{
			"domain":        domain,
			"upstream_ip":   asString(handle, "to_domain"),
			"upstream_port": parsePort(asString(handle, "to_port")),
			"upstream_tls":  asString(handle, "http_tls") == "1",
			"description":   asString(proxy, "description"),
			"enabled":       asString(proxy, "enabled") == "1",
			"source":        s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"domain": domain})
	}

	if err := s.store.BatchMerge(ctx, mergeReverseProxyStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelReverseProxy, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// parsePort parses a numeric port string, defaulting to 0 for anything
// non-numeric or empty (the admin API reports it as a string field).
func parsePort(s string) int64 {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return int64(n)
}
