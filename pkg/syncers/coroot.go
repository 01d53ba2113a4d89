package syncers

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeCorootAlertStatement = `
MERGE (n:` + model.LabelAlert + ` {name: row.name})
SET n.severity = row.severity,
    n.description = row.description,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeDependsOnStatement = `
MATCH (from:` + model.LabelService + ` {name: row.from_service})
MATCH (to:` + model.LabelService + ` {name: row.to_service})
MERGE (from)-[r:` + model.RelDependsOn + `]->(to)
SET r.source = 'coroot'`

// CorootSyncer projects Coroot's alerts and dependency map. Cluster-id
// pseudo-services are filtered out (spec §4.4). Coroot's service health
// overview is not fetched.
type CorootSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewCorootSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *CorootSyncer {
	return &CorootSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *CorootSyncer) Name() string { return "coroot" }

func (s *CorootSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *CorootSyncer) run(ctx context.Context) (int, error) {
	alertsPayload := s.client.CallTool(ctx, s.serverName, "list_alerts", nil)
	alerts := asList(alertsPayload, "alerts")

	var alertRows []map[string]interface{}
	var identities []model.Row
	for _, alert := range alerts {
		name := asString(alert, "name")
		if name == "" {
			continue
		}
		row := model.Row{
			"name": name, "severity": asString(alert, "severity"),
			"description": asString(alert, "description"), "source": s.Name(),
		}
		alertRows = append(alertRows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": name})
	}
	if err := s.store.BatchMerge(ctx, mergeCorootAlertStatement, alertRows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelAlert, identities); err != nil {
		return 0, err
	}

	mapPayload := s.client.CallTool(ctx, s.serverName, "dependency_map", nil)
	services := asList(mapPayload, "services")

	var dependRows []map[string]interface{}
	for _, svc := range services {
		name := asString(svc, "name")
		if isClusterIDPseudoService(name) {
			continue
		}
		for _, field := range []string{"upstreams", "downstreams"} {
			for _, peer := range asStringList(svc, field) {
				if isClusterIDPseudoService(peer) {
					continue
				}
				from, to := name, peer
				if field == "upstreams" {
					from, to = peer, name
				}
				dependRows = append(dependRows, map[string]interface{}{"from_service": from, "to_service": to})
			}
		}
	}
	if len(dependRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeDependsOnStatement, dependRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge service dependency edges")
		}
	}

	return len(alertRows), nil
}

// isClusterIDPseudoService filters Coroot's synthetic cluster-id entries
// (e.g. "cluster-3f9a") out of the dependency map (spec §4.4).
func isClusterIDPseudoService(name string) bool {
	return strings.HasPrefix(name, "cluster-")
}

func asStringList(m map[string]interface{}, field string) []string {
	raw, ok := m[field]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
