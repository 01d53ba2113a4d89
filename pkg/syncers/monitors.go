package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeUptimeMonitorStatement = `
MERGE (n:` + model.LabelUptimeMonitor + ` {key: row.key})
SET n.status = row.status,
    n.name = row.name,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeDashboardStatement = `
MERGE (n:` + model.LabelDashboard + ` {uid: row.uid})
SET n.title = row.title,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

func mergeMonitorsStatement(nodeLabel, idField string) string {
	return `
MATCH (n:` + nodeLabel + ` {` + idField + `: row.id})
OPTIONAL MATCH (svc:` + model.LabelService + ` {name: row.target_name})
OPTIONAL MATCH (vm:` + model.LabelVM + ` {name: row.target_name})
OPTIONAL MATCH (host:` + model.LabelHost + ` {hostname: row.target_name})
OPTIONAL MATCH (nas:` + model.LabelNAS + ` {name: row.target_name})
WITH n, coalesce(svc, vm, host, nas) AS target
WHERE target IS NOT NULL
MERGE (n)-[:` + model.RelMonitors + `]->(target)`
}

// GatusSyncer projects uptime monitors and links the first matching
// Service, else VM, Host, or NAS (spec §4.4's preference order).
type GatusSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewGatusSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *GatusSyncer {
	return &GatusSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *GatusSyncer) Name() string { return "gatus" }

func (s *GatusSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *GatusSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_monitors", nil)
	monitors := asList(payload, "monitors")

	var rows []map[string]interface{}
	var identities []model.Row
	var linkRows []map[string]interface{}

	for _, mon := range monitors {
		key := asString(mon, "key")
		if key == "" {
			continue
		}
		status := model.StatusHealthy
		if !asBool(mon, "up") {
			status = model.StatusUnhealthy
		}
		row := model.Row{"key": key, "status": status, "name": asString(mon, "name"), "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"key": key})
		linkRows = append(linkRows, map[string]interface{}{"id": key, "target_name": asString(mon, "name")})
	}

	if err := s.store.BatchMerge(ctx, mergeUptimeMonitorStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelUptimeMonitor, identities); err != nil {
		return 0, err
	}
	if len(linkRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeMonitorsStatement(model.LabelUptimeMonitor, "key"), linkRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge monitors-target edges")
		}
	}
	return len(rows), nil
}

// KeepSyncer merges Keep's alerts as Alert nodes keyed by name, with their
// status. It creates no MONITORS edges to a Service, VM, Host, or NAS.
type KeepSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewKeepSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *KeepSyncer {
	return &KeepSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *KeepSyncer) Name() string { return "keep" }

func (s *KeepSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *KeepSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_alerts", nil)
	alerts := asList(payload, "alerts")

	var rows []map[string]interface{}
	var identities []model.Row
	for _, alert := range alerts {
		name := asString(alert, "name")
		if name == "" {
			continue
		}
		row := model.Row{"name": name, "status": asString(alert, "status"), "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": name})
	}

	const mergeKeepAlertStatement = `
MERGE (n:` + model.LabelAlert + ` {name: row.name})
SET n.status = row.status,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

	if err := s.store.BatchMerge(ctx, mergeKeepAlertStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelAlert, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GrafanaSyncer projects dashboards and a MONITORS link when the dashboard
// metadata names a known target (spec §4.4).
type GrafanaSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewGrafanaSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *GrafanaSyncer {
	return &GrafanaSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *GrafanaSyncer) Name() string { return "grafana" }

func (s *GrafanaSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *GrafanaSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_dashboards", nil)
	dashboards := asList(payload, "dashboards")

	var rows []map[string]interface{}
	var identities []model.Row
	var linkRows []map[string]interface{}

	for _, dash := range dashboards {
		uid := asString(dash, "uid")
		if uid == "" {
			continue
		}
		row := model.Row{"uid": uid, "title": asString(dash, "title"), "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"uid": uid})
		if target := asString(dash, "target_name"); target != "" {
			linkRows = append(linkRows, map[string]interface{}{"id": uid, "target_name": target})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeDashboardStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelDashboard, identities); err != nil {
		return 0, err
	}
	if len(linkRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeMonitorsStatement(model.LabelDashboard, "uid"), linkRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge monitors-target edges")
		}
	}
	return len(rows), nil
}
