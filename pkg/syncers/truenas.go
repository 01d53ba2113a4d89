package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/truenas"
)

const mergeStoragePoolStatement = `
MERGE (n:` + model.LabelStoragePool + ` {name: row.name, instance: row.instance})
SET n.status = row.status,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeDatasetStatement = `
MERGE (n:` + model.LabelDataset + ` {name: row.name, instance: row.instance})
SET n.used_bytes = row.used_bytes,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MATCH (pool:` + model.LabelStoragePool + ` {name: row.pool, instance: row.instance})
MERGE (pool)-[:` + model.RelContains + `]->(n)`

const mergeShareStatement = `
MERGE (n:` + model.LabelShare + ` {path: row.path, instance: row.instance})
SET n.protocol = row.protocol,
    n.name = row.name,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeStorageAlertStatement = `
MERGE (n:` + model.LabelStorageAlert + ` {alert_id: row.alert_id, instance: row.instance})
SET n.level = row.level,
    n.message = row.message,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeTrueNASAppStatement = `
MERGE (n:` + model.LabelApp + ` {name: row.name, instance: row.instance})
SET n.status = row.status,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

// TrueNASSyncer walks every configured instance's pools, datasets, shares,
// alerts, and apps (spec §4.4).
type TrueNASSyncer struct {
	client    truenas.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewTrueNASSyncer(client truenas.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *TrueNASSyncer {
	return &TrueNASSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *TrueNASSyncer) Name() string { return "truenas" }

func (s *TrueNASSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *TrueNASSyncer) run(ctx context.Context) (int, error) {
	total := 0
	for _, instance := range s.client.Instances() {
		total += s.syncPools(ctx, instance)
		total += s.syncDatasets(ctx, instance)
		total += s.syncShares(ctx, instance)
		total += s.syncAlerts(ctx, instance)
		total += s.syncApps(ctx, instance)
	}
	return total, nil
}

func (s *TrueNASSyncer) syncPools(ctx context.Context, instance string) int {
	pools, err := s.client.ListPools(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list pools", err)
		return 0
	}
	var rows []map[string]interface{}
	var identities []model.Row
	for _, pool := range pools {
		status := model.StatusHealthy
		if !pool.Healthy {
			status = model.StatusDegraded
		}
		row := model.Row{"name": pool.Name, "instance": instance, "status": status, "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": pool.Name, "instance": instance})
	}
	if err := s.store.BatchMerge(ctx, mergeStoragePoolStatement, rows); err != nil {
		s.logFailure(instance, "merge pools", err)
		return 0
	}
	_ = s.lifecycle.MarkActive(ctx, model.LabelStoragePool, identities)
	return len(rows)
}

func (s *TrueNASSyncer) syncDatasets(ctx context.Context, instance string) int {
	datasets, err := s.client.ListDatasets(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list datasets", err)
		return 0
	}
	var rows []map[string]interface{}
	var identities []model.Row
	for _, ds := range datasets {
		row := model.Row{
			"name": ds.Name, "instance": instance, "pool": ds.Pool,
			"used_bytes": ds.UsedBytes(), "source": s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": ds.Name, "instance": instance})
	}
	if err := s.store.BatchMerge(ctx, mergeDatasetStatement, rows); err != nil {
		s.logFailure(instance, "merge datasets", err)
		return 0
	}
	_ = s.lifecycle.MarkActive(ctx, model.LabelDataset, identities)
	return len(rows)
}

func (s *TrueNASSyncer) syncShares(ctx context.Context, instance string) int {
	var rows []map[string]interface{}
	var identities []model.Row

	nfs, err := s.client.ListNFSShares(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list nfs shares", err)
	}
	for _, share := range nfs {
		row := model.Row{"path": share.Path, "instance": instance, "protocol": "nfs", "name": share.Comment, "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"path": share.Path, "instance": instance})
	}

	smb, err := s.client.ListSMBShares(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list smb shares", err)
	}
	for _, share := range smb {
		row := model.Row{"path": share.Path, "instance": instance, "protocol": "smb", "name": share.Name, "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"path": share.Path, "instance": instance})
	}

	if err := s.store.BatchMerge(ctx, mergeShareStatement, rows); err != nil {
		s.logFailure(instance, "merge shares", err)
		return 0
	}
	_ = s.lifecycle.MarkActive(ctx, model.LabelShare, identities)
	return len(rows)
}

func (s *TrueNASSyncer) syncAlerts(ctx context.Context, instance string) int {
	alerts, err := s.client.ListAlerts(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list alerts", err)
		return 0
	}
	var rows []map[string]interface{}
	var identities []model.Row
	for _, alert := range alerts {
		row := model.Row{
			"alert_id": alert.UUID, "instance": instance, "level": alert.Level,
			"message": alert.Formatted, "source": s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"alert_id": alert.UUID, "instance": instance})
	}
	if err := s.store.BatchMerge(ctx, mergeStorageAlertStatement, rows); err != nil {
		s.logFailure(instance, "merge alerts", err)
		return 0
	}
	_ = s.lifecycle.MarkActive(ctx, model.LabelStorageAlert, identities)
	return len(rows)
}

func (s *TrueNASSyncer) syncApps(ctx context.Context, instance string) int {
	apps, err := s.client.ListApps(ctx, instance)
	if err != nil {
		s.logFailure(instance, "list apps", err)
		return 0
	}
	var rows []map[string]interface{}
	var identities []model.Row
	for _, app := range apps {
		row := model.Row{"name": app.Name, "instance": instance, "status": app.State, "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": app.Name, "instance": instance})
	}
	if err := s.store.BatchMerge(ctx, mergeTrueNASAppStatement, rows); err != nil {
		s.logFailure(instance, "merge apps", err)
		return 0
	}
	_ = s.lifecycle.MarkActive(ctx, model.LabelApp, identities)
	return len(rows)
}

func (s *TrueNASSyncer) logFailure(instance, op string, err error) {
	s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Operation(op).Resource("instance", instance).Error(err).Fields()).
		Warn("truenas operation failed")
}
