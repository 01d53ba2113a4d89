package syncers

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

const mergeHostStatement = `
MERGE (n:` + model.LabelHost + ` {hostname: row.hostname})
SET n.internal_ip = row.internal_ip,
    n.cluster = row.cluster,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MERGE (net:` + model.LabelNetwork + ` {name: row.network})
MERGE (n)-[:` + model.RelConnectedTo + `]->(net)`

// K8sNodesSyncer projects every node in every configured cluster to a Host,
// CONNECTED_TO the cluster's canonical Network — a prerequisite for
// Pod-[:SCHEDULED_ON]->Host (spec §4.4).
type K8sNodesSyncer struct {
	client      k8sclient.Client
	networkName string
	store       graph.Store
	lifecycle   *lifecycle.Manager
	log         *logrus.Logger
}

func NewK8sNodesSyncer(client k8sclient.Client, networkName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sNodesSyncer {
	return &K8sNodesSyncer{client: client, networkName: networkName, store: store, lifecycle: lm, log: log}
}

func (s *K8sNodesSyncer) Name() string { return "k8s_nodes" }

func (s *K8sNodesSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sNodesSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row

	for _, cluster := range s.client.Clusters() {
		nodes, err := s.client.ListNodes(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list nodes for cluster")
			continue
		}
		for _, n := range nodes {
			hostname := n.Name
			row := model.Row{
				"hostname":    hostname,
				"internal_ip": internalIP(n),
				"cluster":     cluster,
				"network":     s.networkName,
				"source":      s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"hostname": hostname})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeHostStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelHost, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func internalIP(n corev1.Node) string {
	for _, addr := range n.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			return addr.Address
		}
	}
	return ""
}
