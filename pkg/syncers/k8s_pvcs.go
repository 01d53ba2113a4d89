package syncers

import (
	"context"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

const mergePVCStatement = `
MERGE (n:` + model.LabelPVC + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
SET n.status = row.status,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergePVCClaimStatement = `
MATCH (n:` + model.LabelPVC + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
MATCH (svc:` + model.LabelService + ` {name: row.service_name, namespace: row.namespace, cluster: row.cluster})
MERGE (n)-[:` + model.RelClaimedBy + `]->(svc)`

// K8sPVCsSyncer projects PersistentVolumeClaims and a heuristic CLAIMED_BY
// edge to the Service in the same namespace whose name is the longest
// prefix of the PVC's name (spec §4.4).
type K8sPVCsSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sPVCsSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sPVCsSyncer {
	return &K8sPVCsSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sPVCsSyncer) Name() string { return "k8s_pvcs" }

func (s *K8sPVCsSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sPVCsSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row
	var claimRows []map[string]interface{}

	for _, cluster := range s.client.Clusters() {
		pvcs, err := s.client.ListPVCsAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list pvcs for cluster")
			continue
		}

		svcs, err := s.client.ListServicesAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list services for pvc claim heuristic")
		}

		for _, pvc := range pvcs {
			row := model.Row{
				"name":      pvc.Name,
				"namespace": pvc.Namespace,
				"cluster":   cluster,
				"status":    pvcStatus(pvc),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": pvc.Name, "namespace": pvc.Namespace, "cluster": cluster})

			if svcName, ok := longestPrefixService(pvc.Name, pvc.Namespace, svcs); ok {
				claimRows = append(claimRows, map[string]interface{}{
					"name":         pvc.Name,
					"namespace":    pvc.Namespace,
					"cluster":      cluster,
					"service_name": svcName,
				})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergePVCStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelPVC, identities); err != nil {
		return 0, err
	}
	if len(claimRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergePVCClaimStatement, claimRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Operation("claim_link").Error(err).Fields()).
				Warn("failed to link pvc claims")
		}
	}
	return len(rows), nil
}

func pvcStatus(pvc corev1.PersistentVolumeClaim) string {
	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		return model.StatusHealthy
	case corev1.ClaimPending:
		return model.StatusPending
	default:
		return model.StatusUnhealthy
	}
}

// longestPrefixService finds, among services in the same namespace, the one
// whose name is the longest prefix of pvcName.
func longestPrefixService(pvcName, namespace string, svcs []corev1.Service) (string, bool) {
	best := ""
	for _, svc := range svcs {
		if svc.Namespace != namespace {
			continue
		}
		if strings.HasPrefix(pvcName, svc.Name) && len(svc.Name) > len(best) {
			best = svc.Name
		}
	}
	return best, best != ""
}
