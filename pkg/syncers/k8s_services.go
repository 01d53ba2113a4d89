package syncers

import (
	"context"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

const mergeServiceStatement = `
MERGE (n:` + model.LabelService + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
SET n.selector = row.selector,
    n.is_bridge = row.is_bridge,
    n.type = row.type,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

// K8sServicesSyncer projects Services. The label-selector match against
// Pods runs later, in the cross-source linker (spec §4.5) — selector is
// stored here only so that pass has something to read.
type K8sServicesSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sServicesSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sServicesSyncer {
	return &K8sServicesSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sServicesSyncer) Name() string { return "k8s_services" }

func (s *K8sServicesSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sServicesSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row

	for _, cluster := range s.client.Clusters() {
		svcs, err := s.client.ListServicesAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list services for cluster")
			continue
		}
		for _, svc := range svcs {
			selector := stringifySelector(svc.Spec.Selector)
			isBridge := svc.Spec.Type == corev1.ServiceTypeClusterIP && len(svc.Spec.Selector) == 0
			row := model.Row{
				"name":      svc.Name,
				"namespace": svc.Namespace,
				"cluster":   cluster,
				"selector":  selector,
				"is_bridge": isBridge,
				"type":      string(svc.Spec.Type),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": svc.Name, "namespace": svc.Namespace, "cluster": cluster})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeServiceStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelService, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// stringifySelector renders a label/selector map deterministically (sorted
// keys) so the cross-source linker's selector and label matches are
// string-comparable without re-parsing. Reused by the Pod and Deployment
// syncers to stringify object labels the same way.
func stringifySelector(sel map[string]string) string {
	if len(sel) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+sel[k])
	}
	return strings.Join(parts, ",")
}
