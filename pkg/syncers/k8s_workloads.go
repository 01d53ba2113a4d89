package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

func mergeWorkloadStatement(label string) string {
	return `
MERGE (n:` + label + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
SET n.status = row.status,
    n.replicas = row.replicas,
    n.ready = row.ready,
    n.labels = row.labels,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MATCH (svc:` + model.LabelService + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
MERGE (svc)-[:` + model.RelBackedBy + `]->(n)`
}

// deploymentStatus applies the canonical replica-readiness table shared by
// Deployments, StatefulSets, and DaemonSets (spec §4.4).
func deploymentStatus(ready, replicas int32) string {
	switch {
	case replicas == 0:
		return model.StatusScaledDown
	case ready >= replicas:
		return model.StatusHealthy
	case ready > 0:
		return model.StatusDegraded
	default:
		return model.StatusUnhealthy
	}
}

// K8sDeploymentsSyncer projects Deployments and same-name Service backing.
type K8sDeploymentsSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sDeploymentsSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sDeploymentsSyncer {
	return &K8sDeploymentsSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sDeploymentsSyncer) Name() string { return "k8s_deployments" }

func (s *K8sDeploymentsSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sDeploymentsSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row

	for _, cluster := range s.client.Clusters() {
		deps, err := s.client.ListDeploymentsAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list deployments for cluster")
			continue
		}
		for _, d := range deps {
			replicas := int32(1)
			if d.Spec.Replicas != nil {
				replicas = *d.Spec.Replicas
			}
			row := model.Row{
				"name":      d.Name,
				"namespace": d.Namespace,
				"cluster":   cluster,
				"status":    deploymentStatus(d.Status.ReadyReplicas, replicas),
				"replicas":  int64(replicas),
				"ready":     int64(d.Status.ReadyReplicas),
				"labels":    stringifySelector(d.Labels),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": d.Name, "namespace": d.Namespace, "cluster": cluster})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeWorkloadStatement(model.LabelDeployment), rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelDeployment, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// K8sStatefulSetsSyncer projects StatefulSets and same-name Service backing.
type K8sStatefulSetsSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sStatefulSetsSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sStatefulSetsSyncer {
	return &K8sStatefulSetsSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sStatefulSetsSyncer) Name() string { return "k8s_statefulsets" }

func (s *K8sStatefulSetsSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sStatefulSetsSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row

	for _, cluster := range s.client.Clusters() {
		sets, err := s.client.ListStatefulSetsAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list statefulsets for cluster")
			continue
		}
		for _, d := range sets {
			replicas := int32(1)
			if d.Spec.Replicas != nil {
				replicas = *d.Spec.Replicas
			}
			row := model.Row{
				"name":      d.Name,
				"namespace": d.Namespace,
				"cluster":   cluster,
				"status":    deploymentStatus(d.Status.ReadyReplicas, replicas),
				"replicas":  int64(replicas),
				"ready":     int64(d.Status.ReadyReplicas),
				"labels":    stringifySelector(d.Labels),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": d.Name, "namespace": d.Namespace, "cluster": cluster})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeWorkloadStatement(model.LabelStatefulSet), rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelStatefulSet, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// K8sDaemonSetsSyncer projects DaemonSets; health is desired-vs-ready pods,
// not replica count (DaemonSets have no replica field).
type K8sDaemonSetsSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sDaemonSetsSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sDaemonSetsSyncer {
	return &K8sDaemonSetsSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sDaemonSetsSyncer) Name() string { return "k8s_daemonsets" }

func (s *K8sDaemonSetsSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sDaemonSetsSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row

	for _, cluster := range s.client.Clusters() {
		sets, err := s.client.ListDaemonSetsAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list daemonsets for cluster")
			continue
		}
		for _, d := range sets {
			row := model.Row{
				"name":      d.Name,
				"namespace": d.Namespace,
				"cluster":   cluster,
				"status":    deploymentStatus(d.Status.NumberReady, d.Status.DesiredNumberScheduled),
				"replicas":  int64(d.Status.DesiredNumberScheduled),
				"ready":     int64(d.Status.NumberReady),
				"labels":    stringifySelector(d.Labels),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": d.Name, "namespace": d.Namespace, "cluster": cluster})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeWorkloadStatement(model.LabelDaemonSet), rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelDaemonSet, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}
