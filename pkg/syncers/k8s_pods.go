package syncers

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

const mergePodStatement = `
MERGE (n:` + model.LabelPod + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
SET n.status = row.status,
    n.node_name = row.node_name,
    n.labels = row.labels,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
WHERE row.node_name <> ''
MATCH (h:` + model.LabelHost + ` {hostname: row.node_name})
MERGE (n)-[:` + model.RelScheduledOn + `]->(h)`

const mergePodOwnerStatement = `
MATCH (p:` + model.LabelPod + ` {name: row.pod_name, namespace: row.namespace, cluster: row.cluster})
MATCH (owner {name: row.owner_name, namespace: row.namespace, cluster: row.cluster})
WHERE row.owner_label IN labels(owner)
MERGE (p)-[:` + model.RelBelongsTo + `]->(owner)`

// replicaSetOwner is the two-hop lookup key built once per cycle from the
// cluster's ReplicaSets, resolving Pod -> ReplicaSet -> Deployment (spec
// §4.4 "Pod ownership resolution").
type replicaSetOwner struct {
	kind string
	name string
}

// K8sPodsSyncer projects Pods, resolves their deployment-level owner via a
// pre-fetched ReplicaSet map, and links Pod-[:SCHEDULED_ON]->Host.
type K8sPodsSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sPodsSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sPodsSyncer {
	return &K8sPodsSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sPodsSyncer) Name() string { return "k8s_pods" }

func (s *K8sPodsSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sPodsSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row
	var ownerRows []map[string]interface{}

	for _, cluster := range s.client.Clusters() {
		rsOwners, err := s.replicaSetOwners(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to pre-fetch replicasets for cluster; pod ownership resolution degraded")
		}

		pods, err := s.client.ListPodsAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list pods for cluster")
			continue
		}

		for _, pod := range pods {
			if pod.Status.Phase == corev1.PodSucceeded {
				// Job pod: skipped entirely, spec §4.4 status table.
				continue
			}
			row := model.Row{
				"name":      pod.Name,
				"namespace": pod.Namespace,
				"cluster":   cluster,
				"status":    podStatus(pod),
				"node_name": pod.Spec.NodeName,
				"labels":    stringifySelector(pod.Labels),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": pod.Name, "namespace": pod.Namespace, "cluster": cluster})

			if ownerKind, ownerName, ok := resolvePodOwner(pod, rsOwners); ok {
				ownerRows = append(ownerRows, map[string]interface{}{
					"pod_name":   pod.Name,
					"namespace":  pod.Namespace,
					"cluster":    cluster,
					"owner_name": ownerName,
					"owner_label": ownerKind,
				})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergePodStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelPod, identities); err != nil {
		return 0, err
	}
	if len(ownerRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergePodOwnerStatement, ownerRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Operation("owner_link").Error(err).Fields()).
				Warn("failed to link pods to owners")
		}
	}
	return len(rows), nil
}

// replicaSetOwners pre-fetches every ReplicaSet in cluster once, keyed by
// (name, namespace), per spec §4.4.
func (s *K8sPodsSyncer) replicaSetOwners(ctx context.Context, cluster string) (map[string]replicaSetOwner, error) {
	rsOwners := make(map[string]replicaSetOwner)
	replicaSets, err := s.client.ListReplicaSetsAll(ctx, cluster)
	if err != nil {
		return rsOwners, err
	}
	for _, rs := range replicaSets {
		for _, ref := range rs.OwnerReferences {
			rsOwners[rsKey(rs.Name, rs.Namespace)] = replicaSetOwner{kind: ref.Kind, name: ref.Name}
			break
		}
	}
	return rsOwners, nil
}

func rsKey(name, namespace string) string {
	return fmt.Sprintf("%s/%s", namespace, name)
}

// resolvePodOwner implements the two-hop lookup: a Pod owned directly by a
// StatefulSet/DaemonSet/Job is used as-is; a Pod owned by a ReplicaSet is
// attributed to whatever owns that ReplicaSet (normally a Deployment).
func resolvePodOwner(pod corev1.Pod, rsOwners map[string]replicaSetOwner) (label, name string, ok bool) {
	for _, ref := range pod.OwnerReferences {
		switch ref.Kind {
		case "StatefulSet":
			return model.LabelStatefulSet, ref.Name, true
		case "DaemonSet":
			return model.LabelDaemonSet, ref.Name, true
		case "Job":
			// Jobs are not a managed label in this graph; no edge.
			return "", "", false
		case "ReplicaSet":
			if owner, found := rsOwners[rsKey(ref.Name, pod.Namespace)]; found && owner.kind == "Deployment" {
				return model.LabelDeployment, owner.name, true
			}
			return "", "", false
		}
	}
	return "", "", false
}

// podStatus applies the canonical Pod status table (spec §4.4). Callers
// must skip PodSucceeded before calling this.
func podStatus(pod corev1.Pod) string {
	if pod.Status.Phase == corev1.PodFailed || pod.Status.Phase == corev1.PodUnknown {
		return model.StatusUnhealthy
	}
	if pod.Status.Phase != corev1.PodRunning {
		return model.StatusPending
	}
	allReady := true
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			allReady = false
			break
		}
	}
	if allReady {
		return model.StatusHealthy
	}
	return model.StatusDegraded
}
