package syncers

import (
	"context"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

const mergeIngressStatement = `
MERGE (n:` + model.LabelIngress + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
SET n.status = row.status,
    n.hostnames = row.hostnames,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeIngressBackendStatement = `
MATCH (n:` + model.LabelIngress + ` {name: row.name, namespace: row.namespace, cluster: row.cluster})
MATCH (svc:` + model.LabelService + ` {name: row.backend_service, namespace: row.namespace, cluster: row.cluster})
MERGE (n)-[:` + model.RelRoutesTo + `]->(svc)`

// K8sIngressesSyncer projects Ingresses and one ROUTES_TO edge per backend
// service named in the rule set.
type K8sIngressesSyncer struct {
	client    k8sclient.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewK8sIngressesSyncer(client k8sclient.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *K8sIngressesSyncer {
	return &K8sIngressesSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *K8sIngressesSyncer) Name() string { return "k8s_ingresses" }

func (s *K8sIngressesSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *K8sIngressesSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row
	var backendRows []map[string]interface{}

	for _, cluster := range s.client.Clusters() {
		ingresses, err := s.client.ListIngressesAll(ctx, cluster)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("cluster", cluster).Error(err).Fields()).
				Warn("failed to list ingresses for cluster")
			continue
		}
		for _, ing := range ingresses {
			backends := backendServiceNames(ing)
			status := model.StatusPending
			if len(backends) > 0 {
				status = model.StatusActive
			}
			row := model.Row{
				"name":      ing.Name,
				"namespace": ing.Namespace,
				"cluster":   cluster,
				"status":    status,
				"hostnames": ingressHostnames(ing),
				"source":    s.Name(),
			}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"name": ing.Name, "namespace": ing.Namespace, "cluster": cluster})

			for _, backend := range backends {
				backendRows = append(backendRows, map[string]interface{}{
					"name":            ing.Name,
					"namespace":       ing.Namespace,
					"cluster":         cluster,
					"backend_service": backend,
				})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergeIngressStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelIngress, identities); err != nil {
		return 0, err
	}
	if len(backendRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeIngressBackendStatement, backendRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Operation("backend_link").Error(err).Fields()).
				Warn("failed to link ingress backends")
		}
	}
	return len(rows), nil
}

// backendServiceNames collects every distinct backend service name named
// across an Ingress's default backend and rule paths.
func backendServiceNames(ing networkingv1.Ingress) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if ing.Spec.DefaultBackend != nil && ing.Spec.DefaultBackend.Service != nil {
		add(ing.Spec.DefaultBackend.Service.Name)
	}
	for _, rule := range ing.Spec.Rules {
		if rule.HTTP == nil {
			continue
		}
		for _, path := range rule.HTTP.Paths {
			if path.Backend.Service != nil {
				add(path.Backend.Service.Name)
			}
		}
	}
	return names
}

// ingressHostnames collects the distinct rule hosts as a Cypher list value
// (not a joined string) so the cross-source linker's `d.domain IN
// i.hostnames` match (spec §4.5 pass 6) is exact rather than substring.
func ingressHostnames(ing networkingv1.Ingress) []interface{} {
	seen := make(map[string]bool)
	var hosts []interface{}
	for _, rule := range ing.Spec.Rules {
		if rule.Host == "" || seen[rule.Host] {
			continue
		}
		seen[rule.Host] = true
		hosts = append(hosts, rule.Host)
	}
	return hosts
}
