package syncers

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeArgoAppStatement = `
MERGE (n:` + model.LabelArgoApp + ` {name: row.name})
SET n.target_cluster = row.target_cluster,
    n.derived_namespace = row.derived_namespace,
    n.path_tail = row.path_tail,
    n.is_umbrella = row.is_umbrella,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

// clusterIPPrefixes maps known destination_server hosts/IP prefixes to the
// cluster names used elsewhere in this repo (internal/config.
// KubernetesClusterConfig: the primary cluster's Name is "", named
// secondary clusters like "edge" resolve through their own kubeconfig).
// The in-cluster API server always means the primary cluster; homelab
// deployments typically reach a second physical cluster through its own
// API endpoint on the LAN.
var clusterIPPrefixes = map[string]string{
	"https://kubernetes.default.svc": "",
	"https://10.20.0.1:6443":         "edge",
	"https://192.168.20.1:6443":      "edge",
}

var umbrellaAppNames = map[string]bool{}

// ArgoCDSyncer projects ArgoApps via the argocd HTTP tool server.
type ArgoCDSyncer struct {
	client      httptool.Client
	serverName  string
	store       graph.Store
	lifecycle   *lifecycle.Manager
	log         *logrus.Logger
}

func NewArgoCDSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *ArgoCDSyncer {
	return &ArgoCDSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *ArgoCDSyncer) Name() string { return "argocd" }

func (s *ArgoCDSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *ArgoCDSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_applications", nil)
	apps := asList(payload, "applications")

	var rows []map[string]interface{}
	var identities []model.Row

	for _, app := range apps {
		name := asString(app, "name")
		if name == "" {
			continue
		}
		destServer := asString(app, "destination_server")
		repoPath := asString(app, "path")
		repoURL := asString(app, "repo_url")

		row := model.Row{
			"name":              name,
			"target_cluster":    targetCluster(destServer, repoPath, repoURL),
			"derived_namespace": derivedNamespace(repoPath),
			"path_tail":         pathTail(repoPath),
			"is_umbrella":       isUmbrellaApp(name),
			"source":            s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"name": name})
	}

	if err := s.store.BatchMerge(ctx, mergeArgoAppStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelArgoApp, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// targetCluster inspects destination_server first (IP-prefix mapping),
// falling back to path/repo string pattern matching (spec §4.4).
func targetCluster(destServer, path, repoURL string) string {
	for prefix, cluster := range clusterIPPrefixes {
		if prefix != "" && strings.HasPrefix(destServer, prefix) {
			return cluster
		}
	}
	for _, candidate := range []string{path, repoURL} {
		lower := strings.ToLower(candidate)
		if strings.Contains(lower, "edge") {
			return "edge"
		}
	}
	return ""
}

// derivedNamespace takes the repo path's second-to-last segment, matching
// the common GitOps layout of `.../<namespace>/<app-name>` (spec §4.4:
// "pattern-matching the repo path"). pathTail is the final segment, kept
// separately since the linker's strategies (2) and (3) test them against
// different things (§4.5).
func derivedNamespace(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func pathTail(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// isUmbrellaApp detects umbrella apps by a known name-suffix convention or
// an explicit known-name list (spec §4.4).
func isUmbrellaApp(name string) bool {
	if umbrellaAppNames[name] {
		return true
	}
	return strings.HasSuffix(name, "-apps") || strings.HasSuffix(name, "-applications")
}
