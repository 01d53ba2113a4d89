// Package linker implements the cross-source linker (C5, spec §4.5). It
// runs once per cycle after every syncer completes, joining nodes whose
// endpoints were populated by different syncers and therefore can't be
// reliably linked from inside a single syncer. Every pass is driven by
// idempotent MERGE so re-running the linker twice in a row is a no-op.
package linker

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/model"
)

// Linker drives the post-sync join passes described in spec §4.5.
type Linker struct {
	store graph.Store
	log   *logrus.Logger
}

func New(store graph.Store, log *logrus.Logger) *Linker {
	return &Linker{store: store, log: log}
}

// Result is what the orchestrator records per linker pass per cycle,
// mirroring syncers.Result so both fold into the same per-cycle counter
// dict (spec §4.7).
type Result struct {
	Pass  string
	Count int
	Err   error
}

// Run executes every pass in the order documented in spec §4.5. A failed
// pass is logged and does not block the remaining passes — the same
// best-effort philosophy the lifecycle manager applies to its own
// per-label operations.
func (l *Linker) Run(ctx context.Context) []Result {
	passes := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"service_to_pod", l.linkServicesToPods},
		{"argoapp_to_service", l.linkArgoAppsToServices},
		{"dns_to_reverseproxy", l.linkReverseProxies},
		{"cname_to_cloudflaretunnel", l.linkCloudflareTunnels},
		{"cname_chain", l.linkCNAMEChains},
		{"dns_to_ingress", l.linkDNSToIngresses},
	}

	results := make([]Result, 0, len(passes))
	for _, p := range passes {
		count, err := p.fn(ctx)
		if err != nil {
			l.log.WithFields(logging.NewFields().Component("linker").Operation(p.name).Error(err).Fields()).
				Warn("linker pass failed, continuing with remaining passes")
		}
		results = append(results, Result{Pass: p.name, Count: count, Err: err})
	}
	return results
}

const mergeServiceSelectsPodStatement = `
MATCH (s:` + model.LabelService + ` {name: row.from_name, namespace: row.from_namespace, cluster: row.from_cluster})
MATCH (p:` + model.LabelPod + ` {name: row.to_name, namespace: row.to_namespace, cluster: row.to_cluster})
MERGE (s)-[:` + model.RelSelects + `]->(p)`

// linkServicesToPods implements spec §4.5 pass 1: for every Service with a
// non-empty label selector, MERGE a SELECTS edge to every Pod in the same
// namespace/cluster whose labels are a superset of the selector.
func (l *Linker) linkServicesToPods(ctx context.Context) (int, error) {
	services, err := l.store.Query(ctx, `MATCH (s:`+model.LabelService+`) WHERE coalesce(s.selector, '') <> '' RETURN s.name AS name, s.namespace AS namespace, s.cluster AS cluster, s.selector AS selector`, nil)
	if err != nil {
		return 0, err
	}
	pods, err := l.store.Query(ctx, `MATCH (p:`+model.LabelPod+`) RETURN p.name AS name, p.namespace AS namespace, p.cluster AS cluster, p.labels AS labels`, nil)
	if err != nil {
		return 0, err
	}

	podsByScope := make(map[string][]graph.Record)
	for _, pod := range pods {
		scope := scopeKey(asRecString(pod, "namespace"), asRecString(pod, "cluster"))
		podsByScope[scope] = append(podsByScope[scope], pod)
	}

	var edges []model.Edge
	for _, svc := range services {
		namespace := asRecString(svc, "namespace")
		cluster := asRecString(svc, "cluster")
		selector := parseKVString(asRecString(svc, "selector"))
		if len(selector) == 0 {
			continue
		}
		for _, pod := range podsByScope[scopeKey(namespace, cluster)] {
			labels := parseKVString(asRecString(pod, "labels"))
			if !isSubset(selector, labels) {
				continue
			}
			edges = append(edges, model.Edge{
				FromLabel: model.LabelService,
				FromKey:   model.Row{"name": asRecString(svc, "name"), "namespace": namespace, "cluster": cluster},
				ToLabel:   model.LabelPod,
				ToKey:     model.Row{"name": asRecString(pod, "name"), "namespace": namespace, "cluster": cluster},
				Type:      model.RelSelects,
			})
		}
	}

	rows := toRows(edges)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := l.store.BatchMerge(ctx, mergeServiceSelectsPodStatement, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

const mergeArgoAppDeploysServiceStatement = `
MATCH (a:` + model.LabelArgoApp + ` {name: row.from_name})
MATCH (s:` + model.LabelService + ` {name: row.to_name, namespace: row.to_namespace, cluster: row.to_cluster})
MERGE (a)-[r:` + model.RelDeploys + `]->(s)
SET r.strategy = row.strategy,
    r.confidence = row.confidence`

// broadMatchNamespaceWhitelist are the namespaces strategy 5 is allowed to
// fall back to when an ArgoApp matches nothing more specific. Kept small
// and explicit so a broad match can only ever apply to namespaces known to
// hold few enough services that the guess is still informative (spec
// §4.5 pass 2, strategy 5).
var broadMatchNamespaceWhitelist = map[string]bool{
	"default":    true,
	"monitoring": true,
	"media":      true,
	"home":       true,
}

// linkArgoAppsToServices implements spec §4.5 pass 2: five strategies,
// first-match-wins, tagged with (strategy, confidence) except strategy 1
// which originally left both properties unset (spec §9 Q3 — readers must
// treat a missing confidence as 1.0).
func (l *Linker) linkArgoAppsToServices(ctx context.Context) (int, error) {
	apps, err := l.store.Query(ctx, `MATCH (a:`+model.LabelArgoApp+`) WHERE coalesce(a.is_umbrella, false) = false RETURN a.name AS name, a.target_cluster AS target_cluster, a.derived_namespace AS derived_namespace, a.path_tail AS path_tail`, nil)
	if err != nil {
		return 0, err
	}
	services, err := l.store.Query(ctx, `MATCH (s:`+model.LabelService+`) RETURN s.name AS name, s.namespace AS namespace, s.cluster AS cluster`, nil)
	if err != nil {
		return 0, err
	}
	deployments, err := l.store.Query(ctx, `MATCH (d:`+model.LabelDeployment+`) RETURN d.name AS name, d.namespace AS namespace, d.cluster AS cluster, d.labels AS labels`, nil)
	if err != nil {
		return 0, err
	}

	serviceIdentities := make(map[string]bool, len(services))
	servicesByNamespace := make(map[string][]graph.Record)
	for _, svc := range services {
		serviceIdentities[identityKey(asRecString(svc, "name"), asRecString(svc, "namespace"), asRecString(svc, "cluster"))] = true
		servicesByNamespace[asRecString(svc, "namespace")] = append(servicesByNamespace[asRecString(svc, "namespace")], svc)
	}

	var edges []model.Edge
	for _, app := range apps {
		appName := asRecString(app, "name")
		edges = append(edges, matchArgoApp(appName, asRecString(app, "target_cluster"), asRecString(app, "derived_namespace"), asRecString(app, "path_tail"), services, deployments, serviceIdentities, servicesByNamespace)...)
	}

	rows := toRows(edges)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := l.store.BatchMerge(ctx, mergeArgoAppDeploysServiceStatement, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func matchArgoApp(appName, targetCluster, derivedNamespace, pathTail string, services, deployments []graph.Record, serviceIdentities map[string]bool, servicesByNamespace map[string][]graph.Record) []model.Edge {
	deploysEdge := func(name, namespace, cluster string, props model.Row) model.Edge {
		return model.Edge{
			FromLabel: model.LabelArgoApp,
			FromKey:   model.Row{"name": appName},
			ToLabel:   model.LabelService,
			ToKey:     model.Row{"name": name, "namespace": namespace, "cluster": cluster},
			Type:      model.RelDeploys,
			Props:     props,
		}
	}

	// Strategy 1: exact name in target cluster, confidence 1.0 (left unset
	// on the edge per spec §9 Q3).
	for _, svc := range services {
		if asRecString(svc, "cluster") == targetCluster && asRecString(svc, "name") == appName {
			return []model.Edge{deploysEdge(appName, asRecString(svc, "namespace"), targetCluster, nil)}
		}
	}

	// Strategy 2: derived_namespace + name prefix match, confidence 0.9.
	for _, svc := range services {
		name := asRecString(svc, "name")
		if asRecString(svc, "namespace") == derivedNamespace && (strings.HasPrefix(name, appName) || strings.HasPrefix(appName, name)) {
			return []model.Edge{deploysEdge(name, derivedNamespace, asRecString(svc, "cluster"), model.Row{"strategy": "namespace_prefix", "confidence": 0.9})}
		}
	}

	// Strategy 3: path-tail equals service name, confidence 0.85.
	for _, svc := range services {
		if asRecString(svc, "name") == pathTail {
			return []model.Edge{deploysEdge(pathTail, asRecString(svc, "namespace"), asRecString(svc, "cluster"), model.Row{"strategy": "path_tail", "confidence": 0.85})}
		}
	}

	// Strategy 4: a Deployment whose name or labels contain the app name,
	// backed by a same-identity Service, confidence 0.8.
	for _, dep := range deployments {
		name := asRecString(dep, "name")
		labels := asRecString(dep, "labels")
		if !strings.Contains(name, appName) && !strings.Contains(labels, appName) {
			continue
		}
		namespace, cluster := asRecString(dep, "namespace"), asRecString(dep, "cluster")
		if serviceIdentities[identityKey(name, namespace, cluster)] {
			return []model.Edge{deploysEdge(name, namespace, cluster, model.Row{"strategy": "deployment_name", "confidence": 0.8})}
		}
	}

	// Strategy 5: broad namespace match for whitelisted namespaces with
	// fewer than 5 services, confidence 0.6 — every service in the
	// namespace is a candidate, since there's nothing more specific to
	// narrow it down to one.
	if broadMatchNamespaceWhitelist[derivedNamespace] {
		candidates := servicesByNamespace[derivedNamespace]
		if len(candidates) > 0 && len(candidates) < 5 {
			edges := make([]model.Edge, 0, len(candidates))
			for _, svc := range candidates {
				edges = append(edges, deploysEdge(asRecString(svc, "name"), derivedNamespace, asRecString(svc, "cluster"), model.Row{"strategy": "broad_namespace", "confidence": 0.6}))
			}
			return edges
		}
	}

	return nil
}

const linkDNSToReverseProxyCypher = `
MATCH (d:` + model.LabelDNSRecord + `), (p:` + model.LabelReverseProxy + `)
WHERE d.domain = p.domain
MERGE (d)-[:` + model.RelRoutesThrough + `]->(p)
RETURN count(*) AS merged`

const linkReverseProxyToTargetCypher = `
MATCH (p:` + model.LabelReverseProxy + `)
OPTIONAL MATCH (h:` + model.LabelHost + ` {internal_ip: p.upstream_ip})
OPTIONAL MATCH (vm:` + model.LabelVM + ` {ip_address: p.upstream_ip})
OPTIONAL MATCH (nas:` + model.LabelNAS + ` {ip: p.upstream_ip})
OPTIONAL MATCH (pn:` + model.LabelProxmoxNode + ` {ip: p.upstream_ip})
OPTIONAL MATCH (dev:` + model.LabelDevice + ` {ip: p.upstream_ip})
WITH p, coalesce(h, vm, nas, pn, dev) AS target
WHERE target IS NOT NULL
MERGE (p)-[:` + model.RelProxiesTo + `]->(target)
RETURN count(*) AS merged`

// linkReverseProxies implements spec §4.5 pass 3: DNSRecord->ReverseProxy
// by exact domain equality, then ReverseProxy->{Host,VM,NAS,ProxmoxNode,
// Device} by upstream-IP match with a fixed preference ordering (Host >
// VM > NAS > ProxmoxNode > Device) so the edge stays single-target.
func (l *Linker) linkReverseProxies(ctx context.Context) (int, error) {
	domainCount, err := l.runStaticMerge(ctx, linkDNSToReverseProxyCypher)
	if err != nil {
		return domainCount, err
	}
	ipCount, err := l.runStaticMerge(ctx, linkReverseProxyToTargetCypher)
	return domainCount + ipCount, err
}

const linkCNAMEToCloudflareTunnelCypher = `
MATCH (d:` + model.LabelDNSRecord + ` {record_type: 'CNAME'})
WHERE d.answer CONTAINS '.cfargotunnel.com'
MATCH (t:` + model.LabelCloudflareTunnel + `)
WHERE d.answer CONTAINS t.tunnel_id
MERGE (d)-[:` + model.RelPointsTo + `]->(t)
RETURN count(*) AS merged`

// linkCloudflareTunnels implements spec §4.5 pass 4.
func (l *Linker) linkCloudflareTunnels(ctx context.Context) (int, error) {
	return l.runStaticMerge(ctx, linkCNAMEToCloudflareTunnelCypher)
}

const linkCNAMEChainCypher = `
MATCH (a:` + model.LabelDNSRecord + ` {record_type: 'CNAME'})
MATCH (b:` + model.LabelDNSRecord + ` {domain: a.answer})
WHERE a <> b
MERGE (a)-[:` + model.RelResolvesTo + `]->(b)
RETURN count(*) AS merged`

// linkCNAMEChains implements spec §4.5 pass 5. Chains may cycle (spec §9
// "Cyclic / self-joining graphs"); MERGE tolerates that since every node
// stays identity-keyed and no transitive closure is computed here.
func (l *Linker) linkCNAMEChains(ctx context.Context) (int, error) {
	return l.runStaticMerge(ctx, linkCNAMEChainCypher)
}

const linkDNSToIngressCypher = `
MATCH (d:` + model.LabelDNSRecord + `)
WHERE d.record_type IN ['A', 'CNAME']
MATCH (i:` + model.LabelIngress + `)
WHERE d.domain IN i.hostnames
MERGE (d)-[:` + model.RelRoutesTo + `]->(i)
RETURN count(*) AS merged`

// linkDNSToIngresses implements spec §4.5 pass 6.
func (l *Linker) linkDNSToIngresses(ctx context.Context) (int, error) {
	return l.runStaticMerge(ctx, linkDNSToIngressCypher)
}

// runStaticMerge runs a self-contained MATCH...MERGE...RETURN count(*)
// statement that needs no row parameters, for the passes that are pure
// property-equality joins (spec §4.5 passes 3-6).
func (l *Linker) runStaticMerge(ctx context.Context, cypher string) (int, error) {
	records, err := l.store.Write(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	switch v := records[0]["merged"].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, nil
	}
}

func asRecString(rec graph.Record, field string) string {
	if v, ok := rec[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func scopeKey(namespace, cluster string) string {
	return namespace + "/" + cluster
}

func identityKey(name, namespace, cluster string) string {
	return name + "/" + namespace + "/" + cluster
}

// parseKVString reverses the syncers package's stringifySelector
// ("k=v,k2=v2" sorted-key rendering) back into a map.
func parseKVString(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

// isSubset reports whether every key/value in selector is also present in
// labels (a Pod matches a Service's selector iff its labels are a
// superset of it).
func isSubset(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// toRows flattens a batch of same-shaped edges into BatchMerge rows: the
// from-key fields prefixed `from_`, the to-key fields prefixed `to_`, and
// any relationship properties passed through unprefixed.
func toRows(edges []model.Edge) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		row := make(map[string]interface{}, len(e.FromKey)+len(e.ToKey)+len(e.Props))
		for k, v := range e.FromKey {
			row["from_"+k] = v
		}
		for k, v := range e.ToKey {
			row["to_"+k] = v
		}
		for k, v := range e.Props {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows
}
