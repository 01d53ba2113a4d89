package orchestrator

import (
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/config"
	"github.com/charlieshreck/homelab-graph/pkg/dedup"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/linker"
	"github.com/charlieshreck/homelab-graph/pkg/metrics"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
	"github.com/charlieshreck/homelab-graph/pkg/sources/proxmox"
	"github.com/charlieshreck/homelab-graph/pkg/sources/truenas"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

// canonicalNetworkName is the Network node every bare device/host syncer
// CONNECTED_TO/ON_NETWORK's before the dedup pass collapses it into
// whichever syncer enriches it with a cidr (spec §4.6).
const canonicalNetworkName = "prod"

// Build wires every C4 syncer against cfg, in this order:
// Proxmox -> UniFi -> TrueNAS -> K8s Nodes -> Deployments -> StatefulSets
// -> DaemonSets -> Services -> Pods -> Ingresses -> ReverseProxy ->
// CloudflareTunnel -> Runbooks -> Coroot -> Gatus -> HA -> Tasmota ->
// ArgoCD -> PVCs -> DHCP -> DNS -> Keep -> Grafana.
// (Service<->Pod linking runs inside the linker, not as a syncer.)
func Build(cfg *config.Config, store graph.Store, k8s k8sclient.Client, px proxmox.Client, tn truenas.Client, ht httptool.Client, log *logrus.Logger) *Orchestrator {
	lm := lifecycle.New(store, logrus.NewEntry(log))
	lk := linker.New(store, log)
	dd := dedup.New(store, log)
	mc := metrics.New()

	var order []syncers.Syncer
	add := func(s syncers.Syncer) { order = append(order, s) }

	add(syncers.NewProxmoxSyncer(px, store, lm, log))
	add(syncers.NewUnifiSyncer(ht, "home", canonicalNetworkName, store, lm, log))
	add(syncers.NewTrueNASSyncer(tn, store, lm, log))
	add(syncers.NewK8sNodesSyncer(k8s, canonicalNetworkName, store, lm, log))
	add(syncers.NewK8sDeploymentsSyncer(k8s, store, lm, log))
	add(syncers.NewK8sStatefulSetsSyncer(k8s, store, lm, log))
	add(syncers.NewK8sDaemonSetsSyncer(k8s, store, lm, log))
	add(syncers.NewK8sServicesSyncer(k8s, store, lm, log))
	add(syncers.NewK8sPodsSyncer(k8s, store, lm, log))
	add(syncers.NewK8sIngressesSyncer(k8s, store, lm, log))
	add(syncers.NewReverseProxySyncer(ht, "infrastructure", store, lm, log))
	add(syncers.NewCloudflareTunnelSyncer(ht, "cloudflare", store, lm, log))
	add(syncers.NewRunbooksSyncer(ht, "runbooks", store, lm, log))
	add(syncers.NewCorootSyncer(ht, "coroot", store, lm, log))
	add(syncers.NewGatusSyncer(ht, "gatus", store, lm, log))
	add(syncers.NewHomeAssistantSyncer(ht, "home", store, lm, log))
	add(syncers.NewTasmotaSyncer(ht, "home", store, lm, log))
	add(syncers.NewArgoCDSyncer(ht, "argocd", store, lm, log))
	add(syncers.NewK8sPVCsSyncer(k8s, store, lm, log))
	add(syncers.NewDHCPSyncer(ht, "opnsense", canonicalNetworkName, store, lm, log))

	dnsServers := []string{"adguard", "cloudflare"}
	add(syncers.NewDNSSyncer(ht, dnsServers, store, lm, log))

	add(syncers.NewKeepSyncer(ht, "keep", store, lm, log))
	add(syncers.NewGrafanaSyncer(ht, "grafana", store, lm, log))

	return New(order, store, lm, lk, dd, mc, log)
}
