// Package model holds the graph's data-model constants: node labels,
// relationship types, lifecycle status values, and the mark/sweep
// governance tables from spec §4.3. It has no dependency on the graph
// driver or any source client — every other package imports it.
package model

import "time"

// Node labels. Not exhaustive of every property a node may carry, but every
// label the lifecycle manager and linker reason about by name is listed
// here so a typo becomes a compile error instead of a silent no-op query.
const (
	LabelHost                  = "Host"
	LabelVM                    = "VM"
	LabelProxmoxNode           = "ProxmoxNode"
	LabelNetwork               = "Network"
	LabelCluster               = "Cluster"
	LabelDeployment            = "Deployment"
	LabelStatefulSet           = "StatefulSet"
	LabelDaemonSet             = "DaemonSet"
	LabelService               = "Service"
	LabelPod                   = "Pod"
	LabelIngress               = "Ingress"
	LabelPVC                   = "PersistentVolumeClaim"
	LabelArgoApp               = "ArgoApp"
	LabelStoragePool           = "StoragePool"
	LabelDataset               = "Dataset"
	LabelShare                 = "Share"
	LabelStorageAlert          = "StorageAlert"
	LabelApp                   = "App"
	LabelDNSRecord             = "DNSRecord"
	LabelReverseProxy          = "ReverseProxy"
	LabelCloudflareTunnel      = "CloudflareTunnel"
	LabelDevice                = "Device"
	LabelAccessPoint           = "AccessPoint"
	LabelSwitch                = "Switch"
	LabelNetworkDevice         = "NetworkDevice"
	LabelHAEntity              = "HAEntity"
	LabelTasmotaDevice         = "TasmotaDevice"
	LabelAlert                 = "Alert"
	LabelUptimeMonitor         = "UptimeMonitor"
	LabelDashboard             = "Dashboard"
	LabelRunbookDocument       = "RunbookDocument"
	LabelLocation              = "Location"
	LabelNAS                   = "NAS"
)

// Relationship types, directed.
const (
	RelConnectedTo          = "CONNECTED_TO"
	RelConnectedVia         = "CONNECTED_VIA"
	RelHosts                = "HOSTS"
	RelRunsOn               = "RUNS_ON"
	RelMapsTo               = "MAPS_TO"
	RelScheduledOn          = "SCHEDULED_ON"
	RelBelongsTo            = "BELONGS_TO"
	RelBackedBy             = "BACKED_BY"
	RelSelects              = "SELECTS"
	RelRoutesTo             = "ROUTES_TO"
	RelProxiesTo            = "PROXIES_TO"
	RelRoutesThrough        = "ROUTES_THROUGH"
	RelResolvesTo           = "RESOLVES_TO"
	RelPointsTo             = "POINTS_TO"
	RelContains             = "CONTAINS"
	RelClaimedBy            = "CLAIMED_BY"
	RelDeploys              = "DEPLOYS"
	RelDependsOn            = "DEPENDS_ON"
	RelMonitors             = "MONITORS"
	RelVisualizes           = "VISUALIZES"
	RelAffects              = "AFFECTS"
	RelOnNetwork            = "ON_NETWORK"
	RelLocatedIn            = "LOCATED_IN"
	RelNetworkInterfaceFor  = "NETWORK_INTERFACE_FOR"
	RelExposes              = "EXPOSES"
	RelControlledBy         = "CONTROLLED_BY"
	RelResolves             = "RESOLVES"
	RelTroubleshoots        = "TROUBLESHOOTS"
	RelAppliesTo            = "APPLIES_TO"
)

// Lifecycle status values for the `_sync_status` system property.
const (
	SyncStatusStale  = "stale"
	SyncStatusActive = "active"
)

// Status derivations (§4.4) applied to node `status` properties.
const (
	StatusHealthy    = "healthy"
	StatusDegraded   = "degraded"
	StatusUnhealthy  = "unhealthy"
	StatusScaledDown = "scaled-down"
	StatusPending    = "pending"
	StatusActive     = "active"
)

// ManagedLabels is the mark/sweep set (§4.3): every label here is set to
// stale at the start of a cycle and swept if no syncer marks it active
// again before the cycle ends.
var ManagedLabels = []string{
	LabelPod, LabelDeployment, LabelStatefulSet, LabelDaemonSet, LabelService,
	LabelIngress, LabelPVC, LabelArgoApp, LabelVM, LabelHost,
	LabelUptimeMonitor, LabelAlert, LabelStoragePool, LabelDataset, LabelShare,
	LabelStorageAlert, LabelApp, LabelDNSRecord, LabelAccessPoint, LabelSwitch,
	LabelNetworkDevice, LabelDashboard, LabelReverseProxy, LabelDevice,
	LabelHAEntity, LabelTasmotaDevice, LabelCloudflareTunnel, LabelRunbookDocument,
}

// ProtectedLabels are never orphan-pruned regardless of relationship count
// or age (§4.3, invariant I6).
var ProtectedLabels = map[string]bool{
	LabelNetwork:     true,
	LabelLocation:    true,
	LabelCluster:     true,
	LabelProxmoxNode: true,
	LabelNAS:         true,
	LabelStoragePool: true,
}

// IsProtected reports whether label is exempt from orphan pruning.
func IsProtected(label string) bool {
	return ProtectedLabels[label]
}

// graceTiers maps a managed label to the number of days it may sit as an
// orphan (zero relationships, unprotected, unenriched) before
// sweepAgedOrphans deletes it (§4.3).
var graceTiers = map[string]int{
	LabelPod:   1,
	LabelAlert: 1,

	LabelService:       7,
	LabelDeployment:    7,
	LabelStatefulSet:   7,
	LabelDaemonSet:     7,
	LabelIngress:       7,
	LabelUptimeMonitor: 7,

	LabelPVC:              14,
	LabelArgoApp:          14,
	LabelHAEntity:         14,
	LabelDashboard:        14,
	LabelDNSRecord:        14,
	LabelReverseProxy:     14,
	LabelCloudflareTunnel: 14,

	LabelVM:            30,
	LabelHost:          30,
	LabelDevice:        30,
	LabelTasmotaDevice: 30,
	LabelRunbookDocument: 30,
}

// DefaultGraceDays applies to any managed label absent from graceTiers.
const DefaultGraceDays = 14

// GraceDays returns the orphan grace period for label.
func GraceDays(label string) int {
	if d, ok := graceTiers[label]; ok {
		return d
	}
	return DefaultGraceDays
}

// GracePeriod is GraceDays expressed as a time.Duration.
func GracePeriod(label string) time.Duration {
	return time.Duration(GraceDays(label)) * 24 * time.Hour
}

// IsManaged reports whether label participates in mark/sweep.
func IsManaged(label string) bool {
	for _, l := range ManagedLabels {
		if l == label {
			return true
		}
	}
	return false
}
