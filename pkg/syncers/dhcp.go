package syncers

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const enrichHostFromLeaseStatement = `
MATCH (h:` + model.LabelHost + ` {internal_ip: row.ip})
SET h.mac = row.mac, h.manufacturer = row.manufacturer`

const mergeDeviceStatement = `
MERGE (n:` + model.LabelDevice + ` {mac: row.mac})
SET n.ip = row.ip,
    n.device_type = row.device_type,
    n.manufacturer = row.manufacturer,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MERGE (net:` + model.LabelNetwork + ` {name: row.network})
MERGE (n)-[:` + model.RelOnNetwork + `]->(net)
WITH n, row
MATCH (h:` + model.LabelHost + ` {internal_ip: row.ip})
MERGE (n)-[:` + model.RelNetworkInterfaceFor + `]->(h)`

// manufacturerDeviceType maps an OUI manufacturer name keyword to a coarse
// device_type classification (spec §4.4).
var manufacturerDeviceType = map[string]string{
	"apple":     "mobile",
	"samsung":   "mobile",
	"raspberry": "embedded",
	"espressif": "embedded",
	"sonos":     "media",
	"ubiquiti":  "network",
	"tp-link":   "network",
	"synology":  "nas",
}

// DHCPSyncer is a two-phase OPNsense lease sync: enrich existing Host nodes
// by IP, then always create a Device(mac) node (spec §4.4).
type DHCPSyncer struct {
	client      httptool.Client
	serverName  string
	networkName string
	store       graph.Store
	lifecycle   *lifecycle.Manager
	log         *logrus.Logger
}

func NewDHCPSyncer(client httptool.Client, serverName, networkName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *DHCPSyncer {
	return &DHCPSyncer{client: client, serverName: serverName, networkName: networkName, store: store, lifecycle: lm, log: log}
}

func (s *DHCPSyncer) Name() string { return "dhcp" }

func (s *DHCPSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *DHCPSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_leases", nil)
	leases := asList(payload, "leases")

	var enrichRows []map[string]interface{}
	var deviceRows []map[string]interface{}
	var identities []model.Row

	for _, lease := range leases {
		ip := asString(lease, "ip")
		mac := asString(lease, "mac")
		if ip == "" || mac == "" {
			continue
		}
		manufacturer := asString(lease, "manufacturer")

		enrichRows = append(enrichRows, map[string]interface{}{"ip": ip, "mac": mac, "manufacturer": manufacturer})

		row := model.Row{
			"mac": mac, "ip": ip, "manufacturer": manufacturer,
			"device_type": classifyDeviceType(manufacturer), "network": s.networkName, "source": s.Name(),
		}
		deviceRows = append(deviceRows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"mac": mac})
	}

	if len(enrichRows) > 0 {
		if err := s.store.BatchMerge(ctx, enrichHostFromLeaseStatement, enrichRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to enrich hosts from DHCP leases")
		}
	}
	if err := s.store.BatchMerge(ctx, mergeDeviceStatement, deviceRows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelDevice, identities); err != nil {
		return 0, err
	}
	return len(deviceRows), nil
}

func classifyDeviceType(manufacturer string) string {
	lower := strings.ToLower(manufacturer)
	for keyword, deviceType := range manufacturerDeviceType {
		if strings.Contains(lower, keyword) {
			return deviceType
		}
	}
	return "unknown"
}
