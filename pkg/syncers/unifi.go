package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeUnifiDeviceStatement = `
MERGE (d:` + model.LabelNetworkDevice + ` {mac: row.mac})
SET d.name = row.name,
    d.model = row.model,
    d.ip = row.ip,
    d.status = row.status,
    d.source = row.source,
    d._sync_status = row._sync_status,
    d.last_seen = row.last_seen
WITH d, row
MERGE (net:` + model.LabelNetwork + ` {name: row.network})
MERGE (d)-[:` + model.RelConnectedTo + `]->(net)`

const mergeUnifiAPDeviceStatement = `
MERGE (d:` + model.LabelAccessPoint + ` {mac: row.mac})
SET d.name = row.name,
    d.model = row.model,
    d.ip = row.ip,
    d.status = row.status,
    d.source = row.source,
    d._sync_status = row._sync_status,
    d.last_seen = row.last_seen
WITH d, row
MERGE (net:` + model.LabelNetwork + ` {name: row.network})
MERGE (d)-[:` + model.RelConnectedTo + `]->(net)`

const mergeUnifiSwitchDeviceStatement = `
MERGE (d:` + model.LabelSwitch + ` {mac: row.mac})
SET d.name = row.name,
    d.model = row.model,
    d.ip = row.ip,
    d.status = row.status,
    d.source = row.source,
    d._sync_status = row._sync_status,
    d.last_seen = row.last_seen
WITH d, row
MERGE (net:` + model.LabelNetwork + ` {name: row.network})
MERGE (d)-[:` + model.RelConnectedTo + `]->(net)`

const mergeUnifiClientConnectionStatement = `
MATCH (h:` + model.LabelHost + ` {mac: row.mac})
MATCH (ap:` + model.LabelAccessPoint + ` {mac: row.ap_mac})
MERGE (h)-[r:` + model.RelConnectedVia + `]->(ap)
SET r.signal = row.signal, r.channel = row.channel`

// unifiDeviceTypeLabel classifies a UniFi controller device payload's `type`
// field into the three node kinds the data model carries for network gear
// (spec §4.3): access points and switches get their own label so the linker
// and triage specialists can query them precisely, everything else is a
// generic NetworkDevice.
func unifiDeviceTypeLabel(deviceType string) string {
	switch deviceType {
	case "uap", "ap":
		return model.LabelAccessPoint
	case "usw", "sw":
		return model.LabelSwitch
	default:
		return model.LabelNetworkDevice
	}
}

// unifiMergeStatementFor returns the per-label MERGE statement, since Cypher
// has no parameterized node label.
func unifiMergeStatementFor(label string) string {
	switch label {
	case model.LabelAccessPoint:
		return mergeUnifiAPDeviceStatement
	case model.LabelSwitch:
		return mergeUnifiSwitchDeviceStatement
	default:
		return mergeUnifiDeviceStatement
	}
}

// UnifiSyncer projects UniFi controller devices (access points, switches,
// and any other managed gear) to their respective node labels, each
// CONNECTED_TO the canonical Network, then records which client Hosts are
// currently associated to which AccessPoint (spec §4.4).
type UnifiSyncer struct {
	client      httptool.Client
	serverName  string
	networkName string
	store       graph.Store
	lifecycle   *lifecycle.Manager
	log         *logrus.Logger
}

func NewUnifiSyncer(client httptool.Client, serverName, networkName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *UnifiSyncer {
	return &UnifiSyncer{client: client, serverName: serverName, networkName: networkName, store: store, lifecycle: lm, log: log}
}

func (s *UnifiSyncer) Name() string { return "unifi" }

func (s *UnifiSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *UnifiSyncer) run(ctx context.Context) (int, error) {
	devicesPayload := s.client.CallTool(ctx, s.serverName, "unifi_list_devices", nil)
	devices := asList(devicesPayload, "devices")

	rowsByLabel := make(map[string][]map[string]interface{})
	identitiesByLabel := make(map[string][]model.Row)

	for _, device := range devices {
		mac := asString(device, "mac")
		if mac == "" {
			continue
		}
		name := asString(device, "name")
		if name == "" {
			name = asString(device, "hostname")
		}
		label := unifiDeviceTypeLabel(asString(device, "type"))

		row := model.Row{
			"mac": mac, "name": name, "model": asString(device, "model"),
			"ip": asString(device, "ip"), "status": asString(device, "state"),
			"network": s.networkName, "source": s.Name(),
		}
		rowsByLabel[label] = append(rowsByLabel[label], model.WithLifecycle(row, nowUTC()))
		identitiesByLabel[label] = append(identitiesByLabel[label], model.Row{"mac": mac})
	}

	total := 0
	for label, rows := range rowsByLabel {
		if err := s.store.BatchMerge(ctx, unifiMergeStatementFor(label), rows); err != nil {
			return total, err
		}
		if err := s.lifecycle.MarkActive(ctx, label, identitiesByLabel[label]); err != nil {
			return total, err
		}
		total += len(rows)
	}

	clientsPayload := s.client.CallTool(ctx, s.serverName, "unifi_list_clients", nil)
	clients := asList(clientsPayload, "clients")

	var connectionRows []map[string]interface{}
	for _, client := range clients {
		mac := asString(client, "mac")
		apMAC := asString(client, "ap_mac")
		if mac == "" || apMAC == "" {
			continue
		}
		connectionRows = append(connectionRows, map[string]interface{}{
			"mac": mac, "ap_mac": apMAC,
			"signal": asFloat(client, "signal"), "channel": asFloat(client, "channel"),
		})
	}
	if len(connectionRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeUnifiClientConnectionStatement, connectionRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge unifi client-connection edges")
		}
	}

	return total, nil
}
