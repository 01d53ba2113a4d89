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

const mergeTasmotaStatement = `
MERGE (n:` + model.LabelTasmotaDevice + ` {ip: row.ip})
SET n.mac = row.mac,
    n.name = row.name,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MERGE (net:` + model.LabelNetwork + ` {name: 'prod'})
MERGE (n)-[:` + model.RelOnNetwork + `]->(net)`

const mergeTasmotaExposesStatement = `
MATCH (t:` + model.LabelTasmotaDevice + ` {ip: row.ip})
MATCH (e:` + model.LabelHAEntity + ` {entity_id: row.entity_id})
MERGE (t)-[r:` + model.RelExposes + `]->(e)
SET r.confidence = row.confidence, r.match_type = row.match_type`

// TasmotaSyncer walks Tasmota devices, links every device to the prod
// Network, and creates a MAC-first or fuzzy-name-fallback EXPOSES edge to
// the matching HAEntity (spec §4.4).
type TasmotaSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewTasmotaSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *TasmotaSyncer {
	return &TasmotaSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *TasmotaSyncer) Name() string { return "tasmota" }

func (s *TasmotaSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *TasmotaSyncer) run(ctx context.Context) (int, error) {
	devicesPayload := s.client.CallTool(ctx, s.serverName, "list_devices", nil)
	devices := asList(devicesPayload, "devices")

	haPayload := s.client.CallTool(ctx, "home_assistant", "list_states", nil)
	haEntities := asList(haPayload, "entities")

	var rows []map[string]interface{}
	var identities []model.Row
	var exposeRows []map[string]interface{}

	for _, dev := range devices {
		ip := asString(dev, "ip")
		if ip == "" {
			continue
		}
		mac := asString(dev, "mac")
		row := model.Row{"ip": ip, "mac": mac, "name": asString(dev, "name"), "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"ip": ip})

		if entityID, confidence, matchType, ok := matchHAEntity(mac, asString(dev, "name"), haEntities); ok {
			exposeRows = append(exposeRows, map[string]interface{}{
				"ip": ip, "entity_id": entityID, "confidence": confidence, "match_type": matchType,
			})
		}
	}

	if err := s.store.BatchMerge(ctx, mergeTasmotaStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelTasmotaDevice, identities); err != nil {
		return 0, err
	}
	if len(exposeRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeTasmotaExposesStatement, exposeRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge tasmota-exposes edges")
		}
	}
	return len(rows), nil
}

// matchHAEntity tries a MAC-first match (entity_id contains the MAC with
// colons stripped) before falling back to a fuzzy name match tagged
// low-confidence (spec §4.4).
func matchHAEntity(mac, name string, entities []map[string]interface{}) (entityID string, confidence float64, matchType string, ok bool) {
	strippedMAC := strings.ReplaceAll(strings.ToLower(mac), ":", "")
	if strippedMAC != "" {
		for _, e := range entities {
			id := asString(e, "entity_id")
			if strings.Contains(strings.ToLower(id), strippedMAC) {
				return id, 1.0, "mac_exact", true
			}
		}
	}

	lowerName := strings.ToLower(name)
	if lowerName == "" {
		return "", 0, "", false
	}
	for _, e := range entities {
		id := asString(e, "entity_id")
		if strings.Contains(strings.ToLower(id), lowerName) {
			return id, 0.5, "name_fuzzy", true
		}
	}
	return "", 0, "", false
}
