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

const mergeHAEntityStatement = `
MERGE (n:` + model.LabelHAEntity + ` {entity_id: row.entity_id})
SET n.domain = row.domain,
    n.device_class = row.device_class,
    n.state = row.state,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

var haDomainAllowlist = map[string]bool{
	"light": true, "switch": true, "automation": true, "binary_sensor": true,
	"climate": true, "cover": true, "fan": true, "lock": true,
	"media_player": true, "sensor": true,
}

var haSensorDeviceClassAllowlist = map[string]bool{
	"battery": true, "power": true, "temperature": true, "energy": true,
}

// HomeAssistantSyncer projects entities whose domain (and, for sensors,
// device_class) passes the allowlist (spec §4.4). Dropped entities are not
// deleted immediately — they fall through sweep.
type HomeAssistantSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewHomeAssistantSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *HomeAssistantSyncer {
	return &HomeAssistantSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *HomeAssistantSyncer) Name() string { return "home_assistant" }

func (s *HomeAssistantSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *HomeAssistantSyncer) run(ctx context.Context) (int, error) {
	payload := s.client.CallTool(ctx, s.serverName, "list_states", nil)
	entities := asList(payload, "entities")

	var rows []map[string]interface{}
	var identities []model.Row

	for _, entity := range entities {
		entityID := asString(entity, "entity_id")
		domain := entityDomain(entityID)
		if !haDomainAllowlist[domain] {
			continue
		}
		deviceClass := asString(entity, "device_class")
		if domain == "sensor" && !haSensorDeviceClassAllowlist[deviceClass] {
			continue
		}

		row := model.Row{
			"entity_id":    entityID,
			"domain":       domain,
			"device_class": deviceClass,
			"state":        asString(entity, "state"),
			"source":       s.Name(),
		}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"entity_id": entityID})
	}

	if err := s.store.BatchMerge(ctx, mergeHAEntityStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelHAEntity, identities); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func entityDomain(entityID string) string {
	parts := strings.SplitN(entityID, ".", 2)
	return parts[0]
}
