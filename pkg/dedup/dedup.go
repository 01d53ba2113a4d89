// Package dedup implements the cross-source deduplicator (C6, spec §4.6):
// collapsing a bare Network node (name only) into its enriched counterpart
// (same name, plus cidr/purpose) once both exist, re-pointing every
// relationship incident on the bare node before deleting it.
package dedup

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/model"
)

// Deduper runs the Network bare/enriched collapse described in spec §4.6.
type Deduper struct {
	store graph.Store
	log   *logrus.Logger
}

func New(store graph.Store, log *logrus.Logger) *Deduper {
	return &Deduper{store: store, log: log}
}

// Result mirrors syncers.Result/linker.Result so the orchestrator can fold
// every per-cycle count into one dict regardless of which component
// produced it (spec §4.7).
type Result struct {
	Step  string
	Count int
	Err   error
}

// networkRelationshipTypes are the relationship types every syncer MERGEs
// onto a Network node (dhcp.go and tasmota.go use ON_NETWORK, k8s_nodes.go
// uses CONNECTED_TO). Re-pointing is type-specific because Cypher has no
// variable relationship type in a MERGE without APOC, and the corpus
// carries no APOC dependency to reach for here.
var networkRelationshipTypes = []string{model.RelConnectedTo, model.RelOnNetwork}

// Run collapses every bare/enriched Network pair, then deletes any bare
// Network left with zero relationships. Re-running it twice is a no-op:
// the second run finds no bare node still carrying an edge to move, and
// the delete-if-orphaned step only ever removes nodes already stripped of
// every relationship.
func (d *Deduper) Run(ctx context.Context) []Result {
	var results []Result

	for _, relType := range networkRelationshipTypes {
		count, err := d.repointIncoming(ctx, relType)
		results = append(results, Result{Step: "repoint_incoming_" + relType, Count: count, Err: err})
		if err != nil {
			d.log.WithFields(logging.NewFields().Component("dedup").Operation("repoint_incoming").Resource("relationship", relType).Error(err).Fields()).
				Warn("failed to repoint incoming network edges, continuing")
		}

		count, err = d.repointOutgoing(ctx, relType)
		results = append(results, Result{Step: "repoint_outgoing_" + relType, Count: count, Err: err})
		if err != nil {
			d.log.WithFields(logging.NewFields().Component("dedup").Operation("repoint_outgoing").Resource("relationship", relType).Error(err).Fields()).
				Warn("failed to repoint outgoing network edges, continuing")
		}
	}

	deleted, err := d.deleteOrphanedBareNetworks(ctx)
	results = append(results, Result{Step: "delete_bare_networks", Count: deleted, Err: err})
	if err != nil {
		d.log.WithFields(logging.NewFields().Component("dedup").Operation("delete_bare_networks").Error(err).Fields()).
			Warn("failed to delete orphaned bare Network nodes")
	}

	return results
}

func repointIncomingCypher(relType string) string {
	return `
MATCH (bare:` + model.LabelNetwork + `), (enriched:` + model.LabelNetwork + `)
WHERE bare.name = enriched.name
  AND enriched.cidr IS NOT NULL
  AND bare.cidr IS NULL
WITH bare, enriched
MATCH (source)-[r:` + relType + `]->(bare)
MERGE (source)-[:` + relType + `]->(enriched)
DELETE r
RETURN count(r) AS merged`
}

func repointOutgoingCypher(relType string) string {
	return `
MATCH (bare:` + model.LabelNetwork + `), (enriched:` + model.LabelNetwork + `)
WHERE bare.name = enriched.name
  AND enriched.cidr IS NOT NULL
  AND bare.cidr IS NULL
WITH bare, enriched
MATCH (bare)-[r:` + relType + `]->(target)
MERGE (enriched)-[:` + relType + `]->(target)
DELETE r
RETURN count(r) AS merged`
}

const deleteOrphanedBareNetworksCypher = `
MATCH (bare:` + model.LabelNetwork + `)
WHERE bare.cidr IS NULL AND NOT (bare)--()
DETACH DELETE bare
RETURN count(bare) AS merged`

func (d *Deduper) repointIncoming(ctx context.Context, relType string) (int, error) {
	return d.runCount(ctx, repointIncomingCypher(relType))
}

func (d *Deduper) repointOutgoing(ctx context.Context, relType string) (int, error) {
	return d.runCount(ctx, repointOutgoingCypher(relType))
}

func (d *Deduper) deleteOrphanedBareNetworks(ctx context.Context) (int, error) {
	return d.runCount(ctx, deleteOrphanedBareNetworksCypher)
}

// runCount runs a self-contained Cypher statement and extracts its
// `RETURN count(*) AS merged`-shaped result, the same convention
// pkg/linker's static passes use.
func (d *Deduper) runCount(ctx context.Context, cypher string) (int, error) {
	records, err := d.store.Write(ctx, cypher, nil)
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
