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

const mergeRunbookStatement = `
MERGE (n:` + model.LabelRunbookDocument + ` {qdrant_id: row.qdrant_id})
SET n.title = row.title,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeRunbookResolvesStatement = `
MATCH (r:` + model.LabelRunbookDocument + ` {qdrant_id: row.qdrant_id})
MATCH (a:` + model.LabelAlert + ` {name: row.name})
MERGE (r)-[:` + model.RelResolves + `]->(a)`

const mergeRunbookTroubleshootsStatement = `
MATCH (r:` + model.LabelRunbookDocument + ` {qdrant_id: row.qdrant_id})
MATCH (svc:` + model.LabelService + ` {name: row.name})
MERGE (r)-[:` + model.RelTroubleshoots + `]->(svc)`

const mergeRunbookAppliesToStatement = `
MATCH (r:` + model.LabelRunbookDocument + ` {qdrant_id: row.qdrant_id})
MATCH (h:` + model.LabelHost + ` {hostname: row.name})
MERGE (r)-[:` + model.RelAppliesTo + `]->(h)`

const listServiceNamesQuery = `MATCH (n:` + model.LabelService + `) RETURN n.name AS name`
const listHostHostnamesQuery = `MATCH (n:` + model.LabelHost + `) RETURN n.hostname AS name`
const listAlertNamesQuery = `MATCH (n:` + model.LabelAlert + `) RETURN n.name AS name`

// RunbooksSyncer merges RunbookDocument nodes from the Qdrant-backed
// knowledge base and derives RESOLVES/TROUBLESHOOTS/APPLIES_TO edges by
// scanning each runbook's solution text for a known Alert name, Service
// name, or Host hostname (spec §4.4). Known-name lists are fetched once
// per cycle rather than per runbook, matching the original's pre-fetch-
// then-scan pattern (SPEC_FULL.md §12).
type RunbooksSyncer struct {
	client     httptool.Client
	serverName string
	store      graph.Store
	lifecycle  *lifecycle.Manager
	log        *logrus.Logger
}

func NewRunbooksSyncer(client httptool.Client, serverName string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *RunbooksSyncer {
	return &RunbooksSyncer{client: client, serverName: serverName, store: store, lifecycle: lm, log: log}
}

func (s *RunbooksSyncer) Name() string { return "runbooks" }

func (s *RunbooksSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *RunbooksSyncer) run(ctx context.Context) (int, error) {
	alertNames, err := s.queryNames(ctx, listAlertNamesQuery)
	if err != nil {
		return 0, err
	}
	serviceNames, err := s.queryNames(ctx, listServiceNamesQuery)
	if err != nil {
		return 0, err
	}
	hostNames, err := s.queryNames(ctx, listHostHostnamesQuery)
	if err != nil {
		return 0, err
	}

	payload := s.client.CallTool(ctx, s.serverName, "list_runbooks", nil)
	runbooks := asList(payload, "runbooks")

	var rows []map[string]interface{}
	var identities []model.Row
	var resolvesRows, troubleshootsRows, appliesToRows []map[string]interface{}

	for _, rb := range runbooks {
		qdrantID := asString(rb, "qdrant_id")
		if qdrantID == "" {
			continue
		}
		row := model.Row{"qdrant_id": qdrantID, "title": asString(rb, "title"), "source": s.Name()}
		rows = append(rows, model.WithLifecycle(row, nowUTC()))
		identities = append(identities, model.Row{"qdrant_id": qdrantID})

		solution := strings.ToLower(asString(rb, "solution_text"))
		if solution == "" {
			continue
		}
		for _, name := range alertNames {
			if name != "" && strings.Contains(solution, strings.ToLower(name)) {
				resolvesRows = append(resolvesRows, map[string]interface{}{"qdrant_id": qdrantID, "name": name})
			}
		}
		for _, name := range serviceNames {
			if name != "" && strings.Contains(solution, strings.ToLower(name)) {
				troubleshootsRows = append(troubleshootsRows, map[string]interface{}{"qdrant_id": qdrantID, "name": name})
			}
		}
		for _, name := range hostNames {
			if name != "" && strings.Contains(solution, strings.ToLower(name)) {
				appliesToRows = append(appliesToRows, map[string]interface{}{"qdrant_id": qdrantID, "name": name})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergeRunbookStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelRunbookDocument, identities); err != nil {
		return 0, err
	}
	if len(resolvesRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeRunbookResolvesStatement, resolvesRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge runbook-resolves edges")
		}
	}
	if len(troubleshootsRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeRunbookTroubleshootsStatement, troubleshootsRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge runbook-troubleshoots edges")
		}
	}
	if len(appliesToRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeRunbookAppliesToStatement, appliesToRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge runbook-applies-to edges")
		}
	}
	return len(rows), nil
}

func (s *RunbooksSyncer) queryNames(ctx context.Context, cypher string) ([]string, error) {
	records, err := s.store.Query(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range records {
		if name, ok := rec["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
