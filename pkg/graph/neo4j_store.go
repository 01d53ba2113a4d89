package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	nexuserrors "github.com/charlieshreck/homelab-graph/internal/errors"
)

// Neo4jStore is the Bolt-protocol implementation of Store.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore dials uri with basic auth and verifies connectivity.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, nexuserrors.FailedToWithDetails("create graph driver", "neo4j", uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, nexuserrors.FailedToWithDetails("verify graph connectivity", "neo4j", uri, err)
	}
	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func toRecords(raw []*neo4j.Record) []Record {
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		out = append(out, Record(r.AsMap()))
	}
	return out
}

// Query runs cypher as a single read transaction.
func (s *Neo4jStore) Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, nexuserrors.FailedToWithDetails("run read query", "neo4j", "", err)
	}
	return toRecords(result.([]*neo4j.Record)), nil
}

// Write runs cypher as a single write transaction.
func (s *Neo4jStore) Write(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, nexuserrors.FailedToWithDetails("run write", "neo4j", "", err)
	}
	return toRecords(result.([]*neo4j.Record)), nil
}

// BatchMerge wraps statement in UNWIND $rows AS row and sends it in one
// write transaction. A no-op when rows is empty so callers never need to
// special-case a quiet source.
func (s *Neo4jStore) BatchMerge(ctx context.Context, statement string, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	cypher := fmt.Sprintf("UNWIND $%s AS row\n%s", RowsKey, statement)
	_, err := s.Write(ctx, cypher, map[string]interface{}{RowsKey: rows})
	if err != nil {
		return nexuserrors.FailedToWithDetails("batch merge", "neo4j", fmt.Sprintf("%d rows", len(rows)), err)
	}
	return nil
}

// Verify is a cheap liveness check: one connectivity round trip through
// the driver.
func (s *Neo4jStore) Verify(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the driver's connection pool.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
