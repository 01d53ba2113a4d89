// Package graph is the sole component that speaks to the graph store
// (spec §4.1). Every syncer, the lifecycle manager, the cross-source
// linker, and the deduplicator drive writes through the Store interface —
// none of them import the Neo4j driver directly.
package graph

import "context"

// Record is one result row as a key->value map, the shape every Cypher
// RETURN clause's fields are projected into.
type Record map[string]interface{}

// Store is the graph store adapter contract. Every implementation must
// treat each call as exactly one transaction; callers decide whether to
// retry a failed write (spec §4.1: "no implicit retry").
type Store interface {
	// Query runs cypher as a read transaction and returns every result row.
	Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error)

	// Write runs cypher as a single write transaction.
	Write(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error)

	// BatchMerge wraps statement in `UNWIND $rows AS row ...` and sends every
	// row in one transaction. A no-op when rows is empty. statement must
	// reference the unwound variable as `row` and must phrase its write as
	// MERGE + SET, never CREATE, so replay stays idempotent (spec §4.1).
	BatchMerge(ctx context.Context, statement string, rows []map[string]interface{}) error

	// Verify is a cheap liveness check.
	Verify(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close(ctx context.Context) error
}

// RowsKey is the default UNWIND variable name documented in spec §4.1.
const RowsKey = "rows"
