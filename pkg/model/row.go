package model

import "time"

// Row is one node's worth of properties destined for a batch_merge call.
// Keys are Cypher property names; values must be driver-serializable
// (string, bool, number, or []interface{}/map[string]interface{} of those).
type Row map[string]interface{}

// Edge is one relationship to MERGE, keyed on the identity tuples of its
// two endpoints rather than internal graph IDs, so linker passes stay
// idempotent across cycles.
type Edge struct {
	FromLabel string
	FromKey   Row
	ToLabel   string
	ToKey     Row
	Type      string
	Props     Row
}

// EnrichmentFields are the properties that mark a node as manually
// annotated by a human and therefore exempt from orphan marking (§4.3).
var EnrichmentFields = []string{"description", "notes", "owner"}

// IsManuallyEnriched reports whether row carries a non-empty value for any
// of EnrichmentFields.
func IsManuallyEnriched(row Row) bool {
	for _, f := range EnrichmentFields {
		if v, ok := row[f]; ok {
			if s, ok := v.(string); ok && s != "" {
				return true
			}
		}
	}
	return false
}

// WithLifecycle stamps row with the two system properties every managed
// node must carry (invariant I1).
func WithLifecycle(row Row, now time.Time) Row {
	row["_sync_status"] = SyncStatusActive
	row["last_seen"] = now.UTC().Format(time.RFC3339)
	return row
}

// UnwrapTagged generalizes the TrueNAS `{parsed, rawvalue}` numeric
// attribute shape (and similar tagged variants) into a plain float64. Any
// shape it doesn't recognize defaults to zero rather than panicking, per
// spec §9's "normalizer applies a tagged-variant unwrap helper... unknown
// shapes default to zero."
func UnwrapTagged(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case map[string]interface{}:
		if parsed, ok := t["parsed"]; ok {
			return UnwrapTagged(parsed)
		}
		if raw, ok := t["rawvalue"]; ok {
			return UnwrapTagged(raw)
		}
		return 0
	case nil:
		return 0
	default:
		return 0
	}
}
