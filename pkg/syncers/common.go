package syncers

import (
	"strings"
	"time"
)

// nowUTC is the shared observation timestamp for WithLifecycle stamping.
// Syncers call this once per fetched record rather than sharing a single
// cycle-start timestamp, matching the teacher's per-record stamping style;
// the difference is sub-second and never affects grace-period math, which
// operates on orphan_since, not last_seen.
func nowUTC() time.Time {
	return time.Now()
}

// asList reads a named field off an httptool.CallTool payload as a slice of
// generic records, tolerating absent or mistyped fields — the HTTP tool
// client's own contract is "empty, never an error" (spec §4.2), and
// syncers consuming it inherit that tolerance.
func asList(payload map[string]interface{}, field string) []map[string]interface{} {
	raw, ok := payload[field]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func asString(m map[string]interface{}, field string) string {
	if v, ok := m[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func asFloat(m map[string]interface{}, field string) float64 {
	if v, ok := m[field]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func asBool(m map[string]interface{}, field string) bool {
	if v, ok := m[field]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
