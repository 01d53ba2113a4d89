package syncers

import "testing"

func TestAsList_MissingFieldReturnsNil(t *testing.T) {
	if got := asList(map[string]interface{}{}, "items"); got != nil {
		t.Fatalf("expected nil for missing field, got %v", got)
	}
}

func TestAsList_SkipsNonObjectEntries(t *testing.T) {
	payload := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"name": "a"},
			"not-an-object",
			42,
		},
	}
	got := asList(payload, "items")
	if len(got) != 1 || got[0]["name"] != "a" {
		t.Fatalf("expected only the one object entry to survive, got %+v", got)
	}
}

func TestAsString_WrongTypeDefaultsToEmpty(t *testing.T) {
	m := map[string]interface{}{"count": 5}
	if got := asString(m, "count"); got != "" {
		t.Fatalf("expected empty string for non-string field, got %q", got)
	}
}

func TestAsBool_MissingFieldDefaultsToFalse(t *testing.T) {
	if asBool(map[string]interface{}{}, "up") {
		t.Fatalf("expected false for missing bool field")
	}
}

func TestContainsAnyFold_CaseInsensitive(t *testing.T) {
	if !containsAnyFold("_ACME-Challenge.example.com", []string{"_acme-challenge"}) {
		t.Fatalf("expected case-insensitive substring match")
	}
	if containsAnyFold("app.example.com", []string{"_acme-challenge", "wpad"}) {
		t.Fatalf("expected no match for an unrelated domain")
	}
}
