package graph_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
)

func TestMockStore_BatchMerge_NoOpOnEmptyRows(t *testing.T) {
	m := graph.NewMockStore()
	if err := m.BatchMerge(context.Background(), "MERGE (n:Host)", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.BatchMergeCalls) != 0 {
		t.Fatalf("expected no recorded calls for empty rows, got %d", len(m.BatchMergeCalls))
	}
}

func TestMockStore_BatchMerge_RecordsRows(t *testing.T) {
	m := graph.NewMockStore()
	rows := []map[string]interface{}{{"hostname": "a"}, {"hostname": "b"}}
	if err := m.BatchMerge(context.Background(), "MERGE (n:Host {hostname: row.hostname})", rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.RowsMergedFor("Host")
	if len(got) != 2 {
		t.Fatalf("expected 2 merged rows, got %d", len(got))
	}
}

func TestMockStore_BatchMerge_PropagatesInjectedError(t *testing.T) {
	m := graph.NewMockStore()
	m.BatchMergeErr = context.DeadlineExceeded
	err := m.BatchMerge(context.Background(), "MERGE (n:Host)", []map[string]interface{}{{"hostname": "a"}})
	if err == nil {
		t.Fatal("expected injected error")
	}
}

func TestMockStore_WritesContaining(t *testing.T) {
	m := graph.NewMockStore()
	_, _ = m.Write(context.Background(), "MATCH (n:Pod) DETACH DELETE n", nil)
	_, _ = m.Write(context.Background(), "MATCH (n:Host) SET n.x = 1", nil)

	got := m.WritesContaining("DETACH DELETE")
	if len(got) != 1 {
		t.Fatalf("expected 1 matching write, got %d", len(got))
	}
}

func TestMockStore_Close(t *testing.T) {
	m := graph.NewMockStore()
	if m.Closed() {
		t.Fatal("should not be closed initially")
	}
	_ = m.Close(context.Background())
	if !m.Closed() {
		t.Fatal("expected Closed() to report true after Close")
	}
}
