package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/charlieshreck/homelab-graph/pkg/metrics"
)

func TestCollector_RecordSyncResult_CountsRowsAndErrors(t *testing.T) {
	c := metrics.New()

	c.RecordSyncResult("dhcp", 5, nil)
	c.RecordSyncResult("dhcp", 2, nil)
	c.RecordSyncResult("proxmox", 0, errBoom)

	if got := testutil.ToFloat64(c.SyncedRows.WithLabelValues("dhcp")); got != 7 {
		t.Fatalf("expected 7 dhcp rows, got %v", got)
	}
	if got := testutil.ToFloat64(c.SyncCycleErrors.WithLabelValues("proxmox")); got != 1 {
		t.Fatalf("expected 1 proxmox error, got %v", got)
	}
}

func TestCollector_RecordLinkerPass(t *testing.T) {
	c := metrics.New()

	c.RecordLinkerPass("service_to_pod", 3)

	if got := testutil.ToFloat64(c.LinkerEdges.WithLabelValues("service_to_pod")); got != 3 {
		t.Fatalf("expected 3 edges, got %v", got)
	}
}

var errBoom = fakeErr{}

type fakeErr struct{}

func (fakeErr) Error() string { return "boom" }
