package orchestrator_test

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/dedup"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/linker"
	"github.com/charlieshreck/homelab-graph/pkg/orchestrator"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeSyncer struct {
	name   string
	result syncers.Result
	calls  int
}

func (f *fakeSyncer) Name() string { return f.name }
func (f *fakeSyncer) Run(ctx context.Context) syncers.Result {
	f.calls++
	return f.result
}

func TestOrchestrator_RunCycle_ContinuesAfterASyncerFails(t *testing.T) {
	store := graph.NewMockStore()
	store.WriteFunc = func(cypher string, params map[string]interface{}) ([]graph.Record, error) {
		return []graph.Record{{"merged": int64(0)}}, nil
	}
	ok := &fakeSyncer{name: "dhcp", result: syncers.Result{Source: "dhcp", Count: 5}}
	broken := &fakeSyncer{name: "proxmox", result: syncers.Result{Source: "proxmox", Count: 0, Err: context.DeadlineExceeded}}

	log := discardLogger()
	lm := lifecycle.New(store, logrus.NewEntry(log))
	lk := linker.New(store, log)
	dd := dedup.New(store, log)
	o := orchestrator.New([]syncers.Syncer{broken, ok}, store, lm, lk, dd, nil, log)

	report := o.RunCycle(context.Background())

	if len(report.SyncResults) != 2 {
		t.Fatalf("expected both syncers to report, got %d", len(report.SyncResults))
	}
	if ok.calls != 1 || broken.calls != 1 {
		t.Fatalf("expected both syncers to run exactly once, got ok=%d broken=%d", ok.calls, broken.calls)
	}
	if report.CorrelationID == "" {
		t.Fatal("expected a non-empty correlation ID")
	}
}

func TestOrchestrator_RunCycle_RunsLinkerAndDedupAfterSyncers(t *testing.T) {
	store := graph.NewMockStore()
	var writeOrder []string
	store.WriteFunc = func(cypher string, params map[string]interface{}) ([]graph.Record, error) {
		writeOrder = append(writeOrder, cypher)
		return []graph.Record{{"merged": int64(0)}}, nil
	}
	log := discardLogger()
	lm := lifecycle.New(store, logrus.NewEntry(log))
	lk := linker.New(store, log)
	dd := dedup.New(store, log)
	s := &fakeSyncer{name: "dhcp", result: syncers.Result{Source: "dhcp", Count: 1}}
	o := orchestrator.New([]syncers.Syncer{s}, store, lm, lk, dd, nil, log)

	report := o.RunCycle(context.Background())

	if len(report.LinkerResults) != 6 {
		t.Fatalf("expected all 6 linker passes to report, got %d", len(report.LinkerResults))
	}
	if len(report.DedupResults) != 5 {
		t.Fatalf("expected all 5 dedup steps to report, got %d", len(report.DedupResults))
	}
}
