package syncers_test

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func int32ptr(v int32) *int32 { return &v }

func TestK8sDeploymentsSyncer_NilReplicasDefaultsToOne(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		deployments: []appsv1.Deployment{
			{
				ObjectMeta: metaNameNS("api", "default"),
				Spec:       appsv1.DeploymentSpec{Replicas: nil},
				Status:     appsv1.DeploymentStatus{ReadyReplicas: 1},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sDeploymentsSyncer(client, store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	rows := store.RowsMergedFor(model.LabelDeployment)
	if len(rows) != 1 {
		t.Fatalf("expected 1 deployment row, got %d", len(rows))
	}
	if rows[0]["status"] != model.StatusHealthy {
		t.Fatalf("expected healthy status with nil replicas defaulting to 1 ready, got %v", rows[0]["status"])
	}
}

func TestK8sDeploymentsSyncer_ScaledDownWhenZeroReplicas(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		deployments: []appsv1.Deployment{
			{
				ObjectMeta: metaNameNS("idle", "default"),
				Spec:       appsv1.DeploymentSpec{Replicas: int32ptr(0)},
				Status:     appsv1.DeploymentStatus{ReadyReplicas: 0},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sDeploymentsSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelDeployment)
	if rows[0]["status"] != model.StatusScaledDown {
		t.Fatalf("expected scaled-down, got %v", rows[0]["status"])
	}
}

func TestK8sStatefulSetsSyncer_DegradedWhenPartiallyReady(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		statefulSets: []appsv1.StatefulSet{
			{
				ObjectMeta: metaNameNS("db", "default"),
				Spec:       appsv1.StatefulSetSpec{Replicas: int32ptr(3)},
				Status:     appsv1.StatefulSetStatus{ReadyReplicas: 1},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sStatefulSetsSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelStatefulSet)
	if rows[0]["status"] != model.StatusDegraded {
		t.Fatalf("expected degraded, got %v", rows[0]["status"])
	}
}

func TestK8sDaemonSetsSyncer_UnhealthyWhenNoneReady(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		daemonSets: []appsv1.DaemonSet{
			{
				ObjectMeta: metaNameNS("agent", "default"),
				Status:     appsv1.DaemonSetStatus{DesiredNumberScheduled: 3, NumberReady: 0},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sDaemonSetsSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelDaemonSet)
	if rows[0]["status"] != model.StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %v", rows[0]["status"])
	}
}
