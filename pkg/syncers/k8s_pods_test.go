package syncers_test

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func boolPtr(b bool) *bool { return &b }

// TestK8sPodsSyncer_ResolvesOwnerThroughReplicaSetToDeployment exercises the
// two-hop ownership lookup: a Pod owned directly by a ReplicaSet, whose own
// owner is a Deployment, must produce a BELONGS_TO edge to that Deployment
// rather than the intermediate ReplicaSet.
func TestK8sPodsSyncer_ResolvesOwnerThroughReplicaSetToDeployment(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		replicaSets: []appsv1.ReplicaSet{
			{
				ObjectMeta: withOwner(metaNameNS("api-7d9f8c", "default"), "Deployment", "api"),
			},
		},
		pods: []corev1.Pod{
			{
				ObjectMeta: withOwner(metaNameNS("api-7d9f8c-abcde", "default"), "ReplicaSet", "api-7d9f8c"),
				Spec:       corev1.PodSpec{NodeName: "node-a"},
				Status: corev1.PodStatus{
					Phase:             corev1.PodRunning,
					ContainerStatuses: []corev1.ContainerStatus{{Ready: true}},
				},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sPodsSyncer(client, store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	ownerRows := store.RowsMergedFor("MATCH (owner")
	if len(ownerRows) != 1 {
		t.Fatalf("expected 1 owner-link row, got %d: %+v", len(ownerRows), ownerRows)
	}
	if ownerRows[0]["owner_label"] != model.LabelDeployment || ownerRows[0]["owner_name"] != "api" {
		t.Fatalf("expected pod attributed to Deployment api, got %+v", ownerRows[0])
	}
}

func TestK8sPodsSyncer_JobOwnedPodProducesNoOwnerEdge(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		pods: []corev1.Pod{
			{
				ObjectMeta: withOwner(metaNameNS("migrate-abc", "default"), "Job", "migrate"),
				Status:     corev1.PodStatus{Phase: corev1.PodRunning},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sPodsSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	if rows := store.RowsMergedFor("MATCH (owner"); len(rows) != 0 {
		t.Fatalf("expected no owner edge for a Job-owned pod, got %+v", rows)
	}
}

func TestK8sPodsSyncer_SucceededPhaseSkippedEntirely(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		pods: []corev1.Pod{
			{
				ObjectMeta: metaNameNS("job-done", "default"),
				Status:     corev1.PodStatus{Phase: corev1.PodSucceeded},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sPodsSyncer(client, store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Count != 0 {
		t.Fatalf("expected succeeded pod to be skipped entirely, got count %d", result.Count)
	}
}

func TestK8sPodsSyncer_DegradedWhenSomeContainersNotReady(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		pods: []corev1.Pod{
			{
				ObjectMeta: metaNameNS("web", "default"),
				Status: corev1.PodStatus{
					Phase: corev1.PodRunning,
					ContainerStatuses: []corev1.ContainerStatus{
						{Ready: true}, {Ready: false},
					},
				},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sPodsSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelPod)
	if rows[0]["status"] != model.StatusDegraded {
		t.Fatalf("expected degraded, got %v", rows[0]["status"])
	}
}

func withOwner(meta metav1.ObjectMeta, kind, name string) metav1.ObjectMeta {
	meta.OwnerReferences = []metav1.OwnerReference{
		{Kind: kind, Name: name, Controller: boolPtr(true)},
	}
	return meta
}
