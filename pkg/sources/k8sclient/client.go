// Package k8sclient is the multi-cluster Kubernetes source client (C2).
// It is a thin, capability-typed wrapper around client-go; syncers never
// import client-go directly.
package k8sclient

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Client is the capability-typed interface every K8s syncer consumes.
// Cluster identifiers are resolved from configuration: the cluster named
// "" denotes the in-cluster service account, every other name resolves
// against a kubeconfig file (spec §4.2).
type Client interface {
	Clusters() []string

	ListNodes(ctx context.Context, cluster string) ([]corev1.Node, error)
	ListPodsAll(ctx context.Context, cluster string) ([]corev1.Pod, error)
	ListServicesAll(ctx context.Context, cluster string) ([]corev1.Service, error)
	ListDeploymentsAll(ctx context.Context, cluster string) ([]appsv1.Deployment, error)
	ListStatefulSetsAll(ctx context.Context, cluster string) ([]appsv1.StatefulSet, error)
	ListDaemonSetsAll(ctx context.Context, cluster string) ([]appsv1.DaemonSet, error)
	ListReplicaSetsAll(ctx context.Context, cluster string) ([]appsv1.ReplicaSet, error)
	ListIngressesAll(ctx context.Context, cluster string) ([]networkingv1.Ingress, error)
	ListPVCsAll(ctx context.Context, cluster string) ([]corev1.PersistentVolumeClaim, error)
	ListPodsByLabelSelector(ctx context.Context, cluster, namespace, selector string) ([]corev1.Pod, error)

	// Close releases per-cluster clientset resources, if any.
	Close()
}

// ListOptionsAllNamespaces is shared by every *All listing call.
var ListOptionsAllNamespaces = metav1.ListOptions{}
