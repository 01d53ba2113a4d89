package k8sclient

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/charlieshreck/homelab-graph/internal/config"
	nexuserrors "github.com/charlieshreck/homelab-graph/internal/errors"
)

// MultiClusterClient implements Client over one kubernetes.Interface per
// configured cluster.
type MultiClusterClient struct {
	clientsets map[string]kubernetes.Interface
	order      []string
}

// NewMultiClusterClient builds a clientset per entry in cfg.Clusters: the
// cluster named "" resolves to in-cluster config, any other name resolves
// against its KubeconfigPath.
func NewMultiClusterClient(cfg config.KubernetesConfig) (*MultiClusterClient, error) {
	m := &MultiClusterClient{clientsets: make(map[string]kubernetes.Interface)}
	for _, c := range cfg.Clusters {
		restCfg, err := restConfigFor(c)
		if err != nil {
			return nil, nexuserrors.FailedToWithDetails("build kubeconfig", "kubernetes", c.Name, err)
		}
		clientset, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, nexuserrors.FailedToWithDetails("build clientset", "kubernetes", c.Name, err)
		}
		m.clientsets[c.Name] = clientset
		m.order = append(m.order, c.Name)
	}
	return m, nil
}

// NewMultiClusterClientFromClientsets wires pre-built clientsets directly;
// used by tests with k8s.io/client-go/kubernetes/fake.
func NewMultiClusterClientFromClientsets(clientsets map[string]kubernetes.Interface, order []string) *MultiClusterClient {
	return &MultiClusterClient{clientsets: clientsets, order: order}
}

func restConfigFor(c config.KubernetesClusterConfig) (*rest.Config, error) {
	if c.Name == "" {
		return rest.InClusterConfig()
	}
	overrides := &clientcmd.ConfigOverrides{}
	if c.Context != "" {
		overrides.CurrentContext = c.Context
	}
	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: c.KubeconfigPath}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

func (m *MultiClusterClient) Clusters() []string {
	return m.order
}

func (m *MultiClusterClient) clientsetFor(cluster string) (kubernetes.Interface, error) {
	cs, ok := m.clientsets[cluster]
	if !ok {
		return nil, fmt.Errorf("unknown cluster %q", cluster)
	}
	return cs, nil
}

func (m *MultiClusterClient) ListNodes(ctx context.Context, cluster string) ([]corev1.Node, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListPodsAll(ctx context.Context, cluster string) ([]corev1.Pod, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListServicesAll(ctx context.Context, cluster string) ([]corev1.Service, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListDeploymentsAll(ctx context.Context, cluster string) ([]appsv1.Deployment, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListStatefulSetsAll(ctx context.Context, cluster string) ([]appsv1.StatefulSet, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.AppsV1().StatefulSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListDaemonSetsAll(ctx context.Context, cluster string) ([]appsv1.DaemonSet, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.AppsV1().DaemonSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListReplicaSetsAll(ctx context.Context, cluster string) ([]appsv1.ReplicaSet, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.AppsV1().ReplicaSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListIngressesAll(ctx context.Context, cluster string) ([]networkingv1.Ingress, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.NetworkingV1().Ingresses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListPVCsAll(ctx context.Context, cluster string) ([]corev1.PersistentVolumeClaim, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.CoreV1().PersistentVolumeClaims(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) ListPodsByLabelSelector(ctx context.Context, cluster, namespace, selector string) ([]corev1.Pod, error) {
	cs, err := m.clientsetFor(cluster)
	if err != nil {
		return nil, err
	}
	list, err := cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (m *MultiClusterClient) Close() {}
