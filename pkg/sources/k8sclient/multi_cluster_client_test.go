package k8sclient_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
)

var _ = Describe("MultiClusterClient", func() {
	var (
		ctx    context.Context
		client k8sclient.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		primary := fake.NewSimpleClientset(
			&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-a"}},
			&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "pod-a", Namespace: "default"}},
			&appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "dep-a", Namespace: "default"}},
		)
		edge := fake.NewSimpleClientset(
			&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-b"}},
		)
		client = k8sclient.NewMultiClusterClientFromClientsets(
			map[string]kubernetes.Interface{"": primary, "edge": edge},
			[]string{"", "edge"},
		)
	})

	It("reports every configured cluster", func() {
		Expect(client.Clusters()).To(ConsistOf("", "edge"))
	})

	It("lists nodes scoped to the requested cluster", func() {
		nodes, err := client.ListNodes(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(1))
		Expect(nodes[0].Name).To(Equal("node-a"))

		edgeNodes, err := client.ListNodes(ctx, "edge")
		Expect(err).NotTo(HaveOccurred())
		Expect(edgeNodes[0].Name).To(Equal("node-b"))
	})

	It("lists pods across all namespaces", func() {
		pods, err := client.ListPodsAll(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(pods).To(HaveLen(1))
	})

	It("lists deployments across all namespaces", func() {
		deps, err := client.ListDeploymentsAll(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(deps).To(HaveLen(1))
	})

	It("errors for an unknown cluster", func() {
		_, err := client.ListNodes(ctx, "does-not-exist")
		Expect(err).To(HaveOccurred())
	})

	It("filters pods by label selector within a namespace", func() {
		_, err := client.ListPodsByLabelSelector(ctx, "", "default", "app=foo")
		Expect(err).NotTo(HaveOccurred())
	})
})
