package syncers_test

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
	"github.com/charlieshreck/homelab-graph/pkg/sources/k8sclient"
	"github.com/charlieshreck/homelab-graph/pkg/sources/proxmox"
	"github.com/charlieshreck/homelab-graph/pkg/sources/truenas"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// errBoom is a generic failure injected into fake clients to exercise
// each syncer's fetch-failure-logs-and-zeros path.
var errBoom = errors.New("boom")

func metaName(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name}
}

func metaNameNS(name, namespace string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name, Namespace: namespace}
}

// fakeK8sClient implements k8sclient.Client against in-memory fixtures,
// one cluster at a time (every test in this package exercises a single
// cluster named "home").
type fakeK8sClient struct {
	clusters     []string
	nodes        []corev1.Node
	pods         []corev1.Pod
	services     []corev1.Service
	deployments  []appsv1.Deployment
	statefulSets []appsv1.StatefulSet
	daemonSets   []appsv1.DaemonSet
	replicaSets  []appsv1.ReplicaSet
	ingresses    []networkingv1.Ingress
	pvcs         []corev1.PersistentVolumeClaim

	listNodesErr       error
	listReplicaSetsErr error
}

func (f *fakeK8sClient) Clusters() []string { return f.clusters }

func (f *fakeK8sClient) ListNodes(ctx context.Context, cluster string) ([]corev1.Node, error) {
	return f.nodes, f.listNodesErr
}
func (f *fakeK8sClient) ListPodsAll(ctx context.Context, cluster string) ([]corev1.Pod, error) {
	return f.pods, nil
}
func (f *fakeK8sClient) ListServicesAll(ctx context.Context, cluster string) ([]corev1.Service, error) {
	return f.services, nil
}
func (f *fakeK8sClient) ListDeploymentsAll(ctx context.Context, cluster string) ([]appsv1.Deployment, error) {
	return f.deployments, nil
}
func (f *fakeK8sClient) ListStatefulSetsAll(ctx context.Context, cluster string) ([]appsv1.StatefulSet, error) {
	return f.statefulSets, nil
}
func (f *fakeK8sClient) ListDaemonSetsAll(ctx context.Context, cluster string) ([]appsv1.DaemonSet, error) {
	return f.daemonSets, nil
}
func (f *fakeK8sClient) ListReplicaSetsAll(ctx context.Context, cluster string) ([]appsv1.ReplicaSet, error) {
	return f.replicaSets, f.listReplicaSetsErr
}
func (f *fakeK8sClient) ListIngressesAll(ctx context.Context, cluster string) ([]networkingv1.Ingress, error) {
	return f.ingresses, nil
}
func (f *fakeK8sClient) ListPVCsAll(ctx context.Context, cluster string) ([]corev1.PersistentVolumeClaim, error) {
	return f.pvcs, nil
}
func (f *fakeK8sClient) ListPodsByLabelSelector(ctx context.Context, cluster, namespace, selector string) ([]corev1.Pod, error) {
	return nil, nil
}
func (f *fakeK8sClient) Close() {}

// fakeProxmoxClient implements proxmox.Client over in-memory fixtures.
type fakeProxmoxClient struct {
	hosts      []string
	nodes      map[string][]proxmox.Node
	vms        map[string][]proxmox.VM
	containers map[string][]proxmox.Container
	guestIfs   map[int][]proxmox.GuestInterface
	ctConfig   map[int]map[string]interface{}
}

func (f *fakeProxmoxClient) Hosts() []string { return f.hosts }
func (f *fakeProxmoxClient) ListNodes(ctx context.Context, host string) ([]proxmox.Node, error) {
	return f.nodes[host], nil
}
func (f *fakeProxmoxClient) ListVMs(ctx context.Context, host, node string) ([]proxmox.VM, error) {
	return f.vms[host+"/"+node], nil
}
func (f *fakeProxmoxClient) ListContainers(ctx context.Context, host, node string) ([]proxmox.Container, error) {
	return f.containers[host+"/"+node], nil
}
func (f *fakeProxmoxClient) VMNetworkInterfaces(ctx context.Context, host, node string, vmid int) ([]proxmox.GuestInterface, error) {
	return f.guestIfs[vmid], nil
}
func (f *fakeProxmoxClient) ContainerConfig(ctx context.Context, host, node string, vmid int) (map[string]interface{}, error) {
	return f.ctConfig[vmid], nil
}

// fakeTrueNASClient implements truenas.Client over in-memory fixtures.
type fakeTrueNASClient struct {
	instances []string
	pools     []truenas.Pool
	datasets  []truenas.Dataset
	nfs       []truenas.NFSShare
	smb       []truenas.SMBShare
	alerts    []truenas.Alert
	apps      []truenas.App

	listPoolsErr error
}

func (f *fakeTrueNASClient) Instances() []string { return f.instances }
func (f *fakeTrueNASClient) ListPools(ctx context.Context, instance string) ([]truenas.Pool, error) {
	return f.pools, f.listPoolsErr
}
func (f *fakeTrueNASClient) ListDatasets(ctx context.Context, instance string) ([]truenas.Dataset, error) {
	return f.datasets, nil
}
func (f *fakeTrueNASClient) ListNFSShares(ctx context.Context, instance string) ([]truenas.NFSShare, error) {
	return f.nfs, nil
}
func (f *fakeTrueNASClient) ListSMBShares(ctx context.Context, instance string) ([]truenas.SMBShare, error) {
	return f.smb, nil
}
func (f *fakeTrueNASClient) ListAlerts(ctx context.Context, instance string) ([]truenas.Alert, error) {
	return f.alerts, nil
}
func (f *fakeTrueNASClient) ListApps(ctx context.Context, instance string) ([]truenas.App, error) {
	return f.apps, nil
}

// fakeHTTPToolClient implements httptool.Client, keyed by server+tool so a
// test can program distinct responses per MCP server (e.g. "home_assistant"
// vs "tasmota" called from the same syncer).
type fakeHTTPToolClient struct {
	responses map[string]map[string]interface{}
}

func newFakeHTTPToolClient() *fakeHTTPToolClient {
	return &fakeHTTPToolClient{responses: make(map[string]map[string]interface{})}
}

func (f *fakeHTTPToolClient) on(server, tool string, payload map[string]interface{}) *fakeHTTPToolClient {
	f.responses[server+"/"+tool] = payload
	return f
}

func (f *fakeHTTPToolClient) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) map[string]interface{} {
	if payload, ok := f.responses[server+"/"+tool]; ok {
		return payload
	}
	return map[string]interface{}{}
}

func (f *fakeHTTPToolClient) CallREST(ctx context.Context, baseURL, path string) map[string]interface{} {
	if payload, ok := f.responses[baseURL+path]; ok {
		return payload
	}
	return map[string]interface{}{}
}

var _ httptool.Client = (*fakeHTTPToolClient)(nil)
var _ proxmox.Client = (*fakeProxmoxClient)(nil)
var _ truenas.Client = (*fakeTrueNASClient)(nil)
var _ k8sclient.Client = (*fakeK8sClient)(nil)
