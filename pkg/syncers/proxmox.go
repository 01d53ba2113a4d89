package syncers

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/proxmox"
)

const mergeProxmoxNodeStatement = `
MERGE (n:` + model.LabelProxmoxNode + ` {name: row.name})
SET n.status = row.status,
    n.host = row.host,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeVMStatement = `
MERGE (n:` + model.LabelVM + ` {vmid: row.vmid})
SET n.name = row.name,
    n.status = row.status,
    n.guest_type = row.guest_type,
    n.ip_address = row.ip_address,
    n.host = row.host,
    n.node = row.node,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen
WITH n, row
MATCH (pn:` + model.LabelProxmoxNode + ` {name: row.node})
MERGE (n)-[:` + model.RelRunsOn + `]->(pn)`

var netLineIPRe = regexp.MustCompile(`ip=([0-9]+\.[0-9]+\.[0-9]+\.[0-9]+)(/\d+)?`)

// ProxmoxSyncer walks every configured host's nodes, QEMU VMs, and LXC
// containers (spec §4.4). VMID is the VM identity tuple across both guest
// kinds per spec §3.
type ProxmoxSyncer struct {
	client    proxmox.Client
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewProxmoxSyncer(client proxmox.Client, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *ProxmoxSyncer {
	return &ProxmoxSyncer{client: client, store: store, lifecycle: lm, log: log}
}

func (s *ProxmoxSyncer) Name() string { return "proxmox" }

func (s *ProxmoxSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *ProxmoxSyncer) run(ctx context.Context) (int, error) {
	var nodeRows []map[string]interface{}
	var nodeIdentities []model.Row
	var vmRows []map[string]interface{}
	var vmIdentities []model.Row

	for _, host := range s.client.Hosts() {
		nodes, err := s.client.ListNodes(ctx, host)
		if err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("host", host).Error(err).Fields()).
				Warn("failed to list nodes for host")
			continue
		}

		for _, n := range nodes {
			status := model.StatusHealthy
			if n.Status != "online" {
				status = model.StatusUnhealthy
			}
			row := model.Row{"name": n.Name, "status": status, "host": host, "source": s.Name()}
			nodeRows = append(nodeRows, model.WithLifecycle(row, nowUTC()))
			nodeIdentities = append(nodeIdentities, model.Row{"name": n.Name})

			vms, err := s.client.ListVMs(ctx, host, n.Name)
			if err != nil {
				s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("node", n.Name).Error(err).Fields()).
					Warn("failed to list vms for node")
			}
			for _, vm := range vms {
				ip := ""
				if vm.Status == "running" {
					ip = s.firstGuestIP(ctx, host, n.Name, vm.VMID)
				}
				row := model.Row{
					"vmid": int64(vm.VMID), "name": vm.Name, "status": vmStatus(vm.Status),
					"guest_type": "qemu", "ip_address": ip, "host": host, "node": n.Name, "source": s.Name(),
				}
				vmRows = append(vmRows, model.WithLifecycle(row, nowUTC()))
				vmIdentities = append(vmIdentities, model.Row{"vmid": int64(vm.VMID)})
			}

			containers, err := s.client.ListContainers(ctx, host, n.Name)
			if err != nil {
				s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Resource("node", n.Name).Error(err).Fields()).
					Warn("failed to list containers for node")
			}
			for _, ct := range containers {
				ip := s.lxcIP(ctx, host, n.Name, ct.VMID)
				row := model.Row{
					"vmid": int64(ct.VMID), "name": ct.Name, "status": vmStatus(ct.Status),
					"guest_type": "lxc", "ip_address": ip, "host": host, "node": n.Name, "source": s.Name(),
				}
				vmRows = append(vmRows, model.WithLifecycle(row, nowUTC()))
				vmIdentities = append(vmIdentities, model.Row{"vmid": int64(ct.VMID)})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergeProxmoxNodeStatement, nodeRows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelProxmoxNode, nodeIdentities); err != nil {
		return 0, err
	}
	if err := s.store.BatchMerge(ctx, mergeVMStatement, vmRows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelVM, vmIdentities); err != nil {
		return 0, err
	}
	return len(nodeRows) + len(vmRows), nil
}

// firstGuestIP attempts the QEMU guest agent and extracts the first
// non-loopback IPv4 address; empty string on any failure (spec §4.4).
func (s *ProxmoxSyncer) firstGuestIP(ctx context.Context, host, node string, vmid int) string {
	ifaces, err := s.client.VMNetworkInterfaces(ctx, host, node, vmid)
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if strings.EqualFold(iface.Name, "lo") {
			continue
		}
		for _, addr := range iface.IPAddresses {
			if addr.IPAddressType == "ipv4" {
				return addr.IPAddress
			}
		}
	}
	return ""
}

// lxcIP parses netN config strings of the form "name=eth0,ip=10.0.0.5/24,..."
// for the first ip= value (spec §4.4).
func (s *ProxmoxSyncer) lxcIP(ctx context.Context, host, node string, vmid int) string {
	cfg, err := s.client.ContainerConfig(ctx, host, node, vmid)
	if err != nil {
		return ""
	}
	for key, v := range cfg {
		if !strings.HasPrefix(key, "net") {
			continue
		}
		line, ok := v.(string)
		if !ok {
			continue
		}
		if m := netLineIPRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func vmStatus(status string) string {
	switch status {
	case "running":
		return model.StatusHealthy
	case "stopped":
		return model.StatusScaledDown
	default:
		return model.StatusDegraded
	}
}
