package syncers_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/proxmox"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestProxmoxSyncer_ProjectsNodesVMsAndContainersWithIPs(t *testing.T) {
	client := &fakeProxmoxClient{
		hosts: []string{"pve1"},
		nodes: map[string][]proxmox.Node{
			"pve1": {{Name: "pve1-node", Status: "online"}},
		},
		vms: map[string][]proxmox.VM{
			"pve1/pve1-node": {{VMID: 100, Name: "web", Status: "running"}},
		},
		containers: map[string][]proxmox.Container{
			"pve1/pve1-node": {{VMID: 200, Name: "lxc-db", Status: "running"}},
		},
		guestIfs: map[int][]proxmox.GuestInterface{
			100: {
				{Name: "lo", IPAddresses: []proxmox.GuestIPAddr{{IPAddress: "127.0.0.1", IPAddressType: "ipv4"}}},
				{Name: "eth0", IPAddresses: []proxmox.GuestIPAddr{{IPAddress: "10.0.0.10", IPAddressType: "ipv4"}}},
			},
		},
		ctConfig: map[int]map[string]interface{}{
			200: {"net0": "name=eth0,bridge=vmbr0,ip=10.0.0.20/24"},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewProxmoxSyncer(client, store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Count != 3 {
		t.Fatalf("expected 1 node + 2 guests = 3, got %d", result.Count)
	}
	vmRows := store.RowsMergedFor(model.LabelVM)
	byVMID := map[int64]map[string]interface{}{}
	for _, r := range vmRows {
		byVMID[r["vmid"].(int64)] = r
	}
	if byVMID[100]["ip_address"] != "10.0.0.10" {
		t.Fatalf("expected loopback skipped and eth0 ip picked, got %v", byVMID[100]["ip_address"])
	}
	if byVMID[200]["ip_address"] != "10.0.0.20" {
		t.Fatalf("expected lxc net0 ip parsed, got %v", byVMID[200]["ip_address"])
	}
	if byVMID[200]["guest_type"] != "lxc" || byVMID[100]["guest_type"] != "qemu" {
		t.Fatalf("expected distinct guest_type tagging, got %+v / %+v", byVMID[100], byVMID[200])
	}
}

func TestProxmoxSyncer_StoppedVMHasNoIPLookup(t *testing.T) {
	client := &fakeProxmoxClient{
		hosts: []string{"pve1"},
		nodes: map[string][]proxmox.Node{"pve1": {{Name: "n1", Status: "online"}}},
		vms: map[string][]proxmox.VM{
			"pve1/n1": {{VMID: 101, Name: "stopped-vm", Status: "stopped"}},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewProxmoxSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelVM)
	if rows[0]["ip_address"] != "" {
		t.Fatalf("expected empty ip for stopped vm, got %v", rows[0]["ip_address"])
	}
	if rows[0]["status"] != model.StatusScaledDown {
		t.Fatalf("expected scaled-down status, got %v", rows[0]["status"])
	}
}
