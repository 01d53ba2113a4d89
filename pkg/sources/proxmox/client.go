// Package proxmox is the multi-host Proxmox VE source client (C2). It
// speaks the HTTPS REST API directly — there is no mature community SDK in
// the retrieval pack to ground this on — with per-host token auth. TLS
// verification stays on unless a host sets Insecure; it is not disabled by
// default.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/charlieshreck/homelab-graph/internal/config"
	nexuserrors "github.com/charlieshreck/homelab-graph/internal/errors"
	"github.com/charlieshreck/homelab-graph/pkg/retry"
)

// Node is a Proxmox cluster member (hypervisor host).
type Node struct {
	Name   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxMem int64   `json:"maxmem"`
	Mem    int64   `json:"mem"`
}

// VM is a QEMU guest.
type VM struct {
	VMID   int    `json:"vmid"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Container is an LXC guest.
type Container struct {
	VMID   int    `json:"vmid"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Client is the capability-typed Proxmox source client.
type Client interface {
	Hosts() []string
	ListNodes(ctx context.Context, host string) ([]Node, error)
	ListVMs(ctx context.Context, host, node string) ([]VM, error)
	ListContainers(ctx context.Context, host, node string) ([]Container, error)
	// VMNetworkInterfaces queries the QEMU guest agent; returns an empty
	// slice (not an error) when the agent is unavailable or the VM isn't
	// running, so a missing IP never blocks the syncer (spec §4.4).
	VMNetworkInterfaces(ctx context.Context, host, node string, vmid int) ([]GuestInterface, error)
	// ContainerConfig returns the raw LXC config map (netN strings included).
	ContainerConfig(ctx context.Context, host, node string, vmid int) (map[string]interface{}, error)
}

// GuestInterface is one entry from the QEMU guest agent's
// network-get-interfaces call.
type GuestInterface struct {
	Name        string          `json:"name"`
	IPAddresses []GuestIPAddr   `json:"ip-addresses"`
}

// GuestIPAddr is one address reported by the guest agent.
type GuestIPAddr struct {
	IPAddress     string `json:"ip-address"`
	IPAddressType string `json:"ip-address-type"`
}

type hostConfig struct {
	baseURL     string
	tokenID     string
	tokenSecret string
}

// RESTClient implements Client over net/http. Each host gets its own
// circuit breaker so one unreachable hypervisor never trips requests to
// the rest of the cluster.
type RESTClient struct {
	http     *http.Client
	hosts    map[string]hostConfig
	order    []string
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewRESTClient builds one configured host entry per cfg.Hosts. All hosts
// share one HTTP transport, so if any host sets Insecure, TLS verification
// is disabled for every host, not just that one.
func NewRESTClient(cfg config.ProxmoxConfig) *RESTClient {
	c := &RESTClient{hosts: make(map[string]hostConfig), breakers: make(map[string]*gobreaker.CircuitBreaker)}

	anyInsecure := false
	for _, h := range cfg.Hosts {
		if h.Insecure {
			anyInsecure = true
		}
		c.hosts[h.Name] = hostConfig{baseURL: h.URL, tokenID: h.TokenID, tokenSecret: h.TokenSecret}
		c.order = append(c.order, h.Name)
		c.breakers[h.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "proxmox-" + h.Name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		})
	}

	transport := &http.Transport{}
	if anyInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // homelab self-signed certs, spec §6
	}
	c.http = &http.Client{Timeout: 30 * time.Second, Transport: transport}
	return c
}

func (c *RESTClient) Hosts() []string { return c.order }

func (c *RESTClient) get(ctx context.Context, host, path string, out interface{}) error {
	hc, ok := c.hosts[host]
	if !ok {
		return fmt.Errorf("unknown proxmox host %q", host)
	}
	url := hc.baseURL + path
	breaker := c.breakers[host]
	return retry.Do(ctx, retry.SourceConfig(), func(ctx context.Context) error {
		_, err := breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", hc.tokenID, hc.tokenSecret))

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				// Authentication failures are not retried (spec §7).
				return nil, &nonRetryableStatus{code: resp.StatusCode}
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("proxmox %s returned %d", path, resp.StatusCode)
			}

			var envelope struct {
				Data json.RawMessage `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				return nil, err
			}
			return nil, json.Unmarshal(envelope.Data, out)
		})
		return err
	})
}

type nonRetryableStatus struct{ code int }

func (e *nonRetryableStatus) Error() string { return fmt.Sprintf("proxmox returned status %d", e.code) }

func (c *RESTClient) ListNodes(ctx context.Context, host string) ([]Node, error) {
	var nodes []Node
	if err := c.get(ctx, host, "/api2/json/nodes", &nodes); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list nodes", "proxmox", host, err)
	}
	return nodes, nil
}

func (c *RESTClient) ListVMs(ctx context.Context, host, node string) ([]VM, error) {
	var vms []VM
	path := fmt.Sprintf("/api2/json/nodes/%s/qemu", node)
	if err := c.get(ctx, host, path, &vms); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list vms", "proxmox", host+"/"+node, err)
	}
	return vms, nil
}

func (c *RESTClient) ListContainers(ctx context.Context, host, node string) ([]Container, error) {
	var containers []Container
	path := fmt.Sprintf("/api2/json/nodes/%s/lxc", node)
	if err := c.get(ctx, host, path, &containers); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list containers", "proxmox", host+"/"+node, err)
	}
	return containers, nil
}

func (c *RESTClient) VMNetworkInterfaces(ctx context.Context, host, node string, vmid int) ([]GuestInterface, error) {
	var result struct {
		Result []GuestInterface `json:"result"`
	}
	path := fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/agent/network-get-interfaces", node, vmid)
	if err := c.get(ctx, host, path, &result); err != nil {
		// Guest agent unavailable is expected for stopped/agent-less VMs;
		// never surface as an error to the caller (spec §4.4).
		return nil, nil
	}
	return result.Result, nil
}

func (c *RESTClient) ContainerConfig(ctx context.Context, host, node string, vmid int) (map[string]interface{}, error) {
	var cfg map[string]interface{}
	path := fmt.Sprintf("/api2/json/nodes/%s/lxc/%d/config", node, vmid)
	if err := c.get(ctx, host, path, &cfg); err != nil {
		return nil, nexuserrors.FailedToWithDetails("get container config", "proxmox", host+"/"+node, err)
	}
	return cfg, nil
}
