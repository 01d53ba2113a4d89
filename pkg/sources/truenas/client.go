// Package truenas is the multi-instance TrueNAS source client (C2). Same
// shape as pkg/sources/proxmox: bearer auth over net/http, no community SDK
// in the retrieval pack to ground this on.
package truenas

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
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/retry"
)

// Pool is a ZFS pool. Topology holds the raw vdev-group map as the API
// returns it; no stats are aggregated from it.
type Pool struct {
	ID       int                    `json:"id"`
	Name     string                 `json:"name"`
	Healthy  bool                   `json:"healthy"`
	Topology map[string]interface{} `json:"topology"`
}

// Dataset belongs to a pool.
type Dataset struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Pool string      `json:"pool"`
	Used interface{} `json:"used"` // may be a {parsed,rawvalue} envelope
}

// NFSShare is an exported NFS path.
type NFSShare struct {
	ID      int    `json:"id"`
	Path    string `json:"path"`
	Comment string `json:"comment"`
}

// SMBShare is an exported SMB share.
type SMBShare struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Alert is a TrueNAS middleware alert.
type Alert struct {
	UUID     string `json:"uuid"`
	Level    string `json:"level"`
	Formatted string `json:"formatted"`
}

// App is a TrueNAS SCALE application (Kubernetes-backed catalog app).
type App struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Client is the capability-typed TrueNAS source client.
type Client interface {
	Instances() []string
	ListPools(ctx context.Context, instance string) ([]Pool, error)
	ListDatasets(ctx context.Context, instance string) ([]Dataset, error)
	ListNFSShares(ctx context.Context, instance string) ([]NFSShare, error)
	ListSMBShares(ctx context.Context, instance string) ([]SMBShare, error)
	ListAlerts(ctx context.Context, instance string) ([]Alert, error)
	ListApps(ctx context.Context, instance string) ([]App, error)
}

type instanceConfig struct {
	baseURL string
	apiKey  string
}

// RESTClient implements Client over net/http.
type RESTClient struct {
	http      *http.Client
	instances map[string]instanceConfig
	order     []string
	breakers  map[string]*gobreaker.CircuitBreaker
}

// NewRESTClient builds one configured instance per cfg.Instances.
func NewRESTClient(cfg config.TrueNASConfig) *RESTClient {
	c := &RESTClient{instances: make(map[string]instanceConfig), breakers: make(map[string]*gobreaker.CircuitBreaker)}

	anyInsecure := false
	for _, inst := range cfg.Instances {
		if inst.Insecure {
			anyInsecure = true
		}
		c.instances[inst.Name] = instanceConfig{baseURL: inst.URL, apiKey: inst.APIKey}
		c.order = append(c.order, inst.Name)
		c.breakers[inst.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "truenas-" + inst.Name,
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

func (c *RESTClient) Instances() []string { return c.order }

func (c *RESTClient) get(ctx context.Context, instance, path string, out interface{}) error {
	ic, ok := c.instances[instance]
	if !ok {
		return fmt.Errorf("unknown truenas instance %q", instance)
	}
	url := ic.baseURL + "/api/v2.0" + path
	breaker := c.breakers[instance]
	return retry.Do(ctx, retry.SourceConfig(), func(ctx context.Context) error {
		_, err := breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+ic.apiKey)

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, &nonRetryableStatus{code: resp.StatusCode}
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("truenas %s returned %d", path, resp.StatusCode)
			}
			return nil, json.NewDecoder(resp.Body).Decode(out)
		})
		return err
	})
}

type nonRetryableStatus struct{ code int }

func (e *nonRetryableStatus) Error() string { return fmt.Sprintf("truenas returned status %d", e.code) }

func (c *RESTClient) ListPools(ctx context.Context, instance string) ([]Pool, error) {
	var pools []Pool
	if err := c.get(ctx, instance, "/pool", &pools); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list pools", "truenas", instance, err)
	}
	return pools, nil
}

func (c *RESTClient) ListDatasets(ctx context.Context, instance string) ([]Dataset, error) {
	var datasets []Dataset
	if err := c.get(ctx, instance, "/pool/dataset", &datasets); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list datasets", "truenas", instance, err)
	}
	return datasets, nil
}

func (c *RESTClient) ListNFSShares(ctx context.Context, instance string) ([]NFSShare, error) {
	var shares []NFSShare
	if err := c.get(ctx, instance, "/sharing/nfs", &shares); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list nfs shares", "truenas", instance, err)
	}
	return shares, nil
}

func (c *RESTClient) ListSMBShares(ctx context.Context, instance string) ([]SMBShare, error) {
	var shares []SMBShare
	if err := c.get(ctx, instance, "/sharing/smb", &shares); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list smb shares", "truenas", instance, err)
	}
	return shares, nil
}

func (c *RESTClient) ListAlerts(ctx context.Context, instance string) ([]Alert, error) {
	var alerts []Alert
	if err := c.get(ctx, instance, "/alert/list", &alerts); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list alerts", "truenas", instance, err)
	}
	return alerts, nil
}

func (c *RESTClient) ListApps(ctx context.Context, instance string) ([]App, error) {
	var apps []App
	if err := c.get(ctx, instance, "/app", &apps); err != nil {
		return nil, nexuserrors.FailedToWithDetails("list apps", "truenas", instance, err)
	}
	return apps, nil
}

// UsedBytes unwraps a dataset's Used attribute, which TrueNAS sometimes
// reports as a raw number and sometimes as a {parsed, rawvalue} envelope.
func (d Dataset) UsedBytes() float64 {
	return model.UnwrapTagged(d.Used)
}
