// Package config loads the sync/triage process configuration from a single
// YAML file, with secrets supplied via environment variables rather than
// committed to the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// GraphConfig configures the Bolt connection to the graph store (C1).
type GraphConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Username string `yaml:"username"`
	Password string `yaml:"-"` // from NEXUS_GRAPH_PASSWORD
	Database string `yaml:"database"`
}

// KubernetesClusterConfig is one entry in the multi-cluster list. An empty
// Name denotes the in-cluster service account; any other name resolves
// against KubeconfigPath.
type KubernetesClusterConfig struct {
	Name           string `yaml:"name"`
	KubeconfigPath string `yaml:"kubeconfig_path"`
	Context        string `yaml:"context"`
}

// KubernetesConfig lists every cluster the sync engine projects.
type KubernetesConfig struct {
	Clusters []KubernetesClusterConfig `yaml:"clusters"`
}

// ProxmoxHostConfig is one Proxmox hypervisor's per-host token auth triple.
type ProxmoxHostConfig struct {
	Name        string `yaml:"name" validate:"required"`
	URL         string `yaml:"url" validate:"required"`
	TokenID     string `yaml:"token_id"`
	TokenSecret string `yaml:"-"` // from NEXUS_PROXMOX_<NAME>_TOKEN_SECRET
	Insecure    bool   `yaml:"insecure_skip_verify"`
}

// ProxmoxConfig lists every Proxmox host.
type ProxmoxConfig struct {
	Hosts []ProxmoxHostConfig `yaml:"hosts"`
}

// TrueNASInstanceConfig is one TrueNAS appliance's bearer auth.
type TrueNASInstanceConfig struct {
	Name     string `yaml:"name" validate:"required"`
	URL      string `yaml:"url" validate:"required"`
	APIKey   string `yaml:"-"` // from NEXUS_TRUENAS_<NAME>_API_KEY
	Insecure bool   `yaml:"insecure_skip_verify"`
}

// TrueNASConfig lists every TrueNAS instance.
type TrueNASConfig struct {
	Instances []TrueNASInstanceConfig `yaml:"instances"`
}

// HTTPToolServerConfig is one MCP-style tool server endpoint.
type HTTPToolServerConfig struct {
	Name    string `yaml:"name" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required"`
}

// HTTPToolsConfig lists every HTTP tool server (Coroot, Gatus, AdGuard,
// Home Assistant, Tasmota, OPNsense, Cloudflare, Keep, Grafana, runbooks).
type HTTPToolsConfig struct {
	Servers []HTTPToolServerConfig `yaml:"servers"`
	Timeout time.Duration          `yaml:"timeout"`
}

// LLMConfig configures the triage pipeline's LLM backend.
type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"omitempty,oneof=anthropic openai-compatible"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"` // from NEXUS_LLM_API_KEY
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// Enabled reports whether an LLM backend is configured at all. Absence is
// not an error — the triage pipeline falls back to rule-based synthesis.
func (c LLMConfig) Enabled() bool {
	return c.Provider != "" && c.APIKey != ""
}

// SyncConfig controls cycle cadence and per-source timeouts (C7).
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
}

// ServerConfig configures the admin HTTP surface.
type ServerConfig struct {
	AdminPort string `yaml:"admin_port" validate:"required"`
}

// LoggingConfig controls log level/format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// Config is the top-level process configuration.
type Config struct {
	Graph         GraphConfig          `yaml:"graph" validate:"required"`
	Kubernetes    KubernetesConfig     `yaml:"kubernetes"`
	Proxmox       ProxmoxConfig        `yaml:"proxmox"`
	TrueNAS       TrueNASConfig        `yaml:"truenas"`
	HTTPTools     HTTPToolsConfig      `yaml:"http_tools"`
	LLM           LLMConfig            `yaml:"llm"`
	DomainWeights map[string]float64   `yaml:"domain_weights"`
	Sync          SyncConfig           `yaml:"sync"`
	Server        ServerConfig         `yaml:"server"`
	Logging       LoggingConfig        `yaml:"logging"`
}

// DefaultDomainWeights is used when the config omits domain_weights,
// reflecting the authority ordering in spec §4.9: security > devops > sre
// > network > database > infrastructure.
func DefaultDomainWeights() map[string]float64 {
	return map[string]float64{
		"security":       1.0,
		"devops":         0.8,
		"sre":            0.7,
		"network":        0.6,
		"database":       0.5,
		"infrastructure": 0.4,
	}
}

func applyDefaults(c *Config) {
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 10 * time.Minute
	}
	if c.Sync.SourceTimeout == 0 {
		c.Sync.SourceTimeout = 30 * time.Second
	}
	if c.HTTPTools.Timeout == 0 {
		c.HTTPTools.Timeout = 30 * time.Second
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.Server.AdminPort == "" {
		c.Server.AdminPort = "8090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.DomainWeights) == 0 {
		c.DomainWeights = DefaultDomainWeights()
	}
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("NEXUS_GRAPH_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv("NEXUS_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	for i := range c.Proxmox.Hosts {
		envKey := fmt.Sprintf("NEXUS_PROXMOX_%s_TOKEN_SECRET", c.Proxmox.Hosts[i].Name)
		if v := os.Getenv(envKey); v != "" {
			c.Proxmox.Hosts[i].TokenSecret = v
		}
	}
	for i := range c.TrueNAS.Instances {
		envKey := fmt.Sprintf("NEXUS_TRUENAS_%s_API_KEY", c.TrueNAS.Instances[i].Name)
		if v := os.Getenv(envKey); v != "" {
			c.TrueNAS.Instances[i].APIKey = v
		}
	}
}

var validate = validator.New()

// Load reads, defaults, env-overrides, and validates the configuration at
// path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Reloadable is the subset of fields safe to hot-swap without restarting
// source-client connections (see Watcher).
type Reloadable struct {
	DomainWeights map[string]float64
	LogLevel      string
	SyncInterval  time.Duration
}

// Snapshot extracts the hot-reloadable fields from c.
func (c *Config) Snapshot() Reloadable {
	return Reloadable{
		DomainWeights: c.DomainWeights,
		LogLevel:      c.Logging.Level,
		SyncInterval:  c.Sync.Interval,
	}
}
