// Package config loads and persists the dashboard's YAML configuration: the
// two managed cluster definitions, the named catalog (data source) set, and
// container-engine settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/trino-compare/dashboard/types"
)

// ClusterConfig describes one managed Trino cluster.
type ClusterConfig struct {
	Version       string `yaml:"version" json:"version"`
	Port          int    `yaml:"port" json:"port"`
	ContainerName string `yaml:"container_name" json:"container_name"`
}

// CatalogConfig holds the connection parameters for one named catalog. Only
// the fields relevant to the catalog kind are populated; the rest stay empty
// and are omitted from the rendered connector properties.
type CatalogConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Host          string `yaml:"host,omitempty" json:"host,omitempty"`
	Port          string `yaml:"port,omitempty" json:"port,omitempty"`
	User          string `yaml:"user,omitempty" json:"user,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	Database      string `yaml:"database,omitempty" json:"database,omitempty"`
	MetastoreHost string `yaml:"metastore_host,omitempty" json:"metastore_host,omitempty"`
	MetastorePort string `yaml:"metastore_port,omitempty" json:"metastore_port,omitempty"`
}

// SidecarConfig toggles the auxiliary containers launched alongside the
// clusters.
type SidecarConfig struct {
	Postgres    bool `yaml:"postgres" json:"postgres"`
	Minio       bool `yaml:"minio" json:"minio"`
	RestCatalog bool `yaml:"rest_catalog" json:"rest_catalog"`
}

// DockerConfig holds container-engine settings shared by both clusters.
type DockerConfig struct {
	// ConnectHost is the hostname the query client dials; containers publish
	// their coordinator port on this host.
	ConnectHost     string        `yaml:"trino_connect_host" json:"trino_connect_host"`
	NetworkName     string        `yaml:"network_name" json:"network_name"`
	ImageRepository string        `yaml:"image_repository" json:"image_repository"`
	Sidecars        SidecarConfig `yaml:"sidecars" json:"sidecars"`

	// PortOverrides remaps a configured cluster port to the port actually
	// published by the container engine, consulted before dialing.
	PortOverrides map[int]int `yaml:"port_overrides,omitempty" json:"port_overrides,omitempty"`
}

// Config is the full dashboard configuration file: cluster1/cluster2/catalogs/
// docker top-level keys.
type Config struct {
	Cluster1 ClusterConfig            `yaml:"cluster1" json:"cluster1"`
	Cluster2 ClusterConfig            `yaml:"cluster2" json:"cluster2"`
	Catalogs map[string]CatalogConfig `yaml:"catalogs" json:"catalogs"`
	Docker   DockerConfig             `yaml:"docker" json:"docker"`
}

// Cluster returns the named cluster definition.
func (c *Config) Cluster(name string) (ClusterConfig, error) {
	switch name {
	case types.Cluster1:
		return c.Cluster1, nil
	case types.Cluster2:
		return c.Cluster2, nil
	}
	return ClusterConfig{}, fmt.Errorf("unknown cluster: %s", name)
}

// SetCluster replaces the named cluster definition.
func (c *Config) SetCluster(name string, cc ClusterConfig) error {
	switch name {
	case types.Cluster1:
		c.Cluster1 = cc
	case types.Cluster2:
		c.Cluster2 = cc
	default:
		return fmt.Errorf("unknown cluster: %s", name)
	}
	return nil
}

// EnabledCatalogs returns the names of all enabled catalogs.
func (c *Config) EnabledCatalogs() []string {
	var names []string
	for name, cat := range c.Catalogs {
		if cat.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// Validate checks the cluster definitions for obvious misconfiguration.
func (c *Config) Validate() error {
	for _, pair := range []struct {
		name string
		cc   ClusterConfig
	}{{types.Cluster1, c.Cluster1}, {types.Cluster2, c.Cluster2}} {
		if pair.cc.Version == "" {
			return fmt.Errorf("%s: version is required", pair.name)
		}
		if pair.cc.Port <= 0 || pair.cc.Port > 65535 {
			return fmt.Errorf("%s: port must be between 1 and 65535", pair.name)
		}
		if pair.cc.ContainerName == "" {
			return fmt.Errorf("%s: container_name is required", pair.name)
		}
	}
	if c.Cluster1.Port == c.Cluster2.Port {
		return fmt.Errorf("cluster1 and cluster2 must use different ports")
	}
	if c.Cluster1.ContainerName == c.Cluster2.ContainerName {
		return fmt.Errorf("cluster1 and cluster2 must use different container names")
	}
	return nil
}

// Default returns the built-in configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		Cluster1: ClusterConfig{Version: "405", Port: 8001, ContainerName: "trino1"},
		Cluster2: ClusterConfig{Version: "406", Port: 8002, ContainerName: "trino2"},
		Catalogs: map[string]CatalogConfig{
			"hive":       {Enabled: true, MetastoreHost: "localhost", MetastorePort: "9083"},
			"iceberg":    {Enabled: true, MetastoreHost: "localhost", MetastorePort: "9083"},
			"delta-lake": {Enabled: false, MetastoreHost: "localhost", MetastorePort: "9083"},
			"mysql":      {Enabled: true, Host: "localhost", Port: "3306", User: "root"},
			"mariadb":    {Enabled: false, Host: "localhost", Port: "3306", User: "root"},
			"postgres":   {Enabled: false, Host: "localhost", Port: "5432", Database: "postgres", User: "postgres"},
			"sqlserver":  {Enabled: false, Host: "localhost", Port: "1433", Database: "master", User: "sa"},
			"db2":        {Enabled: false, Host: "localhost", Port: "50000", Database: "sample", User: "db2inst1"},
			"clickhouse": {Enabled: false, Host: "localhost", Port: "8123", User: "default"},
			"pinot":      {Enabled: false, Host: "localhost", Port: "9000"},
			"elasticsearch": {Enabled: true, Host: "localhost", Port: "9200"},
		},
		Docker: DockerConfig{
			ConnectHost:     "localhost",
			NetworkName:     "trino-compare",
			ImageRepository: "trinodb/trino",
			Sidecars:        SidecarConfig{Postgres: false, Minio: false, RestCatalog: false},
		},
	}
}

// Store persists the dashboard configuration to a YAML file. Load creates the
// file with defaults on first use; concurrent handler access is serialized.
type Store struct {
	mu   sync.Mutex
	path string
	log  logrus.FieldLogger
}

// NewStore creates a configuration store backed by the given file path.
func NewStore(path string, log logrus.FieldLogger) *Store {
	return &Store{
		path: path,
		log:  log.WithField("component", "config-store"),
	}
}

// Load reads the configuration file, creating it from defaults when missing.
// Catalogs absent from an existing file are merged in from the defaults so
// newly supported connectors appear without manual edits.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := s.saveLocked(cfg); err != nil {
			return nil, err
		}
		s.log.WithField("path", s.path).Info("Created default configuration")
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Catalogs == nil {
		cfg.Catalogs = make(map[string]CatalogConfig)
	}

	merged := false
	for name, cat := range Default().Catalogs {
		if _, ok := cfg.Catalogs[name]; !ok {
			s.log.WithField("catalog", name).Info("Adding missing catalog from defaults")
			cfg.Catalogs[name] = cat
			merged = true
		}
	}
	if merged {
		if err := s.saveLocked(&cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Save validates and writes the configuration to disk.
func (s *Store) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cfg)
}

func (s *Store) saveLocked(cfg *Config) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	s.log.Debug("Saved configuration")
	return nil
}

// Reset overwrites the configuration with the built-in defaults and returns
// the fresh config.
func (s *Store) Reset() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := Default()
	if err := s.saveLocked(cfg); err != nil {
		return nil, err
	}
	s.log.Info("Configuration reset to defaults")
	return cfg, nil
}
