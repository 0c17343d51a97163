package config

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the dashboard service's own settings, as opposed to the
// user-editable cluster configuration managed by Store.
type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	StaticDir    string `yaml:"static_dir"`
	ConfigPath   string `yaml:"config_path"`
	QuerySetPath string `yaml:"query_set_path"`

	// QueryTimeout bounds one SQL statement against one cluster.
	QueryTimeout model.Duration `yaml:"query_timeout"`
	// ScrapeTimeout bounds one release-notes page fetch.
	ScrapeTimeout model.Duration `yaml:"scrape_timeout"`
	// StartupWait is how long to wait for a started cluster to become healthy.
	StartupWait model.Duration `yaml:"startup_wait"`

	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains the history database connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// DefaultServerConfig returns the default service settings.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:    ":8080",
		StaticDir:     "web/static",
		ConfigPath:    "config/config.yaml",
		QuerySetPath:  "config/benchmark_queries.json",
		QueryTimeout:  model.Duration(2 * time.Minute),
		ScrapeTimeout: model.Duration(10 * time.Second),
		StartupWait:   model.Duration(90 * time.Second),
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "trino_compare",
			User:         "postgres",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
	}
}

// LoadServerConfig loads service settings from file, falling back to defaults
// when the path is empty or the file does not exist.
func LoadServerConfig(path string, log logrus.FieldLogger) (*ServerConfig, error) {
	log = log.WithField("component", "server_config")

	if path == "" {
		log.Info("No server config path provided, using defaults")
		return DefaultServerConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Info("Server config file not found, using defaults")
		return DefaultServerConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server config file: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	// Apply defaults for missing fields
	def := DefaultServerConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = def.StaticDir
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = def.ConfigPath
	}
	if cfg.QuerySetPath == "" {
		cfg.QuerySetPath = def.QuerySetPath
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.ScrapeTimeout == 0 {
		cfg.ScrapeTimeout = def.ScrapeTimeout
	}
	if cfg.StartupWait == 0 {
		cfg.StartupWait = def.StartupWait
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = def.Postgres.Host
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = def.Postgres.Port
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = def.Postgres.Database
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = def.Postgres.User
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = def.Postgres.SSLMode
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = def.Postgres.MaxOpenConns
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = def.Postgres.MaxIdleConns
	}

	log.WithFields(logrus.Fields{
		"listen_addr": cfg.ListenAddr,
		"pg_host":     cfg.Postgres.Host,
		"pg_port":     cfg.Postgres.Port,
		"pg_database": cfg.Postgres.Database,
	}).Info("Loaded server configuration")

	return &cfg, nil
}

// Validate checks the Postgres connection settings.
func (c *PostgresConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be greater than 0")
	}
	if c.MaxIdleConns <= 0 {
		return fmt.Errorf("max_idle_conns must be greater than 0")
	}
	return nil
}

// ConnectionString returns the lib/pq connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
