package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestLoadServerConfigEmptyPath(t *testing.T) {
	cfg, err := LoadServerConfig("", testLogger())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, model.Duration(2*time.Minute), cfg.QueryTimeout)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg)
}

func TestLoadServerConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `listen_addr: ":9090"
postgres:
  host: db.internal
  password: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadServerConfig(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "secret", cfg.Postgres.Password)

	// Unset fields fall back to defaults.
	assert.Equal(t, "web/static", cfg.StaticDir)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "trino_compare", cfg.Postgres.Database)
	assert.Equal(t, model.Duration(90*time.Second), cfg.StartupWait)
}

func TestLoadServerConfigDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `query_timeout: 30s
scrape_timeout: 5s
startup_wait: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadServerConfig(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, model.Duration(30*time.Second), cfg.QueryTimeout)
	assert.Equal(t, model.Duration(5*time.Second), cfg.ScrapeTimeout)
	assert.Equal(t, model.Duration(2*time.Minute), cfg.StartupWait)
}

func TestLoadServerConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [:::"), 0644))

	_, err := LoadServerConfig(path, testLogger())
	assert.Error(t, err)
}

func TestPostgresConfigValidate(t *testing.T) {
	valid := DefaultServerConfig().Postgres
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*PostgresConfig)
	}{
		{"missing host", func(c *PostgresConfig) { c.Host = "" }},
		{"bad port", func(c *PostgresConfig) { c.Port = 0 }},
		{"missing database", func(c *PostgresConfig) { c.Database = "" }},
		{"missing user", func(c *PostgresConfig) { c.User = "" }},
		{"zero open conns", func(c *PostgresConfig) { c.MaxOpenConns = 0 }},
		{"zero idle conns", func(c *PostgresConfig) { c.MaxIdleConns = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig().Postgres
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host: "localhost", Port: 5432,
		Database: "compare", User: "pg", Password: "pw", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=pg password=pw dbname=compare sslmode=disable",
		cfg.ConnectionString())
}
