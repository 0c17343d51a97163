package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/trino-compare/dashboard/types"
)

type StoreTestSuite struct {
	suite.Suite
	dir   string
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	s.store = NewStore(filepath.Join(s.dir, "config.yaml"), log)
}

func (s *StoreTestSuite) TestLoadCreatesDefaults() {
	cfg, err := s.store.Load()
	s.Require().NoError(err)

	s.Equal("405", cfg.Cluster1.Version)
	s.Equal("406", cfg.Cluster2.Version)
	s.Equal(8001, cfg.Cluster1.Port)
	s.Equal(8002, cfg.Cluster2.Port)
	s.Contains(cfg.Catalogs, "hive")
	s.Contains(cfg.Catalogs, "elasticsearch")

	// The file is written on first load.
	_, err = os.Stat(filepath.Join(s.dir, "config.yaml"))
	s.NoError(err)
}

func (s *StoreTestSuite) TestSaveLoadRoundTrip() {
	cfg, err := s.store.Load()
	s.Require().NoError(err)

	cfg.Cluster1.Version = "410"
	cfg.Cluster2.Port = 9002
	s.Require().NoError(s.store.Save(cfg))

	reloaded, err := s.store.Load()
	s.Require().NoError(err)
	s.Equal("410", reloaded.Cluster1.Version)
	s.Equal(9002, reloaded.Cluster2.Port)
}

func (s *StoreTestSuite) TestSaveRejectsInvalidConfig() {
	cfg, err := s.store.Load()
	s.Require().NoError(err)

	cfg.Cluster1.Port = cfg.Cluster2.Port
	s.Error(s.store.Save(cfg))
}

func (s *StoreTestSuite) TestLoadMergesMissingCatalogs() {
	path := filepath.Join(s.dir, "config.yaml")
	partial := `cluster1:
  version: "405"
  port: 8001
  container_name: trino1
cluster2:
  version: "406"
  port: 8002
  container_name: trino2
catalogs:
  hive:
    enabled: false
docker:
  trino_connect_host: localhost
`
	s.Require().NoError(os.WriteFile(path, []byte(partial), 0644))

	cfg, err := s.store.Load()
	s.Require().NoError(err)

	// The file's hive entry wins; every default-only catalog is merged in.
	s.False(cfg.Catalogs["hive"].Enabled)
	s.Contains(cfg.Catalogs, "mysql")
	s.Contains(cfg.Catalogs, "iceberg")
	s.Contains(cfg.Catalogs, "pinot")
}

func (s *StoreTestSuite) TestReset() {
	cfg, err := s.store.Load()
	s.Require().NoError(err)
	cfg.Cluster1.Version = "999"
	s.Require().NoError(s.store.Save(cfg))

	fresh, err := s.store.Reset()
	s.Require().NoError(err)
	s.Equal("405", fresh.Cluster1.Version)

	reloaded, err := s.store.Load()
	s.Require().NoError(err)
	s.Equal("405", reloaded.Cluster1.Version)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}, wantErr: ""},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Cluster1.Version = "" },
			wantErr: "version is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Cluster2.Port = 70000 },
			wantErr: "port must be between",
		},
		{
			name:    "missing container name",
			mutate:  func(c *Config) { c.Cluster2.ContainerName = "" },
			wantErr: "container_name is required",
		},
		{
			name:    "duplicate ports",
			mutate:  func(c *Config) { c.Cluster2.Port = c.Cluster1.Port },
			wantErr: "different ports",
		},
		{
			name:    "duplicate container names",
			mutate:  func(c *Config) { c.Cluster2.ContainerName = c.Cluster1.ContainerName },
			wantErr: "different container names",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClusterAccessors(t *testing.T) {
	cfg := Default()

	cc, err := cfg.Cluster(types.Cluster1)
	require.NoError(t, err)
	assert.Equal(t, "405", cc.Version)

	_, err = cfg.Cluster("cluster3")
	assert.Error(t, err)

	require.NoError(t, cfg.SetCluster(types.Cluster2, ClusterConfig{Version: "407", Port: 8003, ContainerName: "t2"}))
	assert.Equal(t, "407", cfg.Cluster2.Version)
}

func TestEnabledCatalogs(t *testing.T) {
	cfg := &Config{Catalogs: map[string]CatalogConfig{
		"hive":  {Enabled: true},
		"mysql": {Enabled: false},
	}}

	assert.Equal(t, []string{"hive"}, cfg.EnabledCatalogs())
}
