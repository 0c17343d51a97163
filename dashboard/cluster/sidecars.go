package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trino-compare/dashboard/config"
)

// Sidecar containers back the optional catalogs: a PostgreSQL instance for
// the postgres connector, MinIO for object storage, and an Iceberg REST
// catalog. They join the shared network so the clusters reach them by name.

const (
	sidecarPostgres    = "postgres"
	sidecarMinio       = "minio"
	sidecarRestCatalog = "rest_catalog"
)

// StartSidecars launches the enabled auxiliary containers. Already running
// sidecars are left alone.
func (m *Manager) StartSidecars(ctx context.Context, sc config.SidecarConfig) error {
	if !m.Available() {
		return ErrDockerUnavailable
	}
	if m.networkName != "" {
		if err := m.ensureNetwork(ctx); err != nil {
			return fmt.Errorf("failed to prepare sidecar network: %w", err)
		}
	}

	if sc.Postgres {
		if err := m.startSidecar(ctx, sidecarPostgres, m.startPostgresSidecar); err != nil {
			return err
		}
	}
	if sc.Minio {
		if err := m.startSidecar(ctx, sidecarMinio, m.startMinioSidecar); err != nil {
			return err
		}
	}
	if sc.RestCatalog {
		if err := m.startSidecar(ctx, sidecarRestCatalog, m.startRestCatalogSidecar); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) startSidecar(ctx context.Context, name string, start func(context.Context) (testcontainers.Container, error)) error {
	m.mu.Lock()
	_, running := m.sidecars[name]
	m.mu.Unlock()
	if running {
		return nil
	}

	m.log.WithField("sidecar", name).Info("Starting sidecar container")
	ctr, err := start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start %s sidecar: %w", name, err)
	}

	m.mu.Lock()
	m.sidecars[name] = ctr
	m.mu.Unlock()
	return nil
}

func (m *Manager) startPostgresSidecar(ctx context.Context) (testcontainers.Container, error) {
	return postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("compare"),
		postgres.WithUsername("trino"),
		postgres.WithPassword("trino"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		m.sidecarNetwork("compare-postgres"),
	)
}

func (m *Manager) startMinioSidecar(ctx context.Context) (testcontainers.Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		Name:         "compare-minio",
		ExposedPorts: []string{"9000/tcp", "9001/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minio",
			"MINIO_ROOT_PASSWORD": "minio123",
		},
		Cmd:        []string{"server", "/data", "--console-address", ":9001"},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	if m.networkName != "" {
		req.Networks = []string{m.networkName}
	}
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

func (m *Manager) startRestCatalogSidecar(ctx context.Context) (testcontainers.Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "tabulario/iceberg-rest:latest",
		Name:         "compare-iceberg-rest",
		ExposedPorts: []string{"8181/tcp"},
		Env: map[string]string{
			"CATALOG_WAREHOUSE":        "s3://warehouse/",
			"CATALOG_IO__IMPL":         "org.apache.iceberg.aws.s3.S3FileIO",
			"CATALOG_S3_ENDPOINT":      "http://compare-minio:9000",
			"AWS_ACCESS_KEY_ID":        "minio",
			"AWS_SECRET_ACCESS_KEY":    "minio123",
			"AWS_REGION":               "us-east-1",
		},
		WaitingFor: wait.ForListeningPort("8181/tcp").WithStartupTimeout(60 * time.Second),
	}
	if m.networkName != "" {
		req.Networks = []string{m.networkName}
	}
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

// sidecarNetwork attaches a module-based sidecar to the shared network when
// one is configured.
func (m *Manager) sidecarNetwork(alias string) testcontainers.CustomizeRequestOption {
	return func(req *testcontainers.GenericContainerRequest) {
		if m.networkName == "" {
			return
		}
		req.Networks = append(req.Networks, m.networkName)
		if req.NetworkAliases == nil {
			req.NetworkAliases = map[string][]string{}
		}
		req.NetworkAliases[m.networkName] = []string{alias}
	}
}

// StopSidecars terminates every running sidecar.
func (m *Manager) StopSidecars(ctx context.Context) {
	m.mu.Lock()
	sidecars := m.sidecars
	m.sidecars = make(map[string]testcontainers.Container)
	m.mu.Unlock()

	for name, ctr := range sidecars {
		if err := ctr.Terminate(ctx); err != nil {
			m.log.WithField("sidecar", name).WithError(err).Warn("Failed to stop sidecar")
		}
	}
}
