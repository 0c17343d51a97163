// Package cluster manages the two Trino containers and their auxiliary
// services through the local container engine.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trino-compare/dashboard/config"
	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/types"
)

// ErrDockerUnavailable is returned by lifecycle operations when no container
// engine could be reached at startup. The dashboard stays usable in this
// state; only cluster management is disabled.
var ErrDockerUnavailable = errors.New("container engine is not available")

// Phase identifies a step of a cluster start sequence, streamed to the UI.
type Phase string

const (
	PhaseRendering Phase = "rendering_config"
	PhasePulling   Phase = "pulling_image"
	PhaseStarting  Phase = "starting"
	PhaseWaiting   Phase = "waiting_ready"
	PhaseReady     Phase = "ready"
	PhaseStopped   Phase = "stopped"
	PhaseFailed    Phase = "failed"
)

// ProgressFunc receives phase transitions during lifecycle operations.
type ProgressFunc func(clusterName string, phase Phase, detail string)

// trinoReadyLog is printed by the coordinator once it accepts queries.
const trinoReadyLog = "SERVER STARTED"

// Manager starts, stops and inspects the Trino cluster containers.
type Manager struct {
	mu          sync.Mutex
	provider    *testcontainers.DockerProvider
	available   bool
	imageRepo   string
	networkName string
	startupWait time.Duration
	progress    ProgressFunc
	log         logrus.FieldLogger

	containers map[string]testcontainers.Container
	configDirs map[string]string
	sidecars   map[string]testcontainers.Container
}

// NewManager probes the container engine and returns a manager. When the
// engine is unreachable the manager still constructs, with Available
// reporting false and lifecycle calls returning ErrDockerUnavailable.
func NewManager(dockerCfg config.DockerConfig, startupWait time.Duration, progress ProgressFunc) *Manager {
	m := &Manager{
		imageRepo:   dockerCfg.ImageRepository,
		networkName: dockerCfg.NetworkName,
		startupWait: startupWait,
		progress:    progress,
		log:         logrus.WithField("component", "cluster_manager"),
		containers:  make(map[string]testcontainers.Container),
		configDirs:  make(map[string]string),
		sidecars:    make(map[string]testcontainers.Container),
	}
	if m.imageRepo == "" {
		m.imageRepo = "trinodb/trino"
	}

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		m.log.WithError(err).Warn("Container engine unavailable, cluster management disabled")
		return m
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := provider.Client().Ping(ctx); err != nil {
		m.log.WithError(err).Warn("Container engine not responding, cluster management disabled")
		provider.Close()
		return m
	}

	m.provider = provider
	m.available = true
	m.log.Info("Container engine connected")
	return m
}

// Available reports whether the container engine was reachable at startup.
func (m *Manager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *Manager) report(clusterName string, phase Phase, detail string) {
	if m.progress != nil {
		m.progress(clusterName, phase, detail)
	}
}

// Status inspects the named container and maps its state to a
// ContainerStatus.
func (m *Manager) Status(ctx context.Context, containerName string) types.ContainerStatus {
	m.mu.Lock()
	provider := m.provider
	available := m.available
	m.mu.Unlock()

	if !available {
		return types.StatusNotAvailable
	}

	info, err := provider.Client().ContainerInspect(ctx, containerName)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return types.StatusNotFound
		}
		m.log.WithField("container", containerName).WithError(err).Error("Failed to inspect container")
		return types.StatusError
	}

	switch info.State.Status {
	case "running":
		return types.StatusRunning
	case "exited", "dead":
		return types.StatusExited
	default:
		return types.StatusError
	}
}

// PullImage fetches the engine image for one version ahead of time.
func (m *Manager) PullImage(ctx context.Context, version string) error {
	m.mu.Lock()
	provider := m.provider
	available := m.available
	m.mu.Unlock()

	if !available {
		return ErrDockerUnavailable
	}

	ref := fmt.Sprintf("%s:%s", m.imageRepo, version)
	m.log.WithField("image", ref).Info("Pulling image")

	reader, err := provider.Client().ImagePull(ctx, ref, dockertypes.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// StartCluster renders the configuration tree and launches one cluster
// container, replacing any stale container with the same name.
func (m *Manager) StartCluster(ctx context.Context, clusterName string, cc config.ClusterConfig, catalogs map[string]config.CatalogConfig) error {
	if !m.Available() {
		return ErrDockerUnavailable
	}

	if err := m.startCluster(ctx, clusterName, cc, catalogs); err != nil {
		metrics.RecordClusterStart(clusterName, "error")
		m.report(clusterName, PhaseFailed, err.Error())
		return err
	}

	metrics.RecordClusterStart(clusterName, "success")
	m.report(clusterName, PhaseReady, cc.ContainerName)
	return nil
}

func (m *Manager) startCluster(ctx context.Context, clusterName string, cc config.ClusterConfig, catalogs map[string]config.CatalogConfig) error {
	log := m.log.WithField("cluster", clusterName).WithField("container", cc.ContainerName)

	m.report(clusterName, PhaseRendering, "")
	configDir, err := RenderConfigDir(cc.ContainerName, catalogs)
	if err != nil {
		return fmt.Errorf("failed to render cluster config: %w", err)
	}

	if err := m.removeStale(ctx, cc.ContainerName); err != nil {
		os.RemoveAll(configDir)
		return err
	}

	image := fmt.Sprintf("%s:%s", m.imageRepo, cc.Version)
	m.report(clusterName, PhasePulling, image)

	req := testcontainers.ContainerRequest{
		Image:        image,
		Name:         cc.ContainerName,
		ExposedPorts: []string{"8080/tcp"},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.PortBindings = nat.PortMap{
				"8080/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(cc.Port)}},
			}
			hc.Binds = append(hc.Binds, configDir+":/etc/trino")
		},
		WaitingFor: wait.ForLog(trinoReadyLog).WithStartupTimeout(m.startupWait),
	}
	if m.networkName != "" {
		if err := m.ensureNetwork(ctx); err != nil {
			log.WithError(err).Warn("Failed to prepare network, starting without it")
		} else {
			req.Networks = []string{m.networkName}
		}
	}

	m.report(clusterName, PhaseStarting, cc.ContainerName)
	log.WithField("version", cc.Version).WithField("port", cc.Port).Info("Starting cluster container")

	m.report(clusterName, PhaseWaiting, "")
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		os.RemoveAll(configDir)
		return fmt.Errorf("failed to start cluster container: %w", err)
	}

	m.mu.Lock()
	if oldDir, ok := m.configDirs[clusterName]; ok {
		os.RemoveAll(oldDir)
	}
	m.containers[clusterName] = ctr
	m.configDirs[clusterName] = configDir
	m.mu.Unlock()

	log.Info("Cluster container ready")
	return nil
}

// removeStale force-removes a leftover container with the target name.
func (m *Manager) removeStale(ctx context.Context, containerName string) error {
	err := m.provider.Client().ContainerRemove(ctx, containerName, container.RemoveOptions{Force: true})
	if err != nil && !dockerclient.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove stale container %s: %w", containerName, err)
	}
	if err == nil {
		m.log.WithField("container", containerName).Info("Removed stale container")
	}
	return nil
}

func (m *Manager) ensureNetwork(ctx context.Context) error {
	cli := m.provider.Client()
	if _, err := cli.NetworkInspect(ctx, m.networkName, dockertypes.NetworkInspectOptions{}); err == nil {
		return nil
	}
	_, err := cli.NetworkCreate(ctx, m.networkName, dockertypes.NetworkCreate{Driver: "bridge"})
	return err
}

// StopCluster stops and removes one cluster container. A container that was
// not started by this process is still removed by name.
func (m *Manager) StopCluster(ctx context.Context, clusterName string, containerName string) error {
	if !m.Available() {
		return ErrDockerUnavailable
	}

	m.mu.Lock()
	ctr := m.containers[clusterName]
	configDir := m.configDirs[clusterName]
	delete(m.containers, clusterName)
	delete(m.configDirs, clusterName)
	m.mu.Unlock()

	if configDir != "" {
		defer os.RemoveAll(configDir)
	}

	if ctr != nil {
		if err := ctr.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to stop cluster container: %w", err)
		}
	} else {
		err := m.provider.Client().ContainerRemove(ctx, containerName, container.RemoveOptions{Force: true})
		if err != nil && !dockerclient.IsErrNotFound(err) {
			return fmt.Errorf("failed to remove container %s: %w", containerName, err)
		}
	}

	m.log.WithField("cluster", clusterName).Info("Cluster container stopped")
	m.report(clusterName, PhaseStopped, containerName)
	return nil
}

// StartAll starts both clusters sequentially, stopping at the first failure.
func (m *Manager) StartAll(ctx context.Context, cfg *config.Config) error {
	for _, name := range types.ClusterNames {
		cc, err := cfg.Cluster(name)
		if err != nil {
			return err
		}
		if err := m.StartCluster(ctx, name, cc, cfg.Catalogs); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops both clusters, collecting errors rather than aborting early.
func (m *Manager) StopAll(ctx context.Context, cfg *config.Config) error {
	var firstErr error
	for _, name := range types.ClusterNames {
		cc, err := cfg.Cluster(name)
		if err != nil {
			return err
		}
		if err := m.StopCluster(ctx, name, cc.ContainerName); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", name, err)
		}
	}
	return firstErr
}

// Close stops sidecars and releases the engine connection. Cluster
// containers are left running so a dashboard restart does not interrupt
// them.
func (m *Manager) Close(ctx context.Context) {
	m.StopSidecars(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dir := range m.configDirs {
		os.RemoveAll(dir)
	}
	m.configDirs = make(map[string]string)
	if m.provider != nil {
		m.provider.Close()
	}
}
