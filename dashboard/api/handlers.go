package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/trino-compare/dashboard/benchmark"
	"github.com/trino-compare/dashboard/cluster"
	"github.com/trino-compare/dashboard/config"
	"github.com/trino-compare/dashboard/trino"
	"github.com/trino-compare/dashboard/types"
)

// handleStatus reports container engine availability and both clusters'
// container states.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	clusters := make([]types.ClusterStatus, 0, len(types.ClusterNames))
	for _, name := range types.ClusterNames {
		cc, _ := cfg.Cluster(name)
		clusters = append(clusters, types.ClusterStatus{
			Name:          name,
			Version:       cc.Version,
			Port:          cc.Port,
			ContainerName: cc.ContainerName,
			Status:        s.manager.Status(ctx, cc.ContainerName),
		})
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"docker_available": s.manager.Available(),
		"clusters":         clusters,
	})
}

// Configuration handlers

func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, cfg)
}

func (s *server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.configStore.Save(&cfg); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Broadcast("config_updated", cfg)
	s.writeJSONResponse(w, http.StatusOK, cfg)
}

func (s *server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configStore.Reset()
	if err != nil {
		s.log.WithError(err).Error("Failed to reset configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to reset configuration")
		return
	}

	s.Broadcast("config_updated", cfg)
	s.writeJSONResponse(w, http.StatusOK, cfg)
}

// Cluster lifecycle handlers

// handleStartClusters starts both cluster containers and initializes their
// query clients. Progress phases stream over the WebSocket.
func (s *server) handleStartClusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	if err := s.startClusters(ctx, cfg); err != nil {
		if errors.Is(err, cluster.ErrDockerUnavailable) {
			s.writeErrorResponse(w, http.StatusServiceUnavailable, "Container engine is not available")
			return
		}
		s.log.WithError(err).Error("Failed to start clusters")
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Clusters started",
	})
}

func (s *server) startClusters(ctx context.Context, cfg *config.Config) error {
	if sidecars := cfg.Docker.Sidecars; sidecars.Postgres || sidecars.Minio || sidecars.RestCatalog {
		if err := s.manager.StartSidecars(ctx, sidecars); err != nil {
			return err
		}
	}

	for _, name := range types.ClusterNames {
		cc, err := cfg.Cluster(name)
		if err != nil {
			return err
		}
		if err := s.manager.StartCluster(ctx, name, cc, cfg.Catalogs); err != nil {
			return err
		}
		if err := s.initClient(ctx, name, cc, cfg.Docker); err != nil {
			return err
		}
	}
	return nil
}

// initClient creates the query client for one started cluster, consulting
// the configured port remap table. The probe ping lets the client fall back
// to the unmapped port when the remap turns out to be wrong; a coordinator
// that is still warming up keeps the primary port.
func (s *server) initClient(ctx context.Context, name string, cc config.ClusterConfig, docker config.DockerConfig) error {
	port := cc.Port
	fallback := 0
	if override, ok := docker.PortOverrides[cc.Port]; ok {
		port = override
		fallback = cc.Port
	}

	client, err := trino.NewClient(trino.Options{
		Host:         docker.ConnectHost,
		Port:         port,
		FallbackPort: fallback,
	})
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		s.log.WithField("cluster", name).WithError(err).Warn("Coordinator not answering queries yet")
	}

	s.clients.Set(name, client)
	return nil
}

func (s *server) handleStopClusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	var firstErr error
	for _, name := range types.ClusterNames {
		cc, _ := cfg.Cluster(name)
		s.clients.Remove(name)
		if err := s.manager.StopCluster(ctx, name, cc.ContainerName); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		if errors.Is(firstErr, cluster.ErrDockerUnavailable) {
			s.writeErrorResponse(w, http.StatusServiceUnavailable, "Container engine is not available")
			return
		}
		s.log.WithError(firstErr).Error("Failed to stop clusters")
		s.writeErrorResponse(w, http.StatusInternalServerError, firstErr.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Clusters stopped",
	})
}

func (s *server) handleRestartClusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	for _, name := range types.ClusterNames {
		cc, _ := cfg.Cluster(name)
		s.clients.Remove(name)
		// Stale containers are replaced on start, so stop errors are not fatal.
		if err := s.manager.StopCluster(ctx, name, cc.ContainerName); err != nil && !errors.Is(err, cluster.ErrDockerUnavailable) {
			s.log.WithField("cluster", name).WithError(err).Warn("Failed to stop cluster before restart")
		}
	}

	if err := s.startClusters(ctx, cfg); err != nil {
		if errors.Is(err, cluster.ErrDockerUnavailable) {
			s.writeErrorResponse(w, http.StatusServiceUnavailable, "Container engine is not available")
			return
		}
		s.log.WithError(err).Error("Failed to restart clusters")
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Clusters restarted",
	})
}

// History handlers

func (s *server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := types.HistoryFilter{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		if since, err := time.Parse(time.RFC3339, sinceStr); err == nil {
			filter.Since = since
		}
	}

	records, err := s.store.ListQueryRecords(ctx, filter)
	if err != nil {
		s.log.WithError(err).Error("Failed to list query history")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"limit":   filter.Limit,
	})
}

func (s *server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	record, err := s.store.GetQueryRecord(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeErrorResponse(w, http.StatusNotFound, "Query record not found")
		} else {
			s.log.WithError(err).Error("Failed to get query record")
			s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve query record")
		}
		return
	}

	s.writeJSONResponse(w, http.StatusOK, record)
}

func (s *server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := s.store.DeleteQueryRecord(ctx, id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeErrorResponse(w, http.StatusNotFound, "Query record not found")
		} else {
			s.log.WithError(err).Error("Failed to delete query record")
			s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete query record")
		}
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Query record deleted",
	})
}

// Version metadata handlers

func (s *server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.store.ListVersions(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list versions")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve versions")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"count":    len(versions),
	})
}

func (s *server) handleUpsertVersion(w http.ResponseWriter, r *http.Request) {
	var version types.TrinoVersion
	if err := json.NewDecoder(r.Body).Decode(&version); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if version.Version == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Version is required")
		return
	}

	if err := s.store.UpsertVersion(r.Context(), &version); err != nil {
		s.log.WithError(err).Error("Failed to upsert version")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to save version")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, version)
}

func (s *server) handleListCompatibility(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListCompatibility(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list catalog compatibility")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve compatibility data")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"compatibility": entries,
		"count":         len(entries),
	})
}

func (s *server) handleUpsertCompatibility(w http.ResponseWriter, r *http.Request) {
	var entry types.CatalogCompatibility
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if entry.CatalogName == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Catalog name is required")
		return
	}

	if err := s.store.UpsertCompatibility(r.Context(), &entry); err != nil {
		s.log.WithError(err).Error("Failed to upsert catalog compatibility")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to save compatibility entry")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, entry)
}

// Benchmark handlers

func (s *server) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	queries, err := s.store.ListBenchmarkQueries(r.Context(), false)
	if err != nil {
		s.log.WithError(err).Error("Failed to list benchmark queries")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve benchmark queries")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
	})
}

// handleRunBenchmarks runs the full enabled query set against both clusters
// and returns the run id with its per-cluster summaries.
func (s *server) handleRunBenchmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	targets, err := s.benchmarkTargets()
	if err != nil {
		s.writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}

	runID, err := s.benchRunner.Run(ctx, targets)
	if err != nil {
		s.log.WithError(err).Error("Benchmark run failed")
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries, err := s.store.SummarizeBenchmarkRun(ctx, runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to summarize benchmark run")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to summarize benchmark run")
		return
	}

	s.Broadcast("benchmark_completed", map[string]interface{}{"run_id": runID})
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"run_id":    runID,
		"summaries": summaries,
	})
}

// benchmarkTargets builds one execution target per cluster. Both clusters
// must have a live client, otherwise the run would be one-sided.
func (s *server) benchmarkTargets() (map[string]*benchmark.Target, error) {
	cfg, err := s.configStore.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	targets := make(map[string]*benchmark.Target, len(types.ClusterNames))
	for _, name := range types.ClusterNames {
		client := s.clients.Get(name)
		if client == nil {
			return nil, fmt.Errorf("cluster %s is not running, start both clusters first", name)
		}

		cc, err := cfg.Cluster(name)
		if err != nil {
			return nil, err
		}
		targets[name] = &benchmark.Target{Executor: client, Version: cc.Version}
	}

	return targets, nil
}

func (s *server) handleBenchmarkResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	results, err := s.store.ListBenchmarkResults(ctx, runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to list benchmark results")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve benchmark results")
		return
	}

	summaries, err := s.store.SummarizeBenchmarkRun(ctx, runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to summarize benchmark run")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to summarize benchmark run")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"run_id":    runID,
		"results":   results,
		"summaries": summaries,
	})
}

// Release notes handler

type compareReleasesRequest struct {
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

// handleCompareReleases aggregates release-note changes between two
// versions. Accepts a JSON body or form values.
func (s *server) handleCompareReleases(w http.ResponseWriter, r *http.Request) {
	var req compareReleasesRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.FromVersion = r.FormValue("from_version")
		req.ToVersion = r.FormValue("to_version")
	}

	if req.FromVersion == "" || req.ToVersion == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Both from_version and to_version are required")
		return
	}

	comparison, err := s.comparator.CompareVersions(r.Context(), req.FromVersion, req.ToVersion)
	if err != nil {
		s.log.WithError(err).Error("Failed to compare releases")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compare releases")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, comparison)
}

// Health handler

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"services": map[string]string{
			"database": "connected",
			"docker":   "available",
		},
	}

	healthy := true
	if err := s.store.Ping(r.Context()); err != nil {
		status["services"].(map[string]string)["database"] = "disconnected"
		healthy = false
	}
	if !s.manager.Available() {
		status["services"].(map[string]string)["docker"] = "unavailable"
	}

	if !healthy {
		status["status"] = "unhealthy"
		s.writeJSONResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, status)
}

// Utility methods

// writeJSONResponse writes a JSON response with the given status code.
func (s *server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response with the given status code and
// message.
func (s *server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	})
}
