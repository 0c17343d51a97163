// Package api serves the dashboard HTTP API, the WebSocket event stream and
// the static frontend assets.
package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/benchmark"
	"github.com/trino-compare/dashboard/config"
	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/releasenotes"
	"github.com/trino-compare/dashboard/storage"
	"github.com/trino-compare/dashboard/trino"
	"github.com/trino-compare/dashboard/types"
)

// Store is the persistence surface the handlers rely on, satisfied by
// *storage.Database.
type Store interface {
	storage.HistoryStore
	storage.VersionStore
	storage.BenchmarkStore
	storage.ComparisonCache
	Ping(ctx context.Context) error
}

// ClusterManager is the container lifecycle surface the handlers rely on,
// satisfied by *cluster.Manager.
type ClusterManager interface {
	Available() bool
	Status(ctx context.Context, containerName string) types.ContainerStatus
	PullImage(ctx context.Context, version string) error
	StartCluster(ctx context.Context, clusterName string, cc config.ClusterConfig, catalogs map[string]config.CatalogConfig) error
	StopCluster(ctx context.Context, clusterName string, containerName string) error
	StartSidecars(ctx context.Context, sc config.SidecarConfig) error
}

// Server provides the dashboard HTTP endpoints.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	Broadcast(eventType string, data interface{})
}

// server implements the API server.
type server struct {
	cfg         *config.ServerConfig
	configStore *config.Store
	store       Store
	manager     ClusterManager
	comparator  *releasenotes.Comparator
	benchRunner *benchmark.Runner
	log         logrus.FieldLogger
	httpServer  *http.Server

	upgrader    websocket.Upgrader
	wsMu        sync.RWMutex
	wsClients   map[*wsConn]bool
	wsClosed    bool
	wsBroadcast chan []byte

	clients *clientSet
}

// NewServer creates the API server.
func NewServer(
	cfg *config.ServerConfig,
	configStore *config.Store,
	store Store,
	manager ClusterManager,
	comparator *releasenotes.Comparator,
	benchRunner *benchmark.Runner,
	log logrus.FieldLogger,
) Server {
	return &server{
		cfg:         cfg,
		configStore: configStore,
		store:       store,
		manager:     manager,
		comparator:  comparator,
		benchRunner: benchRunner,
		log:         log.WithField("component", "api-server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local dashboard, any origin is fine
			},
		},
		wsClients:   make(map[*wsConn]bool),
		wsBroadcast: make(chan []byte, 64),
		clients:     newClientSet(),
	}
}

// Start initializes and starts the HTTP API server.
func (s *server) Start(ctx context.Context) error {
	s.log.Info("Starting API server")

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(s.cfg.QueryTimeout) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.handleWebSocketHub()

	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP API server. In-flight handlers drain
// before the broadcast channel closes, so handlers may Broadcast until the
// very end of shutdown.
func (s *server) Stop() error {
	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErr := s.httpServer.Shutdown(ctx)
	if shutdownErr != nil {
		s.log.WithError(shutdownErr).Error("Failed to shutdown API server gracefully")
	}

	s.wsMu.Lock()
	s.wsClosed = true
	close(s.wsBroadcast)
	for client := range s.wsClients {
		client.conn.Close()
	}
	s.wsClients = make(map[*wsConn]bool)
	s.wsMu.Unlock()

	s.clients.CloseAll()

	if shutdownErr != nil {
		return shutdownErr
	}
	s.log.Info("API server stopped")
	return nil
}

// setupRoutes configures all HTTP routes and middleware.
func (s *server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.enableCORS)
	router.Use(s.loggingMiddleware)
	router.Use(s.errorHandlingMiddleware)
	router.Use(s.metricsMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// Status and configuration
	api.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/config", s.handlePutConfig).Methods("PUT", "OPTIONS")
	api.HandleFunc("/config/reset", s.handleResetConfig).Methods("POST", "OPTIONS")

	// Cluster lifecycle
	api.HandleFunc("/clusters/start", s.handleStartClusters).Methods("POST", "OPTIONS")
	api.HandleFunc("/clusters/stop", s.handleStopClusters).Methods("POST", "OPTIONS")
	api.HandleFunc("/clusters/restart", s.handleRestartClusters).Methods("POST", "OPTIONS")

	// Query execution and history
	api.HandleFunc("/query", s.handleQuery).Methods("POST", "OPTIONS")
	api.HandleFunc("/history", s.handleListHistory).Methods("GET", "OPTIONS")
	api.HandleFunc("/history/{id}", s.handleGetHistory).Methods("GET", "OPTIONS")
	api.HandleFunc("/history/{id}", s.handleDeleteHistory).Methods("DELETE", "OPTIONS")

	// Version and compatibility metadata
	api.HandleFunc("/versions", s.handleListVersions).Methods("GET", "OPTIONS")
	api.HandleFunc("/versions", s.handleUpsertVersion).Methods("POST", "OPTIONS")
	api.HandleFunc("/versions/compatibility", s.handleListCompatibility).Methods("GET", "OPTIONS")
	api.HandleFunc("/versions/compatibility", s.handleUpsertCompatibility).Methods("POST", "OPTIONS")

	// Benchmarks
	api.HandleFunc("/benchmarks", s.handleListBenchmarks).Methods("GET", "OPTIONS")
	api.HandleFunc("/benchmarks/run", s.handleRunBenchmarks).Methods("POST", "OPTIONS")
	api.HandleFunc("/benchmarks/results", s.handleBenchmarkResults).Methods("GET", "OPTIONS")

	// Release notes comparison
	api.HandleFunc("/releases/compare", s.handleCompareReleases).Methods("POST", "OPTIONS")

	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	// WebSocket endpoint for real-time updates
	router.HandleFunc("/ws", s.handleWebSocket)

	// Prometheus scrape endpoint
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Static dashboard assets
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.StaticDir)))

	return router
}

// enableCORS adds CORS headers to responses.
func (s *server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapper.statusCode,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request processed")
	})
}

// errorHandlingMiddleware recovers panics into 500 responses.
func (s *server) errorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithField("error", err).Error("Panic in HTTP handler")
				s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request latency per route template.
func (s *server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(wrapper.statusCode), time.Since(start))
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status codes.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack forwards connection takeover to the wrapped writer so WebSocket
// upgrades work behind the logging and metrics middleware.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// clientSet tracks the per-cluster query clients created on cluster start.
type clientSet struct {
	mu      sync.Mutex
	clients map[string]*trino.Client
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[string]*trino.Client)}
}

func (cs *clientSet) Get(name string) *trino.Client {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.clients[name]
}

func (cs *clientSet) Set(name string, c *trino.Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if old := cs.clients[name]; old != nil {
		old.Close()
	}
	cs.clients[name] = c
}

func (cs *clientSet) Remove(name string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if old := cs.clients[name]; old != nil {
		old.Close()
	}
	delete(cs.clients, name)
}

func (cs *clientSet) CloseAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for name, c := range cs.clients {
		c.Close()
		delete(cs.clients, name)
	}
}
