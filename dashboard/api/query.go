package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trino-compare/dashboard/compare"
	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/trino"
	"github.com/trino-compare/dashboard/types"
)

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery runs one SQL statement on both clusters in parallel, persists
// the outcome and returns the comparison payload.
func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.Query = r.FormValue("query")
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Query is required")
		return
	}

	cfg, err := s.configStore.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load configuration")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.QueryTimeout))
	defer cancel()

	qc := &types.QueryComparison{
		ID:         uuid.New().String(),
		Query:      req.Query,
		ExecutedAt: time.Now().UTC(),
		Outcomes:   make(map[string]*types.ClusterOutcome, len(types.ClusterNames)),
	}

	// One goroutine per cluster; the buffered channel is drained for exactly
	// as many outcomes as were launched.
	outcomes := make(chan *types.ClusterOutcome, len(types.ClusterNames))
	launched := 0
	for _, name := range types.ClusterNames {
		cc, _ := cfg.Cluster(name)
		client := s.clients.Get(name)

		if client == nil {
			qc.Outcomes[name] = &types.ClusterOutcome{
				Cluster: name,
				Version: cc.Version,
				Err:     "cluster is not running",
			}
			continue
		}

		launched++
		go func(name, version string, client *trino.Client) {
			outcomes <- s.runQueryOn(ctx, name, version, client, req.Query)
		}(name, cc.Version, client)
	}

	for i := 0; i < launched; i++ {
		outcome := <-outcomes
		qc.Outcomes[outcome.Cluster] = outcome
	}

	qc.Comparison = compare.Outcomes(qc.Outcomes[types.Cluster1], qc.Outcomes[types.Cluster2])

	record := &types.QueryRecord{}
	record.FromComparison(qc)
	if err := s.store.InsertQueryRecord(ctx, record); err != nil {
		// History persistence failing should not hide the comparison result.
		s.log.WithError(err).Error("Failed to persist query record")
	}

	s.Broadcast("query_completed", map[string]interface{}{"id": qc.ID})
	s.writeJSONResponse(w, http.StatusOK, qc)
}

func (s *server) runQueryOn(ctx context.Context, name, version string, client *trino.Client, query string) *types.ClusterOutcome {
	outcome := &types.ClusterOutcome{Cluster: name, Version: version}

	result, err := client.Execute(ctx, query)
	if err != nil {
		s.log.WithField("cluster", name).WithError(err).Warn("Query failed")
		outcome.Err = err.Error()
		metrics.RecordQuery(name, "error")
		return outcome
	}

	outcome.Result = result
	metrics.RecordQuery(name, "success")
	return outcome
}
