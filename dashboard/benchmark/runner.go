package benchmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/storage"
	"github.com/trino-compare/dashboard/types"
)

// Executor runs one SQL statement. Satisfied by the Trino client.
type Executor interface {
	Execute(ctx context.Context, query string) (*types.QueryResult, error)
}

// Target pairs a cluster's executor with the engine version it runs.
type Target struct {
	Executor Executor
	Version  string
}

// Runner executes the stored benchmark set against both clusters.
type Runner struct {
	store   storage.BenchmarkStore
	sampler *metrics.Sampler
	log     logrus.FieldLogger
}

// NewRunner creates a benchmark runner. The sampler may be nil, in which
// case memory columns stay zero.
func NewRunner(store storage.BenchmarkStore, sampler *metrics.Sampler) *Runner {
	return &Runner{
		store:   store,
		sampler: sampler,
		log:     logrus.WithField("component", "benchmark_runner"),
	}
}

// Run executes every enabled benchmark query on both targets and persists
// one result row per query and cluster, all tagged with the returned run id.
// Queries run one at a time; within a query the two clusters run in
// parallel so both see the same host load.
func (r *Runner) Run(ctx context.Context, targets map[string]*Target) (string, error) {
	if len(targets) == 0 {
		return "", fmt.Errorf("no clusters available to benchmark")
	}

	queries, err := r.store.ListBenchmarkQueries(ctx, true)
	if err != nil {
		return "", fmt.Errorf("failed to load benchmark queries: %w", err)
	}
	if len(queries) == 0 {
		return "", fmt.Errorf("benchmark query set is empty")
	}

	runID := uuid.New().String()
	log := r.log.WithField("run_id", runID)
	log.WithField("queries", len(queries)).Info("Starting benchmark run")

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return runID, err
		}
		if err := r.runQuery(ctx, runID, query, targets); err != nil {
			return runID, err
		}
	}

	log.Info("Benchmark run complete")
	return runID, nil
}

func (r *Runner) runQuery(ctx context.Context, runID string, query *types.BenchmarkQuery, targets map[string]*Target) error {
	if r.sampler != nil {
		r.sampler.Start()
	}

	type execution struct {
		cluster string
		version string
		result  *types.QueryResult
		err     error
	}

	results := make(chan execution, len(targets))
	var wg sync.WaitGroup
	for cluster, target := range targets {
		wg.Add(1)
		go func(cluster string, target *Target) {
			defer wg.Done()
			result, err := target.Executor.Execute(ctx, query.QueryText)
			results <- execution{cluster: cluster, version: target.Version, result: result, err: err}
		}(cluster, target)
	}
	wg.Wait()
	close(results)

	var peakMB float64
	if r.sampler != nil {
		r.sampler.Stop()
		peakMB = r.sampler.PeakRSSMB()
	}

	for exec := range results {
		row := &types.BenchmarkResult{
			ID:        uuid.New().String(),
			RunID:     runID,
			QueryID:   query.ID,
			QueryName: query.Name,
			Cluster:   exec.cluster,
			Version:   exec.version,
			MemoryMB:  peakMB,
			Status:    "success",
			CreatedAt: time.Now().UTC(),
		}
		if exec.err != nil {
			row.Status = "error"
			row.Error = exec.err.Error()
		} else {
			row.DurationMs = exec.result.DurationMs
			row.RowCount = exec.result.RowCount
		}

		metrics.RecordQuery(exec.cluster, row.Status)
		if err := r.store.InsertBenchmarkResult(ctx, row); err != nil {
			return fmt.Errorf("failed to record benchmark result: %w", err)
		}
	}
	return nil
}

// EnsureQuerySet seeds the stored query set from a file, or from the
// built-in defaults when the file is absent. Existing rows are updated in
// place so edits to the file take effect on restart.
func (r *Runner) EnsureQuerySet(ctx context.Context, path string) error {
	queries, err := LoadQuerySet(path)
	if err != nil {
		r.log.WithError(err).WithField("path", path).Warn("Query set file unavailable, using built-in set")
		queries = DefaultQuerySet()
	}

	for _, q := range queries {
		if err := r.store.UpsertBenchmarkQuery(ctx, q); err != nil {
			return fmt.Errorf("failed to seed benchmark query %q: %w", q.Name, err)
		}
	}
	return nil
}
