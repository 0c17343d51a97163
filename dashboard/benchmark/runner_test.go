package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trino-compare/dashboard/types"
)

// fakeStore is an in-memory BenchmarkStore capturing inserts.
type fakeStore struct {
	queries  []*types.BenchmarkQuery
	results  []*types.BenchmarkResult
	upserted []*types.BenchmarkQuery
	listErr  error
}

func (f *fakeStore) UpsertBenchmarkQuery(_ context.Context, q *types.BenchmarkQuery) error {
	f.upserted = append(f.upserted, q)
	return nil
}

func (f *fakeStore) ListBenchmarkQueries(_ context.Context, enabledOnly bool) ([]*types.BenchmarkQuery, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !enabledOnly {
		return f.queries, nil
	}
	var enabled []*types.BenchmarkQuery
	for _, q := range f.queries {
		if q.Enabled {
			enabled = append(enabled, q)
		}
	}
	return enabled, nil
}

func (f *fakeStore) InsertBenchmarkResult(_ context.Context, r *types.BenchmarkResult) error {
	f.results = append(f.results, r)
	return nil
}

func (f *fakeStore) ListBenchmarkResults(context.Context, string) ([]*types.BenchmarkResult, error) {
	return f.results, nil
}

func (f *fakeStore) SummarizeBenchmarkRun(context.Context, string) ([]*types.BenchmarkRunSummary, error) {
	return nil, nil
}

// scriptedExecutor returns canned results or errors per query text.
type scriptedExecutor struct {
	durations map[string]float64
	failOn    map[string]error
	executed  []string
}

func (e *scriptedExecutor) Execute(_ context.Context, query string) (*types.QueryResult, error) {
	e.executed = append(e.executed, query)
	if err, ok := e.failOn[query]; ok {
		return nil, err
	}
	return &types.QueryResult{
		Columns:    []string{"_col0"},
		Rows:       [][]interface{}{{1}},
		RowCount:   1,
		DurationMs: e.durations[query],
	}, nil
}

func TestRunRecordsResultPerQueryAndCluster(t *testing.T) {
	store := &fakeStore{queries: []*types.BenchmarkQuery{
		{ID: 1, Name: "q1", QueryText: "SELECT 1", Enabled: true},
		{ID: 2, Name: "q2", QueryText: "SELECT 2", Enabled: true},
		{ID: 3, Name: "skipped", QueryText: "SELECT 3", Enabled: false},
	}}
	targets := map[string]*Target{
		types.Cluster1: {Executor: &scriptedExecutor{durations: map[string]float64{"SELECT 1": 10, "SELECT 2": 20}}, Version: "405"},
		types.Cluster2: {Executor: &scriptedExecutor{durations: map[string]float64{"SELECT 1": 5, "SELECT 2": 15}}, Version: "406"},
	}

	runner := NewRunner(store, nil)
	runID, err := runner.Run(context.Background(), targets)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	// Two enabled queries times two clusters; the disabled one is skipped.
	require.Len(t, store.results, 4)

	byCluster := make(map[string]int)
	for _, row := range store.results {
		assert.Equal(t, runID, row.RunID)
		assert.Equal(t, "success", row.Status)
		assert.Equal(t, 1, row.RowCount)
		byCluster[row.Cluster]++
	}
	assert.Equal(t, 2, byCluster[types.Cluster1])
	assert.Equal(t, 2, byCluster[types.Cluster2])
}

func TestRunRecordsClusterError(t *testing.T) {
	store := &fakeStore{queries: []*types.BenchmarkQuery{
		{ID: 1, Name: "q1", QueryText: "SELECT 1", Enabled: true},
	}}
	targets := map[string]*Target{
		types.Cluster1: {Executor: &scriptedExecutor{durations: map[string]float64{"SELECT 1": 10}}, Version: "405"},
		types.Cluster2: {
			Executor: &scriptedExecutor{failOn: map[string]error{"SELECT 1": fmt.Errorf("connection refused")}},
			Version:  "406",
		},
	}

	runner := NewRunner(store, nil)
	_, err := runner.Run(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, store.results, 2)

	statuses := make(map[string]string)
	for _, row := range store.results {
		statuses[row.Cluster] = row.Status
	}
	assert.Equal(t, "success", statuses[types.Cluster1])
	assert.Equal(t, "error", statuses[types.Cluster2])
}

func TestRunRequiresTargetsAndQueries(t *testing.T) {
	runner := NewRunner(&fakeStore{}, nil)

	_, err := runner.Run(context.Background(), nil)
	assert.ErrorContains(t, err, "no clusters")

	targets := map[string]*Target{types.Cluster1: {Executor: &scriptedExecutor{}, Version: "405"}}
	_, err = runner.Run(context.Background(), targets)
	assert.ErrorContains(t, err, "empty")

	runner = NewRunner(&fakeStore{listErr: fmt.Errorf("db down")}, nil)
	_, err = runner.Run(context.Background(), targets)
	assert.ErrorContains(t, err, "db down")
}

func TestEnsureQuerySetFallsBackToDefaults(t *testing.T) {
	store := &fakeStore{}
	runner := NewRunner(store, nil)

	require.NoError(t, runner.EnsureQuerySet(context.Background(), "/nonexistent/queries.json"))
	assert.Len(t, store.upserted, len(DefaultQuerySet()))
}
