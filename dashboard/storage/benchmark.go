package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trino-compare/dashboard/types"
)

// BenchmarkStore manages the fixed benchmark query set and recorded results.
type BenchmarkStore interface {
	UpsertBenchmarkQuery(ctx context.Context, q *types.BenchmarkQuery) error
	ListBenchmarkQueries(ctx context.Context, enabledOnly bool) ([]*types.BenchmarkQuery, error)
	InsertBenchmarkResult(ctx context.Context, r *types.BenchmarkResult) error
	ListBenchmarkResults(ctx context.Context, runID string) ([]*types.BenchmarkResult, error)
	SummarizeBenchmarkRun(ctx context.Context, runID string) ([]*types.BenchmarkRunSummary, error)
}

// UpsertBenchmarkQuery inserts or updates a benchmark query by name and
// fills in the assigned id.
func (d *Database) UpsertBenchmarkQuery(ctx context.Context, q *types.BenchmarkQuery) error {
	query := `
		INSERT INTO benchmark_queries (name, category, query_text, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			category = EXCLUDED.category,
			query_text = EXCLUDED.query_text,
			enabled = EXCLUDED.enabled
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		q.Name, nullString(q.Category), q.QueryText, q.Enabled,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert benchmark query: %w", err)
	}
	return nil
}

// ListBenchmarkQueries lists the benchmark query set.
func (d *Database) ListBenchmarkQueries(ctx context.Context, enabledOnly bool) ([]*types.BenchmarkQuery, error) {
	query := `SELECT id, name, category, query_text, enabled FROM benchmark_queries`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmark queries: %w", err)
	}
	defer rows.Close()

	var queries []*types.BenchmarkQuery
	for rows.Next() {
		q := &types.BenchmarkQuery{}
		var category sql.NullString
		if err := rows.Scan(&q.ID, &q.Name, &category, &q.QueryText, &q.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark query: %w", err)
		}
		q.Category = category.String
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// InsertBenchmarkResult records one benchmark execution.
func (d *Database) InsertBenchmarkResult(ctx context.Context, r *types.BenchmarkResult) error {
	query := `
		INSERT INTO benchmark_results (
			id, run_id, query_id, cluster, version,
			duration_ms, row_count, memory_mb, status, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := d.db.ExecContext(ctx, query,
		r.ID, r.RunID, r.QueryID, r.Cluster, r.Version,
		r.DurationMs, r.RowCount, r.MemoryMB, r.Status, nullString(r.Error), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert benchmark result: %w", err)
	}
	return nil
}

// ListBenchmarkResults lists all results of one run.
func (d *Database) ListBenchmarkResults(ctx context.Context, runID string) ([]*types.BenchmarkResult, error) {
	query := `
		SELECT r.id, r.run_id, r.query_id, q.name, r.cluster, r.version,
			r.duration_ms, r.row_count, r.memory_mb, r.status, r.error, r.created_at
		FROM benchmark_results r
		JOIN benchmark_queries q ON q.id = r.query_id
		WHERE r.run_id = $1
		ORDER BY q.name, r.cluster`

	rows, err := d.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmark results: %w", err)
	}
	defer rows.Close()

	var results []*types.BenchmarkResult
	for rows.Next() {
		r := &types.BenchmarkResult{}
		var errText sql.NullString
		err := rows.Scan(
			&r.ID, &r.RunID, &r.QueryID, &r.QueryName, &r.Cluster, &r.Version,
			&r.DurationMs, &r.RowCount, &r.MemoryMB, &r.Status, &errText, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benchmark result: %w", err)
		}
		r.Error = errText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// SummarizeBenchmarkRun aggregates one run's results per cluster.
func (d *Database) SummarizeBenchmarkRun(ctx context.Context, runID string) ([]*types.BenchmarkRunSummary, error) {
	query := `
		SELECT run_id, MIN(created_at), cluster, MAX(version),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'error'),
			COALESCE(SUM(duration_ms), 0),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(MAX(memory_mb), 0)
		FROM benchmark_results
		WHERE run_id = $1
		GROUP BY run_id, cluster
		ORDER BY cluster`

	rows, err := d.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize benchmark run: %w", err)
	}
	defer rows.Close()

	var summaries []*types.BenchmarkRunSummary
	for rows.Next() {
		s := &types.BenchmarkRunSummary{}
		err := rows.Scan(
			&s.RunID, &s.StartedAt, &s.Cluster, &s.Version,
			&s.Queries, &s.Failures,
			&s.TotalDurationMs, &s.AvgDurationMs, &s.PeakMemoryMB,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benchmark summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
