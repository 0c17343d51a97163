package storage

// Table DDL applied by RunMigrations. All timestamps are stored with time
// zone; JSON payloads use JSONB so history rows remain queryable in place.

// QueryHistoryTable stores one row per comparison query run.
const QueryHistoryTable = `
CREATE TABLE IF NOT EXISTS query_history (
	id UUID PRIMARY KEY,
	query_text TEXT NOT NULL,
	executed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	cluster1_duration_ms DOUBLE PRECISION,
	cluster2_duration_ms DOUBLE PRECISION,
	cluster1_status VARCHAR(20),
	cluster2_status VARCHAR(20),
	cluster1_result JSONB,
	cluster2_result JSONB,
	cluster1_error TEXT,
	cluster2_error TEXT
)`

// TrinoVersionsTable stores the known release identifiers.
const TrinoVersionsTable = `
CREATE TABLE IF NOT EXISTS trino_versions (
	version VARCHAR(20) PRIMARY KEY,
	release_date DATE,
	is_lts BOOLEAN NOT NULL DEFAULT FALSE,
	support_end_date DATE,
	release_notes_url TEXT
)`

// CatalogCompatibilityTable stores per-catalog version ranges.
const CatalogCompatibilityTable = `
CREATE TABLE IF NOT EXISTS catalog_compatibility (
	catalog_name VARCHAR(64) PRIMARY KEY,
	min_version VARCHAR(20),
	max_version VARCHAR(20),
	deprecated_in VARCHAR(20),
	removed_in VARCHAR(20),
	notes TEXT
)`

// BenchmarkQueriesTable stores the fixed benchmark query set.
const BenchmarkQueriesTable = `
CREATE TABLE IF NOT EXISTS benchmark_queries (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(128) NOT NULL UNIQUE,
	category VARCHAR(64),
	query_text TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT TRUE
)`

// BenchmarkResultsTable stores per-run, per-cluster benchmark metrics.
const BenchmarkResultsTable = `
CREATE TABLE IF NOT EXISTS benchmark_results (
	id UUID PRIMARY KEY,
	run_id UUID NOT NULL,
	query_id BIGINT NOT NULL REFERENCES benchmark_queries(id),
	cluster VARCHAR(20) NOT NULL,
	version VARCHAR(20) NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	row_count INTEGER NOT NULL DEFAULT 0,
	memory_mb DOUBLE PRECISION NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL,
	error TEXT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// VersionComparisonsTable caches release-note comparison payloads with an
// expiry; the (from, to) pair is unique so refreshes are upserts.
const VersionComparisonsTable = `
CREATE TABLE IF NOT EXISTS version_comparisons (
	id BIGSERIAL PRIMARY KEY,
	from_version VARCHAR(20) NOT NULL,
	to_version VARCHAR(20) NOT NULL,
	payload JSONB,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	CONSTRAINT unique_version_comparison UNIQUE (from_version, to_version)
)`

// CreateIndices returns SQL for the read-heavy listing paths.
func CreateIndices() string {
	return `
	CREATE INDEX IF NOT EXISTS idx_history_executed_at ON query_history(executed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_bench_results_run_id ON benchmark_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_bench_results_query_id ON benchmark_results(query_id);
	CREATE INDEX IF NOT EXISTS idx_comparisons_expires_at ON version_comparisons(expires_at);
	`
}
