package types

import "time"

// BenchmarkQuery is one entry of the fixed benchmark query set.
type BenchmarkQuery struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	QueryText string `json:"query_text"`
	Enabled  bool   `json:"enabled"`
}

// BenchmarkResult records the metrics of one benchmark query executed once
// against one cluster.
type BenchmarkResult struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	QueryID    int64     `json:"query_id"`
	QueryName  string    `json:"query_name,omitempty"`
	Cluster    string    `json:"cluster"`
	Version    string    `json:"version"`
	DurationMs float64   `json:"duration_ms"`
	RowCount   int       `json:"row_count"`
	MemoryMB   float64   `json:"memory_mb"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// BenchmarkRunSummary aggregates a run's results per cluster.
type BenchmarkRunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Cluster       string    `json:"cluster"`
	Version       string    `json:"version"`
	Queries       int       `json:"queries"`
	Failures      int       `json:"failures"`
	TotalDurationMs float64 `json:"total_duration_ms"`
	AvgDurationMs float64   `json:"avg_duration_ms"`
	PeakMemoryMB  float64   `json:"peak_memory_mb"`
}

// SystemSample is one snapshot of process and host resource usage taken while
// a benchmark query executes.
type SystemSample struct {
	Timestamp     time.Time `json:"timestamp"`
	ProcessRSSMB  float64   `json:"process_rss_mb"`
	MemoryPercent float64   `json:"memory_percent"`
	CPUPercent    float64   `json:"cpu_percent"`
}
