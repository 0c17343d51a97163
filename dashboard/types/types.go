// Package types contains the shared data structures exchanged between the
// dashboard's configuration, cluster, storage and API layers.
package types

import (
	"encoding/json"
	"time"
)

// Cluster identifiers used throughout the dashboard. Exactly two clusters are
// managed at a time; all comparison payloads are keyed by these names.
const (
	Cluster1 = "cluster1"
	Cluster2 = "cluster2"
)

// ClusterNames lists both managed clusters in display order.
var ClusterNames = []string{Cluster1, Cluster2}

// ContainerStatus describes the lifecycle state of a cluster container.
type ContainerStatus string

const (
	StatusRunning      ContainerStatus = "running"
	StatusExited       ContainerStatus = "exited"
	StatusNotFound     ContainerStatus = "not_found"
	StatusNotAvailable ContainerStatus = "not_available"
	StatusError        ContainerStatus = "error"
)

// QueryResult is the normalized outcome of one SQL statement against one
// Trino cluster.
type QueryResult struct {
	Columns    []string        `json:"columns"`
	Rows       [][]interface{} `json:"rows"`
	RowCount   int             `json:"row_count"`
	DurationMs float64         `json:"duration_ms"`
}

// ClusterOutcome pairs a cluster name with the result (or failure) of running
// a query against it. Exactly one of Result/Err is set on completion.
type ClusterOutcome struct {
	Cluster string       `json:"cluster"`
	Version string       `json:"version"`
	Result  *QueryResult `json:"result,omitempty"`
	Err     string       `json:"error,omitempty"`
}

// Comparison summarizes how the two clusters' outcomes for the same query
// relate to each other.
type Comparison struct {
	RowCountMatch  bool       `json:"row_count_match"`
	ColumnsMatch   bool       `json:"columns_match"`
	RowsMatch      bool       `json:"rows_match"`
	TimingDeltaMs  float64    `json:"timing_delta_ms"`
	TimingRatio    float64    `json:"timing_ratio"`
	FasterCluster  string     `json:"faster_cluster,omitempty"`
	DifferingRows  [][2]int   `json:"differing_rows,omitempty"`
	MissingColumns [2][]string `json:"missing_columns,omitempty"`
}

// QueryComparison is the full payload returned by the query endpoint and
// persisted (as JSON) into query history.
type QueryComparison struct {
	ID         string                     `json:"id"`
	Query      string                     `json:"query"`
	ExecutedAt time.Time                  `json:"executed_at"`
	Outcomes   map[string]*ClusterOutcome `json:"outcomes"`
	Comparison *Comparison                `json:"comparison,omitempty"`
}

// ClusterStatus is returned by the status endpoint for one cluster.
type ClusterStatus struct {
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Port          int             `json:"port"`
	ContainerName string          `json:"container_name"`
	Status        ContainerStatus `json:"status"`
}

// Event is a WebSocket message pushed to connected dashboard clients.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}
