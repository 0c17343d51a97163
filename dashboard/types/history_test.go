package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromComparisonBothSucceeded(t *testing.T) {
	executedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	qc := &QueryComparison{
		ID:         "abc-123",
		Query:      "SELECT 1",
		ExecutedAt: executedAt,
		Outcomes: map[string]*ClusterOutcome{
			Cluster1: {
				Cluster: Cluster1,
				Version: "405",
				Result:  &QueryResult{Columns: []string{"_col0"}, Rows: [][]interface{}{{1}}, RowCount: 1, DurationMs: 12.5},
			},
			Cluster2: {
				Cluster: Cluster2,
				Version: "406",
				Result:  &QueryResult{Columns: []string{"_col0"}, Rows: [][]interface{}{{1}}, RowCount: 1, DurationMs: 8.25},
			},
		},
	}

	record := &QueryRecord{}
	record.FromComparison(qc)

	assert.Equal(t, "abc-123", record.ID)
	assert.Equal(t, "SELECT 1", record.QueryText)
	assert.Equal(t, executedAt, record.ExecutedAt)

	assert.Equal(t, RecordStatusSuccess, record.Cluster1Status)
	assert.Equal(t, RecordStatusSuccess, record.Cluster2Status)
	require.NotNil(t, record.Cluster1DurationMs)
	require.NotNil(t, record.Cluster2DurationMs)
	assert.Equal(t, 12.5, *record.Cluster1DurationMs)
	assert.Equal(t, 8.25, *record.Cluster2DurationMs)

	var result QueryResult
	require.NoError(t, json.Unmarshal(record.Cluster1Result, &result))
	assert.Equal(t, 1, result.RowCount)
	assert.Empty(t, record.Cluster1Error)
}

func TestFromComparisonOneFailed(t *testing.T) {
	qc := &QueryComparison{
		ID:    "def-456",
		Query: "SELECT * FROM missing",
		Outcomes: map[string]*ClusterOutcome{
			Cluster1: {
				Cluster: Cluster1,
				Result:  &QueryResult{Columns: []string{"a"}, DurationMs: 3},
			},
			Cluster2: {
				Cluster: Cluster2,
				Err:     "Table 'missing' does not exist",
			},
		},
	}

	record := &QueryRecord{}
	record.FromComparison(qc)

	assert.Equal(t, RecordStatusSuccess, record.Cluster1Status)
	assert.Equal(t, RecordStatusError, record.Cluster2Status)
	assert.Nil(t, record.Cluster2DurationMs)
	assert.Nil(t, record.Cluster2Result)
	assert.Equal(t, "Table 'missing' does not exist", record.Cluster2Error)
}

func TestFromComparisonMissingOutcome(t *testing.T) {
	qc := &QueryComparison{
		ID:    "ghi-789",
		Query: "SELECT 1",
		Outcomes: map[string]*ClusterOutcome{
			Cluster1: {Cluster: Cluster1, Err: "cluster is not running"},
		},
	}

	record := &QueryRecord{}
	record.FromComparison(qc)

	assert.Equal(t, RecordStatusError, record.Cluster1Status)
	assert.Equal(t, RecordStatusNoResults, record.Cluster2Status)
}

func TestFromComparisonOutcomeWithoutResult(t *testing.T) {
	qc := &QueryComparison{
		Outcomes: map[string]*ClusterOutcome{
			Cluster1: {Cluster: Cluster1},
			Cluster2: {Cluster: Cluster2},
		},
	}

	record := &QueryRecord{}
	record.FromComparison(qc)

	assert.Equal(t, RecordStatusNoResults, record.Cluster1Status)
	assert.Equal(t, RecordStatusNoResults, record.Cluster2Status)
}
