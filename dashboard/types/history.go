package types

import (
	"encoding/json"
	"time"
)

// QueryRecord is one persisted row of query history. Per-cluster fields are
// nullable: a cluster that was not running when the query ran leaves its
// columns empty.
type QueryRecord struct {
	ID         string    `json:"id"`
	QueryText  string    `json:"query_text"`
	ExecutedAt time.Time `json:"executed_at"`

	Cluster1DurationMs *float64        `json:"cluster1_duration_ms,omitempty"`
	Cluster2DurationMs *float64        `json:"cluster2_duration_ms,omitempty"`
	Cluster1Status     string          `json:"cluster1_status,omitempty"`
	Cluster2Status     string          `json:"cluster2_status,omitempty"`
	Cluster1Result     json.RawMessage `json:"cluster1_result,omitempty"`
	Cluster2Result     json.RawMessage `json:"cluster2_result,omitempty"`
	Cluster1Error      string          `json:"cluster1_error,omitempty"`
	Cluster2Error      string          `json:"cluster2_error,omitempty"`
}

// Statuses recorded per cluster on a QueryRecord.
const (
	RecordStatusSuccess   = "success"
	RecordStatusError     = "error"
	RecordStatusNoResults = "no_results"
)

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Since  time.Time
	Limit  int
	Offset int
}

// FromComparison fills a QueryRecord from a completed query comparison,
// mirroring the per-cluster status rules: success when a result exists, error
// when an error string exists, no_results otherwise.
func (r *QueryRecord) FromComparison(qc *QueryComparison) {
	r.ID = qc.ID
	r.QueryText = qc.Query
	r.ExecutedAt = qc.ExecutedAt

	if o, ok := qc.Outcomes[Cluster1]; ok {
		r.Cluster1Status, r.Cluster1DurationMs, r.Cluster1Result, r.Cluster1Error = outcomeFields(o)
	} else {
		r.Cluster1Status = RecordStatusNoResults
	}
	if o, ok := qc.Outcomes[Cluster2]; ok {
		r.Cluster2Status, r.Cluster2DurationMs, r.Cluster2Result, r.Cluster2Error = outcomeFields(o)
	} else {
		r.Cluster2Status = RecordStatusNoResults
	}
}

func outcomeFields(o *ClusterOutcome) (status string, durationMs *float64, result json.RawMessage, errText string) {
	if o.Err != "" {
		return RecordStatusError, nil, nil, o.Err
	}
	if o.Result == nil {
		return RecordStatusNoResults, nil, nil, ""
	}
	d := o.Result.DurationMs
	raw, err := json.Marshal(o.Result)
	if err != nil {
		return RecordStatusError, &d, nil, err.Error()
	}
	return RecordStatusSuccess, &d, raw, ""
}
