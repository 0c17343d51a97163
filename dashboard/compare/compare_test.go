package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trino-compare/dashboard/types"
)

func result(columns []string, rows [][]interface{}, durationMs float64) *types.QueryResult {
	return &types.QueryResult{
		Columns:    columns,
		Rows:       rows,
		RowCount:   len(rows),
		DurationMs: durationMs,
	}
}

func TestResultsIdentical(t *testing.T) {
	r1 := result([]string{"a", "b"}, [][]interface{}{{1, "x"}, {2, "y"}}, 10)
	r2 := result([]string{"a", "b"}, [][]interface{}{{1, "x"}, {2, "y"}}, 20)

	c := Results(r1, r2)
	require.NotNil(t, c)

	assert.True(t, c.RowCountMatch)
	assert.True(t, c.ColumnsMatch)
	assert.True(t, c.RowsMatch)
	assert.Empty(t, c.DifferingRows)
}

func TestResultsTiming(t *testing.T) {
	tests := []struct {
		name          string
		d1, d2        float64
		expectedDelta float64
		expectedRatio float64
		faster        string
	}{
		{name: "cluster1 faster", d1: 10, d2: 20, expectedDelta: 10, expectedRatio: 2, faster: types.Cluster1},
		{name: "cluster2 faster", d1: 40, d2: 10, expectedDelta: -30, expectedRatio: 0.25, faster: types.Cluster2},
		{name: "tie", d1: 15, d2: 15, expectedDelta: 0, expectedRatio: 1, faster: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Results(
				result([]string{"a"}, nil, tt.d1),
				result([]string{"a"}, nil, tt.d2),
			)
			assert.InDelta(t, tt.expectedDelta, c.TimingDeltaMs, 0.001)
			assert.InDelta(t, tt.expectedRatio, c.TimingRatio, 0.001)
			assert.Equal(t, tt.faster, c.FasterCluster)
		})
	}
}

func TestResultsDifferingRows(t *testing.T) {
	r1 := result([]string{"a"}, [][]interface{}{{1}, {2}, {3}}, 1)
	r2 := result([]string{"a"}, [][]interface{}{{1}, {9}, {3}}, 1)

	c := Results(r1, r2)
	assert.False(t, c.RowsMatch)
	require.Len(t, c.DifferingRows, 1)
	assert.Equal(t, [2]int{1, 1}, c.DifferingRows[0])
}

func TestResultsExtraRows(t *testing.T) {
	r1 := result([]string{"a"}, [][]interface{}{{1}, {2}}, 1)
	r2 := result([]string{"a"}, [][]interface{}{{1}}, 1)

	c := Results(r1, r2)
	assert.False(t, c.RowCountMatch)
	assert.False(t, c.RowsMatch)
	require.Len(t, c.DifferingRows, 1)
	assert.Equal(t, [2]int{1, -1}, c.DifferingRows[0])
}

func TestResultsDifferingRowsCapped(t *testing.T) {
	rows1 := make([][]interface{}, MaxDifferingRows+10)
	rows2 := make([][]interface{}, MaxDifferingRows+10)
	for i := range rows1 {
		rows1[i] = []interface{}{i}
		rows2[i] = []interface{}{i + 1000}
	}

	c := Results(result([]string{"a"}, rows1, 1), result([]string{"a"}, rows2, 1))
	assert.Len(t, c.DifferingRows, MaxDifferingRows)
}

func TestResultsColumnMismatch(t *testing.T) {
	r1 := result([]string{"a", "b"}, nil, 1)
	r2 := result([]string{"a", "c"}, nil, 1)

	c := Results(r1, r2)
	assert.False(t, c.ColumnsMatch)
	assert.Equal(t, []string{"c"}, c.MissingColumns[0])
	assert.Equal(t, []string{"b"}, c.MissingColumns[1])
}

func TestResultsNumericTypesCompareByValue(t *testing.T) {
	// Values arrive as different Go types per driver version.
	r1 := result([]string{"n"}, [][]interface{}{{int64(5)}}, 1)
	r2 := result([]string{"n"}, [][]interface{}{{float64(5)}}, 1)

	c := Results(r1, r2)
	assert.True(t, c.RowsMatch)
}

func TestResultsNilValues(t *testing.T) {
	r1 := result([]string{"n"}, [][]interface{}{{nil}}, 1)
	r2 := result([]string{"n"}, [][]interface{}{{nil}}, 1)
	assert.True(t, Results(r1, r2).RowsMatch)

	r3 := result([]string{"n"}, [][]interface{}{{nil}}, 1)
	r4 := result([]string{"n"}, [][]interface{}{{1}}, 1)
	assert.False(t, Results(r3, r4).RowsMatch)
}

func TestOutcomesRequiresBothResults(t *testing.T) {
	ok := &types.ClusterOutcome{
		Cluster: types.Cluster1,
		Result:  result([]string{"a"}, nil, 1),
	}
	failed := &types.ClusterOutcome{
		Cluster: types.Cluster2,
		Err:     "connection refused",
	}

	assert.Nil(t, Outcomes(nil, ok))
	assert.Nil(t, Outcomes(ok, failed))
	assert.NotNil(t, Outcomes(ok, ok))
}
