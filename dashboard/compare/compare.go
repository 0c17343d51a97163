// Package compare computes how two clusters' results for the same query
// relate. Everything here is a pure function over types values.
package compare

import (
	"reflect"

	"github.com/trino-compare/dashboard/types"
)

// MaxDifferingRows bounds how many row mismatches are reported per query.
const MaxDifferingRows = 20

// Outcomes builds the comparison summary for two cluster outcomes. Returns
// nil unless both clusters produced a result.
func Outcomes(o1, o2 *types.ClusterOutcome) *types.Comparison {
	if o1 == nil || o2 == nil || o1.Result == nil || o2.Result == nil {
		return nil
	}
	return Results(o1.Result, o2.Result)
}

// Results compares two materialized query results.
func Results(r1, r2 *types.QueryResult) *types.Comparison {
	c := &types.Comparison{
		RowCountMatch: r1.RowCount == r2.RowCount,
		ColumnsMatch:  stringSlicesEqual(r1.Columns, r2.Columns),
		TimingDeltaMs: r2.DurationMs - r1.DurationMs,
	}

	if r1.DurationMs > 0 && r2.DurationMs > 0 {
		c.TimingRatio = r2.DurationMs / r1.DurationMs
		if r1.DurationMs < r2.DurationMs {
			c.FasterCluster = types.Cluster1
		} else if r2.DurationMs < r1.DurationMs {
			c.FasterCluster = types.Cluster2
		}
	}

	if !c.ColumnsMatch {
		c.MissingColumns = missingColumns(r1.Columns, r2.Columns)
	}

	c.DifferingRows = differingRows(r1.Rows, r2.Rows)
	c.RowsMatch = c.RowCountMatch && c.ColumnsMatch && len(c.DifferingRows) == 0
	return c
}

// differingRows returns index pairs of rows that differ at the same position,
// capped at MaxDifferingRows. Rows beyond the shorter result count as
// differing against index -1.
func differingRows(rows1, rows2 [][]interface{}) [][2]int {
	var diffs [][2]int

	shared := len(rows1)
	if len(rows2) < shared {
		shared = len(rows2)
	}

	for i := 0; i < shared && len(diffs) < MaxDifferingRows; i++ {
		if !rowsEqual(rows1[i], rows2[i]) {
			diffs = append(diffs, [2]int{i, i})
		}
	}
	for i := shared; i < len(rows1) && len(diffs) < MaxDifferingRows; i++ {
		diffs = append(diffs, [2]int{i, -1})
	}
	for i := shared; i < len(rows2) && len(diffs) < MaxDifferingRows; i++ {
		diffs = append(diffs, [2]int{-1, i})
	}
	return diffs
}

// rowsEqual compares two rows value by value. Driver values round-trip
// through JSON on the way to the browser, so numeric types are compared by
// value rather than by Go type.
func rowsEqual(row1, row2 []interface{}) bool {
	if len(row1) != len(row2) {
		return false
	}
	for i := range row1 {
		if !valuesEqual(row1[i], row2[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == nil && v2 == nil
	}
	if f1, ok1 := asFloat(v1); ok1 {
		if f2, ok2 := asFloat(v2); ok2 {
			return f1 == f2
		}
		return false
	}
	return reflect.DeepEqual(v1, v2)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// missingColumns reports which columns each side lacks relative to the other.
func missingColumns(cols1, cols2 []string) [2][]string {
	set1 := toSet(cols1)
	set2 := toSet(cols2)

	var missing [2][]string
	for _, col := range cols2 {
		if !set1[col] {
			missing[0] = append(missing[0], col)
		}
	}
	for _, col := range cols1 {
		if !set2[col] {
			missing[1] = append(missing[1], col)
		}
	}
	return missing
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
