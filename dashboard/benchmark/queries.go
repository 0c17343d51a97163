// Package benchmark runs a fixed SQL query set against both clusters and
// records per-query timing, row counts and memory cost.
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/trino-compare/dashboard/types"
)

// querySetSchema validates benchmark query set files before they are
// accepted. Name and query are mandatory; enabled defaults to true.
const querySetSchema = `{
	"type": "object",
	"required": ["queries"],
	"properties": {
		"queries": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "query"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"category": {"type": "string"},
					"query": {"type": "string", "minLength": 1},
					"enabled": {"type": "boolean"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

type querySetFile struct {
	Queries []queryEntry `json:"queries"`
}

type queryEntry struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Query    string `json:"query"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// LoadQuerySet reads and validates a benchmark query set file.
func LoadQuerySet(path string) ([]*types.BenchmarkQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query set: %w", err)
	}
	return ParseQuerySet(data)
}

// ParseQuerySet validates raw query set JSON against the embedded schema and
// decodes it.
func ParseQuerySet(data []byte) ([]*types.BenchmarkQuery, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(querySetSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate query set: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return nil, fmt.Errorf("invalid query set: %s", errs[0].String())
		}
		return nil, fmt.Errorf("invalid query set")
	}

	var file querySetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode query set: %w", err)
	}

	seen := make(map[string]bool, len(file.Queries))
	queries := make([]*types.BenchmarkQuery, 0, len(file.Queries))
	for _, entry := range file.Queries {
		if seen[entry.Name] {
			return nil, fmt.Errorf("invalid query set: duplicate query name %q", entry.Name)
		}
		seen[entry.Name] = true

		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		queries = append(queries, &types.BenchmarkQuery{
			Name:      entry.Name,
			Category:  entry.Category,
			QueryText: entry.Query,
			Enabled:   enabled,
		})
	}
	return queries, nil
}

// DefaultQuerySet is used when no query set file exists yet. It only touches
// built-in system and TPC-H schemas so it runs on a fresh cluster.
func DefaultQuerySet() []*types.BenchmarkQuery {
	return []*types.BenchmarkQuery{
		{Name: "select_one", Category: "smoke", QueryText: "SELECT 1", Enabled: true},
		{Name: "node_info", Category: "system", QueryText: "SELECT node_id, state FROM system.runtime.nodes", Enabled: true},
		{Name: "show_catalogs", Category: "system", QueryText: "SHOW CATALOGS", Enabled: true},
		{Name: "tpch_orders_count", Category: "tpch", QueryText: "SELECT count(*) FROM tpch.tiny.orders", Enabled: true},
		{Name: "tpch_revenue_by_status", Category: "tpch", QueryText: "SELECT orderstatus, sum(totalprice) AS revenue FROM tpch.tiny.orders GROUP BY orderstatus ORDER BY orderstatus", Enabled: true},
		{Name: "tpch_top_customers", Category: "tpch", QueryText: "SELECT c.name, sum(o.totalprice) AS spend FROM tpch.tiny.customer c JOIN tpch.tiny.orders o ON c.custkey = o.custkey GROUP BY c.name ORDER BY spend DESC LIMIT 10", Enabled: true},
	}
}
