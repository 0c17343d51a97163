// Package trino wraps the Trino database/sql driver with the result shape
// and connection handling the dashboard needs.
package trino

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "github.com/trinodb/trino-go-client/trino"

	"github.com/trino-compare/dashboard/types"
)

// Client executes SQL against one Trino coordinator.
type Client struct {
	db           *sql.DB
	host         string
	port         int
	fallbackPort int
	user         string
	log          logrus.FieldLogger
}

// Options configures a client connection.
type Options struct {
	Host string
	// Port is the coordinator HTTP port after any configured remapping.
	Port int
	// FallbackPort, when non-zero, is tried once if the primary port
	// refuses connections.
	FallbackPort int
	User         string
	Catalog      string
	Schema       string
}

// NewClient opens a connection pool to the coordinator. The pool is lazy, so
// this never dials; reachability is checked on first use or via Ping.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.User == "" {
		opts.User = "trino"
	}

	c := &Client{
		host:         opts.Host,
		port:         opts.Port,
		fallbackPort: opts.FallbackPort,
		user:         opts.User,
		log:          logrus.WithField("component", "trino_client").WithField("port", opts.Port),
	}

	db, err := sql.Open("trino", c.dsn(opts.Port, opts.Catalog, opts.Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to open trino connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	c.db = db
	return c, nil
}

func (c *Client) dsn(port int, catalog, schema string) string {
	u := url.URL{
		Scheme: "http",
		User:   url.User(c.user),
		Host:   fmt.Sprintf("%s:%d", c.host, port),
	}
	q := u.Query()
	q.Set("source", "trino-compare")
	if catalog != "" {
		q.Set("catalog", catalog)
	}
	if schema != "" {
		q.Set("schema", schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Ping verifies the coordinator is reachable, retrying once on the fallback
// port when the primary connection is refused.
func (c *Client) Ping(ctx context.Context) error {
	err := c.db.PingContext(ctx)
	if err == nil {
		return nil
	}

	if c.fallbackPort != 0 && c.fallbackPort != c.port && isConnectionRefused(err) {
		c.log.WithField("fallback_port", c.fallbackPort).Warn("Primary port refused, retrying on fallback")
		db, openErr := sql.Open("trino", c.dsn(c.fallbackPort, "", ""))
		if openErr != nil {
			return fmt.Errorf("failed to open fallback connection: %w", openErr)
		}
		if pingErr := db.PingContext(ctx); pingErr != nil {
			db.Close()
			return fmt.Errorf("coordinator unreachable on ports %d and %d: %w", c.port, c.fallbackPort, err)
		}
		c.db.Close()
		c.db = db
		c.port = c.fallbackPort
		return nil
	}

	return fmt.Errorf("failed to ping coordinator: %w", err)
}

func isConnectionRefused(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connect: ")
}

// Execute runs one SQL statement and materializes the full result set.
func (c *Client) Execute(ctx context.Context, query string) (*types.QueryResult, error) {
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &types.QueryResult{
		Columns: columns,
		Rows:    [][]interface{}{},
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("result stream failed: %w", err)
	}

	result.RowCount = len(result.Rows)
	result.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	return result, nil
}

// normalizeRow makes driver values JSON-serializable. Byte slices become
// strings so JSONB history rows stay readable.
func normalizeRow(values []interface{}) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
			continue
		}
		row[i] = v
	}
	return row
}

// Catalogs lists the catalogs visible to the connection.
func (c *Client) Catalogs(ctx context.Context) ([]string, error) {
	return c.stringColumn(ctx, "SHOW CATALOGS")
}

// Schemas lists the schemas of one catalog.
func (c *Client) Schemas(ctx context.Context, catalog string) ([]string, error) {
	return c.stringColumn(ctx, fmt.Sprintf("SHOW SCHEMAS FROM %s", quoteIdent(catalog)))
}

// Tables lists the tables of one schema.
func (c *Client) Tables(ctx context.Context, catalog, schema string) ([]string, error) {
	return c.stringColumn(ctx, fmt.Sprintf("SHOW TABLES FROM %s.%s", quoteIdent(catalog), quoteIdent(schema)))
}

// NodeVersion returns the coordinator's reported engine version.
func (c *Client) NodeVersion(ctx context.Context) (string, error) {
	var version string
	err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to read node version: %w", err)
	}
	return version, nil
}

func (c *Client) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// quoteIdent quotes an identifier for interpolation into SHOW statements,
// which do not accept bind parameters.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
