package trino

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{Port: 8001})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "localhost", client.host)
	assert.Equal(t, "trino", client.user)
	assert.Equal(t, 8001, client.port)
}

func TestDSN(t *testing.T) {
	client, err := NewClient(Options{Host: "10.0.0.5", Port: 8002, User: "alice"})
	require.NoError(t, err)
	defer client.Close()

	dsn := client.dsn(8002, "tpch", "tiny")
	assert.Equal(t, "http://alice@10.0.0.5:8002?catalog=tpch&schema=tiny&source=trino-compare", dsn)

	// Catalog and schema are omitted when unset.
	assert.Equal(t, "http://alice@10.0.0.5:9000?source=trino-compare", client.dsn(9000, "", ""))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"tpch"`, quoteIdent("tpch"))
	assert.Equal(t, `"odd""name"`, quoteIdent(`odd"name`))
}

func TestNormalizeRow(t *testing.T) {
	row := normalizeRow([]interface{}{int64(1), []byte("raw"), nil, 2.5})
	assert.Equal(t, []interface{}{int64(1), "raw", nil, 2.5}, row)
}

func TestIsConnectionRefused(t *testing.T) {
	assert.True(t, isConnectionRefused(fmt.Errorf("dial tcp 127.0.0.1:8001: connect: connection refused")))
	assert.False(t, isConnectionRefused(fmt.Errorf("syntax error at line 1")))
}
