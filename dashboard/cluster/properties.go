package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/trino-compare/dashboard/config"
)

// Trino reads its configuration from /etc/trino inside the container. The
// renderer writes the full directory layout into a host temp dir which the
// manager mounts there.

const coordinatorPort = 8080

var configProperties = template.Must(template.New("config.properties").Parse(
	`coordinator=true
node-scheduler.include-coordinator=true
http-server.http.port={{.HTTPPort}}
discovery.uri=http://localhost:{{.HTTPPort}}
`))

var jvmConfig = `-server
-Xmx4G
-XX:+UseG1GC
-XX:G1HeapRegionSize=32M
-XX:+ExplicitGCInvokesConcurrent
-XX:+HeapDumpOnOutOfMemoryError
-XX:+ExitOnOutOfMemoryError
`

var nodeProperties = template.Must(template.New("node.properties").Parse(
	`node.environment=compare
node.id={{.NodeID}}
node.data-dir=/data/trino
`))

// catalogTemplates maps catalog names to connector properties templates. The
// template data is the catalog's CatalogConfig after defaulting.
var catalogTemplates = map[string]*template.Template{
	"hive": catalogTemplate("hive",
		`connector.name=hive
hive.metastore.uri=thrift://{{.MetastoreHost}}:{{.MetastorePort}}
`),
	"iceberg": catalogTemplate("iceberg",
		`connector.name=iceberg
iceberg.catalog.type=hive_metastore
hive.metastore.uri=thrift://{{.MetastoreHost}}:{{.MetastorePort}}
`),
	"delta-lake": catalogTemplate("delta-lake",
		`connector.name=delta_lake
hive.metastore.uri=thrift://{{.MetastoreHost}}:{{.MetastorePort}}
`),
	"mysql": catalogTemplate("mysql",
		`connector.name=mysql
connection-url=jdbc:mysql://{{.Host}}:{{.Port}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"mariadb": catalogTemplate("mariadb",
		`connector.name=mariadb
connection-url=jdbc:mariadb://{{.Host}}:{{.Port}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"postgres": catalogTemplate("postgres",
		`connector.name=postgresql
connection-url=jdbc:postgresql://{{.Host}}:{{.Port}}/{{.Database}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"sqlserver": catalogTemplate("sqlserver",
		`connector.name=sqlserver
connection-url=jdbc:sqlserver://{{.Host}}:{{.Port}};databaseName={{.Database}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"db2": catalogTemplate("db2",
		`connector.name=db2
connection-url=jdbc:db2://{{.Host}}:{{.Port}}/{{.Database}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"clickhouse": catalogTemplate("clickhouse",
		`connector.name=clickhouse
connection-url=jdbc:clickhouse://{{.Host}}:{{.Port}}
connection-user={{.User}}
{{- if .Password}}
connection-password={{.Password}}
{{- end}}
`),
	"pinot": catalogTemplate("pinot",
		`connector.name=pinot
pinot.controller-urls={{.Host}}:{{.Port}}
`),
	"elasticsearch": catalogTemplate("elasticsearch",
		`connector.name=elasticsearch
elasticsearch.host={{.Host}}
elasticsearch.port={{.Port}}
elasticsearch.default-schema-name=default
`),
}

func catalogTemplate(name, text string) *template.Template {
	return template.Must(template.New(name + ".properties").Parse(text))
}

type nodeData struct {
	NodeID   string
	HTTPPort int
}

// RenderConfigDir writes a complete Trino configuration tree for one cluster
// into a fresh temp directory and returns its path. Catalogs that are
// disabled or have no known connector template are skipped.
func RenderConfigDir(nodeID string, catalogs map[string]config.CatalogConfig) (string, error) {
	dir, err := os.MkdirTemp("", "trino-")
	if err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	if err := renderInto(dir, nodeID, catalogs); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func renderInto(dir, nodeID string, catalogs map[string]config.CatalogConfig) error {
	if err := os.MkdirAll(filepath.Join(dir, "catalog"), 0755); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}

	data := nodeData{NodeID: nodeID, HTTPPort: coordinatorPort}
	if err := renderFile(filepath.Join(dir, "config.properties"), configProperties, data); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "jvm.config"), []byte(jvmConfig), 0644); err != nil {
		return fmt.Errorf("failed to write jvm.config: %w", err)
	}
	if err := renderFile(filepath.Join(dir, "node.properties"), nodeProperties, data); err != nil {
		return err
	}

	for _, name := range sortedCatalogNames(catalogs) {
		cat := catalogs[name]
		if !cat.Enabled {
			continue
		}
		tmpl, ok := catalogTemplates[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, "catalog", name+".properties")
		if err := renderFile(path, tmpl, withCatalogDefaults(cat)); err != nil {
			return err
		}
	}
	return nil
}

func renderFile(path string, tmpl *template.Template, data interface{}) error {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// withCatalogDefaults fills the fields the templates reference so an
// incomplete config still renders valid properties.
func withCatalogDefaults(cat config.CatalogConfig) config.CatalogConfig {
	if cat.Host == "" {
		cat.Host = "localhost"
	}
	if cat.MetastoreHost == "" {
		cat.MetastoreHost = "localhost"
	}
	if cat.MetastorePort == "" {
		cat.MetastorePort = "9083"
	}
	return cat
}

func sortedCatalogNames(catalogs map[string]config.CatalogConfig) []string {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
