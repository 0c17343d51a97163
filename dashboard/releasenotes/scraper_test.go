package releasenotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releasePage = `<!DOCTYPE html>
<html><body>
<h1>Release 406 (2 Jun 2023)</h1>
<h2>Breaking changes #</h2>
<p>The legacy resource group fields are removed.</p>
<ul>
  <li>Remove support for the deprecated query.max-total-memory-per-task config.</li>
</ul>
<div class="admonition note">
  <p class="admonition-title">Note</p>
  <p>This admonition should be ignored.</p>
</div>
<h2>New features #</h2>
<ul>
  <li>Add support for MERGE on more table types.</li>
  <li>Faster aggregations over decimals.</li>
</ul>
<h2>General #</h2>
<ul>
  <li>Improve planning time for queries with many joins.</li>
</ul>
<h3>Hive connector #</h3>
<ul>
  <li>Fix reading partitions with special characters.</li>
</ul>
<h2>Iceberg connector #</h2>
<ul>
  <li>Add table sorting support.</li>
</ul>
</body></html>`

func newTestScraper(handler http.Handler) (*Scraper, *httptest.Server) {
	server := httptest.NewServer(handler)
	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	return scraper, server
}

func TestScrapeVersion(t *testing.T) {
	scraper, server := newTestScraper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release-406.html", r.URL.Path)
		w.Write([]byte(releasePage))
	}))
	defer server.Close()

	changes := scraper.ScrapeVersion(context.Background(), "406")

	require.Len(t, changes.Breaking, 2)
	assert.Equal(t, "Remove support for the deprecated query.max-total-memory-per-task config.", changes.Breaking[0].Text)
	assert.Equal(t, "The legacy resource group fields are removed.", changes.Breaking[1].Text)
	assert.Equal(t, "406", changes.Breaking[0].Version)

	require.Len(t, changes.Features, 2)
	assert.Equal(t, "Add support for MERGE on more table types.", changes.Features[0].Text)

	// Both the h3 sub-section and the connector-named h2 count as connector
	// changes, with the heading preserved as category.
	require.Len(t, changes.Connector, 2)
	categories := []string{changes.Connector[0].Category, changes.Connector[1].Category}
	assert.Contains(t, categories, "Hive connector")
	assert.Contains(t, categories, "Iceberg connector")

	require.Len(t, changes.General, 1)
	assert.Equal(t, "Improve planning time for queries with many joins.", changes.General[0].Text)
}

func TestScrapeVersionCollectsWrappedLists(t *testing.T) {
	// Some release pages wrap the section list in a container div, so lists
	// nested below the section siblings must be collected too.
	page := `<html><body>
<h2>Breaking changes #</h2>
<div class="section-body">
  <ul>
    <li>Remove the legacy ORC reader.</li>
  </ul>
</div>
<h2>New features #</h2>
<ul>
  <li>Add fault-tolerant execution.</li>
</ul>
</body></html>`

	scraper, server := newTestScraper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	changes := scraper.ScrapeVersion(context.Background(), "410")

	require.Len(t, changes.Breaking, 1)
	assert.Equal(t, "Remove the legacy ORC reader.", changes.Breaking[0].Text)
	require.Len(t, changes.Features, 1)
	assert.Equal(t, "Add fault-tolerant execution.", changes.Features[0].Text)
}

func TestScrapeVersionIgnoresAdmonitions(t *testing.T) {
	scraper, server := newTestScraper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(releasePage))
	}))
	defer server.Close()

	changes := scraper.ScrapeVersion(context.Background(), "406")
	for _, change := range changes.Breaking {
		assert.NotContains(t, change.Text, "admonition")
	}
}

func TestScrapeVersionMissingPage(t *testing.T) {
	scraper, server := newTestScraper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	changes := scraper.ScrapeVersion(context.Background(), "999")
	assert.Empty(t, changes.Breaking)
	assert.Empty(t, changes.Features)
	assert.Empty(t, changes.Connector)
	assert.Empty(t, changes.General)
}

func TestScrapeVersionUnreachableServer(t *testing.T) {
	scraper := NewScraper(time.Second)
	scraper.SetBaseURL("http://127.0.0.1:1")

	changes := scraper.ScrapeVersion(context.Background(), "406")
	assert.Empty(t, changes.Breaking)
}
