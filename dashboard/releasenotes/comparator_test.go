package releasenotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trino-compare/dashboard/storage"
	"github.com/trino-compare/dashboard/types"
)

// memoryCache is an in-memory stand-in for the database comparison cache.
type memoryCache struct {
	entries map[string]*types.CachedComparison
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*types.CachedComparison)}
}

func (m *memoryCache) key(from, to string) string { return from + "->" + to }

func (m *memoryCache) GetComparison(_ context.Context, from, to string) (*types.CachedComparison, error) {
	cached, ok := m.entries[m.key(from, to)]
	if !ok || cached.Expired(time.Now()) {
		return nil, nil
	}
	return cached, nil
}

func (m *memoryCache) PutComparison(_ context.Context, from, to string, payload []byte) (*types.CachedComparison, error) {
	m.puts++
	cached := &types.CachedComparison{
		FromVersion: from,
		ToVersion:   to,
		Payload:     payload,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(storage.ComparisonTTL),
	}
	m.entries[m.key(from, to)] = cached
	return cached, nil
}

func (m *memoryCache) PurgeExpiredComparisons(context.Context) (int64, error) { return 0, nil }

func releaseServer(requests *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)
		fmt.Fprintf(w, `<html><body>
			<h2>Breaking changes</h2><ul><li>Change for %s</li></ul>
			</body></html>`, r.URL.Path)
	}))
}

func TestCompareVersionsAggregates(t *testing.T) {
	var requests int64
	server := releaseServer(&requests)
	defer server.Close()

	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	comparator := NewComparator(scraper, newMemoryCache())

	comparison, err := comparator.CompareVersions(context.Background(), "404", "406")
	require.NoError(t, err)

	assert.Equal(t, "404", comparison.FromVersion)
	assert.Equal(t, "406", comparison.ToVersion)
	assert.Equal(t, []string{"405", "406"}, comparison.VersionsChecked)
	assert.Len(t, comparison.BreakingChanges, 2)
	assert.EqualValues(t, 2, atomic.LoadInt64(&requests))
}

func TestCompareVersionsSwapsReversedInput(t *testing.T) {
	var requests int64
	server := releaseServer(&requests)
	defer server.Close()

	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	comparator := NewComparator(scraper, newMemoryCache())

	comparison, err := comparator.CompareVersions(context.Background(), "406", "404")
	require.NoError(t, err)
	assert.Equal(t, "404", comparison.FromVersion)
	assert.Equal(t, "406", comparison.ToVersion)
}

func TestCompareVersionsUsesCache(t *testing.T) {
	var requests int64
	server := releaseServer(&requests)
	defer server.Close()

	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	cache := newMemoryCache()
	comparator := NewComparator(scraper, cache)

	ctx := context.Background()
	first, err := comparator.CompareVersions(ctx, "405", "406")
	require.NoError(t, err)
	require.Equal(t, 1, cache.puts)
	scraped := atomic.LoadInt64(&requests)

	second, err := comparator.CompareVersions(ctx, "405", "406")
	require.NoError(t, err)

	// Second call is served from cache: no new fetches, no new cache writes.
	assert.Equal(t, scraped, atomic.LoadInt64(&requests))
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, first.BreakingChanges, second.BreakingChanges)
}

func TestCompareVersionsExpiredCacheRefetches(t *testing.T) {
	var requests int64
	server := releaseServer(&requests)
	defer server.Close()

	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	cache := newMemoryCache()
	comparator := NewComparator(scraper, cache)

	ctx := context.Background()
	_, err := comparator.CompareVersions(ctx, "405", "406")
	require.NoError(t, err)

	// Age the entry past its expiry.
	entry := cache.entries[cache.key("405", "406")]
	entry.ExpiresAt = time.Now().Add(-time.Hour)
	scraped := atomic.LoadInt64(&requests)

	_, err = comparator.CompareVersions(ctx, "405", "406")
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt64(&requests), scraped)
	assert.Equal(t, 2, cache.puts)
}

func TestCompareVersionsDiscardsCorruptCacheEntry(t *testing.T) {
	var requests int64
	server := releaseServer(&requests)
	defer server.Close()

	scraper := NewScraper(5 * time.Second)
	scraper.SetBaseURL(server.URL)
	cache := newMemoryCache()
	cache.entries[cache.key("405", "406")] = &types.CachedComparison{
		FromVersion: "405",
		ToVersion:   "406",
		Payload:     json.RawMessage(`{not json`),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	comparator := NewComparator(scraper, cache)

	comparison, err := comparator.CompareVersions(context.Background(), "405", "406")
	require.NoError(t, err)
	assert.NotEmpty(t, comparison.VersionsChecked)
}

func TestCompareVersionsRequiresBothVersions(t *testing.T) {
	comparator := NewComparator(NewScraper(time.Second), nil)
	_, err := comparator.CompareVersions(context.Background(), "", "406")
	assert.Error(t, err)
}
