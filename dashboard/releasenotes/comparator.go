package releasenotes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/metrics"
	"github.com/trino-compare/dashboard/storage"
	"github.com/trino-compare/dashboard/types"
)

// Comparator aggregates release-note changes between two versions, serving
// from the database cache when a fresh entry exists.
type Comparator struct {
	scraper *Scraper
	cache   storage.ComparisonCache
	log     logrus.FieldLogger
}

// NewComparator creates a comparator. The cache may be nil, in which case
// every comparison is scraped fresh.
func NewComparator(scraper *Scraper, cache storage.ComparisonCache) *Comparator {
	return &Comparator{
		scraper: scraper,
		cache:   cache,
		log:     logrus.WithField("component", "release_comparator"),
	}
}

// CompareVersions returns the aggregated changes across every release after
// `from` up to and including `to`. Reversed arguments are swapped. Results
// are cached for storage.ComparisonTTL.
func (c *Comparator) CompareVersions(ctx context.Context, from, to string) (*types.ReleaseComparison, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("both versions are required")
	}
	if Compare(from, to) > 0 {
		from, to = to, from
	}

	if cached := c.lookupCache(ctx, from, to); cached != nil {
		return cached, nil
	}
	metrics.RecordReleaseCache(false)

	comparison := &types.ReleaseComparison{
		FromVersion:      from,
		ToVersion:        to,
		BreakingChanges:  []types.VersionChange{},
		NewFeatures:      []types.VersionChange{},
		ConnectorChanges: []types.VersionChange{},
		GeneralChanges:   []types.VersionChange{},
	}

	for _, version := range Range(from, to) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changes := c.scraper.ScrapeVersion(ctx, version)
		comparison.VersionsChecked = append(comparison.VersionsChecked, version)
		comparison.BreakingChanges = append(comparison.BreakingChanges, changes.Breaking...)
		comparison.NewFeatures = append(comparison.NewFeatures, changes.Features...)
		comparison.ConnectorChanges = append(comparison.ConnectorChanges, changes.Connector...)
		comparison.GeneralChanges = append(comparison.GeneralChanges, changes.General...)
	}

	c.storeCache(ctx, comparison)
	return comparison, nil
}

func (c *Comparator) lookupCache(ctx context.Context, from, to string) *types.ReleaseComparison {
	if c.cache == nil {
		return nil
	}

	cached, err := c.cache.GetComparison(ctx, from, to)
	if err != nil {
		c.log.WithError(err).Warn("Failed to read comparison cache")
		return nil
	}
	if cached == nil {
		return nil
	}

	comparison := &types.ReleaseComparison{}
	if err := json.Unmarshal(cached.Payload, comparison); err != nil {
		c.log.WithError(err).Warn("Discarding undecodable cached comparison")
		return nil
	}

	metrics.RecordReleaseCache(true)
	c.log.WithField("from", from).WithField("to", to).Debug("Serving comparison from cache")
	return comparison
}

func (c *Comparator) storeCache(ctx context.Context, comparison *types.ReleaseComparison) {
	if c.cache == nil {
		return
	}

	payload, err := json.Marshal(comparison)
	if err != nil {
		c.log.WithError(err).Warn("Failed to encode comparison for cache")
		return
	}
	if _, err := c.cache.PutComparison(ctx, comparison.FromVersion, comparison.ToVersion, payload); err != nil {
		c.log.WithError(err).Warn("Failed to cache comparison")
	}
}
