package types

import (
	"encoding/json"
	"time"
)

// TrinoVersion is one known release of the query engine.
type TrinoVersion struct {
	Version         string     `json:"version"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	IsLTS           bool       `json:"is_lts"`
	SupportEndDate  *time.Time `json:"support_end_date,omitempty"`
	ReleaseNotesURL string     `json:"release_notes_url,omitempty"`
}

// CatalogCompatibility records the version range in which a catalog connector
// is usable. Empty strings mean "unbounded" / "never".
type CatalogCompatibility struct {
	CatalogName  string `json:"catalog_name"`
	MinVersion   string `json:"min_version,omitempty"`
	MaxVersion   string `json:"max_version,omitempty"`
	DeprecatedIn string `json:"deprecated_in,omitempty"`
	RemovedIn    string `json:"removed_in,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// VersionChange is a single bullet point extracted from a release-notes page.
type VersionChange struct {
	Version  string `json:"version"`
	Category string `json:"category,omitempty"`
	Text     string `json:"text"`
}

// ReleaseComparison aggregates release-note changes across every version
// between FromVersion (exclusive) and ToVersion (inclusive).
type ReleaseComparison struct {
	FromVersion      string          `json:"from_version"`
	ToVersion        string          `json:"to_version"`
	VersionsChecked  []string        `json:"versions_checked"`
	BreakingChanges  []VersionChange `json:"breaking_changes"`
	NewFeatures      []VersionChange `json:"new_features"`
	ConnectorChanges []VersionChange `json:"connector_changes"`
	GeneralChanges   []VersionChange `json:"general_changes"`
}

// CachedComparison is a release comparison persisted with an expiry. Payload
// holds the serialized ReleaseComparison.
type CachedComparison struct {
	FromVersion string          `json:"from_version"`
	ToVersion   string          `json:"to_version"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Expired reports whether the cached comparison is past its expiry at the
// given instant.
func (c *CachedComparison) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
