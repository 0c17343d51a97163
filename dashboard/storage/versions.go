package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trino-compare/dashboard/types"
)

// VersionStore tracks known Trino releases and catalog compatibility ranges.
type VersionStore interface {
	UpsertVersion(ctx context.Context, v *types.TrinoVersion) error
	ListVersions(ctx context.Context) ([]*types.TrinoVersion, error)
	UpsertCompatibility(ctx context.Context, c *types.CatalogCompatibility) error
	ListCompatibility(ctx context.Context) ([]*types.CatalogCompatibility, error)
}

// UpsertVersion inserts or updates one known release.
func (d *Database) UpsertVersion(ctx context.Context, v *types.TrinoVersion) error {
	query := `
		INSERT INTO trino_versions (version, release_date, is_lts, support_end_date, release_notes_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (version) DO UPDATE SET
			release_date = EXCLUDED.release_date,
			is_lts = EXCLUDED.is_lts,
			support_end_date = EXCLUDED.support_end_date,
			release_notes_url = EXCLUDED.release_notes_url`

	_, err := d.db.ExecContext(ctx, query,
		v.Version, v.ReleaseDate, v.IsLTS, v.SupportEndDate, nullString(v.ReleaseNotesURL),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert version: %w", err)
	}
	return nil
}

// ListVersions lists known releases, newest first by numeric version.
// Non-numeric versions sort last, lexicographically.
func (d *Database) ListVersions(ctx context.Context) ([]*types.TrinoVersion, error) {
	query := `
		SELECT version, release_date, is_lts, support_end_date, release_notes_url
		FROM trino_versions
		ORDER BY
			(CASE WHEN version ~ '^[0-9]+$' THEN version::bigint END) DESC NULLS LAST,
			version DESC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*types.TrinoVersion
	for rows.Next() {
		v := &types.TrinoVersion{}
		var url sql.NullString
		if err := rows.Scan(&v.Version, &v.ReleaseDate, &v.IsLTS, &v.SupportEndDate, &url); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.ReleaseNotesURL = url.String
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// UpsertCompatibility inserts or updates one catalog compatibility row.
func (d *Database) UpsertCompatibility(ctx context.Context, c *types.CatalogCompatibility) error {
	query := `
		INSERT INTO catalog_compatibility (catalog_name, min_version, max_version, deprecated_in, removed_in, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (catalog_name) DO UPDATE SET
			min_version = EXCLUDED.min_version,
			max_version = EXCLUDED.max_version,
			deprecated_in = EXCLUDED.deprecated_in,
			removed_in = EXCLUDED.removed_in,
			notes = EXCLUDED.notes`

	_, err := d.db.ExecContext(ctx, query,
		c.CatalogName,
		nullString(c.MinVersion), nullString(c.MaxVersion),
		nullString(c.DeprecatedIn), nullString(c.RemovedIn),
		nullString(c.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog compatibility: %w", err)
	}
	return nil
}

// ListCompatibility lists all catalog compatibility rows.
func (d *Database) ListCompatibility(ctx context.Context) ([]*types.CatalogCompatibility, error) {
	query := `
		SELECT catalog_name, min_version, max_version, deprecated_in, removed_in, notes
		FROM catalog_compatibility
		ORDER BY catalog_name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog compatibility: %w", err)
	}
	defer rows.Close()

	var entries []*types.CatalogCompatibility
	for rows.Next() {
		c := &types.CatalogCompatibility{}
		var minV, maxV, depIn, remIn, notes sql.NullString
		if err := rows.Scan(&c.CatalogName, &minV, &maxV, &depIn, &remIn, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan catalog compatibility: %w", err)
		}
		c.MinVersion = minV.String
		c.MaxVersion = maxV.String
		c.DeprecatedIn = depIn.String
		c.RemovedIn = remIn.String
		c.Notes = notes.String
		entries = append(entries, c)
	}
	return entries, rows.Err()
}
