package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trino-compare/dashboard/types"
)

// ComparisonTTL is how long a cached release comparison stays valid.
const ComparisonTTL = 30 * 24 * time.Hour

// ComparisonCache stores release-note comparison payloads with an expiry.
type ComparisonCache interface {
	GetComparison(ctx context.Context, from, to string) (*types.CachedComparison, error)
	PutComparison(ctx context.Context, from, to string, payload []byte) (*types.CachedComparison, error)
	PurgeExpiredComparisons(ctx context.Context) (int64, error)
}

// GetComparison returns the cached comparison for the version pair, or nil
// when no entry exists or the entry has expired.
func (d *Database) GetComparison(ctx context.Context, from, to string) (*types.CachedComparison, error) {
	query := `
		SELECT from_version, to_version, payload, created_at, expires_at
		FROM version_comparisons
		WHERE from_version = $1 AND to_version = $2 AND expires_at > NOW()`

	c := &types.CachedComparison{}
	err := d.db.QueryRowContext(ctx, query, from, to).Scan(
		&c.FromVersion, &c.ToVersion, &c.Payload, &c.CreatedAt, &c.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached comparison: %w", err)
	}
	return c, nil
}

// PutComparison stores or refreshes the cached comparison for the version
// pair, resetting its expiry to ComparisonTTL from now.
func (d *Database) PutComparison(ctx context.Context, from, to string, payload []byte) (*types.CachedComparison, error) {
	query := `
		INSERT INTO version_comparisons (from_version, to_version, payload, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), NOW() + $4::interval)
		ON CONFLICT (from_version, to_version) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		RETURNING from_version, to_version, payload, created_at, expires_at`

	interval := fmt.Sprintf("%d seconds", int64(ComparisonTTL.Seconds()))

	c := &types.CachedComparison{}
	err := d.db.QueryRowContext(ctx, query, from, to, payload, interval).Scan(
		&c.FromVersion, &c.ToVersion, &c.Payload, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cache comparison: %w", err)
	}

	d.log.WithField("from", from).WithField("to", to).Debug("Cached release comparison")
	return c, nil
}

// PurgeExpiredComparisons removes expired cache rows and returns how many
// were deleted.
func (d *Database) PurgeExpiredComparisons(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM version_comparisons WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired comparisons: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}
