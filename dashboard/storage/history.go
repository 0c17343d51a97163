package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trino-compare/dashboard/types"
)

// HistoryStore persists and lists past comparison queries.
type HistoryStore interface {
	InsertQueryRecord(ctx context.Context, rec *types.QueryRecord) error
	GetQueryRecord(ctx context.Context, id string) (*types.QueryRecord, error)
	ListQueryRecords(ctx context.Context, filter types.HistoryFilter) ([]*types.QueryRecord, error)
	DeleteQueryRecord(ctx context.Context, id string) error
}

// InsertQueryRecord inserts one query history row.
func (d *Database) InsertQueryRecord(ctx context.Context, rec *types.QueryRecord) error {
	query := `
		INSERT INTO query_history (
			id, query_text, executed_at,
			cluster1_duration_ms, cluster2_duration_ms,
			cluster1_status, cluster2_status,
			cluster1_result, cluster2_result,
			cluster1_error, cluster2_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := d.db.ExecContext(ctx, query,
		rec.ID, rec.QueryText, rec.ExecutedAt,
		rec.Cluster1DurationMs, rec.Cluster2DurationMs,
		nullString(rec.Cluster1Status), nullString(rec.Cluster2Status),
		nullBytes(rec.Cluster1Result), nullBytes(rec.Cluster2Result),
		nullString(rec.Cluster1Error), nullString(rec.Cluster2Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	d.log.WithField("query_id", rec.ID).Debug("Inserted query record")
	return nil
}

// GetQueryRecord retrieves one history row by id.
func (d *Database) GetQueryRecord(ctx context.Context, id string) (*types.QueryRecord, error) {
	query := `
		SELECT id, query_text, executed_at,
			cluster1_duration_ms, cluster2_duration_ms,
			cluster1_status, cluster2_status,
			cluster1_result, cluster2_result,
			cluster1_error, cluster2_error
		FROM query_history WHERE id = $1`

	rec, err := scanQueryRecord(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("query record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get query record: %w", err)
	}
	return rec, nil
}

// ListQueryRecords lists history rows, newest first.
func (d *Database) ListQueryRecords(ctx context.Context, filter types.HistoryFilter) ([]*types.QueryRecord, error) {
	query := `
		SELECT id, query_text, executed_at,
			cluster1_duration_ms, cluster2_duration_ms,
			cluster1_status, cluster2_status,
			cluster1_result, cluster2_result,
			cluster1_error, cluster2_error
		FROM query_history WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND executed_at >= $%d", argCount)
		args = append(args, filter.Since)
		argCount++
	}

	query += " ORDER BY executed_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}
	defer rows.Close()

	var records []*types.QueryRecord
	for rows.Next() {
		rec, err := scanQueryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteQueryRecord removes one history row.
func (d *Database) DeleteQueryRecord(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM query_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete query record: %w", err)
	}
	if count, _ := result.RowsAffected(); count == 0 {
		return fmt.Errorf("query record not found: %s", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQueryRecord(s scanner) (*types.QueryRecord, error) {
	rec := &types.QueryRecord{}
	var (
		c1Status, c2Status, c1Err, c2Err sql.NullString
		c1Result, c2Result               []byte
	)

	err := s.Scan(
		&rec.ID, &rec.QueryText, &rec.ExecutedAt,
		&rec.Cluster1DurationMs, &rec.Cluster2DurationMs,
		&c1Status, &c2Status,
		&c1Result, &c2Result,
		&c1Err, &c2Err,
	)
	if err != nil {
		return nil, err
	}

	rec.Cluster1Status = c1Status.String
	rec.Cluster2Status = c2Status.String
	rec.Cluster1Error = c1Err.String
	rec.Cluster2Error = c2Err.String
	rec.Cluster1Result = c1Result
	rec.Cluster2Result = c2Result
	return rec, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
