// Package storage persists query history, version metadata, benchmark runs
// and cached release-note comparisons in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/config"
)

// Database wraps the PostgreSQL connection and implements every store
// interface consumed by the API layer.
type Database struct {
	db  *sql.DB
	cfg *config.PostgresConfig
	log logrus.FieldLogger
}

// NewDatabase creates a database handle; Connect must be called before use.
func NewDatabase(cfg *config.PostgresConfig) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}
	return &Database{
		cfg: cfg,
		log: logrus.WithField("component", "postgres"),
	}, nil
}

// Connect establishes the database connection and applies migrations.
func (d *Database) Connect() error {
	db, err := sql.Open("postgres", d.cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(d.cfg.MaxOpenConns)
	db.SetMaxIdleConns(d.cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.db = db
	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.log.Info("Connected to PostgreSQL database")
	return nil
}

// DB exposes the underlying handle for health checks and tests.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
