// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package database persists players, chat messages and activity transitions.
//
// Three dialects share one query set: DuckDB (the default, an embedded file),
// SQLite through the pure-Go modernc driver, and PostgreSQL through pgx. Each
// dialect carries its own embedded migrations; placeholders are rewritten by
// bind.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/database/query"
	"github.com/tomtom215/heimdall/internal/logging"
)

// ErrPlayerNotFound is returned by lookups for an unknown player id.
var ErrPlayerNotFound = errors.New("player not found")

// Dialect identifies the SQL flavour in use.
type Dialect string

const (
	DialectDuckDB   Dialect = config.DriverDuckDB
	DialectSQLite   Dialect = config.DriverSQLite
	DialectPostgres Dialect = config.DriverPostgres
)

// DB wraps the SQL connection pool and provides data access methods.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	cfg     *config.DatabaseConfig
	log     zerolog.Logger
}

// New opens the configured database and applies pending migrations.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	driverName, dsn, err := connectionString(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	db := &DB{
		conn:    conn,
		dialect: Dialect(cfg.Driver),
		cfg:     cfg,
		log:     logging.WithComponent("database"),
	}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}
	if err := db.applyMigrations(ctx); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	db.log.Info().Str("dialect", string(db.dialect)).Msg("Database ready")
	return db, nil
}

// connectionString resolves the driver name and DSN for cfg, creating the
// parent directory of file-backed databases.
func connectionString(cfg *config.DatabaseConfig) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case config.DriverDuckDB:
		if err := ensureDir(cfg.Path); err != nil {
			return "", "", err
		}
		threads := cfg.Threads
		if threads <= 0 {
			threads = runtime.NumCPU()
		}
		dsn = fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.Path, threads)
		if cfg.MaxMemory != "" {
			dsn += "&max_memory=" + cfg.MaxMemory
		}
		return "duckdb", dsn, nil
	case config.DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return "", "", err
		}
		return "sqlite", "file:" + cfg.Path + "?_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return "", "", errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
		return "pgx", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DIALECT %q", cfg.Driver)
	}
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// Dialect returns the SQL flavour of the open database.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close checkpoints DuckDB and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.dialect == DialectDuckDB {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			db.log.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()
	}
	return db.conn.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// placeholder returns the bind parameter style of the dialect.
func (db *DB) placeholder() query.Placeholder {
	if db.dialect == DialectPostgres {
		return query.Dollar
	}
	return query.Question
}

// bind returns the placeholder for the pos-th (1-based) argument.
func (db *DB) bind(pos int) string {
	return db.placeholder()(pos)
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing database resource")
	}
}
