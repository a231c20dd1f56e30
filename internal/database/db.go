package database

import (
	"context"
	"database/sql"
	"fmt"

	"eudguide/internal/config"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sql.DB
	Dialect Dialect
}

// InitializeWithConfig opens the engine named by cfg.DatabaseType
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	dialect, err := DialectFor(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	return Open(dialect, DialectConfig{Path: cfg.DatabasePath, URL: cfg.DatabaseURL})
}

// Open connects, pings and tunes a database for dialect
func Open(dialect Dialect, cfg DialectConfig) (*DB, error) {
	dsn := dialect.DSN(cfg)
	if dsn == "" {
		return nil, fmt.Errorf("no connection target configured for %s", dialect.Name())
	}

	conn, err := sql.Open(dialect.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", dialect.Name(), err)
	}
	if err := dialect.Tune(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to tune %s connection: %w", dialect.Name(), err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// Queries written with ? placeholders are rebound for the active dialect.

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.Rebind(query), args...)
}
