package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect is the default engine for a single device
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string   { return "sqlite" }
func (SQLiteDialect) Driver() string { return "sqlite3" }

func (SQLiteDialect) DSN(cfg DialectConfig) string {
	return cfg.Path
}

func (SQLiteDialect) Rebind(query string) string {
	return query
}

func (SQLiteDialect) Tune(db *sql.DB) error {
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (SQLiteDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT UNIQUE NOT NULL,
		executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
}

func (SQLiteDialect) SnapshotUpsert() string {
	return `INSERT INTO app_state (id, payload, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`
}
