package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// PostgresDialect stores the household in PostgreSQL
type PostgresDialect struct{}

func (PostgresDialect) Name() string   { return "postgres" }
func (PostgresDialect) Driver() string { return "postgres" }

func (PostgresDialect) DSN(cfg DialectConfig) string {
	return cfg.URL
}

func (PostgresDialect) Rebind(query string) string {
	return bindNumbered(query)
}

func (PostgresDialect) Tune(db *sql.DB) error {
	tuneServerPool(db)
	return nil
}

func (PostgresDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`
}

func (PostgresDialect) SnapshotUpsert() string {
	return `INSERT INTO app_state (id, payload, saved_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`
}
