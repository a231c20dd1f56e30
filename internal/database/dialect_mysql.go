package database

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect stores the household in MySQL or MariaDB
type MySQLDialect struct{}

func (MySQLDialect) Name() string   { return "mysql" }
func (MySQLDialect) Driver() string { return "mysql" }

// DSN expects the driver's native form, e.g. user:pass@tcp(host:3306)/eudguide?parseTime=true
func (MySQLDialect) DSN(cfg DialectConfig) string {
	return cfg.URL
}

func (MySQLDialect) Rebind(query string) string {
	return query
}

func (MySQLDialect) Tune(db *sql.DB) error {
	tuneServerPool(db)
	return nil
}

func (MySQLDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) UNIQUE NOT NULL,
		executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
	)`
}

func (MySQLDialect) SnapshotUpsert() string {
	return "INSERT INTO app_state (id, payload, saved_at) VALUES (1, ?, ?) " +
		"ON DUPLICATE KEY UPDATE payload = VALUES(payload), saved_at = VALUES(saved_at)"
}
