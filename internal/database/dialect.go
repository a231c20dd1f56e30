package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures what differs between the supported SQL engines
type Dialect interface {
	// Name is the engine name used in config and as the migrations subdirectory
	Name() string
	// Driver is the database/sql driver to open
	Driver() string
	DSN(cfg DialectConfig) string
	// Rebind rewrites ? placeholders into the engine's native form
	Rebind(query string) string
	// Tune applies pool limits and session settings after the first ping
	Tune(db *sql.DB) error
	MigrationsTableDDL() string
	// SnapshotUpsert writes the single app_state row. Placeholders: payload, saved_at.
	SnapshotUpsert() string
}

// DialectConfig locates the database
type DialectConfig struct {
	// Path is the SQLite file
	Path string
	// URL is the PostgreSQL or MySQL connection string
	URL string
}

// DialectFor resolves a configured database type
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "sqlite", "sqlite3", "":
		return SQLiteDialect{}, nil
	case "postgres", "postgresql":
		return PostgresDialect{}, nil
	case "mysql", "mariadb":
		return MySQLDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// bindNumbered turns ? into $1, $2, ... leaving quoted literals alone
func bindNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// tuneServerPool sizes the pool for a networked engine. The household writes
// one row at a time, so a handful of connections is plenty.
func tuneServerPool(db *sql.DB) {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
}
