package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rzpsarthak13/armory/internal/core"
)

func init() {
	RegisterDriver(&sqliteDriver{})
}

type sqliteDriver struct{}

func (d *sqliteDriver) Name() string {
	return "sqlite"
}

func (d *sqliteDriver) Dialect() Dialect {
	return sqliteDialect{}
}

func (d *sqliteDriver) Validate(config Config) error {
	if config.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

// Open opens an SQLite database. An in-memory database lives only as long
// as its connection, so the pool is pinned to a single connection that
// never expires.
func (d *sqliteDriver) Open(config Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", config.DSN)
	if err != nil {
		return nil, err
	}

	if isMemoryDSN(config.DSN) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return db, nil
	}

	applyPool(db, config)
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string {
	return "sqlite"
}

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) InsertDefaults(table string) string {
	return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
}

func (sqliteDialect) ColumnType(colType core.ColumnType) string {
	switch colType {
	case core.TypeInteger:
		return "INTEGER"
	case core.TypeBoolean:
		return "BOOLEAN"
	case core.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// PrimaryKeyDefinition uses AUTOINCREMENT so ids of deleted rows are never reused.
func (sqliteDialect) PrimaryKeyDefinition(quotedName string) string {
	return quotedName + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (sqliteDialect) ConstraintViolation(err error) (string, bool) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
			return "", false
		}
		return constraintReason(sqliteErr.Error()), true
	}

	// Fall back to matching the message for wrapped or stringified errors.
	if msg := err.Error(); strings.Contains(msg, "constraint failed") {
		return constraintReason(msg), true
	}
	return "", false
}

// constraintReason trims driver noise such as the trailing "(1299)" result code.
func constraintReason(msg string) string {
	if i := strings.LastIndex(msg, " ("); i > 0 && strings.HasSuffix(msg, ")") {
		msg = msg[:i]
	}
	if i := strings.Index(msg, "constraint failed: "); i >= 0 {
		rest := msg[i+len("constraint failed: "):]
		if strings.Contains(rest, "constraint failed") {
			msg = rest
		}
	}
	return msg
}
