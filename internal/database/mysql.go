package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rzpsarthak13/armory/internal/core"
)

// MySQL server error numbers caused by the data in a statement.
const (
	mysqlErrBadNull          = 1048
	mysqlErrDupEntry         = 1062
	mysqlErrDataTooLong      = 1406
	mysqlErrNoDefault        = 1364
	mysqlErrTruncatedValue   = 1292
	mysqlErrIncorrectValue   = 1366
	mysqlErrOutOfRange       = 1264
	mysqlErrCheckConstraint  = 3819
	mysqlErrNoReferencedRow2 = 1452
)

func init() {
	RegisterDriver(&mysqlDriver{})
}

type mysqlDriver struct{}

func (d *mysqlDriver) Name() string {
	return "mysql"
}

func (d *mysqlDriver) Dialect() Dialect {
	return mysqlDialect{}
}

func (d *mysqlDriver) Validate(config Config) error {
	if config.DSN != "" {
		if _, err := mysql.ParseDSN(config.DSN); err != nil {
			return fmt.Errorf("invalid dsn: %w", err)
		}
		return nil
	}
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if config.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

func (d *mysqlDriver) Open(config Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", mysqlDSN(config))
	if err != nil {
		return nil, err
	}
	applyPool(db, config)
	return db, nil
}

// mysqlDSN builds the connection string. ParseTime is enabled and
// ClientFoundRows makes an UPDATE that changes nothing still report the
// matched row.
func mysqlDSN(config Config) string {
	if config.DSN != "" {
		return config.DSN
	}

	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	port := config.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = fmt.Sprintf("%s:%d", config.Host, port)
	cfg.DBName = config.Name
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Timeout = config.ConnectionTimeout
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return cfg.FormatDSN()
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string {
	return "mysql"
}

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) InsertDefaults(table string) string {
	return fmt.Sprintf("INSERT INTO %s () VALUES ()", table)
}

func (mysqlDialect) ColumnType(colType core.ColumnType) string {
	switch colType {
	case core.TypeInteger:
		return "BIGINT"
	case core.TypeBoolean:
		return "BOOLEAN"
	case core.TypeFloat:
		return "DOUBLE"
	default:
		return "VARCHAR(255)"
	}
}

func (mysqlDialect) PrimaryKeyDefinition(quotedName string) string {
	return quotedName + " BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
}

func (mysqlDialect) ConstraintViolation(err error) (string, bool) {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return "", false
	}
	switch mysqlErr.Number {
	case mysqlErrBadNull, mysqlErrDupEntry, mysqlErrDataTooLong, mysqlErrNoDefault,
		mysqlErrTruncatedValue, mysqlErrIncorrectValue, mysqlErrOutOfRange,
		mysqlErrCheckConstraint, mysqlErrNoReferencedRow2:
		return mysqlErr.Message, true
	default:
		return "", false
	}
}
