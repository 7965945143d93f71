package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/schema"
)

// Dialect extends the SQL-text dialect with driver error classification.
type Dialect interface {
	schema.Dialect

	// ConstraintViolation reports whether err was raised because the
	// supplied data broke a table constraint, and returns a client-safe
	// description of it.
	ConstraintViolation(err error) (string, bool)
}

// Driver is the Strategy interface for opening a database connection pool.
// Each backend registers itself from its init() function.
type Driver interface {
	// Open opens and configures a connection pool. It does not ping.
	Open(config Config) (*sql.DB, error)

	// Dialect returns the SQL dialect spoken by the backend.
	Dialect() Dialect

	// Name returns the driver identifier used in configuration.
	Name() string

	// Validate validates the configuration specific to this driver.
	Validate(config Config) error
}

// Config represents the settings needed to open a database.
type Config struct {
	Driver string

	// DSN is used as-is when set. Otherwise drivers build one from the
	// individual connection fields.
	DSN      string
	Host     string
	Port     int
	Name     string
	Username string
	Password string

	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ConnectionTimeout time.Duration
}

var (
	driverRegistry = make(map[string]Driver)
	registryMutex  sync.RWMutex
)

// RegisterDriver registers a database driver.
func RegisterDriver(driver Driver) {
	if driver == nil {
		panic("driver cannot be nil")
	}
	if driver.Name() == "" {
		panic("driver name cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := driverRegistry[driver.Name()]; exists {
		panic(fmt.Sprintf("driver %q is already registered", driver.Name()))
	}
	driverRegistry[driver.Name()] = driver
}

// RegisteredDrivers returns the names of every registered driver, sorted.
func RegisteredDrivers() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Database is an open connection pool together with its dialect.
type Database struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens a database through the driver named in config.Driver and
// verifies connectivity within config.ConnectionTimeout.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Database, error) {
	if config.Driver == "" {
		return nil, fmt.Errorf("database driver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	registryMutex.RLock()
	driver, exists := driverRegistry[config.Driver]
	registryMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	if err := driver.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Driver, err)
	}

	db, err := driver.Open(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	timeout := config.ConnectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected", "component", "database", "driver", config.Driver)

	return &Database{
		db:      db,
		dialect: driver.Dialect(),
		logger:  logger,
	}, nil
}

// DB returns the underlying connection pool.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Dialect returns the SQL dialect of the database.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if d.isClosed() {
		return fmt.Errorf("database is closed")
	}
	return d.db.PingContext(ctx)
}

// EnsureTables creates the backing table of every schema that does not exist yet.
func (d *Database) EnsureTables(ctx context.Context, schemas ...*core.Schema) error {
	if d.isClosed() {
		return fmt.Errorf("database is closed")
	}
	for _, s := range schemas {
		stmt := schema.CreateTableSQL(d.dialect, s)
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", s.TableName, err)
		}
		d.logger.Debug("table ensured", "component", "database", "table", s.TableName)
	}
	return nil
}

// Close closes the connection pool. It is safe to call more than once.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

func (d *Database) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// applyPool applies the pool settings shared by every driver.
func applyPool(db *sql.DB, config Config) {
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
}
