// Package gateway implements core.Gateway over a single relational table.
//
// Every call is one round trip to storage under its own timeout; nothing is
// cached between calls. Concurrent requests against the same record are not
// ordered: two updates race and the database decides which one lands last.
// The gateway takes no locks for read-modify-write sequences.
package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/database"
	"github.com/rzpsarthak13/armory/internal/schema"
)

// DefaultQueryTimeout bounds a gateway call when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// SQLGateway is the database-backed core.Gateway for one resource.
type SQLGateway struct {
	db           *sql.DB
	dialect      database.Dialect
	resource     *core.Resource
	translator   *schema.Translator
	validator    *schema.SchemaValidator
	queryTimeout time.Duration
	logger       *slog.Logger
}

// New creates a gateway for resource on an open database.
func New(db *database.Database, resource *core.Resource, queryTimeout time.Duration, logger *slog.Logger) *SQLGateway {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLGateway{
		db:           db.DB(),
		dialect:      db.Dialect(),
		resource:     resource,
		translator:   schema.NewTranslator(db.Dialect()),
		validator:    schema.NewSchemaValidator(resource.Schema),
		queryTimeout: queryTimeout,
		logger:       logger.With("component", "gateway", "resource", resource.Plural),
	}
}

// ListAll returns every record ordered by ascending primary key.
func (g *SQLGateway) ListAll(ctx context.Context) ([]core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, g.translator.SelectAll(g.resource.Schema))
	if err != nil {
		return nil, g.classify("list", nil, err)
	}
	defer rows.Close()

	records := make([]core.Record, 0)
	for rows.Next() {
		record, err := g.translator.ScanRecord(rows, g.resource.Schema)
		if err != nil {
			return nil, g.classify("list", nil, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, g.classify("list", nil, err)
	}
	return records, nil
}

// GetByID returns the record with the given id, or core.ErrNotFound.
func (g *SQLGateway) GetByID(ctx context.Context, id int64) (core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	row := g.db.QueryRowContext(ctx, g.translator.SelectByID(g.resource.Schema), id)
	record, err := g.translator.ScanRecord(row, g.resource.Schema)
	if err != nil {
		return nil, g.classify("get", &id, err)
	}
	return record, nil
}

// Create inserts a record and returns it as stored, including the
// storage-assigned id.
func (g *SQLGateway) Create(ctx context.Context, fields core.Record) (core.Record, error) {
	record, err := g.validator.ValidateCreate(fields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, g.classify("create", nil, err)
	}
	defer tx.Rollback()

	query, args := g.translator.Insert(g.resource.Schema, record)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, g.classify("create", nil, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, g.classify("create", nil, fmt.Errorf("failed to read generated id: %w", err))
	}

	row := tx.QueryRowContext(ctx, g.translator.SelectByID(g.resource.Schema), id)
	stored, err := g.translator.ScanRecord(row, g.resource.Schema)
	if err != nil {
		// The row was inserted in this transaction; not seeing it is a storage fault.
		return nil, g.classify("create", &id, unexpected(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, g.classify("create", &id, err)
	}

	g.logger.Debug("record created", "id", id)
	return stored, nil
}

// Update merges fields onto an existing record and returns the result.
// It never creates a record. An empty field set returns the stored record.
func (g *SQLGateway) Update(ctx context.Context, id int64, fields core.Record) (core.Record, error) {
	record, err := g.validator.ValidatePartial(id, fields)
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return g.GetByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, g.classify("update", &id, err)
	}
	defer tx.Rollback()

	query, args, err := g.translator.Update(g.resource.Schema, id, record)
	if err != nil {
		return nil, g.classify("update", &id, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, g.classify("update", &id, err)
	}

	// Rows affected is not used for existence: drivers differ on whether an
	// UPDATE that changes nothing counts the row.
	row := tx.QueryRowContext(ctx, g.translator.SelectByID(g.resource.Schema), id)
	stored, err := g.translator.ScanRecord(row, g.resource.Schema)
	if err != nil {
		return nil, g.classify("update", &id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, g.classify("update", &id, err)
	}

	g.logger.Debug("record updated", "id", id, "fields", len(record))
	return stored, nil
}

// DeleteByID removes a record. Deleting an absent id returns core.ErrNotFound.
func (g *SQLGateway) DeleteByID(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	result, err := g.db.ExecContext(ctx, g.translator.Delete(g.resource.Schema), id)
	if err != nil {
		return g.classify("delete", &id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return g.classify("delete", &id, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	g.logger.Debug("record deleted", "id", id)
	return nil
}

// classify turns a driver error into the core error taxonomy. Storage
// failures are logged here with full detail.
func (g *SQLGateway) classify(operation string, id *int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if reason, ok := g.dialect.ConstraintViolation(err); ok {
		return &core.ValidationError{Reason: reason}
	}

	storageErr := &core.StorageError{
		Operation: operation,
		Resource:  g.resource.Plural,
		ID:        id,
		Err:       err,
	}

	attrs := []interface{}{"operation", operation, "error", err}
	if id != nil {
		attrs = append(attrs, "id", *id)
	}
	g.logger.Error("storage operation failed", attrs...)
	return storageErr
}

// unexpected marks an error that must not be read as an absent record.
func unexpected(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inserted row not visible: %v", err)
	}
	return err
}
