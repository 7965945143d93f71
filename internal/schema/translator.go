package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/armory/internal/core"
)

// Dialect captures the SQL differences between supported databases that the
// translator and DDL builder care about.
type Dialect interface {
	// Name returns the dialect identifier (e.g. "mysql").
	Name() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// InsertDefaults returns an INSERT statement that supplies no columns.
	InsertDefaults(table string) string

	// ColumnType returns the SQL type used for a column type.
	ColumnType(colType core.ColumnType) string

	// PrimaryKeyDefinition returns the full column definition of an
	// auto-incrementing integer primary key.
	PrimaryKeyDefinition(quotedName string) string
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// Translator builds parameterized SQL statements for a resource schema and
// turns scanned rows back into records.
type Translator struct {
	dialect Dialect
	mapper  *TypeMapper
}

// NewTranslator creates a new schema translator for a dialect.
func NewTranslator(dialect Dialect) *Translator {
	return &Translator{
		dialect: dialect,
		mapper:  NewTypeMapper(),
	}
}

// SelectAll returns a query for every row, ordered by ascending primary key.
func (t *Translator) SelectAll(schema *core.Schema) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC",
		t.columnList(schema), t.table(schema), t.dialect.QuoteIdentifier(schema.PrimaryKey))
}

// SelectByID returns a query for a single row. It takes the id as its only argument.
func (t *Translator) SelectByID(schema *core.Schema) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		t.columnList(schema), t.table(schema), t.dialect.QuoteIdentifier(schema.PrimaryKey))
}

// Insert builds an INSERT for the supplied fields. Columns absent from the
// record are left to their database default.
func (t *Translator) Insert(schema *core.Schema, record core.Record) (string, []interface{}) {
	columns := make([]string, 0, len(record))
	placeholders := make([]string, 0, len(record))
	args := make([]interface{}, 0, len(record))

	// Walk the schema rather than the map so statements are stable.
	for _, col := range schema.Columns {
		value, exists := record[col.Name]
		if !exists {
			continue
		}
		columns = append(columns, t.dialect.QuoteIdentifier(col.Name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}

	if len(columns) == 0 {
		return t.dialect.InsertDefaults(t.table(schema)), nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.table(schema), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return query, args
}

// Update builds an UPDATE setting only the supplied fields. The id is the
// last argument. Callers must not pass an empty record.
func (t *Translator) Update(schema *core.Schema, id int64, record core.Record) (string, []interface{}, error) {
	setClauses := make([]string, 0, len(record))
	args := make([]interface{}, 0, len(record)+1)

	for _, col := range schema.Columns {
		value, exists := record[col.Name]
		if !exists {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", t.dialect.QuoteIdentifier(col.Name)))
		args = append(args, value)
	}

	if len(setClauses) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		t.table(schema), strings.Join(setClauses, ", "), t.dialect.QuoteIdentifier(schema.PrimaryKey))
	return query, args, nil
}

// Delete returns a DELETE for a single row. It takes the id as its only argument.
func (t *Translator) Delete(schema *core.Schema) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		t.table(schema), t.dialect.QuoteIdentifier(schema.PrimaryKey))
}

// ScanRecord reads one row produced by SelectAll or SelectByID.
func (t *Translator) ScanRecord(row RowScanner, schema *core.Schema) (core.Record, error) {
	targets := make([]interface{}, 0, len(schema.Columns)+1)
	targets = append(targets, t.mapper.NewScanTarget(core.TypeInteger))
	for _, col := range schema.Columns {
		targets = append(targets, t.mapper.NewScanTarget(col.Type))
	}

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	names := schema.ColumnNames()
	record := make(core.Record, len(names))
	for i, name := range names {
		value, err := t.mapper.ConvertFromScanTarget(targets[i])
		if err != nil {
			return nil, fmt.Errorf("failed to read column '%s': %w", name, err)
		}
		record[name] = value
	}
	return record, nil
}

func (t *Translator) table(schema *core.Schema) string {
	return t.dialect.QuoteIdentifier(schema.TableName)
}

func (t *Translator) columnList(schema *core.Schema) string {
	names := schema.ColumnNames()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = t.dialect.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}
