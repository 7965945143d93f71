package core

// ColumnType is the storage-independent type of a resource column.
type ColumnType string

const (
	// TypeInteger is a 64-bit signed integer column.
	TypeInteger ColumnType = "integer"

	// TypeText is a variable-length string column.
	TypeText ColumnType = "text"

	// TypeBoolean is a true/false column.
	TypeBoolean ColumnType = "boolean"

	// TypeFloat is a double precision floating point column.
	TypeFloat ColumnType = "float"
)

// Record is a single row of a resource, keyed by column name.
// Values are int64, string, bool, float64 or nil for NULL.
type Record map[string]interface{}

// Schema represents the structure of a resource table.
type Schema struct {
	// TableName is the name of the table backing the resource.
	TableName string

	// PrimaryKey is the name of the primary key column.
	// The primary key is always a storage-generated integer.
	PrimaryKey string

	// Columns contains every non-key column, in declaration order.
	Columns []Column
}

// Column represents a single column in a resource table.
type Column struct {
	// Name is the column name.
	Name string

	// Type is the column type.
	Type ColumnType

	// Nullable indicates whether the column can contain NULL values.
	Nullable bool
}

// Resource is a named entity exposed through CRUD endpoints and backed by one table.
type Resource struct {
	// Name is the singular name, used in log lines and error messages.
	Name string

	// Plural is the URL segment the resource is mounted at (/api/{plural}).
	Plural string

	// Schema describes the backing table.
	Schema *Schema
}

// Column looks up a non-key column by name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the primary key followed by every column name.
func (s *Schema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns)+1)
	names = append(names, s.PrimaryKey)
	for _, col := range s.Columns {
		names = append(names, col.Name)
	}
	return names
}
