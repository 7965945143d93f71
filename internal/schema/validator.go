package schema

import (
	"fmt"
	"sort"

	"github.com/rzpsarthak13/armory/internal/core"
)

// SchemaValidator validates and coerces incoming field maps against a
// resource schema.
type SchemaValidator struct {
	schema *core.Schema
	mapper *TypeMapper
}

// NewSchemaValidator creates a new schema validator.
func NewSchemaValidator(schema *core.Schema) *SchemaValidator {
	return &SchemaValidator{
		schema: schema,
		mapper: NewTypeMapper(),
	}
}

// ValidateCreate coerces a full record for an INSERT. Every non-nullable
// column must be present and non-NULL; the primary key must be absent.
func (sv *SchemaValidator) ValidateCreate(fields map[string]interface{}) (core.Record, error) {
	if _, exists := fields[sv.schema.PrimaryKey]; exists {
		return nil, core.NewValidationError(sv.schema.PrimaryKey, "is assigned by storage and cannot be set")
	}

	record, err := sv.coerce(fields)
	if err != nil {
		return nil, err
	}

	for _, column := range sv.schema.Columns {
		if column.Nullable {
			continue
		}
		if value, exists := record[column.Name]; !exists || value == nil {
			return nil, core.NewValidationError(column.Name, "is required")
		}
	}
	return record, nil
}

// ValidatePartial coerces a partial record for an UPDATE. Only the supplied
// fields are checked. An id equal to pathID is tolerated and dropped, since
// clients commonly send back the record they read.
func (sv *SchemaValidator) ValidatePartial(pathID int64, fields map[string]interface{}) (core.Record, error) {
	if raw, exists := fields[sv.schema.PrimaryKey]; exists {
		id, err := sv.mapper.ConvertToColumnValue(raw, core.TypeInteger)
		if err != nil || id == nil || id.(int64) != pathID {
			return nil, core.NewValidationError(sv.schema.PrimaryKey, "cannot be changed")
		}
		trimmed := make(map[string]interface{}, len(fields)-1)
		for name, value := range fields {
			if name != sv.schema.PrimaryKey {
				trimmed[name] = value
			}
		}
		fields = trimmed
	}

	record, err := sv.coerce(fields)
	if err != nil {
		return nil, err
	}

	for name, value := range record {
		column, _ := sv.schema.Column(name)
		if value == nil && !column.Nullable {
			return nil, core.NewValidationError(name, "cannot be null")
		}
	}
	return record, nil
}

// coerce rejects unknown fields and converts each known one to its column type.
// Fields are visited in sorted order so the reported error is deterministic.
func (sv *SchemaValidator) coerce(fields map[string]interface{}) (core.Record, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	record := make(core.Record, len(fields))
	for _, name := range names {
		column, ok := sv.schema.Column(name)
		if !ok {
			return nil, core.NewValidationError(name, "unknown field")
		}
		value, err := sv.mapper.ConvertToColumnValue(fields[name], column.Type)
		if err != nil {
			return nil, &core.ValidationError{Field: name, Reason: err.Error()}
		}
		record[name] = value
	}
	return record, nil
}

// ParseID parses a primary key taken from a URL path.
func ParseID(raw string) (int64, error) {
	id, err := NewTypeMapper().toInt64(raw)
	if err != nil || id <= 0 {
		return 0, &core.MalformedRequestError{Reason: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}
