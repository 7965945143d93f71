package schema

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rzpsarthak13/armory/internal/core"
)

// TypeMapper handles mapping between decoded request values, Go types and
// database column types.
type TypeMapper struct{}

// NewTypeMapper creates a new type mapper.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// ConvertToColumnValue coerces a decoded request value into the Go type of the
// column. JSON numbers arrive as float64 or json.Number, form values as
// strings; both end up in the same representation.
func (tm *TypeMapper) ConvertToColumnValue(value interface{}, colType core.ColumnType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	// An empty form field means "no value" for every non-text column.
	if s, ok := value.(string); ok && colType != core.TypeText && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	switch colType {
	case core.TypeInteger:
		return tm.toInt64(value)
	case core.TypeBoolean:
		return tm.toBool(value)
	case core.TypeFloat:
		return tm.toFloat64(value)
	case core.TypeText:
		return tm.toString(value)
	default:
		return nil, fmt.Errorf("unsupported column type %q", colType)
	}
}

// NewScanTarget returns a pointer suitable for sql.Rows.Scan for a column type.
func (tm *TypeMapper) NewScanTarget(colType core.ColumnType) interface{} {
	switch colType {
	case core.TypeInteger:
		return new(sql.NullInt64)
	case core.TypeBoolean:
		return new(sql.NullBool)
	case core.TypeFloat:
		return new(sql.NullFloat64)
	default:
		return new(sql.NullString)
	}
}

// ConvertFromScanTarget unwraps a scan target produced by NewScanTarget.
func (tm *TypeMapper) ConvertFromScanTarget(target interface{}) (interface{}, error) {
	switch v := target.(type) {
	case *sql.NullInt64:
		if !v.Valid {
			return nil, nil
		}
		return v.Int64, nil
	case *sql.NullBool:
		if !v.Valid {
			return nil, nil
		}
		return v.Bool, nil
	case *sql.NullFloat64:
		if !v.Valid {
			return nil, nil
		}
		return v.Float64, nil
	case *sql.NullString:
		if !v.Valid {
			return nil, nil
		}
		return v.String, nil
	default:
		return nil, fmt.Errorf("unsupported scan target %T", target)
	}
}

// Helper conversion functions

func (tm *TypeMapper) toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("expected an integer, got %v", v)
		}
		if v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("integer %v out of range", v)
		}
		return int64(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", v.String())
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", describe(value))
	}
}

func (tm *TypeMapper) toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", describe(value))
	}
}

func (tm *TypeMapper) toString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("expected a string, got %s", describe(value))
	}
}

func (tm *TypeMapper) toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		// Form submissions commonly send "on" for a checked checkbox.
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return true, nil
		case "false", "0", "off", "no":
			return false, nil
		}
		return false, fmt.Errorf("expected a boolean, got %q", v)
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
		return false, fmt.Errorf("expected a boolean, got %v", v)
	case json.Number:
		// JSON 0 and 1 read the same as the form values "0" and "1".
		if f, err := v.Float64(); err == nil && (f == 0 || f == 1) {
			return f == 1, nil
		}
		return false, fmt.Errorf("expected a boolean, got %s", v.String())
	default:
		return false, fmt.Errorf("expected a boolean, got %s", describe(value))
	}
}

// describe names the JSON kind of a decoded value for error messages.
func describe(value interface{}) string {
	switch value.(type) {
	case map[string]interface{}:
		return "an object"
	case []interface{}:
		return "an array"
	case bool:
		return "a boolean"
	case float64, json.Number:
		return "a number"
	case string:
		return "a string"
	default:
		return fmt.Sprintf("%T", value)
	}
}
