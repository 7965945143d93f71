package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/armory/internal/core"
)

// CreateTableSQL returns an idempotent CREATE TABLE statement for a schema.
func CreateTableSQL(dialect Dialect, schema *core.Schema) string {
	definitions := make([]string, 0, len(schema.Columns)+1)
	definitions = append(definitions, dialect.PrimaryKeyDefinition(dialect.QuoteIdentifier(schema.PrimaryKey)))

	for _, col := range schema.Columns {
		def := fmt.Sprintf("%s %s", dialect.QuoteIdentifier(col.Name), dialect.ColumnType(col.Type))
		if !col.Nullable {
			def += " NOT NULL"
		}
		definitions = append(definitions, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		dialect.QuoteIdentifier(schema.TableName), strings.Join(definitions, ",\n\t"))
}
