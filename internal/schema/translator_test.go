package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/armory/internal/core"
)

// quoteDialect is a minimal dialect that double-quotes identifiers.
type quoteDialect struct{}

func (quoteDialect) Name() string                       { return "test" }
func (quoteDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (quoteDialect) InsertDefaults(table string) string { return "INSERT INTO " + table + " DEFAULT VALUES" }
func (quoteDialect) PrimaryKeyDefinition(q string) string {
	return q + " INTEGER PRIMARY KEY AUTOINCREMENT"
}
func (quoteDialect) ColumnType(colType core.ColumnType) string {
	return strings.ToUpper(string(colType))
}

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if err := scanInto(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func scanInto(dest, value interface{}) error {
	type scanner interface{ Scan(interface{}) error }
	return dest.(scanner).Scan(value)
}

func TestTranslator_Statements(t *testing.T) {
	tr := NewTranslator(quoteDialect{})
	s := potionSchema()

	assert.Equal(t,
		`SELECT "id", "name", "effect", "potency", "price" FROM "potions" ORDER BY "id" ASC`,
		tr.SelectAll(s))
	assert.Equal(t,
		`SELECT "id", "name", "effect", "potency", "price" FROM "potions" WHERE "id" = ?`,
		tr.SelectByID(s))
	assert.Equal(t, `DELETE FROM "potions" WHERE "id" = ?`, tr.Delete(s))
}

func TestTranslator_InsertFollowsSchemaOrder(t *testing.T) {
	tr := NewTranslator(quoteDialect{})

	query, args := tr.Insert(potionSchema(), core.Record{"price": 2.5, "name": "elixir"})
	assert.Equal(t, `INSERT INTO "potions" ("name", "price") VALUES (?, ?)`, query)
	assert.Equal(t, []interface{}{"elixir", 2.5}, args)

	query, args = tr.Insert(potionSchema(), core.Record{})
	assert.Equal(t, `INSERT INTO "potions" DEFAULT VALUES`, query)
	assert.Empty(t, args)
}

func TestTranslator_Update(t *testing.T) {
	tr := NewTranslator(quoteDialect{})

	query, args, err := tr.Update(potionSchema(), 9, core.Record{"potency": int64(3), "effect": nil})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "potions" SET "effect" = ?, "potency" = ? WHERE "id" = ?`, query)
	assert.Equal(t, []interface{}{nil, int64(3), int64(9)}, args)

	_, _, err = tr.Update(potionSchema(), 9, core.Record{})
	assert.Error(t, err)
}

func TestTranslator_ScanRecord(t *testing.T) {
	tr := NewTranslator(quoteDialect{})

	record, err := tr.ScanRecord(fakeRow{values: []interface{}{int64(1), "elixir", nil, int64(4), 2.5}}, potionSchema())
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"id":      int64(1),
		"name":    "elixir",
		"effect":  nil,
		"potency": int64(4),
		"price":   2.5,
	}, record)

	scanErr := errors.New("boom")
	_, err = tr.ScanRecord(fakeRow{err: scanErr}, potionSchema())
	assert.ErrorIs(t, err, scanErr)
}

func TestCreateTableSQL(t *testing.T) {
	stmt := CreateTableSQL(quoteDialect{}, potionSchema())

	assert.True(t, strings.HasPrefix(stmt, `CREATE TABLE IF NOT EXISTS "potions"`))
	assert.Contains(t, stmt, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	assert.Contains(t, stmt, `"name" TEXT NOT NULL`)
	assert.Contains(t, stmt, `"price" FLOAT`)
	assert.NotContains(t, stmt, `"effect" TEXT NOT NULL`)
}
