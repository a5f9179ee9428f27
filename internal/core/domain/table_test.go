package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func parksTable() *Table {
	return &Table{
		Name:    "parks",
		Columns: []string{"OBJECTID", "NAME"},
		Rows: [][]string{
			{"1", "Griffith"},
			{"2", "Elysian"},
		},
	}
}

func TestTable_RowCount(t *testing.T) {
	assert.Equal(t, 2, parksTable().RowCount())

	var nilTable *Table
	assert.Equal(t, 0, nilTable.RowCount())
}

func TestTable_Value(t *testing.T) {
	table := parksTable()

	v, ok := table.Value(1, "NAME")
	assert.True(t, ok)
	assert.Equal(t, "Elysian", v)

	_, ok = table.Value(0, "MISSING")
	assert.False(t, ok)
	_, ok = table.Value(5, "NAME")
	assert.False(t, ok)
	_, ok = table.Value(-1, "NAME")
	assert.False(t, ok)
}

func TestTable_Records(t *testing.T) {
	records := parksTable().Records()

	assert.Equal(t, []map[string]string{
		{"OBJECTID": "1", "NAME": "Griffith"},
		{"OBJECTID": "2", "NAME": "Elysian"},
	}, records)
}

func TestTableSet(t *testing.T) {
	set := TableSet{
		"trails": {Name: "trails", Rows: [][]string{{"a"}, {"b"}, {"c"}}},
		"parks":  parksTable(),
	}

	assert.Equal(t, []string{"parks", "trails"}, set.Names())
	assert.Equal(t, 5, set.TotalRows())
	assert.Empty(t, TableSet{}.Names())
}
