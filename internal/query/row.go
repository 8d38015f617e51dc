// ABOUTME: Column-ordered result rows returned by the query facade
// ABOUTME: Rows convert to render values without losing the column order

package query

import (
	"github.com/2389/coven-roster/internal/render"
	"github.com/2389/coven-roster/internal/store"
)

// Row is one result mapping. Columns keeps the order the values were
// selected in.
type Row struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value of column, or nil.
func (r Row) Get(column string) any {
	return r.Values[column]
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	return append([]string(nil), r.Columns...)
}

// Value converts the row for the renderer.
func (r Row) Value() render.Value {
	values := make([]any, len(r.Columns))
	for i, col := range r.Columns {
		values[i] = r.Values[col]
	}
	return render.FromRow(r.Columns, values)
}

func newRow(columns []string, values map[string]any) Row {
	return Row{Columns: columns, Values: values}
}

func rowsFromResult(rs *store.ResultSet) []Row {
	if rs == nil {
		return nil
	}
	maps := rs.Maps()
	rows := make([]Row, 0, len(maps))
	for _, m := range maps {
		rows = append(rows, newRow(rs.Columns, m))
	}
	return rows
}
