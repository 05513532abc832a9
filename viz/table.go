package viz

import (
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// Table is a statement laid out for display: one row per period, one
// column per line item in vocabulary order.
type Table struct {
	Statement statement.StatementType
	Columns   []statement.LineItem
	Headers   []string
	Rows      []TableRow
}

// TableRow is one period of a Table.
type TableRow struct {
	Period statement.Period
	Label  string
	Values []decimal.Decimal
}

// BuildTable lays out every row of st, oldest first.
func BuildTable(st *statement.Statement) Table {
	cols := statement.Vocabulary(st.Type)
	t := Table{Statement: st.Type, Columns: cols, Headers: make([]string, len(cols))}
	for i, c := range cols {
		t.Headers[i] = c.Label()
	}
	for _, r := range st.Rows() {
		tr := TableRow{Period: r.Period, Label: r.Period.Label(), Values: make([]decimal.Decimal, len(cols))}
		for i, c := range cols {
			tr.Values[i] = r.Value(c)
		}
		t.Rows = append(t.Rows, tr)
	}
	return t
}
