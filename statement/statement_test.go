package statement_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
	"github.com/warp/statement-viz/statement/store"
)

// =============================================================================
// STATEMENT CONSTRUCTION
// =============================================================================

func TestNewStatement_SortsRowsOldestFirst(t *testing.T) {
	rows := sample.CFRows()
	rows[0], rows[3] = rows[3], rows[0]

	st, err := statement.NewStatement(statement.CF, rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"2021.12", "2022.12", "2023.12", "2024.12"}, periodStrings(st.Periods()))
}

func TestNewStatement_MissingLineItem_SchemaMismatch(t *testing.T) {
	rows := sample.PLRows()
	delete(rows[2].Values, statement.SGA)

	_, err := statement.NewStatement(statement.PL, rows)

	require.ErrorIs(t, err, statement.ErrSchemaMismatch)
	var schemaErr *statement.SchemaMismatchError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, statement.SGA, schemaErr.Item)
	assert.Equal(t, statement.PL, schemaErr.Statement)
	assert.Equal(t, "2023.12", schemaErr.Period.String())
}

func TestNewStatement_DuplicatePeriodRejected(t *testing.T) {
	rows := sample.CFRows()
	rows = append(rows, rows[1])

	_, err := statement.NewStatement(statement.CF, rows)
	assert.Error(t, err)
}

func TestNewStatement_SegmentIsNotTabular(t *testing.T) {
	_, err := statement.NewStatement(statement.Segment, nil)
	assert.ErrorIs(t, err, statement.ErrUnknownStatement)
}

// =============================================================================
// LOOKUP
// =============================================================================

func TestStatementRow_NotFound(t *testing.T) {
	book := sample.Book()

	_, err := book.PL.Row(statement.MustParsePeriod("2019.12"))

	assert.ErrorIs(t, err, statement.ErrNotFound)
	assert.True(t, statement.IsNotFound(err))
}

func TestStatementPrevious_FirstPeriodIsNoPriorNotNotFound(t *testing.T) {
	book := sample.Book()

	_, err := book.PL.Previous(statement.MustParsePeriod("2021.12"))
	assert.ErrorIs(t, err, statement.ErrNoPriorPeriod)
	assert.False(t, statement.IsNotFound(err))

	_, err = book.PL.Previous(statement.MustParsePeriod("2018.12"))
	assert.ErrorIs(t, err, statement.ErrNotFound)

	prev, err := book.PL.Previous(statement.MustParsePeriod("2023.12"))
	require.NoError(t, err)
	assert.Equal(t, "2022.12", prev.Period.String())
}

func TestStatementResolve_DefaultsToLatest(t *testing.T) {
	book := sample.Book()

	p, err := book.BS.Resolve(statement.Period{})
	require.NoError(t, err)
	assert.Equal(t, "2024.12", p.String())

	_, err = book.BS.Resolve(statement.MustParsePeriod("2030.12"))
	assert.ErrorIs(t, err, statement.ErrNotFound)
}

func TestRowGet_MissingItem(t *testing.T) {
	row := statement.NewRow(statement.MustParsePeriod("2024"), map[statement.LineItem]decimal.Decimal{})

	_, err := row.Get(statement.Revenue)
	assert.ErrorIs(t, err, statement.ErrSchemaMismatch)
}

func TestBook_SegmentsAndDriversByPeriod(t *testing.T) {
	book := sample.Book()

	segs := book.SegmentsFor(statement.MustParsePeriod("2024.12"))
	require.Len(t, segs, 3)
	assert.Equal(t, "SaaS", segs[0].Name)

	drivers := book.DriversFor(statement.MustParsePeriod("2022.12"), statement.MustParsePeriod("2023.12"))
	require.Len(t, drivers, 3)
	assert.Equal(t, "販売数量増", drivers[0].Name)

	assert.Empty(t, book.DriversFor(statement.MustParsePeriod("2023.12"), statement.MustParsePeriod("2024.12")))
}

func TestResolveLineItem_AcceptsKeyOrLabel(t *testing.T) {
	item, ok := statement.ResolveLineItem(statement.PL, "営業収益")
	require.True(t, ok)
	assert.Equal(t, statement.Revenue, item)

	item, ok = statement.ResolveLineItem(statement.CF, "closing_cash")
	require.True(t, ok)
	assert.Equal(t, statement.ClosingCash, item)

	_, ok = statement.ResolveLineItem(statement.CF, "営業収益")
	assert.False(t, ok)
}

// =============================================================================
// STORE ROUND TRIP
// =============================================================================

func TestLoadBook_FromMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryFromBooks(sample.Book())

	book, err := statement.LoadBook(ctx, mem, sample.Code)
	require.NoError(t, err)

	assert.Equal(t, sample.Company().Name, book.Company.Name)
	assert.Equal(t, 4, book.PL.Len())
	assert.Equal(t, 4, book.BS.Len())
	assert.Equal(t, 4, book.CF.Len())
	assert.Len(t, book.Segments, 9)
	assert.Len(t, book.Drivers, 3)

	_, err = statement.LoadBook(ctx, mem, "0000")
	assert.ErrorIs(t, err, statement.ErrNotFound)
}

func periodStrings(ps []statement.Period) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
