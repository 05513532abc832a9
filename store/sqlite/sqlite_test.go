package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
	"github.com/warp/statement-viz/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveBookAndLoadBook_RoundTrip(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	s := newStore(t)
	original := sample.Book()

	// WHEN
	require.NoError(t, s.SaveBook(ctx, original))
	book, err := statement.LoadBook(ctx, s, sample.Code)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, original.Company, book.Company)
	assert.Equal(t, original.PL.Periods(), book.PL.Periods())
	assert.Equal(t, original.BS.Len(), book.BS.Len())

	p := statement.MustParsePeriod("2024.12")
	want, err := original.BS.Row(p)
	require.NoError(t, err)
	got, err := book.BS.Row(p)
	require.NoError(t, err)
	for _, item := range statement.Vocabulary(statement.BS) {
		assert.True(t, want.Value(item).Equal(got.Value(item)), item)
	}

	require.Len(t, book.Segments, len(original.Segments))
	assert.Equal(t, "Marketplace", book.Segments[8].Name)
	require.Len(t, book.Drivers, 3)
	assert.Equal(t, "販売数量増", book.Drivers[0].Name)
	assert.True(t, book.Drivers[2].Amount.Equal(original.Drivers[2].Amount))
	assert.Len(t, book.DriversFor(statement.MustParsePeriod("2022.12"), statement.MustParsePeriod("2023.12")), 3)
}

func TestSaveBook_ReplacesPreviousImport(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveBook(ctx, sample.Book()))

	// second import drops the driver file and a period
	book := sample.Book()
	book.Drivers = nil
	pl, err := statement.NewStatement(statement.PL, sample.PLRows()[1:])
	require.NoError(t, err)
	book.PL = pl
	require.NoError(t, s.SaveBook(ctx, book))

	drivers, err := s.LoadDrivers(ctx, sample.Code)
	require.NoError(t, err)
	assert.Empty(t, drivers)

	rows, err := s.LoadRows(ctx, sample.Code, statement.PL)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestListCompanies_OrderedByCode(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	other := sample.Book()
	other.Company = statement.Company{Code: "1001", Name: "First"}
	require.NoError(t, s.SaveBook(ctx, sample.Book()))
	require.NoError(t, s.SaveBook(ctx, other))

	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "1001", companies[0].Code)
	assert.Equal(t, sample.Code, companies[1].Code)
	assert.Empty(t, companies[0].Market)
}

func TestUnknownCompanyIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetCompany(ctx, "9999")
	assert.ErrorIs(t, err, statement.ErrNotFound)

	_, err = s.LoadRows(ctx, "9999", statement.PL)
	assert.ErrorIs(t, err, statement.ErrNotFound)

	_, err = statement.LoadBook(ctx, s, "9999")
	assert.True(t, statement.IsNotFound(err))
}

func TestImportRuns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first := &statement.ImportRun{
		Source:     "./data",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Companies:  []string{"5139"},
		Rows:       21,
	}
	second := &statement.ImportRun{
		Source:     "./data",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Second),
		Failures:   []string{"0002: schema mismatch"},
	}
	require.NoError(t, s.RecordImportRun(ctx, first))
	require.NoError(t, s.RecordImportRun(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := s.ListImportRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.False(t, runs[0].Succeeded())
	assert.Equal(t, []string{"5139"}, runs[1].Companies)
	assert.Equal(t, 21, runs[1].Rows)
	assert.True(t, runs[1].StartedAt.Equal(start))

	limited, err := s.ListImportRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveBook(ctx, sample.Book()))

	require.NoError(t, s.Reset(ctx))

	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)
}
