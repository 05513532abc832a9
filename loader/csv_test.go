package loader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/loader"
	"github.com/warp/statement-viz/statement"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"1,234", "1234"},
		{"+150", "150"},
		{"−250", "-250"},
		{"-30", "-30"},
		{" 12.5 ", "12.5"},
		{"＋1,000", "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := loader.ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.String())
		})
	}

	_, err := loader.ParseAmount("")
	assert.Error(t, err)
	_, err = loader.ParseAmount("n/a")
	assert.Error(t, err)
}

func TestReadStatementCSV_EnglishHeadersAndBOM(t *testing.T) {
	// GIVEN: English keys, a BOM, an extra column and unsorted periods
	in := "\ufeffperiod,opening_cash,operating_cf,investing_cf,financing_cf,closing_cash,memo\n" +
		"2024.12,100,50,-20,-10,120,x\n" +
		"2023.12,\"1,000\",50,-20,-10,1020,y\n"

	// WHEN
	rows, err := loader.ReadStatementCSV(strings.NewReader(in), statement.CF)

	// THEN: rows come back in file order; sorting is NewStatement's job
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024.12", rows[0].Period.String())
	assert.Equal(t, "1000", rows[1].Value(statement.OpeningCash).String())
	assert.Len(t, rows[0].Values, 5)

	st, err := statement.NewStatement(statement.CF, rows)
	require.NoError(t, err)
	assert.Equal(t, "2023.12", st.Periods()[0].String())
}

func TestReadStatementCSV_InvalidPeriod(t *testing.T) {
	in := "期,期首現金,営業CF,投資CF,財務CF,期末現金\nFY24,1,2,3,4,5\n"

	_, err := loader.ReadStatementCSV(strings.NewReader(in), statement.CF)
	assert.ErrorIs(t, err, statement.ErrInvalidPeriod)
}

func TestReadStatementCSV_NoPeriodColumn(t *testing.T) {
	_, err := loader.ReadStatementCSV(strings.NewReader("opening_cash\n1\n"), statement.CF)
	assert.ErrorIs(t, err, statement.ErrSchemaMismatch)
}

func TestReadSegmentsCSV(t *testing.T) {
	in := "period,segment,revenue,operating_profit\n2024.12,SaaS,\"9,200\",2000\n2024.12,New,500,−50\n"

	rows, err := loader.ReadSegmentsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SaaS", rows[0].Name)
	assert.Equal(t, "9200", rows[0].Revenue.String())
	assert.Equal(t, "-50", rows[1].OperatingProfit.String())
}

func TestReadFactorsCSV_PriorColumnAndInference(t *testing.T) {
	periods := []statement.Period{
		statement.MustParsePeriod("2022.12"),
		statement.MustParsePeriod("2023.12"),
		statement.MustParsePeriod("2024.12"),
	}
	in := "期,前期,要因,金額\n2024.12,,値上げ,+100\n2024.12,2022.12,二期比較,+300\n"

	drivers, err := loader.ReadFactorsCSV(strings.NewReader(in), periods)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.Equal(t, "2023.12", drivers[0].Prior.String())
	assert.Equal(t, "2022.12", drivers[1].Prior.String())
}

func TestReadFactorsCSV_FirstPeriodHasNoPrior(t *testing.T) {
	periods := []statement.Period{statement.MustParsePeriod("2023.12")}

	_, err := loader.ReadFactorsCSV(strings.NewReader("期,要因,金額\n2023.12,x,1\n"), periods)
	assert.ErrorIs(t, err, statement.ErrNoPriorPeriod)
}
