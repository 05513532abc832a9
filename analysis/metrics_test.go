package analysis_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/analysis"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func rowOf(period string, values map[statement.LineItem]float64) statement.Row {
	m := make(map[statement.LineItem]decimal.Decimal, len(values))
	for k, v := range values {
		m[k] = dec(v)
	}
	return statement.NewRow(statement.MustParsePeriod(period), m)
}

func assertDecimal(t *testing.T, expected float64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Sub(actual).Abs().LessThan(dec(1e-9)),
		"expected %v, got %s", expected, actual.String())
}

// =============================================================================
// RATIOS
// =============================================================================

func TestComputeRatios(t *testing.T) {
	pl := rowOf("2024", map[statement.LineItem]float64{
		statement.Revenue:         1000,
		statement.GrossProfit:     400,
		statement.OperatingProfit: 150,
		statement.NetIncome:       100,
	})
	bs := rowOf("2024", map[statement.LineItem]float64{
		statement.NetAssets:   500,
		statement.TotalAssets: 2000,
	})

	r, err := analysis.ComputeRatios(pl, bs)
	require.NoError(t, err)

	assertDecimal(t, 0.15, r.OperatingMargin)
	assertDecimal(t, 0.4, r.GrossMargin)
	assertDecimal(t, 0.25, r.EquityRatio)
	assertDecimal(t, 0.2, r.ROE)
	assertDecimal(t, 0.05, r.ROA)

	pct := r.Percent()
	assertDecimal(t, 15, pct.OperatingMargin)
	assertDecimal(t, 25, pct.EquityRatio)
}

func TestComputeRatios_ZeroDenominatorsYieldZero(t *testing.T) {
	// GIVEN: a pre-IPO entity with no revenue and zero net/total assets
	pl := rowOf("2024", map[statement.LineItem]float64{
		statement.Revenue:         0,
		statement.GrossProfit:     -20,
		statement.OperatingProfit: -50,
		statement.NetIncome:       -60,
	})
	bs := rowOf("2024", map[statement.LineItem]float64{
		statement.NetAssets:   0,
		statement.TotalAssets: 0,
	})

	// WHEN
	r, err := analysis.ComputeRatios(pl, bs)

	// THEN: every ratio is exactly zero, no fault
	require.NoError(t, err)
	for name, v := range map[string]decimal.Decimal{
		"operating margin": r.OperatingMargin,
		"gross margin":     r.GrossMargin,
		"equity ratio":     r.EquityRatio,
		"roe":              r.ROE,
		"roa":              r.ROA,
	} {
		assert.True(t, v.IsZero(), name)
	}
}

func TestComputeRatios_MissingItem(t *testing.T) {
	pl := rowOf("2024", map[statement.LineItem]float64{statement.Revenue: 100})
	bs := rowOf("2024", map[statement.LineItem]float64{statement.NetAssets: 1, statement.TotalAssets: 2})

	_, err := analysis.ComputeRatios(pl, bs)
	assert.ErrorIs(t, err, statement.ErrSchemaMismatch)
}

func TestSafeDiv(t *testing.T) {
	assert.True(t, analysis.SafeDiv(dec(10), decimal.Zero).IsZero())
	assert.True(t, analysis.Percent(dec(10), decimal.Zero).IsZero())
	assertDecimal(t, 2.5, analysis.SafeDiv(dec(10), dec(4)))
	assertDecimal(t, 250, analysis.Percent(dec(10), dec(4)))
}

// =============================================================================
// YEAR OVER YEAR
// =============================================================================

func TestStatementYoY(t *testing.T) {
	book := sample.Book()

	yoy, err := analysis.StatementYoY(book.PL, statement.MustParsePeriod("2022.12"), statement.Revenue)
	require.NoError(t, err)

	assertDecimal(t, 11000, yoy.Current)
	assertDecimal(t, 10000, yoy.Previous)
	assertDecimal(t, 1000, yoy.Delta)
	assertDecimal(t, 10, yoy.Growth)
}

func TestStatementYoY_FirstPeriodSignalsNoPrior(t *testing.T) {
	book := sample.Book()

	_, err := analysis.StatementYoY(book.PL, statement.MustParsePeriod("2021.12"), statement.Revenue)

	assert.ErrorIs(t, err, statement.ErrNoPriorPeriod)
	assert.NotErrorIs(t, err, statement.ErrNotFound)
}

func TestStatementYoY_UnknownPeriodIsNotFound(t *testing.T) {
	book := sample.Book()

	_, err := analysis.StatementYoY(book.PL, statement.MustParsePeriod("2030.12"), statement.Revenue)
	assert.ErrorIs(t, err, statement.ErrNotFound)
}

func TestNewYoY_ZeroPreviousGrowthIsZero(t *testing.T) {
	yoy := analysis.NewYoY(statement.NetIncome, dec(50), decimal.Zero)

	assertDecimal(t, 50, yoy.Delta)
	assert.True(t, yoy.Growth.IsZero())
}

// =============================================================================
// CASH-FLOW PATTERN
// =============================================================================

func TestClassifyCashFlow_AllSignCombinations(t *testing.T) {
	pos, neg := dec(100), dec(-100)
	tests := []struct {
		name         string
		op, inv, fin decimal.Decimal
		expected     analysis.CashFlowPattern
	}{
		{"+ - -", pos, neg, neg, analysis.PatternHealthy},
		{"+ - +", pos, neg, pos, analysis.PatternGrowth},
		{"+ + -", pos, pos, neg, analysis.PatternDivestment},
		{"+ + +", pos, pos, pos, analysis.PatternOther},
		{"- - -", neg, neg, neg, analysis.PatternOther},
		{"- - +", neg, neg, pos, analysis.PatternOther},
		{"- + -", neg, pos, neg, analysis.PatternOther},
		{"- + +", neg, pos, pos, analysis.PatternOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, analysis.ClassifyCashFlow(tt.op, tt.inv, tt.fin))
		})
	}
}

func TestClassifyCashFlow_ZeroIsNonNegative(t *testing.T) {
	zero, neg := decimal.Zero, dec(-1)

	// Zero financing is not an outflow: growth, not healthy.
	assert.Equal(t, analysis.PatternGrowth, analysis.ClassifyCashFlow(dec(1), neg, zero))
	// Zero investing is not an outflow: divestment.
	assert.Equal(t, analysis.PatternDivestment, analysis.ClassifyCashFlow(dec(1), zero, neg))
	// Zero operating counts on the non-negative side.
	assert.Equal(t, analysis.PatternHealthy, analysis.ClassifyCashFlow(zero, neg, neg))
	assert.Equal(t, analysis.PatternOther, analysis.ClassifyCashFlow(zero, zero, zero))
}

func TestCashFlowPattern_LabelsAndDescriptions(t *testing.T) {
	for _, p := range []analysis.CashFlowPattern{
		analysis.PatternHealthy, analysis.PatternGrowth, analysis.PatternDivestment, analysis.PatternOther,
	} {
		assert.NotEmpty(t, p.Label(), p)
		assert.NotEmpty(t, p.Description(), p)
	}
	assert.Equal(t, "優良型", analysis.PatternHealthy.Label())
}

func TestClassifyRowAndFreeCashFlow(t *testing.T) {
	book := sample.Book()
	row, err := book.CF.Row(statement.MustParsePeriod("2024.12"))
	require.NoError(t, err)

	pattern, err := analysis.ClassifyRow(row)
	require.NoError(t, err)
	assert.Equal(t, analysis.PatternHealthy, pattern)

	fcf, err := analysis.FreeCashFlow(row)
	require.NoError(t, err)
	assertDecimal(t, 1000, fcf)
}
