/*
Package analysis derives metrics from statement rows.

PURPOSE:
  Pure functions over one or two rows: profitability and balance-sheet
  ratios, period-over-period deltas and growth rates, cash-flow pattern
  classification and free cash flow.

ZERO-DENOMINATOR CONTRACT:
  Every ratio and growth rate with a zero denominator yields exactly 0.
  A newly reorganized entity with zero net assets renders as "0%", it
  never faults.

NO PRIOR PERIOD:
  YoY on the first period returns statement.ErrNoPriorPeriod. A zero is
  never fabricated for a comparison that does not exist.

SEE ALSO:
  - summary.go: dashboard and trend highlights built from these metrics
  - viz/: builders consuming these metrics
*/
package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

var hundred = decimal.NewFromInt(100)

// SafeDiv returns n/d, or zero when d is zero.
func SafeDiv(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}

// Percent returns n/d*100, or zero when d is zero.
func Percent(n, d decimal.Decimal) decimal.Decimal {
	return SafeDiv(n, d).Mul(hundred)
}

// =============================================================================
// RATIOS
// =============================================================================

// Ratios holds the headline ratios of one period as fractions (0.15 = 15%).
type Ratios struct {
	OperatingMargin decimal.Decimal
	GrossMargin     decimal.Decimal
	EquityRatio     decimal.Decimal
	ROE             decimal.Decimal
	ROA             decimal.Decimal
}

// ComputeRatios derives ratios from the PL and BS rows of the same period.
func ComputeRatios(pl, bs statement.Row) (Ratios, error) {
	p := newGetter(pl, statement.PL)
	revenue := p.get(statement.Revenue)
	operating := p.get(statement.OperatingProfit)
	gross := p.get(statement.GrossProfit)
	net := p.get(statement.NetIncome)

	b := newGetter(bs, statement.BS)
	netAssets := b.get(statement.NetAssets)
	totalAssets := b.get(statement.TotalAssets)

	if err := firstErr(p.err, b.err); err != nil {
		return Ratios{}, err
	}

	return Ratios{
		OperatingMargin: SafeDiv(operating, revenue),
		GrossMargin:     SafeDiv(gross, revenue),
		EquityRatio:     SafeDiv(netAssets, totalAssets),
		ROE:             SafeDiv(net, netAssets),
		ROA:             SafeDiv(net, totalAssets),
	}, nil
}

// Percent returns the ratios scaled to percent.
func (r Ratios) Percent() Ratios {
	return Ratios{
		OperatingMargin: r.OperatingMargin.Mul(hundred),
		GrossMargin:     r.GrossMargin.Mul(hundred),
		EquityRatio:     r.EquityRatio.Mul(hundred),
		ROE:             r.ROE.Mul(hundred),
		ROA:             r.ROA.Mul(hundred),
	}
}

// =============================================================================
// YEAR OVER YEAR
// =============================================================================

// YoY compares one line item between a period and its predecessor.
type YoY struct {
	Item     statement.LineItem
	Current  decimal.Decimal
	Previous decimal.Decimal
	Delta    decimal.Decimal // Current - Previous
	Growth   decimal.Decimal // Delta / Previous * 100, 0 when Previous is 0
}

// CompareRows computes the YoY of item between two rows.
func CompareRows(current, previous statement.Row, item statement.LineItem) (YoY, error) {
	cur, err := current.Get(item)
	if err != nil {
		return YoY{}, err
	}
	prev, err := previous.Get(item)
	if err != nil {
		return YoY{}, err
	}
	return NewYoY(item, cur, prev), nil
}

// NewYoY computes delta and growth from two values.
func NewYoY(item statement.LineItem, current, previous decimal.Decimal) YoY {
	delta := current.Sub(previous)
	return YoY{
		Item:     item,
		Current:  current,
		Previous: previous,
		Delta:    delta,
		Growth:   Percent(delta, previous),
	}
}

// StatementYoY computes the YoY of item at period p. It returns
// statement.ErrNoPriorPeriod for the first period of the statement.
func StatementYoY(st *statement.Statement, p statement.Period, item statement.LineItem) (YoY, error) {
	current, err := st.Row(p)
	if err != nil {
		return YoY{}, err
	}
	previous, err := st.Previous(p)
	if err != nil {
		return YoY{}, err
	}
	return CompareRows(current, previous, item)
}

// =============================================================================
// CASH-FLOW PATTERN
// =============================================================================

// CashFlowPattern classifies the sign combination of operating, investing
// and financing cash flow.
type CashFlowPattern string

const (
	PatternHealthy    CashFlowPattern = "healthy"
	PatternGrowth     CashFlowPattern = "growth"
	PatternDivestment CashFlowPattern = "divestment"
	PatternOther      CashFlowPattern = "other"
)

var patternInfo = map[CashFlowPattern]struct{ label, description string }{
	PatternHealthy: {"優良型",
		"本業で稼いだ資金で投資と借入返済・配当を行っている健全なパターン。"},
	PatternGrowth: {"積極投資型",
		"本業の稼ぎに加え、借入で資金調達し積極的に投資している成長企業のパターン。"},
	PatternDivestment: {"リストラ型",
		"本業で稼ぎつつ、資産売却で投資回収し借入返済に充てているパターン。"},
	PatternOther: {"その他",
		"一般的な分類に当てはまらないパターン。個別の事情を確認してください。"},
}

// Label returns the display name of the pattern.
func (p CashFlowPattern) Label() string { return patternInfo[p].label }

// Description explains the pattern to a reader.
func (p CashFlowPattern) Description() string { return patternInfo[p].description }

// ClassifyCashFlow maps the signs of the three cash flows to a pattern.
// Zero counts as non-negative.
//
//	operating  investing  financing  pattern
//	   +          -          -       healthy
//	   +          -          +       growth
//	   +          +          -       divestment
//	 anything else                   other
func ClassifyCashFlow(operating, investing, financing decimal.Decimal) CashFlowPattern {
	if operating.IsNegative() {
		return PatternOther
	}
	switch invOut, finOut := investing.IsNegative(), financing.IsNegative(); {
	case invOut && finOut:
		return PatternHealthy
	case invOut && !finOut:
		return PatternGrowth
	case !invOut && finOut:
		return PatternDivestment
	default:
		return PatternOther
	}
}

// ClassifyRow classifies a CF row.
func ClassifyRow(cf statement.Row) (CashFlowPattern, error) {
	g := newGetter(cf, statement.CF)
	op, inv, fin := g.get(statement.OperatingCF), g.get(statement.InvestingCF), g.get(statement.FinancingCF)
	if g.err != nil {
		return "", g.err
	}
	return ClassifyCashFlow(op, inv, fin), nil
}

// FreeCashFlow is operating CF + investing CF.
func FreeCashFlow(cf statement.Row) (decimal.Decimal, error) {
	g := newGetter(cf, statement.CF)
	fcf := g.get(statement.OperatingCF).Add(g.get(statement.InvestingCF))
	if g.err != nil {
		return decimal.Zero, g.err
	}
	return fcf, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// getter reads several line items and keeps the first schema error.
type getter struct {
	row statement.Row
	t   statement.StatementType
	err error
}

func newGetter(row statement.Row, t statement.StatementType) *getter {
	return &getter{row: row, t: t}
}

func (g *getter) get(item statement.LineItem) decimal.Decimal {
	v, err := g.row.Get(item)
	if err != nil && g.err == nil {
		g.err = fmt.Errorf("%s: %w", g.t, err)
	}
	return v
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
