package analysis

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// =============================================================================
// DASHBOARD
// =============================================================================

// SummaryItems are the PL headline figures shown on the dashboard.
var SummaryItems = []statement.LineItem{
	statement.Revenue,
	statement.OperatingProfit,
	statement.OrdinaryProfit,
	statement.NetIncome,
}

// Headline is one dashboard figure with its optional YoY.
type Headline struct {
	Item  statement.LineItem
	Value decimal.Decimal
	YoY   *YoY // nil on the first period
}

// CashOverview is the CF block of the dashboard.
type CashOverview struct {
	Operating   decimal.Decimal
	Investing   decimal.Decimal
	Financing   decimal.Decimal
	ClosingCash decimal.Decimal
	FreeCash    decimal.Decimal
	Pattern     CashFlowPattern
}

// Dashboard summarises one period of a company.
type Dashboard struct {
	Period    statement.Period
	Headlines []Headline
	Ratios    Ratios // percent
	Cash      CashOverview
}

// BuildDashboard assembles the dashboard of period p.
func BuildDashboard(book *statement.Book, p statement.Period) (Dashboard, error) {
	pl, err := book.PL.Row(p)
	if err != nil {
		return Dashboard{}, err
	}
	bs, err := book.BS.Row(p)
	if err != nil {
		return Dashboard{}, err
	}
	cf, err := book.CF.Row(p)
	if err != nil {
		return Dashboard{}, err
	}

	prev, err := book.PL.Previous(p)
	hasPrev := err == nil
	if err != nil && !errors.Is(err, statement.ErrNoPriorPeriod) {
		return Dashboard{}, err
	}

	dash := Dashboard{Period: p}
	for _, item := range SummaryItems {
		h := Headline{Item: item, Value: pl.Value(item)}
		if hasPrev {
			yoy, err := CompareRows(pl, prev, item)
			if err != nil {
				return Dashboard{}, err
			}
			h.YoY = &yoy
		}
		dash.Headlines = append(dash.Headlines, h)
	}

	ratios, err := ComputeRatios(pl, bs)
	if err != nil {
		return Dashboard{}, err
	}
	dash.Ratios = ratios.Percent()

	pattern, err := ClassifyRow(cf)
	if err != nil {
		return Dashboard{}, err
	}
	fcf, _ := FreeCashFlow(cf)
	dash.Cash = CashOverview{
		Operating:   cf.Value(statement.OperatingCF),
		Investing:   cf.Value(statement.InvestingCF),
		Financing:   cf.Value(statement.FinancingCF),
		ClosingCash: cf.Value(statement.ClosingCash),
		FreeCash:    fcf,
		Pattern:     pattern,
	}
	return dash, nil
}

// =============================================================================
// TREND HIGHLIGHTS
// =============================================================================

// Highlights compares the latest period with the one before it.
type Highlights struct {
	Period            statement.Period
	RevenueGrowth     decimal.Decimal // percent
	OperatingGrowth   decimal.Decimal // percent
	OperatingMargin   decimal.Decimal // percent
	MarginChange      decimal.Decimal // percentage points
	MarginImproved    bool
	EquityRatio       decimal.Decimal // percent
	FreeCashFlow      decimal.Decimal
	OperatingCashFlow decimal.Decimal
	InvestingCashFlow decimal.Decimal
}

// BuildHighlights computes the highlights of the latest period. It returns
// statement.ErrNoPriorPeriod when the PL has a single period.
func BuildHighlights(book *statement.Book) (Highlights, error) {
	latest, err := book.PL.Latest()
	if err != nil {
		return Highlights{}, err
	}
	prev, err := book.PL.Previous(latest.Period)
	if err != nil {
		return Highlights{}, err
	}

	rev := NewYoY(statement.Revenue, latest.Value(statement.Revenue), prev.Value(statement.Revenue))
	op := NewYoY(statement.OperatingProfit, latest.Value(statement.OperatingProfit), prev.Value(statement.OperatingProfit))

	margin := Percent(latest.Value(statement.OperatingProfit), latest.Value(statement.Revenue))
	prevMargin := Percent(prev.Value(statement.OperatingProfit), prev.Value(statement.Revenue))
	change := margin.Sub(prevMargin)

	h := Highlights{
		Period:          latest.Period,
		RevenueGrowth:   rev.Growth,
		OperatingGrowth: op.Growth,
		OperatingMargin: margin,
		MarginChange:    change,
		MarginImproved:  change.IsPositive(),
	}

	bs, err := book.BS.Latest()
	if err != nil {
		return Highlights{}, err
	}
	h.EquityRatio = Percent(bs.Value(statement.NetAssets), bs.Value(statement.TotalAssets))

	cf, err := book.CF.Latest()
	if err != nil {
		return Highlights{}, err
	}
	h.OperatingCashFlow = cf.Value(statement.OperatingCF)
	h.InvestingCashFlow = cf.Value(statement.InvestingCF)
	h.FreeCashFlow = h.OperatingCashFlow.Add(h.InvestingCashFlow)
	return h, nil
}
