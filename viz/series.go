package viz

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/analysis"
	"github.com/warp/statement-viz/statement"
)

// Series is one named line of a trend chart.
type Series struct {
	Name   string
	Item   statement.LineItem // empty for computed series
	Unit   string
	Values []decimal.Decimal
}

// SeriesSet is a multi-line chart over a shared period axis. Every series
// has exactly len(Axis) values.
type SeriesSet struct {
	Title   string
	Axis    []string
	Periods []statement.Period
	Series  []Series
}

const (
	unitAmount  = "百万円"
	unitPercent = "%"
)

// BuildSeries plots columns of st over every period, oldest first. Every
// row must carry every column; nothing is interpolated.
func BuildSeries(st *statement.Statement, columns []statement.LineItem) (SeriesSet, error) {
	if len(columns) == 0 {
		return SeriesSet{}, fmt.Errorf("%w: no columns requested", statement.ErrInvalidArgument)
	}
	for _, c := range columns {
		if !statement.Declares(st.Type, c) {
			return SeriesSet{}, fmt.Errorf("%w: %s has no column %q", statement.ErrInvalidArgument, st.Type, c)
		}
	}

	rows := st.Rows()
	set := newSeriesSet(rows)
	for _, c := range columns {
		s := Series{Name: c.Label(), Item: c, Unit: unitAmount, Values: make([]decimal.Decimal, 0, len(rows))}
		for _, r := range rows {
			v, err := r.Get(c)
			if err != nil {
				return SeriesSet{}, err
			}
			s.Values = append(s.Values, v)
		}
		set.Series = append(set.Series, s)
	}
	return set, nil
}

func newSeriesSet(rows []statement.Row) SeriesSet {
	set := SeriesSet{
		Axis:    make([]string, len(rows)),
		Periods: make([]statement.Period, len(rows)),
	}
	for i, r := range rows {
		set.Axis[i] = r.Period.Label()
		set.Periods[i] = r.Period
	}
	return set
}

// =============================================================================
// DERIVED SERIES
// =============================================================================

// DerivedKind names a computed trend chart.
type DerivedKind string

const (
	DerivedMargins     DerivedKind = "margins"
	DerivedGrowth      DerivedKind = "growth"
	DerivedEquityRatio DerivedKind = "equity_ratio"
	DerivedCash        DerivedKind = "cash"
)

// ParseDerivedKind validates a derived series tag.
func ParseDerivedKind(s string) (DerivedKind, error) {
	switch k := DerivedKind(s); k {
	case DerivedMargins, DerivedGrowth, DerivedEquityRatio, DerivedCash:
		return k, nil
	}
	return "", fmt.Errorf("%w: derived series %q", statement.ErrInvalidArgument, s)
}

type ratioSpec struct {
	name string
	num  statement.LineItem
	den  statement.LineItem
}

// BuildDerivedSeries computes one of the derived trend charts. Percent
// values are rounded to one decimal.
func BuildDerivedSeries(book *statement.Book, kind DerivedKind) (SeriesSet, error) {
	switch kind {
	case DerivedMargins:
		set, err := ratioSeries(book.PL, []ratioSpec{
			{"営業利益率", statement.OperatingProfit, statement.Revenue},
			{"売上総利益率", statement.GrossProfit, statement.Revenue},
			{"純利益率", statement.NetIncome, statement.Revenue},
		})
		set.Title = "利益率の推移"
		return set, err
	case DerivedEquityRatio:
		set, err := ratioSeries(book.BS, []ratioSpec{
			{"自己資本比率", statement.NetAssets, statement.TotalAssets},
		})
		set.Title = "自己資本比率の推移"
		return set, err
	case DerivedGrowth:
		return growthSeries(book.PL)
	case DerivedCash:
		return cashSeries(book.CF)
	default:
		return SeriesSet{}, fmt.Errorf("%w: derived series %q", statement.ErrInvalidArgument, kind)
	}
}

func ratioSeries(st *statement.Statement, specs []ratioSpec) (SeriesSet, error) {
	rows := st.Rows()
	set := newSeriesSet(rows)
	for _, sp := range specs {
		s := Series{Name: sp.name, Unit: unitPercent}
		for _, r := range rows {
			num, err := r.Get(sp.num)
			if err != nil {
				return SeriesSet{}, err
			}
			den, err := r.Get(sp.den)
			if err != nil {
				return SeriesSet{}, err
			}
			s.Values = append(s.Values, analysis.Percent(num, den).Round(1))
		}
		set.Series = append(set.Series, s)
	}
	return set, nil
}

// growthSeries drops the first period: it has nothing to grow from.
func growthSeries(pl *statement.Statement) (SeriesSet, error) {
	specs := []struct {
		name string
		item statement.LineItem
	}{
		{"売上成長率", statement.Revenue},
		{"営業利益成長率", statement.OperatingProfit},
		{"純利益成長率", statement.NetIncome},
	}

	rows := pl.Rows()
	if len(rows) < 2 {
		return SeriesSet{}, fmt.Errorf("growth series: %w", statement.ErrNoPriorPeriod)
	}
	set := newSeriesSet(rows[1:])
	set.Title = "前年比成長率の推移"
	for _, sp := range specs {
		s := Series{Name: sp.name, Unit: unitPercent}
		for i := 1; i < len(rows); i++ {
			yoy, err := analysis.CompareRows(rows[i], rows[i-1], sp.item)
			if err != nil {
				return SeriesSet{}, err
			}
			s.Values = append(s.Values, yoy.Growth.Round(1))
		}
		set.Series = append(set.Series, s)
	}
	return set, nil
}

func cashSeries(cf *statement.Statement) (SeriesSet, error) {
	rows := cf.Rows()
	set := newSeriesSet(rows)
	set.Title = "FCF・現金残高の推移"
	fcf := Series{Name: "FCF", Unit: unitAmount}
	closing := Series{Name: statement.ClosingCash.Label(), Item: statement.ClosingCash, Unit: unitAmount}
	for _, r := range rows {
		v, err := analysis.FreeCashFlow(r)
		if err != nil {
			return SeriesSet{}, err
		}
		c, err := r.Get(statement.ClosingCash)
		if err != nil {
			return SeriesSet{}, err
		}
		fcf.Values = append(fcf.Values, v)
		closing.Values = append(closing.Values, c)
	}
	set.Series = []Series{fcf, closing}
	return set, nil
}
