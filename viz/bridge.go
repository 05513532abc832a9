/*
bridge.go - Waterfall (bridge) sequences

PURPOSE:
  A bridge walks from a starting total to an ending total through named
  deltas: [absolute start] + [relative steps...] + [total end].

MODES:
  drivers   curated DriverAdjustments for the (prior, current) pair, in source order
  fallback  no drivers recorded: revenue delta, -cost of sales delta, -SG&A delta
  cash      opening cash, operating/investing/financing CF, closing cash

SUM INVARIANT:
  absolute + sum(relative) == total within tolerance * max(|total|, 1).
  A miss is attached to the bridge as a warning (Violation); the bridge is
  still returned. With ReconcileResidual the miss becomes a residual step.

SEE ALSO:
  - statement/errors.go: InvariantViolation
  - DeltaList (below): BS period-over-period changes, relative steps only
*/
package viz

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// =============================================================================
// TYPES
// =============================================================================

// Measure tags how a step is drawn.
type Measure string

const (
	Absolute Measure = "absolute"
	Relative Measure = "relative"
	Total    Measure = "total"
)

// Step is one bar of a bridge.
type Step struct {
	Label   string
	Measure Measure
	Value   decimal.Decimal
}

// BridgeMode records how the relative steps were obtained.
type BridgeMode string

const (
	ModeDrivers  BridgeMode = "drivers"
	ModeFallback BridgeMode = "fallback"
	ModeCash     BridgeMode = "cash"
)

// Bridge is an ordered waterfall sequence.
type Bridge struct {
	Title      string
	Mode       BridgeMode
	Steps      []Step
	Reconciled bool                          // a residual step was appended
	Violation  *statement.InvariantViolation // nil when the steps add up
}

// Sum returns absolute + sum(relative) and the total step value.
func (b Bridge) Sum() (actual, expected decimal.Decimal) {
	for _, s := range b.Steps {
		switch s.Measure {
		case Absolute, Relative:
			actual = actual.Add(s.Value)
		case Total:
			expected = s.Value
		}
	}
	return actual, expected
}

// CheckBridge verifies the sum invariant with relative tolerance tol.
func CheckBridge(b Bridge, tol decimal.Decimal) *statement.InvariantViolation {
	actual, expected := b.Sum()
	diff := expected.Sub(actual)
	scale := decimal.Max(expected.Abs(), decimal.NewFromInt(1))
	if diff.Abs().LessThanOrEqual(tol.Mul(scale)) {
		return nil
	}
	return &statement.InvariantViolation{Expected: expected, Actual: actual, Diff: diff}
}

// =============================================================================
// BUILDERS
// =============================================================================

// DriverBridge builds [absolute prior] + one relative step per driver +
// [total current]. Amounts are used as recorded.
func (b *Builder) DriverBridge(title, startLabel string, start decimal.Decimal,
	drivers []statement.DriverAdjustment, endLabel string, end decimal.Decimal) Bridge {
	steps := make([]Step, 0, len(drivers)+2)
	steps = append(steps, Step{Label: startLabel, Measure: Absolute, Value: start})
	for _, d := range drivers {
		steps = append(steps, Step{Label: d.Name, Measure: Relative, Value: d.Amount})
	}
	steps = append(steps, Step{Label: endLabel, Measure: Total, Value: end})
	return b.finish(Bridge{Title: title, Mode: ModeDrivers, Steps: steps})
}

// OperatingProfitBridge explains the change of operating profit from the
// period before p to p. It uses the recorded drivers of that pair, or the
// revenue / cost / SG&A fallback when none exist. The first period yields
// statement.ErrNoPriorPeriod.
func (b *Builder) OperatingProfitBridge(book *statement.Book, p statement.Period) (Bridge, error) {
	cur, err := book.PL.Row(p)
	if err != nil {
		return Bridge{}, err
	}
	prev, err := book.PL.Previous(p)
	if err != nil {
		return Bridge{}, err
	}

	title := fmt.Sprintf("営業利益の増減要因 (%s → %s)", prev.Period.Label(), cur.Period.Label())
	startLabel := prev.Period.Label() + "\n" + statement.OperatingProfit.Label()
	endLabel := cur.Period.Label() + "\n" + statement.OperatingProfit.Label()
	start, end := prev.Value(statement.OperatingProfit), cur.Value(statement.OperatingProfit)

	if drivers := book.DriversFor(prev.Period, cur.Period); len(drivers) > 0 {
		return b.DriverBridge(title, startLabel, start, drivers, endLabel, end), nil
	}

	delta := func(item statement.LineItem) decimal.Decimal {
		return cur.Value(item).Sub(prev.Value(item))
	}
	steps := []Step{
		{Label: startLabel, Measure: Absolute, Value: start},
		{Label: "売上増減", Measure: Relative, Value: delta(statement.Revenue)},
		{Label: "原価増減", Measure: Relative, Value: delta(statement.CostOfSales).Neg()},
		{Label: "販管費増減", Measure: Relative, Value: delta(statement.SGA).Neg()},
		{Label: endLabel, Measure: Total, Value: end},
	}
	return b.finish(Bridge{Title: title, Mode: ModeFallback, Steps: steps}), nil
}

// CashBridge walks opening cash to closing cash through the three CF lines.
func (b *Builder) CashBridge(cf statement.Row) (Bridge, error) {
	for _, item := range statement.Vocabulary(statement.CF) {
		if _, err := cf.Get(item); err != nil {
			return Bridge{}, fmt.Errorf("cash bridge: %w", err)
		}
	}
	steps := []Step{
		{Label: statement.OpeningCash.Label(), Measure: Absolute, Value: cf.Value(statement.OpeningCash)},
		{Label: statement.OperatingCF.Label(), Measure: Relative, Value: cf.Value(statement.OperatingCF)},
		{Label: statement.InvestingCF.Label(), Measure: Relative, Value: cf.Value(statement.InvestingCF)},
		{Label: statement.FinancingCF.Label(), Measure: Relative, Value: cf.Value(statement.FinancingCF)},
		{Label: statement.ClosingCash.Label(), Measure: Total, Value: cf.Value(statement.ClosingCash)},
	}
	title := fmt.Sprintf("現金の増減 (%s)", cf.Period.Label())
	return b.finish(Bridge{Title: title, Mode: ModeCash, Steps: steps}), nil
}

// finish runs the sum check and, when configured, closes the gap with a
// residual step placed before the total.
func (b *Builder) finish(br Bridge) Bridge {
	v := CheckBridge(br, b.tolerance())
	if v == nil {
		return br
	}
	if !b.opts.ReconcileResidual {
		br.Violation = v
		return br
	}
	last := len(br.Steps) - 1
	steps := make([]Step, 0, len(br.Steps)+1)
	steps = append(steps, br.Steps[:last]...)
	steps = append(steps, Step{Label: b.opts.ResidualLabel, Measure: Relative, Value: v.Diff})
	steps = append(steps, br.Steps[last])
	br.Steps = steps
	br.Reconciled = true
	return br
}

// =============================================================================
// DELTA LIST - BS changes between two periods
// =============================================================================

// BSChangeItems are the balance-sheet lines compared period over period.
var BSChangeItems = []statement.LineItem{
	statement.TotalAssets,
	statement.CurrentAssets,
	statement.FixedAssets,
	statement.TotalLiabilities,
	statement.NetAssets,
	statement.CashAndDeposits,
	statement.RetainedEarnings,
}

// Delta is the change of one line item.
type Delta struct {
	Item    statement.LineItem
	Label   string
	Prior   decimal.Decimal
	Current decimal.Decimal
	Change  decimal.Decimal
}

// DeltaList is a set of relative changes with no start or end bar.
type DeltaList struct {
	Title  string
	Prior  statement.Period
	Period statement.Period
	Deltas []Delta
}

// BuildDeltaList compares items between p and the period before it.
func BuildDeltaList(st *statement.Statement, p statement.Period, items []statement.LineItem) (DeltaList, error) {
	cur, err := st.Row(p)
	if err != nil {
		return DeltaList{}, err
	}
	prev, err := st.Previous(p)
	if err != nil {
		return DeltaList{}, err
	}

	out := DeltaList{
		Title:  fmt.Sprintf("主要項目の増減 (%s → %s)", prev.Period.Label(), cur.Period.Label()),
		Prior:  prev.Period,
		Period: cur.Period,
	}
	for _, item := range items {
		c, err := cur.Get(item)
		if err != nil {
			return DeltaList{}, err
		}
		pr, err := prev.Get(item)
		if err != nil {
			return DeltaList{}, err
		}
		out.Deltas = append(out.Deltas, Delta{
			Item:    item,
			Label:   item.Label(),
			Prior:   pr,
			Current: c,
			Change:  c.Sub(pr),
		})
	}
	return out, nil
}

// BuildBSChanges is BuildDeltaList over BSChangeItems.
func BuildBSChanges(bs *statement.Statement, p statement.Period) (DeltaList, error) {
	return BuildDeltaList(bs, p, BSChangeItems)
}
