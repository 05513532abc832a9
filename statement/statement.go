/*
Package statement provides the period-indexed statement tables that every
visualization is derived from.

PURPOSE:
  Holds one company's income statement, balance sheet, cash-flow statement,
  segment breakdown and driver adjustments as immutable in-memory tables.
  Rows are read once at load time and never mutated afterwards, so a Book
  can be shared by concurrent readers without locking.

KEY CONCEPTS:
  - Period:           fiscal period identifier (period.go)
  - Row:              one period of a PL/BS/CF statement, keyed by LineItem
  - Statement:        ordered rows (oldest first) with period lookup
  - SegmentRow:       revenue and operating profit of one segment in one period
  - DriverAdjustment: a named, signed delta for a (prior, current) period pair
  - Book:             all tables of one company

INVARIANTS:
  1. Periods within a statement are strictly increasing and unique
  2. Every row carries every line item of its statement vocabulary
  3. Rows are immutable after NewStatement

SEE ALSO:
  - store.go: Store interface and LoadBook
  - schema.go: line-item vocabularies
  - errors.go: error kinds
*/
package statement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW - One period of a tabular statement
// =============================================================================

// Row maps line items to values for one period.
type Row struct {
	Period Period
	Values map[LineItem]decimal.Decimal
}

// NewRow builds a row from a period and its values.
func NewRow(p Period, values map[LineItem]decimal.Decimal) Row {
	return Row{Period: p, Values: values}
}

// Get returns the value of a line item, failing with SchemaMismatchError
// when the row does not carry it.
func (r Row) Get(item LineItem) (decimal.Decimal, error) {
	v, ok := r.Values[item]
	if !ok {
		return decimal.Zero, &SchemaMismatchError{Period: r.Period, Item: item}
	}
	return v, nil
}

// Value returns the value of a line item, zero when absent.
// Use only on rows validated by NewStatement.
func (r Row) Value(item LineItem) decimal.Decimal {
	return r.Values[item]
}

// Has reports whether the row carries item.
func (r Row) Has(item LineItem) bool {
	_, ok := r.Values[item]
	return ok
}

// =============================================================================
// STATEMENT - Ordered rows of one statement type
// =============================================================================

// Statement is an ordered, period-unique list of rows of one type.
type Statement struct {
	Type StatementType
	rows []Row
}

// NewStatement validates the rows against the vocabulary of t, sorts them by
// period and rejects duplicate periods.
func NewStatement(t StatementType, rows []Row) (*Statement, error) {
	if !t.IsTabular() {
		return nil, fmt.Errorf("%w: %q is not a tabular statement", ErrUnknownStatement, t)
	}

	vocab := Vocabulary(t)
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	for _, r := range sorted {
		for _, item := range vocab {
			if !r.Has(item) {
				return nil, &SchemaMismatchError{Statement: t, Period: r.Period, Item: item}
			}
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Period.Equal(sorted[i-1].Period) {
			return nil, fmt.Errorf("%s statement: duplicate period %s", t, sorted[i].Period)
		}
	}

	return &Statement{Type: t, rows: sorted}, nil
}

// Rows returns the rows oldest first. The slice is a copy.
func (s *Statement) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *Statement) Len() int { return len(s.rows) }

// Periods returns the statement's periods oldest first.
func (s *Statement) Periods() []Period {
	periods := make([]Period, len(s.rows))
	for i, r := range s.rows {
		periods[i] = r.Period
	}
	return periods
}

func (s *Statement) index(p Period) int {
	i := sort.Search(len(s.rows), func(i int) bool {
		return !s.rows[i].Period.Before(p)
	})
	if i < len(s.rows) && s.rows[i].Period.Equal(p) {
		return i
	}
	return -1
}

// Row returns the row of period p.
func (s *Statement) Row(p Period) (Row, error) {
	i := s.index(p)
	if i < 0 {
		return Row{}, &NotFoundError{Statement: s.Type, Period: p}
	}
	return s.rows[i], nil
}

// Latest returns the most recent row.
func (s *Statement) Latest() (Row, error) {
	if len(s.rows) == 0 {
		return Row{}, &NotFoundError{Statement: s.Type}
	}
	return s.rows[len(s.rows)-1], nil
}

// Previous returns the row immediately before period p. It fails with
// ErrNoPriorPeriod when p is the first period, and NotFoundError when p is
// not part of the statement.
func (s *Statement) Previous(p Period) (Row, error) {
	i := s.index(p)
	if i < 0 {
		return Row{}, &NotFoundError{Statement: s.Type, Period: p}
	}
	if i == 0 {
		return Row{}, fmt.Errorf("%s statement, period %s: %w", s.Type, p, ErrNoPriorPeriod)
	}
	return s.rows[i-1], nil
}

// Resolve returns p when set, otherwise the latest period.
func (s *Statement) Resolve(p Period) (Period, error) {
	if !p.IsZero() {
		if s.index(p) < 0 {
			return Period{}, &NotFoundError{Statement: s.Type, Period: p}
		}
		return p, nil
	}
	latest, err := s.Latest()
	if err != nil {
		return Period{}, err
	}
	return latest.Period, nil
}

// =============================================================================
// SEGMENTS AND DRIVERS
// =============================================================================

// SegmentRow is one business segment in one period. Segment names are not
// stable across periods: a segment may appear or disappear.
type SegmentRow struct {
	Period          Period
	Name            string
	Revenue         decimal.Decimal
	OperatingProfit decimal.Decimal
}

// DriverAdjustment is a manually curated, pre-signed delta explaining the
// change of operating profit between two periods.
type DriverAdjustment struct {
	Prior   Period
	Current Period
	Name    string
	Amount  decimal.Decimal
}

// =============================================================================
// COMPANY + BOOK
// =============================================================================

// Company is the metadata record of one listed company.
type Company struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Market      string `json:"market"`
	FiscalLabel string `json:"fiscal_label"`
	Description string `json:"description"`
	URL         string `json:"url" validate:"omitempty,url"`
	Notes       string `json:"notes,omitempty"`
}

// Book holds every table of one company.
type Book struct {
	Company  Company
	PL       *Statement
	BS       *Statement
	CF       *Statement
	Segments []SegmentRow
	Drivers  []DriverAdjustment
}

// Statement returns the tabular statement of type t.
func (b *Book) Statement(t StatementType) (*Statement, error) {
	var st *Statement
	switch t {
	case PL:
		st = b.PL
	case BS:
		st = b.BS
	case CF:
		st = b.CF
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatement, t)
	}
	if st == nil {
		return nil, &NotFoundError{Company: b.Company.Code, Statement: t}
	}
	return st, nil
}

// SegmentsFor returns the segment rows of period p in source order.
func (b *Book) SegmentsFor(p Period) []SegmentRow {
	var out []SegmentRow
	for _, s := range b.Segments {
		if s.Period.Equal(p) {
			out = append(out, s)
		}
	}
	return out
}

// DriversFor returns the driver adjustments of a (prior, current) pair in
// source order.
func (b *Book) DriversFor(prior, current Period) []DriverAdjustment {
	var out []DriverAdjustment
	for _, d := range b.Drivers {
		if d.Prior.Equal(prior) && d.Current.Equal(current) {
			out = append(out, d)
		}
	}
	return out
}
