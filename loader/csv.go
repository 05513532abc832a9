package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// Column headers accepted besides the line-item vocabulary.
var (
	periodHeaders  = []string{"期", "period"}
	segmentHeaders = []string{"セグメント", "segment"}
	revenueHeaders = []string{"売上", "revenue"}
	opHeaders      = []string{"営業利益", "operating_profit"}
	factorHeaders  = []string{"要因", "factor", "name"}
	amountHeaders  = []string{"金額", "amount"}
	priorHeaders   = []string{"前期", "prior"}
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseAmount parses a figure as written in the source sheets: thousands
// separators, a leading "+" and the full-width minus are accepted.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "，", "", "−", "-", "－", "-", "+", "", "＋", "").Replace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, err)
	}
	return d, nil
}

// table is a parsed CSV with a header index.
type table struct {
	header  []string
	index   map[string]int
	records [][]string
}

func readTable(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}

	t := &table{header: records[0], index: make(map[string]int), records: records[1:]}
	for i, h := range t.header {
		t.index[strings.TrimSpace(h)] = i
	}
	return t, nil
}

// column returns the index of the first header present among names.
func (t *table) column(names []string) (int, bool) {
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func (t *table) require(names []string) (int, error) {
	i, ok := t.column(names)
	if !ok {
		return 0, fmt.Errorf("%w: no %q column", statement.ErrSchemaMismatch, names[0])
	}
	return i, nil
}

// =============================================================================
// STATEMENT CSV (pl.csv, bs.csv, cf.csv)
// =============================================================================

// ReadStatementCSV reads one tabular statement. Headers may be the English
// line-item keys or the Japanese labels. Unknown columns are skipped; a
// missing declared column fails with statement.SchemaMismatchError.
func ReadStatementCSV(r io.Reader, t statement.StatementType) ([]statement.Row, error) {
	tbl, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("%s csv: %w", t, err)
	}
	periodCol, err := tbl.require(periodHeaders)
	if err != nil {
		return nil, fmt.Errorf("%s csv: %w", t, err)
	}

	columns := make(map[statement.LineItem]int)
	for i, h := range tbl.header {
		if i == periodCol {
			continue
		}
		item, ok := statement.ResolveLineItem(t, strings.TrimSpace(h))
		if !ok {
			log.Debug().Str("statement", string(t)).Str("column", h).Msg("skipping unknown column")
			continue
		}
		columns[item] = i
	}
	for _, item := range statement.Vocabulary(t) {
		if _, ok := columns[item]; !ok {
			return nil, &statement.SchemaMismatchError{Statement: t, Item: item}
		}
	}

	rows := make([]statement.Row, 0, len(tbl.records))
	for n, rec := range tbl.records {
		line := n + 2
		p, err := statement.ParsePeriod(rec[periodCol])
		if err != nil {
			return nil, fmt.Errorf("%s csv line %d: %w", t, line, err)
		}
		values := make(map[statement.LineItem]decimal.Decimal, len(columns))
		for item, col := range columns {
			v, err := ParseAmount(rec[col])
			if err != nil {
				return nil, fmt.Errorf("%s csv line %d, %s: %w", t, line, item, err)
			}
			values[item] = v
		}
		rows = append(rows, statement.NewRow(p, values))
	}
	return rows, nil
}

// =============================================================================
// SEGMENT CSV
// =============================================================================

// ReadSegmentsCSV reads segment.csv in source order.
func ReadSegmentsCSV(r io.Reader) ([]statement.SegmentRow, error) {
	tbl, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("segment csv: %w", err)
	}
	cols, err := requireAll(tbl, periodHeaders, segmentHeaders, revenueHeaders, opHeaders)
	if err != nil {
		return nil, fmt.Errorf("segment csv: %w", err)
	}

	out := make([]statement.SegmentRow, 0, len(tbl.records))
	for n, rec := range tbl.records {
		line := n + 2
		p, err := statement.ParsePeriod(rec[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("segment csv line %d: %w", line, err)
		}
		rev, err := ParseAmount(rec[cols[2]])
		if err != nil {
			return nil, fmt.Errorf("segment csv line %d: %w", line, err)
		}
		op, err := ParseAmount(rec[cols[3]])
		if err != nil {
			return nil, fmt.Errorf("segment csv line %d: %w", line, err)
		}
		out = append(out, statement.SegmentRow{
			Period:          p,
			Name:            strings.TrimSpace(rec[cols[1]]),
			Revenue:         rev,
			OperatingProfit: op,
		})
	}
	return out, nil
}

// =============================================================================
// FACTORS CSV
// =============================================================================

// ReadFactorsCSV reads factors.csv. The period column names the current
// period of the pair; the prior period is read from an optional "前期"
// column or taken as the period preceding it in plPeriods.
func ReadFactorsCSV(r io.Reader, plPeriods []statement.Period) ([]statement.DriverAdjustment, error) {
	tbl, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("factors csv: %w", err)
	}
	cols, err := requireAll(tbl, periodHeaders, factorHeaders, amountHeaders)
	if err != nil {
		return nil, fmt.Errorf("factors csv: %w", err)
	}
	priorCol, hasPrior := tbl.column(priorHeaders)

	out := make([]statement.DriverAdjustment, 0, len(tbl.records))
	for n, rec := range tbl.records {
		line := n + 2
		current, err := statement.ParsePeriod(rec[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("factors csv line %d: %w", line, err)
		}

		var prior statement.Period
		if hasPrior && strings.TrimSpace(rec[priorCol]) != "" {
			if prior, err = statement.ParsePeriod(rec[priorCol]); err != nil {
				return nil, fmt.Errorf("factors csv line %d: %w", line, err)
			}
		} else if prior, err = precedingPeriod(plPeriods, current); err != nil {
			return nil, fmt.Errorf("factors csv line %d: %w", line, err)
		}

		amount, err := ParseAmount(rec[cols[2]])
		if err != nil {
			return nil, fmt.Errorf("factors csv line %d: %w", line, err)
		}
		out = append(out, statement.DriverAdjustment{
			Prior:   prior,
			Current: current,
			Name:    strings.TrimSpace(rec[cols[1]]),
			Amount:  amount,
		})
	}
	return out, nil
}

func precedingPeriod(periods []statement.Period, p statement.Period) (statement.Period, error) {
	var best statement.Period
	found := false
	for _, q := range periods {
		if q.Before(p) && (!found || q.After(best)) {
			best, found = q, true
		}
	}
	if !found {
		return statement.Period{}, fmt.Errorf("period %s: %w", p, statement.ErrNoPriorPeriod)
	}
	return best, nil
}

func requireAll(t *table, names ...[]string) ([]int, error) {
	cols := make([]int, len(names))
	for i, n := range names {
		c, err := t.require(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}
