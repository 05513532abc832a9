/*
schema.go - Statement types and their fixed line-item vocabularies

PURPOSE:
  Every statement type declares the exact set of line items its rows carry.
  Loaders resolve column headers against this vocabulary (English key or the
  Japanese display label used in the source files) and reject rows that miss
  any declared item with a SchemaMismatchError.

STATEMENT TYPES:
  pl       income statement
  bs       balance sheet
  cf       cash-flow statement
  segment  segment breakdown (see SegmentRow)
  factors  manually curated driver adjustments (see DriverAdjustment)
*/
package statement

import "fmt"

// StatementType tags a statement table.
type StatementType string

const (
	PL      StatementType = "pl"
	BS      StatementType = "bs"
	CF      StatementType = "cf"
	Segment StatementType = "segment"
	Factors StatementType = "factors"
)

// ParseStatementType validates a statement tag.
func ParseStatementType(s string) (StatementType, error) {
	switch t := StatementType(s); t {
	case PL, BS, CF, Segment, Factors:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatement, s)
}

// IsTabular reports whether rows of this type are period-keyed Rows.
func (t StatementType) IsTabular() bool {
	return t == PL || t == BS || t == CF
}

// LineItem names one line of a financial statement.
type LineItem string

// Income statement (PL)
const (
	Revenue             LineItem = "revenue"
	CostOfSales         LineItem = "cost_of_sales"
	GrossProfit         LineItem = "gross_profit"
	SGA                 LineItem = "sga"
	OperatingProfit     LineItem = "operating_profit"
	NonOperatingIncome  LineItem = "non_operating_income"
	NonOperatingExpense LineItem = "non_operating_expense"
	OrdinaryProfit      LineItem = "ordinary_profit"
	IncomeTaxes         LineItem = "income_taxes"
	NetIncome           LineItem = "net_income"
)

// Balance sheet (BS)
const (
	CashAndDeposits         LineItem = "cash_and_deposits"
	AccountsReceivable      LineItem = "accounts_receivable"
	OtherCurrentAssets      LineItem = "other_current_assets"
	CurrentAssets           LineItem = "current_assets"
	TangibleFixedAssets     LineItem = "tangible_fixed_assets"
	IntangibleFixedAssets   LineItem = "intangible_fixed_assets"
	InvestmentsAndOther     LineItem = "investments_and_other"
	FixedAssets             LineItem = "fixed_assets"
	TotalAssets             LineItem = "total_assets"
	AccountsPayable         LineItem = "accounts_payable"
	OtherCurrentLiabilities LineItem = "other_current_liabilities"
	LongTermBorrowings      LineItem = "long_term_borrowings"
	OtherFixedLiabilities   LineItem = "other_fixed_liabilities"
	TotalLiabilities        LineItem = "total_liabilities"
	CapitalStock            LineItem = "capital_stock"
	CapitalSurplus          LineItem = "capital_surplus"
	RetainedEarnings        LineItem = "retained_earnings"
	NetAssets               LineItem = "net_assets"
)

// Cash-flow statement (CF)
const (
	OpeningCash LineItem = "opening_cash"
	OperatingCF LineItem = "operating_cf"
	InvestingCF LineItem = "investing_cf"
	FinancingCF LineItem = "financing_cf"
	ClosingCash LineItem = "closing_cash"
)

// Vocabulary returns the declared line items of a tabular statement type,
// in source column order.
func Vocabulary(t StatementType) []LineItem {
	switch t {
	case PL:
		return []LineItem{
			Revenue, CostOfSales, GrossProfit, SGA, OperatingProfit,
			NonOperatingIncome, NonOperatingExpense, OrdinaryProfit, IncomeTaxes, NetIncome,
		}
	case BS:
		return []LineItem{
			CashAndDeposits, AccountsReceivable, OtherCurrentAssets, CurrentAssets,
			TangibleFixedAssets, IntangibleFixedAssets, InvestmentsAndOther, FixedAssets, TotalAssets,
			AccountsPayable, OtherCurrentLiabilities, LongTermBorrowings, OtherFixedLiabilities,
			TotalLiabilities, CapitalStock, CapitalSurplus, RetainedEarnings, NetAssets,
		}
	case CF:
		return []LineItem{OpeningCash, OperatingCF, InvestingCF, FinancingCF, ClosingCash}
	}
	return nil
}

// Declares reports whether item belongs to the vocabulary of t.
func Declares(t StatementType, item LineItem) bool {
	for _, it := range Vocabulary(t) {
		if it == item {
			return true
		}
	}
	return false
}

var displayLabels = map[LineItem]string{
	Revenue:             "営業収益",
	CostOfSales:         "売上原価",
	GrossProfit:         "売上総利益",
	SGA:                 "販管費",
	OperatingProfit:     "営業利益",
	NonOperatingIncome:  "営業外収益",
	NonOperatingExpense: "営業外費用",
	OrdinaryProfit:      "経常利益",
	IncomeTaxes:         "法人税等",
	NetIncome:           "当期純利益",

	CashAndDeposits:         "現金及び預金",
	AccountsReceivable:      "売掛金",
	OtherCurrentAssets:      "その他流動資産",
	CurrentAssets:           "流動資産合計",
	TangibleFixedAssets:     "有形固定資産",
	IntangibleFixedAssets:   "無形固定資産",
	InvestmentsAndOther:     "投資その他",
	FixedAssets:             "固定資産合計",
	TotalAssets:             "資産合計",
	AccountsPayable:         "買掛金",
	OtherCurrentLiabilities: "その他流動負債",
	LongTermBorrowings:      "長期借入金",
	OtherFixedLiabilities:   "その他固定負債",
	TotalLiabilities:        "負債合計",
	CapitalStock:            "資本金",
	CapitalSurplus:          "資本剰余金",
	RetainedEarnings:        "利益剰余金",
	NetAssets:               "純資産合計",

	OpeningCash: "期首現金",
	OperatingCF: "営業CF",
	InvestingCF: "投資CF",
	FinancingCF: "財務CF",
	ClosingCash: "期末現金",
}

// Label returns the display label of a line item, or the key itself.
func (li LineItem) Label() string {
	if l, ok := displayLabels[li]; ok {
		return l
	}
	return string(li)
}

// ResolveLineItem maps a column header (English key or display label) to a
// line item of the given statement type.
func ResolveLineItem(t StatementType, header string) (LineItem, bool) {
	for _, item := range Vocabulary(t) {
		if string(item) == header || item.Label() == header {
			return item, true
		}
	}
	return "", false
}
