/*
Package sample provides a built-in demo company.

PURPOSE:
  Populates a store with realistic, internally consistent statements so the
  API can be explored without a data directory, and so tests across packages
  share one fixture.

CONSISTENCY:
  - gross_profit = revenue - cost_of_sales
  - operating_profit = gross_profit - sga
  - total_assets = total_liabilities + net_assets
  - closing_cash = opening_cash + operating + investing + financing
  - BS cash_and_deposits equals CF closing_cash
  - 2023.12 has curated drivers; 2024.12 has none (fallback bridge)
*/
package sample

import (
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// Code is the demo company's code.
const Code = "5139"

// Company returns the demo company metadata.
func Company() statement.Company {
	return statement.Company{
		Code:        Code,
		Name:        "サンプル株式会社",
		Market:      "東証グロース",
		FiscalLabel: "12月決算",
		Description: "SaaS・コンサルティング・マーケットプレイス事業",
		URL:         "https://example.com",
		Notes:       "デモ用の推定値です。",
	}
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func row(period string, items []statement.LineItem, values ...int64) statement.Row {
	m := make(map[statement.LineItem]decimal.Decimal, len(items))
	for i, item := range items {
		m[item] = d(values[i])
	}
	return statement.NewRow(statement.MustParsePeriod(period), m)
}

// PLRows returns four periods of income statements.
func PLRows() []statement.Row {
	v := statement.Vocabulary(statement.PL)
	return []statement.Row{
		row("2021.12", v, 10000, 6000, 4000, 2500, 1500, 100, 50, 1550, 450, 1100),
		row("2022.12", v, 11000, 6500, 4500, 2700, 1800, 80, 60, 1820, 540, 1280),
		row("2023.12", v, 12500, 7300, 5200, 3000, 2200, 90, 120, 2170, 650, 1520),
		row("2024.12", v, 13200, 7700, 5500, 3200, 2300, 60, 200, 2160, 640, 1520),
	}
}

// BSRows returns four periods of balance sheets.
func BSRows() []statement.Row {
	v := statement.Vocabulary(statement.BS)
	return []statement.Row{
		row("2021.12", v, 3000, 1500, 300, 4800, 2300, 500, 400, 3200, 8000, 1200, 900, 2600, 300, 5000, 1000, 1000, 1000, 3000),
		row("2022.12", v, 3500, 1600, 400, 5500, 2500, 600, 400, 3500, 9000, 1300, 1000, 2400, 300, 5000, 1000, 1000, 2000, 4000),
		row("2023.12", v, 4200, 1800, 500, 6500, 2800, 700, 500, 4000, 10500, 1400, 1100, 2200, 300, 5000, 1000, 1000, 3500, 5500),
		row("2024.12", v, 5000, 2000, 500, 7500, 3000, 800, 700, 4500, 12000, 1500, 1200, 2000, 300, 5000, 1000, 1000, 5000, 7000),
	}
}

// CFRows returns four periods of cash-flow statements.
func CFRows() []statement.Row {
	v := statement.Vocabulary(statement.CF)
	return []statement.Row{
		row("2021.12", v, 2500, 1800, -900, -400, 3000),
		row("2022.12", v, 3000, 2000, -1000, -500, 3500),
		row("2023.12", v, 3500, 2300, -1200, -400, 4200),
		row("2024.12", v, 4200, 2500, -1500, -200, 5000),
	}
}

// Segments returns the segment breakdown. "Marketplace" first appears in 2024.
func Segments() []statement.SegmentRow {
	seg := func(period, name string, revenue, op int64) statement.SegmentRow {
		return statement.SegmentRow{
			Period:          statement.MustParsePeriod(period),
			Name:            name,
			Revenue:         d(revenue),
			OperatingProfit: d(op),
		}
	}
	return []statement.SegmentRow{
		seg("2021.12", "SaaS", 6000, 1200),
		seg("2021.12", "Consulting", 4000, 300),
		seg("2022.12", "SaaS", 7000, 1450),
		seg("2022.12", "Consulting", 4000, 350),
		seg("2023.12", "SaaS", 8000, 1800),
		seg("2023.12", "Consulting", 4500, 400),
		seg("2024.12", "SaaS", 9200, 2000),
		seg("2024.12", "Consulting", 3500, 250),
		seg("2024.12", "Marketplace", 500, 50),
	}
}

// Drivers returns curated operating-profit drivers for 2022.12 -> 2023.12.
func Drivers() []statement.DriverAdjustment {
	prior, current := statement.MustParsePeriod("2022.12"), statement.MustParsePeriod("2023.12")
	return []statement.DriverAdjustment{
		{Prior: prior, Current: current, Name: "販売数量増", Amount: d(500)},
		{Prior: prior, Current: current, Name: "価格改定", Amount: d(150)},
		{Prior: prior, Current: current, Name: "人件費増", Amount: d(-250)},
	}
}

// Book assembles the demo company.
func Book() *statement.Book {
	must := func(st *statement.Statement, err error) *statement.Statement {
		if err != nil {
			panic(err)
		}
		return st
	}
	return &statement.Book{
		Company:  Company(),
		PL:       must(statement.NewStatement(statement.PL, PLRows())),
		BS:       must(statement.NewStatement(statement.BS, BSRows())),
		CF:       must(statement.NewStatement(statement.CF, CFRows())),
		Segments: Segments(),
		Drivers:  Drivers(),
	}
}
