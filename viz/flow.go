/*
flow.go - Flow graph (Sankey) builder for PL and CF rows

PURPOSE:
  Converts one period's PL or CF row into a directed acyclic graph whose
  edge magnitudes are the amounts flowing between statement stages.

TOPOLOGY:
  Each statement type has a static template: its node list, unconditional
  edges, and conditional edges keyed on the sign of a line item. Building
  a graph is a walk over the template, never per-call branching.

  PL (10 nodes, 9 edges, all unconditional):
    revenue -> cost_of_sales, revenue -> gross_profit,
    gross_profit -> sga, gross_profit -> operating_profit,
    operating_profit -> ordinary_profit, non_operating_income -> ordinary_profit,
    operating_profit -> non_operating_expense,
    ordinary_profit -> income_taxes, ordinary_profit -> net_income

  CF (5 nodes):
    baseline opening_cash -> closing_cash (opening cash), always present
    operating_cf > 0  : operating_cf -> closing_cash
    investing_cf < 0  : opening_cash -> investing_cf (|investing|)
    financing_cf < 0  : opening_cash -> financing_cf (|financing|)
    financing_cf > 0  : financing_cf -> closing_cash

LOSSY RULES (kept as-is):
  - PL edge magnitudes below zero are clamped to 0
  - CF edges whose condition fails are omitted, never drawn with magnitude 0
  Edge magnitudes do not have to balance: tax/minority residuals are not nodes.
*/
package viz

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// =============================================================================
// GRAPH TYPES
// =============================================================================

// Node is one stage of a flow graph.
type Node struct {
	ID    statement.LineItem
	Label string
	Value decimal.Decimal // raw line-item value, for display
	Color string
}

// Edge carries a non-negative magnitude from Source to Target.
type Edge struct {
	Source   statement.LineItem
	Target   statement.LineItem
	Value    decimal.Decimal
	Baseline bool
	Color    string
}

// FlowGraph is a Sankey-style model of one statement period.
type FlowGraph struct {
	Statement statement.StatementType
	Period    statement.Period
	Title     string
	Nodes     []Node
	Edges     []Edge
}

// NonBaselineEdges returns the edges other than the CF opening->closing baseline.
func (g FlowGraph) NonBaselineEdges() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if !e.Baseline {
			out = append(out, e)
		}
	}
	return out
}

// NodeIndex returns the position of id in Nodes, or -1.
func (g FlowGraph) NodeIndex(id statement.LineItem) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks that every edge joins known nodes, no magnitude is
// negative and the graph has no cycle.
func (g FlowGraph) Validate() error {
	adj := make(map[statement.LineItem][]statement.LineItem)
	for _, e := range g.Edges {
		if g.NodeIndex(e.Source) < 0 || g.NodeIndex(e.Target) < 0 {
			return fmt.Errorf("edge %s->%s references an unknown node", e.Source, e.Target)
		}
		if e.Value.IsNegative() {
			return fmt.Errorf("edge %s->%s has negative magnitude %s", e.Source, e.Target, e.Value)
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[statement.LineItem]int)
	var visit func(statement.LineItem) error
	visit = func(n statement.LineItem) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("cycle through %s", n)
		case done:
			return nil
		}
		state[n] = visiting
		for _, next := range adj[n] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range g.Nodes {
		if err := visit(n.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

type sign int

const (
	always sign = iota
	whenPositive
	whenNegative
)

// edgeTemplate declares one edge. Its magnitude is the absolute value of
// item when conditional, the clamped value of item otherwise.
type edgeTemplate struct {
	source, target statement.LineItem
	item           statement.LineItem
	when           sign
	baseline       bool
	color          string
}

type nodeTemplate struct {
	id    statement.LineItem
	color string
}

type flowTemplate struct {
	title string
	nodes []nodeTemplate
	edges []edgeTemplate
}

var flowTemplates = map[statement.StatementType]flowTemplate{
	statement.PL: {
		title: "損益計算書フロー",
		nodes: []nodeTemplate{
			{statement.Revenue, colorRevenue},
			{statement.CostOfSales, colorCost},
			{statement.GrossProfit, colorSubtotal},
			{statement.SGA, colorExpense},
			{statement.OperatingProfit, colorProfit},
			{statement.NonOperatingIncome, colorPositive},
			{statement.NonOperatingExpense, colorNegative},
			{statement.OrdinaryProfit, colorProfit},
			{statement.IncomeTaxes, colorTax},
			{statement.NetIncome, colorProfit},
		},
		edges: []edgeTemplate{
			{source: statement.Revenue, target: statement.CostOfSales, item: statement.CostOfSales, color: "rgba(255,87,34,0.3)"},
			{source: statement.Revenue, target: statement.GrossProfit, item: statement.GrossProfit, color: "rgba(66,165,245,0.3)"},
			{source: statement.GrossProfit, target: statement.SGA, item: statement.SGA, color: "rgba(255,152,0,0.3)"},
			{source: statement.GrossProfit, target: statement.OperatingProfit, item: statement.OperatingProfit, color: "rgba(76,175,80,0.3)"},
			{source: statement.OperatingProfit, target: statement.OrdinaryProfit, item: statement.OperatingProfit, color: "rgba(76,175,80,0.3)"},
			{source: statement.NonOperatingIncome, target: statement.OrdinaryProfit, item: statement.NonOperatingIncome, color: "rgba(76,175,80,0.2)"},
			{source: statement.OperatingProfit, target: statement.NonOperatingExpense, item: statement.NonOperatingExpense, color: "rgba(255,87,34,0.2)"},
			{source: statement.OrdinaryProfit, target: statement.IncomeTaxes, item: statement.IncomeTaxes, color: "rgba(156,39,176,0.3)"},
			{source: statement.OrdinaryProfit, target: statement.NetIncome, item: statement.NetIncome, color: "rgba(76,175,80,0.3)"},
		},
	},
	statement.CF: {
		title: "キャッシュフロー",
		nodes: []nodeTemplate{
			{statement.OpeningCash, colorTotal},
			{statement.OperatingCF, colorOperatingCF},
			{statement.InvestingCF, colorInvestingCF},
			{statement.FinancingCF, colorFinancingCF},
			{statement.ClosingCash, colorTotal},
		},
		edges: []edgeTemplate{
			{source: statement.OpeningCash, target: statement.ClosingCash, item: statement.OpeningCash, baseline: true, color: "rgba(33,150,243,0.2)"},
			{source: statement.OperatingCF, target: statement.ClosingCash, item: statement.OperatingCF, when: whenPositive, color: "rgba(76,175,80,0.4)"},
			{source: statement.OpeningCash, target: statement.InvestingCF, item: statement.InvestingCF, when: whenNegative, color: "rgba(255,152,0,0.4)"},
			{source: statement.OpeningCash, target: statement.FinancingCF, item: statement.FinancingCF, when: whenNegative, color: "rgba(156,39,176,0.4)"},
			{source: statement.FinancingCF, target: statement.ClosingCash, item: statement.FinancingCF, when: whenPositive, color: "rgba(156,39,176,0.4)"},
		},
	},
}

// =============================================================================
// BUILDERS
// =============================================================================

// BuildFlowGraph converts one PL or CF row into a FlowGraph.
func BuildFlowGraph(t statement.StatementType, row statement.Row) (FlowGraph, error) {
	tmpl, ok := flowTemplates[t]
	if !ok {
		return FlowGraph{}, fmt.Errorf("%w: no flow template for %q", statement.ErrUnknownStatement, t)
	}

	g := FlowGraph{
		Statement: t,
		Period:    row.Period,
		Title:     fmt.Sprintf("%s (%s)", tmpl.title, row.Period.Label()),
	}
	for _, n := range tmpl.nodes {
		v, err := row.Get(n.id)
		if err != nil {
			return FlowGraph{}, schemaErr(t, err)
		}
		g.Nodes = append(g.Nodes, Node{ID: n.id, Label: n.id.Label(), Value: v, Color: n.color})
	}

	for _, e := range tmpl.edges {
		v, err := row.Get(e.item)
		if err != nil {
			return FlowGraph{}, schemaErr(t, err)
		}
		magnitude, include := edgeMagnitude(v, e.when)
		if !include {
			continue
		}
		g.Edges = append(g.Edges, Edge{
			Source:   e.source,
			Target:   e.target,
			Value:    magnitude,
			Baseline: e.baseline,
			Color:    e.color,
		})
	}
	return g, nil
}

// BuildPLFlow builds the income-statement flow graph.
func BuildPLFlow(row statement.Row) (FlowGraph, error) {
	return BuildFlowGraph(statement.PL, row)
}

// BuildCFFlow builds the cash-flow graph.
func BuildCFFlow(row statement.Row) (FlowGraph, error) {
	return BuildFlowGraph(statement.CF, row)
}

func edgeMagnitude(v decimal.Decimal, when sign) (decimal.Decimal, bool) {
	switch when {
	case whenPositive:
		return v, v.IsPositive()
	case whenNegative:
		return v.Abs(), v.IsNegative()
	default:
		return clampZero(v), true
	}
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func schemaErr(t statement.StatementType, err error) error {
	return fmt.Errorf("%s flow: %w", t, err)
}
