package viz_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
	"github.com/warp/statement-viz/viz"
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

func cfRow(opening, operating, investing, financing float64) statement.Row {
	return rowOf("2024", map[statement.LineItem]float64{
		statement.OpeningCash: opening,
		statement.OperatingCF: operating,
		statement.InvestingCF: investing,
		statement.FinancingCF: financing,
		statement.ClosingCash: opening + operating + investing + financing,
	})
}

func edgeBetween(g viz.FlowGraph, src, dst statement.LineItem) (viz.Edge, bool) {
	for _, e := range g.Edges {
		if e.Source == src && e.Target == dst {
			return e, true
		}
	}
	return viz.Edge{}, false
}

// =============================================================================
// PL FLOW
// =============================================================================

func TestBuildPLFlow_Topology(t *testing.T) {
	book := sample.Book()
	row, err := book.PL.Row(statement.MustParsePeriod("2024.12"))
	require.NoError(t, err)

	g, err := viz.BuildPLFlow(row)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 10)
	assert.Len(t, g.Edges, 9)
	require.NoError(t, g.Validate())

	e, ok := edgeBetween(g, statement.Revenue, statement.CostOfSales)
	require.True(t, ok)
	assertDecimal(t, 7700, e.Value)

	// consumption edge runs out of operating profit
	e, ok = edgeBetween(g, statement.OperatingProfit, statement.NonOperatingExpense)
	require.True(t, ok)
	assertDecimal(t, 200, e.Value)

	assert.Equal(t, "損益計算書フロー (2024年12月期)", g.Title)
}

func TestBuildPLFlow_NegativeValuesClampedToZero(t *testing.T) {
	// GIVEN: an operating loss and a negative non-operating income line
	row := rowOf("2024", map[statement.LineItem]float64{
		statement.Revenue:             100,
		statement.CostOfSales:         80,
		statement.GrossProfit:         20,
		statement.SGA:                 50,
		statement.OperatingProfit:     -30,
		statement.NonOperatingIncome:  -5,
		statement.NonOperatingExpense: 10,
		statement.OrdinaryProfit:      -45,
		statement.IncomeTaxes:         0,
		statement.NetIncome:           -45,
	})

	// WHEN
	g, err := viz.BuildPLFlow(row)
	require.NoError(t, err)

	// THEN: no edge is negative, node values keep the raw figure
	for _, e := range g.Edges {
		assert.False(t, e.Value.IsNegative(), "%s->%s", e.Source, e.Target)
	}
	e, ok := edgeBetween(g, statement.GrossProfit, statement.OperatingProfit)
	require.True(t, ok)
	assert.True(t, e.Value.IsZero())

	node := g.Nodes[g.NodeIndex(statement.OperatingProfit)]
	assertDecimal(t, -30, node.Value)
	require.NoError(t, g.Validate())
}

func TestBuildPLFlow_MissingItem(t *testing.T) {
	row := rowOf("2024", map[statement.LineItem]float64{statement.Revenue: 100})

	_, err := viz.BuildPLFlow(row)
	assert.ErrorIs(t, err, statement.ErrSchemaMismatch)
}

func TestBuildFlowGraph_NoTemplateForBS(t *testing.T) {
	_, err := viz.BuildFlowGraph(statement.BS, statement.Row{})
	assert.ErrorIs(t, err, statement.ErrUnknownStatement)
}

// =============================================================================
// CF FLOW
// =============================================================================

func TestBuildCFFlow_AllOutflowsHealthy(t *testing.T) {
	// GIVEN: operating +100, investing -40, financing -20, opening 50
	g, err := viz.BuildCFFlow(cfRow(50, 100, -40, -20))
	require.NoError(t, err)

	// THEN: baseline plus exactly 3 edges
	assert.Len(t, g.NonBaselineEdges(), 3)
	require.Len(t, g.Edges, 4)
	assert.True(t, g.Edges[0].Baseline)
	assertDecimal(t, 50, g.Edges[0].Value)

	e, ok := edgeBetween(g, statement.OpeningCash, statement.InvestingCF)
	require.True(t, ok)
	assertDecimal(t, 40, e.Value)

	e, ok = edgeBetween(g, statement.OpeningCash, statement.FinancingCF)
	require.True(t, ok)
	assertDecimal(t, 20, e.Value)

	_, ok = edgeBetween(g, statement.FinancingCF, statement.ClosingCash)
	assert.False(t, ok)
	require.NoError(t, g.Validate())
}

func TestBuildCFFlow_OmitsNegativeOperatingPositiveInvestingZeroFinancing(t *testing.T) {
	g, err := viz.BuildCFFlow(cfRow(50, -10, 30, 0))
	require.NoError(t, err)

	assert.Empty(t, g.NonBaselineEdges())
	require.Len(t, g.Edges, 1)
	assert.True(t, g.Edges[0].Baseline)
}

func TestBuildCFFlow_PositiveFinancingFlowsIntoClosing(t *testing.T) {
	g, err := viz.BuildCFFlow(cfRow(50, 100, -40, 25))
	require.NoError(t, err)

	e, ok := edgeBetween(g, statement.FinancingCF, statement.ClosingCash)
	require.True(t, ok)
	assertDecimal(t, 25, e.Value)

	_, ok = edgeBetween(g, statement.OpeningCash, statement.FinancingCF)
	assert.False(t, ok)

	// CF nodes carry signed values
	assertDecimal(t, -40, g.Nodes[g.NodeIndex(statement.InvestingCF)].Value)
}

// =============================================================================
// VALIDATE
// =============================================================================

func TestFlowGraphValidate_DetectsCycle(t *testing.T) {
	g := viz.FlowGraph{
		Nodes: []viz.Node{{ID: "a"}, {ID: "b"}},
		Edges: []viz.Edge{
			{Source: "a", Target: "b", Value: dec(1)},
			{Source: "b", Target: "a", Value: dec(1)},
		},
	}
	assert.ErrorContains(t, g.Validate(), "cycle")
}

func TestFlowGraphValidate_UnknownNode(t *testing.T) {
	g := viz.FlowGraph{
		Nodes: []viz.Node{{ID: "a"}},
		Edges: []viz.Edge{{Source: "a", Target: "z", Value: dec(1)}},
	}
	assert.Error(t, g.Validate())
}
