package viz

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/analysis"
	"github.com/warp/statement-viz/statement"
)

// =============================================================================
// TREEMAP
// =============================================================================

// Category is one named part of a whole.
type Category struct {
	Name  string
	Value decimal.Decimal
}

// CompositionNode is a treemap node. Change is the percent change against
// the prior category of the same name. HasPrior separates "no prior data"
// (Change 0, HasPrior false) from a real zero change.
type CompositionNode struct {
	Label    string
	Parent   string
	Value    decimal.Decimal
	Change   decimal.Decimal
	HasPrior bool
}

// CompositionTree is a two-level part-to-whole decomposition. The root is a
// structural placeholder with value 0.
type CompositionTree struct {
	Title         string
	Root          CompositionNode
	Children      []CompositionNode
	HasComparison bool
}

// BuildComposition decomposes root into categories without comparison.
func BuildComposition(root string, current []Category) CompositionTree {
	tree := CompositionTree{Root: CompositionNode{Label: root}}
	for _, c := range current {
		tree.Children = append(tree.Children, CompositionNode{
			Label:  c.Name,
			Parent: root,
			Value:  c.Value,
		})
	}
	return tree
}

// BuildCompositionWithPrior decomposes root and annotates each category
// with its percent change against the prior category of the same name.
func BuildCompositionWithPrior(root string, current, prior []Category) CompositionTree {
	prev := make(map[string]decimal.Decimal, len(prior))
	for _, c := range prior {
		prev[c.Name] = c.Value
	}

	tree := BuildComposition(root, current)
	tree.HasComparison = true
	for i := range tree.Children {
		p, ok := prev[tree.Children[i].Label]
		if !ok {
			continue
		}
		tree.Children[i].HasPrior = true
		tree.Children[i].Change = analysis.Percent(tree.Children[i].Value.Sub(p), p)
	}
	return tree
}

// SegmentComposition decomposes the revenue of period p by segment and
// compares it with the latest earlier segment period, when one exists.
func SegmentComposition(book *statement.Book, p statement.Period) (CompositionTree, error) {
	current := book.SegmentsFor(p)
	if len(current) == 0 {
		return CompositionTree{}, &statement.NotFoundError{
			Company: book.Company.Code, Statement: statement.Segment, Period: p,
		}
	}

	root := "全社"
	var tree CompositionTree
	if prior, ok := priorSegmentPeriod(book.Segments, p); ok {
		tree = BuildCompositionWithPrior(root, segmentRevenue(current), segmentRevenue(book.SegmentsFor(prior)))
		tree.Title = fmt.Sprintf("セグメント別売上構成 (%s, 前年比: %s)", p.Label(), prior.Label())
	} else {
		tree = BuildComposition(root, segmentRevenue(current))
		tree.Title = fmt.Sprintf("セグメント別売上構成 (%s)", p.Label())
	}
	return tree, nil
}

func segmentRevenue(rows []statement.SegmentRow) []Category {
	out := make([]Category, len(rows))
	for i, r := range rows {
		out[i] = Category{Name: r.Name, Value: r.Revenue}
	}
	return out
}

func priorSegmentPeriod(rows []statement.SegmentRow, p statement.Period) (statement.Period, bool) {
	var best statement.Period
	found := false
	for _, r := range rows {
		if r.Period.Before(p) && (!found || r.Period.After(best)) {
			best, found = r.Period, true
		}
	}
	return best, found
}

// =============================================================================
// BS BLOCKS
// =============================================================================

type blockItem struct {
	item  statement.LineItem
	color string
}

var (
	assetBlocks = []blockItem{
		{statement.CashAndDeposits, "#64B5F6"},
		{statement.AccountsReceivable, "#90CAF9"},
		{statement.OtherCurrentAssets, "#BBDEFB"},
		{statement.TangibleFixedAssets, "#1565C0"},
		{statement.IntangibleFixedAssets, "#1976D2"},
		{statement.InvestmentsAndOther, "#1E88E5"},
	}
	liabilityEquityBlocks = []blockItem{
		{statement.AccountsPayable, "#EF9A9A"},
		{statement.OtherCurrentLiabilities, "#E57373"},
		{statement.LongTermBorrowings, "#EF5350"},
		{statement.OtherFixedLiabilities, "#F44336"},
		{statement.CapitalStock, "#A5D6A7"},
		{statement.CapitalSurplus, "#81C784"},
		{statement.RetainedEarnings, "#66BB6A"},
	}
)

// Block is one segment of a stacked side.
type Block struct {
	Item      statement.LineItem
	Name      string
	Value     decimal.Decimal
	Share     decimal.Decimal // percent of the side total, 0 when the total is 0
	Label     string
	Shortened bool
	Color     string
}

// BlockSide is one stack of the chart.
type BlockSide struct {
	Name   string
	Total  decimal.Decimal
	Blocks []Block
}

// BlockChart compares assets against liabilities + equity. Values pass
// through as given; the two sides are not rebalanced.
type BlockChart struct {
	Title             string
	Period            statement.Period
	Assets            BlockSide
	LiabilitiesEquity BlockSide
}

// BSBlocks builds the block chart of one BS row.
func (b *Builder) BSBlocks(bs statement.Row) (BlockChart, error) {
	assets, err := b.blockSide("資産", bs, assetBlocks)
	if err != nil {
		return BlockChart{}, err
	}
	le, err := b.blockSide("負債・純資産", bs, liabilityEquityBlocks)
	if err != nil {
		return BlockChart{}, err
	}
	return BlockChart{
		Title:             fmt.Sprintf("貸借対照表 (%s)", bs.Period.Label()),
		Period:            bs.Period,
		Assets:            assets,
		LiabilitiesEquity: le,
	}, nil
}

// BuildBlockSide stacks arbitrary categories with the configured threshold.
func (b *Builder) BuildBlockSide(name string, cats []Category) BlockSide {
	side := BlockSide{Name: name}
	for _, c := range cats {
		side.Total = side.Total.Add(c.Value)
	}
	for _, c := range cats {
		side.Blocks = append(side.Blocks, b.block(c.Name, c.Value, side.Total))
	}
	return side
}

func (b *Builder) blockSide(name string, row statement.Row, items []blockItem) (BlockSide, error) {
	cats := make([]Category, 0, len(items))
	for _, it := range items {
		v, err := row.Get(it.item)
		if err != nil {
			return BlockSide{}, fmt.Errorf("bs blocks: %w", err)
		}
		cats = append(cats, Category{Name: it.item.Label(), Value: v})
	}
	side := b.BuildBlockSide(name, cats)
	for i := range side.Blocks {
		side.Blocks[i].Item = items[i].item
		side.Blocks[i].Color = items[i].color
	}
	return side, nil
}

func (b *Builder) block(name string, value, total decimal.Decimal) Block {
	share := analysis.Percent(value, total)
	blk := Block{Name: name, Value: value, Share: share}
	amount := humanize.Comma(value.Round(0).IntPart())
	if share.LessThan(b.threshold()) {
		blk.Label = amount
		blk.Shortened = true
	} else {
		blk.Label = name + "\n" + amount
	}
	return blk
}

// =============================================================================
// BS DRILL-DOWN
// =============================================================================

// DrillCategory selects a BS subtotal to break down.
type DrillCategory string

const (
	DrillCurrentAssets DrillCategory = "current_assets"
	DrillFixedAssets   DrillCategory = "fixed_assets"
	DrillLiabilities   DrillCategory = "liabilities"
	DrillNetAssets     DrillCategory = "net_assets"
)

var drillDefs = map[DrillCategory]struct {
	label string
	total statement.LineItem
	items []statement.LineItem
}{
	DrillCurrentAssets: {"流動資産", statement.CurrentAssets,
		[]statement.LineItem{statement.CashAndDeposits, statement.AccountsReceivable, statement.OtherCurrentAssets}},
	DrillFixedAssets: {"固定資産", statement.FixedAssets,
		[]statement.LineItem{statement.TangibleFixedAssets, statement.IntangibleFixedAssets, statement.InvestmentsAndOther}},
	DrillLiabilities: {"負債", statement.TotalLiabilities,
		[]statement.LineItem{statement.AccountsPayable, statement.OtherCurrentLiabilities, statement.LongTermBorrowings, statement.OtherFixedLiabilities}},
	DrillNetAssets: {"純資産", statement.NetAssets,
		[]statement.LineItem{statement.CapitalStock, statement.CapitalSurplus, statement.RetainedEarnings}},
}

// DrillCategories lists the valid categories in display order.
func DrillCategories() []DrillCategory {
	return []DrillCategory{DrillCurrentAssets, DrillFixedAssets, DrillLiabilities, DrillNetAssets}
}

// DrillItem is one component of a drill-down category.
type DrillItem struct {
	Item  statement.LineItem
	Label string
	Value decimal.Decimal
	Share decimal.Decimal // percent of the category total
}

// Drilldown breaks a BS subtotal into its components.
type Drilldown struct {
	Category DrillCategory
	Label    string
	Period   statement.Period
	Total    decimal.Decimal
	Items    []DrillItem
}

// ParseDrillCategory validates a category tag.
func ParseDrillCategory(s string) (DrillCategory, error) {
	c := DrillCategory(s)
	if _, ok := drillDefs[c]; !ok {
		keys := make([]string, 0, len(drillDefs))
		for k := range drillDefs {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: drill-down category %q (want one of %v)", statement.ErrInvalidArgument, s, keys)
	}
	return c, nil
}

// BuildDrilldown breaks down category of one BS row. Shares are taken
// against the reported subtotal, not the sum of the items.
func BuildDrilldown(bs statement.Row, category DrillCategory) (Drilldown, error) {
	def, ok := drillDefs[category]
	if !ok {
		return Drilldown{}, fmt.Errorf("%w: drill-down category %q", statement.ErrInvalidArgument, category)
	}
	total, err := bs.Get(def.total)
	if err != nil {
		return Drilldown{}, err
	}
	d := Drilldown{Category: category, Label: def.label, Period: bs.Period, Total: total}
	for _, item := range def.items {
		v, err := bs.Get(item)
		if err != nil {
			return Drilldown{}, err
		}
		d.Items = append(d.Items, DrillItem{
			Item:  item,
			Label: item.Label(),
			Value: v,
			Share: analysis.Percent(v, total),
		})
	}
	return d, nil
}
