/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures returned to chart clients. Domain models keep
  exact decimals; DTOs carry float64 so any charting library can plot them
  directly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - toXxxDTO: Domain -> DTO conversion

TYPES:
  Companies:  Company (domain type, already tagged), PeriodDTO, PeriodsDTO
  Tables:     TableDTO
  Summary:    DashboardDTO, HighlightsDTO, PatternDTO
  Charts:     FlowDTO, BridgeDTO, CompositionDTO, BlockChartDTO,
              DeltaListDTO, DrilldownDTO, SeriesSetDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest
  Import:     ScheduleDTO

SEE ALSO:
  - handlers.go: Uses these types
  - viz/: Source models
*/
package api

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/analysis"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/viz"
)

func f(d decimal.Decimal) float64 { return d.InexactFloat64() }

func floats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = f(d)
	}
	return out
}

// =============================================================================
// PERIODS + TABLES
// =============================================================================

// PeriodDTO is a period with its display label.
type PeriodDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func toPeriodDTO(p statement.Period) PeriodDTO {
	return PeriodDTO{ID: p.String(), Label: p.Label()}
}

// PeriodsDTO lists the periods of one statement, oldest first.
type PeriodsDTO struct {
	Statement statement.StatementType `json:"statement"`
	Periods   []PeriodDTO             `json:"periods"`
	Latest    *PeriodDTO              `json:"latest,omitempty"`
}

func toPeriodsDTO(st *statement.Statement) PeriodsDTO {
	dto := PeriodsDTO{Statement: st.Type, Periods: []PeriodDTO{}}
	for _, p := range st.Periods() {
		dto.Periods = append(dto.Periods, toPeriodDTO(p))
	}
	if n := len(dto.Periods); n > 0 {
		latest := dto.Periods[n-1]
		dto.Latest = &latest
	}
	return dto
}

// TableDTO is a statement laid out as rows of values.
type TableDTO struct {
	Statement statement.StatementType `json:"statement"`
	Columns   []statement.LineItem    `json:"columns"`
	Headers   []string                `json:"headers"`
	Rows      []TableRowDTO           `json:"rows"`
}

type TableRowDTO struct {
	Period string    `json:"period"`
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

func toTableDTO(t viz.Table) TableDTO {
	dto := TableDTO{Statement: t.Statement, Columns: t.Columns, Headers: t.Headers, Rows: []TableRowDTO{}}
	for _, r := range t.Rows {
		dto.Rows = append(dto.Rows, TableRowDTO{Period: r.Period.String(), Label: r.Label, Values: floats(r.Values)})
	}
	return dto
}

// =============================================================================
// SUMMARY
// =============================================================================

// YoYDTO compares a figure with the previous period.
type YoYDTO struct {
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`
	Growth   float64 `json:"growth"` // percent
}

// HeadlineDTO is one dashboard figure.
type HeadlineDTO struct {
	Item    statement.LineItem `json:"item"`
	Label   string             `json:"label"`
	Value   float64            `json:"value"`
	Display string             `json:"display"`
	YoY     *YoYDTO            `json:"yoy,omitempty"`
}

// RatiosDTO holds percent ratios.
type RatiosDTO struct {
	OperatingMargin float64 `json:"operating_margin"`
	GrossMargin     float64 `json:"gross_margin"`
	EquityRatio     float64 `json:"equity_ratio"`
	ROE             float64 `json:"roe"`
	ROA             float64 `json:"roa"`
}

// PatternDTO describes a cash-flow sign pattern.
type PatternDTO struct {
	ID          analysis.CashFlowPattern `json:"id"`
	Label       string                   `json:"label"`
	Description string                   `json:"description"`
}

func toPatternDTO(p analysis.CashFlowPattern) PatternDTO {
	return PatternDTO{ID: p, Label: p.Label(), Description: p.Description()}
}

// CashOverviewDTO is the CF block of the dashboard.
type CashOverviewDTO struct {
	Operating    float64    `json:"operating"`
	Investing    float64    `json:"investing"`
	Financing    float64    `json:"financing"`
	ClosingCash  float64    `json:"closing_cash"`
	FreeCashFlow float64    `json:"free_cash_flow"`
	Pattern      PatternDTO `json:"pattern"`
}

// DashboardDTO summarises one period.
type DashboardDTO struct {
	Period    PeriodDTO       `json:"period"`
	Headlines []HeadlineDTO   `json:"headlines"`
	Ratios    RatiosDTO       `json:"ratios"`
	Cash      CashOverviewDTO `json:"cash"`
}

func toDashboardDTO(d analysis.Dashboard) DashboardDTO {
	dto := DashboardDTO{
		Period: toPeriodDTO(d.Period),
		Ratios: RatiosDTO{
			OperatingMargin: f(d.Ratios.OperatingMargin),
			GrossMargin:     f(d.Ratios.GrossMargin),
			EquityRatio:     f(d.Ratios.EquityRatio),
			ROE:             f(d.Ratios.ROE),
			ROA:             f(d.Ratios.ROA),
		},
		Cash: CashOverviewDTO{
			Operating:    f(d.Cash.Operating),
			Investing:    f(d.Cash.Investing),
			Financing:    f(d.Cash.Financing),
			ClosingCash:  f(d.Cash.ClosingCash),
			FreeCashFlow: f(d.Cash.FreeCash),
			Pattern:      toPatternDTO(d.Cash.Pattern),
		},
	}
	for _, h := range d.Headlines {
		hd := HeadlineDTO{
			Item:    h.Item,
			Label:   h.Item.Label(),
			Value:   f(h.Value),
			Display: humanize.Comma(h.Value.Round(0).IntPart()),
		}
		if h.YoY != nil {
			hd.YoY = &YoYDTO{Previous: f(h.YoY.Previous), Delta: f(h.YoY.Delta), Growth: f(h.YoY.Growth.Round(1))}
		}
		dto.Headlines = append(dto.Headlines, hd)
	}
	return dto
}

// PatternResultDTO is the classified CF of one period.
type PatternResultDTO struct {
	Period       PeriodDTO  `json:"period"`
	Pattern      PatternDTO `json:"pattern"`
	Operating    float64    `json:"operating"`
	Investing    float64    `json:"investing"`
	Financing    float64    `json:"financing"`
	FreeCashFlow float64    `json:"free_cash_flow"`
}

// HighlightsDTO compares the latest period with the one before.
type HighlightsDTO struct {
	Period            PeriodDTO `json:"period"`
	RevenueGrowth     float64   `json:"revenue_growth"`
	OperatingGrowth   float64   `json:"operating_growth"`
	OperatingMargin   float64   `json:"operating_margin"`
	MarginChange      float64   `json:"margin_change"`
	MarginDirection   string    `json:"margin_direction"` // improved | worsened
	EquityRatio       float64   `json:"equity_ratio"`
	FreeCashFlow      float64   `json:"free_cash_flow"`
	OperatingCashFlow float64   `json:"operating_cash_flow"`
	InvestingCashFlow float64   `json:"investing_cash_flow"`
}

func toHighlightsDTO(h analysis.Highlights) HighlightsDTO {
	direction := "worsened"
	if h.MarginImproved {
		direction = "improved"
	}
	return HighlightsDTO{
		Period:            toPeriodDTO(h.Period),
		RevenueGrowth:     f(h.RevenueGrowth.Round(1)),
		OperatingGrowth:   f(h.OperatingGrowth.Round(1)),
		OperatingMargin:   f(h.OperatingMargin.Round(1)),
		MarginChange:      f(h.MarginChange.Round(1)),
		MarginDirection:   direction,
		EquityRatio:       f(h.EquityRatio.Round(1)),
		FreeCashFlow:      f(h.FreeCashFlow),
		OperatingCashFlow: f(h.OperatingCashFlow),
		InvestingCashFlow: f(h.InvestingCashFlow),
	}
}

// =============================================================================
// CHARTS
// =============================================================================

// FlowDTO is a Sankey diagram. Edge endpoints are given both as node IDs
// and as indices into Nodes.
type FlowDTO struct {
	Title     string                  `json:"title"`
	Statement statement.StatementType `json:"statement"`
	Period    PeriodDTO               `json:"period"`
	Nodes     []FlowNodeDTO           `json:"nodes"`
	Edges     []FlowEdgeDTO           `json:"edges"`
}

type FlowNodeDTO struct {
	ID    statement.LineItem `json:"id"`
	Label string             `json:"label"`
	Value float64            `json:"value"`
	Color string             `json:"color"`
}

type FlowEdgeDTO struct {
	Source      statement.LineItem `json:"source"`
	Target      statement.LineItem `json:"target"`
	SourceIndex int                `json:"source_index"`
	TargetIndex int                `json:"target_index"`
	Value       float64            `json:"value"`
	Baseline    bool               `json:"baseline"`
	Color       string             `json:"color"`
}

func toFlowDTO(g viz.FlowGraph) FlowDTO {
	dto := FlowDTO{
		Title:     g.Title,
		Statement: g.Statement,
		Period:    toPeriodDTO(g.Period),
		Nodes:     []FlowNodeDTO{},
		Edges:     []FlowEdgeDTO{},
	}
	for _, n := range g.Nodes {
		dto.Nodes = append(dto.Nodes, FlowNodeDTO{ID: n.ID, Label: n.Label, Value: f(n.Value), Color: n.Color})
	}
	for _, e := range g.Edges {
		dto.Edges = append(dto.Edges, FlowEdgeDTO{
			Source:      e.Source,
			Target:      e.Target,
			SourceIndex: g.NodeIndex(e.Source),
			TargetIndex: g.NodeIndex(e.Target),
			Value:       f(e.Value),
			Baseline:    e.Baseline,
			Color:       e.Color,
		})
	}
	return dto
}

// BridgeDTO is a waterfall chart. Warning is set when the steps do not add
// up to the total; the chart is still drawable.
type BridgeDTO struct {
	Title      string         `json:"title"`
	Mode       viz.BridgeMode `json:"mode"`
	Steps      []StepDTO      `json:"steps"`
	Reconciled bool           `json:"reconciled"`
	Warning    *ViolationDTO  `json:"warning,omitempty"`
}

type StepDTO struct {
	Label   string      `json:"label"`
	Measure viz.Measure `json:"measure"`
	Value   float64     `json:"value"`
}

type ViolationDTO struct {
	Message  string  `json:"message"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Diff     float64 `json:"diff"`
}

func toBridgeDTO(b viz.Bridge) BridgeDTO {
	dto := BridgeDTO{Title: b.Title, Mode: b.Mode, Reconciled: b.Reconciled, Steps: []StepDTO{}}
	for _, s := range b.Steps {
		dto.Steps = append(dto.Steps, StepDTO{Label: s.Label, Measure: s.Measure, Value: f(s.Value)})
	}
	if v := b.Violation; v != nil {
		dto.Warning = &ViolationDTO{Message: v.Error(), Expected: f(v.Expected), Actual: f(v.Actual), Diff: f(v.Diff)}
	}
	return dto
}

// CompositionDTO is a treemap.
type CompositionDTO struct {
	Title         string               `json:"title"`
	HasComparison bool                 `json:"has_comparison"`
	Root          CompositionNodeDTO   `json:"root"`
	Children      []CompositionNodeDTO `json:"children"`
}

type CompositionNodeDTO struct {
	Label    string  `json:"label"`
	Parent   string  `json:"parent"`
	Value    float64 `json:"value"`
	Change   float64 `json:"change"` // percent
	HasPrior bool    `json:"has_prior"`
}

func toCompositionNodeDTO(n viz.CompositionNode) CompositionNodeDTO {
	return CompositionNodeDTO{
		Label:    n.Label,
		Parent:   n.Parent,
		Value:    f(n.Value),
		Change:   f(n.Change.Round(1)),
		HasPrior: n.HasPrior,
	}
}

func toCompositionDTO(t viz.CompositionTree) CompositionDTO {
	dto := CompositionDTO{
		Title:         t.Title,
		HasComparison: t.HasComparison,
		Root:          toCompositionNodeDTO(t.Root),
		Children:      []CompositionNodeDTO{},
	}
	for _, c := range t.Children {
		dto.Children = append(dto.Children, toCompositionNodeDTO(c))
	}
	return dto
}

// BlockChartDTO is the stacked BS chart.
type BlockChartDTO struct {
	Title             string       `json:"title"`
	Period            PeriodDTO    `json:"period"`
	Assets            BlockSideDTO `json:"assets"`
	LiabilitiesEquity BlockSideDTO `json:"liabilities_equity"`
}

type BlockSideDTO struct {
	Name   string     `json:"name"`
	Total  float64    `json:"total"`
	Blocks []BlockDTO `json:"blocks"`
}

type BlockDTO struct {
	Item      statement.LineItem `json:"item"`
	Name      string             `json:"name"`
	Value     float64            `json:"value"`
	Share     float64            `json:"share"`
	Label     string             `json:"label"`
	Shortened bool               `json:"shortened"`
	Color     string             `json:"color"`
}

func toBlockSideDTO(s viz.BlockSide) BlockSideDTO {
	dto := BlockSideDTO{Name: s.Name, Total: f(s.Total), Blocks: []BlockDTO{}}
	for _, b := range s.Blocks {
		dto.Blocks = append(dto.Blocks, BlockDTO{
			Item:      b.Item,
			Name:      b.Name,
			Value:     f(b.Value),
			Share:     f(b.Share.Round(1)),
			Label:     b.Label,
			Shortened: b.Shortened,
			Color:     b.Color,
		})
	}
	return dto
}

func toBlockChartDTO(c viz.BlockChart) BlockChartDTO {
	return BlockChartDTO{
		Title:             c.Title,
		Period:            toPeriodDTO(c.Period),
		Assets:            toBlockSideDTO(c.Assets),
		LiabilitiesEquity: toBlockSideDTO(c.LiabilitiesEquity),
	}
}

// DeltaListDTO lists period-over-period changes.
type DeltaListDTO struct {
	Title  string     `json:"title"`
	Prior  PeriodDTO  `json:"prior"`
	Period PeriodDTO  `json:"period"`
	Deltas []DeltaDTO `json:"deltas"`
}

type DeltaDTO struct {
	Item    statement.LineItem `json:"item"`
	Label   string             `json:"label"`
	Prior   float64            `json:"prior"`
	Current float64            `json:"current"`
	Change  float64            `json:"change"`
}

func toDeltaListDTO(l viz.DeltaList) DeltaListDTO {
	dto := DeltaListDTO{Title: l.Title, Prior: toPeriodDTO(l.Prior), Period: toPeriodDTO(l.Period), Deltas: []DeltaDTO{}}
	for _, d := range l.Deltas {
		dto.Deltas = append(dto.Deltas, DeltaDTO{
			Item:    d.Item,
			Label:   d.Label,
			Prior:   f(d.Prior),
			Current: f(d.Current),
			Change:  f(d.Change),
		})
	}
	return dto
}

// DrilldownDTO breaks a BS subtotal into its items.
type DrilldownDTO struct {
	Category   viz.DrillCategory   `json:"category"`
	Label      string              `json:"label"`
	Period     PeriodDTO           `json:"period"`
	Total      float64             `json:"total"`
	Items      []DrillItemDTO      `json:"items"`
	Categories []viz.DrillCategory `json:"categories"`
}

type DrillItemDTO struct {
	Item  statement.LineItem `json:"item"`
	Label string             `json:"label"`
	Value float64            `json:"value"`
	Share float64            `json:"share"`
}

func toDrilldownDTO(d viz.Drilldown) DrilldownDTO {
	dto := DrilldownDTO{
		Category:   d.Category,
		Label:      d.Label,
		Period:     toPeriodDTO(d.Period),
		Total:      f(d.Total),
		Items:      []DrillItemDTO{},
		Categories: viz.DrillCategories(),
	}
	for _, it := range d.Items {
		dto.Items = append(dto.Items, DrillItemDTO{Item: it.Item, Label: it.Label, Value: f(it.Value), Share: f(it.Share.Round(1))})
	}
	return dto
}

// SeriesSetDTO is a multi-line trend chart.
type SeriesSetDTO struct {
	Title   string      `json:"title"`
	Axis    []string    `json:"axis"`
	Periods []string    `json:"periods"`
	Series  []SeriesDTO `json:"series"`
}

type SeriesDTO struct {
	Name   string             `json:"name"`
	Item   statement.LineItem `json:"item,omitempty"`
	Unit   string             `json:"unit"`
	Values []float64          `json:"values"`
}

func toSeriesSetDTO(s viz.SeriesSet) SeriesSetDTO {
	dto := SeriesSetDTO{Title: s.Title, Axis: s.Axis, Periods: []string{}, Series: []SeriesDTO{}}
	for _, p := range s.Periods {
		dto.Periods = append(dto.Periods, p.String())
	}
	for _, line := range s.Series {
		dto.Series = append(dto.Series, SeriesDTO{Name: line.Name, Item: line.Item, Unit: line.Unit, Values: floats(line.Values)})
	}
	return dto
}

// =============================================================================
// SCENARIOS + ERRORS
// =============================================================================

// ScheduleDTO reports the periodic import schedule.
type ScheduleDTO struct {
	Enabled  bool                 `json:"enabled"`
	Schedule string               `json:"schedule,omitempty"`
	NextRun  *time.Time           `json:"next_run,omitempty"`
	LastRun  *statement.ImportRun `json:"last_run,omitempty"`
}

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
