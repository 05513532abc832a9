package viz

import "github.com/shopspring/decimal"

// Shared palette. Consumers may ignore it; the models are renderer-neutral.
const (
	colorRevenue     = "#2196F3"
	colorCost        = "#FF5722"
	colorProfit      = "#4CAF50"
	colorExpense     = "#FF9800"
	colorTax         = "#9C27B0"
	colorPositive    = "#4CAF50"
	colorNegative    = "#FF5722"
	colorTotal       = "#2196F3"
	colorSubtotal    = "#42A5F5"
	colorOperatingCF = "#4CAF50"
	colorInvestingCF = "#FF9800"
	colorFinancingCF = "#9C27B0"
)

const (
	// DefaultLabelShareThreshold is the share (percent of its side) below
	// which a block is labelled with its value only.
	DefaultLabelShareThreshold = 5

	// DefaultBridgeTolerance is the relative tolerance of the bridge sum check.
	DefaultBridgeTolerance = 1e-6

	// DefaultResidualLabel names the reconciling step appended to a bridge
	// whose steps do not add up.
	DefaultResidualLabel = "その他"
)

// Options tunes the heuristics of the builders.
type Options struct {
	// LabelShareThreshold in percent. Blocks strictly below it are shortened.
	LabelShareThreshold float64
	// BridgeTolerance is relative to max(|total|, 1).
	BridgeTolerance float64
	// ReconcileResidual appends a relative residual step to bridges that
	// violate the sum invariant instead of only flagging them.
	ReconcileResidual bool
	ResidualLabel     string
}

// DefaultOptions returns the stock heuristics.
func DefaultOptions() Options {
	return Options{
		LabelShareThreshold: DefaultLabelShareThreshold,
		BridgeTolerance:     DefaultBridgeTolerance,
		ResidualLabel:       DefaultResidualLabel,
	}
}

// Builder builds the visualization models that depend on Options.
// A Builder holds no mutable state and is safe for concurrent use.
type Builder struct {
	opts Options
}

// New returns a Builder. Zero fields of opts fall back to the defaults.
func New(opts Options) *Builder {
	def := DefaultOptions()
	if opts.LabelShareThreshold <= 0 {
		opts.LabelShareThreshold = def.LabelShareThreshold
	}
	if opts.BridgeTolerance <= 0 {
		opts.BridgeTolerance = def.BridgeTolerance
	}
	if opts.ResidualLabel == "" {
		opts.ResidualLabel = def.ResidualLabel
	}
	return &Builder{opts: opts}
}

// Options returns the effective options.
func (b *Builder) Options() Options { return b.opts }

func (b *Builder) tolerance() decimal.Decimal {
	return decimal.NewFromFloat(b.opts.BridgeTolerance)
}

func (b *Builder) threshold() decimal.Decimal {
	return decimal.NewFromFloat(b.opts.LabelShareThreshold)
}
