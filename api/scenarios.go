/*
scenarios.go - Demo datasets for exploring the charts without a data directory

PURPOSE:

	Provides pre-built datasets that populate the store with the sample
	company, each variant exercising a different chart behavior.

AVAILABLE SCENARIOS:

	sample:          Four periods, curated drivers for 2023, segments
	fallback-bridge: Same company without drivers; every bridge uses the
	                 revenue / cost / SG&A fallback
	single-period:   Only the latest period; comparisons report no prior period
	loss-making:     Latest period with an operating loss and negative
	                 operating cash flow (clamped PL edges, "other" CF pattern)

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Build the books from statement/sample
 3. Save them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "fallback-bridge"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - statement/sample: the demo company
  - handlers.go: ResetDatabase
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "sample",
		Name:        "Sample Company",
		Description: "Four fiscal years with segments and curated profit drivers",
	},
	{
		ID:          "fallback-bridge",
		Name:        "No Drivers",
		Description: "Operating profit bridges fall back to revenue, cost and SG&A deltas",
	},
	{
		ID:          "single-period",
		Name:        "Single Period",
		Description: "Only the latest fiscal year; comparisons are unavailable",
	},
	{
		ID:          "loss-making",
		Name:        "Loss-Making Year",
		Description: "Operating loss and negative operating cash flow in the latest year",
	},
}

var scenarioBooks = map[string]func() (*statement.Book, error){
	"sample":          func() (*statement.Book, error) { return sample.Book(), nil },
	"fallback-bridge": fallbackBridgeBook,
	"single-period":   singlePeriodBook,
	"loss-making":     lossMakingBook,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the store content with a predefined dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioBooks[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("%q", req.ScenarioID))
		return
	}

	if err := h.Seed(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// Seed resets the store and saves the book of scenario id.
func (h *Handler) Seed(ctx context.Context, id string) error {
	build, ok := scenarioBooks[id]
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	book, err := build()
	if err != nil {
		return err
	}
	if err := h.Store.SaveBook(ctx, book); err != nil {
		return err
	}
	h.currentScenario = id
	log.Info().Str("scenario", id).Str("company", book.Company.Code).Msg("scenario loaded")
	return nil
}

// =============================================================================
// SCENARIO BOOKS
// =============================================================================

func fallbackBridgeBook() (*statement.Book, error) {
	book := sample.Book()
	book.Drivers = nil
	return book, nil
}

func singlePeriodBook() (*statement.Book, error) {
	latest := func(rows []statement.Row) []statement.Row { return rows[len(rows)-1:] }
	book := sample.Book()
	var err error
	if book.PL, err = statement.NewStatement(statement.PL, latest(sample.PLRows())); err != nil {
		return nil, err
	}
	if book.BS, err = statement.NewStatement(statement.BS, latest(sample.BSRows())); err != nil {
		return nil, err
	}
	if book.CF, err = statement.NewStatement(statement.CF, latest(sample.CFRows())); err != nil {
		return nil, err
	}
	book.Segments = book.SegmentsFor(book.PL.Periods()[0])
	book.Drivers = nil
	return book, nil
}

// lossMakingBook replaces the latest PL and CF rows with a year in which
// SG&A exceeds gross profit and operations burn cash.
func lossMakingBook() (*statement.Book, error) {
	d := decimal.NewFromInt
	book := sample.Book()

	pl := sample.PLRows()
	last := pl[len(pl)-1].Period
	pl[len(pl)-1] = statement.NewRow(last, map[statement.LineItem]decimal.Decimal{
		statement.Revenue:             d(9000),
		statement.CostOfSales:         d(7700),
		statement.GrossProfit:         d(1300),
		statement.SGA:                 d(3200),
		statement.OperatingProfit:     d(-1900),
		statement.NonOperatingIncome:  d(60),
		statement.NonOperatingExpense: d(200),
		statement.OrdinaryProfit:      d(-2040),
		statement.IncomeTaxes:         d(0),
		statement.NetIncome:           d(-2040),
	})

	cf := sample.CFRows()
	cf[len(cf)-1] = statement.NewRow(last, map[statement.LineItem]decimal.Decimal{
		statement.OpeningCash: d(4200),
		statement.OperatingCF: d(-800),
		statement.InvestingCF: d(-1500),
		statement.FinancingCF: d(2100),
		statement.ClosingCash: d(4000),
	})

	var err error
	if book.PL, err = statement.NewStatement(statement.PL, pl); err != nil {
		return nil, err
	}
	if book.CF, err = statement.NewStatement(statement.CF, cf); err != nil {
		return nil, err
	}
	return book, nil
}
