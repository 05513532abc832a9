/*
handlers.go - HTTP API handlers for the statement visualizer

PURPOSE:
  Exposes the derivation layer via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to statement/, analysis/ and viz/.

ENDPOINTS:
  Companies:
    GET    /api/companies                              List companies
    GET    /api/companies/{code}                       Company metadata
    GET    /api/companies/{code}/periods/{statement}   Periods of a statement
    GET    /api/companies/{code}/statements/{statement} Statement table

  Summary:
    GET    /api/companies/{code}/dashboard             One-period dashboard
    GET    /api/companies/{code}/highlights            Latest vs previous period

  Charts (all accept ?period=, default latest):
    GET    /api/companies/{code}/pl/flow               PL Sankey
    GET    /api/companies/{code}/pl/bridge             Operating profit waterfall
    GET    /api/companies/{code}/pl/segments           Segment treemap
    GET    /api/companies/{code}/bs/blocks             BS stacked blocks
    GET    /api/companies/{code}/bs/changes            BS change list
    GET    /api/companies/{code}/bs/drilldown          BS category breakdown (?category=)
    GET    /api/companies/{code}/cf/flow               CF Sankey
    GET    /api/companies/{code}/cf/bridge             Cash waterfall
    GET    /api/companies/{code}/cf/pattern            CF sign pattern

  Trends:
    GET    /api/companies/{code}/trend/{statement}     Line-item series (?columns=a,b)
    GET    /api/companies/{code}/trend/derived/{kind}  Computed series

  Import:
    POST   /api/import                                 Re-import the data directory
    GET    /api/import/runs                            Recent import runs

REQUEST FLOW:
  1. Load a fresh Book from the store (no caching; re-imports show up
     on the next request)
  2. Resolve ?period= against the statement (default latest)
  3. Call the builder
  4. Convert to DTO and serialize

ERROR HANDLING:
  Errors are returned as JSON {"error", "code", "details"} with appropriate
  HTTP status:
  - 400: Malformed period, unknown statement/column/category, missing line item
  - 404: Company, statement or period not found
  - 422: No prior period to compare with
  - 503: Import requested without a data directory
  - 500: Internal errors

SEE ALSO:
  - dto.go: Response data structures
  - scenarios.go: Demo dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"
	"github.com/warp/statement-viz/analysis"
	"github.com/warp/statement-viz/loader"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/viz"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: statement tables plus a reset
// for demo scenarios.
type Store interface {
	statement.ReadWriter
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Loader    *loader.Loader // nil disables POST /api/import
	Viz       *viz.Builder
	Scheduler *ImportScheduler // optional, reported by GET /api/import/schedule

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. l may be nil.
func NewHandler(store Store, l *loader.Loader, b *viz.Builder) *Handler {
	if b == nil {
		b = viz.New(viz.DefaultOptions())
	}
	return &Handler{
		Store:    store,
		Loader:   l,
		Viz:      b,
		validate: validator.New(),
	}
}

// book loads the company named by the {code} URL parameter.
func (h *Handler) book(r *http.Request) (*statement.Book, error) {
	return statement.LoadBook(r.Context(), h.Store, chi.URLParam(r, "code"))
}

// period resolves ?period= against st, defaulting to its latest period.
func period(r *http.Request, st *statement.Statement) (statement.Period, error) {
	var p statement.Period
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := statement.ParsePeriod(raw)
		if err != nil {
			return statement.Period{}, err
		}
		p = parsed
	}
	return st.Resolve(p)
}

// bookAndPeriod is the common preamble of the per-period chart handlers.
func (h *Handler) bookAndPeriod(r *http.Request, t statement.StatementType) (*statement.Book, statement.Period, error) {
	book, err := h.book(r)
	if err != nil {
		return nil, statement.Period{}, err
	}
	st, err := book.Statement(t)
	if err != nil {
		return nil, statement.Period{}, err
	}
	p, err := period(r, st)
	if err != nil {
		return nil, statement.Period{}, err
	}
	return book, p, nil
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns all companies ordered by code.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to list companies", err)
		return
	}
	if companies == nil {
		companies = []statement.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

// GetCompany returns one company's metadata.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.Store.GetCompany(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// ListPeriods returns the periods of one statement.
// GET /api/companies/{code}/periods/{statement}
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadStatement(r)
	if err != nil {
		writeDomainError(w, r, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodsDTO(st))
}

// GetStatementTable returns every row of one statement.
// GET /api/companies/{code}/statements/{statement}
func (h *Handler) GetStatementTable(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadStatement(r)
	if err != nil {
		writeDomainError(w, r, "Failed to load statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableDTO(viz.BuildTable(st)))
}

func (h *Handler) loadStatement(r *http.Request) (*statement.Statement, error) {
	t, err := statement.ParseStatementType(chi.URLParam(r, "statement"))
	if err != nil {
		return nil, err
	}
	book, err := h.book(r)
	if err != nil {
		return nil, err
	}
	return book.Statement(t)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetDashboard returns the one-period summary.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.PL)
	if err != nil {
		writeDomainError(w, r, "Failed to build dashboard", err)
		return
	}
	dash, err := analysis.BuildDashboard(book, p)
	if err != nil {
		writeDomainError(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(dash))
}

// GetHighlights compares the latest period with the previous one.
func (h *Handler) GetHighlights(w http.ResponseWriter, r *http.Request) {
	book, err := h.book(r)
	if err != nil {
		writeDomainError(w, r, "Failed to build highlights", err)
		return
	}
	hl, err := analysis.BuildHighlights(book)
	if err != nil {
		writeDomainError(w, r, "Failed to build highlights", err)
		return
	}
	writeJSON(w, http.StatusOK, toHighlightsDTO(hl))
}

// =============================================================================
// PL HANDLERS
// =============================================================================

// GetPLFlow returns the income statement Sankey.
func (h *Handler) GetPLFlow(w http.ResponseWriter, r *http.Request) {
	h.flow(w, r, statement.PL)
}

// GetPLBridge returns the operating profit waterfall.
func (h *Handler) GetPLBridge(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.PL)
	if err != nil {
		writeDomainError(w, r, "Failed to build bridge", err)
		return
	}
	bridge, err := h.Viz.OperatingProfitBridge(book, p)
	if err != nil {
		writeDomainError(w, r, "Failed to build bridge", err)
		return
	}
	logViolation(r, bridge)
	writeJSON(w, http.StatusOK, toBridgeDTO(bridge))
}

// GetSegments returns the segment revenue treemap. Without ?period= it uses
// the latest period that has segment rows.
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	book, err := h.book(r)
	if err != nil {
		writeDomainError(w, r, "Failed to build segments", err)
		return
	}
	var p statement.Period
	if raw := r.URL.Query().Get("period"); raw != "" {
		if p, err = statement.ParsePeriod(raw); err != nil {
			writeDomainError(w, r, "Failed to build segments", err)
			return
		}
	} else {
		for _, s := range book.Segments {
			if s.Period.After(p) {
				p = s.Period
			}
		}
	}
	tree, err := viz.SegmentComposition(book, p)
	if err != nil {
		writeDomainError(w, r, "Failed to build segments", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompositionDTO(tree))
}

// =============================================================================
// BS HANDLERS
// =============================================================================

// GetBSBlocks returns the stacked block chart.
func (h *Handler) GetBSBlocks(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.BS)
	if err != nil {
		writeDomainError(w, r, "Failed to build blocks", err)
		return
	}
	row, err := book.BS.Row(p)
	if err != nil {
		writeDomainError(w, r, "Failed to build blocks", err)
		return
	}
	chart, err := h.Viz.BSBlocks(row)
	if err != nil {
		writeDomainError(w, r, "Failed to build blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, toBlockChartDTO(chart))
}

// GetBSChanges returns the period-over-period change list.
func (h *Handler) GetBSChanges(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.BS)
	if err != nil {
		writeDomainError(w, r, "Failed to build changes", err)
		return
	}
	list, err := viz.BuildBSChanges(book.BS, p)
	if err != nil {
		writeDomainError(w, r, "Failed to build changes", err)
		return
	}
	writeJSON(w, http.StatusOK, toDeltaListDTO(list))
}

// GetBSDrilldown breaks one BS category into its items.
// ?category= defaults to current_assets.
func (h *Handler) GetBSDrilldown(w http.ResponseWriter, r *http.Request) {
	category := viz.DrillCurrentAssets
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := viz.ParseDrillCategory(raw)
		if err != nil {
			writeDomainError(w, r, "Invalid category", err)
			return
		}
		category = c
	}
	book, p, err := h.bookAndPeriod(r, statement.BS)
	if err != nil {
		writeDomainError(w, r, "Failed to build drill-down", err)
		return
	}
	row, err := book.BS.Row(p)
	if err != nil {
		writeDomainError(w, r, "Failed to build drill-down", err)
		return
	}
	d, err := viz.BuildDrilldown(row, category)
	if err != nil {
		writeDomainError(w, r, "Failed to build drill-down", err)
		return
	}
	writeJSON(w, http.StatusOK, toDrilldownDTO(d))
}

// =============================================================================
// CF HANDLERS
// =============================================================================

// GetCFFlow returns the cash-flow Sankey.
func (h *Handler) GetCFFlow(w http.ResponseWriter, r *http.Request) {
	h.flow(w, r, statement.CF)
}

// GetCFBridge returns the opening-to-closing cash waterfall.
func (h *Handler) GetCFBridge(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.CF)
	if err != nil {
		writeDomainError(w, r, "Failed to build cash bridge", err)
		return
	}
	row, err := book.CF.Row(p)
	if err != nil {
		writeDomainError(w, r, "Failed to build cash bridge", err)
		return
	}
	bridge, err := h.Viz.CashBridge(row)
	if err != nil {
		writeDomainError(w, r, "Failed to build cash bridge", err)
		return
	}
	logViolation(r, bridge)
	writeJSON(w, http.StatusOK, toBridgeDTO(bridge))
}

// GetCFPattern classifies the sign pattern of one CF period.
func (h *Handler) GetCFPattern(w http.ResponseWriter, r *http.Request) {
	book, p, err := h.bookAndPeriod(r, statement.CF)
	if err != nil {
		writeDomainError(w, r, "Failed to classify cash flow", err)
		return
	}
	row, err := book.CF.Row(p)
	if err != nil {
		writeDomainError(w, r, "Failed to classify cash flow", err)
		return
	}
	pattern, err := analysis.ClassifyRow(row)
	if err != nil {
		writeDomainError(w, r, "Failed to classify cash flow", err)
		return
	}
	fcf, err := analysis.FreeCashFlow(row)
	if err != nil {
		writeDomainError(w, r, "Failed to classify cash flow", err)
		return
	}
	writeJSON(w, http.StatusOK, PatternResultDTO{
		Period:       toPeriodDTO(p),
		Pattern:      toPatternDTO(pattern),
		Operating:    f(row.Value(statement.OperatingCF)),
		Investing:    f(row.Value(statement.InvestingCF)),
		Financing:    f(row.Value(statement.FinancingCF)),
		FreeCashFlow: f(fcf),
	})
}

func (h *Handler) flow(w http.ResponseWriter, r *http.Request, t statement.StatementType) {
	book, p, err := h.bookAndPeriod(r, t)
	if err != nil {
		writeDomainError(w, r, "Failed to build flow", err)
		return
	}
	st, _ := book.Statement(t)
	row, err := st.Row(p)
	if err != nil {
		writeDomainError(w, r, "Failed to build flow", err)
		return
	}
	graph, err := viz.BuildFlowGraph(t, row)
	if err != nil {
		writeDomainError(w, r, "Failed to build flow", err)
		return
	}
	writeJSON(w, http.StatusOK, toFlowDTO(graph))
}

// =============================================================================
// TREND HANDLERS
// =============================================================================

// GetTrend plots line items of one statement over every period.
// ?columns=revenue,operating_profit accepts keys or Japanese labels;
// without it every line item is plotted.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadStatement(r)
	if err != nil {
		writeDomainError(w, r, "Failed to build trend", err)
		return
	}
	columns := statement.Vocabulary(st.Type)
	if raw := r.URL.Query().Get("columns"); raw != "" {
		columns = nil
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			item, ok := statement.ResolveLineItem(st.Type, name)
			if !ok {
				writeDomainError(w, r, "Unknown column", fmt.Errorf("%w: %s column %q", statement.ErrInvalidArgument, st.Type, name))
				return
			}
			columns = append(columns, item)
		}
	}
	set, err := viz.BuildSeries(st, columns)
	if err != nil {
		writeDomainError(w, r, "Failed to build trend", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesSetDTO(set))
}

// GetDerivedTrend returns a computed series set (margins, growth, ...).
func (h *Handler) GetDerivedTrend(w http.ResponseWriter, r *http.Request) {
	kind, err := viz.ParseDerivedKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, r, "Invalid series kind", err)
		return
	}
	book, err := h.book(r)
	if err != nil {
		writeDomainError(w, r, "Failed to build trend", err)
		return
	}
	set, err := viz.BuildDerivedSeries(book, kind)
	if err != nil {
		writeDomainError(w, r, "Failed to build trend", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesSetDTO(set))
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// TriggerImport re-imports the configured data directory.
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	if h.Loader == nil {
		writeError(w, http.StatusServiceUnavailable, "No data directory configured", nil)
		return
	}
	run, err := h.Loader.Import(r.Context(), h.Store)
	if err != nil {
		writeDomainError(w, r, "Import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListImportRuns returns recent import runs, newest first. ?limit= defaults to 20.
func (h *Handler) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	recorder, ok := h.Store.(statement.RunRecorder)
	if !ok {
		writeJSON(w, http.StatusOK, []statement.ImportRun{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := recorder.ListImportRuns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, "Failed to list import runs", err)
		return
	}
	if runs == nil {
		runs = []statement.ImportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetImportSchedule reports the periodic import schedule.
func (h *Handler) GetImportSchedule(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, ScheduleDTO{})
		return
	}
	writeJSON(w, http.StatusOK, h.Scheduler.Status())
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// Error codes let clients tell an expected "no comparison" apart from a fault.
const (
	CodeNotFound      = "not_found"
	CodeNoPriorPeriod = "no_prior_period"
	CodeInvalidInput  = "invalid_input"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal"
)

// classify maps domain errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case statement.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, statement.ErrNoPriorPeriod):
		return http.StatusUnprocessableEntity, CodeNoPriorPeriod
	case statement.IsClientError(err):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func logViolation(r *http.Request, b viz.Bridge) {
	if b.Violation == nil {
		return
	}
	log.Warn().
		Str("path", r.URL.Path).
		Str("bridge", b.Title).
		Str("diff", b.Violation.Diff.String()).
		Msg("bridge does not reconcile")
}
