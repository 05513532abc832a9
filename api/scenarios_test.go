/*
scenarios_test.go - Tests for the demo datasets and the import scheduler

Tests for:
- Every scenario builds a valid book
- Loading a scenario replaces the store and is reported as current
- Scenario-specific chart behavior (fallback bridge, no prior, losses)
- ImportScheduler lifecycle
*/
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/loader"
	"github.com/warp/statement-viz/statement"
	"github.com/warp/statement-viz/statement/sample"
	"github.com/warp/statement-viz/statement/store"
	"github.com/warp/statement-viz/store/sqlite"
	"github.com/warp/statement-viz/viz"
)

func TestScenarioBooksAreValid(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			build, ok := scenarioBooks[s.ID]
			require.True(t, ok, "scenario listed without a book")

			book, err := build()
			require.NoError(t, err)
			assert.Equal(t, sample.Code, book.Company.Code)
			assert.Positive(t, book.PL.Len())
		})
	}
	assert.Len(t, scenarioBooks, len(scenarios))
}

func TestLoadScenario_ReplacesStore(t *testing.T) {
	// GIVEN: a store holding another company
	other := sample.Book()
	other.Company = statement.Company{Code: "1001", Name: "Other"}
	_, router := newTestRouter(t, other)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "fallback-bridge"}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	companies := decode[[]statement.Company](t, get(t, router, "/api/companies"))
	require.Len(t, companies, 1)
	assert.Equal(t, sample.Code, companies[0].Code)

	current := decode[ScenarioDTO](t, get(t, router, "/api/scenarios/current"))
	assert.Equal(t, "fallback-bridge", current.ID)

	bridge := decode[BridgeDTO](t, get(t, router, base+"/pl/bridge?period=2023.12"))
	assert.Equal(t, viz.ModeFallback, bridge.Mode)
}

func TestLoadScenario_BadRequests(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing id", `{}`},
		{"unknown id", `{"scenario_id": "bankrupt"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/scenarios/load", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Equal(t, "null\n", get(t, router, "/api/scenarios/current").Body.String())
}

func TestSinglePeriodScenario_ComparisonsUnavailable(t *testing.T) {
	h, router := newTestRouter(t)
	require.NoError(t, h.Seed(context.Background(), "single-period"))

	assert.Equal(t, http.StatusUnprocessableEntity, get(t, router, base+"/highlights").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, router, base+"/pl/bridge").Code)

	// single-period charts still render
	assert.Equal(t, http.StatusOK, get(t, router, base+"/pl/flow").Code)
	seg := decode[CompositionDTO](t, get(t, router, base+"/pl/segments"))
	assert.False(t, seg.HasComparison)
}

func TestLossMakingScenario(t *testing.T) {
	h, router := newTestRouter(t)
	require.NoError(t, h.Seed(context.Background(), "loss-making"))

	pattern := decode[PatternResultDTO](t, get(t, router, base+"/cf/pattern"))
	assert.Equal(t, "other", string(pattern.Pattern.ID))

	flow := decode[FlowDTO](t, get(t, router, base+"/pl/flow"))
	for _, e := range flow.Edges {
		assert.GreaterOrEqual(t, e.Value, 0.0, "%s -> %s", e.Source, e.Target)
	}
	for _, n := range flow.Nodes {
		if n.ID == statement.OperatingProfit {
			assert.Equal(t, -1900.0, n.Value)
		}
	}
}

func TestResetDatabase(t *testing.T) {
	h, router := newTestRouter(t)
	require.NoError(t, h.Seed(context.Background(), "sample"))

	rec := do(t, router, http.MethodPost, "/api/reset", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]statement.Company](t, get(t, router, "/api/companies")))
	assert.Equal(t, "null\n", get(t, router, "/api/scenarios/current").Body.String())
}

func TestSeed_SQLiteStore(t *testing.T) {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	h := NewHandler(s, nil, nil)
	router := NewRouter(h, nil)

	require.NoError(t, h.Seed(context.Background(), "sample"))

	bridge := decode[BridgeDTO](t, get(t, router, base+"/pl/bridge?period=2023.12"))
	assert.Equal(t, viz.ModeDrivers, bridge.Mode)
	assert.Error(t, h.Seed(context.Background(), "nope"))
}

// =============================================================================
// IMPORT SCHEDULER
// =============================================================================

func TestImportScheduler_RunNow(t *testing.T) {
	// GIVEN: a data directory with one broken company folder
	dir := t.TempDir()
	folder := filepath.Join(dir, "0002")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, loader.CompanyFile), []byte(`{"code":"0002","name":"Broken"}`), 0o644))

	mem := store.NewMemory()
	s := NewImportScheduler(loader.New(dir), mem, time.Hour)

	// WHEN
	run := s.RunNow(context.Background())

	// THEN: the failure is recorded, not fatal
	require.NotNil(t, run)
	assert.Len(t, run.Failures, 1)
	assert.Same(t, run, s.LastRun())
}

func TestImportScheduler_StartStop(t *testing.T) {
	// GIVEN: the shortest interval cron supports
	s := NewImportScheduler(loader.New(t.TempDir()), store.NewMemory(), time.Second)

	// WHEN
	require.NoError(t, s.Start())
	require.NoError(t, s.Start()) // second start is a no-op

	// THEN
	assert.False(t, s.NextRunTime().IsZero())
	assert.Eventually(t, func() bool { return s.LastRun() != nil }, 3*time.Second, 50*time.Millisecond)
	status := s.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, "@every 1s", status.Schedule)

	s.Stop()
	s.Stop()
	assert.True(t, s.NextRunTime().IsZero())
}

func TestImportScheduler_CronSchedule(t *testing.T) {
	s := NewImportScheduler(loader.New(t.TempDir()), store.NewMemory(), time.Hour)
	s.Schedule = "0 6 * * *"

	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextRunTime()
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, "0 6 * * *", s.Status().Schedule)
}

func TestImportScheduler_InvalidSchedule(t *testing.T) {
	s := NewImportScheduler(loader.New(t.TempDir()), store.NewMemory(), time.Hour)
	s.Schedule = "every tuesday"

	assert.Error(t, s.Start())
	assert.False(t, s.Status().Enabled)
}

func TestImportScheduler_DisabledWithoutInterval(t *testing.T) {
	s := NewImportScheduler(loader.New(t.TempDir()), store.NewMemory(), 0)

	require.NoError(t, s.Start())
	s.Stop()

	assert.Nil(t, s.LastRun())
	assert.Equal(t, ScheduleDTO{}, s.Status())
}

func TestGetImportSchedule(t *testing.T) {
	h, router := newTestRouter(t)

	// no scheduler configured
	assert.Equal(t, ScheduleDTO{}, decode[ScheduleDTO](t, get(t, router, "/api/import/schedule")))

	h.Scheduler = NewImportScheduler(loader.New(t.TempDir()), store.NewMemory(), time.Hour)
	require.NoError(t, h.Scheduler.Start())
	defer h.Scheduler.Stop()

	status := decode[ScheduleDTO](t, get(t, router, "/api/import/schedule"))
	assert.True(t, status.Enabled)
	assert.Equal(t, "@every 1h0m0s", status.Schedule)
	require.NotNil(t, status.NextRun)
}
