/*
scheduler.go - Periodic re-import of the data directory

PURPOSE:
  Keeps the store in step with the CSV data directory. Analysts edit the
  company folders in place; the scheduler re-imports them on a schedule
  so the charts pick up the change without a restart.

DESIGN:
  - Backed by robfig/cron; a cron expression wins over a plain interval
  - Each run calls loader.Import; per-company failures are recorded in
    the import run, not treated as fatal
  - cron.SkipIfStillRunning drops a tick while an import is in flight
  - Stop cancels an import in flight and waits for it

CONFIGURATION:
  - Schedule: 5-field cron expression ([data] import_schedule)
  - Interval: fallback when Schedule is empty ([data] import_interval, 0 disables)

USAGE:
  scheduler := NewImportScheduler(loader, store, time.Hour)
  scheduler.Schedule = "0 6 * * *"
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerImport endpoint (manual import)
  - loader/loader.go: Import
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
	"github.com/warp/statement-viz/loader"
	"github.com/warp/statement-viz/statement"
)

// ImportScheduler re-imports a data directory on a cron schedule.
type ImportScheduler struct {
	Loader   *loader.Loader
	Store    statement.Writer
	Interval time.Duration
	Schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	lastRun *statement.ImportRun
}

// NewImportScheduler creates a new scheduler.
func NewImportScheduler(l *loader.Loader, store statement.Writer, interval time.Duration) *ImportScheduler {
	return &ImportScheduler{
		Loader:   l,
		Store:    store,
		Interval: interval,
	}
}

// Start begins the scheduler. It is a no-op when neither Schedule nor a
// positive Interval is set, or when the scheduler already runs.
func (s *ImportScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	schedule, err := s.schedule()
	if err != nil {
		return err
	}
	if schedule == nil {
		log.Info().Msg("import scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.entry = c.Schedule(schedule, cron.FuncJob(func() { s.RunNow(ctx) }))
	s.cron = c
	s.cancel = cancel
	c.Start()

	log.Info().
		Str("schedule", s.describe()).
		Str("dir", s.Loader.Dir()).
		Time("next_run", c.Entry(s.entry).Next).
		Msg("import scheduler started")
	return nil
}

func (s *ImportScheduler) schedule() (cron.Schedule, error) {
	if s.Schedule != "" {
		sched, err := cron.ParseStandard(s.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid import schedule %q: %w", s.Schedule, err)
		}
		return sched, nil
	}
	if s.Interval > 0 {
		return cron.Every(s.Interval), nil
	}
	return nil, nil
}

func (s *ImportScheduler) describe() string {
	if s.Schedule != "" {
		return s.Schedule
	}
	return "@every " + s.Interval.String()
}

// Stop stops the scheduler and waits for an import in flight to return.
func (s *ImportScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	log.Info().Msg("import scheduler stopped")
}

// RunNow imports immediately and returns the run, or nil when the import
// could not start.
func (s *ImportScheduler) RunNow(ctx context.Context) *statement.ImportRun {
	run, err := s.Loader.Import(ctx, s.Store)
	if err != nil {
		log.Error().Err(err).Str("dir", s.Loader.Dir()).Msg("scheduled import failed")
		return nil
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()
	return run
}

// LastRun returns the most recent completed run, or nil.
func (s *ImportScheduler) LastRun() *statement.ImportRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRunTime returns when the next scheduled import will occur, or the
// zero time when the scheduler is not running.
func (s *ImportScheduler) NextRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Status summarizes the scheduler for GET /api/import/schedule.
func (s *ImportScheduler) Status() ScheduleDTO {
	next := s.NextRunTime()
	dto := ScheduleDTO{Enabled: !next.IsZero(), LastRun: s.LastRun()}
	if dto.Enabled {
		dto.Schedule = s.describe()
		dto.NextRun = &next
	}
	return dto
}
