/*
Package sqlite provides a SQLite-backed statement store.

PURPOSE:
  Persists imported companies so the server can answer from a database
  instead of re-reading the data directory on every request. Implements
  statement.ReadWriter and statement.RunRecorder.

KEY TABLES:
  companies:       company metadata, one row per code
  statement_rows:  one row per (company, statement, period); line items as JSON
  segments:        segment rows in source order (seq)
  drivers:         driver adjustments in source order (seq)
  import_runs:     one row per data-directory import

REPLACE SEMANTICS:
  SaveBook replaces every table of one company inside a single database
  transaction. Readers never observe a half-imported company.

AMOUNTS:
  Stored as decimal strings, never REAL, so a reloaded Book sums exactly
  like the one that was saved.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

USAGE:
  store, err := sqlite.New("./data/statements.db")
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

  book, err := statement.LoadBook(ctx, store, "5139")

SEE ALSO:
  - statement/store.go: interface definitions
  - statement/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/statement-viz/statement"
)

// Store implements statement.ReadWriter using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		market TEXT,
		fiscal_label TEXT,
		description TEXT,
		url TEXT,
		notes TEXT,
		updated_at TEXT NOT NULL
	);

	-- One row per statement period; line items are a JSON object of decimal strings
	CREATE TABLE IF NOT EXISTS statement_rows (
		company_code TEXT NOT NULL REFERENCES companies(code) ON DELETE CASCADE,
		statement TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL,
		values_json TEXT NOT NULL,
		PRIMARY KEY (company_code, statement, period_year, period_month)
	);

	CREATE TABLE IF NOT EXISTS segments (
		company_code TEXT NOT NULL REFERENCES companies(code) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL,
		name TEXT NOT NULL,
		revenue TEXT NOT NULL,
		operating_profit TEXT NOT NULL,
		PRIMARY KEY (company_code, seq)
	);

	CREATE TABLE IF NOT EXISTS drivers (
		company_code TEXT NOT NULL REFERENCES companies(code) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		prior_year INTEGER NOT NULL,
		prior_month INTEGER NOT NULL,
		current_year INTEGER NOT NULL,
		current_month INTEGER NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (company_code, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_drivers_pair
		ON drivers(company_code, prior_year, prior_month, current_year, current_month);

	CREATE TABLE IF NOT EXISTS import_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		companies_json TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		failures_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_import_runs_started
		ON import_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// WRITER (statement.Writer interface)
// =============================================================================

// SaveBook replaces every table of b.Company.Code atomically.
func (s *Store) SaveBook(ctx context.Context, b *statement.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	code := b.Company.Code
	if err := deleteCompany(ctx, sqlTx, code); err != nil {
		return err
	}
	if err := insertCompany(ctx, sqlTx, b.Company); err != nil {
		return err
	}

	for _, st := range []*statement.Statement{b.PL, b.BS, b.CF} {
		if st == nil {
			continue
		}
		for _, row := range st.Rows() {
			if err := insertRow(ctx, sqlTx, code, st.Type, row); err != nil {
				return err
			}
		}
	}

	for i, seg := range b.Segments {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO segments
			(company_code, seq, period_year, period_month, name, revenue, operating_profit)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			code, i, seg.Period.Year, seg.Period.Month, seg.Name,
			seg.Revenue.String(), seg.OperatingProfit.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	for i, d := range b.Drivers {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO drivers
			(company_code, seq, prior_year, prior_month, current_year, current_month, name, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			code, i, d.Prior.Year, d.Prior.Month, d.Current.Year, d.Current.Month,
			d.Name, d.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert driver: %w", err)
		}
	}

	return sqlTx.Commit()
}

func deleteCompany(ctx context.Context, db execer, code string) error {
	for _, table := range []string{"statement_rows", "segments", "drivers", "companies"} {
		col := "company_code"
		if table == "companies" {
			col = "code"
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+col+" = ?", code); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertCompany(ctx context.Context, db execer, c statement.Company) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO companies (code, name, market, fiscal_label, description, url, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Name, nullString(c.Market), nullString(c.FiscalLabel),
		nullString(c.Description), nullString(c.URL), nullString(c.Notes),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

func insertRow(ctx context.Context, db execer, code string, t statement.StatementType, row statement.Row) error {
	valuesJSON, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("failed to encode %s row %s: %w", t, row.Period, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO statement_rows (company_code, statement, period_year, period_month, values_json)
		VALUES (?, ?, ?, ?, ?)`,
		code, string(t), row.Period.Year, row.Period.Month, string(valuesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s row %s: %w", t, row.Period, err)
	}
	return nil
}

// =============================================================================
// STORE (statement.Store interface)
// =============================================================================

// ListCompanies returns all companies ordered by code.
func (s *Store) ListCompanies(ctx context.Context) ([]statement.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, market, fiscal_label, description, url, notes
		FROM companies
		ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []statement.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// GetCompany returns one company or a NotFoundError.
func (s *Store) GetCompany(ctx context.Context, code string) (statement.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCompany(ctx, code)
}

func (s *Store) getCompany(ctx context.Context, code string) (statement.Company, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, name, market, fiscal_label, description, url, notes
		FROM companies
		WHERE code = ?`, code)

	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return statement.Company{}, &statement.NotFoundError{Company: code}
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(row scanner) (statement.Company, error) {
	var (
		c                                statement.Company
		market, fiscal, desc, url, notes sql.NullString
	)
	if err := row.Scan(&c.Code, &c.Name, &market, &fiscal, &desc, &url, &notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan company: %w", err)
	}
	c.Market = market.String
	c.FiscalLabel = fiscal.String
	c.Description = desc.String
	c.URL = url.String
	c.Notes = notes.String
	return c, nil
}

// LoadRows returns every row of a tabular statement, oldest first.
func (s *Store) LoadRows(ctx context.Context, code string, t statement.StatementType) ([]statement.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getCompany(ctx, code); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT period_year, period_month, values_json
		FROM statement_rows
		WHERE company_code = ? AND statement = ?
		ORDER BY period_year ASC, period_month ASC`, code, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s rows: %w", t, err)
	}
	defer rows.Close()

	var result []statement.Row
	for rows.Next() {
		var (
			p          statement.Period
			valuesJSON string
		)
		if err := rows.Scan(&p.Year, &p.Month, &valuesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t, err)
		}
		values := make(map[statement.LineItem]decimal.Decimal)
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, fmt.Errorf("failed to decode %s row %s: %w", t, p, err)
		}
		result = append(result, statement.NewRow(p, values))
	}
	return result, rows.Err()
}

// LoadSegments returns segment rows in source order.
func (s *Store) LoadSegments(ctx context.Context, code string) ([]statement.SegmentRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT period_year, period_month, name, revenue, operating_profit
		FROM segments
		WHERE company_code = ?
		ORDER BY seq ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var result []statement.SegmentRow
	for rows.Next() {
		var (
			seg         statement.SegmentRow
			revenue, op string
		)
		if err := rows.Scan(&seg.Period.Year, &seg.Period.Month, &seg.Name, &revenue, &op); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		if seg.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("segment %s revenue: %w", seg.Name, err)
		}
		if seg.OperatingProfit, err = decimal.NewFromString(op); err != nil {
			return nil, fmt.Errorf("segment %s operating profit: %w", seg.Name, err)
		}
		result = append(result, seg)
	}
	return result, rows.Err()
}

// LoadDrivers returns driver adjustments in source order.
func (s *Store) LoadDrivers(ctx context.Context, code string) ([]statement.DriverAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT prior_year, prior_month, current_year, current_month, name, amount
		FROM drivers
		WHERE company_code = ?
		ORDER BY seq ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	defer rows.Close()

	var result []statement.DriverAdjustment
	for rows.Next() {
		var (
			d      statement.DriverAdjustment
			amount string
		)
		err := rows.Scan(&d.Prior.Year, &d.Prior.Month, &d.Current.Year, &d.Current.Month, &d.Name, &amount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("driver %s amount: %w", d.Name, err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// =============================================================================
// IMPORT RUNS (statement.RunRecorder interface)
// =============================================================================

// RecordImportRun stores run, assigning a UUID when its ID is empty.
func (s *Store) RecordImportRun(ctx context.Context, run *statement.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	companiesJSON, _ := json.Marshal(run.Companies)
	failuresJSON, _ := json.Marshal(run.Failures)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, source, started_at, finished_at, companies_json, row_count, failures_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(companiesJSON), run.Rows, string(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record import run: %w", err)
	}
	return nil
}

// ListImportRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]statement.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, companies_json, row_count, failures_json
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var runs []statement.ImportRun
	for rows.Next() {
		var (
			run               statement.ImportRun
			started, finished string
			companiesJSON     string
			failuresJSON      sql.NullString
		)
		err := rows.Scan(&run.ID, &run.Source, &started, &finished, &companiesJSON, &run.Rows, &failuresJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		json.Unmarshal([]byte(companiesJSON), &run.Companies)
		if failuresJSON.Valid {
			json.Unmarshal([]byte(failuresJSON.String), &run.Failures)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"statement_rows", "segments", "drivers", "companies", "import_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ statement.ReadWriter  = (*Store)(nil)
	_ statement.RunRecorder = (*Store)(nil)
)
