/*
store.go - Persistence interface for company statement tables

PURPOSE:
  Defines the boundary between the derivation layer and wherever the
  statement tables live (CSV directory, SQLite, memory). The derivation
  layer never caches: LoadBook rebuilds a Book from the Store on every
  access, so a re-import is visible on the next request.

IMPLEMENTATIONS:
  - statement/store/memory.go: in-memory, for tests and CSV-backed serving
  - store/sqlite/sqlite.go:    SQLite persistence

SEE ALSO:
  - loader/: reads company directories into Books
*/
package statement

import (
	"context"
	"fmt"
	"time"
)

// Store reads company statement tables.
type Store interface {
	// ListCompanies returns all companies ordered by code.
	ListCompanies(ctx context.Context) ([]Company, error)

	// GetCompany returns one company or a NotFoundError.
	GetCompany(ctx context.Context, code string) (Company, error)

	// LoadRows returns every row of a tabular statement, in any order.
	LoadRows(ctx context.Context, code string, t StatementType) ([]Row, error)

	// LoadSegments returns segment rows in source order.
	LoadSegments(ctx context.Context, code string) ([]SegmentRow, error)

	// LoadDrivers returns driver adjustments in source order.
	LoadDrivers(ctx context.Context, code string) ([]DriverAdjustment, error)
}

// Writer replaces the stored tables of one company.
type Writer interface {
	// SaveBook replaces all tables of b.Company.Code atomically.
	SaveBook(ctx context.Context, b *Book) error
}

// ReadWriter is a Store that can also be written.
type ReadWriter interface {
	Store
	Writer
}

// ImportRun summarises one import of a data directory.
type ImportRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Companies  []string  `json:"companies"`
	Rows       int       `json:"rows"`
	Failures   []string  `json:"failures,omitempty"`
}

// Succeeded reports whether every company imported.
func (r ImportRun) Succeeded() bool { return len(r.Failures) == 0 }

// RunRecorder persists import runs. Implementations assign the ID when empty.
type RunRecorder interface {
	RecordImportRun(ctx context.Context, run *ImportRun) error
	ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error)
}

// LoadBook assembles a validated Book for one company.
func LoadBook(ctx context.Context, s Store, code string) (*Book, error) {
	company, err := s.GetCompany(ctx, code)
	if err != nil {
		return nil, err
	}

	book := &Book{Company: company}
	for _, t := range []StatementType{PL, BS, CF} {
		rows, err := s.LoadRows(ctx, code, t)
		if err != nil {
			return nil, fmt.Errorf("load %s rows of %s: %w", t, code, err)
		}
		st, err := NewStatement(t, rows)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", code, err)
		}
		switch t {
		case PL:
			book.PL = st
		case BS:
			book.BS = st
		case CF:
			book.CF = st
		}
	}

	if book.Segments, err = s.LoadSegments(ctx, code); err != nil {
		return nil, fmt.Errorf("load segments of %s: %w", code, err)
	}
	if book.Drivers, err = s.LoadDrivers(ctx, code); err != nil {
		return nil, fmt.Errorf("load drivers of %s: %w", code, err)
	}
	return book, nil
}
