/*
Package loader reads company directories into statement Books.

PURPOSE:
  The file-backed input boundary. A data directory holds one folder per
  company code:

    data/
      5139/
        company.json   metadata (code, name, market, description, url)
        pl.csv         income statement, one row per period
        bs.csv         balance sheet
        cf.csv         cash-flow statement
        segment.csv    期,セグメント,売上,営業利益
        factors.csv    期,要因,金額   (optional)

  Headers may be the Japanese labels used by the source sheets or the
  English line-item keys. Amounts may carry thousands separators, a
  leading "+" and the full-width minus.

IMPORT:
  Import walks every company folder, validates each Book and saves it to a
  statement.Writer. A company that fails is reported in the ImportRun and
  skipped; the others are still imported.

SEE ALSO:
  - csv.go: CSV readers
  - statement/store.go: Writer and ImportRun
*/
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"
	"github.com/warp/statement-viz/statement"
)

// File names inside a company folder.
const (
	CompanyFile = "company.json"
	PLFile      = "pl.csv"
	BSFile      = "bs.csv"
	CFFile      = "cf.csv"
	SegmentFile = "segment.csv"
	FactorsFile = "factors.csv"
)

var statementFiles = map[statement.StatementType]string{
	statement.PL: PLFile,
	statement.BS: BSFile,
	statement.CF: CFFile,
}

// Loader reads company folders below Dir.
type Loader struct {
	dir      string
	validate *validator.Validate
}

// New returns a Loader rooted at dir.
func New(dir string) *Loader {
	return &Loader{dir: dir, validate: validator.New()}
}

// Dir returns the data directory.
func (l *Loader) Dir() string { return l.dir }

// Codes lists the company folders that contain a company.json, sorted.
func (l *Loader) Codes() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var codes []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.dir, e.Name(), CompanyFile)); err == nil {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// ReadCompany reads and validates company.json of one folder.
func (l *Loader) ReadCompany(code string) (statement.Company, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, code, CompanyFile))
	if errors.Is(err, fs.ErrNotExist) {
		return statement.Company{}, &statement.NotFoundError{Company: code}
	}
	if err != nil {
		return statement.Company{}, err
	}

	var c statement.Company
	if err := json.Unmarshal(data, &c); err != nil {
		return statement.Company{}, fmt.Errorf("%s/%s: %w", code, CompanyFile, err)
	}
	if err := l.validate.Struct(c); err != nil {
		return statement.Company{}, fmt.Errorf("%s/%s: %w", code, CompanyFile, err)
	}
	return c, nil
}

// LoadBook reads every file of one company folder into a validated Book.
func (l *Loader) LoadBook(code string) (*statement.Book, error) {
	company, err := l.ReadCompany(code)
	if err != nil {
		return nil, err
	}
	book := &statement.Book{Company: company}

	for _, t := range []statement.StatementType{statement.PL, statement.BS, statement.CF} {
		rows, err := l.readStatement(code, t)
		if err != nil {
			return nil, err
		}
		st, err := statement.NewStatement(t, rows)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", code, statementFiles[t], err)
		}
		switch t {
		case statement.PL:
			book.PL = st
		case statement.BS:
			book.BS = st
		case statement.CF:
			book.CF = st
		}
	}

	f, err := os.Open(filepath.Join(l.dir, code, SegmentFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("company", code).Msg("no segment file")
	case err != nil:
		return nil, err
	default:
		book.Segments, err = ReadSegmentsCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", code, SegmentFile, err)
		}
	}

	f, err = os.Open(filepath.Join(l.dir, code, FactorsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// optional: bridges fall back to revenue/cost/SG&A deltas
	case err != nil:
		return nil, err
	default:
		book.Drivers, err = ReadFactorsCSV(f, book.PL.Periods())
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", code, FactorsFile, err)
		}
	}

	log.Info().
		Str("company", code).
		Int("pl_rows", book.PL.Len()).
		Int("bs_rows", book.BS.Len()).
		Int("cf_rows", book.CF.Len()).
		Int("segments", len(book.Segments)).
		Int("drivers", len(book.Drivers)).
		Msg("company loaded")
	return book, nil
}

func (l *Loader) readStatement(code string, t statement.StatementType) ([]statement.Row, error) {
	path := filepath.Join(l.dir, code, statementFiles[t])
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	defer f.Close()

	rows, err := ReadStatementCSV(f, t)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", code, statementFiles[t], err)
	}
	return rows, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import loads every company folder and saves it to w. Per-company failures
// are collected in the returned run; only a failure to list the directory
// or a cancelled context aborts the whole import.
func (l *Loader) Import(ctx context.Context, w statement.Writer) (*statement.ImportRun, error) {
	run := &statement.ImportRun{Source: l.dir, StartedAt: time.Now().UTC()}

	codes, err := l.Codes()
	if err != nil {
		return nil, err
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		book, err := l.LoadBook(code)
		if err == nil {
			err = w.SaveBook(ctx, book)
		}
		if err != nil {
			log.Warn().Err(err).Str("company", code).Msg("company import failed")
			run.Failures = append(run.Failures, fmt.Sprintf("%s: %v", code, err))
			continue
		}
		run.Companies = append(run.Companies, code)
		run.Rows += book.PL.Len() + book.BS.Len() + book.CF.Len() + len(book.Segments) + len(book.Drivers)
	}

	run.FinishedAt = time.Now().UTC()
	if rec, ok := w.(statement.RunRecorder); ok {
		if err := rec.RecordImportRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("recording import run failed")
		}
	}
	log.Info().
		Str("source", l.dir).
		Int("companies", len(run.Companies)).
		Int("failures", len(run.Failures)).
		Int("rows", run.Rows).
		Msg("import finished")
	return run, nil
}
