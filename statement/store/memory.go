// Package store provides statement.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/statement-viz/statement"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	companies map[string]statement.Company
	rows      map[key][]statement.Row
	segments  map[string][]statement.SegmentRow
	drivers   map[string][]statement.DriverAdjustment
	runs      []statement.ImportRun
}

type key struct {
	Code      string
	Statement statement.StatementType
}

func NewMemory() *Memory {
	return &Memory{
		companies: make(map[string]statement.Company),
		rows:      make(map[key][]statement.Row),
		segments:  make(map[string][]statement.SegmentRow),
		drivers:   make(map[string][]statement.DriverAdjustment),
	}
}

// NewMemoryFromBooks seeds a store with already loaded books.
func NewMemoryFromBooks(books ...*statement.Book) *Memory {
	m := NewMemory()
	for _, b := range books {
		m.saveLocked(b)
	}
	return m
}

// SaveBook replaces all tables of one company.
func (m *Memory) SaveBook(_ context.Context, b *statement.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked(b)
	return nil
}

func (m *Memory) saveLocked(b *statement.Book) {
	code := b.Company.Code
	m.companies[code] = b.Company
	for _, st := range []*statement.Statement{b.PL, b.BS, b.CF} {
		if st == nil {
			continue
		}
		m.rows[key{Code: code, Statement: st.Type}] = st.Rows()
	}
	m.segments[code] = append([]statement.SegmentRow(nil), b.Segments...)
	m.drivers[code] = append([]statement.DriverAdjustment(nil), b.Drivers...)
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = make(map[string]statement.Company)
	m.rows = make(map[key][]statement.Row)
	m.segments = make(map[string][]statement.SegmentRow)
	m.drivers = make(map[string][]statement.DriverAdjustment)
	m.runs = nil
	return nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]statement.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]statement.Company, 0, len(m.companies))
	for _, c := range m.companies {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *Memory) GetCompany(_ context.Context, code string) (statement.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[code]
	if !ok {
		return statement.Company{}, &statement.NotFoundError{Company: code}
	}
	return c, nil
}

func (m *Memory) LoadRows(_ context.Context, code string, t statement.StatementType) ([]statement.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.companies[code]; !ok {
		return nil, &statement.NotFoundError{Company: code}
	}
	k := key{Code: code, Statement: t}
	result := make([]statement.Row, len(m.rows[k]))
	copy(result, m.rows[k])
	return result, nil
}

func (m *Memory) LoadSegments(_ context.Context, code string) ([]statement.SegmentRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]statement.SegmentRow(nil), m.segments[code]...), nil
}

func (m *Memory) LoadDrivers(_ context.Context, code string) ([]statement.DriverAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]statement.DriverAdjustment(nil), m.drivers[code]...), nil
}

// RecordImportRun keeps run in memory, assigning an ID when empty.
func (m *Memory) RecordImportRun(_ context.Context, run *statement.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	m.runs = append(m.runs, *run)
	return nil
}

// ListImportRuns returns up to limit runs, newest first. limit <= 0 means all.
func (m *Memory) ListImportRuns(_ context.Context, limit int) ([]statement.ImportRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]statement.ImportRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, m.runs[i])
	}
	return result, nil
}

var (
	_ statement.ReadWriter  = (*Memory)(nil)
	_ statement.RunRecorder = (*Memory)(nil)
)
