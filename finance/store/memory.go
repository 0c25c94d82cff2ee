// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/finance-engine/finance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[key]*finance.ExpensePeriodRecord
}

type key struct {
	ProjectID   finance.ProjectID
	MonthNumber int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[key]*finance.ExpensePeriodRecord)}
}

func (m *Memory) LoadPeriod(_ context.Context, projectID finance.ProjectID, monthNumber int) (*finance.ExpensePeriodRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[key{ProjectID: projectID, MonthNumber: monthNumber}]
	if !ok {
		return nil, finance.ErrRecordNotFound
	}
	return r.Clone(), nil
}

// SavePeriod replaces the stored record in one write. Clones both ways so
// callers can't mutate stored state behind the lock.
func (m *Memory) SavePeriod(_ context.Context, record *finance.ExpensePeriodRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key{ProjectID: record.ProjectID, MonthNumber: record.MonthNumber}] = record.Clone()
	return nil
}

func (m *Memory) ListPeriods(_ context.Context, projectID finance.ProjectID) ([]*finance.ExpensePeriodRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*finance.ExpensePeriodRecord
	for k, r := range m.records {
		if k.ProjectID == projectID {
			result = append(result, r.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MonthNumber < result[j].MonthNumber })
	return result, nil
}
