package sheet

import (
	"context"
	"fmt"
	"sync"
)

type memorySheet struct {
	header    []string
	rows      []Row
	protected bool
}

// MemoryStore keeps sheets and counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	sheets   map[string]*memorySheet
	counters map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets:   map[string]*memorySheet{},
		counters: map[string]int{},
	}
}

func (m *MemoryStore) sheet(name string) *memorySheet {
	s, ok := m.sheets[name]
	if !ok {
		s = &memorySheet{}
		m.sheets[name] = s
	}
	return s
}

func (m *MemoryStore) Header(_ context.Context, sheet string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), s.header...), nil
}

func (m *MemoryStore) SetHeader(_ context.Context, sheet string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sheet(sheet)
	if s.protected && len(s.header) > 0 {
		return fmt.Errorf("set header on %s: %w", sheet, ErrProtected)
	}
	s.header = append([]string(nil), header...)
	return nil
}

func (m *MemoryStore) Rows(_ context.Context, sheet string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, nil
	}
	rows := make([]Row, len(s.rows))
	for i, row := range s.rows {
		rows[i] = Row{ID: row.ID, Cells: append([]string(nil), row.Cells...), Color: row.Color}
	}
	return rows, nil
}

func (m *MemoryStore) Append(ctx context.Context, sheet string, rows []Row) error {
	return m.AppendBatches(ctx, []Batch{{Sheet: sheet, Rows: rows}})
}

func (m *MemoryStore) AppendBatches(_ context.Context, batches []Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range batches {
		s := m.sheet(b.Sheet)
		for _, row := range b.Rows {
			m.nextID++
			s.rows = append(s.rows, Row{ID: m.nextID, Cells: append([]string(nil), row.Cells...), Color: row.Color})
		}
	}
	return nil
}

func (m *MemoryStore) SetCells(_ context.Context, sheet string, updates []CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheet]
	if !ok {
		if len(updates) == 0 {
			return nil
		}
		return fmt.Errorf("update %s row %d: %w", sheet, updates[0].RowID, ErrNoRow)
	}
	if s.protected && len(updates) > 0 {
		return fmt.Errorf("update %s: %w", sheet, ErrProtected)
	}

	positions := make(map[int64]int, len(s.rows))
	for i, row := range s.rows {
		positions[row.ID] = i
	}
	for _, upd := range updates {
		if _, ok := positions[upd.RowID]; !ok {
			return fmt.Errorf("update %s row %d: %w", sheet, upd.RowID, ErrNoRow)
		}
	}
	for _, upd := range updates {
		row := &s.rows[positions[upd.RowID]]
		for len(row.Cells) <= upd.Column {
			row.Cells = append(row.Cells, "")
		}
		row.Cells[upd.Column] = upd.Value
	}
	return nil
}

func (m *MemoryStore) DeleteRows(_ context.Context, sheet string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheet]
	if !ok || len(ids) == 0 {
		return nil
	}
	if s.protected {
		return fmt.Errorf("delete from %s: %w", sheet, ErrProtected)
	}
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.rows[:0]
	for _, row := range s.rows {
		if !drop[row.ID] {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (m *MemoryStore) Protect(_ context.Context, sheet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheet(sheet).protected = true
	return nil
}

func (m *MemoryStore) Current(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name], nil
}

func (m *MemoryStore) Advance(_ context.Context, name string, modulo int) (int, error) {
	if modulo <= 0 {
		return 0, fmt.Errorf("advance %s: modulo must be positive", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = (m.counters[name] + 1) % modulo
	return m.counters[name], nil
}
