package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// memStore is an in-memory Store for engine tests. Refs are sequence
// numbers that never get reused.
type memStore struct {
	mu    sync.Mutex
	names []string
	grids map[string]Grid
	seq   int

	// loadErr, when set, fails every LoadAll.
	loadErr error
	// writeErr, when set, fails every mutating call.
	writeErr error
	// panicOnWrite makes UpdateRow panic.
	panicOnWrite bool

	loads  atomic.Int32
	writes atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{grids: make(map[string]Grid)}
}

// add seeds a category; rows are cell slices under header.
func (m *memStore) add(name string, header []string, rows ...[]string) *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := Grid{Header: header}
	for _, r := range rows {
		m.seq++
		g.Rows = append(g.Rows, Row{Ref: strconv.Itoa(m.seq), Cells: r})
	}
	m.names = append(m.names, name)
	m.grids[name] = g
	return m
}

func (m *memStore) grid(name string) Grid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grids[name].clone()
}

func (m *memStore) setLoadErr(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) ListCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names), nil
}

func (m *memStore) LoadAll(ctx context.Context) (*Snapshot, error) {
	m.loads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	grids := make(map[string]Grid, len(m.grids))
	for k, g := range m.grids {
		grids[k] = g.clone()
	}
	return NewSnapshot(m.Name(), m.names, grids), nil
}

func (m *memStore) LoadOne(ctx context.Context, category string) (Grid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grids[category]
	if !ok {
		return Grid{}, ErrCategoryNotFound
	}
	return g.clone(), nil
}

// mutate runs fn on a category's grid under the lock.
func (m *memStore) mutate(category string, fn func(g *Grid) error) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	g, ok := m.grids[category]
	if !ok {
		return fmt.Errorf("%q: %w", category, ErrCategoryNotFound)
	}
	if err := fn(&g); err != nil {
		return err
	}
	m.grids[category] = g
	return nil
}

func (m *memStore) UpdateRow(ctx context.Context, category string, header []string, ref string, cells []string) error {
	if m.panicOnWrite {
		panic("disk on fire")
	}
	return m.mutate(category, func(g *Grid) error {
		for i := range g.Rows {
			if g.Rows[i].Ref == ref {
				g.Rows[i].Cells = slices.Clone(cells)
				return nil
			}
		}
		return ErrInvalidRowIndex
	})
}

func (m *memStore) AppendRow(ctx context.Context, category string, header []string, cells []string) error {
	m.mu.Lock()
	if _, ok := m.grids[category]; !ok && m.writeErr == nil {
		m.names = append(m.names, category)
		m.grids[category] = Grid{Header: slices.Clone(header)}
	}
	m.mu.Unlock()

	return m.mutate(category, func(g *Grid) error {
		if len(g.Header) == 0 {
			g.Header = slices.Clone(header)
		}
		m.seq++
		g.Rows = append(g.Rows, Row{Ref: strconv.Itoa(m.seq), Cells: slices.Clone(cells)})
		return nil
	})
}

func (m *memStore) DeleteRow(ctx context.Context, category string, ref string) error {
	return m.mutate(category, func(g *Grid) error {
		for i := range g.Rows {
			if g.Rows[i].Ref == ref {
				g.Rows = slices.Delete(g.Rows, i, i+1)
				return nil
			}
		}
		return ErrItemNotFound
	})
}

func (m *memStore) DeleteAll(ctx context.Context, category string) error {
	return m.mutate(category, func(g *Grid) error {
		g.Rows = nil
		return nil
	})
}

func (m *memStore) DeleteCategory(ctx context.Context, category string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.grids[category]; !ok {
		return ErrCategoryNotFound
	}
	delete(m.grids, category)
	m.names = slices.DeleteFunc(m.names, func(n string) bool { return n == category })
	return nil
}

func (m *memStore) Close() error { return nil }

var errDiskGone = errors.New("disk gone")
