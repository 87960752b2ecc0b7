package sheets

import (
	"context"
	"strings"
	"sync"
)

// MemoryWorkbook is an in-memory Workbook used by tests and by the "memory"
// backend for credential-free local development. It mimics the hosted store's
// observable behaviour: used-range trimming, append-after-last-data, and
// silent acceptance of styling calls.
type MemoryWorkbook struct {
	mu   sync.Mutex
	tabs map[string]*MemoryTab
}

// NewMemoryWorkbook creates an empty in-memory workbook.
func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{tabs: make(map[string]*MemoryTab)}
}

// Tab implements Workbook.
func (w *MemoryWorkbook) Tab(_ context.Context, title string) (Tab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[title]
	if !ok {
		return nil, ErrTabNotFound
	}
	return tab, nil
}

// EnsureTab implements Workbook.
func (w *MemoryWorkbook) EnsureTab(_ context.Context, title string) (Tab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[title]
	if !ok {
		tab = &MemoryTab{title: title}
		w.tabs[title] = tab
	}
	return tab, nil
}

// Seed replaces the named tab's contents wholesale. Test helper.
func (w *MemoryWorkbook) Seed(title string, grid [][]string) *MemoryTab {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab := &MemoryTab{title: title}
	for _, row := range grid {
		tab.grid = append(tab.grid, append([]string(nil), row...))
	}
	w.tabs[title] = tab
	return tab
}

// MemoryTab is one tab of a MemoryWorkbook.
type MemoryTab struct {
	mu    sync.Mutex
	title string
	grid  [][]string
}

// Title implements Tab.
func (t *MemoryTab) Title() string { return t.title }

// Values implements Tab. Trailing blank rows and cells are trimmed to match
// the hosted store's used-range semantics.
func (t *MemoryTab) Values(context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := -1
	for i, row := range t.grid {
		if !rowEmpty(row) {
			last = i
		}
	}

	out := make([][]string, 0, last+1)
	for _, row := range t.grid[:last+1] {
		trimmed := append([]string(nil), row...)
		for len(trimmed) > 0 && strings.TrimSpace(trimmed[len(trimmed)-1]) == "" {
			trimmed = trimmed[:len(trimmed)-1]
		}
		out = append(out, trimmed)
	}
	return out, nil
}

// Update implements Tab.
func (t *MemoryTab) Update(_ context.Context, row, col int, values [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, vals := range values {
		for j, v := range vals {
			t.set(row-1+i, col-1+j, v)
		}
	}
	return nil
}

// Append implements Tab.
func (t *MemoryTab) Append(_ context.Context, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := -1
	for i, existing := range t.grid {
		if !rowEmpty(existing) {
			last = i
		}
	}
	for j, v := range row {
		t.set(last+1, j, v)
	}
	return nil
}

// Format implements Tab. Styling has no in-memory representation.
func (t *MemoryTab) Format(context.Context, Range, Style) error { return nil }

// AutoResize implements Tab.
func (t *MemoryTab) AutoResize(context.Context, int, int) error { return nil }

// set grows the grid as needed and writes one cell. Caller holds t.mu.
func (t *MemoryTab) set(row, col int, v string) {
	for len(t.grid) <= row {
		t.grid = append(t.grid, nil)
	}
	for len(t.grid[row]) <= col {
		t.grid[row] = append(t.grid[row], "")
	}
	t.grid[row][col] = v
}

func rowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
