package grid

import (
	"context"
	"fmt"
	"sync"

	"exam-room/internal/domain"
)

// MemoryGrid is an in-process grid used for tests and local development.
type MemoryGrid struct {
	mu     sync.RWMutex
	order  []string
	sheets map[string][][]string
}

var (
	_ domain.Grid            = (*MemoryGrid)(nil)
	_ domain.RowRangeDeleter = (*MemoryGrid)(nil)
)

func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{sheets: make(map[string][][]string)}
}

func (g *MemoryGrid) ListSheets(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...), nil
}

func (g *MemoryGrid) CreateSheet(ctx context.Context, sheet string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sheets[sheet]; ok {
		return nil
	}
	g.sheets[sheet] = nil
	g.order = append(g.order, sheet)
	return nil
}

func (g *MemoryGrid) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	n := lastNonEmptyRow(rows)
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = trimRow(rows[i])
	}
	return out, nil
}

func (g *MemoryGrid) WriteRange(ctx context.Context, sheet string, row, col int, values [][]string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid range origin (%d,%d)", row, col)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	for i, vals := range values {
		r := row - 1 + i
		for len(rows) <= r {
			rows = append(rows, nil)
		}
		cells := rows[r]
		if need := col - 1 + len(vals); len(cells) < need {
			grown := make([]string, need)
			copy(grown, cells)
			cells = grown
		}
		copy(cells[col-1:], vals)
		rows[r] = cells
	}
	g.sheets[sheet] = rows
	return nil
}

func (g *MemoryGrid) AppendRow(ctx context.Context, sheet string, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	n := lastNonEmptyRow(rows)
	rows = append(rows[:n], append([]string(nil), values...))
	g.sheets[sheet] = rows
	return nil
}

func (g *MemoryGrid) DeleteRow(ctx context.Context, sheet string, row int) error {
	return g.DeleteRows(ctx, sheet, row, 1)
}

func (g *MemoryGrid) DeleteRows(ctx context.Context, sheet string, startRow, count int) error {
	if startRow < 1 || count < 1 {
		return fmt.Errorf("invalid row range %d+%d", startRow, count)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	start := startRow - 1
	if start >= len(rows) {
		return nil
	}
	end := start + count
	if end > len(rows) {
		end = len(rows)
	}
	g.sheets[sheet] = append(rows[:start], rows[end:]...)
	return nil
}

func (g *MemoryGrid) InsertRowBefore(ctx context.Context, sheet string, row int) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	i := row - 1
	if i >= len(rows) {
		return nil
	}
	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = nil
	g.sheets[sheet] = rows
	return nil
}

func lastNonEmptyRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, c := range rows[i] {
			if c != "" {
				return i + 1
			}
		}
	}
	return 0
}

// trimRow copies a row without its trailing empty cells.
func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return append([]string{}, row[:n]...)
}
