package schema

import (
	"context"
	"strings"
	"sync/atomic"

	"exam-room/internal/domain"
	"exam-room/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Reconciler brings every registered table in a grid up to its canonical
// header. Changes are additive: columns are never removed or reordered.
type Reconciler struct {
	grid     domain.Grid
	registry *Registry

	done  atomic.Bool
	group singleflight.Group
}

func NewReconciler(grid domain.Grid, registry *Registry) *Reconciler {
	return &Reconciler{grid: grid, registry: registry}
}

// Done reports whether EnsureOnce has completed successfully.
func (r *Reconciler) Done() bool {
	return r.done.Load()
}

// EnsureOnce runs Ensure the first time it is called in the process.
// Concurrent callers share a single run. A failed run is retried by the next call.
func (r *Reconciler) EnsureOnce(ctx context.Context) error {
	if r.done.Load() {
		return nil
	}
	_, err, _ := r.group.Do("ensure", func() (interface{}, error) {
		if r.done.Load() {
			return nil, nil
		}
		if err := r.Ensure(ctx); err != nil {
			return nil, err
		}
		r.done.Store(true)
		return nil, nil
	})
	return err
}

// Ensure reconciles every table. Running it again on a reconciled grid writes nothing.
func (r *Reconciler) Ensure(ctx context.Context) error {
	sheets, err := r.grid.ListSheets(ctx)
	if err != nil {
		return domain.NewStorageError("list sheets", err)
	}
	existing := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		existing[s] = true
	}

	for _, t := range r.registry.Tables() {
		if err := r.ensureTable(ctx, t, existing[t.Name]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) ensureTable(ctx context.Context, t *Table, exists bool) error {
	log := logger.Get().With(zap.String("table", t.Name))

	if !exists {
		if err := r.grid.CreateSheet(ctx, t.Name); err != nil {
			return domain.NewStorageError("create sheet "+t.Name, err)
		}
		log.Info("Created table")
	}

	rows, err := r.grid.ReadAll(ctx, t.Name)
	if err != nil {
		return domain.NewStorageError("read "+t.Name, err)
	}
	header := t.Header()

	if len(rows) == 0 {
		if err := r.grid.AppendRow(ctx, t.Name, header); err != nil {
			return domain.NewStorageError("write header "+t.Name, err)
		}
		if t.Seed != nil {
			for _, row := range t.Seed() {
				if err := r.grid.AppendRow(ctx, t.Name, row); err != nil {
					return domain.NewStorageError("seed "+t.Name, err)
				}
			}
		}
		log.Info("Initialized empty table", zap.Int("columns", len(header)))
		return nil
	}

	first := rows[0]
	if !looksLikeHeader(first, header) {
		if err := r.grid.InsertRowBefore(ctx, t.Name, 1); err != nil {
			return domain.NewStorageError("insert header "+t.Name, err)
		}
		if err := r.grid.WriteRange(ctx, t.Name, 1, 1, [][]string{header}); err != nil {
			return domain.NewStorageError("write header "+t.Name, err)
		}
		log.Warn("Inserted header above headerless data", zap.Int("rows", len(rows)))
		return nil
	}

	present := make(map[string]bool, len(first))
	for _, cell := range first {
		present[foldHeader(cell)] = true
	}
	var missing []string
	for _, name := range header {
		if !present[foldHeader(name)] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	lastCol := 0
	for _, row := range rows {
		if w := RowWidth(row); w > lastCol {
			lastCol = w
		}
	}
	if err := r.grid.WriteRange(ctx, t.Name, 1, lastCol+1, [][]string{missing}); err != nil {
		return domain.NewStorageError("append columns "+t.Name, err)
	}
	log.Info("Appended missing columns", zap.Strings("columns", missing), zap.Int("startColumn", lastCol+1))
	return nil
}

// looksLikeHeader reports whether any cell of row equals the canonical header
// at the same position.
func looksLikeHeader(row, header []string) bool {
	for i, cell := range row {
		if i >= len(header) {
			break
		}
		c := foldHeader(cell)
		if c != "" && c == foldHeader(header[i]) {
			return true
		}
	}
	return false
}

func foldHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RowWidth returns the 1-based index of the last non-empty cell, or 0.
func RowWidth(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if row[i] != "" {
			return i + 1
		}
	}
	return 0
}

// HeaderIndex maps each trimmed, lower-cased header name to its 0-based
// position. The first occurrence wins.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		k := foldHeader(h)
		if k == "" {
			continue
		}
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// ColumnIndex finds name in an index built by HeaderIndex.
func ColumnIndex(idx map[string]int, name string) (int, bool) {
	i, ok := idx[foldHeader(name)]
	return i, ok
}
