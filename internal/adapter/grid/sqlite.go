package grid

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"exam-room/internal/domain"

	"github.com/jmoiron/sqlx"
)

// SQLiteGrid stores each grid row as a JSON array of cells in grid_rows.
// The schema is created by database.RunMigrations.
type SQLiteGrid struct {
	db *sqlx.DB
}

var (
	_ domain.Grid            = (*SQLiteGrid)(nil)
	_ domain.RowRangeDeleter = (*SQLiteGrid)(nil)
)

func NewSQLiteGrid(db *sqlx.DB) *SQLiteGrid {
	return &SQLiteGrid{db: db}
}

type gridRow struct {
	RowNum int    `db:"row_num"`
	Cells  string `db:"cells"`
}

func (g *SQLiteGrid) ListSheets(ctx context.Context) ([]string, error) {
	var names []string
	if err := g.db.SelectContext(ctx, &names, `SELECT name FROM grid_sheets ORDER BY position`); err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return names, nil
}

func (g *SQLiteGrid) CreateSheet(ctx context.Context, sheet string) error {
	_, err := g.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO grid_sheets (name, position) VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM grid_sheets))`,
		sheet)
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	return nil
}

func (g *SQLiteGrid) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	if err := g.checkSheet(ctx, g.db, sheet); err != nil {
		return nil, err
	}
	var stored []gridRow
	if err := g.db.SelectContext(ctx, &stored,
		`SELECT row_num, cells FROM grid_rows WHERE sheet = ? ORDER BY row_num`, sheet); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var rows [][]string
	for _, r := range stored {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", r.RowNum, sheet, err)
		}
		for len(rows) < r.RowNum-1 {
			rows = append(rows, []string{})
		}
		rows = append(rows, trimRow(cells))
	}
	return rows[:lastNonEmptyRow(rows)], nil
}

func (g *SQLiteGrid) WriteRange(ctx context.Context, sheet string, row, col int, values [][]string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid range origin (%d,%d)", row, col)
	}
	return g.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := g.checkSheet(ctx, tx, sheet); err != nil {
			return err
		}
		for i, vals := range values {
			rowNum := row + i
			cells, err := g.loadRow(ctx, tx, sheet, rowNum)
			if err != nil {
				return err
			}
			if need := col - 1 + len(vals); len(cells) < need {
				grown := make([]string, need)
				copy(grown, cells)
				cells = grown
			}
			copy(cells[col-1:], vals)
			if err := g.saveRow(ctx, tx, sheet, rowNum, cells); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *SQLiteGrid) AppendRow(ctx context.Context, sheet string, values []string) error {
	return g.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := g.checkSheet(ctx, tx, sheet); err != nil {
			return err
		}
		var last int
		if err := tx.GetContext(ctx, &last,
			`SELECT COALESCE(MAX(row_num), 0) FROM grid_rows WHERE sheet = ? AND cells <> '[]'`, sheet); err != nil {
			return fmt.Errorf("find last row of %s: %w", sheet, err)
		}
		// Blank rows below the last data row are overwritten, as in a spreadsheet.
		if _, err := tx.ExecContext(ctx, `DELETE FROM grid_rows WHERE sheet = ? AND row_num > ?`, sheet, last); err != nil {
			return fmt.Errorf("append row to %s: %w", sheet, err)
		}
		return g.saveRow(ctx, tx, sheet, last+1, values)
	})
}

func (g *SQLiteGrid) DeleteRow(ctx context.Context, sheet string, row int) error {
	return g.DeleteRows(ctx, sheet, row, 1)
}

func (g *SQLiteGrid) DeleteRows(ctx context.Context, sheet string, startRow, count int) error {
	if startRow < 1 || count < 1 {
		return fmt.Errorf("invalid row range %d+%d", startRow, count)
	}
	return g.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := g.checkSheet(ctx, tx, sheet); err != nil {
			return err
		}
		end := startRow + count
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM grid_rows WHERE sheet = ? AND row_num >= ? AND row_num < ?`, sheet, startRow, end); err != nil {
			return fmt.Errorf("delete rows of %s: %w", sheet, err)
		}
		return g.shift(ctx, tx, sheet, end, -count)
	})
}

func (g *SQLiteGrid) InsertRowBefore(ctx context.Context, sheet string, row int) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	return g.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := g.checkSheet(ctx, tx, sheet); err != nil {
			return err
		}
		return g.shift(ctx, tx, sheet, row, 1)
	})
}

// shift moves every row at or below from by delta. Rows pass through negative
// numbers so the primary key never collides mid-update.
func (g *SQLiteGrid) shift(ctx context.Context, tx *sqlx.Tx, sheet string, from, delta int) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE grid_rows SET row_num = -(row_num + ?) WHERE sheet = ? AND row_num >= ?`, delta, sheet, from); err != nil {
		return fmt.Errorf("shift rows of %s: %w", sheet, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE grid_rows SET row_num = -row_num WHERE sheet = ? AND row_num < 0`, sheet); err != nil {
		return fmt.Errorf("shift rows of %s: %w", sheet, err)
	}
	return nil
}

func (g *SQLiteGrid) loadRow(ctx context.Context, tx *sqlx.Tx, sheet string, rowNum int) ([]string, error) {
	var raw string
	err := tx.GetContext(ctx, &raw, `SELECT cells FROM grid_rows WHERE sheet = ? AND row_num = ?`, sheet, rowNum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load row %d of %s: %w", rowNum, sheet, err)
	}
	return decodeCells(raw)
}

func (g *SQLiteGrid) saveRow(ctx context.Context, tx *sqlx.Tx, sheet string, rowNum int, cells []string) error {
	raw, err := json.Marshal(trimRow(cells))
	if err != nil {
		return fmt.Errorf("encode row %d of %s: %w", rowNum, sheet, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO grid_rows (sheet, row_num, cells) VALUES (?, ?, ?)
		 ON CONFLICT (sheet, row_num) DO UPDATE SET cells = excluded.cells`,
		sheet, rowNum, string(raw))
	if err != nil {
		return fmt.Errorf("save row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func (g *SQLiteGrid) checkSheet(ctx context.Context, q sqlx.QueryerContext, sheet string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(1) FROM grid_sheets WHERE name = ?`, sheet); err != nil {
		return fmt.Errorf("lookup sheet %s: %w", sheet, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
	}
	return nil
}

func (g *SQLiteGrid) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if raw == "" {
		return cells, nil
	}
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
