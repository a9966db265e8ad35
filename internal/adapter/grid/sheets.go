package grid

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"exam-room/internal/domain"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsGrid is a grid backed by one Google Sheets spreadsheet. Each table is
// a tab.
type SheetsGrid struct {
	svc           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var (
	_ domain.Grid            = (*SheetsGrid)(nil)
	_ domain.RowRangeDeleter = (*SheetsGrid)(nil)
)

func NewSheetsGrid(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsGrid, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsGrid{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func (g *SheetsGrid) ListSheets(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		names = append(names, s.Properties.Title)
		g.sheetIDs[s.Properties.Title] = s.Properties.SheetId
	}
	return names, nil
}

func (g *SheetsGrid) CreateSheet(ctx context.Context, sheet string) error {
	if _, err := g.sheetID(ctx, sheet); err == nil {
		return nil
	}
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			g.mu.Lock()
			g.sheetIDs[sheet] = r.AddSheet.Properties.SheetId
			g.mu.Unlock()
		}
	}
	return nil
}

func (g *SheetsGrid) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteSheet(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = trimRow(cells)
	}
	return rows[:lastNonEmptyRow(rows)], nil
}

func (g *SheetsGrid) WriteRange(ctx context.Context, sheet string, row, col int, values [][]string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid range origin (%d,%d)", row, col)
	}
	writeRange := fmt.Sprintf("%s!%s%d", quoteSheet(sheet), columnLetter(col), row)
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, writeRange,
		&sheets.ValueRange{Values: toInterfaces(values)}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", writeRange, err)
	}
	return nil
}

func (g *SheetsGrid) AppendRow(ctx context.Context, sheet string, values []string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quoteSheet(sheet)+"!A1",
		&sheets.ValueRange{Values: toInterfaces([][]string{values})}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row to %s: %w", sheet, err)
	}
	return nil
}

func (g *SheetsGrid) DeleteRow(ctx context.Context, sheet string, row int) error {
	return g.DeleteRows(ctx, sheet, row, 1)
}

func (g *SheetsGrid) DeleteRows(ctx context.Context, sheet string, startRow, count int) error {
	if startRow < 1 || count < 1 {
		return fmt.Errorf("invalid row range %d+%d", startRow, count)
	}
	id, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	return g.batch(ctx, &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{Range: rowRange(id, startRow, count)},
	})
}

func (g *SheetsGrid) InsertRowBefore(ctx context.Context, sheet string, row int) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	id, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	return g.batch(ctx, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{Range: rowRange(id, row, 1)},
	})
}

func (g *SheetsGrid) batch(ctx context.Context, req *sheets.Request) error {
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update spreadsheet: %w", err)
	}
	return nil
}

// sheetID resolves a tab title to its numeric id, refreshing the cache on a miss.
func (g *SheetsGrid) sheetID(ctx context.Context, sheet string) (int64, error) {
	g.mu.Lock()
	id, ok := g.sheetIDs[sheet]
	g.mu.Unlock()
	if ok {
		return id, nil
	}
	if _, err := g.ListSheets(ctx); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.sheetIDs[sheet]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrSheetNotFound, sheet)
}

func rowRange(sheetID int64, startRow, count int) *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:    sheetID,
		Dimension:  "ROWS",
		StartIndex: int64(startRow - 1),
		EndIndex:   int64(startRow - 1 + count),
		// SheetId 0 is the first tab and must still be sent.
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter converts a 1-based column number to A1 letters.
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}

func toInterfaces(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
