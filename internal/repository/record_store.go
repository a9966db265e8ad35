package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/metrics"
	"exam-room/internal/schema"
	"exam-room/internal/util"

	"go.uber.org/zap"
)

const (
	// DefaultOverflowThreshold is the largest cell, in characters, kept inline.
	DefaultOverflowThreshold = 45000

	// FileTokenPrefix marks a cell whose value lives in blob storage.
	FileTokenPrefix = "FILE:"

	// OverflowFolder holds offloaded cell values.
	OverflowFolder = "EXAMROOM_DATA"
)

// Record maps column name to raw cell text. Canonical columns use their
// canonical name whatever the case of the stored header.
type Record map[string]string

// RecordStore turns a header-keyed grid into named tables of records.
// It performs no locking; callers serialize writes.
type RecordStore struct {
	grid      domain.Grid
	blobs     domain.BlobStore
	registry  *schema.Registry
	threshold int
	now       func() time.Time
}

func NewRecordStore(grid domain.Grid, blobs domain.BlobStore, registry *schema.Registry, threshold int) *RecordStore {
	if threshold <= 0 {
		threshold = DefaultOverflowThreshold
	}
	return &RecordStore{
		grid:      grid,
		blobs:     blobs,
		registry:  registry,
		threshold: threshold,
		now:       time.Now,
	}
}

// Registry returns the schema the store was built with.
func (s *RecordStore) Registry() *schema.Registry {
	return s.registry
}

// tableData is a snapshot of one sheet.
type tableData struct {
	def    *schema.Table
	header []string
	index  map[string]int
	// keys[i] is the record key for header column i.
	keys []string
	rows [][]string
}

// rowNumber converts a data row position to its 1-based grid row.
func (td *tableData) rowNumber(i int) int {
	return i + 2
}

func (td *tableData) cell(row []string, column string) (string, bool) {
	i, ok := schema.ColumnIndex(td.index, column)
	if !ok {
		return "", false
	}
	if i < len(row) {
		return row[i], true
	}
	return "", true
}

// matches applies the identity policy of every identity column.
func (td *tableData) matches(row []string, identity Record) bool {
	if len(td.def.Identity) == 0 {
		return false
	}
	for _, key := range td.def.Identity {
		want, ok := identity[key.Column]
		if !ok {
			return false
		}
		got, ok := td.cell(row, key.Column)
		if !ok || !key.Match.Equal(got, want) {
			return false
		}
	}
	return true
}

func (s *RecordStore) load(ctx context.Context, table string) (*tableData, error) {
	def, ok := s.registry.Table(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	rows, err := s.grid.ReadAll(ctx, table)
	if err != nil {
		if errors.Is(err, domain.ErrSheetNotFound) {
			return &tableData{def: def}, nil
		}
		return nil, domain.NewStorageError("read "+table, err)
	}
	td := &tableData{def: def}
	if len(rows) == 0 {
		return td, nil
	}
	td.header = rows[0]
	td.index = schema.HeaderIndex(td.header)
	td.keys = make([]string, len(td.header))
	canonical := make(map[string]string, len(def.Columns))
	for _, c := range def.Columns {
		canonical[strings.ToLower(c.Name)] = c.Name
	}
	for i, h := range td.header {
		k := strings.TrimSpace(h)
		if name, ok := canonical[strings.ToLower(k)]; ok {
			k = name
		}
		td.keys[i] = k
	}
	td.rows = rows[1:]
	return td, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ListAll returns every data row of the table. FILE: cells are replaced by
// their blob content; a blob that cannot be read yields an empty cell.
func (s *RecordStore) ListAll(ctx context.Context, table string) ([]Record, error) {
	td, err := s.load(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(td.rows))
	for _, row := range td.rows {
		if isBlankRow(row) {
			continue
		}
		out = append(out, s.toRecord(ctx, td, row))
	}
	return out, nil
}

func (s *RecordStore) toRecord(ctx context.Context, td *tableData, row []string) Record {
	rec := make(Record, len(td.keys))
	for i, key := range td.keys {
		if key == "" {
			continue
		}
		if _, dup := rec[key]; dup {
			continue
		}
		v := ""
		if i < len(row) {
			v = row[i]
		}
		rec[key] = s.dereference(ctx, td.def.Name, key, v)
	}
	return rec
}

func (s *RecordStore) dereference(ctx context.Context, table, column, value string) string {
	if !strings.HasPrefix(value, FileTokenPrefix) {
		return value
	}
	id := strings.TrimPrefix(value, FileTokenPrefix)
	blob, err := s.blobs.Get(ctx, id)
	if err != nil {
		logger.Get().Warn("Failed to dereference offloaded cell",
			zap.String("table", table),
			zap.String("column", column),
			zap.String("blobId", id),
			zap.Error(err))
		return ""
	}
	return string(blob.Data)
}

// encode returns the cell to store for value, offloading it to blob storage
// when it is longer than the threshold.
func (s *RecordStore) encode(ctx context.Context, table, column, identity, value string) (string, error) {
	if util.RuneLen(value) <= s.threshold {
		return value, nil
	}
	if identity == "" {
		identity = "row"
	}
	name := fmt.Sprintf("%s_%s_%s_%d.json", table, column, identity, s.now().UnixMilli())
	id, err := s.blobs.Put(ctx, OverflowFolder, name, "application/json", []byte(value))
	if err != nil {
		return "", domain.NewStorageError("offload "+table+"."+column, err)
	}
	metrics.BlobOffloadsTotal.WithLabelValues(table, column).Inc()
	logger.Get().Info("Offloaded oversized cell",
		zap.String("table", table),
		zap.String("column", column),
		zap.Int("length", util.RuneLen(value)),
		zap.String("blobId", id))
	return FileTokenPrefix + id, nil
}

func identityLabel(def *schema.Table, rec Record) string {
	parts := make([]string, 0, len(def.Identity))
	for _, key := range def.Identity {
		if v := strings.TrimSpace(rec[key.Column]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "_")
}

// buildRow lays rec out under the stored header. With existing set, derived
// and non-canonical columns keep their current cell.
func (s *RecordStore) buildRow(ctx context.Context, td *tableData, rec Record, existing []string) ([]string, error) {
	label := identityLabel(td.def, rec)
	row := make([]string, len(td.header))
	seen := make(map[string]bool, len(td.keys))
	for i, key := range td.keys {
		col, canonical := td.def.Column(key)
		if existing != nil && i < len(existing) {
			row[i] = existing[i]
		}
		if !canonical || seen[key] {
			continue
		}
		seen[key] = true
		if existing != nil && col.Derived {
			continue
		}
		v, ok := rec[key]
		if !ok {
			row[i] = col.Kind.Default()
			continue
		}
		cell, err := s.encode(ctx, td.def.Name, key, label, v)
		if err != nil {
			return nil, err
		}
		row[i] = cell
	}
	return row, nil
}

func (s *RecordStore) requireHeader(td *tableData) error {
	if len(td.header) == 0 {
		return domain.NewStorageError("write "+td.def.Name, domain.ErrTableNotInitialized)
	}
	return nil
}

// Upsert overwrites the first row matching rec's identity or appends rec.
// Canonical columns absent from rec get their kind's default.
func (s *RecordStore) Upsert(ctx context.Context, table string, rec Record) (bool, error) {
	td, err := s.load(ctx, table)
	if err != nil {
		return false, err
	}
	if err := s.requireHeader(td); err != nil {
		return false, err
	}

	for i, row := range td.rows {
		if !td.matches(row, rec) {
			continue
		}
		newRow, err := s.buildRow(ctx, td, rec, row)
		if err != nil {
			return false, err
		}
		if err := s.grid.WriteRange(ctx, table, td.rowNumber(i), 1, [][]string{newRow}); err != nil {
			return false, domain.NewStorageError("update "+table, err)
		}
		return false, nil
	}

	newRow, err := s.buildRow(ctx, td, rec, nil)
	if err != nil {
		return false, err
	}
	if err := s.grid.AppendRow(ctx, table, newRow); err != nil {
		return false, domain.NewStorageError("append "+table, err)
	}
	return true, nil
}

// Append always adds rec as a new row.
func (s *RecordStore) Append(ctx context.Context, table string, rec Record) error {
	td, err := s.load(ctx, table)
	if err != nil {
		return err
	}
	if err := s.requireHeader(td); err != nil {
		return err
	}
	newRow, err := s.buildRow(ctx, td, rec, nil)
	if err != nil {
		return err
	}
	if err := s.grid.AppendRow(ctx, table, newRow); err != nil {
		return domain.NewStorageError("append "+table, err)
	}
	return nil
}

// UpdateColumns reads the first row matching identity, passes it to mutate and
// writes back only the columns mutate returns. It reports whether a row matched.
func (s *RecordStore) UpdateColumns(ctx context.Context, table string, identity Record, mutate func(current Record) Record) (bool, error) {
	td, err := s.load(ctx, table)
	if err != nil {
		return false, err
	}
	for i, row := range td.rows {
		if !td.matches(row, identity) {
			continue
		}
		changes := mutate(s.toRecord(ctx, td, row))
		label := identityLabel(td.def, identity)
		for column, value := range changes {
			col, ok := schema.ColumnIndex(td.index, column)
			if !ok {
				logger.Get().Warn("Skipping update of missing column",
					zap.String("table", table), zap.String("column", column))
				continue
			}
			cell, err := s.encode(ctx, table, column, label, value)
			if err != nil {
				return true, err
			}
			if err := s.grid.WriteRange(ctx, table, td.rowNumber(i), col+1, [][]string{{cell}}); err != nil {
				return true, domain.NewStorageError("update "+table+"."+column, err)
			}
		}
		return true, nil
	}
	return false, nil
}

// DeleteFirst removes the first row matching identity.
func (s *RecordStore) DeleteFirst(ctx context.Context, table string, identity Record) (bool, error) {
	td, err := s.load(ctx, table)
	if err != nil {
		return false, err
	}
	for i, row := range td.rows {
		if td.matches(row, identity) {
			if err := s.grid.DeleteRow(ctx, table, td.rowNumber(i)); err != nil {
				return false, domain.NewStorageError("delete from "+table, err)
			}
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll removes every row matching identity, bottom-up so earlier row
// numbers stay valid.
func (s *RecordStore) DeleteAll(ctx context.Context, table string, identity Record) (int, error) {
	td, err := s.load(ctx, table)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := len(td.rows) - 1; i >= 0; i-- {
		if !td.matches(td.rows[i], identity) {
			continue
		}
		if err := s.grid.DeleteRow(ctx, table, td.rowNumber(i)); err != nil {
			return deleted, domain.NewStorageError("delete from "+table, err)
		}
		deleted++
	}
	return deleted, nil
}

// Clear removes every data row and keeps the header.
func (s *RecordStore) Clear(ctx context.Context, table string) error {
	td, err := s.load(ctx, table)
	if err != nil {
		return err
	}
	n := len(td.rows)
	if n == 0 {
		return nil
	}
	if deleter, ok := s.grid.(domain.RowRangeDeleter); ok {
		if err := deleter.DeleteRows(ctx, table, 2, n); err != nil {
			return domain.NewStorageError("clear "+table, err)
		}
		return nil
	}
	for i := n - 1; i >= 0; i-- {
		if err := s.grid.DeleteRow(ctx, table, td.rowNumber(i)); err != nil {
			return domain.NewStorageError("clear "+table, err)
		}
	}
	return nil
}
