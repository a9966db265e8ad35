package domain

import (
	"context"
	"time"
)

// Grid defines the port over a spreadsheet-like store of named sheets.
// Rows and columns are 1-based, matching spreadsheet addressing.
// Implementations are the adapters under internal/adapter/grid.
type Grid interface {
	// ListSheets returns the names of all sheets.
	ListSheets(ctx context.Context) ([]string, error)

	// CreateSheet adds an empty sheet. It is not an error if the sheet exists.
	CreateSheet(ctx context.Context, sheet string) error

	// ReadAll returns rows 1 through the last non-empty row, header included.
	// Blank rows in between are returned as empty slices. Trailing empty cells
	// may be omitted, so rows can be ragged.
	ReadAll(ctx context.Context, sheet string) ([][]string, error)

	// WriteRange overwrites a rectangular block whose top-left corner is (row, col).
	WriteRange(ctx context.Context, sheet string, row, col int, values [][]string) error

	// AppendRow writes values after the last non-empty row.
	AppendRow(ctx context.Context, sheet string, values []string) error

	// DeleteRow removes one row; rows below shift up.
	DeleteRow(ctx context.Context, sheet string, row int) error

	// InsertRowBefore inserts an empty row before row; existing rows shift down.
	InsertRowBefore(ctx context.Context, sheet string, row int) error
}

// RowRangeDeleter is implemented by grids that can delete a block of rows in one call.
type RowRangeDeleter interface {
	DeleteRows(ctx context.Context, sheet string, startRow, count int) error
}

// Blob is the content stored in a BlobStore.
type Blob struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
}

// BlobStore defines the port for secondary file storage used for oversized
// cells and uploaded images.
type BlobStore interface {
	// Put stores data under folder and returns an opaque id.
	Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error)

	// Get returns the blob stored under id, or ErrBlobNotFound.
	Get(ctx context.Context, id string) (*Blob, error)

	// URL returns a public URL for the blob.
	URL(id string) string
}

// Lock is a held lock. Release is idempotent.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker defines the port for the process-wide mutual exclusion primitive.
type Locker interface {
	// Acquire waits at most wait for the lock and returns ErrLockTimeout when
	// the bound elapses.
	Acquire(ctx context.Context, wait time.Duration) (Lock, error)
}
