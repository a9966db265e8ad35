package grid

import (
	"context"
	"testing"

	"exam-room/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runGridContract checks the addressing rules every Grid adapter must share.
func runGridContract(t *testing.T, g domain.Grid) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, g.CreateSheet(ctx, "Exams"))
	require.NoError(t, g.CreateSheet(ctx, "Users"))
	require.NoError(t, g.CreateSheet(ctx, "Exams"))

	names, err := g.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Exams", "Users"}, names)

	_, err = g.ReadAll(ctx, "Missing")
	assert.ErrorIs(t, err, domain.ErrSheetNotFound)

	rows, err := g.ReadAll(ctx, "Exams")
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, g.AppendRow(ctx, "Exams", []string{"id", "title"}))
	require.NoError(t, g.AppendRow(ctx, "Exams", []string{"e1", "Math"}))
	require.NoError(t, g.AppendRow(ctx, "Exams", []string{"e2", "Science"}))

	rows, err = g.ReadAll(ctx, "Exams")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "title"}, {"e1", "Math"}, {"e2", "Science"}}, rows)

	t.Run("WriteRange widens rows", func(t *testing.T) {
		require.NoError(t, g.WriteRange(ctx, "Exams", 2, 4, [][]string{{"x"}}))
		require.NoError(t, g.WriteRange(ctx, "Exams", 1, 3, [][]string{{"status"}}))
		rows, err := g.ReadAll(ctx, "Exams")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "title", "status"}, rows[0])
		assert.Equal(t, []string{"e1", "Math", "", "x"}, rows[1])
	})

	t.Run("InsertRowBefore shifts rows down", func(t *testing.T) {
		require.NoError(t, g.InsertRowBefore(ctx, "Exams", 2))
		rows, err := g.ReadAll(ctx, "Exams")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Empty(t, rows[1])
		assert.Equal(t, "e1", rows[2][0])
	})

	t.Run("DeleteRow shifts rows up", func(t *testing.T) {
		require.NoError(t, g.AppendRow(ctx, "Exams", []string{"e3", "Art"}))
		require.NoError(t, g.DeleteRow(ctx, "Exams", 2))
		rows, err := g.ReadAll(ctx, "Exams")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "e1", rows[1][0])
		assert.Equal(t, "e3", rows[3][0])
	})

	t.Run("DeleteRows removes a block", func(t *testing.T) {
		deleter, ok := g.(domain.RowRangeDeleter)
		require.True(t, ok)
		require.NoError(t, deleter.DeleteRows(ctx, "Exams", 2, 2))
		rows, err := g.ReadAll(ctx, "Exams")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"id", "title", "status"}, {"e3", "Art"}}, rows)
	})

	t.Run("AppendRow ignores trailing blank rows", func(t *testing.T) {
		require.NoError(t, g.WriteRange(ctx, "Exams", 4, 1, [][]string{{"tmp"}}))
		require.NoError(t, g.WriteRange(ctx, "Exams", 4, 1, [][]string{{""}}))
		require.NoError(t, g.AppendRow(ctx, "Exams", []string{"e4"}))
		rows, err := g.ReadAll(ctx, "Exams")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"id", "title", "status"}, {"e3", "Art"}, {"e4"}}, rows)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		assert.ErrorIs(t, g.AppendRow(ctx, "Missing", []string{"a"}), domain.ErrSheetNotFound)
		assert.ErrorIs(t, g.WriteRange(ctx, "Missing", 1, 1, [][]string{{"a"}}), domain.ErrSheetNotFound)
		assert.ErrorIs(t, g.DeleteRow(ctx, "Missing", 1), domain.ErrSheetNotFound)
	})
}
