package schema

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"exam-room/internal/adapter/grid"
	"exam-room/internal/domain"
	"exam-room/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingGrid counts writes and can fail ListSheets a number of times.
type recordingGrid struct {
	domain.Grid
	writes    atomic.Int32
	lists     atomic.Int32
	failLists atomic.Int32
}

func (g *recordingGrid) ListSheets(ctx context.Context) ([]string, error) {
	g.lists.Add(1)
	if g.failLists.Load() > 0 {
		g.failLists.Add(-1)
		return nil, errors.New("quota exceeded")
	}
	return g.Grid.ListSheets(ctx)
}

func (g *recordingGrid) CreateSheet(ctx context.Context, sheet string) error {
	g.writes.Add(1)
	return g.Grid.CreateSheet(ctx, sheet)
}

func (g *recordingGrid) WriteRange(ctx context.Context, sheet string, row, col int, values [][]string) error {
	g.writes.Add(1)
	return g.Grid.WriteRange(ctx, sheet, row, col, values)
}

func (g *recordingGrid) AppendRow(ctx context.Context, sheet string, values []string) error {
	g.writes.Add(1)
	return g.Grid.AppendRow(ctx, sheet, values)
}

func (g *recordingGrid) InsertRowBefore(ctx context.Context, sheet string, row int) error {
	g.writes.Add(1)
	return g.Grid.InsertRowBefore(ctx, sheet, row)
}

func newRecordingGrid() *recordingGrid {
	return &recordingGrid{Grid: grid.NewMemoryGrid()}
}

func TestReconciler_EnsureOnEmptyGrid(t *testing.T) {
	ctx := context.Background()
	g := grid.NewMemoryGrid()
	registry := DefaultRegistry()

	require.NoError(t, NewReconciler(g, registry).Ensure(ctx))

	sheets, err := g.ListSheets(ctx)
	require.NoError(t, err)
	assert.Len(t, sheets, len(registry.Tables()))

	for _, table := range registry.Tables() {
		rows, err := g.ReadAll(ctx, table.Name)
		require.NoError(t, err)
		require.NotEmpty(t, rows, table.Name)
		assert.Equal(t, table.Header(), rows[0], table.Name)
	}

	users, err := g.ReadAll(ctx, TableUsers)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"admin", util.HashPassword("admin123"), "Administrator", "teacher"}, users[1])

	students, err := g.ReadAll(ctx, TableStudents)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, []string{"siswa1", util.HashPassword("siswa123"), "Budi Santoso", "VIII A"}, students[1])

	config, err := g.ReadAll(ctx, TableConfig)
	require.NoError(t, err)
	assert.Len(t, config, 3)

	exams, err := g.ReadAll(ctx, TableExams)
	require.NoError(t, err)
	assert.Len(t, exams, 1)
}

func TestReconciler_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newRecordingGrid()
	r := NewReconciler(g, DefaultRegistry())

	require.NoError(t, r.Ensure(ctx))
	first := g.writes.Load()
	assert.Positive(t, first)

	require.NoError(t, r.Ensure(ctx))
	assert.Equal(t, first, g.writes.Load())
}

func TestReconciler_AppendsMissingColumns(t *testing.T) {
	ctx := context.Background()
	g := grid.NewMemoryGrid()
	require.NoError(t, g.CreateSheet(ctx, TableLiveProgress))
	require.NoError(t, g.AppendRow(ctx, TableLiveProgress, []string{" ExamID ", "studentname", "answeredCount"}))
	require.NoError(t, g.AppendRow(ctx, TableLiveProgress, []string{"e1", "Budi", "3", "stray"}))

	registry := NewRegistry(DefaultRegistry().MustTable(TableLiveProgress))
	require.NoError(t, NewReconciler(g, registry).Ensure(ctx))

	rows, err := g.ReadAll(ctx, TableLiveProgress)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{" ExamID ", "studentname", "answeredCount", "", "totalQuestions", "lastActive", "status", "violationCount"},
		rows[0])
	assert.Equal(t, []string{"e1", "Budi", "3", "stray"}, rows[1])
}

func TestReconciler_InsertsHeaderAboveHeaderlessData(t *testing.T) {
	ctx := context.Background()
	g := grid.NewMemoryGrid()
	require.NoError(t, g.CreateSheet(ctx, TableAttempts))
	require.NoError(t, g.AppendRow(ctx, TableAttempts, []string{"e1", "Math", "Budi", "{}", "80"}))

	registry := NewRegistry(DefaultRegistry().MustTable(TableAttempts))
	require.NoError(t, NewReconciler(g, registry).Ensure(ctx))

	rows, err := g.ReadAll(ctx, TableAttempts)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, registry.MustTable(TableAttempts).Header(), rows[0])
	assert.Equal(t, "Budi", rows[1][2])
}

func TestReconciler_EnsureOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent callers share one run", func(t *testing.T) {
		g := newRecordingGrid()
		r := NewReconciler(g, DefaultRegistry())

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, r.EnsureOnce(ctx))
			}()
		}
		wg.Wait()

		assert.True(t, r.Done())
		runs := g.lists.Load()
		assert.LessOrEqual(t, runs, int32(10))
		require.NoError(t, r.EnsureOnce(ctx))
		assert.Equal(t, runs, g.lists.Load())
	})

	t.Run("failed run is retried", func(t *testing.T) {
		g := newRecordingGrid()
		g.failLists.Store(1)
		r := NewReconciler(g, DefaultRegistry())

		err := r.EnsureOnce(ctx)
		assert.True(t, domain.HasCode(err, domain.CodeStorage))
		assert.False(t, r.Done())

		require.NoError(t, r.EnsureOnce(ctx))
		assert.True(t, r.Done())
		assert.Equal(t, int32(2), g.lists.Load())
	})
}

func TestMatchPolicy_Equal(t *testing.T) {
	assert.True(t, MatchExact.Equal("e1", "e1"))
	assert.False(t, MatchExact.Equal("e1 ", "e1"))
	assert.True(t, MatchTrimmed.Equal(" admin ", "admin"))
	assert.False(t, MatchTrimmed.Equal("Admin", "admin"))
	assert.True(t, MatchFold.Equal(" Budi Santoso", "budi santoso "))
}

func TestTable_Defaults(t *testing.T) {
	exams := DefaultRegistry().MustTable(TableExams)

	c, ok := exams.Column("durationMinutes")
	require.True(t, ok)
	assert.Equal(t, "0", c.Kind.Default())

	c, ok = exams.Column("areResultsPublished")
	require.True(t, ok)
	assert.Equal(t, "FALSE", c.Kind.Default())

	c, ok = exams.Column("questions")
	require.True(t, ok)
	assert.Equal(t, "", c.Kind.Default())

	assert.True(t, DefaultRegistry().MustTable(TableQuestionAnalysis).AppendOnly())
	assert.False(t, exams.AppendOnly())
}

func TestHeaderIndex(t *testing.T) {
	idx := HeaderIndex([]string{" examId", "StudentName", "", "examid"})

	i, ok := ColumnIndex(idx, "examId")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = ColumnIndex(idx, "studentName")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = ColumnIndex(idx, "score")
	assert.False(t, ok)
}
