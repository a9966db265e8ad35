package repository

import (
	"context"
	"strings"
	"testing"

	"exam-room/internal/adapter/blob"
	"exam-room/internal/adapter/grid"
	"exam-room/internal/domain"
	"exam-room/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	grid  *grid.MemoryGrid
	blobs *blob.MemoryStore
	store *RecordStore
}

// setupStore reconciles the default schema on an in-memory grid.
func setupStore(t *testing.T, threshold int) *storeFixture {
	t.Helper()
	g := grid.NewMemoryGrid()
	reg := schema.DefaultRegistry()
	require.NoError(t, schema.NewReconciler(g, reg).Ensure(context.Background()))
	blobs := blob.NewMemoryStore("http://localhost:8080")
	return &storeFixture{grid: g, blobs: blobs, store: NewRecordStore(g, blobs, reg, threshold)}
}

func (f *storeFixture) rows(t *testing.T, table string) [][]string {
	t.Helper()
	rows, err := f.grid.ReadAll(context.Background(), table)
	require.NoError(t, err)
	return rows
}

func TestRecordStore_UpsertCreatesThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	created, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "e1", "title": "Math"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.store.Upsert(ctx, schema.TableExams, Record{"id": "e2", "title": "Science"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.store.Upsert(ctx, schema.TableExams, Record{"id": "e1", "title": "Math II"})
	require.NoError(t, err)
	assert.False(t, created)

	recs, err := f.store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "e1", recs[0]["id"])
	assert.Equal(t, "Math II", recs[0]["title"])
	assert.Equal(t, "Science", recs[1]["title"])
	assert.Len(t, f.rows(t, schema.TableExams), 3)
}

func TestRecordStore_UpsertExamIDIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	_, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "abc"})
	require.NoError(t, err)
	created, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "ABC"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRecordStore_MissingColumnsGetDefaults(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	_, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "e1"})
	require.NoError(t, err)

	recs, err := f.store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "0", recs[0]["durationMinutes"])
	assert.Equal(t, "FALSE", recs[0]["areResultsPublished"])
	assert.Equal(t, "", recs[0]["questions"])
}

func TestRecordStore_MatchesByHeaderNameNotPosition(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	// An existing sheet whose columns were laid out in a different order.
	header := []string{"studentName", "status", "examId", "answeredCount", "totalQuestions", "lastActive", "violationCount"}
	require.NoError(t, f.grid.DeleteRows(ctx, schema.TableLiveProgress, 1, 1))
	require.NoError(t, f.grid.AppendRow(ctx, schema.TableLiveProgress, header))
	require.NoError(t, f.grid.AppendRow(ctx, schema.TableLiveProgress, []string{"Budi", "WORKING", "e1", "1", "10", "", "0"}))

	created, err := f.store.Upsert(ctx, schema.TableLiveProgress, Record{"examId": "e1", "studentName": " budi ", "answeredCount": "4"})
	require.NoError(t, err)
	assert.False(t, created)

	rows := f.rows(t, schema.TableLiveProgress)
	require.Len(t, rows, 2)
	assert.Equal(t, " budi ", rows[1][0])
	assert.Equal(t, "e1", rows[1][2])
	assert.Equal(t, "4", rows[1][3])
}

func TestRecordStore_DeleteAllRemovesEveryMatch(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	for _, rec := range []Record{
		{"examId": "e1", "studentName": "Budi"},
		{"examId": "e1", "studentName": "Siti"},
		{"examId": "e1", "studentName": " BUDI "},
		{"examId": "e2", "studentName": "Budi"},
		{"examId": "e1", "studentName": "budi"},
	} {
		require.NoError(t, f.store.Append(ctx, schema.TableAttempts, rec))
	}

	deleted, err := f.store.DeleteAll(ctx, schema.TableAttempts, Record{"examId": "e1", "studentName": "budi"})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	recs, err := f.store.ListAll(ctx, schema.TableAttempts)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Siti", recs[0]["studentName"])
	assert.Equal(t, "e2", recs[1]["examId"])
}

func TestRecordStore_DeleteFirstOnlyRemovesOne(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	require.NoError(t, f.store.Append(ctx, schema.TableExams, Record{"id": "e1", "title": "first"}))
	require.NoError(t, f.store.Append(ctx, schema.TableExams, Record{"id": "e1", "title": "second"}))

	deleted, err := f.store.DeleteFirst(ctx, schema.TableExams, Record{"id": "e1"})
	require.NoError(t, err)
	assert.True(t, deleted)

	recs, err := f.store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "second", recs[0]["title"])

	deleted, err = f.store.DeleteFirst(ctx, schema.TableExams, Record{"id": "missing"})
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRecordStore_UpdateColumnsLeavesOtherCells(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	require.NoError(t, f.store.Append(ctx, schema.TableAttempts, Record{
		"examId": "e1", "studentName": "Budi", "answers": `{"q1":"A"}`, "score": "40",
	}))

	found, err := f.store.UpdateColumns(ctx, schema.TableAttempts,
		Record{"examId": "e1", "studentName": "BUDI"},
		func(current Record) Record {
			assert.Equal(t, "40", current["score"])
			return Record{"score": "90"}
		})
	require.NoError(t, err)
	assert.True(t, found)

	recs, err := f.store.ListAll(ctx, schema.TableAttempts)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "90", recs[0]["score"])
	assert.Equal(t, `{"q1":"A"}`, recs[0]["answers"])

	found, err = f.store.UpdateColumns(ctx, schema.TableAttempts, Record{"examId": "e9", "studentName": "x"},
		func(Record) Record { return Record{"score": "1"} })
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordStore_ClearKeepsHeader(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Append(ctx, schema.TableAttempts, Record{"examId": "e1"}))
	}
	require.NoError(t, f.store.Clear(ctx, schema.TableAttempts))

	rows := f.rows(t, schema.TableAttempts)
	require.Len(t, rows, 1)
	assert.Equal(t, "examId", rows[0][0])
}

func TestRecordStore_OffloadsOversizedCells(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 100)

	long := strings.Repeat("x", 150)
	_, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "e1", "questions": long})
	require.NoError(t, err)
	assert.Equal(t, 1, f.blobs.Len())

	rows := f.rows(t, schema.TableExams)
	idx := schema.HeaderIndex(rows[0])
	col, ok := schema.ColumnIndex(idx, "questions")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(rows[1][col], FileTokenPrefix))

	recs, err := f.store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	assert.Equal(t, long, recs[0]["questions"])
}

func TestRecordStore_UnreadableBlobDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	f := setupStore(t, 0)

	_, err := f.store.Upsert(ctx, schema.TableExams, Record{"id": "e1", "questions": FileTokenPrefix + "gone"})
	require.NoError(t, err)

	recs, err := f.store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	assert.Equal(t, "", recs[0]["questions"])

	exams, err := NewExamRepository(f.store).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, exams[0].Questions)
}

func TestRecordStore_MissingSheet(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(grid.NewMemoryGrid(), blob.NewMemoryStore(""), schema.DefaultRegistry(), 0)

	recs, err := store.ListAll(ctx, schema.TableExams)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = store.Upsert(ctx, schema.TableExams, Record{"id": "e1"})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeStorage))
	assert.ErrorIs(t, err, domain.ErrTableNotInitialized)

	_, err = store.ListAll(ctx, "Nope")
	assert.Error(t, err)
}
