package service

import (
	"context"
	"errors"
	"testing"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/schema"
	"exam-room/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validExamRequest() *dto.SaveExamRequest {
	return &dto.SaveExamRequest{
		ID:              "exam-1",
		Title:           "  Matematika Kelas VIII  ",
		Subject:         "Math",
		ClassGrade:      "VIII A",
		DurationMinutes: intPtr(90),
		Token:           "ABC123",
		Status:          "DIBUKA",
		Questions: []domain.Question{
			{ID: "q1", Text: "2 + 2 = ?", Type: domain.QuestionSingleChoice, Options: []domain.Choice{{Text: "3"}, {Text: "4"}}, CorrectKey: "1"},
		},
	}
}

func TestExamService_SaveAndList(t *testing.T) {
	f := newMemoryFixture(t)
	svc := NewExamService(f.exams, f.attempts, f.progress, f.validator)
	ctx := context.Background()

	exam, err := svc.SaveExam(ctx, validExamRequest())
	require.NoError(t, err)
	assert.Equal(t, "Matematika Kelas VIII", exam.Title)
	assert.Equal(t, domain.ExamStatusOpen, exam.Status)
	assert.Equal(t, 90, exam.DurationMinutes)

	req := validExamRequest()
	req.Title = "Renamed"
	_, err = svc.SaveExam(ctx, req)
	require.NoError(t, err)

	exams, err := svc.ListExams(ctx)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, "Renamed", exams[0].Title)
	assert.Len(t, exams[0].Questions, 1)
}

func TestExamService_GeneratesIDAndDefaults(t *testing.T) {
	f := newMemoryFixture(t)
	svc := NewExamService(f.exams, f.attempts, f.progress, f.validator)

	req := validExamRequest()
	req.ID = ""
	req.DurationMinutes = nil
	req.Questions = nil
	exam, err := svc.SaveExam(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, validation.IsRecordID(exam.ID))
	assert.Equal(t, 0, exam.DurationMinutes)
	assert.NotNil(t, exam.Questions)
}

func TestExamService_SaveValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *dto.SaveExamRequest)
		field  string
		code   domain.ErrorCode
	}{
		{"unsafe id", func(r *dto.SaveExamRequest) { r.ID = "exam 1; DROP" }, "id", domain.CodeInvalidFormat},
		{"blank title", func(r *dto.SaveExamRequest) { r.Title = "   " }, "title", domain.CodeMissingField},
		{"missing token", func(r *dto.SaveExamRequest) { r.Token = "" }, "token", domain.CodeMissingField},
		{"lowercase token", func(r *dto.SaveExamRequest) { r.Token = "abc123" }, "token", domain.CodeInvalidFormat},
		{"zero duration", func(r *dto.SaveExamRequest) { r.DurationMinutes = intPtr(0) }, "durationMinutes", domain.CodeOutOfRange},
		{"long duration", func(r *dto.SaveExamRequest) { r.DurationMinutes = intPtr(601) }, "durationMinutes", domain.CodeOutOfRange},
		{"question without text", func(r *dto.SaveExamRequest) { r.Questions[0].Text = "" }, "questions[0].text", domain.CodeMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exams := new(MockExamRepository)
			svc := NewExamService(exams, new(MockAttemptRepository), new(MockProgressRepository), validation.NewValidator())
			req := validExamRequest()
			tt.mutate(req)

			_, err := svc.SaveExam(context.Background(), req)
			require.Error(t, err)
			var verrs domain.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %T", err)
			require.NotEmpty(t, verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Equal(t, tt.code, verrs[0].Code)
			exams.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestExamService_DeleteExam(t *testing.T) {
	f := newMemoryFixture(t)
	svc := NewExamService(f.exams, f.attempts, f.progress, f.validator)
	ctx := context.Background()

	_, err := svc.SaveExam(ctx, validExamRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExam(ctx, "exam-1"))
	exams, err := svc.ListExams(ctx)
	require.NoError(t, err)
	assert.Empty(t, exams)

	// Unknown ids succeed silently.
	require.NoError(t, svc.DeleteExam(ctx, "exam-1"))

	var verrs domain.ValidationErrors
	assert.ErrorAs(t, svc.DeleteExam(ctx, "../etc"), &verrs)
}

func TestExamService_ResetSystemKeepsHeadersAndCredentials(t *testing.T) {
	f := newMemoryFixture(t)
	ctx := context.Background()
	examSvc := NewExamService(f.exams, f.attempts, f.progress, f.validator)
	attemptSvc := NewAttemptService(f.exams, f.attempts, f.progress, f.validator)

	_, err := examSvc.SaveExam(ctx, validExamRequest())
	require.NoError(t, err)
	require.NoError(t, attemptSvc.SubmitAttempt(ctx, &dto.SubmitAttemptRequest{
		StudentRef: dto.StudentRef{ExamID: "exam-1", StudentName: "Budi"}, Score: 80,
	}))
	require.NoError(t, attemptSvc.UpdateProgress(ctx, &dto.UpdateProgressRequest{
		StudentRef: dto.StudentRef{ExamID: "exam-1", StudentName: "Siti"}, AnsweredCount: 3,
	}))

	require.NoError(t, examSvc.ResetSystem(ctx))

	for _, table := range []string{schema.TableExams, schema.TableAttempts, schema.TableLiveProgress} {
		rows := f.rows(t, table)
		assert.Len(t, rows, 1, table)
	}
	assert.Len(t, f.rows(t, schema.TableUsers), 2)
	assert.Len(t, f.rows(t, schema.TableStudents), 2)
}
