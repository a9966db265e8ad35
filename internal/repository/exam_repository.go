package repository

import (
	"context"
	"encoding/json"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

// recordExamRepository implements domain.ExamRepository over the Exams table.
type recordExamRepository struct {
	store *RecordStore
}

// NewExamRepository creates a new exam repository backed by store.
func NewExamRepository(store *RecordStore) domain.ExamRepository {
	return &recordExamRepository{store: store}
}

func toDomainExam(rec Record) *domain.Exam {
	return &domain.Exam{
		ID:                  rec["id"],
		Title:               rec["title"],
		Subject:             rec["subject"],
		ClassGrade:          rec["classGrade"],
		Date:                rec["date"],
		StartTime:           rec["startTime"],
		EndTime:             rec["endTime"],
		DurationMinutes:     ParseInt(rec["durationMinutes"]),
		Token:               rec["token"],
		Status:              domain.ParseExamStatus(rec["status"]),
		Questions:           DecodeJSON(rec["questions"], []domain.Question{}),
		AreResultsPublished: ParseBool(rec["areResultsPublished"]),
		RandomizeQuestions:  ParseBool(rec["randomizeQuestions"]),
		RandomizeOptions:    ParseBool(rec["randomizeOptions"]),
	}
}

func fromDomainExam(e *domain.Exam) Record {
	questions := e.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	return Record{
		"id":                  e.ID,
		"title":               e.Title,
		"subject":             e.Subject,
		"classGrade":          e.ClassGrade,
		"date":                e.Date,
		"startTime":           e.StartTime,
		"endTime":             e.EndTime,
		"durationMinutes":     FormatInt(e.DurationMinutes),
		"token":               e.Token,
		"status":              string(e.Status),
		"questions":           EncodeJSON(questions),
		"areResultsPublished": FormatBool(e.AreResultsPublished),
		"randomizeQuestions":  FormatBool(e.RandomizeQuestions),
		"randomizeOptions":    FormatBool(e.RandomizeOptions),
	}
}

func (r *recordExamRepository) List(ctx context.Context) ([]*domain.Exam, error) {
	recs, err := r.store.ListAll(ctx, schema.TableExams)
	if err != nil {
		return nil, err
	}
	exams := make([]*domain.Exam, 0, len(recs))
	for _, rec := range recs {
		exams = append(exams, toDomainExam(rec))
	}
	return exams, nil
}

func (r *recordExamRepository) find(ctx context.Context, id string) (Record, error) {
	recs, err := r.store.ListAll(ctx, schema.TableExams)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec["id"] == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *recordExamRepository) FindByID(ctx context.Context, id string) (*domain.Exam, error) {
	rec, err := r.find(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return toDomainExam(rec), nil
}

func (r *recordExamRepository) FindForAnalysis(ctx context.Context, id string) (*domain.Exam, error) {
	rec, err := r.find(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	exam := toDomainExam(rec)
	raw := strings.TrimSpace(rec["questions"])
	if raw == "" {
		return nil, domain.NewInvalidDataError("Invalid questions data", nil).WithContext("examId", id)
	}
	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, domain.NewInvalidDataError("Invalid questions data", err).WithContext("examId", id)
	}
	exam.Questions = questions
	return exam, nil
}

func (r *recordExamRepository) Save(ctx context.Context, exam *domain.Exam) (bool, error) {
	return r.store.Upsert(ctx, schema.TableExams, fromDomainExam(exam))
}

func (r *recordExamRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.store.DeleteFirst(ctx, schema.TableExams, Record{"id": id})
}

func (r *recordExamRepository) Clear(ctx context.Context) error {
	return r.store.Clear(ctx, schema.TableExams)
}
