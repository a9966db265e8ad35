package repository

import (
	"context"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

// recordAttemptRepository implements domain.AttemptRepository over the Attempts table.
type recordAttemptRepository struct {
	store *RecordStore
}

func NewAttemptRepository(store *RecordStore) domain.AttemptRepository {
	return &recordAttemptRepository{store: store}
}

// toDomainAttempt maps a stored row. Every stored attempt was submitted.
func toDomainAttempt(rec Record) *domain.Attempt {
	return &domain.Attempt{
		ExamID:         rec["examId"],
		ExamTitle:      rec["examTitle"],
		StudentName:    rec["studentName"],
		Answers:        DecodeJSON(rec["answers"], domain.Answers{}),
		Score:          ParseFloat(rec["score"]),
		IsSubmitted:    true,
		SubmittedAt:    rec["submittedAt"],
		ViolationCount: ParseInt(rec["violationCount"]),
	}
}

func fromDomainAttempt(a *domain.Attempt) Record {
	answers := a.Answers
	if answers == nil {
		answers = domain.Answers{}
	}
	return Record{
		"examId":         a.ExamID,
		"examTitle":      a.ExamTitle,
		"studentName":    a.StudentName,
		"answers":        EncodeJSON(answers),
		"score":          FormatFloat(a.Score),
		"submittedAt":    a.SubmittedAt,
		"violationCount": FormatInt(a.ViolationCount),
	}
}

func (r *recordAttemptRepository) List(ctx context.Context) ([]*domain.Attempt, error) {
	recs, err := r.store.ListAll(ctx, schema.TableAttempts)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Attempt, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainAttempt(rec))
	}
	return out, nil
}

func (r *recordAttemptRepository) ListForExam(ctx context.Context, examID string) ([]*domain.Attempt, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Attempt
	for _, a := range all {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *recordAttemptRepository) Append(ctx context.Context, attempt *domain.Attempt) error {
	return r.store.Append(ctx, schema.TableAttempts, fromDomainAttempt(attempt))
}

func (r *recordAttemptRepository) UpdateScore(ctx context.Context, examID, studentName string, score float64) (bool, error) {
	identity := Record{"examId": examID, "studentName": studentName}
	return r.store.UpdateColumns(ctx, schema.TableAttempts, identity, func(Record) Record {
		return Record{"score": FormatFloat(score)}
	})
}

func (r *recordAttemptRepository) DeleteForStudent(ctx context.Context, examID, studentName string) (int, error) {
	return r.store.DeleteAll(ctx, schema.TableAttempts, Record{"examId": examID, "studentName": studentName})
}

func (r *recordAttemptRepository) Clear(ctx context.Context) error {
	return r.store.Clear(ctx, schema.TableAttempts)
}
