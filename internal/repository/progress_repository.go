package repository

import (
	"context"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

type recordProgressRepository struct {
	store *RecordStore
}

func NewProgressRepository(store *RecordStore) domain.ProgressRepository {
	return &recordProgressRepository{store: store}
}

func toDomainProgress(rec Record) *domain.LiveProgress {
	status := domain.ProgressStatus(rec["status"])
	if status == "" {
		status = domain.ProgressWorking
	}
	return &domain.LiveProgress{
		ExamID:         rec["examId"],
		StudentName:    rec["studentName"],
		AnsweredCount:  ParseInt(rec["answeredCount"]),
		TotalQuestions: ParseInt(rec["totalQuestions"]),
		LastActive:     rec["lastActive"],
		Status:         status,
		ViolationCount: ParseInt(rec["violationCount"]),
	}
}

func (r *recordProgressRepository) List(ctx context.Context) ([]*domain.LiveProgress, error) {
	recs, err := r.store.ListAll(ctx, schema.TableLiveProgress)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.LiveProgress, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainProgress(rec))
	}
	return out, nil
}

// Upsert matches (examId, studentName) by header name, never by column position.
func (r *recordProgressRepository) Upsert(ctx context.Context, p *domain.LiveProgress) error {
	_, err := r.store.Upsert(ctx, schema.TableLiveProgress, Record{
		"examId":         p.ExamID,
		"studentName":    p.StudentName,
		"answeredCount":  FormatInt(p.AnsweredCount),
		"totalQuestions": FormatInt(p.TotalQuestions),
		"lastActive":     p.LastActive,
		"status":         string(p.Status),
		"violationCount": FormatInt(p.ViolationCount),
	})
	return err
}

func (r *recordProgressRepository) DeleteForStudent(ctx context.Context, examID, studentName string) (int, error) {
	return r.store.DeleteAll(ctx, schema.TableLiveProgress, Record{"examId": examID, "studentName": studentName})
}

func (r *recordProgressRepository) Clear(ctx context.Context) error {
	return r.store.Clear(ctx, schema.TableLiveProgress)
}
