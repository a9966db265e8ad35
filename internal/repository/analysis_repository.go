package repository

import (
	"context"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

type recordAnalysisRepository struct {
	store *RecordStore
}

// NewAnalysisRepository stores item analysis history. Rows are only ever appended.
func NewAnalysisRepository(store *RecordStore) domain.AnalysisRepository {
	return &recordAnalysisRepository{store: store}
}

func toDomainAnalysis(rec Record) domain.QuestionAnalysis {
	return domain.QuestionAnalysis{
		ID:                    rec["id"],
		QuestionID:            rec["questionId"],
		ExamID:                rec["examId"],
		ExamTitle:             rec["examTitle"],
		QuestionText:          rec["questionText"],
		QuestionType:          domain.QuestionType(rec["questionType"]),
		TotalAttempts:         ParseInt(rec["totalAttempts"]),
		CorrectCount:          ParseInt(rec["correctCount"]),
		IncorrectCount:        ParseInt(rec["incorrectCount"]),
		DifficultyIndex:       ParseFloat(rec["difficultyIndex"]),
		DifficultyLevel:       rec["difficultyLevel"],
		DiscriminationIndex:   ParseFloat(rec["discriminationIndex"]),
		DiscriminationQuality: rec["discriminationQuality"],
		IsGoodQuestion:        ParseBool(rec["isGoodQuestion"]),
		ShouldBeReviewed:      ParseBool(rec["shouldBeReviewed"]),
		ShouldBeDeleted:       ParseBool(rec["shouldBeDeleted"]),
		DistractorAnalysis:    DecodeJSON(rec["distractorAnalysis"], []domain.DistractorStat{}),
		AnalyzedAt:            rec["analyzedAt"],
	}
}

func fromDomainAnalysis(a *domain.QuestionAnalysis) Record {
	distractors := a.DistractorAnalysis
	if distractors == nil {
		distractors = []domain.DistractorStat{}
	}
	return Record{
		"id":                    a.ID,
		"questionId":            a.QuestionID,
		"examId":                a.ExamID,
		"examTitle":             a.ExamTitle,
		"questionText":          a.QuestionText,
		"questionType":          string(a.QuestionType),
		"totalAttempts":         FormatInt(a.TotalAttempts),
		"correctCount":          FormatInt(a.CorrectCount),
		"incorrectCount":        FormatInt(a.IncorrectCount),
		"difficultyIndex":       FormatFloat(a.DifficultyIndex),
		"difficultyLevel":       a.DifficultyLevel,
		"discriminationIndex":   FormatFloat(a.DiscriminationIndex),
		"discriminationQuality": a.DiscriminationQuality,
		"isGoodQuestion":        FormatBool(a.IsGoodQuestion),
		"shouldBeReviewed":      FormatBool(a.ShouldBeReviewed),
		"shouldBeDeleted":       FormatBool(a.ShouldBeDeleted),
		"distractorAnalysis":    EncodeJSON(distractors),
		"analyzedAt":            a.AnalyzedAt,
	}
}

func (r *recordAnalysisRepository) Append(ctx context.Context, a *domain.QuestionAnalysis) error {
	return r.store.Append(ctx, schema.TableQuestionAnalysis, fromDomainAnalysis(a))
}

// List returns matching history in storage order, or only the latest run per
// (exam, question) when filter.LatestOnly is set.
func (r *recordAnalysisRepository) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.QuestionAnalysis, error) {
	recs, err := r.store.ListAll(ctx, schema.TableQuestionAnalysis)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuestionAnalysis, 0, len(recs))
	for _, rec := range recs {
		a := toDomainAnalysis(rec)
		if filter.Matches(&a) {
			out = append(out, a)
		}
	}
	if filter.LatestOnly {
		out = domain.LatestAnalyses(out)
	}
	return out, nil
}
