package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/metrics"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"go.uber.org/zap"
)

const (
	// MinAnalysisAttempts is the smallest attempt count with meaningful groups.
	MinAnalysisAttempts = 5

	// GroupPercent is the share of attempts in each of the top and bottom groups.
	GroupPercent = 27

	maxOptionTextLength   = 50
	maxQuestionTextLength = 100
	weakDistractorPercent = 5.0
)

// ItemAnalysisService computes classical test theory metrics for exams.
type ItemAnalysisService interface {
	// AnalyzeExam analyses every question of the exam, appends one history
	// record per question and updates the metric columns of matching bank items.
	AnalyzeExam(ctx context.Context, examID string) (*domain.AnalysisReport, error)

	ListAnalyses(ctx context.Context, filter domain.AnalysisFilter) ([]domain.QuestionAnalysis, error)
}

type itemAnalysisServiceImpl struct {
	exams    domain.ExamRepository
	attempts domain.AttemptRepository
	history  domain.AnalysisRepository
	bank     domain.BankRepository
	now      func() time.Time
}

func NewItemAnalysisService(
	exams domain.ExamRepository,
	attempts domain.AttemptRepository,
	history domain.AnalysisRepository,
	bank domain.BankRepository,
) ItemAnalysisService {
	return &itemAnalysisServiceImpl{
		exams:    exams,
		attempts: attempts,
		history:  history,
		bank:     bank,
		now:      time.Now,
	}
}

func (s *itemAnalysisServiceImpl) AnalyzeExam(ctx context.Context, examID string) (*domain.AnalysisReport, error) {
	report, err := s.analyze(ctx, examID)
	outcome := "success"
	var validationErrs domain.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &validationErrs):
		outcome = "invalid"
	case domain.HasCode(err, domain.CodeInsufficientData):
		outcome = "insufficient_data"
	case domain.HasCode(err, domain.CodeNotFound):
		outcome = "not_found"
	case domain.HasCode(err, domain.CodeInvalidData):
		outcome = "invalid_data"
	default:
		outcome = "error"
	}
	metrics.AnalysisRunsTotal.WithLabelValues(outcome).Inc()
	return report, err
}

func validateExamID(examID string) error {
	if validation.IsRecordID(examID) {
		return nil
	}
	if strings.TrimSpace(examID) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("examId")}
	}
	return domain.ValidationErrors{domain.NewInvalidFormatError("examId", examID)}
}

func (s *itemAnalysisServiceImpl) analyze(ctx context.Context, examID string) (*domain.AnalysisReport, error) {
	if err := validateExamID(examID); err != nil {
		return nil, err
	}
	exam, err := s.exams.FindForAnalysis(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, domain.NewExamNotFoundError(examID)
	}

	attempts, err := s.attempts.ListForExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	n := len(attempts)
	if n < MinAnalysisAttempts {
		return nil, domain.NewInsufficientDataError(MinAnalysisAttempts, n)
	}

	ranked := make([]*domain.Attempt, n)
	copy(ranked, attempts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	k := util.CeilPercent(n, GroupPercent)
	groups := scoreGroups{all: ranked, top: ranked[:k], bottom: ranked[n-k:]}

	now := s.now()
	analyzedAt := domain.FormatTimestamp(now)
	report := &domain.AnalysisReport{
		ExamID:          exam.ID,
		ExamTitle:       exam.Title,
		TotalQuestions:  len(exam.Questions),
		TotalStudents:   n,
		AnalysisResults: make([]domain.QuestionAnalysis, 0, len(exam.Questions)),
		AnalyzedAt:      analyzedAt,
	}

	for i := range exam.Questions {
		q := &exam.Questions[i]
		result := analyzeQuestion(q, groups)
		result.ID = fmt.Sprintf("qa-%s-%s-%d", exam.ID, q.ID, now.UnixMilli())
		result.ExamID = exam.ID
		result.ExamTitle = exam.Title
		result.AnalyzedAt = analyzedAt

		if err := s.history.Append(ctx, &result); err != nil {
			return nil, err
		}
		if err := s.updateBank(ctx, &result); err != nil {
			return nil, err
		}

		metrics.DifficultyIndex.Observe(result.DifficultyIndex)
		if result.IsGoodQuestion {
			report.GoodQuestions++
		}
		if result.ShouldBeReviewed {
			report.ReviewNeeded++
		}
		if result.ShouldBeDeleted {
			report.ShouldDelete++
		}
		report.AnalysisResults = append(report.AnalysisResults, result)
	}

	logger.Get().Info("Item analysis completed",
		zap.String("examId", exam.ID),
		zap.Int("students", n),
		zap.Int("questions", report.TotalQuestions),
		zap.Int("good", report.GoodQuestions),
		zap.Int("review", report.ReviewNeeded),
		zap.Int("delete", report.ShouldDelete))
	return report, nil
}

func (s *itemAnalysisServiceImpl) updateBank(ctx context.Context, a *domain.QuestionAnalysis) error {
	found, err := s.bank.UpdateMetrics(ctx, a.QuestionID, domain.BankMetrics{
		DifficultyIndex:     a.DifficultyIndex,
		DiscriminationIndex: a.DiscriminationIndex,
		QualityStatus:       a.QualityLabel(),
		AnalyzedAt:          a.AnalyzedAt,
	})
	if err != nil {
		return err
	}
	if !found {
		logger.Get().Debug("Analysed question is not in the bank", zap.String("questionId", a.QuestionID))
	}
	return nil
}

func (s *itemAnalysisServiceImpl) ListAnalyses(ctx context.Context, filter domain.AnalysisFilter) ([]domain.QuestionAnalysis, error) {
	return s.history.List(ctx, filter)
}

// scoreGroups holds attempts sorted by score, highest first, and the top and
// bottom groups. The groups overlap when k exceeds half the attempts.
type scoreGroups struct {
	all, top, bottom []*domain.Attempt
}

func countCorrect(q *domain.Question, attempts []*domain.Attempt) int {
	n := 0
	for _, a := range attempts {
		if q.IsCorrect(a.Answers[q.ID]) {
			n++
		}
	}
	return n
}

// analyzeQuestion computes the metrics of one question. Flags and labels use
// the exact indices; the stored indices are rounded to two decimals.
func analyzeQuestion(q *domain.Question, g scoreGroups) domain.QuestionAnalysis {
	total := len(g.all)
	correct := countCorrect(q, g.all)

	var p, d float64
	if total > 0 {
		p = float64(correct) / float64(total)
	}
	if k := len(g.top); k > 0 {
		d = float64(countCorrect(q, g.top)-countCorrect(q, g.bottom)) / float64(k)
	}

	result := domain.QuestionAnalysis{
		QuestionID:            q.ID,
		QuestionText:          util.Truncate(q.Text, maxQuestionTextLength),
		QuestionType:          q.Type,
		TotalAttempts:         total,
		CorrectCount:          correct,
		IncorrectCount:        total - correct,
		DifficultyIndex:       util.Round(p, 2),
		DifficultyLevel:       DifficultyLevel(p),
		DiscriminationIndex:   util.Round(d, 2),
		DiscriminationQuality: DiscriminationQuality(d),
		IsGoodQuestion:        d >= 0.30 && p >= 0.30 && p <= 0.70,
		ShouldBeReviewed:      d < 0.30 || p < 0.20 || p > 0.80,
		ShouldBeDeleted:       d < 0.20,
		DistractorAnalysis:    []domain.DistractorStat{},
	}
	if q.Type.HasDistractors() && len(q.Options) > 0 {
		result.DistractorAnalysis = analyzeDistractors(q, g)
	}
	return result
}

// DifficultyLevel labels a difficulty index P.
func DifficultyLevel(p float64) string {
	switch {
	case p > 0.70:
		return domain.DifficultyEasy
	case p >= 0.30:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// DiscriminationQuality labels a discrimination index D.
func DiscriminationQuality(d float64) string {
	switch {
	case d >= 0.40:
		return domain.DiscriminationVeryGood
	case d >= 0.30:
		return domain.DiscriminationGood
	case d >= 0.20:
		return domain.DiscriminationFair
	case d >= 0:
		return domain.DiscriminationPoor
	default:
		return domain.DiscriminationVeryPoor
	}
}

func countSelected(q *domain.Question, option string, attempts []*domain.Attempt) int {
	n := 0
	for _, a := range attempts {
		if strings.TrimSpace(string(a.Answers[q.ID])) == option {
			n++
		}
	}
	return n
}

// analyzeDistractors tallies every option. Single-choice answers store the
// selected option index.
func analyzeDistractors(q *domain.Question, g scoreGroups) []domain.DistractorStat {
	key := strings.TrimSpace(q.CorrectKey)
	total := len(g.all)
	stats := make([]domain.DistractorStat, 0, len(q.Options))
	for i, opt := range q.Options {
		idx := strconv.Itoa(i)
		selected := countSelected(q, idx, g.all)
		var pct float64
		if total > 0 {
			pct = float64(selected) / float64(total) * 100
		}
		stat := domain.DistractorStat{
			OptionIndex:           i,
			OptionText:            util.Truncate(opt.Text, maxOptionTextLength),
			SelectedCount:         selected,
			SelectedPercentage:    util.Round(pct, 1),
			SelectedByTopGroup:    countSelected(q, idx, g.top),
			SelectedByBottomGroup: countSelected(q, idx, g.bottom),
		}
		switch {
		case idx == key:
			stat.Effectiveness = domain.DistractorKey
		case selected == 0:
			stat.Effectiveness = domain.DistractorNonFunctioning
		case pct < weakDistractorPercent:
			stat.Effectiveness = domain.DistractorWeak
		case stat.SelectedByBottomGroup >= stat.SelectedByTopGroup:
			stat.Effectiveness = domain.DistractorGood
		default:
			stat.Effectiveness = domain.DistractorWeak
		}
		stats = append(stats, stat)
	}
	return stats
}
