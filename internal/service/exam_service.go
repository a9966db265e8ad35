package service

import (
	"context"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"go.uber.org/zap"
)

const maxTitleLength = 200

// ExamService manages exams and the full system reset.
type ExamService interface {
	ListExams(ctx context.Context) ([]*domain.Exam, error)
	SaveExam(ctx context.Context, req *dto.SaveExamRequest) (*domain.Exam, error)
	// DeleteExam removes the exam; an unknown id is not an error.
	DeleteExam(ctx context.Context, id string) error
	// ResetSystem clears exams, attempts and live progress. Headers are kept.
	ResetSystem(ctx context.Context) error
}

type examServiceImpl struct {
	exams     domain.ExamRepository
	attempts  domain.AttemptRepository
	progress  domain.ProgressRepository
	validator *validation.Validator
}

func NewExamService(
	exams domain.ExamRepository,
	attempts domain.AttemptRepository,
	progress domain.ProgressRepository,
	validator *validation.Validator,
) ExamService {
	return &examServiceImpl{exams: exams, attempts: attempts, progress: progress, validator: validator}
}

func (s *examServiceImpl) ListExams(ctx context.Context) ([]*domain.Exam, error) {
	return s.exams.List(ctx)
}

// prepareExam normalizes a SAVE_EXAM payload in place and validates it.
func prepareExam(v *validation.Validator, req *dto.SaveExamRequest) error {
	req.ID = strings.TrimSpace(req.ID)
	req.Title = util.Sanitize(req.Title, maxTitleLength)
	req.Token = strings.TrimSpace(req.Token)
	if err := v.Struct(req); err != nil {
		return err
	}
	if errs := v.ValidateQuestions(req.Questions); len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *examServiceImpl) SaveExam(ctx context.Context, req *dto.SaveExamRequest) (*domain.Exam, error) {
	if err := prepareExam(s.validator, req); err != nil {
		return nil, err
	}

	exam := &domain.Exam{
		ID:                  req.ID,
		Title:               req.Title,
		Subject:             strings.TrimSpace(req.Subject),
		ClassGrade:          strings.TrimSpace(req.ClassGrade),
		Date:                req.Date,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Token:               req.Token,
		Status:              domain.ParseExamStatus(req.Status),
		Questions:           req.Questions,
		AreResultsPublished: req.AreResultsPublished,
		RandomizeQuestions:  req.RandomizeQuestions,
		RandomizeOptions:    req.RandomizeOptions,
	}
	if exam.ID == "" {
		exam.ID = util.NewULID()
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if exam.Questions == nil {
		exam.Questions = []domain.Question{}
	}

	created, err := s.exams.Save(ctx, exam)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("Exam saved",
		zap.String("examId", exam.ID),
		zap.Bool("created", created),
		zap.Int("questions", len(exam.Questions)))
	return exam, nil
}

func (s *examServiceImpl) DeleteExam(ctx context.Context, id string) error {
	if errs := s.validator.ValidateRecordID("id", id); len(errs) > 0 {
		return errs
	}
	deleted, err := s.exams.Delete(ctx, id)
	if err != nil {
		return err
	}
	logger.Get().Info("Exam delete requested", zap.String("examId", id), zap.Bool("deleted", deleted))
	return nil
}

func (s *examServiceImpl) ResetSystem(ctx context.Context) error {
	if err := s.exams.Clear(ctx); err != nil {
		return err
	}
	if err := s.attempts.Clear(ctx); err != nil {
		return err
	}
	if err := s.progress.Clear(ctx); err != nil {
		return err
	}
	logger.Get().Warn("System reset: exams, attempts and live progress cleared")
	return nil
}
