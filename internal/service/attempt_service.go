package service

import (
	"context"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"go.uber.org/zap"
)

const (
	maxStudentNameLength = 100
	unknownExamTitle     = "Unknown Exam"
)

// AttemptService handles submissions, score corrections and live progress.
type AttemptService interface {
	ListAttempts(ctx context.Context) ([]*domain.Attempt, error)
	SubmitAttempt(ctx context.Context, req *dto.SubmitAttemptRequest) error
	UpdateScore(ctx context.Context, req *dto.UpdateScoreRequest) error

	ListProgress(ctx context.Context) ([]*domain.LiveProgress, error)
	UpdateProgress(ctx context.Context, req *dto.UpdateProgressRequest) error

	// ResetStudent deletes every attempt and progress row of the student in the exam.
	ResetStudent(ctx context.Context, ref *dto.StudentRef) error
}

type attemptServiceImpl struct {
	exams     domain.ExamRepository
	attempts  domain.AttemptRepository
	progress  domain.ProgressRepository
	validator *validation.Validator
	now       func() time.Time
}

func NewAttemptService(
	exams domain.ExamRepository,
	attempts domain.AttemptRepository,
	progress domain.ProgressRepository,
	validator *validation.Validator,
) AttemptService {
	return &attemptServiceImpl{
		exams:     exams,
		attempts:  attempts,
		progress:  progress,
		validator: validator,
		now:       time.Now,
	}
}

func validateStudentRef(v *validation.Validator, ref *dto.StudentRef) error {
	ref.StudentName = util.Sanitize(ref.StudentName, maxStudentNameLength)
	return v.Struct(ref)
}

func (s *attemptServiceImpl) ListAttempts(ctx context.Context) ([]*domain.Attempt, error) {
	return s.attempts.List(ctx)
}

func (s *attemptServiceImpl) SubmitAttempt(ctx context.Context, req *dto.SubmitAttemptRequest) error {
	if err := validateStudentRef(s.validator, &req.StudentRef); err != nil {
		return err
	}

	title := util.Sanitize(req.ExamTitle, maxTitleLength)
	if title == "" {
		exam, err := s.exams.FindByID(ctx, req.ExamID)
		if err != nil {
			return err
		}
		if exam != nil {
			title = util.Sanitize(exam.Title, maxTitleLength)
		}
	}
	if title == "" {
		title = unknownExamTitle
	}

	submittedAt := req.SubmittedAt
	if submittedAt == "" {
		submittedAt = domain.FormatTimestamp(s.now())
	}
	answers := req.Answers
	if answers == nil {
		answers = domain.Answers{}
	}

	attempt := &domain.Attempt{
		ExamID:         req.ExamID,
		ExamTitle:      title,
		StudentName:    req.StudentName,
		Answers:        answers,
		Score:          domain.ClampScore(req.Score),
		IsSubmitted:    true,
		SubmittedAt:    submittedAt,
		ViolationCount: domain.ClampViolations(req.ViolationCount),
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return err
	}
	logger.Get().Info("Attempt submitted",
		zap.String("examId", attempt.ExamID),
		zap.String("student", attempt.StudentName),
		zap.Float64("score", attempt.Score))
	return nil
}

func (s *attemptServiceImpl) UpdateScore(ctx context.Context, req *dto.UpdateScoreRequest) error {
	if err := validateStudentRef(s.validator, &req.StudentRef); err != nil {
		return err
	}
	found, err := s.attempts.UpdateScore(ctx, req.ExamID, req.StudentName, domain.ClampScore(req.NewScore))
	if err != nil {
		return err
	}
	if !found {
		return domain.NewNotFoundError("Attempt not found").
			WithContext("examId", req.ExamID).
			WithContext("studentName", req.StudentName)
	}
	return nil
}

func (s *attemptServiceImpl) ListProgress(ctx context.Context) ([]*domain.LiveProgress, error) {
	return s.progress.List(ctx)
}

func (s *attemptServiceImpl) UpdateProgress(ctx context.Context, req *dto.UpdateProgressRequest) error {
	if err := validateStudentRef(s.validator, &req.StudentRef); err != nil {
		return err
	}
	p := &domain.LiveProgress{
		ExamID:         req.ExamID,
		StudentName:    req.StudentName,
		AnsweredCount:  req.AnsweredCount,
		TotalQuestions: req.TotalQuestions,
		LastActive:     req.LastActive,
		Status:         domain.ProgressStatus(req.Status),
		ViolationCount: domain.ClampViolations(req.ViolationCount),
	}
	if p.Status == "" {
		p.Status = domain.ProgressWorking
	}
	if p.LastActive == "" {
		p.LastActive = domain.FormatTimestamp(s.now())
	}
	return s.progress.Upsert(ctx, p)
}

func (s *attemptServiceImpl) ResetStudent(ctx context.Context, ref *dto.StudentRef) error {
	if err := validateStudentRef(s.validator, ref); err != nil {
		return err
	}
	attempts, err := s.attempts.DeleteForStudent(ctx, ref.ExamID, ref.StudentName)
	if err != nil {
		return err
	}
	progress, err := s.progress.DeleteForStudent(ctx, ref.ExamID, ref.StudentName)
	if err != nil {
		return err
	}
	logger.Get().Info("Student attempt reset",
		zap.String("examId", ref.ExamID),
		zap.String("student", ref.StudentName),
		zap.Int("attemptsDeleted", attempts),
		zap.Int("progressDeleted", progress))
	return nil
}
