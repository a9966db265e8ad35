package service

import (
	"context"

	"exam-room/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockExamRepository ---
type MockExamRepository struct {
	mock.Mock
}

func (m *MockExamRepository) List(ctx context.Context) ([]*domain.Exam, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Exam), args.Error(1)
}

func (m *MockExamRepository) FindByID(ctx context.Context, id string) (*domain.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Exam), args.Error(1)
}

func (m *MockExamRepository) FindForAnalysis(ctx context.Context, id string) (*domain.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Exam), args.Error(1)
}

func (m *MockExamRepository) Save(ctx context.Context, exam *domain.Exam) (bool, error) {
	args := m.Called(ctx, exam)
	return args.Bool(0), args.Error(1)
}

func (m *MockExamRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockExamRepository) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- MockAttemptRepository ---
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) List(ctx context.Context) ([]*domain.Attempt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) ListForExam(ctx context.Context, examID string) ([]*domain.Attempt, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) Append(ctx context.Context, attempt *domain.Attempt) error {
	return m.Called(ctx, attempt).Error(0)
}

func (m *MockAttemptRepository) UpdateScore(ctx context.Context, examID, studentName string, score float64) (bool, error) {
	args := m.Called(ctx, examID, studentName, score)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) DeleteForStudent(ctx context.Context, examID, studentName string) (int, error) {
	args := m.Called(ctx, examID, studentName)
	return args.Int(0), args.Error(1)
}

func (m *MockAttemptRepository) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- MockProgressRepository ---
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) List(ctx context.Context) ([]*domain.LiveProgress, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LiveProgress), args.Error(1)
}

func (m *MockProgressRepository) Upsert(ctx context.Context, p *domain.LiveProgress) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProgressRepository) DeleteForStudent(ctx context.Context, examID, studentName string) (int, error) {
	args := m.Called(ctx, examID, studentName)
	return args.Int(0), args.Error(1)
}

func (m *MockProgressRepository) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- MockCredentialRepository ---
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) FindTeacher(ctx context.Context, username string) (*domain.Credential, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

func (m *MockCredentialRepository) FindStudent(ctx context.Context, username string) (*domain.Credential, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

func (m *MockCredentialRepository) UpdatePassword(ctx context.Context, role domain.Role, username, password string) error {
	return m.Called(ctx, role, username, password).Error(0)
}

func (m *MockCredentialRepository) ListStudentClassIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- MockBankRepository ---
type MockBankRepository struct {
	mock.Mock
}

func (m *MockBankRepository) List(ctx context.Context) ([]*domain.QuestionBankItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QuestionBankItem), args.Error(1)
}

func (m *MockBankRepository) FindByID(ctx context.Context, id string) (*domain.QuestionBankItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuestionBankItem), args.Error(1)
}

func (m *MockBankRepository) Save(ctx context.Context, item *domain.QuestionBankItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockBankRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBankRepository) UpdateMetrics(ctx context.Context, id string, metrics domain.BankMetrics) (bool, error) {
	args := m.Called(ctx, id, metrics)
	return args.Bool(0), args.Error(1)
}

// --- MockAnalysisRepository ---
type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Append(ctx context.Context, a *domain.QuestionAnalysis) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAnalysisRepository) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.QuestionAnalysis, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QuestionAnalysis), args.Error(1)
}

// --- MockConfigRepository ---
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context) (domain.AppSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AppSettings), args.Error(1)
}

// --- MockBlobStore ---
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, folder, name, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Get(ctx context.Context, id string) (*domain.Blob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blob), args.Error(1)
}

func (m *MockBlobStore) URL(id string) string {
	return m.Called(id).String(0)
}

// passthroughSerializer runs fn directly.
type passthroughSerializer struct {
	calls []string
	err   error
}

func (p *passthroughSerializer) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	p.calls = append(p.calls, action)
	if p.err != nil {
		return p.err
	}
	return fn(ctx)
}
