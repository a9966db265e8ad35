package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"go.uber.org/zap"
)

// Authored field limits of bank questions.
const (
	maxBankTextLength       = 2000
	maxBankTypeLength       = 50
	maxBankSubjectLength    = 100
	maxBankDifficultyLength = 20
	maxBankTagsLength       = 500
	maxBankImageURLLength   = 500
	maxBankPassageLength    = 10000
	maxBankKeyLength        = 500
	maxBankAuthorLength     = 100

	bankIDPrefix = "qb-"
)

// BankService manages the reusable question bank.
type BankService interface {
	ListQuestions(ctx context.Context) ([]*domain.QuestionBankItem, error)
	// SaveQuestion stores a new bank question and returns its id.
	SaveQuestion(ctx context.Context, req *dto.SaveToBankRequest) (string, error)
	// UpdateQuestion rewrites the authored fields of an existing question.
	UpdateQuestion(ctx context.Context, req *dto.UpdateBankQuestionRequest) error
	DeleteQuestion(ctx context.Context, id string) error
	// BulkDelete counts malformed and unknown ids as failed.
	BulkDelete(ctx context.Context, ids []string) (domain.BulkDeleteResult, error)
}

type bankServiceImpl struct {
	bank      domain.BankRepository
	validator *validation.Validator
	now       func() time.Time
}

func NewBankService(bank domain.BankRepository, validator *validation.Validator) BankService {
	return &bankServiceImpl{bank: bank, validator: validator, now: time.Now}
}

func (s *bankServiceImpl) ListQuestions(ctx context.Context) ([]*domain.QuestionBankItem, error) {
	return s.bank.List(ctx)
}

// authoredItem applies the field limits to the authored part of a bank item.
func authoredItem(q *domain.Question, subject, difficulty, tags string) *domain.QuestionBankItem {
	item := &domain.QuestionBankItem{Question: *q}
	item.Text = util.Sanitize(q.Text, maxBankTextLength)
	item.Type = domain.QuestionType(util.Sanitize(string(q.Type), maxBankTypeLength))
	item.ImageURL = util.Sanitize(q.ImageURL, maxBankImageURLLength)
	item.Passage = util.Truncate(q.Passage, maxBankPassageLength)
	item.CorrectKey = util.Sanitize(q.CorrectKey, maxBankKeyLength)
	item.Subject = util.Sanitize(subject, maxBankSubjectLength)
	item.Difficulty = util.Sanitize(difficulty, maxBankDifficultyLength)
	if item.Difficulty == "" {
		item.Difficulty = domain.DifficultyMedium
	}
	item.Tags = util.Sanitize(tags, maxBankTagsLength)
	return item
}

// prepareBankSave normalizes and validates a SAVE_TO_BANK payload and returns
// the id to store it under.
func prepareBankSave(v *validation.Validator, req *dto.SaveToBankRequest) (string, error) {
	req.CreatedBy = util.Sanitize(req.CreatedBy, maxBankAuthorLength)
	if err := v.Struct(req); err != nil {
		return "", err
	}
	id := strings.TrimSpace(req.Question.ID)
	if id == "" {
		return bankIDPrefix + util.NewULID(), nil
	}
	if !validation.IsRecordID(id) {
		return "", domain.ValidationErrors{domain.NewInvalidFormatError("question.id", id)}
	}
	return id, nil
}

func (s *bankServiceImpl) SaveQuestion(ctx context.Context, req *dto.SaveToBankRequest) (string, error) {
	id, err := prepareBankSave(s.validator, req)
	if err != nil {
		return "", err
	}

	item := authoredItem(req.Question, req.Subject, req.Difficulty, req.Tags)
	item.ID = id
	item.CreatedAt = domain.FormatTimestamp(s.now())
	item.CreatedBy = req.CreatedBy
	item.UsageCount = 0
	item.LastUsedAt = ""

	if err := s.bank.Save(ctx, item); err != nil {
		return "", err
	}
	logger.Get().Info("Question saved to bank", zap.String("questionId", id), zap.String("createdBy", item.CreatedBy))
	return id, nil
}

// questionPatch is the decoded question of an update together with the set
// of keys the client sent with a non-null value.
type questionPatch struct {
	fields   domain.Question
	provided map[string]bool
}

// parseQuestionPatch validates an UPDATE_BANK_QUESTION payload.
func parseQuestionPatch(v *validation.Validator, req *dto.UpdateBankQuestionRequest) (*questionPatch, error) {
	if err := v.Struct(req); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(req.Question, &raw); err != nil {
		return nil, domain.ValidationErrors{domain.NewInvalidFormatError("question", nil)}
	}
	if raw == nil {
		return nil, domain.ValidationErrors{domain.NewMissingFieldError("question")}
	}
	patch := &questionPatch{provided: make(map[string]bool, len(raw))}
	if err := json.Unmarshal(req.Question, &patch.fields); err != nil {
		return nil, domain.ValidationErrors{domain.NewInvalidFormatError("question", nil)}
	}
	for key, value := range raw {
		if string(bytes.TrimSpace(value)) != "null" {
			patch.provided[key] = true
		}
	}
	return patch, nil
}

// apply copies the provided fields onto q. The id is never changed.
func (p *questionPatch) apply(q *domain.Question) {
	for key := range p.provided {
		switch key {
		case "text":
			q.Text = p.fields.Text
		case "type":
			q.Type = p.fields.Type
		case "imageUrl":
			q.ImageURL = p.fields.ImageURL
		case "passage":
			q.Passage = p.fields.Passage
		case "options":
			q.Options = p.fields.Options
		case "matchingPairs":
			q.MatchingPairs = p.fields.MatchingPairs
		case "statements":
			q.Statements = p.fields.Statements
		case "sequenceItems":
			q.SequenceItems = p.fields.SequenceItems
		case "correctSequence":
			q.CorrectSequence = p.fields.CorrectSequence
		case "classificationItems":
			q.ClassificationItems = p.fields.ClassificationItems
		case "categories":
			q.Categories = p.fields.Categories
		case "classificationMapping":
			q.ClassificationMapping = p.fields.ClassificationMapping
		case "correctKey":
			q.CorrectKey = p.fields.CorrectKey
		}
	}
}

func (s *bankServiceImpl) UpdateQuestion(ctx context.Context, req *dto.UpdateBankQuestionRequest) error {
	patch, err := parseQuestionPatch(s.validator, req)
	if err != nil {
		return err
	}
	existing, err := s.bank.FindByID(ctx, req.QuestionID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NewQuestionNotFoundError(req.QuestionID)
	}

	merged := existing.Question
	patch.apply(&merged)
	subject, difficulty, tags := existing.Subject, existing.Difficulty, existing.Tags
	if req.Subject != nil {
		subject = *req.Subject
	}
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}
	if req.Tags != nil {
		tags = *req.Tags
	}

	item := authoredItem(&merged, subject, difficulty, tags)
	item.ID = req.QuestionID
	item.CreatedAt = existing.CreatedAt
	item.CreatedBy = existing.CreatedBy
	return s.bank.Save(ctx, item)
}

func (s *bankServiceImpl) DeleteQuestion(ctx context.Context, id string) error {
	if errs := s.validator.ValidateRecordID("questionId", id); len(errs) > 0 {
		return errs
	}
	deleted, err := s.bank.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NewQuestionNotFoundError(id)
	}
	return nil
}

func (s *bankServiceImpl) BulkDelete(ctx context.Context, ids []string) (domain.BulkDeleteResult, error) {
	var result domain.BulkDeleteResult
	for _, id := range ids {
		if !validation.IsRecordID(id) {
			result.FailedCount++
			continue
		}
		deleted, err := s.bank.Delete(ctx, id)
		if err != nil {
			logger.Get().Error("Failed to delete bank question", zap.String("questionId", id), zap.Error(err))
			result.FailedCount++
			continue
		}
		if !deleted {
			result.FailedCount++
			continue
		}
		result.DeletedCount++
	}
	logger.Get().Info("Bulk delete of bank questions",
		zap.Int("deleted", result.DeletedCount),
		zap.Int("failed", result.FailedCount))
	return result, nil
}
