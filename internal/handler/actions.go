package handler

import (
	"context"
	"encoding/json"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (h *ActionHandler) login(ctx context.Context, data json.RawMessage) (interface{}, error) {
	req, err := decodeData[dto.LoginRequest](data)
	if err != nil {
		return nil, domain.NewUnauthorizedError(LoginFailedMessage)
	}
	if err := h.schema.EnsureOnce(ctx); err != nil {
		return nil, err
	}
	identity, ok := h.svc.Auth.Authenticate(ctx, req.Username, req.Password)
	if !ok {
		return nil, domain.NewUnauthorizedError(LoginFailedMessage)
	}
	logger.Get().Info("Login succeeded", zap.String("username", identity.Username), zap.String("role", string(identity.Role)))
	return identity, nil
}

// Reads

func (h *ActionHandler) getExams(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	exams, err := h.svc.Exams.ListExams(ctx)
	return nonNil(exams, err)
}

func (h *ActionHandler) getAttempts(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	attempts, err := h.svc.Attempts.ListAttempts(ctx)
	return nonNil(attempts, err)
}

func (h *ActionHandler) getLiveProgress(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	progress, err := h.svc.Attempts.ListProgress(ctx)
	return nonNil(progress, err)
}

func (h *ActionHandler) getClassIDs(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	ids, err := h.svc.Auth.ListClassIDs(ctx)
	return nonNil(ids, err)
}

func (h *ActionHandler) getConfig(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return h.svc.Config.GetSettings(ctx), nil
}

func (h *ActionHandler) getBankQuestions(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	items, err := h.svc.Bank.ListQuestions(ctx)
	return nonNil(items, err)
}

func (h *ActionHandler) getQuestionAnalysis(ctx context.Context, data json.RawMessage) (interface{}, error) {
	q, err := decodeData[dto.AnalysisQuery](data)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.Analysis.ListAnalyses(ctx, q.ToFilter())
	return nonNil(list, err)
}

// nonNil renders an empty list as [] rather than null.
func nonNil[T any](list []T, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// Writes. The payload is decoded and checked first; the returned func runs
// under the write lock.

func (h *ActionHandler) saveExam(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.SaveExamRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return h.svc.Exams.SaveExam(ctx, req)
	}, nil
}

func (h *ActionHandler) deleteExam(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.ExamIDRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Exams.DeleteExam(ctx, req.ID)
	}, nil
}

func (h *ActionHandler) submitAttempt(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.SubmitAttemptRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Attempts.SubmitAttempt(ctx, req)
	}, nil
}

func (h *ActionHandler) updateScore(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.UpdateScoreRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Attempts.UpdateScore(ctx, req)
	}, nil
}

func (h *ActionHandler) updateProgress(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.UpdateProgressRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Attempts.UpdateProgress(ctx, req)
	}, nil
}

func (h *ActionHandler) resetStudentAttempt(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.StudentRef](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Attempts.ResetStudent(ctx, req)
	}, nil
}

func (h *ActionHandler) resetSystem(_ json.RawMessage) (runFunc, error) {
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Exams.ResetSystem(ctx)
	}, nil
}

func (h *ActionHandler) uploadImage(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.UploadImageRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		url, err := h.svc.Uploads.UploadImage(ctx, req)
		if err != nil {
			return nil, err
		}
		return dto.UploadImageResponse{URL: url}, nil
	}, nil
}

func (h *ActionHandler) saveToBank(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.SaveToBankRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		id, err := h.svc.Bank.SaveQuestion(ctx, req)
		if err != nil {
			return nil, err
		}
		return dto.SaveToBankResponse{ID: id}, nil
	}, nil
}

func (h *ActionHandler) updateBankQuestion(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.UpdateBankQuestionRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Bank.UpdateQuestion(ctx, req)
	}, nil
}

func (h *ActionHandler) deleteBankQuestion(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.BankQuestionIDRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return nil, h.svc.Bank.DeleteQuestion(ctx, req.QuestionID)
	}, nil
}

func (h *ActionHandler) bulkDeleteBank(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.BulkDeleteRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return h.svc.Bank.BulkDelete(ctx, req.QuestionIDs)
	}, nil
}

func (h *ActionHandler) analyzeExam(data json.RawMessage) (runFunc, error) {
	req, err := decodeChecked[dto.AnalyzeExamRequest](h.svc.Requests, data)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (interface{}, error) {
		return h.svc.Analysis.AnalyzeExam(ctx, req.ExamID)
	}, nil
}

// ServeBlob streams a stored blob so URLs of the memory and redis blob stores resolve.
func (h *ActionHandler) ServeBlob(c *fiber.Ctx) error {
	b, err := h.svc.Uploads.OpenBlob(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, b.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(b.Data)
}
