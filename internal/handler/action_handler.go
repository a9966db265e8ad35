package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"
	"exam-room/internal/metrics"
	"exam-room/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Action names accepted by the API.
const (
	ActionGetExams            = "GET_EXAMS"
	ActionGetAttempts         = "GET_ATTEMPTS"
	ActionGetLiveProgress     = "GET_LIVE_PROGRESS"
	ActionGetClassIDs         = "GET_CLASS_IDS"
	ActionGetConfig           = "GET_CONFIG"
	ActionGetBankQuestions    = "GET_BANK_QUESTIONS"
	ActionGetQuestionAnalysis = "GET_QUESTION_ANALYSIS"

	ActionLogin = "LOGIN"

	ActionSaveExam            = "SAVE_EXAM"
	ActionDeleteExam          = "DELETE_EXAM"
	ActionSubmitAttempt       = "SUBMIT_ATTEMPT"
	ActionUpdateScore         = "UPDATE_SCORE"
	ActionUpdateProgress      = "UPDATE_PROGRESS"
	ActionResetStudentAttempt = "RESET_STUDENT_ATTEMPT"
	ActionResetSystem         = "RESET_SYSTEM"
	ActionUploadImage         = "UPLOAD_IMAGE"
	ActionSaveToBank          = "SAVE_TO_BANK"
	ActionUpdateBankQuestion  = "UPDATE_BANK_QUESTION"
	ActionDeleteBankQuestion  = "DELETE_BANK_QUESTION"
	ActionBulkDeleteBank      = "BULK_DELETE_BANK_QUESTIONS"
	ActionAnalyzeExam         = "ANALYZE_EXAM"
)

// LoginFailedMessage is the only message a failed login ever returns.
const LoginFailedMessage = "Invalid username or password"

// SchemaEnsurer brings the table layout up to date once per process.
type SchemaEnsurer interface {
	EnsureOnce(ctx context.Context) error
}

// Services groups the services the dispatcher routes to.
type Services struct {
	Auth     service.AuthService
	Exams    service.ExamService
	Attempts service.AttemptService
	Bank     service.BankService
	Analysis service.ItemAnalysisService
	Uploads  service.UploadService
	Config   service.ConfigService
	Requests service.RequestChecker
}

type actionFunc func(ctx context.Context, data json.RawMessage) (interface{}, error)

// writeFunc decodes and checks a write payload outside the lock and returns
// the operation to run under it.
type writeFunc func(data json.RawMessage) (runFunc, error)

type runFunc func(ctx context.Context) (interface{}, error)

// ActionHandler dispatches the single-endpoint action API.
type ActionHandler struct {
	schema     SchemaEnsurer
	serializer service.WriteSerializer
	svc        Services

	reads  map[string]actionFunc
	writes map[string]writeFunc
}

// NewActionHandler creates a new ActionHandler instance
func NewActionHandler(schema SchemaEnsurer, serializer service.WriteSerializer, svc Services) *ActionHandler {
	h := &ActionHandler{schema: schema, serializer: serializer, svc: svc}
	h.reads = map[string]actionFunc{
		ActionGetExams:            h.getExams,
		ActionGetAttempts:         h.getAttempts,
		ActionGetLiveProgress:     h.getLiveProgress,
		ActionGetClassIDs:         h.getClassIDs,
		ActionGetConfig:           h.getConfig,
		ActionGetBankQuestions:    h.getBankQuestions,
		ActionGetQuestionAnalysis: h.getQuestionAnalysis,
	}
	h.writes = map[string]writeFunc{
		ActionSaveExam:            h.saveExam,
		ActionDeleteExam:          h.deleteExam,
		ActionSubmitAttempt:       h.submitAttempt,
		ActionUpdateScore:         h.updateScore,
		ActionUpdateProgress:      h.updateProgress,
		ActionResetStudentAttempt: h.resetStudentAttempt,
		ActionResetSystem:         h.resetSystem,
		ActionUploadImage:         h.uploadImage,
		ActionSaveToBank:          h.saveToBank,
		ActionUpdateBankQuestion:  h.updateBankQuestion,
		ActionDeleteBankQuestion:  h.deleteBankQuestion,
		ActionBulkDeleteBank:      h.bulkDeleteBank,
		ActionAnalyzeExam:         h.analyzeExam,
	}
	return h
}

// Register mounts the API routes on router.
func (h *ActionHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	api.Get("/", h.HandleGet)
	api.Post("/", h.HandlePost)
	api.Get("/blobs/:id", h.ServeBlob)
}

// HandleGet serves read actions from query parameters.
func (h *ActionHandler) HandleGet(c *fiber.Ctx) error {
	action := strings.TrimSpace(c.Query("action"))
	if _, ok := h.reads[action]; !ok && action != "" {
		return h.finish(c, action, nil, domain.ValidationErrors{domain.NewInvalidFormatError("action", action)}, time.Now())
	}
	latest, _ := strconv.ParseBool(c.Query("latest"))
	data, err := json.Marshal(dto.AnalysisQuery{
		ExamID:     c.Query("examId"),
		QuestionID: c.Query("questionId"),
		Latest:     latest,
	})
	if err != nil {
		return err
	}
	return h.dispatch(c, action, data)
}

// HandlePost serves every action. The body is JSON {action, data}; form posts
// carry action and a JSON-encoded data field.
func (h *ActionHandler) HandlePost(c *fiber.Ctx) error {
	var req dto.ActionRequest
	contentType := string(c.Request().Header.ContentType())
	if strings.HasPrefix(contentType, fiber.MIMEApplicationForm) || strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		req.Action = c.FormValue("action")
		if raw := c.FormValue("data"); raw != "" {
			req.Data = json.RawMessage(raw)
		}
	} else if err := json.Unmarshal(c.Body(), &req); err != nil {
		return domain.ValidationErrors{domain.NewInvalidFormatError("body", nil)}
	}
	return h.dispatch(c, strings.TrimSpace(req.Action), req.Data)
}

func (h *ActionHandler) dispatch(c *fiber.Ctx, action string, data json.RawMessage) error {
	start := time.Now()
	ctx := c.UserContext()
	// Fiber reuses request buffers; the name outlives the request as a metric label.
	action = strings.Clone(action)

	if action == "" {
		return h.finish(c, "", nil, domain.ValidationErrors{domain.NewMissingFieldError("action")}, start)
	}

	if action == ActionLogin {
		result, err := h.login(ctx, data)
		return h.finish(c, action, result, err, start)
	}
	if fn, ok := h.reads[action]; ok {
		result, err := fn(ctx, data)
		return h.finish(c, action, result, err, start)
	}
	prepare, ok := h.writes[action]
	if !ok {
		return h.finish(c, action, nil, domain.ValidationErrors{domain.NewInvalidFormatError("action", action)}, start)
	}
	run, err := prepare(data)
	if err != nil {
		return h.finish(c, action, nil, err, start)
	}

	var result interface{}
	err = h.serializer.Do(ctx, action, func(ctx context.Context) error {
		if err := h.schema.EnsureOnce(ctx); err != nil {
			return err
		}
		var err error
		result, err = run(ctx)
		return err
	})
	return h.finish(c, action, result, err, start)
}

// finish records metrics and renders the envelope. Errors are rendered by the
// central error handler.
func (h *ActionHandler) finish(c *fiber.Ctx, action string, result interface{}, err error, start time.Time) error {
	label := action
	if _, known := h.reads[action]; !known && action != ActionLogin {
		if _, known := h.writes[action]; !known {
			label = "UNKNOWN"
		}
	}
	metrics.ActionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ActionRequestsTotal.WithLabelValues(label, outcomeOf(err)).Inc()
		return err
	}
	metrics.ActionRequestsTotal.WithLabelValues(label, "success").Inc()
	return c.JSON(dto.Envelope{Success: true, Data: result})
}

func outcomeOf(err error) string {
	var validationErrs domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		return "invalid"
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return strings.ToLower(string(domainErr.Code))
	}
	return "error"
}

// decodeData unmarshals the action payload. An empty payload decodes to the zero value.
func decodeData[T any](data json.RawMessage) (*T, error) {
	v := new(T)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Get().Debug("Rejected malformed action data", zap.Error(err))
		return nil, domain.ValidationErrors{domain.NewInvalidFormatError("data", nil)}
	}
	return v, nil
}

// decodeChecked decodes a write payload and rejects it before any store access
// when it is malformed.
func decodeChecked[T any](checker service.RequestChecker, data json.RawMessage) (*T, error) {
	v, err := decodeData[T](data)
	if err != nil {
		return nil, err
	}
	if err := checker.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}
