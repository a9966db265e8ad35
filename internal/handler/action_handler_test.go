package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"exam-room/internal/adapter/blob"
	"exam-room/internal/adapter/grid"
	"exam-room/internal/adapter/lock"
	"exam-room/internal/config"
	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/middleware"
	"exam-room/internal/repository"
	"exam-room/internal/schema"
	"exam-room/internal/service"
	"exam-room/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(config.LoggerConfig{Env: "test", Level: "error"}); err != nil {
		log.Fatalf("Failed to initialize logger for handler tests: %v", err)
	}
	exitCode := m.Run()
	_ = logger.Sync()
	os.Exit(exitCode)
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	} `json:"errors"`
}

type testServer struct {
	app    *fiber.App
	grid   *grid.MemoryGrid
	locker *lock.LocalLocker
}

// newTestServer wires the whole stack over in-memory backends. The schema is
// reconciled lazily by the first login or write, as in production.
func newTestServer(t *testing.T, lockWait time.Duration) *testServer {
	t.Helper()
	g := grid.NewMemoryGrid()
	reg := schema.DefaultRegistry()
	reconciler := schema.NewReconciler(g, reg)
	blobs := blob.NewMemoryStore("http://localhost:8080")
	store := repository.NewRecordStore(g, blobs, reg, 0)

	exams := repository.NewExamRepository(store)
	attempts := repository.NewAttemptRepository(store)
	progress := repository.NewProgressRepository(store)
	credentials := repository.NewCredentialRepository(store)
	bank := repository.NewBankRepository(store)
	history := repository.NewAnalysisRepository(store)
	settings := repository.NewConfigRepository(store)

	locker := lock.NewLocalLocker()
	serializer := service.NewWriteSerializer(locker, lockWait)
	v := validation.NewValidator()

	h := NewActionHandler(reconciler, serializer, Services{
		Auth:     service.NewAuthService(credentials, serializer, v),
		Exams:    service.NewExamService(exams, attempts, progress, v),
		Attempts: service.NewAttemptService(exams, attempts, progress, v),
		Bank:     service.NewBankService(bank, v),
		Analysis: service.NewItemAnalysisService(exams, attempts, history, bank),
		Uploads:  service.NewUploadService(blobs, v),
		Config:   service.NewConfigService(settings),
		Requests: service.NewRequestChecker(v),
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	h.Register(app)
	return &testServer{app: app, grid: g, locker: locker}
}

func (s *testServer) post(t *testing.T, action string, data interface{}) (int, testEnvelope) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"action": action, "data": data})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) get(t *testing.T, query string) (int, testEnvelope) {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, "/api?"+query, nil))
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, testEnvelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env testEnvelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func examPayload(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":              id,
		"title":           "Matematika",
		"durationMinutes": 60,
		"token":           "MTK01",
		"status":          "OPEN",
		"questions": []map[string]interface{}{
			{"id": "q1", "text": "2 + 2 = ?", "type": "PILIHAN_GANDA", "options": []string{"3", "4"}, "correctKey": "1"},
		},
	}
}

func TestHandler_LoginReconcilesAndAuthenticates(t *testing.T) {
	s := newTestServer(t, time.Second)

	status, env := s.post(t, ActionLogin, map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)
	var identity domain.Identity
	require.NoError(t, json.Unmarshal(env.Data, &identity))
	assert.Equal(t, domain.RoleTeacher, identity.Role)

	sheets, err := s.grid.ListSheets(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sheets, schema.TableExams)

	status, env = s.post(t, ActionLogin, map[string]string{"username": "admin", "password": "nope!"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, LoginFailedMessage, env.Message)

	// Malformed input gets the same answer as a wrong password.
	status, env = s.post(t, ActionLogin, map[string]string{"username": "a'; --", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, LoginFailedMessage, env.Message)
}

func TestHandler_ExamLifecycle(t *testing.T) {
	s := newTestServer(t, time.Second)

	status, env := s.post(t, ActionSaveExam, examPayload("exam-1"))
	require.Equal(t, http.StatusOK, status, env.Message)
	require.True(t, env.Success)

	status, env = s.get(t, "action="+ActionGetExams)
	require.Equal(t, http.StatusOK, status)
	var exams []domain.Exam
	require.NoError(t, json.Unmarshal(env.Data, &exams))
	require.Len(t, exams, 1)
	assert.Equal(t, "Matematika", exams[0].Title)
	assert.Equal(t, "4", exams[0].Questions[0].Options[1].Text)

	status, _ = s.post(t, ActionDeleteExam, map[string]string{"id": "exam-1"})
	require.Equal(t, http.StatusOK, status)
	_, env = s.get(t, "action="+ActionGetExams)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandler_ValidationRejected(t *testing.T) {
	s := newTestServer(t, time.Second)

	payload := examPayload("exam-1")
	payload["durationMinutes"] = 0
	status, env := s.post(t, ActionSaveExam, payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "durationMinutes", env.Errors[0].Field)

	status, _ = s.post(t, ActionSubmitAttempt, map[string]interface{}{"examId": "exam 1", "studentName": "Budi"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.post(t, "DROP_TABLES", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	// Writes are never accepted over GET.
	status, _ = s.get(t, "action="+ActionResetSystem)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_BusyLockFailsFast(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)

	held, err := s.locker.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	status, env := s.post(t, ActionUpdateProgress, map[string]interface{}{"examId": "exam-1", "studentName": "Budi"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, domain.NewBusyError().Message, env.Message)
	require.NoError(t, held.Release(context.Background()))

	// Reads do not take the lock.
	held, err = s.locker.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer held.Release(context.Background())
	status, _ = s.get(t, "action="+ActionGetConfig)
	assert.Equal(t, http.StatusOK, status)
}

func TestHandler_AnalyzeExamInsufficientData(t *testing.T) {
	s := newTestServer(t, time.Second)

	_, env := s.post(t, ActionSaveExam, examPayload("exam-1"))
	require.True(t, env.Success, env.Message)
	for _, name := range []string{"A", "B", "C"} {
		_, env = s.post(t, ActionSubmitAttempt, map[string]interface{}{
			"examId": "exam-1", "studentName": name, "answers": map[string]interface{}{"q1": 1}, "score": 100,
		})
		require.True(t, env.Success, env.Message)
	}

	status, env := s.post(t, ActionAnalyzeExam, map[string]string{"examId": "exam-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Message, "3")

	status, _ = s.post(t, ActionAnalyzeExam, map[string]string{"examId": "ghost"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_AnalyzeExamAndHistory(t *testing.T) {
	s := newTestServer(t, time.Second)

	_, env := s.post(t, ActionSaveExam, examPayload("exam-1"))
	require.True(t, env.Success, env.Message)
	answers := []string{"1", "1", "1", "0", "0"}
	for i, a := range answers {
		_, env = s.post(t, ActionSubmitAttempt, map[string]interface{}{
			"examId": "exam-1", "studentName": string(rune('A' + i)),
			"answers": map[string]string{"q1": a}, "score": 100 - i*10,
		})
		require.True(t, env.Success, env.Message)
	}

	status, env := s.post(t, ActionAnalyzeExam, map[string]string{"examId": "exam-1"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 5, report.TotalStudents)
	require.Len(t, report.AnalysisResults, 1)
	assert.InDelta(t, 0.6, report.AnalysisResults[0].DifficultyIndex, 1e-9)

	status, env = s.get(t, "action="+ActionGetQuestionAnalysis+"&examId=exam-1&latest=true")
	require.Equal(t, http.StatusOK, status)
	var history []domain.QuestionAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

func TestHandler_FormEncodedFallback(t *testing.T) {
	s := newTestServer(t, time.Second)

	form := url.Values{}
	form.Set("action", ActionLogin)
	form.Set("data", `{"username":"siswa1","password":"siswa123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, env := s.do(t, req)
	require.Equal(t, http.StatusOK, status, env.Message)
	var identity domain.Identity
	require.NoError(t, json.Unmarshal(env.Data, &identity))
	assert.Equal(t, domain.RoleStudent, identity.Role)
	assert.Equal(t, "VIII A", identity.ClassID)
}

func TestHandler_UploadAndServeBlob(t *testing.T) {
	s := newTestServer(t, time.Second)
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52}

	status, env := s.post(t, ActionUploadImage, map[string]string{
		"base64Data": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"fileName":   "soal1.png",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	path := strings.TrimPrefix(out.URL, "http://localhost:8080")
	require.True(t, strings.HasPrefix(path, "/api/blobs/"), out.URL)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, body)

	status, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/blobs/UNKNOWN123", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_BankBulkDelete(t *testing.T) {
	s := newTestServer(t, time.Second)

	var ids []string
	for i := 0; i < 2; i++ {
		status, env := s.post(t, ActionSaveToBank, map[string]interface{}{
			"question":  map[string]interface{}{"text": "Soal", "type": "ISIAN_SINGKAT", "correctKey": "x"},
			"createdBy": "admin",
		})
		require.Equal(t, http.StatusOK, status, env.Message)
		var out struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		ids = append(ids, out.ID)
	}

	status, env := s.post(t, ActionBulkDeleteBank, map[string]interface{}{"questionIds": append(ids, "missing-id")})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deletedCount":2,"failedCount":1}`, string(env.Data))
}

func TestHandler_MalformedWriteRejectedBeforeLock(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)

	held, err := s.locker.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer held.Release(context.Background())

	payload := examPayload("exam-1")
	payload["durationMinutes"] = 0
	status, env := s.post(t, ActionSaveExam, payload)
	assert.Equal(t, http.StatusBadRequest, status, env.Message)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "durationMinutes", env.Errors[0].Field)

	status, _ = s.post(t, ActionUpdateBankQuestion, map[string]interface{}{"questionId": "qb-1", "question": "text"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.post(t, ActionBulkDeleteBank, map[string]interface{}{"questionIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.post(t, ActionAnalyzeExam, map[string]string{"examId": "../etc"})
	assert.Equal(t, http.StatusBadRequest, status)

	// A valid write still waits for the lock.
	status, _ = s.post(t, ActionSaveExam, examPayload("exam-1"))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestHandler_UpdateBankQuestionKeepsOmittedFields(t *testing.T) {
	s := newTestServer(t, time.Second)

	status, env := s.post(t, ActionSaveToBank, map[string]interface{}{
		"question": map[string]interface{}{
			"text": "Ibu kota?", "type": "PILIHAN_GANDA", "passage": "Bacaan",
			"options": []string{"Jakarta", "Bandung"}, "correctKey": "0",
		},
		"subject": "IPS", "difficulty": "hard", "tags": "geo,kota", "createdBy": "admin",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var saved struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &saved))

	status, env = s.post(t, ActionUpdateBankQuestion, map[string]interface{}{
		"questionId": saved.ID,
		"question":   map[string]string{"text": "Teks baru"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	_, env = s.get(t, "action="+ActionGetBankQuestions)
	var items []domain.QuestionBankItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "Teks baru", item.Text)
	assert.Equal(t, domain.QuestionSingleChoice, item.Type)
	assert.Equal(t, "IPS", item.Subject)
	assert.Equal(t, "hard", item.Difficulty)
	assert.Equal(t, "geo,kota", item.Tags)
	assert.Equal(t, "Bacaan", item.Passage)
	assert.Len(t, item.Options, 2)
	assert.Equal(t, "0", item.CorrectKey)
}
