package dto

import (
	"encoding/json"

	"exam-room/internal/domain"
)

// ActionRequest is the body of POST /api.
type ActionRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Envelope is the uniform response of every action.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	// Errors carries per-field detail of a rejected request.
	Errors []domain.ValidationError `json:"errors,omitempty"`
}

// LoginRequest is the LOGIN payload. Shape checks happen in the auth service
// so that every rejection looks the same to the caller.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SaveExamRequest is the SAVE_EXAM payload.
type SaveExamRequest struct {
	ID                  string            `json:"id" validate:"omitempty,recordid"`
	Title               string            `json:"title" validate:"required"`
	Subject             string            `json:"subject"`
	ClassGrade          string            `json:"classGrade"`
	Date                string            `json:"date"`
	StartTime           string            `json:"startTime"`
	EndTime             string            `json:"endTime"`
	DurationMinutes     *int              `json:"durationMinutes" validate:"omitempty,min=1,max=600"`
	Token               string            `json:"token" validate:"required,max=50,examtoken"`
	Status              string            `json:"status"`
	Questions           []domain.Question `json:"questions"`
	AreResultsPublished bool              `json:"areResultsPublished"`
	RandomizeQuestions  bool              `json:"randomizeQuestions"`
	RandomizeOptions    bool              `json:"randomizeOptions"`
}

// ExamIDRequest is the DELETE_EXAM payload.
type ExamIDRequest struct {
	ID string `json:"id" validate:"required,recordid"`
}

// StudentRef identifies a student inside an exam.
type StudentRef struct {
	ExamID      string `json:"examId" validate:"required,recordid"`
	StudentName string `json:"studentName" validate:"required"`
}

// SubmitAttemptRequest is the SUBMIT_ATTEMPT payload.
type SubmitAttemptRequest struct {
	StudentRef
	ExamTitle      string         `json:"examTitle"`
	Answers        domain.Answers `json:"answers"`
	Score          float64        `json:"score"`
	SubmittedAt    string         `json:"submittedAt"`
	ViolationCount int            `json:"violationCount"`
}

// UpdateScoreRequest is the UPDATE_SCORE payload.
type UpdateScoreRequest struct {
	StudentRef
	NewScore float64 `json:"newScore"`
}

// UpdateProgressRequest is the UPDATE_PROGRESS payload.
type UpdateProgressRequest struct {
	StudentRef
	AnsweredCount  int    `json:"answeredCount"`
	TotalQuestions int    `json:"totalQuestions"`
	LastActive     string `json:"lastActive"`
	Status         string `json:"status"`
	ViolationCount int    `json:"violationCount"`
}

// UploadImageRequest is the UPLOAD_IMAGE payload. Base64Data is a data URL.
type UploadImageRequest struct {
	Base64Data string `json:"base64Data" validate:"required"`
	FileName   string `json:"fileName" validate:"required,imagename"`
}

// UploadImageResponse carries the public URL of an uploaded image.
type UploadImageResponse struct {
	URL string `json:"url"`
}

// SaveToBankRequest is the SAVE_TO_BANK payload.
type SaveToBankRequest struct {
	Question   *domain.Question `json:"question" validate:"required"`
	Subject    string           `json:"subject"`
	Difficulty string           `json:"difficulty"`
	Tags       string           `json:"tags"`
	CreatedBy  string           `json:"createdBy" validate:"required"`
}

// SaveToBankResponse returns the id of the stored question.
type SaveToBankResponse struct {
	ID string `json:"id"`
}

// UpdateBankQuestionRequest is the UPDATE_BANK_QUESTION payload.
// Question carries only the fields to change. Absent or null fields, here and
// at the top level, keep their stored value.
type UpdateBankQuestionRequest struct {
	QuestionID string          `json:"questionId" validate:"required,recordid"`
	Question   json.RawMessage `json:"question" validate:"required"`
	Subject    *string         `json:"subject"`
	Difficulty *string         `json:"difficulty"`
	Tags       *string         `json:"tags"`
}

// BankQuestionIDRequest is the DELETE_BANK_QUESTION payload.
type BankQuestionIDRequest struct {
	QuestionID string `json:"questionId" validate:"required,recordid"`
}

// BulkDeleteRequest is the BULK_DELETE_BANK_QUESTIONS payload.
type BulkDeleteRequest struct {
	QuestionIDs []string `json:"questionIds" validate:"required"`
}

// AnalyzeExamRequest is the ANALYZE_EXAM payload.
type AnalyzeExamRequest struct {
	ExamID string `json:"examId" validate:"required,recordid"`
}

// AnalysisQuery filters GET_QUESTION_ANALYSIS. Empty ids match everything.
type AnalysisQuery struct {
	ExamID     string `json:"examId"`
	QuestionID string `json:"questionId"`
	Latest     bool   `json:"latest"`
}

// ToFilter converts the query into a domain filter.
func (q AnalysisQuery) ToFilter() domain.AnalysisFilter {
	return domain.AnalysisFilter{ExamID: q.ExamID, QuestionID: q.QuestionID, LatestOnly: q.Latest}
}
