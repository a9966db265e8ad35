package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation errors
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Store errors
	CodeServerBusy ErrorCode = "SERVER_BUSY"
	CodeStorage    ErrorCode = "STORAGE_ERROR"

	// Item analysis errors
	CodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	CodeInvalidData      ErrorCode = "INVALID_DATA"
)

// ErrLockTimeout is returned by a Locker when the bounded wait elapses.
var ErrLockTimeout = errors.New("lock: wait timeout exceeded")

// ErrBlobNotFound is returned by a BlobStore when the id is unknown.
var ErrBlobNotFound = errors.New("blob: not found")

// ErrSheetNotFound is returned by a Grid for operations on an unknown sheet.
var ErrSheetNotFound = errors.New("grid: sheet not found")

// ErrTableNotInitialized is returned when a table has no header row.
var ErrTableNotInitialized = errors.New("table has no header row")

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// WithContext attaches a key/value pair that is echoed back to the client.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(CodeUnauthorized, message, nil)
}

// NewBusyError is returned when the write lock cannot be acquired in time.
// Callers may retry.
func NewBusyError() *DomainError {
	return NewError(CodeServerBusy, "Server busy, please try again.", nil)
}

// NewStorageError wraps a failing grid or blob operation.
func NewStorageError(op string, cause error) *DomainError {
	return NewError(CodeStorage, fmt.Sprintf("storage operation %q failed", op), cause)
}

func NewExamNotFoundError(examID string) *DomainError {
	return NewError(CodeNotFound, "Exam not found", nil).WithContext("examId", examID)
}

func NewQuestionNotFoundError(questionID string) *DomainError {
	return NewError(CodeNotFound, "Question not found in bank", nil).WithContext("questionId", questionID)
}

func NewInsufficientDataError(minimum, actual int) *DomainError {
	return NewError(CodeInsufficientData,
		fmt.Sprintf("At least %d submitted attempts are required for analysis. Current: %d", minimum, actual), nil).
		WithContext("attempts", actual)
}

func NewInvalidDataError(message string, cause error) *DomainError {
	return NewError(CodeInvalidData, message, cause)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ValidationError describes a single rejected request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a list of field errors returned together.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeInvalidFormat,
		Message: fmt.Sprintf("%s has an invalid format", field),
		Value:   value,
	}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("%s must be between %d and %d", field, min, max),
		Value:   value,
	}
}
