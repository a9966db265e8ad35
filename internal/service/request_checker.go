package service

import (
	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/validation"
)

// RequestChecker normalizes and validates a decoded write payload without
// touching storage, so malformed input is rejected before the write lock is
// taken. The services run the same checks again for callers that bypass it.
type RequestChecker interface {
	Check(req interface{}) error
}

type requestCheckerImpl struct {
	validator *validation.Validator
}

func NewRequestChecker(validator *validation.Validator) RequestChecker {
	return &requestCheckerImpl{validator: validator}
}

func (c *requestCheckerImpl) Check(req interface{}) error {
	switch r := req.(type) {
	case *dto.SaveExamRequest:
		return prepareExam(c.validator, r)
	case *dto.ExamIDRequest:
		return asError(c.validator.ValidateRecordID("id", r.ID))
	case *dto.SubmitAttemptRequest:
		return validateStudentRef(c.validator, &r.StudentRef)
	case *dto.UpdateScoreRequest:
		return validateStudentRef(c.validator, &r.StudentRef)
	case *dto.UpdateProgressRequest:
		return validateStudentRef(c.validator, &r.StudentRef)
	case *dto.StudentRef:
		return validateStudentRef(c.validator, r)
	case *dto.UploadImageRequest:
		_, _, err := readImage(c.validator, r)
		return err
	case *dto.SaveToBankRequest:
		// The generated id is discarded; the service draws its own.
		_, err := prepareBankSave(c.validator, r)
		return err
	case *dto.UpdateBankQuestionRequest:
		_, err := parseQuestionPatch(c.validator, r)
		return err
	case *dto.BankQuestionIDRequest:
		return asError(c.validator.ValidateRecordID("questionId", r.QuestionID))
	case *dto.BulkDeleteRequest:
		if len(r.QuestionIDs) == 0 {
			return domain.ValidationErrors{domain.NewMissingFieldError("questionIds")}
		}
		return nil
	case *dto.AnalyzeExamRequest:
		return validateExamID(r.ExamID)
	}
	return nil
}

// asError keeps an empty ValidationErrors from becoming a non-nil error.
func asError(errs domain.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
