package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"exam-room/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	MaxRecordIDLength = 100
	MaxTokenLength    = 50
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 3
	MaxPasswordLength = 200
)

var (
	recordIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	examTokenPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	imageNamePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)
)

// Validator provides request validation functionality
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with the record rules registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("recordid", func(fl validator.FieldLevel) bool {
		return IsRecordID(fl.Field().String())
	})
	_ = v.RegisterValidation("examtoken", func(fl validator.FieldLevel) bool {
		return examTokenPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("imagename", func(fl validator.FieldLevel) bool {
		return imageNamePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct runs the struct tags of s and returns nil or domain.ValidationErrors.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewInvalidInputError(err.Error())
	}
	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}
	return out
}

func toValidationError(fe validator.FieldError) domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return domain.NewMissingFieldError(field)
	case "min", "max", "gte", "lte":
		return domain.ValidationError{
			Field:   field,
			Code:    domain.CodeOutOfRange,
			Message: fmt.Sprintf("%s violates %s=%s", field, fe.Tag(), fe.Param()),
			Value:   fe.Value(),
		}
	default:
		return domain.NewInvalidFormatError(field, fe.Value())
	}
}

// ValidateCredentials checks login input shape after trimming.
func (v *Validator) ValidateCredentials(username, password string) domain.ValidationErrors {
	var errs domain.ValidationErrors

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		errs = append(errs, domain.NewMissingFieldError("username"))
	case len(username) < MinUsernameLength || len(username) > MaxUsernameLength:
		errs = append(errs, domain.NewOutOfRangeError("username", len(username), MinUsernameLength, MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		errs = append(errs, domain.NewInvalidFormatError("username", username))
	}

	password = strings.TrimSpace(password)
	switch {
	case password == "":
		errs = append(errs, domain.NewMissingFieldError("password"))
	case len(password) < MinPasswordLength || len(password) > MaxPasswordLength:
		errs = append(errs, domain.NewOutOfRangeError("password", len(password), MinPasswordLength, MaxPasswordLength))
	}

	return errs
}

// ValidateRecordID checks a required id field.
func (v *Validator) ValidateRecordID(field, id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	}
	if !IsRecordID(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError(field, id)}
	}
	return nil
}

// IsRecordID reports whether id is a safe table identity: 1 to 100 characters
// of letters, digits, underscore or hyphen.
func IsRecordID(id string) bool {
	return len(id) <= MaxRecordIDLength && recordIDPattern.MatchString(id)
}

// IsImageName reports whether name has an allowed image extension.
func IsImageName(name string) bool {
	return imageNamePattern.MatchString(name)
}

// ValidateQuestions requires id, text and type on every question.
func (v *Validator) ValidateQuestions(questions []domain.Question) domain.ValidationErrors {
	var errs domain.ValidationErrors
	for i, q := range questions {
		prefix := fmt.Sprintf("questions[%d].", i)
		if strings.TrimSpace(q.ID) == "" {
			errs = append(errs, domain.NewMissingFieldError(prefix+"id"))
		}
		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, domain.NewMissingFieldError(prefix+"text"))
		}
		if strings.TrimSpace(string(q.Type)) == "" {
			errs = append(errs, domain.NewMissingFieldError(prefix+"type"))
		}
	}
	return errs
}
